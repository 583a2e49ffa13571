package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/freezer/internal/model"
)

func withLocation(t *testing.T, name string) {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("time zone %s unavailable: %v", name, err)
	}
	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })
}

func TestParseLocal(t *testing.T) {
	withLocation(t, "America/Los_Angeles")

	d, ok, err := ParseLocal("2024-06-15")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 15, d.Day())
	assert.Equal(t, 0, d.Hour())

	d, ok, err = ParseLocal("2024-06-15T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 15, d.Day(), "timestamp must keep its calendar day")

	_, ok, err = ParseLocal("")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseLocal("06/15/2024")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 3, 1, 23, 59, 0, 0, time.Local)
	b := time.Date(2024, 3, 11, 0, 1, 0, 0, time.Local)

	assert.Equal(t, 0, DaysBetween(a, a))
	assert.Equal(t, 10, DaysBetween(a, b))
	assert.Equal(t, -DaysBetween(a, b), DaysBetween(b, a))
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	withLocation(t, "America/New_York")

	// Spring forward happened on 2024-03-10.
	before, _, _ := ParseLocal("2024-03-09")
	after, _, _ := ParseLocal("2024-03-11")
	assert.Equal(t, 2, DaysBetween(before, after))

	// Fall back happened on 2024-11-03.
	before, _, _ = ParseLocal("2024-11-02")
	after, _, _ = ParseLocal("2024-11-04")
	assert.Equal(t, 2, DaysBetween(before, after))
}

func TestAddDays(t *testing.T) {
	now := time.Date(2024, 6, 15, 22, 30, 0, 0, time.Local)
	assert.Equal(t, "2024-06-15", Today(now))
	assert.Equal(t, "2024-12-12", AddDays(now, 180))
	assert.Equal(t, "2024-06-14", AddDays(now, -1))
}

func TestClassify(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.Local)
	today := Today(now)

	tests := []struct {
		name string
		item model.Item
		want Age
	}{
		{
			name: "added today without expiration",
			item: model.Item{AddedDate: today, Status: model.ItemStatusInFreezer},
			want: Age{},
		},
		{
			name: "expiring in 15 days",
			item: model.Item{AddedDate: today, ExpirationDate: AddDays(now, 15), Status: model.ItemStatusInFreezer},
			want: Age{DaysUntilExpiry: 15, HasExpiration: true, ExpiringSoon: true},
		},
		{
			name: "expires today",
			item: model.Item{AddedDate: today, ExpirationDate: today, Status: model.ItemStatusInFreezer},
			want: Age{HasExpiration: true, ExpiringSoon: true},
		},
		{
			name: "expired yesterday",
			item: model.Item{AddedDate: "2024-01-01", ExpirationDate: AddDays(now, -1), Status: model.ItemStatusInFreezer},
			want: Age{DaysInFreezer: 166, DaysUntilExpiry: -1, HasExpiration: true, Expired: true},
		},
		{
			name: "in freezer over 180 days",
			item: model.Item{AddedDate: "2023-12-01", ExpirationDate: "2025-01-01", Status: model.ItemStatusInFreezer},
			want: Age{DaysInFreezer: 197, DaysUntilExpiry: 200, HasExpiration: true, Oldest: true},
		},
		{
			name: "future added date floors at zero",
			item: model.Item{AddedDate: AddDays(now, 3), Status: model.ItemStatusInFreezer},
			want: Age{},
		},
		{
			name: "consumed items are not classified",
			item: model.Item{AddedDate: "2023-01-01", ExpirationDate: AddDays(now, -10), Status: model.ItemStatusConsumed},
			want: Age{DaysInFreezer: 531, DaysUntilExpiry: -10, HasExpiration: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.item, now))
		})
	}
}

func TestDaysSinceMalformed(t *testing.T) {
	_, ok := DaysSince("garbage", time.Now())
	assert.False(t, ok)
	_, ok = DaysUntil("", time.Now())
	assert.False(t, ok)
}
