package model

import "testing"

func TestValidateUPC(t *testing.T) {
	tests := []struct {
		upc     string
		wantErr bool
	}{
		{"012345678901", false},
		{"12345", true},
		{"0123456789012", true},
		{"01234567890a", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateUPC(tt.upc)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateUPC(%q) error = %v, wantErr %v", tt.upc, err, tt.wantErr)
		}
	}
}

func TestValidItemStatus(t *testing.T) {
	for _, s := range []string{ItemStatusInFreezer, ItemStatusConsumed, ItemStatusThrownOut} {
		if !ValidItemStatus(s) {
			t.Errorf("ValidItemStatus(%q) = false", s)
		}
	}
	if ValidItemStatus(StatusAll) {
		t.Error("\"all\" is a filter, not a stored status")
	}
}

func TestValidateDate(t *testing.T) {
	if err := ValidateDate("2024-02-29"); err != nil {
		t.Errorf("leap day rejected: %v", err)
	}
	if err := ValidateDate("2023-02-29"); err == nil {
		t.Error("expected error for non-existent date")
	}
	if err := ValidateDate("02/01/2024"); err == nil {
		t.Error("expected error for wrong layout")
	}
}
