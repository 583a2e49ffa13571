package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/freezer/internal/model"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// addDays shifts a YYYY-MM-DD date by n calendar days.
func addDays(date string, n int) (string, error) {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", date, err)
	}
	return t.AddDate(0, 0, n).Format(model.DateLayout), nil
}

// ValidationError wraps a field that failed model validation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }
