package domain

import (
	"slices"
	"strings"
	"time"
)

// Dataset column names.
const (
	ColName       = "Name"
	ColType       = "Type"
	ColAddress    = "Address"
	ColTel        = "Tel"
	ColCity       = "City"
	ColTown       = "Town"
	ColCreateDate = "CreateDate"
	ColHostWords  = "HostWords"
)

// RequiredColumns lists the columns every dataset must carry.
var RequiredColumns = []string{
	ColName, ColType, ColAddress, ColTel, ColCity, ColTown, ColCreateDate, ColHostWords,
}

// DateLayout is the CreateDate format.
const DateLayout = "2006-01-02"

// MissingColumns returns the required columns absent from header, sorted.
func MissingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	slices.Sort(missing)
	return missing
}

// ValidateHeader fails with a *MissingColumnsError if any required column is absent.
func ValidateHeader(header []string) error {
	if missing := MissingColumns(header); len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// ValidatePlace checks a parsed place before it is stored.
func ValidatePlace(row int, p Place) error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError(row, KeyName, p.Name, ErrEmptyName)
	}
	return nil
}

// ValidateQuestion rejects blank questions at the API boundary.
func ValidateQuestion(q string) error {
	if strings.TrimSpace(q) == "" {
		return NewValidationError(-1, "question", q, ErrEmptyQuestion)
	}
	return nil
}

// ParseDate converts a YYYY-MM-DD string to seconds since the epoch at
// midnight in loc.
func ParseDate(s string, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return 0, ErrBadDate
	}
	return t.Unix(), nil
}

// DateTimestamp returns midnight of t's calendar date in loc, in seconds.
// Loader and filter builder must use the same loc for bounds to line up.
func DateTimestamp(t time.Time, loc *time.Location) int64 {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Unix()
}
