package evaluation

import (
	"fmt"
	"strings"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
)

const (
	minYear = 2000
	maxYear = 2100
)

// MonthKey identifies a calendar month as "YYYY-MM".
type MonthKey string

// ParseMonthKey validates raw and returns it as a MonthKey.
func ParseMonthKey(raw string) (MonthKey, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 7 || raw[4] != '-' {
		return "", fmt.Errorf("%w: %q", apperr.ErrInvalidMonthKey, raw)
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", apperr.ErrInvalidMonthKey, raw)
	}
	if t.Year() < minYear || t.Year() > maxYear {
		return "", fmt.Errorf("%w: year out of range in %q", apperr.ErrInvalidMonthKey, raw)
	}
	return MonthKey(raw), nil
}

func (m MonthKey) String() string { return string(m) }
