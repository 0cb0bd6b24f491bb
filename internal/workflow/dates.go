package workflow

import (
	"fmt"
	"time"
)

const dateLayout = "20060102"

// DefaultReportDate returns the most recent quarter-end on or before now,
// skipping the quarter still in progress: January through March fall back
// to the prior year's annual cutoff.
func DefaultReportDate(now time.Time) string {
	year, month := now.Year(), int(now.Month())
	switch {
	case month <= 3:
		return fmt.Sprintf("%d1231", year-1)
	case month <= 6:
		return fmt.Sprintf("%d0331", year)
	case month <= 9:
		return fmt.Sprintf("%d0630", year)
	default:
		return fmt.Sprintf("%d0930", year)
	}
}

// windowStart returns the date days before endDate, both in YYYYMMDD form.
func windowStart(endDate string, days int) (string, error) {
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return "", fmt.Errorf("parse report date %q: %w", endDate, err)
	}
	return end.AddDate(0, 0, -days).Format(dateLayout), nil
}
