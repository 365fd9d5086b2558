package ingest

import (
	"strings"
	"time"

	"profitlift/domain/basket"
)

// festivalWindow is an approximate month/day range. Lunar festivals shift
// year to year; the windows are wide enough to catch the retail-relevant
// days without per-year tables.
type festivalWindow struct {
	month    time.Month
	startDay int
	endDay   int
}

// Calendar resolves timestamps to festival periods. Windows cover the
// Indian retail calendar the product ships with.
type Calendar struct {
	windows map[basket.FestivalPeriod][]festivalWindow
	major   map[basket.FestivalPeriod]bool
}

// DefaultCalendar builds the shipped festival calendar
func DefaultCalendar() *Calendar {
	return &Calendar{
		windows: map[basket.FestivalPeriod][]festivalWindow{
			"makar_sankranti":  {{time.January, 13, 16}},
			"republic_day":     {{time.January, 24, 28}},
			"holi":             {{time.March, 6, 10}},
			"eid_ul_fitr":      {{time.April, 20, 24}},
			"independence_day": {{time.August, 13, 17}},
			"raksha_bandhan":   {{time.August, 28, 31}},
			"janmashtami":      {{time.September, 5, 8}},
			"ganesh_chaturthi": {{time.September, 18, 28}},
			"navratri":         {{time.October, 15, 24}},
			"dussehra":         {{time.October, 23, 26}},
			"diwali":           {{time.November, 10, 16}},
			"christmas":        {{time.December, 23, 27}},
			"new_year":         {{time.December, 29, 31}, {time.January, 1, 3}},
		},
		major: map[basket.FestivalPeriod]bool{
			"diwali":      true,
			"holi":        true,
			"navratri":    true,
			"eid_ul_fitr": true,
			"christmas":   true,
			"new_year":    true,
		},
	}
}

// FestivalFor returns the festival window containing t, or "" when none.
// Overlapping windows resolve to the lexicographically first festival so
// enrichment stays deterministic.
func (c *Calendar) FestivalFor(t time.Time) basket.FestivalPeriod {
	month, day := t.Month(), t.Day()
	var match basket.FestivalPeriod
	for festival, windows := range c.windows {
		for _, w := range windows {
			if month == w.month && day >= w.startDay && day <= w.endDay {
				if match == "" || festival < match {
					match = festival
				}
			}
		}
	}
	return match
}

// MajorFestivalFor returns the festival only when it is one of the major
// retail events; minor windows are not worth their own mining contexts.
func (c *Calendar) MajorFestivalFor(t time.Time) basket.FestivalPeriod {
	festival := c.FestivalFor(t)
	if c.major[festival] {
		return festival
	}
	return ""
}

// categoryMargins holds margin-fraction defaults by category, used when a
// line item carries no explicit margin. Kept sorted by key; lookup walks
// the slice so ties resolve the same way every run.
var categoryMargins = []struct {
	key    string
	margin float64
}{
	{"bakery", 0.35},
	{"beverages", 0.25},
	{"dairy", 0.15},
	{"fruits", 0.30},
	{"grocery", 0.20},
	{"household", 0.20},
	{"meat", 0.15},
	{"packaged_food", 0.18},
	{"personal_care", 0.28},
	{"prepared", 0.40},
	{"produce", 0.30},
	{"snacks", 0.22},
	{"vegetables", 0.25},
}

// fallbackCategoryMargin is the margin for categories outside the table
const fallbackCategoryMargin = 0.22

// CategoryMargin estimates a margin fraction from the item category.
// Matching is case-insensitive and substring-based in both directions, so
// "Dairy Products" resolves through "dairy".
func CategoryMargin(category string) float64 {
	if margin, ok := LookupCategoryMargin(category); ok {
		return margin
	}
	return fallbackCategoryMargin
}

// LookupCategoryMargin resolves a category against the margin table,
// reporting whether the category was actually known. Callers with their
// own configured default use this instead of CategoryMargin.
func LookupCategoryMargin(category string) (float64, bool) {
	if category == "" {
		return 0, false
	}
	lower := strings.ToLower(category)
	for _, entry := range categoryMargins {
		if entry.key == lower {
			return entry.margin, true
		}
	}
	for _, entry := range categoryMargins {
		if strings.Contains(lower, entry.key) || strings.Contains(entry.key, lower) {
			return entry.margin, true
		}
	}
	return 0, false
}
