package ingest

import (
	"profitlift/domain/basket"
)

// Enricher stamps derived context fields onto transactions. Enrichment is
// pure: the same timestamp always produces the same bins.
type Enricher struct {
	calendar *Calendar
}

// NewEnricher creates an enricher backed by the given calendar
func NewEnricher(calendar *Calendar) *Enricher {
	if calendar == nil {
		calendar = DefaultCalendar()
	}
	return &Enricher{calendar: calendar}
}

// TimeBinFor buckets an hour of day
func TimeBinFor(hour int) basket.TimeBin {
	switch {
	case hour >= 6 && hour < 11:
		return basket.TimeBinMorning
	case hour >= 11 && hour < 14:
		return basket.TimeBinMidday
	case hour >= 14 && hour < 18:
		return basket.TimeBinAfternoon
	case hour >= 18 && hour < 22:
		return basket.TimeBinEvening
	default:
		return basket.TimeBinNight
	}
}

// QuarterFor labels the calendar quarter
func QuarterFor(quarter int) basket.Quarter {
	switch quarter {
	case 1:
		return basket.QuarterQ1
	case 2:
		return basket.QuarterQ2
	case 3:
		return basket.QuarterQ3
	default:
		return basket.QuarterQ4
	}
}

// Enrich fills the derived context fields of one transaction in place
func (e *Enricher) Enrich(tx *basket.Transaction) {
	ts := tx.Timestamp
	tx.TimeBin = TimeBinFor(ts.Hour())
	if ts.IsWeekend() {
		tx.DayType = basket.DayTypeWeekend
	} else {
		tx.DayType = basket.DayTypeWeekday
	}
	tx.Quarter = QuarterFor(ts.Quarter())
	tx.Festival = e.calendar.MajorFestivalFor(ts.Time())
}

// EnrichAll enriches a batch in place and returns it for chaining
func (e *Enricher) EnrichAll(txs []basket.Transaction) []basket.Transaction {
	for i := range txs {
		e.Enrich(&txs[i])
	}
	return txs
}
