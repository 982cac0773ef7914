package marketdata

import (
	"time"

	"FinSage/internal/domain/models"
)

const (
	openHour, openMin       = 9, 15
	preOpenHour, preOpenMin = 9, 0
	closeHour, closeMin     = 15, 30
)

// Calendar computes NSE session state from wall-clock time. Pure function
// of time, no I/O, never cached.
type Calendar struct {
	loc      *time.Location
	holidays map[string]struct{} // YYYY-MM-DD in exchange-local time
}

// NewCalendar builds a calendar for the given exchange holidays.
func NewCalendar(holidays []string) *Calendar {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	h := make(map[string]struct{}, len(holidays))
	for _, d := range holidays {
		h[d] = struct{}{}
	}
	return &Calendar{loc: loc, holidays: h}
}

// Status reports whether the market is open at now, plus the next
// open/close transition.
func (c *Calendar) Status(now time.Time) models.MarketStatus {
	local := now.In(c.loc)

	st := models.MarketStatus{Now: local}
	switch {
	case !c.tradingDay(local):
		st.State = models.MarketClosed
	case before(local, preOpenHour, preOpenMin):
		st.State = models.MarketClosed
	case before(local, openHour, openMin):
		st.State = models.MarketPreOpen
	case before(local, closeHour, closeMin):
		st.State = models.MarketOpen
		st.Open = true
	default:
		st.State = models.MarketClosed
	}

	if st.Open {
		st.NextEvent = "market_close"
		st.NextTransition = at(local, closeHour, closeMin)
		return st
	}

	st.NextEvent = "market_open"
	if c.tradingDay(local) && before(local, openHour, openMin) {
		st.NextTransition = at(local, openHour, openMin)
		return st
	}
	next := local.AddDate(0, 0, 1)
	for !c.tradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	st.NextTransition = at(next, openHour, openMin)
	return st
}

// State is a convenience for adapters normalizing fetched quotes.
func (c *Calendar) State(now time.Time) models.MarketState {
	return c.Status(now).State
}

func (c *Calendar) tradingDay(t time.Time) bool {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.holidays[t.Format("2006-01-02")]
	return !holiday
}

func before(t time.Time, hour, min int) bool {
	return t.Hour() < hour || (t.Hour() == hour && t.Minute() < min)
}

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
}
