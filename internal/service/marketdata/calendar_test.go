package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSage/internal/domain/models"
)

func istTime(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	require.NoError(t, err)
	return ts
}

func TestCalendarSessionStates(t *testing.T) {
	cal := NewCalendar(nil)

	cases := []struct {
		name  string
		local string
		state models.MarketState
		open  bool
	}{
		{"before pre open", "2026-09-01 08:30", models.MarketClosed, false},
		{"pre open window", "2026-09-01 09:05", models.MarketPreOpen, false},
		{"opening bell", "2026-09-01 09:15", models.MarketOpen, true},
		{"mid session", "2026-09-01 12:00", models.MarketOpen, true},
		{"last minute", "2026-09-01 15:29", models.MarketOpen, true},
		{"closing bell", "2026-09-01 15:30", models.MarketClosed, false},
		{"evening", "2026-09-01 19:00", models.MarketClosed, false},
		{"saturday", "2026-09-05 12:00", models.MarketClosed, false},
		{"sunday", "2026-09-06 12:00", models.MarketClosed, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := cal.Status(istTime(t, tc.local))
			assert.Equal(t, tc.state, st.State)
			assert.Equal(t, tc.open, st.Open)
		})
	}
}

func TestCalendarNextTransitionWhileOpen(t *testing.T) {
	cal := NewCalendar(nil)
	st := cal.Status(istTime(t, "2026-09-01 12:00"))

	assert.Equal(t, "market_close", st.NextEvent)
	assert.Equal(t, istTime(t, "2026-09-01 15:30"), st.NextTransition)
}

func TestCalendarNextTransitionAfterClose(t *testing.T) {
	cal := NewCalendar(nil)

	// Tuesday evening rolls to Wednesday's open.
	st := cal.Status(istTime(t, "2026-09-01 18:00"))
	assert.Equal(t, "market_open", st.NextEvent)
	assert.Equal(t, istTime(t, "2026-09-02 09:15"), st.NextTransition)

	// Friday evening rolls over the weekend to Monday.
	st = cal.Status(istTime(t, "2026-09-04 18:00"))
	assert.Equal(t, istTime(t, "2026-09-07 09:15"), st.NextTransition)
}

func TestCalendarNextTransitionBeforePreOpen(t *testing.T) {
	cal := NewCalendar(nil)
	st := cal.Status(istTime(t, "2026-09-01 07:00"))

	assert.Equal(t, "market_open", st.NextEvent)
	assert.Equal(t, istTime(t, "2026-09-01 09:15"), st.NextTransition)
}

func TestCalendarHolidaysCloseTheMarket(t *testing.T) {
	cal := NewCalendar([]string{"2026-09-01"})

	st := cal.Status(istTime(t, "2026-09-01 12:00"))
	assert.Equal(t, models.MarketClosed, st.State)
	assert.False(t, st.Open)
	assert.Equal(t, istTime(t, "2026-09-02 09:15"), st.NextTransition)
}

func TestCalendarStateMatchesStatus(t *testing.T) {
	cal := NewCalendar(nil)
	now := istTime(t, "2026-09-01 10:00")
	assert.Equal(t, cal.Status(now).State, cal.State(now))
}
