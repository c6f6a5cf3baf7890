package utils

import (
	"sync"
	"time"

	"market-rotator/src/logger"
	"market-rotator/src/models"

	"github.com/scmhub/calendar"
)

// -----------------------------------------------------------------------------
// SessionTracker answers whether the venue behind a rotation item is currently
// trading. Crypto never closes; FX runs around the clock on weekdays;
// commodities and indices follow their exchange calendar (scmhub/calendar,
// ISO 10383 MIC codes).
// -----------------------------------------------------------------------------

type SessionTracker struct {
	calendars map[string]*calendar.Calendar // MIC -> calendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewSessionTracker(l *logger.Logger) *SessionTracker {
	return &SessionTracker{
		calendars: make(map[string]*calendar.Calendar),
		Logger:    l,
	}
}

// -----------------------------------------------------------------------------

// micForCategory maps an item category to the exchange calendar that best
// represents its trading session.
func micForCategory(cat models.Category) string {
	switch cat {
	case models.CategoryCommodity:
		return "xcme"
	case models.CategoryIndex:
		return "xnys"
	}
	return ""
}

// -----------------------------------------------------------------------------

func (st *SessionTracker) getCalendar(mic string) *calendar.Calendar {
	st.mu.RLock()
	cal, ok := st.calendars[mic]
	st.mu.RUnlock()
	if ok {
		return cal
	}

	cal = calendar.GetCalendar(mic)
	if cal == nil {
		// Fallback to xnys if not found
		cal = calendar.GetCalendar("xnys")
	}
	if cal == nil {
		st.Logger.Warning("No calendar for MIC '%s' and fallback 'xnys' unavailable; treating session as always open", mic)
		return nil
	}

	st.mu.Lock()
	st.calendars[mic] = cal
	st.mu.Unlock()
	return cal
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the session backing the given category is trading
// at time t.
func (st *SessionTracker) IsOpen(cat models.Category, t time.Time) bool {
	switch cat {
	case models.CategoryCrypto:
		return true
	case models.CategoryCurrency:
		// Spot FX trades continuously Monday through Friday.
		wd := t.UTC().Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}

	mic := micForCategory(cat)
	cal := st.getCalendar(mic)
	if cal == nil {
		return true
	}

	loc := cal.Loc
	if loc != nil {
		t = t.In(loc)
	}
	if !cal.IsBusinessDay(t) {
		return false
	}
	return cal.IsOpen(t)
}
