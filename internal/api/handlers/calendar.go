package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/refdata/pkg/logger"
)

// TradingCalendar answers trading-date arithmetic.
type TradingCalendar interface {
	PrevTradingDate(d time.Time, n int) (time.Time, error)
	NextTradingDate(d time.Time, n int) (time.Time, error)
}

// CalendarHandler serves trading-date lookups
type CalendarHandler struct {
	cal    TradingCalendar
	logger *logger.Logger
	now    func() time.Time
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(cal TradingCalendar, log *logger.Logger) *CalendarHandler {
	return &CalendarHandler{cal: cal, logger: logger.OrNop(log), now: time.Now}
}

// TradingDateResponse is one calendar step
type TradingDateResponse struct {
	Date        string `json:"date"`
	N           int    `json:"n"`
	TradingDate string `json:"trading_date"`
}

// Prev returns the n-th trading date before date
// GET /api/calendar/prev?date=2020-01-06&n=1
func (h *CalendarHandler) Prev(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.cal.PrevTradingDate)
}

// Next returns the n-th trading date after date
// GET /api/calendar/next?date=2020-01-03&n=1
func (h *CalendarHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.cal.NextTradingDate)
}

func (h *CalendarHandler) step(w http.ResponseWriter, r *http.Request, fn func(time.Time, int) (time.Time, error)) {
	date, err := queryDate(r, h.now)
	if err != nil {
		respondKind(w, err)
		return
	}
	n, err := queryCount(r)
	if err != nil {
		respondKind(w, err)
		return
	}

	d, err := fn(date, n)
	if err != nil {
		h.logger.WithError(err).WithField("path", r.URL.Path).Debug("Calendar lookup failed")
		respondKind(w, err)
		return
	}
	respondJSON(w, http.StatusOK, TradingDateResponse{Date: isoDate(date), N: n, TradingDate: isoDate(d)})
}
