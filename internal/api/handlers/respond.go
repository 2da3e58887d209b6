package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/refdata/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondKind maps the error kind to a status code.
func respondKind(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, contracts.ErrDuplicateRecord):
		status = http.StatusConflict
	case errors.Is(err, contracts.ErrConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, contracts.ErrBackend):
		status = http.StatusBadGateway
	}
	respondError(w, status, err.Error())
}

// queryDate reads ?date= (YYYY-MM-DD or YYYYMMDD), defaulting to today.
func queryDate(r *http.Request, now func() time.Time) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return contracts.Day(now()), nil
	}
	d, err := contracts.ParseDate(raw)
	if err != nil {
		return time.Time{}, contracts.Configuration("parse date", "%v", err)
	}
	return d, nil
}

// queryCount reads ?n=, defaulting to 1.
func queryCount(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, contracts.Configuration("parse n", "n must be a positive integer, got %q", raw)
	}
	return n, nil
}

func isoDate(d time.Time) string {
	return contracts.FormatDate(d, contracts.ISODate)
}
