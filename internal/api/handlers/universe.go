package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/internal/universe"
	"github.com/wonny/refdata/pkg/logger"
)

// UniverseOpener opens universes by short name.
type UniverseOpener interface {
	Open(ctx context.Context, name string) (universe.Universe, error)
}

// UniverseHandler serves universe membership and weights
// ⭐ SSOT: 유니버스 API 핸들러는 이 구조체에서만
type UniverseHandler struct {
	universes UniverseOpener
	names     func() []string
	logger    *logger.Logger
	now       func() time.Time
}

// NewUniverseHandler creates a new universe handler
func NewUniverseHandler(reg *universe.Registry, log *logger.Logger) *UniverseHandler {
	return &UniverseHandler{
		universes: reg,
		names:     reg.Catalog().Names,
		logger:    logger.OrNop(log),
		now:       time.Now,
	}
}

// MembersResponse is a universe member list
type MembersResponse struct {
	Universe string   `json:"universe"`
	Date     string   `json:"date,omitempty"`
	Count    int      `json:"count"`
	Members  []string `json:"members"`
}

// WeightsResponse is a composite weight table
type WeightsResponse struct {
	Universe string             `json:"universe"`
	Date     string             `json:"date"`
	Weights  map[string]float64 `json:"weights"`
}

// List returns the known universe names
// GET /api/universes
func (h *UniverseHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"universes": h.names(),
	})
}

// Members returns the member set on a date
// GET /api/universes/{name}/members?date=2020-05-31
func (h *UniverseHandler) Members(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	date, err := queryDate(r, h.now)
	if err != nil {
		respondKind(w, err)
		return
	}

	u, err := h.universes.Open(r.Context(), name)
	if err != nil {
		h.fail(w, err, name, "Failed to open universe")
		return
	}
	set, err := u.MemberSet(date)
	if err != nil {
		h.fail(w, err, name, "Failed to resolve members")
		return
	}

	respondJSON(w, http.StatusOK, MembersResponse{
		Universe: name,
		Date:     isoDate(date),
		Count:    set.Len(),
		Members:  set.Sorted(),
	})
}

// Weights returns fractional constituent weights on a date
// GET /api/universes/{name}/weights?date=2020-05-31
func (h *UniverseHandler) Weights(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	date, err := queryDate(r, h.now)
	if err != nil {
		respondKind(w, err)
		return
	}

	u, err := h.universes.Open(r.Context(), name)
	if err != nil {
		h.fail(w, err, name, "Failed to open universe")
		return
	}
	composite, ok := u.(universe.Composite)
	if !ok {
		respondKind(w, contracts.Configuration("weights", "universe %q has no weights", name))
		return
	}
	weights, err := composite.CompositeWeights(date)
	if err != nil {
		h.fail(w, err, name, "Failed to resolve weights")
		return
	}

	respondJSON(w, http.StatusOK, WeightsResponse{Universe: name, Date: isoDate(date), Weights: weights})
}

// Ever returns every security that was ever a member
// GET /api/universes/{name}/ever
func (h *UniverseHandler) Ever(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	u, err := h.universes.Open(r.Context(), name)
	if err != nil {
		h.fail(w, err, name, "Failed to open universe")
		return
	}
	ever := u.EverSeen()
	respondJSON(w, http.StatusOK, MembersResponse{Universe: name, Count: ever.Len(), Members: ever.Sorted()})
}

func (h *UniverseHandler) fail(w http.ResponseWriter, err error, name, msg string) {
	h.logger.WithError(err).WithField("universe", name).Warn(msg)
	respondKind(w, err)
}
