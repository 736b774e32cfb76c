package handler

import (
	"net/http"
	"time"

	"github.com/efreitasn/seatswap/internal/domain"
	"github.com/efreitasn/seatswap/internal/engine"
	"github.com/efreitasn/seatswap/internal/service"
)

// SwapHandler handles HTTP requests for matching-pass and history endpoints.
type SwapHandler struct {
	swapSvc *service.SwapService
}

// NewSwapHandler creates a new SwapHandler.
func NewSwapHandler(swapSvc *service.SwapService) *SwapHandler {
	return &SwapHandler{swapSvc: swapSvc}
}

// legResponse is one seat movement within a cycle response.
type legResponse struct {
	OrderID  string `json:"order_id"`
	SeatID   string `json:"seat_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Course   string `json:"course"`
	TimeSlot string `json:"time_slot"`
}

// cycleResponse is the JSON representation of one executed cycle.
type cycleResponse struct {
	SwapID     string        `json:"swap_id"`
	Size       int           `json:"size"`
	Algorithm  string        `json:"algorithm"`
	Legs       []legResponse `json:"legs"`
	ExecutedAt string        `json:"executed_at"`
}

// passResponse is the JSON response for a matching pass.
type passResponse struct {
	Event           string          `json:"event"`
	Algorithm       string          `json:"algorithm"`
	Cycles          []cycleResponse `json:"cycles"`
	Inconsistencies []string        `json:"inconsistencies,omitempty"`
}

func toCycleResponse(c domain.SwapCycle) cycleResponse {
	legs := make([]legResponse, 0, len(c.Legs))
	for _, leg := range c.Legs {
		legs = append(legs, legResponse{
			OrderID:  leg.OrderID,
			SeatID:   leg.SeatID,
			From:     leg.From,
			To:       leg.To,
			Course:   leg.Course,
			TimeSlot: leg.TimeSlot,
		})
	}
	return cycleResponse{
		SwapID:     c.SwapID,
		Size:       c.Size,
		Algorithm:  string(c.Algorithm),
		Legs:       legs,
		ExecutedAt: c.ExecutedAt.UTC().Format(time.RFC3339),
	}
}

func toPassResponse(event string, result *engine.PassResult) passResponse {
	cycles := make([]cycleResponse, 0, len(result.Cycles))
	for _, c := range result.Cycles {
		cycles = append(cycles, toCycleResponse(c))
	}
	return passResponse{
		Event:           event,
		Algorithm:       string(result.Algorithm),
		Cycles:          cycles,
		Inconsistencies: result.Inconsistencies,
	}
}

// RunTwoWay handles POST /swaps/two-way. Administrative role only.
// The completion event fires even with zero matches.
func (h *SwapHandler) RunTwoWay(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		writeDomainError(w, domain.ErrNotAuthorized)
		return
	}

	result := h.swapSvc.RunTwoWay()
	WriteJSON(w, http.StatusOK, toPassResponse(domain.EventTwoWayCompleted, result))
}

// RunThreeWay handles POST /swaps/three-way?algorithm=brute|adjacent.
// Administrative role only. Zero executed cycles yields the explicit
// no-match event, not an error.
func (h *SwapHandler) RunThreeWay(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		writeDomainError(w, domain.ErrNotAuthorized)
		return
	}

	result, err := h.swapSvc.RunThreeWay(r.URL.Query().Get("algorithm"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	event := domain.EventThreeWayCompleted
	if !result.Matched() {
		event = domain.EventNoThreeWaySwapFound
	}
	WriteJSON(w, http.StatusOK, toPassResponse(event, result))
}

// History handles GET /swaps.
func (h *SwapHandler) History(w http.ResponseWriter, r *http.Request) {
	cycles := h.swapSvc.History()
	resp := make([]cycleResponse, 0, len(cycles))
	for _, c := range cycles {
		resp = append(resp, toCycleResponse(c))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"swaps": resp})
}
