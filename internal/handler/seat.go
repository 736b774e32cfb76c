package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/seatswap/internal/domain"
	"github.com/efreitasn/seatswap/internal/service"
)

// SeatHandler handles HTTP requests for the seat ledger surface.
type SeatHandler struct {
	seatSvc *service.SeatService
}

// NewSeatHandler creates a new SeatHandler.
func NewSeatHandler(seatSvc *service.SeatService) *SeatHandler {
	return &SeatHandler{seatSvc: seatSvc}
}

// mintSeatRequest is the JSON request body for POST /seats.
type mintSeatRequest struct {
	Holder   string `json:"holder"`
	Course   string `json:"course"`
	Section  string `json:"section"`
	TimeSlot string `json:"time_slot"`
	URI      string `json:"uri"`
}

// seatResponse is the JSON representation of a seat.
type seatResponse struct {
	SeatID   string `json:"seat_id"`
	Course   string `json:"course"`
	Section  string `json:"section"`
	TimeSlot string `json:"time_slot"`
	URI      string `json:"uri,omitempty"`
	Holder   string `json:"holder"`
}

func toSeatResponse(s domain.Seat) seatResponse {
	return seatResponse{
		SeatID:   s.SeatID,
		Course:   s.Course,
		Section:  s.Section,
		TimeSlot: s.TimeSlot,
		URI:      s.URI,
		Holder:   s.Holder,
	}
}

// Mint handles POST /seats. Administrative role only.
func (h *SeatHandler) Mint(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		writeDomainError(w, domain.ErrNotAuthorized)
		return
	}

	var req mintSeatRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	seat, err := h.seatSvc.Mint(service.MintSeatRequest{
		Holder:   req.Holder,
		Course:   req.Course,
		Section:  req.Section,
		TimeSlot: req.TimeSlot,
		URI:      req.URI,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toSeatResponse(seat))
}

// Burn handles DELETE /seats/{seat_id}. Administrative role only.
func (h *SeatHandler) Burn(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		writeDomainError(w, domain.ErrNotAuthorized)
		return
	}

	seatID := chi.URLParam(r, "seat_id")
	if err := h.seatSvc.Burn(seatID); err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"seat_id": seatID, "status": "burned"})
}

// Get handles GET /seats/{seat_id}.
func (h *SeatHandler) Get(w http.ResponseWriter, r *http.Request) {
	seat, err := h.seatSvc.Get(chi.URLParam(r, "seat_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toSeatResponse(seat))
}

// Holdings handles GET /participants/{participant_id}/seats.
func (h *SeatHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	seats := h.seatSvc.HoldingsOf(chi.URLParam(r, "participant_id"))

	resp := make([]seatResponse, 0, len(seats))
	for _, s := range seats {
		resp = append(resp, toSeatResponse(s))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"seats": resp})
}
