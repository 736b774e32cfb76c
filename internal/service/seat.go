package service

import (
	"github.com/efreitasn/seatswap/internal/domain"
	"github.com/efreitasn/seatswap/internal/engine"
	"github.com/efreitasn/seatswap/internal/ledger"
)

// MintSeatRequest represents the input for minting a seat.
type MintSeatRequest struct {
	Holder   string
	Course   string
	Section  string
	TimeSlot string
	URI      string
}

// SeatService exposes the administrative ledger surface: minting,
// burning, and seat/holdings lookups.
type SeatService struct {
	ledger     *ledger.Registry
	book       *engine.OrderBook
	webhookSvc *WebhookService
}

// NewSeatService creates a new SeatService with the given dependencies.
func NewSeatService(registry *ledger.Registry, book *engine.OrderBook, webhookSvc *WebhookService) *SeatService {
	return &SeatService{
		ledger:     registry,
		book:       book,
		webhookSvc: webhookSvc,
	}
}

// Mint creates a new seat held by the given participant.
func (s *SeatService) Mint(req MintSeatRequest) (domain.Seat, error) {
	return s.ledger.Mint(req.Holder, req.Course, req.Section, req.TimeSlot, req.URI)
}

// Burn removes a seat and its metadata from the ledger. Any active
// order offering the seat is cancelled first — an order for a burned
// seat could never execute.
func (s *SeatService) Burn(seatID string) error {
	if entry, ok := s.book.OrderForSeat(seatID); ok {
		if removed, ok := s.book.Remove(entry.OrderID); ok {
			s.webhookSvc.DispatchOrderCancelled(removed)
		}
	}
	return s.ledger.Burn(seatID)
}

// Get returns the seat's metadata and current holder.
func (s *SeatService) Get(seatID string) (domain.Seat, error) {
	return s.ledger.Details(seatID)
}

// HoldingsOf returns every seat currently held by the participant.
func (s *SeatService) HoldingsOf(participantID string) []domain.Seat {
	return s.ledger.HoldingsOf(participantID)
}
