package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/seatswap/internal/domain"
	"github.com/efreitasn/seatswap/internal/engine"
	"github.com/efreitasn/seatswap/internal/ledger"
)

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	SeatID          string
	RequestedCourse string
	Submitter       string
}

// ActiveOrder is the denormalized view of one active order returned by
// ListActive: book fields joined with live seat metadata.
type ActiveOrder struct {
	OrderID         string
	SeatID          string
	OfferedCourse   string
	Section         string
	RequestedCourse string
	TimeSlot        string
	Submitter       string
	CreatedAt       time.Time
}

// OrderService handles order submission, cancellation, and listing.
type OrderService struct {
	book       *engine.OrderBook
	ledger     *ledger.Registry
	webhookSvc *WebhookService
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(book *engine.OrderBook, registry *ledger.Registry, webhookSvc *WebhookService) *OrderService {
	return &OrderService{
		book:       book,
		ledger:     registry,
		webhookSvc: webhookSvc,
	}
}

// Submit validates and inserts a new exchange order. The submitter must
// currently hold the offered seat (domain.ErrNotHolder otherwise), and
// the seat must not already have an active order
// (domain.ErrDuplicateOrder). Submission moves no tokens.
func (s *OrderService) Submit(req SubmitOrderRequest) (engine.BookEntry, error) {
	if req.SeatID == "" {
		return engine.BookEntry{}, &domain.ValidationError{Message: "seat_id is required"}
	}
	if req.RequestedCourse == "" {
		return engine.BookEntry{}, &domain.ValidationError{Message: "requested_course is required"}
	}
	if req.Submitter == "" {
		return engine.BookEntry{}, &domain.ValidationError{Message: "submitter is required"}
	}

	seat, err := s.ledger.Details(req.SeatID)
	if err != nil {
		return engine.BookEntry{}, err
	}
	if seat.Holder != req.Submitter {
		return engine.BookEntry{}, domain.ErrNotHolder
	}

	entry := engine.BookEntry{
		OrderID:         uuid.New().String(),
		SeatID:          seat.SeatID,
		OfferedCourse:   seat.Course,
		RequestedCourse: req.RequestedCourse,
		TimeSlot:        seat.TimeSlot,
		Submitter:       req.Submitter,
		CreatedAt:       time.Now(),
	}

	inserted, ok := s.book.Insert(entry)
	if !ok {
		return engine.BookEntry{}, domain.ErrDuplicateOrder
	}

	s.webhookSvc.DispatchOrderSubmitted(inserted)
	return inserted, nil
}

// Cancel removes an active order. The requester must be the order's
// submitter or hold the administrative role.
func (s *OrderService) Cancel(orderID, requester string, admin bool) error {
	entry, ok := s.book.Get(orderID)
	if !ok {
		return domain.ErrOrderNotFound
	}
	if !admin && entry.Submitter != requester {
		return domain.ErrNotAuthorized
	}

	removed, ok := s.book.Remove(orderID)
	if !ok {
		// Consumed or cancelled between the lookup and the removal.
		return domain.ErrOrderNotFound
	}

	s.webhookSvc.DispatchOrderCancelled(removed)
	return nil
}

// CancelAll removes every active order unconditionally. Administrative
// role only.
func (s *OrderService) CancelAll(admin bool) (int, error) {
	if !admin {
		return 0, domain.ErrNotAuthorized
	}

	removed := s.book.RemoveAll()
	s.webhookSvc.DispatchAllOrdersCancelled(len(removed))
	return len(removed), nil
}

// ListActive returns a snapshot of every active order in submission
// order, joined with live seat metadata. Read-only.
func (s *OrderService) ListActive() []ActiveOrder {
	snapshot := s.book.Snapshot()
	orders := make([]ActiveOrder, 0, len(snapshot))
	for _, entry := range snapshot {
		order := ActiveOrder{
			OrderID:         entry.OrderID,
			SeatID:          entry.SeatID,
			OfferedCourse:   entry.OfferedCourse,
			RequestedCourse: entry.RequestedCourse,
			TimeSlot:        entry.TimeSlot,
			Submitter:       entry.Submitter,
			CreatedAt:       entry.CreatedAt,
		}
		// Section lives only on the ledger; tolerate a seat burned
		// after submission.
		if seat, err := s.ledger.Details(entry.SeatID); err == nil {
			order.Section = seat.Section
		}
		orders = append(orders, order)
	}
	return orders
}
