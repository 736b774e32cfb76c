package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/seatswap/internal/domain"
	"github.com/efreitasn/seatswap/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	SeatID          string `json:"seat_id"`
	RequestedCourse string `json:"requested_course"`
}

// orderResponse is the JSON representation of an active order.
type orderResponse struct {
	OrderID         string `json:"order_id"`
	SeatID          string `json:"seat_id"`
	OfferedCourse   string `json:"offered_course"`
	Section         string `json:"section,omitempty"`
	RequestedCourse string `json:"requested_course"`
	TimeSlot        string `json:"time_slot"`
	Submitter       string `json:"submitter"`
	CreatedAt       string `json:"created_at"`
}

// Submit handles POST /orders.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	submitter := participantID(r)
	if submitter == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "X-Participant-Id header is required")
		return
	}

	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	entry, err := h.orderSvc.Submit(service.SubmitOrderRequest{
		SeatID:          req.SeatID,
		RequestedCourse: req.RequestedCourse,
		Submitter:       submitter,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, orderResponse{
		OrderID:         entry.OrderID,
		SeatID:          entry.SeatID,
		OfferedCourse:   entry.OfferedCourse,
		RequestedCourse: entry.RequestedCourse,
		TimeSlot:        entry.TimeSlot,
		Submitter:       entry.Submitter,
		CreatedAt:       entry.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	active := h.orderSvc.ListActive()

	orders := make([]orderResponse, 0, len(active))
	for _, o := range active {
		orders = append(orders, orderResponse{
			OrderID:         o.OrderID,
			SeatID:          o.SeatID,
			OfferedCourse:   o.OfferedCourse,
			Section:         o.Section,
			RequestedCourse: o.RequestedCourse,
			TimeSlot:        o.TimeSlot,
			Submitter:       o.Submitter,
			CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// Cancel handles DELETE /orders/{order_id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	requester := participantID(r)
	admin := isAdmin(r)

	if requester == "" && !admin {
		WriteError(w, http.StatusBadRequest, "invalid_request", "X-Participant-Id header is required")
		return
	}

	if err := h.orderSvc.Cancel(orderID, requester, admin); err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": "cancelled"})
}

// CancelAll handles DELETE /orders. Administrative role only.
func (h *OrderHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.orderSvc.CancelAll(isAdmin(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int{"cancelled_count": count})
}

// writeDomainError maps domain sentinel errors and validation errors to
// HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Message)
	case errors.Is(err, domain.ErrNotAuthorized):
		WriteError(w, http.StatusForbidden, "not_authorized", "requester is not allowed to perform this operation")
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", "no active order with that ID")
	case errors.Is(err, domain.ErrSeatNotFound):
		WriteError(w, http.StatusNotFound, "seat_not_found", "no seat with that ID")
	case errors.Is(err, domain.ErrWebhookNotFound):
		WriteError(w, http.StatusNotFound, "webhook_not_found", "no webhook with that ID")
	case errors.Is(err, domain.ErrNotHolder):
		WriteError(w, http.StatusConflict, "not_holder", "submitter does not currently hold the offered seat")
	case errors.Is(err, domain.ErrDuplicateOrder):
		WriteError(w, http.StatusConflict, "duplicate_order", "seat already has an active order")
	case errors.Is(err, domain.ErrTransferDenied):
		WriteError(w, http.StatusConflict, "transfer_denied", "holder mismatch at execution time")
	case errors.Is(err, domain.ErrUnknownAlgorithm):
		WriteError(w, http.StatusBadRequest, "unknown_algorithm", "algorithm must be brute or adjacent")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
