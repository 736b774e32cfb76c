package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/seatswap/internal/domain"
	"github.com/efreitasn/seatswap/internal/engine"
	"github.com/efreitasn/seatswap/internal/store"
)

// Valid webhook event types.
var validWebhookEvents = map[string]bool{
	domain.EventOrderSubmitted:      true,
	domain.EventOrderCancelled:      true,
	domain.EventAllOrdersCancelled:  true,
	domain.EventTwoWayCompleted:     true,
	domain.EventThreeWayCompleted:   true,
	domain.EventNoThreeWaySwapFound: true,
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	ParticipantID string
	URL           string
	Events        []string
}

// WebhookService handles webhook CRUD and event dispatch.
type WebhookService struct {
	store  *store.WebhookStore
	client *http.Client
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(webhookStore *store.WebhookStore, webhookTimeout time.Duration) *WebhookService {
	return &WebhookService{
		store: webhookStore,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
	}
}

// Upsert validates the request and creates or updates webhook subscriptions.
// Returns the resulting webhooks, whether any new subscriptions were created,
// and any error.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	if req.ParticipantID == "" {
		return nil, false, &domain.ValidationError{Message: "participant_id is required"}
	}

	// Validate URL.
	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	// Validate events.
	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[string]bool, len(req.Events))
	dedupedEvents := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event,
			}
		}
		if !seen[event] {
			seen[event] = true
			dedupedEvents = append(dedupedEvents, event)
		}
	}

	// Upsert each (participant_id, event) pair.
	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(dedupedEvents))

	for _, event := range dedupedEvents {
		w := &domain.Webhook{
			WebhookID:     uuid.New().String(),
			ParticipantID: req.ParticipantID,
			Event:         event,
			URL:           req.URL,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		created := s.store.Upsert(w)
		if created {
			anyCreated = true
			webhooks = append(webhooks, w)
		} else {
			// Fetch the existing webhook to return it.
			existing := s.store.GetByParticipantEvent(req.ParticipantID, event)
			if existing != nil {
				webhooks = append(webhooks, existing)
			}
		}
	}

	return webhooks, anyCreated, nil
}

// List returns all webhook subscriptions for a participant.
func (s *WebhookService) List(participantID string) ([]*domain.Webhook, error) {
	if participantID == "" {
		return nil, &domain.ValidationError{Message: "participant_id is required"}
	}
	return s.store.ListByParticipant(participantID), nil
}

// Delete removes a webhook subscription by ID.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

// orderEventPayload is the JSON payload for order.submitted and
// order.cancelled webhooks.
type orderEventPayload struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      orderEventData `json:"data"`
}

type orderEventData struct {
	OrderID         string `json:"order_id"`
	SeatID          string `json:"seat_id"`
	OfferedCourse   string `json:"offered_course"`
	RequestedCourse string `json:"requested_course"`
	TimeSlot        string `json:"time_slot"`
	Submitter       string `json:"submitter"`
}

// allCancelledPayload is the JSON payload for orders.cancelled_all webhooks.
type allCancelledPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		CancelledCount int `json:"cancelled_count"`
	} `json:"data"`
}

// swapPassPayload is the JSON payload for the pass-completion webhooks:
// swap.two_way.completed, swap.three_way.completed, swap.three_way.none.
// The cycle list may be empty for the two-way completion signal and is
// always empty for swap.three_way.none.
type swapPassPayload struct {
	Event     string       `json:"event"`
	Timestamp string       `json:"timestamp"`
	Data      swapPassData `json:"data"`
}

type swapPassData struct {
	Algorithm string         `json:"algorithm"`
	Cycles    []cyclePayload `json:"cycles"`
}

type cyclePayload struct {
	SwapID string       `json:"swap_id"`
	Size   int          `json:"size"`
	Legs   []legPayload `json:"legs"`
}

type legPayload struct {
	OrderID  string `json:"order_id"`
	SeatID   string `json:"seat_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Course   string `json:"course"`
	TimeSlot string `json:"time_slot"`
}

// DispatchOrderSubmitted notifies the submitter's order.submitted
// subscription. Fire-and-forget — errors are silently ignored.
func (s *WebhookService) DispatchOrderSubmitted(entry engine.BookEntry) {
	s.dispatchOrderEvent(domain.EventOrderSubmitted, entry)
}

// DispatchOrderCancelled notifies the submitter's order.cancelled
// subscription. Fire-and-forget.
func (s *WebhookService) DispatchOrderCancelled(entry engine.BookEntry) {
	s.dispatchOrderEvent(domain.EventOrderCancelled, entry)
}

func (s *WebhookService) dispatchOrderEvent(event string, entry engine.BookEntry) {
	wh := s.store.GetByParticipantEvent(entry.Submitter, event)
	if wh == nil {
		return
	}

	payload := orderEventPayload{
		Event:     event,
		Timestamp: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: orderEventData{
			OrderID:         entry.OrderID,
			SeatID:          entry.SeatID,
			OfferedCourse:   entry.OfferedCourse,
			RequestedCourse: entry.RequestedCourse,
			TimeSlot:        entry.TimeSlot,
			Submitter:       entry.Submitter,
		},
	}

	go s.deliver(wh, event, payload)
}

// DispatchAllOrdersCancelled notifies every orders.cancelled_all
// subscriber of an administrative bulk cancel. Fire-and-forget.
func (s *WebhookService) DispatchAllOrdersCancelled(count int) {
	subs := s.store.ListByEvent(domain.EventAllOrdersCancelled)
	if len(subs) == 0 {
		return
	}

	payload := allCancelledPayload{
		Event:     domain.EventAllOrdersCancelled,
		Timestamp: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
	}
	payload.Data.CancelledCount = count

	for _, wh := range subs {
		go s.deliver(wh, domain.EventAllOrdersCancelled, payload)
	}
}

// DispatchPassCompleted notifies every subscriber of the given
// pass-completion event, carrying the executed cycles (possibly none).
// Fire-and-forget.
func (s *WebhookService) DispatchPassCompleted(event string, algorithm domain.SwapAlgorithm, cycles []domain.SwapCycle) {
	subs := s.store.ListByEvent(event)
	if len(subs) == 0 {
		return
	}

	data := swapPassData{
		Algorithm: string(algorithm),
		Cycles:    make([]cyclePayload, 0, len(cycles)),
	}
	for _, c := range cycles {
		cp := cyclePayload{
			SwapID: c.SwapID,
			Size:   c.Size,
			Legs:   make([]legPayload, 0, len(c.Legs)),
		}
		for _, leg := range c.Legs {
			cp.Legs = append(cp.Legs, legPayload{
				OrderID:  leg.OrderID,
				SeatID:   leg.SeatID,
				From:     leg.From,
				To:       leg.To,
				Course:   leg.Course,
				TimeSlot: leg.TimeSlot,
			})
		}
		data.Cycles = append(data.Cycles, cp)
	}

	payload := swapPassPayload{
		Event:     event,
		Timestamp: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Data:      data,
	}

	for _, wh := range subs {
		go s.deliver(wh, event, payload)
	}
}

// deliver sends the webhook payload via HTTP POST with the required headers.
// Errors are silently ignored (fire-and-forget).
func (s *WebhookService) deliver(wh *domain.Webhook, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", eventType)

	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
