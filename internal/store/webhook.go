package store

import (
	"sync"

	"github.com/efreitasn/seatswap/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for webhooks.
// Primary index: webhook_id → webhook.
// Secondary index: participant_id → event → webhook.
type WebhookStore struct {
	mu            sync.RWMutex
	webhooks      map[string]*domain.Webhook            // webhook_id → webhook
	byParticipant map[string]map[string]*domain.Webhook // participant_id → event → webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks:      make(map[string]*domain.Webhook),
		byParticipant: make(map[string]map[string]*domain.Webhook),
	}
}

// Upsert inserts or updates a webhook subscription keyed by
// (participant_id, event). If a subscription already exists for that
// pair, the URL and UpdatedAt are updated (the webhook_id remains
// stable). If the existing URL matches, it is a no-op. Returns true if
// a new subscription was created.
func (s *WebhookStore) Upsert(w *domain.Webhook) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if events, ok := s.byParticipant[w.ParticipantID]; ok {
		if existing, ok := events[w.Event]; ok {
			if existing.URL != w.URL {
				existing.URL = w.URL
				existing.UpdatedAt = w.UpdatedAt
			}
			return false
		}
	}

	// New subscription — add to both indexes.
	s.webhooks[w.WebhookID] = w

	if s.byParticipant[w.ParticipantID] == nil {
		s.byParticipant[w.ParticipantID] = make(map[string]*domain.Webhook)
	}
	s.byParticipant[w.ParticipantID][w.Event] = w

	return true
}

// Get retrieves a webhook by ID. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Get(id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.webhooks[id]
	if !ok {
		return nil, domain.ErrWebhookNotFound
	}
	return w, nil
}

// ListByParticipant returns all webhooks for a participant.
// Returns an empty slice if the participant has no subscriptions.
func (s *WebhookStore) ListByParticipant(participantID string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byParticipant[participantID]
	if len(events) == 0 {
		return []*domain.Webhook{}
	}

	result := make([]*domain.Webhook, 0, len(events))
	for _, w := range events {
		result = append(result, w)
	}
	return result
}

// ListByEvent returns every subscription to the given event, across all
// participants. Used for pass-level signals that have no single
// interested party.
func (s *WebhookStore) ListByEvent(event string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Webhook, 0)
	for _, events := range s.byParticipant {
		if w, ok := events[event]; ok {
			result = append(result, w)
		}
	}
	return result
}

// Delete removes a webhook by ID. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
// Both the primary and secondary indexes are cleaned up.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}

	delete(s.webhooks, id)

	if events, ok := s.byParticipant[w.ParticipantID]; ok {
		delete(events, w.Event)
		if len(events) == 0 {
			delete(s.byParticipant, w.ParticipantID)
		}
	}

	return nil
}

// GetByParticipantEvent returns the webhook for a specific
// participant+event pair, or nil if no subscription exists.
func (s *WebhookStore) GetByParticipantEvent(participantID, event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byParticipant[participantID]
	if events == nil {
		return nil
	}
	return events[event]
}
