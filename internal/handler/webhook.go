package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/seatswap/internal/domain"
	"github.com/efreitasn/seatswap/internal/service"
)

// WebhookHandler handles HTTP requests for webhook endpoints.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// upsertWebhookRequest is the JSON request body for POST /webhooks.
type upsertWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// webhookResponse is the JSON representation of a webhook subscription.
type webhookResponse struct {
	WebhookID     string `json:"webhook_id"`
	ParticipantID string `json:"participant_id"`
	Event         string `json:"event"`
	URL           string `json:"url"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toWebhookResponse(w *domain.Webhook) webhookResponse {
	return webhookResponse{
		WebhookID:     w.WebhookID,
		ParticipantID: w.ParticipantID,
		Event:         w.Event,
		URL:           w.URL,
		CreatedAt:     w.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     w.UpdatedAt.Format(time.RFC3339),
	}
}

// Upsert handles POST /webhooks.
func (h *WebhookHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	participant := participantID(r)
	if participant == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "X-Participant-Id header is required")
		return
	}

	var req upsertWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	webhooks, anyCreated, err := h.webhookSvc.Upsert(service.UpsertWebhookRequest{
		ParticipantID: participant,
		URL:           req.URL,
		Events:        req.Events,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if anyCreated {
		status = http.StatusCreated
	}

	resp := make([]webhookResponse, 0, len(webhooks))
	for _, wh := range webhooks {
		resp = append(resp, toWebhookResponse(wh))
	}
	WriteJSON(w, status, map[string]any{"webhooks": resp})
}

// List handles GET /webhooks.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	participant := participantID(r)
	if participant == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "X-Participant-Id header is required")
		return
	}

	webhooks, err := h.webhookSvc.List(participant)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]webhookResponse, 0, len(webhooks))
	for _, wh := range webhooks {
		resp = append(resp, toWebhookResponse(wh))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"webhooks": resp})
}

// Delete handles DELETE /webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.webhookSvc.Delete(chi.URLParam(r, "webhook_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
