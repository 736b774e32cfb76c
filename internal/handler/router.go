package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/seatswap/internal/service"
)

// NewRouter creates a chi router with all routes registered, request logging,
// Content-Type validation, and admin-role resolution middleware.
func NewRouter(
	seatSvc *service.SeatService,
	orderSvc *service.OrderService,
	swapSvc *service.SwapService,
	webhookSvc *service.WebhookService,
	adminToken string,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)
	r.Use(adminRole(adminToken))

	// Create handlers.
	seatH := NewSeatHandler(seatSvc)
	orderH := NewOrderHandler(orderSvc)
	swapH := NewSwapHandler(swapSvc)
	webhookH := NewWebhookHandler(webhookSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Seat ledger routes.
	r.Post("/seats", seatH.Mint)
	r.Get("/seats/{seat_id}", seatH.Get)
	r.Delete("/seats/{seat_id}", seatH.Burn)
	r.Get("/participants/{participant_id}/seats", seatH.Holdings)

	// Order routes.
	r.Post("/orders", orderH.Submit)
	r.Get("/orders", orderH.List)
	r.Delete("/orders/{order_id}", orderH.Cancel)
	r.Delete("/orders", orderH.CancelAll)

	// Matching-pass routes.
	r.Post("/swaps/two-way", swapH.RunTwoWay)
	r.Post("/swaps/three-way", swapH.RunThreeWay)
	r.Get("/swaps", swapH.History)

	// Webhook routes.
	r.Post("/webhooks", webhookH.Upsert)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	return r
}

// participantID returns the caller identity from the X-Participant-Id
// header, or "" when absent.
func participantID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Participant-Id"))
}

// adminCtxKey marks requests authenticated as the administrative role.
type adminCtxKey struct{}

// adminRole returns middleware that resolves the administrative role
// from the Authorization header: a bearer token matching the configured
// admin token. An empty configured token disables the role entirely.
func adminRole(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				auth := r.Header.Get("Authorization")
				if bearer, ok := strings.CutPrefix(auth, "Bearer "); ok {
					if subtle.ConstantTimeCompare([]byte(bearer), []byte(token)) == 1 {
						r = r.WithContext(context.WithValue(r.Context(), adminCtxKey{}, true))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isAdmin reports whether the request carries the administrative role.
func isAdmin(r *http.Request) bool {
	admin, _ := r.Context().Value(adminCtxKey{}).(bool)
	return admin
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests with a body. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) && r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
