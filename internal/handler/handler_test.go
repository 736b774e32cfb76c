package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/seatswap/internal/engine"
	"github.com/efreitasn/seatswap/internal/ledger"
	"github.com/efreitasn/seatswap/internal/service"
	"github.com/efreitasn/seatswap/internal/store"
)

const testAdminToken = "registrar-secret"

// testEnv bundles all dependencies for handler integration tests.
type testEnv struct {
	router   http.Handler
	registry *ledger.Registry
	book     *engine.OrderBook
}

func newTestEnv() *testEnv {
	registry := ledger.NewRegistry()
	book := engine.NewOrderBook()
	matcher := engine.NewMatcher(book, registry)
	swaps := store.NewSwapStore()

	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), 5*time.Second)
	seatSvc := service.NewSeatService(registry, book, webhookSvc)
	orderSvc := service.NewOrderService(book, registry, webhookSvc)
	swapSvc := service.NewSwapService(matcher, swaps, nil, webhookSvc, nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(seatSvc, orderSvc, swapSvc, webhookSvc, testAdminToken, logger)

	return &testEnv{
		router:   router,
		registry: registry,
		book:     book,
	}
}

// do sends a JSON request. participant sets X-Participant-Id; admin adds
// the bearer token.
func (env *testEnv) do(t *testing.T, method, path, participant string, admin bool, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if participant != "" {
		req.Header.Set("X-Participant-Id", participant)
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// decodeJSON decodes the response body into v.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

// mintSeat mints a seat via the API and returns its seat_id.
func (env *testEnv) mintSeat(t *testing.T, holder, course, timeSlot string) string {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/seats", "", true, map[string]string{
		"holder":    holder,
		"course":    course,
		"section":   "001",
		"time_slot": timeSlot,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("mint failed with status %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		SeatID string `json:"seat_id"`
	}
	decodeJSON(t, rr, &resp)
	return resp.SeatID
}

// submitOrder submits an order via the API and returns its order_id.
func (env *testEnv) submitOrder(t *testing.T, participant, seatID, requestedCourse string) string {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/orders", participant, false, map[string]string{
		"seat_id":          seatID,
		"requested_course": requestedCourse,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit failed with status %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		OrderID string `json:"order_id"`
	}
	decodeJSON(t, rr, &resp)
	return resp.OrderID
}

func TestHealthz(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodGet, "/healthz", "", false, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rr.Code)
	}
}

func TestMintSeat(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/seats", "", true, map[string]string{
		"holder":    "alice",
		"course":    "CS101",
		"section":   "001",
		"time_slot": "MWF-0900",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		SeatID string `json:"seat_id"`
		Course string `json:"course"`
		Holder string `json:"holder"`
	}
	decodeJSON(t, rr, &resp)
	if resp.SeatID != "1" {
		t.Errorf("got seat_id %q, want 1", resp.SeatID)
	}
	if resp.Course != "CS101" || resp.Holder != "alice" {
		t.Errorf("unexpected seat: %+v", resp)
	}
}

func TestMintSeat_RequiresAdmin(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/seats", "alice", false, map[string]string{
		"holder": "alice", "course": "CS101", "section": "001", "time_slot": "MWF-0900",
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want 403", rr.Code)
	}
}

func TestMintSeat_WrongToken(t *testing.T) {
	env := newTestEnv()

	body, _ := json.Marshal(map[string]string{
		"holder": "alice", "course": "CS101", "section": "001", "time_slot": "MWF-0900",
	})
	req := httptest.NewRequest(http.MethodPost, "/seats", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer wrong-token")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want 403", rr.Code)
	}
}

func TestGetSeat(t *testing.T) {
	env := newTestEnv()
	seatID := env.mintSeat(t, "alice", "CS101", "MWF-0900")

	rr := env.do(t, http.MethodGet, "/seats/"+seatID, "", false, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		TimeSlot string `json:"time_slot"`
	}
	decodeJSON(t, rr, &resp)
	if resp.TimeSlot != "MWF-0900" {
		t.Errorf("got time_slot %q, want MWF-0900", resp.TimeSlot)
	}
}

func TestGetSeat_NotFound(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodGet, "/seats/999", "", false, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rr.Code)
	}
}

func TestHoldings(t *testing.T) {
	env := newTestEnv()
	env.mintSeat(t, "alice", "CS101", "MWF-0900")
	env.mintSeat(t, "alice", "MATH200", "TTH-1030")
	env.mintSeat(t, "bob", "PHYS150", "MWF-1400")

	rr := env.do(t, http.MethodGet, "/participants/alice/seats", "", false, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Seats []struct {
			SeatID string `json:"seat_id"`
		} `json:"seats"`
	}
	decodeJSON(t, rr, &resp)
	if len(resp.Seats) != 2 {
		t.Fatalf("got %d seats, want 2", len(resp.Seats))
	}
}

func TestSubmitOrder_HTTP(t *testing.T) {
	env := newTestEnv()
	seatID := env.mintSeat(t, "alice", "CS101", "MWF-0900")

	rr := env.do(t, http.MethodPost, "/orders", "alice", false, map[string]string{
		"seat_id":          seatID,
		"requested_course": "MATH200",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		OrderID       string `json:"order_id"`
		OfferedCourse string `json:"offered_course"`
	}
	decodeJSON(t, rr, &resp)
	if resp.OrderID == "" {
		t.Error("expected non-empty order_id")
	}
	if resp.OfferedCourse != "CS101" {
		t.Errorf("got offered_course %q, want CS101", resp.OfferedCourse)
	}
}

func TestSubmitOrder_MissingParticipantHeader(t *testing.T) {
	env := newTestEnv()
	seatID := env.mintSeat(t, "alice", "CS101", "MWF-0900")

	rr := env.do(t, http.MethodPost, "/orders", "", false, map[string]string{
		"seat_id":          seatID,
		"requested_course": "MATH200",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rr.Code)
	}
}

func TestSubmitOrder_NotHolder_HTTP(t *testing.T) {
	env := newTestEnv()
	seatID := env.mintSeat(t, "alice", "CS101", "MWF-0900")

	rr := env.do(t, http.MethodPost, "/orders", "bob", false, map[string]string{
		"seat_id":          seatID,
		"requested_course": "MATH200",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("got status %d, want 409", rr.Code)
	}

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Error != "not_holder" {
		t.Errorf("got error code %q, want not_holder", resp.Error)
	}
}

func TestSubmitOrder_UnknownField(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"seat_id":"1","bogus":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Participant-Id", "alice")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rr.Code)
	}
}

func TestSubmitOrder_WrongContentType(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("seat_id=1"))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Participant-Id", "alice")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rr.Code)
	}
}

func TestListOrders(t *testing.T) {
	env := newTestEnv()
	seatID := env.mintSeat(t, "alice", "CS101", "MWF-0900")
	env.submitOrder(t, "alice", seatID, "MATH200")

	rr := env.do(t, http.MethodGet, "/orders", "", false, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Orders []struct {
			SeatID  string `json:"seat_id"`
			Section string `json:"section"`
		} `json:"orders"`
	}
	decodeJSON(t, rr, &resp)
	if len(resp.Orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(resp.Orders))
	}
	if resp.Orders[0].Section != "001" {
		t.Errorf("got section %q, want 001", resp.Orders[0].Section)
	}
}

func TestCancelOrder_HTTP(t *testing.T) {
	env := newTestEnv()
	seatID := env.mintSeat(t, "alice", "CS101", "MWF-0900")
	orderID := env.submitOrder(t, "alice", seatID, "MATH200")

	rr := env.do(t, http.MethodDelete, "/orders/"+orderID, "bob", false, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("cancel by non-submitter: got status %d, want 403", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, "/orders/"+orderID, "alice", false, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodDelete, "/orders/"+orderID, "alice", false, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("double cancel: got status %d, want 404", rr.Code)
	}
}

func TestCancelAllOrders_HTTP(t *testing.T) {
	env := newTestEnv()
	s1 := env.mintSeat(t, "alice", "CS101", "MWF-0900")
	s2 := env.mintSeat(t, "bob", "MATH200", "TTH-1030")
	env.submitOrder(t, "alice", s1, "MATH200")
	env.submitOrder(t, "bob", s2, "CS101")

	rr := env.do(t, http.MethodDelete, "/orders", "alice", false, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("non-admin cancel-all: got status %d, want 403", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, "/orders", "", true, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		CancelledCount int `json:"cancelled_count"`
	}
	decodeJSON(t, rr, &resp)
	if resp.CancelledCount != 2 {
		t.Errorf("got cancelled_count %d, want 2", resp.CancelledCount)
	}
}

func TestTwoWayPass_HTTP(t *testing.T) {
	env := newTestEnv()
	s1 := env.mintSeat(t, "alice", "CS101", "MWF-0900")
	s2 := env.mintSeat(t, "bob", "MATH200", "TTH-1030")
	env.submitOrder(t, "alice", s1, "MATH200")
	env.submitOrder(t, "bob", s2, "CS101")

	rr := env.do(t, http.MethodPost, "/swaps/two-way", "", true, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Event  string `json:"event"`
		Cycles []struct {
			Size int `json:"size"`
			Legs []struct {
				SeatID string `json:"seat_id"`
				To     string `json:"to"`
			} `json:"legs"`
		} `json:"cycles"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Event != "swap.two_way.completed" {
		t.Errorf("got event %q, want swap.two_way.completed", resp.Event)
	}
	if len(resp.Cycles) != 1 || resp.Cycles[0].Size != 2 {
		t.Fatalf("unexpected cycles: %+v", resp.Cycles)
	}

	// Seats actually changed hands.
	if holder, _ := env.registry.CurrentHolder(s1); holder != "bob" {
		t.Errorf("seat %s held by %s, want bob", s1, holder)
	}
	if holder, _ := env.registry.CurrentHolder(s2); holder != "alice" {
		t.Errorf("seat %s held by %s, want alice", s2, holder)
	}
}

func TestTwoWayPass_EmptyStillCompletes(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/swaps/two-way", "", true, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Event  string            `json:"event"`
		Cycles []json.RawMessage `json:"cycles"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Event != "swap.two_way.completed" {
		t.Errorf("got event %q, want swap.two_way.completed", resp.Event)
	}
	if len(resp.Cycles) != 0 {
		t.Errorf("expected empty cycles, got %d", len(resp.Cycles))
	}
}

func TestThreeWayPass_HTTP(t *testing.T) {
	for _, algorithm := range []string{"brute", "adjacent"} {
		t.Run("algorithm="+algorithm, func(t *testing.T) {
			env := newTestEnv()
			s1 := env.mintSeat(t, "alice", "CS101", "MWF-0900")
			s2 := env.mintSeat(t, "bob", "MATH200", "TTH-1030")
			s3 := env.mintSeat(t, "carol", "PHYS150", "MWF-1400")
			env.submitOrder(t, "alice", s1, "MATH200")
			env.submitOrder(t, "bob", s2, "PHYS150")
			env.submitOrder(t, "carol", s3, "CS101")

			rr := env.do(t, http.MethodPost, "/swaps/three-way?algorithm="+algorithm, "", true, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
			}

			var resp struct {
				Event     string `json:"event"`
				Algorithm string `json:"algorithm"`
				Cycles    []struct {
					Size int `json:"size"`
				} `json:"cycles"`
			}
			decodeJSON(t, rr, &resp)
			if resp.Event != "swap.three_way.completed" {
				t.Errorf("got event %q, want swap.three_way.completed", resp.Event)
			}
			if resp.Algorithm != algorithm {
				t.Errorf("got algorithm %q, want %q", resp.Algorithm, algorithm)
			}
			if len(resp.Cycles) != 1 || resp.Cycles[0].Size != 3 {
				t.Fatalf("unexpected cycles: %+v", resp.Cycles)
			}

			// The cycle rotates each seat to the participant who asked for it.
			if holder, _ := env.registry.CurrentHolder(s1); holder != "carol" {
				t.Errorf("seat %s held by %s, want carol", s1, holder)
			}
			if holder, _ := env.registry.CurrentHolder(s2); holder != "alice" {
				t.Errorf("seat %s held by %s, want alice", s2, holder)
			}
			if holder, _ := env.registry.CurrentHolder(s3); holder != "bob" {
				t.Errorf("seat %s held by %s, want bob", s3, holder)
			}
		})
	}
}

func TestThreeWayPass_NoMatch(t *testing.T) {
	env := newTestEnv()
	s1 := env.mintSeat(t, "alice", "CS101", "MWF-0900")
	env.submitOrder(t, "alice", s1, "MATH200")

	rr := env.do(t, http.MethodPost, "/swaps/three-way", "", true, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Event string `json:"event"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Event != "swap.three_way.none" {
		t.Errorf("got event %q, want swap.three_way.none", resp.Event)
	}
}

func TestThreeWayPass_UnknownAlgorithm(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/swaps/three-way?algorithm=quantum", "", true, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rr.Code)
	}
}

func TestSwapPass_RequiresAdmin(t *testing.T) {
	env := newTestEnv()

	for _, path := range []string{"/swaps/two-way", "/swaps/three-way"} {
		rr := env.do(t, http.MethodPost, path, "alice", false, nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s: got status %d, want 403", path, rr.Code)
		}
	}
}

func TestSwapHistory_HTTP(t *testing.T) {
	env := newTestEnv()
	s1 := env.mintSeat(t, "alice", "CS101", "MWF-0900")
	s2 := env.mintSeat(t, "bob", "MATH200", "TTH-1030")
	env.submitOrder(t, "alice", s1, "MATH200")
	env.submitOrder(t, "bob", s2, "CS101")
	env.do(t, http.MethodPost, "/swaps/two-way", "", true, nil)

	rr := env.do(t, http.MethodGet, "/swaps", "", false, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Swaps []struct {
			SwapID string `json:"swap_id"`
			Size   int    `json:"size"`
		} `json:"swaps"`
	}
	decodeJSON(t, rr, &resp)
	if len(resp.Swaps) != 1 {
		t.Fatalf("got %d swaps, want 1", len(resp.Swaps))
	}
	if resp.Swaps[0].Size != 2 {
		t.Errorf("got size %d, want 2", resp.Swaps[0].Size)
	}
}

func TestWebhookLifecycle_HTTP(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/webhooks", "alice", false, map[string]any{
		"url":    "https://example.com/hook",
		"events": []string{"order.submitted", "swap.two_way.completed"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var created struct {
		Webhooks []struct {
			WebhookID string `json:"webhook_id"`
			Event     string `json:"event"`
		} `json:"webhooks"`
	}
	decodeJSON(t, rr, &created)
	if len(created.Webhooks) != 2 {
		t.Fatalf("got %d webhooks, want 2", len(created.Webhooks))
	}

	rr = env.do(t, http.MethodGet, "/webhooks", "alice", false, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: got status %d", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, "/webhooks/"+created.Webhooks[0].WebhookID, "alice", false, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got status %d, want 204", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, "/webhooks/"+created.Webhooks[0].WebhookID, "alice", false, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("double delete: got status %d, want 404", rr.Code)
	}
}

func TestWebhookUpsert_InvalidURL(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/webhooks", "alice", false, map[string]any{
		"url":    "http://insecure.example.com/hook",
		"events": []string{"order.submitted"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rr.Code)
	}
}

func TestWebhookUpsert_UnknownEvent(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/webhooks", "alice", false, map[string]any{
		"url":    "https://example.com/hook",
		"events": []string{"order.teleported"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rr.Code)
	}
}
