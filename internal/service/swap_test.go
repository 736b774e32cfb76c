package service

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/efreitasn/seatswap/internal/domain"
	"github.com/efreitasn/seatswap/internal/engine"
	"github.com/efreitasn/seatswap/internal/ledger"
	"github.com/efreitasn/seatswap/internal/store"
)

// testSwapEnv bundles all dependencies needed for SwapService tests.
type testSwapEnv struct {
	registry *ledger.Registry
	book     *engine.OrderBook
	swaps    *store.SwapStore
	orderSvc *OrderService
	svc      *SwapService
}

func newTestSwapEnv(t *testing.T, history *store.HistoryStore) *testSwapEnv {
	t.Helper()
	registry := ledger.NewRegistry()
	book := engine.NewOrderBook()
	swaps := store.NewSwapStore()
	whSvc := NewWebhookService(store.NewWebhookStore(), time.Second)
	matcher := engine.NewMatcher(book, registry)
	return &testSwapEnv{
		registry: registry,
		book:     book,
		swaps:    swaps,
		orderSvc: NewOrderService(book, registry, whSvc),
		svc:      NewSwapService(matcher, swaps, history, whSvc, nil),
	}
}

// mintAndSubmit mints a seat for holder and submits an order requesting
// wantCourse for it.
func (env *testSwapEnv) mintAndSubmit(t *testing.T, holder, course, slot, wantCourse string) {
	t.Helper()
	seat, err := env.registry.Mint(holder, course, "001", slot, "")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := env.orderSvc.Submit(SubmitOrderRequest{
		SeatID:          seat.SeatID,
		RequestedCourse: wantCourse,
		Submitter:       holder,
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
}

func TestRunTwoWay_MatchedPair(t *testing.T) {
	env := newTestSwapEnv(t, nil)
	env.mintAndSubmit(t, "alice", "CS101", "MWF-0900", "MATH200")
	env.mintAndSubmit(t, "bob", "MATH200", "TTH-1030", "CS101")

	result := env.svc.RunTwoWay()
	if len(result.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(result.Cycles))
	}
	if result.Cycles[0].Size != 2 {
		t.Errorf("got cycle size %d, want 2", result.Cycles[0].Size)
	}
	if env.book.Len() != 0 {
		t.Errorf("expected empty book after match, got %d orders", env.book.Len())
	}
	if len(env.svc.History()) != 1 {
		t.Errorf("expected 1 cycle in history, got %d", len(env.svc.History()))
	}
}

func TestRunTwoWay_EmptyBook(t *testing.T) {
	env := newTestSwapEnv(t, nil)

	result := env.svc.RunTwoWay()
	if result.Matched() {
		t.Error("expected no matches on empty book")
	}
	if len(env.svc.History()) != 0 {
		t.Error("expected empty history")
	}
}

func TestRunThreeWay_Algorithms(t *testing.T) {
	for _, algorithm := range []string{"brute", "adjacent", ""} {
		t.Run("algorithm="+algorithm, func(t *testing.T) {
			env := newTestSwapEnv(t, nil)
			env.mintAndSubmit(t, "alice", "CS101", "MWF-0900", "MATH200")
			env.mintAndSubmit(t, "bob", "MATH200", "TTH-1030", "PHYS150")
			env.mintAndSubmit(t, "carol", "PHYS150", "MWF-1400", "CS101")

			result, err := env.svc.RunThreeWay(algorithm)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Cycles) != 1 {
				t.Fatalf("expected 1 cycle, got %d", len(result.Cycles))
			}
			if result.Cycles[0].Size != 3 {
				t.Errorf("got cycle size %d, want 3", result.Cycles[0].Size)
			}
			if env.book.Len() != 0 {
				t.Errorf("expected empty book, got %d orders", env.book.Len())
			}
		})
	}
}

func TestRunThreeWay_UnknownAlgorithm(t *testing.T) {
	env := newTestSwapEnv(t, nil)

	_, err := env.svc.RunThreeWay("quantum")
	if !errors.Is(err, domain.ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestRunThreeWay_NoMatchIsNotAnError(t *testing.T) {
	env := newTestSwapEnv(t, nil)
	env.mintAndSubmit(t, "alice", "CS101", "MWF-0900", "MATH200")

	result, err := env.svc.RunThreeWay("adjacent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Matched() {
		t.Error("expected no matches")
	}
	if env.book.Len() != 1 {
		t.Error("unmatched order should stay active")
	}
}

func TestSwapService_HistoryAccumulates(t *testing.T) {
	env := newTestSwapEnv(t, nil)
	env.mintAndSubmit(t, "alice", "CS101", "MWF-0900", "MATH200")
	env.mintAndSubmit(t, "bob", "MATH200", "TTH-1030", "CS101")
	env.svc.RunTwoWay()

	// Second round: the seats changed hands, so swap them back.
	env.mintAndSubmit(t, "alice", "MATH200", "TTH-1030", "CS101")
	env.mintAndSubmit(t, "bob", "CS101", "MWF-0900", "MATH200")
	env.svc.RunTwoWay()

	history := env.svc.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 cycles in history, got %d", len(history))
	}
	if history[0].SwapID == history[1].SwapID {
		t.Error("expected distinct swap IDs")
	}
}

func TestSwapService_ArchivesToSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	history, err := store.NewHistoryStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open history store: %v", err)
	}

	env := newTestSwapEnv(t, history)
	env.mintAndSubmit(t, "alice", "CS101", "MWF-0900", "MATH200")
	env.mintAndSubmit(t, "bob", "MATH200", "TTH-1030", "CS101")
	env.svc.RunTwoWay()

	records, err := history.Recent(10)
	if err != nil {
		t.Fatalf("failed to read archive: %v", err)
	}
	// One row per leg.
	if len(records) != 2 {
		t.Fatalf("expected 2 archived legs, got %d", len(records))
	}
	if records[0].SwapID != records[1].SwapID {
		t.Error("legs of one cycle should share a swap ID")
	}
}
