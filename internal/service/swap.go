package service

import (
	"context"
	"log/slog"

	"github.com/efreitasn/seatswap/internal/domain"
	"github.com/efreitasn/seatswap/internal/engine"
	"github.com/efreitasn/seatswap/internal/store"
)

// SwapService runs matching passes and fans the outcome out to the
// swap history, the optional SQLite archive, webhook subscribers, and
// the optional message queue.
type SwapService struct {
	matcher    *engine.Matcher
	swaps      *store.SwapStore
	history    *store.HistoryStore // nil when archiving is disabled
	webhookSvc *WebhookService
	publisher  *QueuePublisher // nil when queue publishing is disabled
}

// NewSwapService creates a new SwapService. history and publisher may
// be nil to disable archiving and queue publishing respectively.
func NewSwapService(
	matcher *engine.Matcher,
	swaps *store.SwapStore,
	history *store.HistoryStore,
	webhookSvc *WebhookService,
	publisher *QueuePublisher,
) *SwapService {
	return &SwapService{
		matcher:    matcher,
		swaps:      swaps,
		history:    history,
		webhookSvc: webhookSvc,
		publisher:  publisher,
	}
}

// RunTwoWay executes one two-way matching pass. The completion event
// fires even when zero pairs matched, carrying an empty cycle list.
func (s *SwapService) RunTwoWay() *engine.PassResult {
	result := s.matcher.ExecuteTwoWay()
	s.record(result)
	s.webhookSvc.DispatchPassCompleted(domain.EventTwoWayCompleted, result.Algorithm, result.Cycles)
	return result
}

// RunThreeWay executes one three-way matching pass using the named
// algorithm ("brute" or "adjacent"; empty defaults to adjacent). A pass
// that executes zero cycles emits the explicit no-match signal — a
// normal outcome, not an error.
func (s *SwapService) RunThreeWay(algorithm string) (*engine.PassResult, error) {
	var result *engine.PassResult
	switch algorithm {
	case "brute":
		result = s.matcher.ExecuteThreeWayBrute()
	case "adjacent", "":
		result = s.matcher.ExecuteThreeWayAdjacent()
	default:
		return nil, domain.ErrUnknownAlgorithm
	}

	s.record(result)
	if result.Matched() {
		s.webhookSvc.DispatchPassCompleted(domain.EventThreeWayCompleted, result.Algorithm, result.Cycles)
	} else {
		s.webhookSvc.DispatchPassCompleted(domain.EventNoThreeWaySwapFound, result.Algorithm, nil)
	}
	return result, nil
}

// History returns every executed cycle in execution order.
func (s *SwapService) History() []domain.SwapCycle {
	return s.swaps.List()
}

// record appends executed cycles to the in-memory history, archives
// them, and publishes queue events. Archive and publish failures are
// logged, never propagated: the transfers have already happened.
func (s *SwapService) record(result *engine.PassResult) {
	for _, inc := range result.Inconsistencies {
		slog.Warn("book/ledger inconsistency during pass",
			slog.String("algorithm", string(result.Algorithm)),
			slog.String("detail", inc))
	}

	for _, cycle := range result.Cycles {
		s.swaps.Append(cycle)

		if s.history != nil {
			if err := s.history.Archive(cycle); err != nil {
				slog.Error("failed to archive swap",
					slog.String("swap_id", cycle.SwapID),
					slog.String("error", err.Error()))
			}
		}

		if s.publisher != nil {
			go func(c domain.SwapCycle) {
				_ = s.publisher.PublishSwapExecuted(context.Background(), c)
			}(cycle)
		}
	}
}
