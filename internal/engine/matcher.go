package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/seatswap/internal/domain"
)

// Ledger is the subset of the seat registry the matcher needs: holder
// lookups for validation and the transfer primitive for execution.
type Ledger interface {
	CurrentHolder(seatID string) (string, error)
	HoldingsOf(holder string) []domain.Seat
	Transfer(seatID, from, to string) error
}

// PassResult is the outcome of one matching pass over a snapshot of the
// book. Zero executed cycles is a normal outcome, not an error.
// Inconsistencies records book/ledger divergence (a seat whose holder
// changed out-of-band since submission); each aborts only its own
// candidate cycle.
type PassResult struct {
	Algorithm       domain.SwapAlgorithm
	Cycles          []domain.SwapCycle
	Inconsistencies []string
}

// Matched reports whether the pass executed at least one cycle.
func (r *PassResult) Matched() bool {
	return len(r.Cycles) > 0
}

// Matcher discovers and executes 2- and 3-party barter cycles against
// the order book and the seat ledger. All passes hold the book lock for
// their entire duration and operate on a snapshot taken at pass start:
// each order participates in at most one executed cycle per pass, and
// orders submitted mid-pass are never seen.
type Matcher struct {
	book   *OrderBook
	ledger Ledger
}

// NewMatcher creates a Matcher over the given book and ledger.
func NewMatcher(book *OrderBook, ledger Ledger) *Matcher {
	return &Matcher{book: book, ledger: ledger}
}

// ExecuteTwoWay scans all unordered pairs of active orders in book
// order and executes every mutually-satisfying, conflict-free pair:
// order i requests the course offered by order j's seat and vice versa.
// Pairing ambiguity resolves by first-come precedence in book order.
// Conflict-rejected pairs remain active for future passes.
func (m *Matcher) ExecuteTwoWay() *PassResult {
	m.book.Lock()
	defer m.book.Unlock()

	snapshot := m.book.snapshotLocked()
	result := &PassResult{Algorithm: domain.AlgorithmTwoWay}
	consumed := make(map[string]bool)

	for i := 0; i < len(snapshot); i++ {
		a := snapshot[i]
		if consumed[a.OrderID] {
			continue
		}
		for j := i + 1; j < len(snapshot); j++ {
			b := snapshot[j]
			if consumed[b.OrderID] {
				continue
			}
			if a.RequestedCourse != b.OfferedCourse || b.RequestedCourse != a.OfferedCourse {
				continue
			}
			if m.settleCycle([]BookEntry{a, b}, domain.AlgorithmTwoWay, consumed, result) {
				break // a is consumed; advance the outer scan
			}
		}
	}
	return result
}

// ExecuteThreeWayBrute enumerates all ordered triples (i, j, k) of
// distinct still-active orders from the pass snapshot, in nested book
// order, and executes every closed conflict-free cycle: i requests j's
// offered course, j requests k's, and k closes the loop back to i's.
// O(n³) triples with an O(1) test each; this is the correctness
// reference for ExecuteThreeWayAdjacent.
func (m *Matcher) ExecuteThreeWayBrute() *PassResult {
	m.book.Lock()
	defer m.book.Unlock()

	snapshot := m.book.snapshotLocked()
	result := &PassResult{Algorithm: domain.AlgorithmBrute}
	consumed := make(map[string]bool)

	for i := 0; i < len(snapshot); i++ {
		a := snapshot[i]
		if consumed[a.OrderID] {
			continue
		}
	scanJ:
		for j := 0; j < len(snapshot); j++ {
			if j == i {
				continue
			}
			b := snapshot[j]
			if consumed[b.OrderID] || a.RequestedCourse != b.OfferedCourse {
				continue
			}
			for k := 0; k < len(snapshot); k++ {
				if k == i || k == j {
					continue
				}
				c := snapshot[k]
				if consumed[c.OrderID] {
					continue
				}
				if b.RequestedCourse != c.OfferedCourse || c.RequestedCourse != a.OfferedCourse {
					continue
				}
				// Rejection leaves the triple active and the scan moves on.
				if m.settleCycle([]BookEntry{a, b, c}, domain.AlgorithmBrute, consumed, result) {
					break scanJ
				}
			}
		}
	}
	return result
}

// ExecuteThreeWayAdjacent produces the identical accepted-cycle set as
// ExecuteThreeWayBrute for any book state, replacing the two inner
// scans with probes of an offered-course index built from the snapshot.
// Index buckets preserve book order, so discovery order — and therefore
// tie-breaking — matches the brute scan exactly. Work drops from O(n³)
// toward O(n·d) for average bucket size d; a book where every order
// shares one label degrades toward the brute bound but stays correct.
func (m *Matcher) ExecuteThreeWayAdjacent() *PassResult {
	m.book.Lock()
	defer m.book.Unlock()

	snapshot := m.book.snapshotLocked()
	result := &PassResult{Algorithm: domain.AlgorithmAdjacent}
	consumed := make(map[string]bool)

	// offered-course label → snapshot indexes, ascending (book order).
	// Multiple seats may advertise the same course label, so buckets
	// hold candidate sets, not single orders.
	byOffered := make(map[string][]int, len(snapshot))
	for idx, entry := range snapshot {
		byOffered[entry.OfferedCourse] = append(byOffered[entry.OfferedCourse], idx)
	}

	for i := 0; i < len(snapshot); i++ {
		a := snapshot[i]
		if consumed[a.OrderID] {
			continue
		}
	probeJ:
		for _, j := range byOffered[a.RequestedCourse] {
			if j == i {
				continue
			}
			b := snapshot[j]
			if consumed[b.OrderID] {
				continue
			}
			for _, k := range byOffered[b.RequestedCourse] {
				if k == i || k == j {
					continue
				}
				c := snapshot[k]
				if consumed[c.OrderID] || c.RequestedCourse != a.OfferedCourse {
					continue
				}
				if m.settleCycle([]BookEntry{a, b, c}, domain.AlgorithmAdjacent, consumed, result) {
					break probeJ
				}
			}
		}
	}
	return result
}

// settleCycle validates and executes one candidate cycle, shared by all
// three passes so the transfer and conflict logic cannot drift between
// the brute and pruned matchers. The cycle slice is ordered so each
// entry requests the course offered by the next entry's seat, closing
// at the end: each seat therefore moves to the submitter of the
// preceding order in the slice.
//
// Returns true only when every transfer applied: the orders are removed
// from the book and marked consumed, and the executed cycle is appended
// to the result. On conflict rejection the orders stay active and the
// pass continues. On a ledger holder mismatch (out-of-band change) the
// cycle is abandoned as a unit — any applied legs are rolled back — and
// the inconsistency is surfaced on the result.
//
// Caller holds the book lock.
func (m *Matcher) settleCycle(cycle []BookEntry, algo domain.SwapAlgorithm, consumed map[string]bool, result *PassResult) bool {
	n := len(cycle)
	transfers := make([]Transfer, n)
	for i, entry := range cycle {
		next := cycle[(i+1)%n]
		// entry requested next's offered course, so next's seat goes to
		// entry's submitter.
		transfers[i] = Transfer{
			SeatID:   next.SeatID,
			From:     next.Submitter,
			To:       entry.Submitter,
			TimeSlot: next.TimeSlot,
		}
	}

	// The book may have gone stale against the ledger: verify every
	// seat is still held by its order's submitter before moving anything.
	for _, t := range transfers {
		holder, err := m.ledger.CurrentHolder(t.SeatID)
		if err != nil || holder != t.From {
			result.Inconsistencies = append(result.Inconsistencies,
				fmt.Sprintf("seat %s no longer held by %s", t.SeatID, t.From))
			return false
		}
	}

	if wouldConflict(m.ledger, transfers) {
		return false
	}

	for i, t := range transfers {
		if err := m.ledger.Transfer(t.SeatID, t.From, t.To); err != nil {
			// All-or-nothing per cycle: undo the legs already applied.
			for u := i - 1; u >= 0; u-- {
				_ = m.ledger.Transfer(transfers[u].SeatID, transfers[u].To, transfers[u].From)
			}
			result.Inconsistencies = append(result.Inconsistencies,
				fmt.Sprintf("transfer of seat %s from %s denied: %v", t.SeatID, t.From, err))
			return false
		}
	}

	legs := make([]domain.SwapLeg, n)
	for i, entry := range cycle {
		m.book.removeLocked(entry.OrderID)
		consumed[entry.OrderID] = true
		legs[i] = domain.SwapLeg{
			OrderID:  entry.OrderID,
			SeatID:   transfers[i].SeatID,
			From:     transfers[i].From,
			To:       transfers[i].To,
			Course:   cycle[(i+1)%n].OfferedCourse,
			TimeSlot: transfers[i].TimeSlot,
		}
	}

	result.Cycles = append(result.Cycles, domain.SwapCycle{
		SwapID:     uuid.New().String(),
		Size:       n,
		Legs:       legs,
		Algorithm:  algo,
		ExecutedAt: time.Now(),
	})
	return true
}
