package engine

import (
	"sync"
	"time"

	"github.com/google/btree"
)

// BookEntry represents a single active exchange order resting on the book.
// Seat metadata (offered course, time slot) is denormalized from the
// ledger at submission time; holder verification always goes back to the
// ledger at execution time.
type BookEntry struct {
	Seq             int64 // book insertion sequence, assigned on Insert
	OrderID         string
	SeatID          string
	OfferedCourse   string
	RequestedCourse string
	TimeSlot        string
	Submitter       string
	CreatedAt       time.Time
}

// seqLess orders book entries by insertion sequence, so Ascend visits
// orders in submission order. Matching passes and ListActive both depend
// on this ordering for determinism.
func seqLess(a, b BookEntry) bool {
	return a.Seq < b.Seq
}

// OrderBook holds the set of currently active exchange orders in a
// B-tree keyed by submission sequence, with secondary indexes for
// O(log n) removal by order ID and the one-active-order-per-seat check.
//
// The mutex is exposed through Lock/Unlock so a matching pass can hold
// it for its entire duration: the book must never be observed in a
// partially-updated state between matcher invocations.
type OrderBook struct {
	mu      sync.Mutex
	entries *btree.BTreeG[BookEntry]
	byID    map[string]BookEntry // order_id → entry
	bySeat  map[string]string    // seat_id → order_id
	nextSeq int64
}

// NewOrderBook creates an empty order book.
func NewOrderBook() *OrderBook {
	const degree = 32
	return &OrderBook{
		entries: btree.NewG[BookEntry](degree, seqLess),
		byID:    make(map[string]BookEntry),
		bySeat:  make(map[string]string),
	}
}

// Lock acquires the book lock.
func (b *OrderBook) Lock() {
	b.mu.Lock()
}

// Unlock releases the book lock.
func (b *OrderBook) Unlock() {
	b.mu.Unlock()
}

// insertLocked assigns the next sequence number and adds the entry to
// the tree and both indexes. Caller holds the lock and has already
// checked the per-seat invariant.
func (b *OrderBook) insertLocked(entry BookEntry) BookEntry {
	b.nextSeq++
	entry.Seq = b.nextSeq
	b.entries.ReplaceOrInsert(entry)
	b.byID[entry.OrderID] = entry
	b.bySeat[entry.SeatID] = entry.OrderID
	return entry
}

// Insert adds an order to the book and returns the stored entry with
// its sequence number assigned. Returns false if the seat already has
// an active order (the one-active-order-per-seat invariant).
func (b *OrderBook) Insert(entry BookEntry) (BookEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.bySeat[entry.SeatID]; exists {
		return BookEntry{}, false
	}
	return b.insertLocked(entry), true
}

// removeLocked deletes an order from the tree and both indexes.
// Caller holds the lock.
func (b *OrderBook) removeLocked(orderID string) (BookEntry, bool) {
	entry, ok := b.byID[orderID]
	if !ok {
		return BookEntry{}, false
	}
	delete(b.byID, orderID)
	delete(b.bySeat, entry.SeatID)
	b.entries.Delete(entry)
	return entry, true
}

// Remove deletes an order from the book by order ID. Returns the removed
// entry and true, or false if no such active order exists.
func (b *OrderBook) Remove(orderID string) (BookEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeLocked(orderID)
}

// RemoveAll unconditionally clears the book and returns the entries
// removed, in submission order.
func (b *OrderBook) RemoveAll() []BookEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := b.snapshotLocked()
	b.entries.Clear(false)
	b.byID = make(map[string]BookEntry)
	b.bySeat = make(map[string]string)
	return removed
}

// Get returns the active order with the given ID.
func (b *OrderBook) Get(orderID string) (BookEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.byID[orderID]
	return entry, ok
}

// HasSeat reports whether the seat has an active order.
func (b *OrderBook) HasSeat(seatID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.bySeat[seatID]
	return ok
}

// OrderForSeat returns the active order offering the given seat.
func (b *OrderBook) OrderForSeat(seatID string) (BookEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.bySeat[seatID]
	if !ok {
		return BookEntry{}, false
	}
	return b.byID[id], true
}

// snapshotLocked copies all entries in submission order. Caller holds
// the lock.
func (b *OrderBook) snapshotLocked() []BookEntry {
	snapshot := make([]BookEntry, 0, b.entries.Len())
	b.entries.Ascend(func(entry BookEntry) bool {
		snapshot = append(snapshot, entry)
		return true
	})
	return snapshot
}

// Snapshot returns a copy of every active order in submission order.
// Matching passes operate on such a snapshot; externally it backs the
// list-active operation.
func (b *OrderBook) Snapshot() []BookEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Len returns the number of active orders.
func (b *OrderBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries.Len()
}
