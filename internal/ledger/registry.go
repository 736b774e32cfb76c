// Package ledger implements the seat registry the matching engine
// executes against: seat metadata, holder bookkeeping, and the transfer
// primitive. The engine treats it as an external collaborator and only
// ever reads holders/metadata or calls Transfer as the final step of an
// accepted cycle.
package ledger

import (
	"sort"
	"strconv"
	"sync"

	"github.com/efreitasn/seatswap/internal/domain"
)

// Registry is a thread-safe in-memory seat ledger. Seat IDs are numeric
// strings assigned sequentially starting at "1".
type Registry struct {
	mu       sync.RWMutex
	seats    map[string]*domain.Seat
	byHolder map[string]map[string]bool // holder → seat_id set
	nextID   int64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		seats:    make(map[string]*domain.Seat),
		byHolder: make(map[string]map[string]bool),
		nextID:   1,
	}
}

// Mint creates a new seat held by holder and returns it. The seat ID is
// assigned by the registry.
func (r *Registry) Mint(holder, course, section, timeSlot, uri string) (domain.Seat, error) {
	if holder == "" {
		return domain.Seat{}, &domain.ValidationError{Message: "holder is required"}
	}
	if course == "" {
		return domain.Seat{}, &domain.ValidationError{Message: "course is required"}
	}
	if timeSlot == "" {
		return domain.Seat{}, &domain.ValidationError{Message: "time_slot is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := strconv.FormatInt(r.nextID, 10)
	r.nextID++

	seat := &domain.Seat{
		SeatID:   id,
		Course:   course,
		Section:  section,
		TimeSlot: timeSlot,
		URI:      uri,
		Holder:   holder,
	}
	r.seats[id] = seat
	if r.byHolder[holder] == nil {
		r.byHolder[holder] = make(map[string]bool)
	}
	r.byHolder[holder][id] = true

	return *seat, nil
}

// Burn removes a seat and its metadata. It returns
// domain.ErrSeatNotFound if the seat does not exist.
func (r *Registry) Burn(seatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat, ok := r.seats[seatID]
	if !ok {
		return domain.ErrSeatNotFound
	}
	delete(r.seats, seatID)
	if held := r.byHolder[seat.Holder]; held != nil {
		delete(held, seatID)
		if len(held) == 0 {
			delete(r.byHolder, seat.Holder)
		}
	}
	return nil
}

// CurrentHolder returns the identity currently holding the seat.
func (r *Registry) CurrentHolder(seatID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seat, ok := r.seats[seatID]
	if !ok {
		return "", domain.ErrSeatNotFound
	}
	return seat.Holder, nil
}

// Details returns a copy of the seat's metadata and current holder.
func (r *Registry) Details(seatID string) (domain.Seat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seat, ok := r.seats[seatID]
	if !ok {
		return domain.Seat{}, domain.ErrSeatNotFound
	}
	return *seat, nil
}

// HoldingsOf returns copies of every seat held by holder, in seat ID
// order. Returns an empty slice for unknown holders.
func (r *Registry) HoldingsOf(holder string) []domain.Seat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	held := r.byHolder[holder]
	result := make([]domain.Seat, 0, len(held))
	for id := range held {
		result = append(result, *r.seats[id])
	}
	sort.Slice(result, func(i, j int) bool {
		a, _ := strconv.ParseInt(result[i].SeatID, 10, 64)
		b, _ := strconv.ParseInt(result[j].SeatID, 10, 64)
		return a < b
	})
	return result
}

// Transfer reassigns a seat from one holder to another. It returns
// domain.ErrSeatNotFound if the seat does not exist and
// domain.ErrTransferDenied if from is not the current holder.
func (r *Registry) Transfer(seatID, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat, ok := r.seats[seatID]
	if !ok {
		return domain.ErrSeatNotFound
	}
	if seat.Holder != from {
		return domain.ErrTransferDenied
	}

	delete(r.byHolder[from], seatID)
	if len(r.byHolder[from]) == 0 {
		delete(r.byHolder, from)
	}
	seat.Holder = to
	if r.byHolder[to] == nil {
		r.byHolder[to] = make(map[string]bool)
	}
	r.byHolder[to][seatID] = true

	return nil
}
