package engine

import "github.com/efreitasn/seatswap/internal/domain"

// Transfer is one proposed seat movement within a candidate cycle.
type Transfer struct {
	SeatID   string
	From     string
	To       string
	TimeSlot string
}

// HoldingsReader is the ledger view the conflict validator needs.
type HoldingsReader interface {
	HoldingsOf(holder string) []domain.Seat
}

// wouldConflict reports whether applying the proposed transfers would
// leave any receiving participant holding two seats in the same time
// slot. The comparison set for a participant is their full post-swap
// holding: current seats minus seats they give up in this proposal,
// plus every seat they receive. Pre-existing untouched holdings count;
// the check is not limited to the seats directly exchanged.
//
// Pure function of the ledger state and the proposal. Duplicate slots a
// participant already has among the seats they merely retain do not by
// themselves reject a cycle; only a received seat colliding with the
// post-swap set does.
func wouldConflict(ledger HoldingsReader, transfers []Transfer) bool {
	// Seats leaving each holder in this proposal.
	givingUp := make(map[string]map[string]bool)
	for _, t := range transfers {
		if givingUp[t.From] == nil {
			givingUp[t.From] = make(map[string]bool)
		}
		givingUp[t.From][t.SeatID] = true
	}

	// Per-receiver slot sets built from retained holdings, checked and
	// extended once per received seat. A holder receiving two seats in
	// the same slot within one cycle is caught here too.
	slots := make(map[string]map[string]bool)
	for _, t := range transfers {
		set, ok := slots[t.To]
		if !ok {
			set = make(map[string]bool)
			for _, seat := range ledger.HoldingsOf(t.To) {
				if givingUp[t.To][seat.SeatID] {
					continue
				}
				set[seat.TimeSlot] = true
			}
			slots[t.To] = set
		}
		if set[t.TimeSlot] {
			return true
		}
		set[t.TimeSlot] = true
	}
	return false
}
