package domain

// Seat represents a transferable right to a single course slot. Metadata
// is fixed at mint time; only the holder changes, and only through the
// ledger's Transfer operation.
type Seat struct {
	SeatID   string // ledger-assigned, numeric, auto-incremented from "1"
	Course   string // offered-course label, e.g. "COS324"
	Section  string
	TimeSlot string // e.g. "Mon 10:00"
	URI      string
	Holder   string
}
