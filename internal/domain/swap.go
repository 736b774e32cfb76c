package domain

import "time"

// SwapAlgorithm identifies which matching pass produced a cycle.
type SwapAlgorithm string

const (
	AlgorithmTwoWay   SwapAlgorithm = "twoway"
	AlgorithmBrute    SwapAlgorithm = "brute"
	AlgorithmAdjacent SwapAlgorithm = "adjacent"
)

// SwapLeg is one seat movement within an executed cycle: the seat that
// satisfied OrderID's request, moving from its previous holder to the
// order's submitter.
type SwapLeg struct {
	OrderID  string
	SeatID   string
	From     string
	To       string
	Course   string // offered-course label of the seat that moved
	TimeSlot string
}

// SwapCycle records a fully executed barter cycle of 2 or 3 orders.
// Legs are stored in cycle order, so walking them reconstructs the
// exact multi-party exchange.
type SwapCycle struct {
	SwapID     string
	Size       int // 2 or 3
	Legs       []SwapLeg
	Algorithm  SwapAlgorithm
	ExecutedAt time.Time
}

// OrderIDs returns the identifiers of the orders consumed by the cycle,
// in leg order.
func (c *SwapCycle) OrderIDs() []string {
	ids := make([]string, len(c.Legs))
	for i, leg := range c.Legs {
		ids[i] = leg.OrderID
	}
	return ids
}
