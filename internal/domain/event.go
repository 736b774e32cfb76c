package domain

// Event names emitted by the engine's service layer. Webhook
// subscriptions and queue messages both use these labels.
const (
	EventOrderSubmitted      = "order.submitted"
	EventOrderCancelled      = "order.cancelled"
	EventAllOrdersCancelled  = "orders.cancelled_all"
	EventTwoWayCompleted     = "swap.two_way.completed"
	EventThreeWayCompleted   = "swap.three_way.completed"
	EventNoThreeWaySwapFound = "swap.three_way.none"
)
