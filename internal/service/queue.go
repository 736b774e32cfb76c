package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/efreitasn/seatswap/internal/domain"
)

// swapExecutedQueue is the durable queue executed-swap events are
// published to.
const swapExecutedQueue = "seatswap.executed"

// SwapExecutedEvent is the message published for each executed cycle.
// It carries enough information for downstream consumers to notify
// participants or feed analytics without querying the engine.
type SwapExecutedEvent struct {
	SwapID     string            `json:"swap_id"`
	Size       int               `json:"size"`
	Algorithm  string            `json:"algorithm"`
	Legs       []SwapExecutedLeg `json:"legs"`
	ExecutedAt string            `json:"executed_at"`
}

// SwapExecutedLeg is one seat movement within a published event.
type SwapExecutedLeg struct {
	OrderID  string `json:"order_id"`
	SeatID   string `json:"seat_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Course   string `json:"course"`
	TimeSlot string `json:"time_slot"`
}

// QueuePublisher publishes executed-swap events to RabbitMQ. Publishing
// is best-effort: errors are logged and returned so callers can ignore
// failures without interrupting the matching flow.
type QueuePublisher struct {
	url string
}

// NewQueuePublisher creates a publisher for the given AMQP URL.
func NewQueuePublisher(url string) *QueuePublisher {
	return &QueuePublisher{url: url}
}

// PublishSwapExecuted publishes a SwapExecutedEvent for the cycle to
// the seatswap.executed queue. Messages are marked persistent and the
// queue is declared durable so events survive broker restarts.
func (p *QueuePublisher) PublishSwapExecuted(ctx context.Context, cycle domain.SwapCycle) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		slog.Error("amqp dial failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		slog.Error("amqp channel open failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare so the first publish creates the queue.
	if _, err := ch.QueueDeclare(
		swapExecutedQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		slog.Error("amqp queue declare failed", slog.String("error", err.Error()))
		return err
	}

	event := SwapExecutedEvent{
		SwapID:     cycle.SwapID,
		Size:       cycle.Size,
		Algorithm:  string(cycle.Algorithm),
		ExecutedAt: cycle.ExecutedAt.UTC().Format(time.RFC3339),
	}
	for _, leg := range cycle.Legs {
		event.Legs = append(event.Legs, SwapExecutedLeg{
			OrderID:  leg.OrderID,
			SeatID:   leg.SeatID,
			From:     leg.From,
			To:       leg.To,
			Course:   leg.Course,
			TimeSlot: leg.TimeSlot,
		})
	}

	body, err := json.Marshal(event)
	if err != nil {
		slog.Error("amqp marshal event failed", slog.String("error", err.Error()))
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ch.PublishWithContext(pubCtx,
		"",                // default exchange
		swapExecutedQueue, // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	); err != nil {
		slog.Error("amqp publish failed", slog.String("error", err.Error()))
		return err
	}

	return nil
}
