// Package events publishes domain events and parse-job messages to
// RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const (
	// Exchange is a durable topic exchange; routing keys are
	// "<kind>.<subject>", e.g. "job.<id>" or "share.created".
	Exchange = "resumezk_events"
	// ParseQueue carries parse-job messages to the worker pool.
	ParseQueue = "resume_parse"
)

const (
	KindJob    = "job"
	KindShare  = "share"
	KindResume = "resume"
	KindCred   = "credential"
)

// Event is the body of every message on Exchange.
type Event struct {
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e Event) RoutingKey() string {
	return fmt.Sprintf("%s.%s", e.Kind, e.Subject)
}

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Opener returns a fresh channel per publish. amqp channels are not safe for
// concurrent publishing.
type Opener func() (Channel, error)

// ConnOpener opens channels on an existing connection.
func ConnOpener(conn *amqp.Connection) Opener {
	return func() (Channel, error) {
		return conn.Channel()
	}
}

// Declare creates the exchange and the parse queue.
func Declare(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(
		ParseQueue, // name
		true,       // durable
		false,      // auto-delete
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

type Publisher struct {
	open Opener
	now  func() time.Time
	log  logrus.FieldLogger
}

func NewPublisher(open Opener, log logrus.FieldLogger) *Publisher {
	return &Publisher{open: open, now: time.Now, log: log}
}

// Publish sends e to Exchange. A zero timestamp is filled in.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	if p == nil {
		return nil
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = p.now()
	}
	return p.send(ctx, Exchange, e.RoutingKey(), e)
}

// Emit publishes and only logs failures; events are advisory.
func (p *Publisher) Emit(ctx context.Context, e Event) {
	if err := p.Publish(ctx, e); err != nil {
		p.log.WithError(err).WithField("routing_key", e.RoutingKey()).Warn("failed to publish event")
	}
}

// Enqueue puts v on ParseQueue as a persistent message.
func (p *Publisher) Enqueue(ctx context.Context, v any) error {
	if p == nil {
		return fmt.Errorf("events: no broker configured")
	}
	return p.send(ctx, "", ParseQueue, v)
}

func (p *Publisher) send(ctx context.Context, exchange, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	return ch.Publish(
		exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
}
