// Package relay fans chat-store change events out through a RabbitMQ
// fanout exchange, so separate processes sharing a store see each other's
// writes and re-read. It is the cross-process equivalent of a storage
// event.
package relay

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/rgs-labs/rgsai/internal/store"
)

type Relay struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	origin   string
	bus      *store.Bus
	logger   *zap.Logger

	unsubscribe func()
	done        chan struct{}
}

// Connect dials the broker, declares the fanout exchange and binds an
// exclusive queue for this process. origin must be unique per process.
func Connect(url, exchange, origin string, bus *store.Bus, logger *zap.Logger) (*Relay, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"fanout",
		false, // durable: change events are transient by nature
		true,  // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		"", // broker-named
		false,
		true, // auto-delete
		true, // exclusive
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	r := &Relay{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		origin:   origin,
		bus:      bus,
		logger:   logger,
		done:     make(chan struct{}),
	}

	events, cancel := bus.Subscribe()
	r.unsubscribe = cancel

	go r.forward(events)
	go r.receive(deliveries)
	return r, nil
}

// forward publishes locally produced events to the exchange.
func (r *Relay) forward(events <-chan store.Event) {
	for ev := range events {
		if ev.Origin != "" {
			continue // injected by a relay, not ours to rebroadcast
		}
		ev.Origin = r.origin
		if err := r.publish(ev); err != nil {
			r.logger.Warn("relay publish failed", zap.Error(err))
		}
	}
}

func (r *Relay) publish(ev store.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return r.ch.PublishWithContext(ctx,
		r.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
}

// receive injects foreign events into the local bus.
func (r *Relay) receive(deliveries <-chan amqp.Delivery) {
	defer close(r.done)
	for d := range deliveries {
		var ev store.Event
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			r.logger.Warn("relay dropped malformed event", zap.Error(err))
			continue
		}
		if ev.Origin == r.origin {
			continue // our own broadcast coming back around
		}
		if ev.Origin == "" {
			ev.Origin = "remote"
		}
		r.bus.Publish(ev)
	}
}

func (r *Relay) Close() error {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	if r.ch != nil {
		_ = r.ch.Close()
	}
	var err error
	if r.conn != nil {
		err = r.conn.Close()
	}
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return err
}
