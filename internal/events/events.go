// Package events publishes disposition events to the platform event bus so
// notification workers downstream can react to accepted and rejected orders.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	Exchange           = "brewdesk.events"
	RoutingKeyDisposed = "order.disposed"
)

type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func New(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) EnsureExchange(name string) error {
	return p.ch.ExchangeDeclare(
		name,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func (p *Publisher) publishJSON(ctx context.Context, exchange, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

// OrderDisposed announces a resolved disposition. Best effort: callers ignore
// the error beyond logging, the disposition itself has already been confirmed.
func (p *Publisher) OrderDisposed(ctx context.Context, sessionID, orderID, decision string) error {
	return p.publishJSON(ctx, Exchange, RoutingKeyDisposed, map[string]any{
		"type":       RoutingKeyDisposed,
		"session_id": sessionID,
		"order_id":   orderID,
		"decision":   decision,
		"at":         time.Now().UTC(),
	})
}
