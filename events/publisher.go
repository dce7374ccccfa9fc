// Package events broadcasts booking lifecycle events to a RabbitMQ fanout
// exchange. Notification and payout pipelines live outside the engine; this is
// the only thing the engine tells them.
package events

import (
	"encoding/json"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/streadway/amqp"
)

const exchangeName = "lodgekeep.bookings"

type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	l    log.Logger
}

// Connect dials the broker and declares the fanout exchange.
func Connect(url string, l log.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	level.Info(l).Log("msg", "connected to broker", "exchange", exchangeName)
	return &Publisher{conn: conn, ch: ch, l: l}, nil
}

// Publish sends one event as a JSON body. Broadcasting is best-effort: a
// failed publish is logged and never fails the booking operation that
// triggered it.
func (p *Publisher) Publish(event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		level.Error(p.l).Log("msg", "marshal event", "event", event, "err", err)
		return
	}

	err = p.ch.Publish(exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        event,
		Timestamp:   time.Now().UTC(),
		Body:        body,
	})
	if err != nil {
		level.Error(p.l).Log("msg", "publish event", "event", event, "err", err)
		return
	}

	level.Debug(p.l).Log("msg", "event published", "event", event)
}

func (p *Publisher) Close() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
