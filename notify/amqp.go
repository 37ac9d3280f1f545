// Package notify publishes ledger events to an AMQP topic exchange so
// downstream consumers (payout workers, analytics, customer notification)
// receive them without polling the node.
package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/streadway/amqp"

	"github.com/euphoria-gg/betledger/events"
)

// AMQPPublisher fans ledger events out to a topic exchange. Routing keys are
// "betledger.<event_type>", so consumers can bind to "betledger.bet.*" or
// "betledger.#" as needed.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := channel.ExchangeDeclare(
		exchange, "topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// Attach subscribes the publisher to every event on the emitter.
func (p *AMQPPublisher) Attach(emitter *events.Emitter) {
	emitter.SubscribeAll(p.publish)
}

func (p *AMQPPublisher) publish(ev events.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[notify] marshal event %s: %v", ev.ID, err)
		return
	}
	routingKey := "betledger." + string(ev.Type)
	err = p.channel.Publish(
		p.exchange, routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   ev.ID,
			Timestamp:   time.Unix(ev.Time, 0),
			Body:        body,
		},
	)
	if err != nil {
		log.Printf("[notify] publish %s: %v", routingKey, err)
	}
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
