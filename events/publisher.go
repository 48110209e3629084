// Package events publishes committed notifications to an AMQP exchange so that other services can react to them.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/cyverse-de/ticket-tracker/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var log = common.Log.WithFields(logrus.Fields{"package": "events"})

// AMQPSettings represents the settings that we require in order to connect to the AMQP exchange.
type AMQPSettings struct {
	URI          string
	ExchangeName string
	ExchangeType string
}

// Publisher publishes notifications that have already been committed to the database.
type Publisher interface {
	PublishNotifications(ctx context.Context, notifications []model.Notification) error
}

// Discard is a publisher that drops every notification.
type Discard struct{}

// PublishNotifications does nothing.
func (Discard) PublishNotifications(context.Context, []model.Notification) error {
	return nil
}

// RoutingKey returns the routing key used when publishing a notification.
func RoutingKey(notification *model.Notification) string {
	return fmt.Sprintf("events.notification.%s.%d", notification.Type, notification.RecipientID)
}

// AMQPPublisher publishes notifications to an AMQP exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher connects to the AMQP broker and declares the exchange.
func NewAMQPPublisher(settings *AMQPSettings) (*AMQPPublisher, error) {
	wrapMsg := "unable to create the AMQP publisher"

	conn, err := amqp.Dial(settings.URI)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, wrapMsg)
	}

	err = channel.ExchangeDeclare(settings.ExchangeName, settings.ExchangeType, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, wrapMsg)
	}

	return &AMQPPublisher{conn: conn, channel: channel, exchange: settings.ExchangeName}, nil
}

// PublishNotifications publishes one message per notification.
func (p *AMQPPublisher) PublishNotifications(_ context.Context, notifications []model.Notification) error {
	for i := range notifications {
		notification := &notifications[i]

		body, err := json.Marshal(notification)
		if err != nil {
			return errors.Wrapf(err, "unable to encode notification %d", notification.ID)
		}

		key := RoutingKey(notification)
		err = p.channel.Publish(p.exchange, key, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    notification.Timestamp,
			Body:         body,
		})
		if err != nil {
			return errors.Wrapf(err, "unable to publish notification %d", notification.ID)
		}
		log.Debugf("published notification %d with routing key %s", notification.ID, key)
	}
	return nil
}

// Close closes the connection to the AMQP broker.
func (p *AMQPPublisher) Close() {
	if err := p.channel.Close(); err != nil {
		log.Warnf("unable to close the AMQP channel: %s", err)
	}
	if err := p.conn.Close(); err != nil {
		log.Warnf("unable to close the AMQP connection: %s", err)
	}
}
