// Package events publishes registration events to Kafka.
package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"vetrian/pkg/types"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/sirupsen/logrus"
)

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Kafka struct {
	logger logrus.FieldLogger
	writer MessageWriter
}

// NewKafka builds a synchronous writer for topic. SASL/PLAIN over TLS is
// enabled when a username is supplied.
func NewKafka(logger logrus.FieldLogger, brokers []string, topic, username, password string) *Kafka {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}

	if username != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: username, Password: password},
			TLS:  &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}

	return NewKafkaWithWriter(logger, writer)
}

func NewKafkaWithWriter(logger logrus.FieldLogger, writer MessageWriter) *Kafka {
	return &Kafka{logger: logger, writer: writer}
}

func (k *Kafka) Publish(ctx context.Context, event *types.RegistrationEvent) error {
	msg, err := Message(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	k.logger.WithFields(logrus.Fields{
		"event":        event.Type,
		"registrantID": event.RegistrantID,
	}).Debug("published registration event")

	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Message encodes event as JSON keyed by registrant id so events for one
// registrant stay on one partition.
func Message(event *types.RegistrationEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.RegistrantID),
		Value: value,
		Time:  event.OccurredAt,
	}, nil
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, *types.RegistrationEvent) error { return nil }

func (Nop) Close() error { return nil }
