// Package kafka publishes state change events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"

	"github.com/doridoridoriand/netsav-go/internal/event"
	"github.com/doridoridoriand/netsav-go/internal/trigger"
)

// Name is the configuration key of this trigger.
const Name = "kafka"

const defaultWriteTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Plugin writes one message per event, keyed by target name so events of a
// target stay ordered within their partition.
type Plugin struct {
	log    zerolog.Logger
	writer messageWriter
	topic  string
}

// New is the trigger.Factory for the kafka plugin.
func New(logger zerolog.Logger) (trigger.Plugin, error) {
	return &Plugin{log: logger}, nil
}

// Name implements trigger.Plugin.
func (p *Plugin) Name() string { return Name }

// Configure reads brokers (comma separated), topic and write_timeout.
func (p *Plugin) Configure(params map[string]string) error {
	cfg := trigger.Params(params)
	if err := cfg.Require("brokers", "topic"); err != nil {
		return err
	}
	brokers := cfg.List("brokers")
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}
	timeout, err := cfg.Seconds("write_timeout", defaultWriteTimeout)
	if err != nil {
		return err
	}

	p.topic = cfg["topic"]
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  p.topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: cfg.Bool("auto_create_topic"),
	}
	return nil
}

// Handle implements trigger.Plugin.
func (p *Plugin) Handle(ctx context.Context, evt event.StateChangeEvent) error {
	if p.writer == nil {
		return fmt.Errorf("kafka writer not configured")
	}
	value, err := json.Marshal(evt.Payload())
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.Name),
		Value: value,
		Time:  evt.Time,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.ID.String())},
			{Key: "state", Value: []byte(evt.Current.String())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to topic %s: %w", p.topic, err)
	}
	p.log.Debug().Str("target", evt.Name).Str("topic", p.topic).Msg("event published")
	return nil
}

// Close flushes and closes the writer.
func (p *Plugin) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
