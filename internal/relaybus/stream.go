package relaybus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/crosscall-ai/translation-relay/internal/model"
)

const (
	// StreamName is the name of the relay stream.
	StreamName = "RELAY"

	// DialSubject carries activation signals to the outbound dialer.
	DialSubject = "relay.dial.request"

	// SpeechSubject carries per-utterance analytics events.
	SpeechSubject = "relay.speech"

	// dialConsumerName is the durable consumer the dialer worker uses.
	dialConsumerName = "dialer"
)

// StreamManager handles JetStream stream operations for the relay.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the relay stream exists with proper configuration.
// Activation signals and speech events are short lived, matching the
// session retention window.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{"relay.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Activation signals and speech events for the translation relay",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// RequestCalleeLeg publishes the activation signal carrying the caller's
// full connection record. Implements the coordinator's Dialer
// collaborator.
func (m *StreamManager) RequestCalleeLeg(ctx context.Context, conn *model.Connection) error {
	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("failed to marshal activation signal: %w", err)
	}

	if _, err := m.client.JetStream().Publish(ctx, DialSubject, data); err != nil {
		return fmt.Errorf("failed to publish activation signal: %w", err)
	}
	return nil
}

// PublishSpeech publishes a best-effort analytics event for one relayed
// utterance. Implements the coordinator's EventSink collaborator.
func (m *StreamManager) PublishSpeech(ctx context.Context, entry *model.TranscriptEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal speech event: %w", err)
	}

	if _, err := m.client.JetStream().Publish(ctx, SpeechSubject, data); err != nil {
		return fmt.Errorf("failed to publish speech event: %w", err)
	}
	return nil
}

// ConsumeActivations delivers activation signals to the dialer worker on a
// durable consumer. The returned ConsumeContext stops delivery when
// stopped.
func (m *StreamManager) ConsumeActivations(ctx context.Context, handle func(ctx context.Context, conn *model.Connection)) (jetstream.ConsumeContext, error) {
	js := m.client.JetStream()

	consumer, err := js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       dialConsumerName,
		FilterSubject: DialSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dial consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var conn model.Connection
		if err := json.Unmarshal(msg.Data(), &conn); err != nil {
			// Malformed signal; drop it rather than redeliver forever.
			_ = msg.Ack()
			return
		}
		handle(ctx, &conn)
		_ = msg.Ack()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to consume activations: %w", err)
	}
	return cc, nil
}
