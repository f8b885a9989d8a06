// Package kafka fans audit entries out to a Kafka topic for downstream
// compliance and SIEM consumers. The database store remains the durable
// write path; this sink is an additive copy.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"signet/internal/audit"
)

// Publisher produces audit entries to a single topic, keyed by actor so a
// user's trail stays ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the topic exists.
func New(brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: topic}, nil
}

func ensureTopic(client *kgo.Client, topic string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adm := kadm.NewClient(client)
	_, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("ensure audit topic: %w", err)
	}
	return nil
}

// payload is the JSON structure published to Kafka.
type payload struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id,omitempty"`
	DocumentID   string         `json:"document_id,omitempty"`
	Action       string         `json:"action"`
	Resource     string         `json:"resource,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Changes      map[string]any `json:"changes,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Timestamp    string         `json:"timestamp"`
}

// Publish produces one entry synchronously.
func (p *Publisher) Publish(ctx context.Context, entry audit.Entry) error {
	msg := payload{
		ID:           entry.ID.String(),
		Action:       string(entry.Action),
		Resource:     entry.Resource,
		ResourceID:   entry.ResourceID,
		Changes:      entry.Changes,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		Status:       string(entry.Status),
		ErrorMessage: entry.ErrorMessage,
		Timestamp:    entry.Timestamp.Format(time.RFC3339Nano),
	}
	if !entry.ActorID.IsNil() {
		msg.ActorID = entry.ActorID.String()
	}
	if !entry.DocumentID.IsNil() {
		msg.DocumentID = entry.DocumentID.String()
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(msg.ActorID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entry: %w", err)
	}
	return nil
}

// Close flushes and releases the Kafka client.
func (p *Publisher) Close() {
	p.client.Close()
}
