// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaLogger publishes audit events as JSON to a Kafka topic for
// downstream SIEM ingestion. It is optional: deployments without a
// Kafka broker use SlogLogger or RepositoryLogger instead.
type KafkaLogger struct {
	writer *kafka.Writer
	slog   *SlogLogger
}

// NewKafkaLogger creates a logger that publishes to topic across the
// given brokers, keyed by tenant ID so all of one tenant's events land
// on the same partition.
func NewKafkaLogger(brokers []string, topic string) *KafkaLogger {
	return &KafkaLogger{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 1 * time.Second,
		},
		slog: NewSlogLogger(),
	}
}

// Log publishes the event to Kafka, falling back to slog if the broker
// is unreachable. Audit delivery failures must never propagate as
// request failures: this method has no error return, matching Logger.
func (l *KafkaLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "audit: failed to marshal event for kafka", "error", err)
		l.slog.Log(ctx, event)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.TenantID),
		Value: payload,
		Time:  event.Timestamp,
	}
	if err := l.writer.WriteMessages(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "audit: failed to publish event to kafka", "error", err)
		l.slog.Log(ctx, event)
	}
}

// Close closes the underlying Kafka writer.
func (l *KafkaLogger) Close() error {
	return l.writer.Close()
}
