// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package querylog

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/prodledger/internal/logging"
	"github.com/tomtom215/prodledger/internal/metrics"
)

// Topic is the event bus topic carrying query log records.
const Topic = "query.log"

// NewBus creates the in-process pub/sub used for query log records.
// Messages published with no subscriber are dropped.
func NewBus(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)
}

// Publisher is a Sink that publishes each record on Topic.
type Publisher struct {
	pub message.Publisher
}

// NewPublisher wraps a watermill publisher.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// Emit serializes rec and publishes it. Failures are logged, never returned to the query path.
func (p *Publisher) Emit(ctx context.Context, rec Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to marshal query log record")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("operation", rec.Operation)
	msg.Metadata.Set("outcome", rec.Outcome)

	if err := p.pub.Publish(Topic, msg); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish query log record")
		return
	}
	metrics.QueryLogPublished.Inc()
}

// Consumer subscribes to Topic and hands each decoded record to Handle.
type Consumer struct {
	sub    message.Subscriber
	handle func(ctx context.Context, rec Record) error
}

// NewConsumer creates a consumer. A nil handle applies MetricsHandler.
func NewConsumer(sub message.Subscriber, handle func(ctx context.Context, rec Record) error) *Consumer {
	if handle == nil {
		handle = MetricsHandler(0)
	}
	return &Consumer{sub: sub, handle: handle}
}

// Run processes messages until ctx is cancelled or the subscription closes.
// Malformed payloads are acked and counted so they are not redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.sub.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", Topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *message.Message) {
	var rec Record
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed query log message")
		metrics.QueryLogConsumed.WithLabelValues("malformed").Inc()
		msg.Ack()
		return
	}

	if err := c.handle(ctx, rec); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Query log handler failed")
		metrics.QueryLogConsumed.WithLabelValues("failed").Inc()
		msg.Ack()
		return
	}

	metrics.QueryLogConsumed.WithLabelValues("ok").Inc()
	msg.Ack()
}

// MetricsHandler returns a handler that folds records into Prometheus metrics.
func MetricsHandler(slowThreshold time.Duration) func(ctx context.Context, rec Record) error {
	return func(_ context.Context, rec Record) error {
		target := targetLabel(rec.PartitionsUsed)
		kind := ""
		if rec.Outcome != OutcomeOK {
			kind = rec.Outcome
		}
		metrics.RecordQuery(rec.Operation, target, rec.Duration(), rec.RowCount, kind)
		if rec.Degraded {
			metrics.DegradedQueries.WithLabelValues(rec.Operation).Inc()
		}
		if slowThreshold > 0 && rec.Duration() > slowThreshold {
			metrics.SlowQueries.WithLabelValues(rec.Operation).Inc()
		}
		return nil
	}
}

func targetLabel(partitions []string) string {
	switch len(partitions) {
	case 0:
		return "none"
	case 1:
		return partitions[0]
	default:
		return "both"
	}
}
