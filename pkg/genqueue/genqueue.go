// Package genqueue implements C9 Generation Queue: a durable FIFO bus
// carrying generation work from the API to C10's worker, backed by a
// Redis Stream with a consumer group. A paired dead-letter stream
// collects messages whose delivery count exceeds the retry budget.
package genqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/telemetry"
)

// DefaultMaxDeliveries is the retry budget before a message is moved to
// the dead-letter stream (SPEC_FULL.md §4.9).
const DefaultMaxDeliveries = 3

const (
	defaultStreamKey = "certforge:generation"
	defaultGroupName = "certforge-workers"
	defaultDLQKey    = "certforge:generation:dlq"
	fieldPayload     = "payload"
)

// Message is the queue's wire payload (SPEC_FULL.md §6): the certificate
// to process, the tenant schema it lives in, and whether it's a preview
// render. A worker must bind C1's tenant context to TenantSchema before
// touching any tenant-scoped store.
type Message struct {
	CertificateID uuid.UUID `json:"certificateId"`
	TenantSchema  string    `json:"tenantSchema"`
	IsPreview     bool      `json:"isPreview"`
}

// Delivery wraps a Message with the stream bookkeeping a worker needs to
// ack, nack-with-requeue, or dead-letter it.
type Delivery struct {
	ID            string
	Message       Message
	DeliveryCount int64
}

// Queue publishes and consumes generation work over a Redis Stream.
type Queue struct {
	rdb       *redis.Client
	streamKey string
	groupName string
	dlqKey    string
	consumer  string
	maxTries  int
}

// Option configures a Queue beyond its required arguments.
type Option func(*Queue)

// WithStreamKey overrides the default stream key.
func WithStreamKey(key string) Option {
	return func(q *Queue) { q.streamKey = key }
}

// WithDLQKey overrides the default dead-letter stream key.
func WithDLQKey(key string) Option {
	return func(q *Queue) { q.dlqKey = key }
}

// WithMaxDeliveries overrides DefaultMaxDeliveries.
func WithMaxDeliveries(n int) Option {
	return func(q *Queue) { q.maxTries = n }
}

// New builds a Queue over rdb. consumer names this process within the
// consumer group (e.g. hostname+pid) so XPENDING/XCLAIM can attribute
// stuck deliveries to a specific worker instance.
func New(rdb *redis.Client, consumer string, opts ...Option) *Queue {
	q := &Queue{
		rdb:       rdb,
		streamKey: defaultStreamKey,
		groupName: defaultGroupName,
		dlqKey:    defaultDLQKey,
		consumer:  consumer,
		maxTries:  DefaultMaxDeliveries,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// EnsureGroup creates the consumer group if it doesn't already exist.
// Safe to call on every worker startup.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.rdb.XGroupCreateMkStream(ctx, q.streamKey, q.groupName, "$").Err()
	if err != nil && !isBusyGroupErr(err) {
		return fmt.Errorf("creating consumer group: %w: %w", apperr.ErrQueuePublishFailed, err)
	}
	return nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

// Publish satisfies certificate.QueuePublisher: it appends a Message to
// the stream. Failure is surfaced as apperr.ErrQueuePublishFailed
// (SPEC_FULL.md §4.9).
func (q *Queue) Publish(ctx context.Context, certificateID uuid.UUID, tenantSchema string, isPreview bool) error {
	msg := Message{CertificateID: certificateID, TenantSchema: tenantSchema, IsPreview: isPreview}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w: %w", apperr.ErrQueuePublishFailed, err)
	}

	err = q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.streamKey,
		Values: map[string]any{fieldPayload: raw},
	}).Err()
	if err != nil {
		return fmt.Errorf("publishing to stream: %w: %w", apperr.ErrQueuePublishFailed, err)
	}
	return nil
}

// Receive reads up to count undelivered messages for this consumer,
// blocking up to block for new entries if none are immediately
// available. Use block=0 for a non-blocking poll.
func (q *Queue) Receive(ctx context.Context, count int64, block time.Duration) ([]Delivery, error) {
	res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.groupName,
		Consumer: q.consumer,
		Streams:  []string{q.streamKey, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var out []Delivery
	for _, stream := range res {
		for _, xm := range stream.Messages {
			d, err := q.toDelivery(ctx, xm)
			if err != nil {
				continue
			}
			out = append(out, d)
		}
	}
	return out, nil
}

func (q *Queue) toDelivery(ctx context.Context, xm redis.XMessage) (Delivery, error) {
	raw, ok := xm.Values[fieldPayload].(string)
	if !ok {
		return Delivery{}, fmt.Errorf("message %s missing payload field", xm.ID)
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Delivery{}, fmt.Errorf("decoding message %s: %w", xm.ID, err)
	}

	count := int64(1)
	pending, err := q.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.streamKey,
		Group:  q.groupName,
		Start:  xm.ID,
		End:    xm.ID,
		Count:  1,
	}).Result()
	if err == nil && len(pending) == 1 {
		count = pending[0].RetryCount
	}

	return Delivery{ID: xm.ID, Message: msg, DeliveryCount: count}, nil
}

// Ack acknowledges successful processing of a delivery, removing it from
// the pending entries list.
func (q *Queue) Ack(ctx context.Context, id string) error {
	if err := q.rdb.XAck(ctx, q.streamKey, q.groupName, id).Err(); err != nil {
		return fmt.Errorf("acking message %s: %w", id, err)
	}
	return nil
}

// ExhaustsRetries reports whether d has already used up the retry
// budget, meaning a subsequent Nack will dead-letter it rather than
// leave it for redelivery. Callers that need to record a terminal
// failure (e.g. marking a certificate FAILED) should check this before
// calling Nack.
func (q *Queue) ExhaustsRetries(d Delivery) bool {
	return int(d.DeliveryCount) >= q.maxTries
}

// Nack leaves a delivery pending for redelivery, unless its delivery
// count has exhausted the retry budget, in which case it is moved to
// the dead-letter stream and acked off the main stream.
func (q *Queue) Nack(ctx context.Context, d Delivery) error {
	if q.ExhaustsRetries(d) {
		return q.deadLetter(ctx, d)
	}
	telemetry.QueueRetriesTotal.Inc()
	// Leaving the entry unacked is enough for a future XCLAIM/XAUTOCLAIM
	// to redeliver it; nothing further to do here.
	return nil
}

func (q *Queue) deadLetter(ctx context.Context, d Delivery) error {
	raw, err := json.Marshal(d.Message)
	if err != nil {
		return fmt.Errorf("encoding dead-lettered message: %w", err)
	}
	if err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.dlqKey,
		Values: map[string]any{fieldPayload: raw, "deliveryCount": d.DeliveryCount},
	}).Err(); err != nil {
		return fmt.Errorf("dead-lettering message %s: %w", d.ID, err)
	}
	telemetry.QueueDeadLetteredTotal.Inc()
	return q.Ack(ctx, d.ID)
}

// Depth reports the stream's length as XLEN returns it. Acknowledged
// entries stay on the stream, so the count includes them as well as
// undelivered and pending ones.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	length, err := q.rdb.XLen(ctx, q.streamKey).Result()
	if err != nil {
		return 0, fmt.Errorf("reading stream length: %w", err)
	}
	return length, nil
}

// ClaimStale reclaims deliveries idle for longer than minIdle, handing
// them back to this consumer so a crashed worker's in-flight work isn't
// lost. Callers should run this periodically alongside Receive.
func (q *Queue) ClaimStale(ctx context.Context, minIdle time.Duration, count int64) ([]Delivery, error) {
	msgs, _, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.streamKey,
		Group:    q.groupName,
		Consumer: q.consumer,
		MinIdle:  minIdle,
		Start:    "0",
		Count:    count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("claiming stale deliveries: %w", err)
	}

	var out []Delivery
	for _, xm := range msgs {
		d, err := q.toDelivery(ctx, xm)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
