// Package genworker implements C10 Generation Worker: the consumer loop
// that binds a delivered message's tenant, drives the certificate engine
// through rendering and storage, and observes the ack discipline in
// SPEC_FULL.md §7/§4.10.
package genworker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/telemetry"
	"github.com/certforge/certforge/pkg/certificate"
	"github.com/certforge/certforge/pkg/genqueue"
	"github.com/certforge/certforge/pkg/tenant"
)

// Worker drains genqueue deliveries and drives the certificate engine.
type Worker struct {
	queue  *genqueue.Queue
	engine *certificate.Engine
	logger *slog.Logger

	pollInterval time.Duration
	batchSize    int64
	claimIdle    time.Duration
}

// New builds a Worker over queue and engine.
func New(queue *genqueue.Queue, engine *certificate.Engine, logger *slog.Logger) *Worker {
	return &Worker{
		queue:        queue,
		engine:       engine,
		logger:       logger,
		pollInterval: 2 * time.Second,
		batchSize:    10,
		claimIdle:    5 * time.Minute,
	}
}

// Run drains deliveries until ctx is cancelled. It ensures the consumer
// group exists before starting.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.queue.EnsureGroup(ctx); err != nil {
		return err
	}
	w.logger.Info("generation worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("generation worker stopped")
			return nil
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) {
	if depth, err := w.queue.Depth(ctx); err == nil {
		telemetry.QueueDepth.Set(float64(depth))
	}

	deliveries, err := w.queue.Receive(ctx, w.batchSize, 0)
	if err != nil {
		w.logger.Error("receiving deliveries", "error", err)
		return
	}

	reclaimed, err := w.queue.ClaimStale(ctx, w.claimIdle, w.batchSize)
	if err != nil {
		w.logger.Error("claiming stale deliveries", "error", err)
	} else {
		deliveries = append(deliveries, reclaimed...)
	}

	for _, d := range deliveries {
		w.handle(ctx, d)
	}
}

// handle processes a single delivery with the tenant bound for its
// entire scope and guaranteed cleared afterward, regardless of outcome
// (SPEC_FULL.md §9's "no implicit inheritance across task boundaries").
func (w *Worker) handle(ctx context.Context, d genqueue.Delivery) {
	msg := d.Message
	log := w.logger.With("certificate_id", msg.CertificateID, "tenant", msg.TenantSchema, "delivery_id", d.ID)

	workCtx, err := tenant.Bind(ctx, msg.TenantSchema)
	if err != nil {
		log.Error("binding tenant failed, dead-lettering", "error", err)
		if nerr := w.queue.Nack(ctx, d); nerr != nil {
			log.Error("nack after bind failure", "error", nerr)
		}
		return
	}
	defer tenant.Clear(workCtx)

	cert, err := w.engine.Process(workCtx, msg.TenantSchema, msg.CertificateID, msg.IsPreview)
	switch {
	case err == nil:
		if ackErr := w.queue.Ack(ctx, d.ID); ackErr != nil {
			log.Error("ack failed", "error", ackErr)
		}

	case errors.Is(err, apperr.ErrStorageTransient):
		if w.queue.ExhaustsRetries(d) {
			// Retry budget spent: stop leaving the row at PROCESSING and
			// terminally fail it before it goes to the dead-letter stream.
			if _, failErr := w.engine.MarkAsFailed(workCtx, msg.TenantSchema, msg.CertificateID, err.Error()); failErr != nil {
				log.Error("marking exhausted certificate failed", "error", failErr)
			}
		} else {
			log.Warn("transient storage failure, will retry", "error", err, "delivery_count", d.DeliveryCount)
		}
		if nerr := w.queue.Nack(ctx, d); nerr != nil {
			log.Error("nack failed", "error", nerr)
		}

	case cert.ID == uuid.Nil:
		// Process returned no row: either the engine could not write FAILED
		// (SPEC_FULL.md §7's "worker cannot mark FAILED" row), or the error
		// came before the row reached PROCESSING (certificate or template
		// version lookup, the PROCESSING transition) or from the final
		// ISSUED/preview write. All of these are requeued and none marks
		// the certificate FAILED, so a missing template version leaves the
		// row PENDING while the message is retried.
		log.Error("engine could not record failure, requeueing", "error", err)
		if nerr := w.queue.Nack(ctx, d); nerr != nil {
			log.Error("nack failed", "error", nerr)
		}

	default:
		// The engine already transitioned the certificate to FAILED
		// internally (render failure or non-transient storage error).
		// The delivery is handled; nothing left to retry.
		log.Error("certificate generation failed permanently", "error", err)
		if ackErr := w.queue.Ack(ctx, d.ID); ackErr != nil {
			log.Error("ack failed", "error", ackErr)
		}
	}
}
