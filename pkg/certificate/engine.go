package certificate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/telemetry"
	"github.com/certforge/certforge/pkg/customer"
	"github.com/certforge/certforge/pkg/fieldschema"
	"github.com/certforge/certforge/pkg/hashindex"
	"github.com/certforge/certforge/pkg/objectstore"
	"github.com/certforge/certforge/pkg/pdfrender"
	"github.com/certforge/certforge/pkg/template"
	"github.com/certforge/certforge/pkg/tenant"
)

// QueuePublisher is C9's contract as seen by the engine: publish a
// generation request for async processing. Defined here, rather than
// importing the queue package, so the engine depends on the narrow
// interface it actually uses.
type QueuePublisher interface {
	Publish(ctx context.Context, certificateID uuid.UUID, tenantSchema string, isPreview bool) error
}

// Engine is C8 Certificate Engine: the only component allowed to advance a
// certificate's status.
type Engine struct {
	Pool       *pgxpool.Pool
	Customers  *customer.Registry
	Renderer   *pdfrender.Renderer
	Objects    objectstore.Store
	Queue      QueuePublisher
	Bucket     string
	BaseURL    string
	Logger     *slog.Logger
}

// Generate validates the request, assigns defaults, enforces the monthly
// quota, and persists a PENDING row, all inside one transaction. In sync
// mode it then drives the render pipeline inline before returning; in
// async mode it enqueues the work and returns the PENDING row.
func (e *Engine) Generate(ctx context.Context, schema string, req GenerateRequest, mode string, preview bool) (Certificate, error) {
	cust, err := e.Customers.CustomerOf(ctx, schema)
	if err != nil {
		return Certificate{}, err
	}

	var version template.TemplateVersion
	var tmpl template.Template
	var cert Certificate

	err = tenant.RunInTx(ctx, e.Pool, schema, func(ctx context.Context, tx pgx.Tx) error {
		templateStore := template.NewStore(tx)

		var err error
		version, err = templateStore.FindPublishedVersion(ctx, req.TemplateVersionID)
		if err != nil {
			return err
		}
		tmpl, err = templateStore.GetTemplate(ctx, version.TemplateID)
		if err != nil {
			return err
		}

		report, err := fieldschema.Validate(req.RecipientData, version.FieldSchema, e.Logger)
		if err != nil {
			return fmt.Errorf("validating recipient data: %w", apperr.ErrValidation)
		}
		if !report.OK() {
			return fmt.Errorf("recipient data failed validation: %v: %w", report.Errors, apperr.ErrValidation)
		}

		customerID := req.CustomerID
		if customerID == 0 {
			customerID = cust.ID
		}

		issuedAt := time.Now().UTC()
		monthStart := time.Date(issuedAt.Year(), issuedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, 0)

		certStore := NewStore(tx)
		count, err := certStore.CountInMonth(ctx, monthStart, monthEnd)
		if err != nil {
			return err
		}
		if cust.MaxCertificatesPerMonth > 0 && count >= cust.MaxCertificatesPerMonth {
			return fmt.Errorf("customer %d has reached its monthly certificate quota of %d: %w", cust.ID, cust.MaxCertificatesPerMonth, apperr.ErrQuotaExceeded)
		}

		number := req.CertificateNumber
		if number == "" {
			number, err = generateNumber(tmpl.Code, issuedAt)
			if err != nil {
				return err
			}
		}

		recipientData := req.RecipientData
		if len(recipientData) == 0 {
			recipientData = []byte(`{}`)
		}
		metadata := req.Metadata
		if len(metadata) == 0 {
			metadata = []byte(`{}`)
		}

		var issuedBy *string
		if req.IssuedBy != "" {
			issuedBy = &req.IssuedBy
		}

		cert, err = certStore.Create(ctx, createParams{
			CustomerID:        customerID,
			TemplateVersionID: version.ID,
			CertificateNumber: number,
			RecipientData:     recipientData,
			Metadata:          metadata,
			ExpiresAt:         req.ExpiresAt,
			IssuedBy:          issuedBy,
			IssuedAt:          issuedAt,
		})
		return err
	})
	if err != nil {
		return Certificate{}, err
	}

	switch mode {
	case ModeAsync:
		if err := e.Queue.Publish(ctx, cert.ID, schema, preview); err != nil {
			telemetry.CertificatesGeneratedTotal.WithLabelValues(mode, "queue_error").Inc()
			return Certificate{}, fmt.Errorf("publishing generation message for certificate %s: %w", cert.ID, apperr.ErrQueuePublishFailed)
		}
		telemetry.CertificatesGeneratedTotal.WithLabelValues(mode, "queued").Inc()
		return cert, nil
	default:
		processed, err := e.Process(ctx, schema, cert.ID, preview)
		outcome := "processed"
		if err != nil {
			outcome = "error"
		}
		telemetry.CertificatesGeneratedTotal.WithLabelValues(mode, outcome).Inc()
		return processed, err
	}
}

// Process drives one certificate through PROCESSING to its terminal
// outcome (ISSUED, preview-ready PENDING, or FAILED). It is the shared
// driver behind both Generate's sync path and the worker (C10), and
// re-reads the row's current state before acting so an at-least-once
// redelivery is safe.
func (e *Engine) Process(ctx context.Context, schema string, id uuid.UUID, preview bool) (Certificate, error) {
	var cert Certificate
	var tmpl template.Template
	var version template.TemplateVersion
	skip := false

	err := tenant.RunInTx(ctx, e.Pool, schema, func(ctx context.Context, tx pgx.Tx) error {
		certStore := NewStore(tx)

		current, err := certStore.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusIssued {
			cert = current
			skip = true
			return nil
		}
		if current.Status != StatusPending && current.Status != StatusProcessing && current.Status != StatusFailed {
			cert = current
			skip = true
			return nil
		}

		version, err = template.NewStore(tx).FindVersion(ctx, current.TemplateVersionID)
		if err != nil {
			return err
		}
		tmpl, err = template.NewStore(tx).GetTemplate(ctx, version.TemplateID)
		if err != nil {
			return err
		}

		cert, err = certStore.MarkProcessing(ctx, id)
		return err
	})
	if err != nil || skip {
		return cert, err
	}

	renderStart := time.Now()
	out, renderErr := e.Renderer.Render(ctx, pdfrender.Input{
		Version:  version,
		Template: pdfrender.TemplateContext{Code: tmpl.Code, Name: tmpl.Name},
		Certificate: pdfrender.CertificateContext{
			ID:        cert.ID,
			Number:    cert.CertificateNumber,
			IssuedAt:  cert.IssuedAt,
			ExpiresAt: cert.ExpiresAt,
		},
		Recipient: cert.RecipientData,
		Metadata:  cert.Metadata,
	})
	telemetry.RenderDuration.WithLabelValues("pass2").Observe(time.Since(renderStart).Seconds())

	// A redelivery after a transient Put failure re-renders to recover the
	// Pass 2 bytes, but the hash was already persisted on the prior attempt;
	// re-inserting it would hit hashindex's unique constraint and reject
	// the second SetSignedHash, driving the certificate to FAILED instead
	// of letting the retry reach ISSUED.
	if out.Hash != "" && cert.SignedHash == nil {
		if hashErr := tenant.RunInTx(ctx, e.Pool, schema, func(ctx context.Context, tx pgx.Tx) error {
			if _, err := hashindex.NewStore(tx).Insert(ctx, cert.ID, "SHA-256", out.Hash); err != nil {
				return err
			}
			var err error
			cert, err = NewStore(tx).SetSignedHash(ctx, cert.ID, out.Hash)
			return err
		}); hashErr != nil {
			e.Logger.Error("persisting certificate hash", "certificate_id", cert.ID, "error", hashErr)
			if renderErr == nil {
				renderErr = hashErr
			}
		}
	}

	if renderErr != nil {
		// Render failures are not retried by the engine: they go straight
		// to FAILED. Storage transient errors during Put (below) are the
		// only ones left at PROCESSING for the worker's retry budget.
		return e.fail(ctx, schema, cert.ID, renderErr)
	}

	objectKey := objectstore.ObjectKey(schema, cert.ID, cert.IssuedAt)
	if err := e.Objects.Put(ctx, e.Bucket, objectKey, out.Pass2PDF, "application/pdf"); err != nil {
		if errors.Is(err, apperr.ErrStorageTransient) {
			// Leave the row at PROCESSING so a redelivery resumes from
			// here instead of re-rendering; the worker owns the retry
			// budget and calls MarkAsFailed once it's exhausted.
			return cert, err
		}
		return e.fail(ctx, schema, cert.ID, err)
	}

	err = tenant.RunInTx(ctx, e.Pool, schema, func(ctx context.Context, tx pgx.Tx) error {
		certStore := NewStore(tx)
		var err error
		if preview {
			cert, err = certStore.MarkPreviewReady(ctx, cert.ID, objectKey, time.Now().UTC())
		} else {
			cert, err = certStore.MarkIssued(ctx, cert.ID, objectKey)
		}
		return err
	})
	if err != nil {
		return Certificate{}, err
	}
	if !preview {
		telemetry.CertificatesIssuedTotal.Inc()
	}
	return cert, nil
}

// fail transitions a certificate to FAILED, recording cause's message in
// metadata, and returns the FAILED row together with cause. If writing
// FAILED itself fails, it returns a zero Certificate and an error wrapping
// that write error, which the worker maps to a negative ack with requeue.
func (e *Engine) fail(ctx context.Context, schema string, id uuid.UUID, cause error) (Certificate, error) {
	var cert Certificate
	err := tenant.RunInTx(ctx, e.Pool, schema, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		cert, err = NewStore(tx).MarkFailed(ctx, id, cause.Error(), time.Now().UTC())
		return err
	})
	if err != nil {
		return Certificate{}, fmt.Errorf("marking certificate %s failed after %q: %w", id, cause, err)
	}
	telemetry.CertificatesFailedTotal.Inc()
	return cert, cause
}

// MarkAsFailed transitions a certificate to FAILED with msg recorded in its
// metadata. Exported for the worker (C10) to call once it has exhausted its
// retry budget for a transient storage failure left mid-flight at
// PROCESSING by Process.
func (e *Engine) MarkAsFailed(ctx context.Context, schema string, id uuid.UUID, msg string) (Certificate, error) {
	var cert Certificate
	err := tenant.RunInTx(ctx, e.Pool, schema, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		cert, err = NewStore(tx).MarkFailed(ctx, id, msg, time.Now().UTC())
		return err
	})
	if err == nil {
		telemetry.CertificatesFailedTotal.Inc()
	}
	return cert, err
}

// IssuePreview transitions a pending preview directly to ISSUED without
// re-rendering.
func (e *Engine) IssuePreview(ctx context.Context, schema string, id uuid.UUID) (Certificate, error) {
	var cert Certificate
	err := tenant.RunInTx(ctx, e.Pool, schema, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		cert, err = NewStore(tx).IssuePreview(ctx, id)
		return err
	})
	return cert, err
}

// Revoke transitions a certificate to REVOKED.
func (e *Engine) Revoke(ctx context.Context, schema string, id uuid.UUID) (Certificate, error) {
	var cert Certificate
	err := tenant.RunInTx(ctx, e.Pool, schema, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		cert, err = NewStore(tx).Revoke(ctx, id)
		return err
	})
	return cert, err
}

// GetDownloadURL presigns a time-limited GET URL for the certificate's
// stored PDF.
func (e *Engine) GetDownloadURL(ctx context.Context, schema string, id uuid.UUID, ttl time.Duration) (string, error) {
	cert, err := e.get(ctx, schema, id)
	if err != nil {
		return "", err
	}
	if cert.StoragePath == nil {
		return "", fmt.Errorf("certificate %s has no stored artifact: %w", id, apperr.ErrNotFound)
	}
	return e.Objects.Presign(ctx, e.Bucket, *cert.StoragePath, ttl)
}

// GetVerificationURL constructs the public verification URL for a
// certificate's signed hash.
func (e *Engine) GetVerificationURL(ctx context.Context, schema string, id uuid.UUID) (string, error) {
	cert, err := e.get(ctx, schema, id)
	if err != nil {
		return "", err
	}
	if cert.SignedHash == nil {
		return "", fmt.Errorf("certificate %s has no signed hash: %w", id, apperr.ErrNotFound)
	}
	return fmt.Sprintf("%s/api/certificates/verify/%s", e.BaseURL, *cert.SignedHash), nil
}

func (e *Engine) get(ctx context.Context, schema string, id uuid.UUID) (Certificate, error) {
	ctx, err := tenant.Bind(ctx, schema)
	if err != nil {
		return Certificate{}, err
	}
	conn, err := tenant.Acquire(ctx, e.Pool)
	if err != nil {
		return Certificate{}, err
	}
	defer conn.Release()
	return NewStore(conn).FindByID(ctx, id)
}
