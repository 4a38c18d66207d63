package pdfrender

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/certforge/certforge/pkg/template"
)

// CertificateContext carries the immutable certificate fields the renderer
// needs. IssuedAt doubles as the deterministic "now" source inside Pass 1 —
// never wall-clock time, so two renders of the same inputs hash identically.
type CertificateContext struct {
	ID        uuid.UUID
	Number    string
	IssuedAt  time.Time
	ExpiresAt *time.Time
}

// TemplateContext carries the owning template's stable identifiers.
type TemplateContext struct {
	Code string
	Name string
}

// Input is everything Render needs for one certificate.
type Input struct {
	Version     template.TemplateVersion
	Template    TemplateContext
	Certificate CertificateContext
	Recipient   json.RawMessage
	Metadata    json.RawMessage
}

// Output is the artifact of a two-pass render.
type Output struct {
	Pass1PDF []byte
	Pass2PDF []byte
	Hash     string // base64 SHA-256 of Pass1PDF
}

// buildEnv assembles the template context variables from SPEC_FULL.md
// §4.6 step 1: recipient, metadata, certificate, template, templateVersion,
// and date/time helpers sourced from certificate fields only.
func buildEnv(in Input) (map[string]any, error) {
	var recipient map[string]any
	if len(in.Recipient) > 0 {
		if err := json.Unmarshal(in.Recipient, &recipient); err != nil {
			return nil, fmt.Errorf("parsing recipient data: %w", err)
		}
	}

	var metadata map[string]any
	if len(in.Metadata) > 0 {
		if err := json.Unmarshal(in.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("parsing metadata: %w", err)
		}
	}

	cert := map[string]any{
		"id":       in.Certificate.ID.String(),
		"number":   in.Certificate.Number,
		"issuedAt": in.Certificate.IssuedAt.Format(time.RFC3339),
	}
	if in.Certificate.ExpiresAt != nil {
		cert["expiresAt"] = in.Certificate.ExpiresAt.Format(time.RFC3339)
	}

	return map[string]any{
		"recipient": recipient,
		"metadata":  metadata,
		"certificate": cert,
		"template": map[string]any{
			"code": in.Template.Code,
			"name": in.Template.Name,
		},
		"templateVersion": map[string]any{
			"id":      in.Version.ID.String(),
			"version": in.Version.Version,
		},
		// Deterministic date helper: derived from the certificate's own
		// issuedAt field, never from wall-clock time.
		"now": in.Certificate.IssuedAt.Format("2006-01-02"),
	}, nil
}
