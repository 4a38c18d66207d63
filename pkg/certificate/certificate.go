// Package certificate implements C8 Certificate Engine: the status state
// machine and orchestration of C3 (templates), C4 (field schema), C5
// (object storage), C6 (rendering) and C7 (hash index) that together turn
// a generate request into an issued certificate.
package certificate

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Certificate status values. The engine is the only component allowed to
// advance status (SPEC_FULL.md §4.8).
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusIssued     = "ISSUED"
	StatusFailed     = "FAILED"
	StatusRevoked    = "REVOKED"
)

// Generation modes accepted by Engine.Generate.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Certificate is one row in a tenant's certificates table.
type Certificate struct {
	ID                 uuid.UUID
	CustomerID         int64
	TemplateVersionID  uuid.UUID
	CertificateNumber  string
	RecipientData      json.RawMessage
	Metadata           json.RawMessage
	StoragePath        *string
	SignedHash         *string
	Status             string
	IssuedAt           time.Time
	ExpiresAt          *time.Time
	IssuedBy           *string
	PreviewGeneratedAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// GenerateRequest is the input to Engine.Generate.
type GenerateRequest struct {
	CustomerID        int64 // optional; resolved from the bound tenant when zero
	TemplateVersionID uuid.UUID
	CertificateNumber string // optional; auto-assigned when empty
	RecipientData     json.RawMessage
	Metadata          json.RawMessage
	ExpiresAt         *time.Time
	IssuedBy          string // caller identity from C13; empty means anonymous/unknown
}
