// Package template implements C3 Template Store: templates and their
// immutable-once-published versions.
package template

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TemplateVersion status values.
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusArchived  = "ARCHIVED"
)

// Template is owned by a customer and lives in that customer's schema.
type Template struct {
	ID             int64
	CustomerID     int64
	Name           string
	Code           string
	Description    string
	CurrentVersion int
	Metadata       json.RawMessage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TemplateVersion is an immutable-after-publish snapshot.
type TemplateVersion struct {
	ID          uuid.UUID
	TemplateID  int64
	Version     int
	HTMLContent string
	FieldSchema json.RawMessage
	CSSStyles   string
	Settings    json.RawMessage
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
}

// CreateTemplateParams are the inputs to Store.CreateTemplate.
type CreateTemplateParams struct {
	CustomerID  int64
	Name        string
	Code        string
	Description string
	Metadata    json.RawMessage
}

// CreateVersionParams are the inputs to Store.CreateVersion.
type CreateVersionParams struct {
	TemplateID  int64
	HTMLContent string
	FieldSchema json.RawMessage
	CSSStyles   string
	Settings    json.RawMessage
	CreatedBy   string
}

// RenderSettings is the concrete shape of TemplateVersion.Settings,
// injected as CSS @page rules at render time (SPEC_FULL.md §13).
type RenderSettings struct {
	PageSize      string  `json:"page_size"`
	Orientation   string  `json:"orientation"`
	MarginTop     float64 `json:"margin_top"`
	MarginRight   float64 `json:"margin_right"`
	MarginBottom  float64 `json:"margin_bottom"`
	MarginLeft    float64 `json:"margin_left"`
}

// DefaultRenderSettings is used when a version's settings are empty.
func DefaultRenderSettings() RenderSettings {
	return RenderSettings{
		PageSize:     "A4",
		Orientation:  "portrait",
		MarginTop:    20,
		MarginRight:  20,
		MarginBottom: 20,
		MarginLeft:   20,
	}
}

// ParseSettings decodes raw into a RenderSettings, falling back to defaults
// for empty input.
func ParseSettings(raw json.RawMessage) (RenderSettings, error) {
	s := DefaultRenderSettings()
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return RenderSettings{}, err
	}
	return s, nil
}
