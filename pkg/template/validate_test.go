package template

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/certforge/certforge/internal/apperr"
)

func TestValidate(t *testing.T) {
	validSchema := json.RawMessage(`{"name":{"type":"string","required":true}}`)

	tests := []struct {
		name    string
		params  CreateVersionParams
		wantErr bool
	}{
		{
			name: "valid",
			params: CreateVersionParams{
				HTMLContent: "<html></html>",
				FieldSchema: validSchema,
				CreatedBy:   "alice",
			},
			wantErr: false,
		},
		{
			name: "empty html",
			params: CreateVersionParams{
				HTMLContent: "  ",
				FieldSchema: validSchema,
				CreatedBy:   "alice",
			},
			wantErr: true,
		},
		{
			name: "empty field schema",
			params: CreateVersionParams{
				HTMLContent: "<html></html>",
				CreatedBy:   "alice",
			},
			wantErr: true,
		},
		{
			name: "field schema not an object",
			params: CreateVersionParams{
				HTMLContent: "<html></html>",
				FieldSchema: json.RawMessage(`["not", "an", "object"]`),
				CreatedBy:   "alice",
			},
			wantErr: true,
		},
		{
			name: "missing createdBy",
			params: CreateVersionParams{
				HTMLContent: "<html></html>",
				FieldSchema: validSchema,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestParseSettings_DefaultsOnEmpty(t *testing.T) {
	got, err := ParseSettings(nil)
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}
	want := DefaultRenderSettings()
	if got != want {
		t.Errorf("ParseSettings(nil) = %+v, want defaults %+v", got, want)
	}
}

func TestParseSettings_Overrides(t *testing.T) {
	got, err := ParseSettings(json.RawMessage(`{"page_size":"Letter","orientation":"landscape"}`))
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}
	if got.PageSize != "Letter" || got.Orientation != "landscape" {
		t.Errorf("unexpected settings: %+v", got)
	}
}
