package fieldschema

import (
	"encoding/json"
	"testing"
)

func TestValidate_EmptySchemaSkips(t *testing.T) {
	report, err := Validate(json.RawMessage(`{}`), nil, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.OK() {
		t.Errorf("expected OK, got errors: %v", report.Errors)
	}
}

func TestValidate_EmptyRecipientFailsImmediately(t *testing.T) {
	schema := json.RawMessage(`{"name":{"type":"string","required":true}}`)
	report, err := Validate(nil, schema, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.OK() {
		t.Fatal("expected failure for empty recipient data")
	}
}

func TestValidate_MissingRequiredField(t *testing.T) {
	schema := json.RawMessage(`{"name":{"type":"string","required":true},"email":{"type":"string","pattern":"^.+@.+$"}}`)
	recipient := json.RawMessage(`{"email":"a@x"}`)

	report, err := Validate(recipient, schema, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.OK() {
		t.Fatal("expected a missing-field error")
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected exactly 1 error, got %v", report.Errors)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	schema := json.RawMessage(`{
		"name": {"type":"string","required":true,"minLength":3},
		"age": {"type":"integer","minimum":0,"maximum":120}
	}`)
	recipient := json.RawMessage(`{"name":"al","age":12.5}`)

	report, err := Validate(recipient, schema, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(report.Errors) != 2 {
		t.Fatalf("expected 2 collected errors, got %v", report.Errors)
	}
}

func TestValidate_ExtraFieldsPermitted(t *testing.T) {
	schema := json.RawMessage(`{"name":{"type":"string","required":true}}`)
	recipient := json.RawMessage(`{"name":"Ada","extra":"field"}`)

	report, err := Validate(recipient, schema, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.OK() {
		t.Errorf("expected OK, got errors: %v", report.Errors)
	}
}

func TestValidate_PatternFullMatch(t *testing.T) {
	schema := json.RawMessage(`{"email":{"type":"string","pattern":"^.+@.+$"}}`)

	t.Run("matches", func(t *testing.T) {
		report, err := Validate(json.RawMessage(`{"email":"a@x"}`), schema, nil)
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if !report.OK() {
			t.Errorf("expected OK, got %v", report.Errors)
		}
	})

	t.Run("does not match", func(t *testing.T) {
		report, err := Validate(json.RawMessage(`{"email":"not-an-email"}`), schema, nil)
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if report.OK() {
			t.Fatal("expected a pattern mismatch error")
		}
	})
}

func TestValidate_PatternRejectsPartialMatch(t *testing.T) {
	schema := json.RawMessage(`{"code":{"type":"string","pattern":"[0-9]{3}"}}`)
	report, err := Validate(json.RawMessage(`{"code":"abc123"}`), schema, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.OK() {
		t.Fatal("expected a pattern mismatch error for a value that only contains a match, not is one")
	}
}

func TestValidate_IntegerRejectsFractional(t *testing.T) {
	schema := json.RawMessage(`{"count":{"type":"integer"}}`)
	report, err := Validate(json.RawMessage(`{"count":3.5}`), schema, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.OK() {
		t.Fatal("expected a whole-number error")
	}
}
