// Package fieldschema implements C4 Field-Schema Validator: checking a
// certificate recipient payload against a template version's field schema.
package fieldschema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
)

// Rule is one field's schema entry.
type Rule struct {
	Type      string   `json:"type"`
	Required  bool     `json:"required"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
}

// Report collects every validation failure found, not just the first.
type Report struct {
	Errors []string
}

// OK reports whether validation produced no errors.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

// Validate checks recipientData against fieldSchema. An empty schema skips
// validation entirely (no errors). A non-empty schema combined with
// null/empty recipient data fails immediately. Extra recipient fields not
// named by the schema are permitted and logged at debug.
func Validate(recipientData, fieldSchema json.RawMessage, logger *slog.Logger) (Report, error) {
	if len(fieldSchema) == 0 {
		return Report{}, nil
	}

	var schema map[string]Rule
	if err := json.Unmarshal(fieldSchema, &schema); err != nil {
		return Report{}, fmt.Errorf("parsing field schema: %w", err)
	}
	if len(schema) == 0 {
		return Report{}, nil
	}

	var recipient map[string]any
	if len(recipientData) == 0 {
		return Report{Errors: []string{"recipient data is empty"}}, nil
	}
	if err := json.Unmarshal(recipientData, &recipient); err != nil || recipient == nil {
		return Report{Errors: []string{"recipient data is empty"}}, nil
	}

	var errs []string
	for field, rule := range schema {
		val, present := recipient[field]
		if !present {
			if rule.Required {
				errs = append(errs, fmt.Sprintf("%s is required", field))
			}
			continue
		}
		errs = append(errs, checkValue(field, val, rule)...)
	}

	if logger != nil {
		for field := range recipient {
			if _, known := schema[field]; !known {
				logger.Debug("recipient field not declared in schema", "field", field)
			}
		}
	}

	return Report{Errors: errs}, nil
}

func checkValue(field string, val any, rule Rule) []string {
	switch rule.Type {
	case "string":
		return checkString(field, val, rule)
	case "number", "integer":
		return checkNumber(field, val, rule)
	case "boolean":
		if _, ok := val.(bool); !ok {
			return []string{fmt.Sprintf("%s must be a boolean", field)}
		}
	case "array":
		if _, ok := val.([]any); !ok {
			return []string{fmt.Sprintf("%s must be an array", field)}
		}
	case "object":
		if _, ok := val.(map[string]any); !ok {
			return []string{fmt.Sprintf("%s must be an object", field)}
		}
	}
	return nil
}

func checkString(field string, val any, rule Rule) []string {
	s, ok := val.(string)
	if !ok {
		return []string{fmt.Sprintf("%s must be a string", field)}
	}

	var errs []string
	if rule.MinLength != nil && len(s) < *rule.MinLength {
		errs = append(errs, fmt.Sprintf("%s must be at least %d characters", field, *rule.MinLength))
	}
	if rule.MaxLength != nil && len(s) > *rule.MaxLength {
		errs = append(errs, fmt.Sprintf("%s must be at most %d characters", field, *rule.MaxLength))
	}
	if rule.Pattern != "" {
		// Full match, per SPEC_FULL.md §4.4: anchor so a rule like "[0-9]{3}"
		// can't be satisfied by a mere substring of a longer value.
		re, err := regexp.Compile(`^(?:` + rule.Pattern + `)$`)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s has an invalid pattern rule", field))
		} else if !re.MatchString(s) {
			errs = append(errs, fmt.Sprintf("%s does not match the required pattern", field))
		}
	}
	return errs
}

func checkNumber(field string, val any, rule Rule) []string {
	n, ok := val.(float64)
	if !ok {
		return []string{fmt.Sprintf("%s must be a number", field)}
	}

	var errs []string
	if rule.Type == "integer" && n != float64(int64(n)) {
		errs = append(errs, fmt.Sprintf("%s must be a whole number", field))
	}
	if rule.Minimum != nil && n < *rule.Minimum {
		errs = append(errs, fmt.Sprintf("%s must be >= %v", field, *rule.Minimum))
	}
	if rule.Maximum != nil && n > *rule.Maximum {
		errs = append(errs, fmt.Sprintf("%s must be <= %v", field, *rule.Maximum))
	}
	return errs
}
