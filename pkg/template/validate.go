package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/certforge/certforge/internal/apperr"
)

// Validate enforces C3's validate rule: rejects empty HTML, empty or
// non-object fieldSchema, and a missing createdBy.
func Validate(p CreateVersionParams) error {
	var problems []string

	if strings.TrimSpace(p.HTMLContent) == "" {
		problems = append(problems, "htmlContent must not be empty")
	}

	if len(p.FieldSchema) == 0 {
		problems = append(problems, "fieldSchema must not be empty")
	} else {
		var asObject map[string]json.RawMessage
		if err := json.Unmarshal(p.FieldSchema, &asObject); err != nil {
			problems = append(problems, "fieldSchema must be a JSON object")
		}
	}

	if strings.TrimSpace(p.CreatedBy) == "" {
		problems = append(problems, "createdBy is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(problems, "; "), apperr.ErrValidation)
	}
	return nil
}
