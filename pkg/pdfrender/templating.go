package pdfrender

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
)

// literalPattern matches the simple {{path}} substitution syntax.
var literalPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// markerPattern matches the three expression-engine marker forms: ${...},
// #{...} and *{...}. th:* attributes also trigger the expression engine
// but are left as plain HTML attributes; only the marker bodies are
// evaluated and substituted.
var markerPattern = regexp.MustCompile(`[$#*]\{([^}]*)\}`)

// hasExpressionMarkers decides which of the two engines a template body
// needs: the presence of a th: attribute or any ${}/#{}/*{}  marker routes
// the whole document through the expression engine; everything else uses
// plain {{name}} substitution.
func hasExpressionMarkers(htmlIn string) bool {
	return strings.Contains(htmlIn, "th:") || markerPattern.MatchString(htmlIn)
}

// ProcessTemplate renders htmlIn against env, picking the engine the
// template actually uses.
func ProcessTemplate(htmlIn string, env map[string]any) (string, error) {
	if hasExpressionMarkers(htmlIn) {
		return renderExpressions(htmlIn, env)
	}
	recipient, _ := env["recipient"].(map[string]any)
	metadata, _ := env["metadata"].(map[string]any)
	return renderLiteral(htmlIn, recipient, metadata), nil
}

// renderExpressions evaluates every ${...}/#{...}/*{...} marker body as an
// expr-lang expression against env and substitutes the result in place.
func renderExpressions(htmlIn string, env map[string]any) (string, error) {
	var firstErr error
	out := markerPattern.ReplaceAllStringFunc(htmlIn, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := markerPattern.FindStringSubmatch(m)
		expression := strings.TrimSpace(sub[1])
		if expression == "" {
			return ""
		}
		program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
		if err != nil {
			firstErr = fmt.Errorf("compiling expression %q: %w", expression, err)
			return m
		}
		result, err := expr.Run(program, env)
		if err != nil {
			firstErr = fmt.Errorf("evaluating expression %q: %w", expression, err)
			return m
		}
		if result == nil {
			return ""
		}
		return fmt.Sprintf("%v", result)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// renderLiteral substitutes every {{path}} marker by walking recipient then
// metadata for a matching dotted path. An explicit recipient. or metadata.
// prefix pins the lookup to that map; an unresolved marker is left as-is.
func renderLiteral(htmlIn string, recipient, metadata map[string]any) string {
	return literalPattern.ReplaceAllStringFunc(htmlIn, func(m string) string {
		sub := literalPattern.FindStringSubmatch(m)
		path := sub[1]

		switch {
		case strings.HasPrefix(path, "recipient."):
			if v, ok := lookupPath(recipient, strings.TrimPrefix(path, "recipient.")); ok {
				return v
			}
			return m
		case strings.HasPrefix(path, "metadata."):
			if v, ok := lookupPath(metadata, strings.TrimPrefix(path, "metadata.")); ok {
				return v
			}
			return m
		default:
			if v, ok := lookupPath(recipient, path); ok {
				return v
			}
			if v, ok := lookupPath(metadata, path); ok {
				return v
			}
			return m
		}
	})
}

// lookupPath walks a dotted key path through nested map[string]any values.
func lookupPath(m map[string]any, path string) (string, bool) {
	if m == nil {
		return "", false
	}
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		asMap, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		v, ok := asMap[part]
		if !ok {
			return "", false
		}
		cur = v
	}
	return fmt.Sprintf("%v", cur), true
}
