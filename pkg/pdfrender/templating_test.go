package pdfrender

import "testing"

func TestRenderLiteral(t *testing.T) {
	recipient := map[string]any{"name": "Ada Lovelace", "score": 98}
	metadata := map[string]any{"course": "Algorithms"}

	got := renderLiteral("Hello {{name}}, you scored {{score}} in {{metadata.course}}.", recipient, metadata)
	want := "Hello Ada Lovelace, you scored 98 in Algorithms."
	if got != want {
		t.Errorf("renderLiteral() = %q, want %q", got, want)
	}
}

func TestRenderLiteral_UnresolvedMarkerLeftIntact(t *testing.T) {
	got := renderLiteral("Hi {{unknown.field}}", nil, nil)
	want := "Hi {{unknown.field}}"
	if got != want {
		t.Errorf("renderLiteral() = %q, want %q", got, want)
	}
}

func TestHasExpressionMarkers(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"literal only", "Hello {{name}}", false},
		{"dollar marker", "Hello ${recipient.name}", true},
		{"hash marker", "Score: #{recipient.score}", true},
		{"star marker", "*{recipient.name}", true},
		{"th attribute", `<span th:text="${recipient.name}"></span>`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasExpressionMarkers(tt.html); got != tt.want {
				t.Errorf("hasExpressionMarkers(%q) = %v, want %v", tt.html, got, tt.want)
			}
		})
	}
}

func TestRenderExpressions(t *testing.T) {
	env := map[string]any{
		"recipient": map[string]any{"name": "Ada Lovelace"},
	}
	got, err := renderExpressions("Hello ${recipient.name}!", env)
	if err != nil {
		t.Fatalf("renderExpressions: %v", err)
	}
	if want := "Hello Ada Lovelace!"; got != want {
		t.Errorf("renderExpressions() = %q, want %q", got, want)
	}
}

func TestRenderExpressions_InvalidExpressionErrors(t *testing.T) {
	_, err := renderExpressions("Hello ${recipient.name..}", map[string]any{"recipient": map[string]any{}})
	if err == nil {
		t.Fatal("expected an error for a malformed expression")
	}
}

func TestProcessTemplate_PicksEngineByContent(t *testing.T) {
	env := map[string]any{
		"recipient": map[string]any{"name": "Ada"},
		"metadata":  map[string]any{},
	}

	literalOut, err := ProcessTemplate("Hi {{name}}", env)
	if err != nil {
		t.Fatalf("ProcessTemplate (literal): %v", err)
	}
	if literalOut != "Hi Ada" {
		t.Errorf("literal output = %q, want %q", literalOut, "Hi Ada")
	}

	exprOut, err := ProcessTemplate("Hi ${recipient.name}", env)
	if err != nil {
		t.Fatalf("ProcessTemplate (expression): %v", err)
	}
	if exprOut != "Hi Ada" {
		t.Errorf("expression output = %q, want %q", exprOut, "Hi Ada")
	}
}
