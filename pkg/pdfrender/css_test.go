package pdfrender

import (
	"strings"
	"testing"

	"github.com/certforge/certforge/pkg/template"
)

func TestInjectStyles_IntoExistingHead(t *testing.T) {
	in := "<html><head></head><body>hi</body></html>"
	out := injectStyles(in, "body { color: red; }", template.DefaultRenderSettings())

	if !strings.Contains(out, "@page") {
		t.Errorf("expected @page rule, got %s", out)
	}
	if !strings.Contains(out, "body { color: red; }") {
		t.Errorf("expected version CSS preserved, got %s", out)
	}
	if strings.Index(out, "<style>") > strings.Index(out, "<body>") {
		t.Errorf("style block should precede body: %s", out)
	}
}

func TestInjectStyles_CreatesHeadWhenMissing(t *testing.T) {
	in := "<html><body>hi</body></html>"
	out := injectStyles(in, "", template.DefaultRenderSettings())
	if !strings.Contains(out, "<head><style>") {
		t.Errorf("expected a synthesized <head>, got %s", out)
	}
}

func TestInjectStyles_PrependsWhenNoHTMLTag(t *testing.T) {
	in := "<div>fragment</div>"
	out := injectStyles(in, "", template.DefaultRenderSettings())
	if !strings.HasPrefix(out, "<style>") {
		t.Errorf("expected style block prepended, got %s", out)
	}
}
