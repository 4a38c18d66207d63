package pdfrender

import (
	"strings"
	"testing"
	"time"
)

func TestInsertFooter_BeforeTrailingDiv(t *testing.T) {
	in := `<html><body><div class="content">hi</div></body></html>`
	out := insertFooter(in, "<FOOTER>")
	want := `<html><body><div class="content">hi<FOOTER></div></body></html>`
	if out != want {
		t.Errorf("insertFooter() = %q, want %q", out, want)
	}
}

func TestInsertFooter_BeforeBodyWhenTrailingTextAfterDiv(t *testing.T) {
	in := `<html><body><div class="content">hi</div> trailing text</body></html>`
	out := insertFooter(in, "<FOOTER>")
	want := `<html><body><div class="content">hi</div> trailing text<FOOTER></body></html>`
	if out != want {
		t.Errorf("insertFooter() = %q, want %q", out, want)
	}
}

func TestInsertFooter_BeforeHTMLWhenNoBody(t *testing.T) {
	in := `<html><div>content</div></html>`
	out := insertFooter(in, "<FOOTER>")
	want := `<html><div>content</div><FOOTER></html>`
	if out != want {
		t.Errorf("insertFooter() = %q, want %q", out, want)
	}
}

func TestInsertFooter_AppendedWhenNoMarkers(t *testing.T) {
	in := `<div>just a fragment</div>`
	out := insertFooter(in, "<FOOTER>")
	want := `<div>just a fragment</div><FOOTER>`
	if out != want {
		t.Errorf("insertFooter() = %q, want %q", out, want)
	}
}

func TestBuildFooterHTML(t *testing.T) {
	issuedAt := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	out := buildFooterHTML("CERT-20260701-ABC123", issuedAt, "https://certforge.example/verify?hash=abc", "data:image/png;base64,XYZ")
	if !strings.Contains(out, "CERT-20260701-ABC123") {
		t.Errorf("footer missing certificate number: %s", out)
	}
	if !strings.Contains(out, "2026-07-01") {
		t.Errorf("footer missing issue date: %s", out)
	}
	if !strings.Contains(out, "data:image/png;base64,XYZ") {
		t.Errorf("footer missing QR data URI: %s", out)
	}
}

func TestGenerateQRDataURI(t *testing.T) {
	uri, err := generateQRDataURI("https://certforge.example/verify?hash=abc")
	if err != nil {
		t.Fatalf("generateQRDataURI: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("generateQRDataURI() = %q, want data URI prefix", uri)
	}
}
