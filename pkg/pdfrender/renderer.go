// Package pdfrender implements C6 PDF Renderer: the two-pass HTML-to-PDF
// pipeline that turns a published template version plus recipient data
// into a certificate's Pass 1 (hashed) and Pass 2 (footer-stamped) PDFs.
package pdfrender

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/pkg/template"
)

// Renderer converts rendered HTML into PDFs via a headless Chrome instance
// per call. BaseURL is used to build the verification URL encoded in the
// Pass 2 QR code.
type Renderer struct {
	BaseURL       string
	RenderTimeout time.Duration
}

// NewRenderer builds a Renderer. A non-positive timeout falls back to 30s.
func NewRenderer(baseURL string, timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Renderer{BaseURL: strings.TrimRight(baseURL, "/"), RenderTimeout: timeout}
}

// Render runs the full two-pass pipeline described in SPEC_FULL.md §4.6:
// process the template, inject page styles, convert to PDF (Pass 1), hash
// the result, build and insert the verification footer, and convert again
// (Pass 2).
func (r *Renderer) Render(ctx context.Context, in Input) (Output, error) {
	env, err := buildEnv(in)
	if err != nil {
		return Output{}, fmt.Errorf("building template context: %w", err)
	}

	registrationName := uuid.New().String()
	registerRender(registrationName)
	defer unregisterRender(registrationName)

	renderedHTML, err := ProcessTemplate(in.Version.HTMLContent, env)
	if err != nil {
		return Output{}, fmt.Errorf("processing template: %w: %w", apperr.ErrRenderFailed, err)
	}

	settings, err := template.ParseSettings(in.Version.Settings)
	if err != nil {
		return Output{}, fmt.Errorf("parsing render settings: %w: %w", apperr.ErrRenderFailed, err)
	}
	pass1HTML := injectStyles(renderedHTML, in.Version.CSSStyles, settings)

	p1, err := r.convertToPDF(ctx, pass1HTML)
	if err != nil {
		return Output{}, fmt.Errorf("pass 1 conversion: %w: %w", apperr.ErrRenderFailed, err)
	}

	sum := sha256.Sum256(p1)
	hash := base64.StdEncoding.EncodeToString(sum[:])

	verificationURL := fmt.Sprintf("%s/api/certificates/verify?hash=%s", r.BaseURL, url.QueryEscape(hash))
	qrDataURI, err := generateQRDataURI(verificationURL)
	if err != nil {
		return Output{}, fmt.Errorf("%w: %w", apperr.ErrRenderFailed, err)
	}

	footer := buildFooterHTML(in.Certificate.Number, in.Certificate.IssuedAt, verificationURL, qrDataURI)
	pass2HTML := insertFooter(pass1HTML, footer)

	p2, err := r.convertToPDF(ctx, pass2HTML)
	if err != nil {
		// Pass 1 succeeded and is already hashed; surface that much so the
		// caller can decide whether a partial result is useful, alongside
		// the render failure.
		return Output{Pass1PDF: p1, Hash: hash}, fmt.Errorf("pass 2 conversion: %w: %w", apperr.ErrRenderFailed, err)
	}

	return Output{Pass1PDF: p1, Pass2PDF: p2, Hash: hash}, nil
}

// convertToPDF runs one HTML document through a fresh, isolated chromedp
// browser context and returns the resulting PDF bytes.
func (r *Renderer) convertToPDF(ctx context.Context, htmlContent string) ([]byte, error) {
	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, r.RenderTimeout)
	defer timeoutCancel()

	var pdfBuf []byte
	dataURI := "data:text/html;charset=utf-8," + url.PathEscape(htmlContent)
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(dataURI),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuf, nil
}
