package pdfrender

import (
	"encoding/base64"
	"fmt"
	"html"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// generateQRDataURI encodes content (the verification URL) as a PNG QR
// code and returns it as a data: URI embeddable directly in an <img src>.
func generateQRDataURI(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("generating QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// buildFooterHTML renders the certificate number, issue date, verification
// QR code and verification URL that get appended in Pass 2.
func buildFooterHTML(certNumber string, issuedAt time.Time, verificationURL, qrDataURI string) string {
	return fmt.Sprintf(`<div class="certforge-footer">
  <p class="certforge-footer-number">Certificate No. %s</p>
  <p class="certforge-footer-date">Issued %s</p>
  <img class="certforge-footer-qr" src="%s" alt="verification QR code" />
  <p class="certforge-footer-url">%s</p>
</div>`, html.EscapeString(certNumber), issuedAt.Format("2006-01-02"), qrDataURI, html.EscapeString(verificationURL))
}

// insertFooter places footer at the document's footer insertion point:
// immediately before the last </div> preceding </body>, if that </div> has
// only whitespace after it; otherwise immediately before </body>;
// otherwise immediately before </html>; otherwise appended at the end.
func insertFooter(htmlIn, footer string) string {
	bodyIdx := strings.LastIndex(htmlIn, "</body>")
	if bodyIdx >= 0 {
		before := htmlIn[:bodyIdx]
		lastDiv := strings.LastIndex(before, "</div>")
		if lastDiv >= 0 {
			between := before[lastDiv+len("</div>"):]
			if strings.TrimSpace(between) == "" {
				return before[:lastDiv] + footer + "</div>" + between + htmlIn[bodyIdx:]
			}
		}
		return before + footer + htmlIn[bodyIdx:]
	}

	htmlIdx := strings.LastIndex(htmlIn, "</html>")
	if htmlIdx >= 0 {
		return htmlIn[:htmlIdx] + footer + htmlIn[htmlIdx:]
	}

	return htmlIn + footer
}
