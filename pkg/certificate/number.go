package certificate

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// generateNumber assigns a certificate number of the form
// {TEMPLATE_CODE}-{yyyymmdd}-{RAND6}, or CERT-{yyyymmdd}-{RAND6} when no
// template code is available (SPEC_FULL.md §6).
func generateNumber(templateCode string, issuedAt time.Time) (string, error) {
	suffix, err := randomHex6()
	if err != nil {
		return "", err
	}

	prefix := strings.ToUpper(strings.TrimSpace(templateCode))
	if prefix == "" {
		prefix = "CERT"
	}

	return fmt.Sprintf("%s-%s-%s", prefix, issuedAt.Format("20060102"), suffix), nil
}

func randomHex6() (string, error) {
	const hexDigits = "0123456789ABCDEF"
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating random suffix: %w", err)
	}
	out := make([]byte, 6)
	for i, b := range buf {
		out[i] = hexDigits[int(b)%len(hexDigits)]
	}
	return string(out), nil
}
