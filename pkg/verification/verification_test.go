package verification

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/certforge/certforge/internal/apperr"
)

func TestVerify_RejectsEmptyHash(t *testing.T) {
	s := &Service{Logger: slog.Default()}
	_, err := s.Verify(context.Background(), "")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Verify(\"\") error = %v, want ErrValidation", err)
	}
}

func TestVerify_RejectsOverLongHash(t *testing.T) {
	s := &Service{Logger: slog.Default()}
	_, err := s.Verify(context.Background(), strings.Repeat("a", maxHashLength+1))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Verify(overlong) error = %v, want ErrValidation", err)
	}
}
