package httpserver

import (
	"errors"
	"net/http"

	"github.com/certforge/certforge/internal/apperr"
)

// StatusForError maps a tagged domain error to the HTTP status the boundary
// layer must respond with, per SPEC_FULL.md §6's exit/error mapping table.
// Errors that match none of the known kinds are treated as internal.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, apperr.ErrMissingTenant):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidTenant):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrTenantNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrQuotaExceeded):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrQueuePublishFailed):
		return http.StatusInternalServerError
	case errors.Is(err, apperr.ErrRenderFailed):
		return http.StatusInternalServerError
	case errors.Is(err, apperr.ErrStorageTransient):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondDomainError writes the JSON error envelope for a domain error,
// deriving the status code via StatusForError.
func RespondDomainError(w http.ResponseWriter, err error) {
	RespondError(w, StatusForError(err), errorCode(err), err.Error())
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, apperr.ErrMissingTenant):
		return "missing_tenant"
	case errors.Is(err, apperr.ErrInvalidTenant):
		return "invalid_tenant"
	case errors.Is(err, apperr.ErrTenantNotFound):
		return "tenant_not_found"
	case errors.Is(err, apperr.ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, apperr.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, apperr.ErrValidation):
		return "validation_failed"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrQueuePublishFailed):
		return "queue_publish_failed"
	case errors.Is(err, apperr.ErrRenderFailed):
		return "render_failed"
	case errors.Is(err, apperr.ErrStorageTransient):
		return "storage_error"
	default:
		return "internal_error"
	}
}
