// Package apperr defines the tagged error kinds shared across certforge's
// domain packages and the HTTP boundary that maps them to status codes.
package apperr

import "errors"

// Sentinel errors for the kinds listed in SPEC_FULL.md §7. Domain packages
// wrap these with fmt.Errorf("...: %w", ErrX) so errors.Is keeps working
// through layers while the message stays specific to the call site.
var (
	ErrMissingTenant            = errors.New("missing tenant")
	ErrInvalidTenant            = errors.New("invalid tenant")
	ErrTenantNotFound           = errors.New("tenant not found")
	ErrTenantSchemaCreateFailed = errors.New("tenant schema creation failed")
	ErrValidation               = errors.New("validation failed")
	ErrIllegalTransition        = errors.New("illegal state transition")
	ErrQuotaExceeded            = errors.New("quota exceeded")
	ErrNotFound                 = errors.New("not found")
	ErrQueuePublishFailed       = errors.New("queue publish failed")
	ErrStorageTransient         = errors.New("transient storage error")
	ErrRenderFailed             = errors.New("render failed")
)
