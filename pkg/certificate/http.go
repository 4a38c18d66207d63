package certificate

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/certforge/certforge/internal/authedge"
	"github.com/certforge/certforge/internal/httpserver"
	"github.com/certforge/certforge/pkg/tenant"
)

// Handler provides HTTP handlers for the certificates API.
type Handler struct {
	engine *Engine
}

// NewHandler builds a Handler over engine.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Routes returns a chi.Router with every tenant-scoped certificate route
// mounted. Public verification is routed separately by pkg/verification.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleGenerate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Post("/issue-preview", h.handleIssuePreview)
		r.Post("/revoke", h.handleRevoke)
		r.Get("/download", h.handleDownload)
		r.Get("/verification-url", h.handleVerificationURL)
	})
	return r
}

type generateRequest struct {
	TemplateVersionID string          `json:"template_version_id"`
	CertificateNumber string          `json:"certificate_number"`
	RecipientData     json.RawMessage `json:"recipient_data"`
	Metadata          json.RawMessage `json:"metadata"`
	ExpiresAt         *time.Time      `json:"expires_at"`
	Mode              string          `json:"mode"`
	Preview           bool            `json:"preview"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !httpserver.DecodeOrError(w, r, &req) {
		return
	}

	versionID, err := uuid.Parse(req.TemplateVersionID)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "template_version_id must be a valid UUID")
		return
	}

	schema, err := tenant.Require(r.Context())
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeSync
	}

	cert, err := h.engine.Generate(r.Context(), schema, GenerateRequest{
		TemplateVersionID: versionID,
		CertificateNumber: req.CertificateNumber,
		RecipientData:     req.RecipientData,
		Metadata:          req.Metadata,
		ExpiresAt:         req.ExpiresAt,
		IssuedBy:          authedge.CallerID(r.Context()),
	}, mode, req.Preview)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusCreated, cert)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, schema, ok := h.parseID(w, r)
	if !ok {
		return
	}

	cert, err := h.engine.get(r.Context(), schema, id)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, cert)
}

func (h *Handler) handleIssuePreview(w http.ResponseWriter, r *http.Request) {
	id, schema, ok := h.parseID(w, r)
	if !ok {
		return
	}

	cert, err := h.engine.IssuePreview(r.Context(), schema, id)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, cert)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id, schema, ok := h.parseID(w, r)
	if !ok {
		return
	}

	cert, err := h.engine.Revoke(r.Context(), schema, id)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, cert)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, schema, ok := h.parseID(w, r)
	if !ok {
		return
	}

	url, err := h.engine.GetDownloadURL(r.Context(), schema, id, 0)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) handleVerificationURL(w http.ResponseWriter, r *http.Request) {
	id, schema, ok := h.parseID(w, r)
	if !ok {
		return
	}

	url, err := h.engine.GetVerificationURL(r.Context(), schema, id)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"url": url})
}

// parseID extracts the path's {id} and the request's bound tenant schema,
// writing an error response and returning ok=false on either failure.
func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid certificate ID")
		return uuid.UUID{}, "", false
	}

	schema, err := tenant.Require(r.Context())
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return uuid.UUID{}, "", false
	}

	return id, schema, true
}
