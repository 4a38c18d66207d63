package template

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certforge/certforge/internal/authedge"
	"github.com/certforge/certforge/internal/httpserver"
	"github.com/certforge/certforge/pkg/tenant"
)

// Handler exposes the tenant-scoped template administration API.
// Read/write operations reuse the schema-scoped connection C1's
// middleware already checked out; Publish opens its own transaction
// since it must lock the version row across two statements.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler builds a Handler over pool.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// Routes returns a chi.Router with every tenant-scoped template route
// mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreateTemplate)
	r.Get("/", h.handleListTemplates)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetTemplate)
		r.Delete("/", h.handleDeleteTemplate)
		r.Post("/versions", h.handleCreateVersion)
		r.Get("/versions", h.handleListVersions)
	})
	r.Route("/versions/{versionId}", func(r chi.Router) {
		r.Get("/", h.handleGetVersion)
		r.Post("/publish", h.handlePublish)
		r.Post("/archive", h.handleArchive)
		r.Post("/mark-draft", h.handleMarkDraft)
	})
	return r
}

type createTemplateRequest struct {
	CustomerID  int64  `json:"customer_id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if !httpserver.DecodeOrError(w, r, &req) {
		return
	}

	store, ok := h.storeFromContext(w, r)
	if !ok {
		return
	}
	tmpl, err := store.CreateTemplate(r.Context(), CreateTemplateParams{
		CustomerID:  req.CustomerID,
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
	})
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, tmpl)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFromContext(w, r)
	if !ok {
		return
	}
	list, err := store.ListTemplates(r.Context())
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, list)
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt64Param(w, r, "id")
	if !ok {
		return
	}
	store, ok := h.storeFromContext(w, r)
	if !ok {
		return
	}
	tmpl, err := store.GetTemplate(r.Context(), id)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, tmpl)
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt64Param(w, r, "id")
	if !ok {
		return
	}
	store, ok := h.storeFromContext(w, r)
	if !ok {
		return
	}
	if err := store.DeleteTemplate(r.Context(), id); err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createVersionRequest struct {
	HTMLContent string          `json:"html_content"`
	FieldSchema json.RawMessage `json:"field_schema"`
	CSSStyles   string          `json:"css_styles"`
	Settings    json.RawMessage `json:"settings"`
}

func (h *Handler) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	templateID, ok := parseInt64Param(w, r, "id")
	if !ok {
		return
	}
	var req createVersionRequest
	if !httpserver.DecodeOrError(w, r, &req) {
		return
	}

	store, ok := h.storeFromContext(w, r)
	if !ok {
		return
	}
	v, err := store.CreateVersion(r.Context(), CreateVersionParams{
		TemplateID:  templateID,
		HTMLContent: req.HTMLContent,
		FieldSchema: req.FieldSchema,
		CSSStyles:   req.CSSStyles,
		Settings:    req.Settings,
		CreatedBy:   authedge.CallerID(r.Context()),
	})
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, v)
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	templateID, ok := parseInt64Param(w, r, "id")
	if !ok {
		return
	}
	store, ok := h.storeFromContext(w, r)
	if !ok {
		return
	}
	list, err := store.ListVersions(r.Context(), templateID)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, list)
}

func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	versionID, ok := parseUUIDParam(w, r, "versionId")
	if !ok {
		return
	}
	store, ok := h.storeFromContext(w, r)
	if !ok {
		return
	}
	v, err := store.FindVersion(r.Context(), versionID)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, v)
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	versionID, ok := parseUUIDParam(w, r, "versionId")
	if !ok {
		return
	}
	schema, err := tenant.Require(r.Context())
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}

	var v TemplateVersion
	err = tenant.RunInTx(r.Context(), h.pool, schema, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		v, err = NewStore(tx).Publish(ctx, tx, versionID)
		return err
	})
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, v)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	versionID, ok := parseUUIDParam(w, r, "versionId")
	if !ok {
		return
	}
	store, ok := h.storeFromContext(w, r)
	if !ok {
		return
	}
	v, err := store.Archive(r.Context(), versionID)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, v)
}

func (h *Handler) handleMarkDraft(w http.ResponseWriter, r *http.Request) {
	versionID, ok := parseUUIDParam(w, r, "versionId")
	if !ok {
		return
	}
	store, ok := h.storeFromContext(w, r)
	if !ok {
		return
	}
	v, err := store.MarkDraft(r.Context(), versionID)
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, v)
}

// storeFromContext builds a Store over the schema-scoped connection C1's
// middleware already bound to this request.
func (h *Handler) storeFromContext(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	conn := tenant.ConnFromContext(r.Context())
	if conn == nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "no tenant connection bound")
		return nil, false
	}
	return NewStore(conn), true
}

func parseInt64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid "+name)
		return 0, false
	}
	return id, true
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid "+name)
		return uuid.UUID{}, false
	}
	return id, true
}
