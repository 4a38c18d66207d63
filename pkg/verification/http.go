package verification

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/certforge/certforge/internal/apperr"
	"github.com/certforge/certforge/internal/httpserver"
)

// Handler exposes the public verification endpoint. It must never be
// mounted behind tenant-resolution middleware: verification is the one
// operation that has no bound tenant by design.
type Handler struct {
	service *Service
}

// NewHandler builds a Handler over service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the public chi.Router to mount outside any tenant or
// auth-edge middleware chain. The canonical form is the query string
// (?hash=); the path form is accepted as a documented alternate.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleVerify)
	r.Get("/{hash}", h.handleVerify)
	return r
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if hash == "" {
		hash = r.URL.Query().Get("hash")
	}

	cert, err := h.service.Verify(r.Context(), hash)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "no matching certificate")
			return
		}
		httpserver.RespondDomainError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, cert)
}
