package customer

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/certforge/certforge/internal/httpserver"
)

// Handler exposes the global, tenant-less customer administration
// surface: onboarding and listing. It is mounted outside tenant
// resolution — these operations establish tenants, they don't act
// within one.
type Handler struct {
	registry *Registry
}

// NewHandler builds a Handler over registry.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Routes returns the admin chi.Router for customer management.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleOnboard)
	r.Get("/", h.handleListActive)
	return r
}

type onboardRequest struct {
	Name                    string `json:"name"`
	Domain                  string `json:"domain"`
	TenantSchema            string `json:"tenant_schema"`
	MaxUsers                int    `json:"max_users"`
	MaxCertificatesPerMonth int    `json:"max_certificates_per_month"`
}

func (h *Handler) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if !httpserver.DecodeOrError(w, r, &req) {
		return
	}

	c, err := h.registry.Onboard(r.Context(), NewCustomerParams{
		Name:                    req.Name,
		Domain:                  req.Domain,
		TenantSchema:            req.TenantSchema,
		MaxUsers:                req.MaxUsers,
		MaxCertificatesPerMonth: req.MaxCertificatesPerMonth,
	})
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusCreated, c)
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	customers, err := h.registry.ListActive(r.Context())
	if err != nil {
		httpserver.RespondDomainError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, customers)
}
