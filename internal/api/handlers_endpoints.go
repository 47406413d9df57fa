package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/farhan/webins/internal/endpoints"
	"github.com/farhan/webins/internal/models"
	"github.com/farhan/webins/internal/storage"
)

// tokenParam pulls the token path parameter, unescaping it so that an
// encoded blank ("%20") is caught by the blank-token validation.
func tokenParam(r *http.Request) string {
	tok := chi.URLParam(r, "token")
	if dec, err := url.PathUnescape(tok); err == nil {
		return dec
	}
	return tok
}

type EndpointHandler struct {
	registry *endpoints.Registry
	store    storage.Storage
}

func NewEndpointHandler(registry *endpoints.Registry, store storage.Storage) *EndpointHandler {
	return &EndpointHandler{registry: registry, store: store}
}

// Create mints a new endpoint and redirects to the listing, mirroring the
// browser-driven flow this service grew out of.
func (h *EndpointHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, err := h.registry.Create(r.Context()); err != nil {
		writeFlowError(w, err)
		return
	}
	http.Redirect(w, r, "/list-endpoints", http.StatusSeeOther)
}

func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	eps, err := h.registry.List(r.Context())
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if eps == nil {
		eps = []models.Endpoint{}
	}
	writeJSON(w, http.StatusOK, eps)
}

type endpointDetailsResponse struct {
	Endpoint *models.Endpoint `json:"endpoint"`
	Captures []models.Capture `json:"captures"`
}

// Details resolves the token and returns the endpoint with its captures,
// newest first.
func (h *EndpointHandler) Details(w http.ResponseWriter, r *http.Request) {
	tok := tokenParam(r)

	ep, err := h.registry.FindUsable(r.Context(), tok)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	captures, err := h.store.ListCapturesByEndpoint(r.Context(), ep.ID)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if captures == nil {
		captures = []models.Capture{}
	}

	writeJSON(w, http.StatusOK, endpointDetailsResponse{
		Endpoint: ep,
		Captures: captures,
	})
}
