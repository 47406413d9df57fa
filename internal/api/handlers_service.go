package api

import (
	"net/http"

	"github.com/farhan/webins/internal/storage"
)

type ServiceHandler struct {
	store storage.Storage
}

func NewServiceHandler(store storage.Storage) *ServiceHandler {
	return &ServiceHandler{store: store}
}

// Landing describes the service and its routes. The JSON body stands in for
// the HTML landing page, which is rendered by an external front end.
func (h *ServiceHandler) Landing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "webins",
		"routes": map[string]string{
			"GET /create-endpoint":          "mint a disposable capture endpoint",
			"GET /list-endpoints":           "list endpoints, newest first",
			"ANY /test-webhook/{token}":     "capture an inbound request",
			"GET /endpoint-details/{token}": "browse captures for an endpoint",
			"GET /stats":                    "endpoint and capture counts",
		},
	})
}

func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "webins",
	})
}

func (h *ServiceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
