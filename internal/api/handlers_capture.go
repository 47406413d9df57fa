package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/farhan/webins/internal/capture"
	"github.com/farhan/webins/internal/endpoints"
	"github.com/farhan/webins/internal/storage"
)

type CaptureHandler struct {
	registry *endpoints.Registry
	store    storage.Storage
	maxBody  int64
	log      zerolog.Logger
}

func NewCaptureHandler(registry *endpoints.Registry, store storage.Storage, maxBody int64, log zerolog.Logger) *CaptureHandler {
	return &CaptureHandler{registry: registry, store: store, maxBody: maxBody, log: log}
}

type captureResponse struct {
	Endpoint        string            `json:"reference_endpoint"`
	HeaderData      []string          `json:"header_data"`
	FormData        map[string]string `json:"form_data"`
	RawData         string            `json:"raw_data"`
	FilesData       []string          `json:"files_data"`
	QueryParamsData map[string]string `json:"query_params_data"`
	HitAt           time.Time         `json:"hit_at"`
}

// Capture is the hot path: validate the token, normalize whatever arrived,
// persist it, and echo the normalized fields back to the caller.
func (h *CaptureHandler) Capture(w http.ResponseWriter, r *http.Request) {
	tok := tokenParam(r)

	ep, err := h.registry.FindUsable(r.Context(), tok)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	fields, err := capture.Normalize(r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	now := time.Now().UTC()
	rec := fields.Record(ep.ID, now)
	if err := h.store.CreateCapture(r.Context(), rec); err != nil {
		h.log.Error().Err(err).Int64("endpoint_id", ep.ID).Msg("failed to persist capture")
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, captureResponse{
		Endpoint:        ep.Token,
		HeaderData:      fields.Headers,
		FormData:        fields.Form,
		RawData:         fields.RawData(),
		FilesData:       fields.Files,
		QueryParamsData: fields.Query,
		HitAt:           now,
	})
}
