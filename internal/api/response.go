package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/farhan/webins/internal/endpoints"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeFlowError maps a flow's typed error onto a response. Every error a
// flow can produce ends up here; nothing propagates past the handler.
func writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, endpoints.ErrTokenBlank):
		writeError(w, http.StatusBadRequest, endpoints.ErrTokenBlank.Error())
	case errors.Is(err, endpoints.ErrEndpointNotUsable):
		writeError(w, http.StatusNotFound, endpoints.ErrEndpointNotUsable.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
