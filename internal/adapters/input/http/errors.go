package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeUpstream         = "upstream_error"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // connection may already be gone
		json.NewEncoder(w).Encode(v)
	}
}

// writeRaw forwards a Telldus API body unchanged.
func writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // connection may already be gone
	w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps façade errors to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var terr *ports.TransportError
	switch {
	case errors.Is(err, model.ErrInvalidCommand), errors.Is(err, model.ErrInvalidDimLevel):
		writeBadRequest(w, err.Error())
	case errors.Is(err, model.ErrDeviceNotFound), errors.Is(err, model.ErrSensorNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, ports.ErrTokenRefresh), errors.As(err, &terr):
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
