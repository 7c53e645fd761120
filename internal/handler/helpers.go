package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dmchat/internal/apperr"
	"github.com/dmchat/internal/logger"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string      `json:"error"`
	Kind  apperr.Kind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeAppError renders err as {"error", "kind"} with the status of its kind.
// Internal details are logged, never sent.
func writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.Errorf("handler: %v", err)
	}
	writeJSON(w, apperr.HTTPStatus(err), errorResponse{Error: apperr.Message(err), Kind: kind})
}

// decodeJSON reads a JSON body; an empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid body")
	}
	return nil
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
