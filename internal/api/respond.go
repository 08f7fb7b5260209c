package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/concord-ai/concord/internal/evolution"
	"github.com/concord-ai/concord/internal/hub"
	"github.com/concord-ai/concord/internal/protocol"
	"github.com/concord-ai/concord/pkg/docstore"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeSuccess writes the success envelope with extra fields merged in.
func writeSuccess(w http.ResponseWriter, status int, fields map[string]interface{}) {
	payload := map[string]interface{}{"success": true}
	for k, v := range fields {
		payload[k] = v
	}
	writeJSON(w, status, payload)
}

// writeErrorStatus writes the failure envelope with an explicit status.
func writeErrorStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// writeError maps a component error to an HTTP status: 400 for validation,
// 404 for not found, 409 for duplicates, 503 for storage conflicts or an
// unreachable backend, 500 otherwise.
func writeError(w http.ResponseWriter, err error) {
	var (
		protoValidation *protocol.ValidationError
		protoNotFound   *protocol.NotFoundError
		protoDuplicate  *protocol.DuplicateError
		evoValidation   *evolution.ValidationError
		evoNotFound     *evolution.NotFoundError
		hubValidation   *hub.ValidationError
	)

	switch {
	case errors.As(err, &protoValidation), errors.As(err, &evoValidation), errors.As(err, &hubValidation):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &protoNotFound), errors.As(err, &evoNotFound), docstore.IsNotFound(err):
		writeErrorStatus(w, http.StatusNotFound, err.Error())
	case errors.As(err, &protoDuplicate), docstore.IsExists(err):
		writeErrorStatus(w, http.StatusConflict, err.Error())
	case docstore.IsConflict(err):
		writeErrorStatus(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeErrorStatus(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes a JSON request body into dst, reporting a 400 to the
// client on failure. Returns false when decoding failed.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
