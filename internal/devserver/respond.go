package devserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tgienger/stride/internal/db"
	"github.com/tgienger/stride/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("devserver: encoding response: %v", err)
	}
}

// writeError sends {"detail": msg}, the shape the client reads messages from
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// writeStoreError maps store errors onto HTTP statuses
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, db.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, db.ErrInvalid):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("devserver: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request payload: %w", err)
	}
	return nil
}

// idValue reads an id sent as a JSON string or number
type idValue string

func (v *idValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = idValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = idValue(n.String())
	}
	return nil
}
