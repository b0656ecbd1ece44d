package devserver

import (
	"net/http"
	"time"

	"github.com/tgienger/stride/internal/models"
)

// createRecord handles POST /records
func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	in := struct {
		TaskID          idValue  `json:"task_id"`
		Mode            string   `json:"mode"`
		Place           string   `json:"place"`
		Tools           []string `json:"tools"`
		DurationMinutes int      `json:"duration_minutes"`
		Timestamp       string   `json:"timestamp"`
	}{}
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	at := s.now()
	if in.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, in.Timestamp)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "timestamp must be RFC 3339")
			return
		}
		at = t
	}

	id, err := s.store.CreateRecord(models.WorkRecord{
		TaskID:    string(in.TaskID),
		Mode:      in.Mode,
		Place:     in.Place,
		Tools:     in.Tools,
		Minutes:   in.DurationMinutes,
		Timestamp: at,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
