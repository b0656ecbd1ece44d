package devserver

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tgienger/stride/internal/db"
	"github.com/tgienger/stride/internal/models"
)

const defaultGenerated = 3

// steps drive the stand-in subtask generator
var steps = []string{
	"Outline %s",
	"Gather what %s needs",
	"Do the main work on %s",
	"Review %s",
	"Wrap up %s",
}

// planSubtasks splits a task into up to n steps. The parent's estimate is
// spread across them, with 15 minutes each when the parent has none.
func planSubtasks(parent models.Task, n int) []models.Task {
	if n <= 0 {
		n = defaultGenerated
	}
	n = min(n, len(steps))

	each := 15
	if parent.EstimatedTime > 0 {
		each = max(parent.EstimatedTime/n, 5)
	}
	out := make([]models.Task, n)
	for i := range out {
		out[i] = models.Task{
			ParentID:      parent.ID,
			Title:         fmt.Sprintf(steps[i], parent.Title),
			EstimatedTime: each,
			Status:        models.StatusNotStarted,
		}
	}
	return out
}

// generateSubtasks handles POST /tasks/{taskID}/generate-subtasks
func (s *Server) generateSubtasks(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	in := struct {
		MaxSubtasks int `json:"max_subtasks"`
	}{}
	if r.ContentLength != 0 {
		if err := decode(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	parent, err := s.store.GetTask(taskID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if parent.IsSubtask() {
		writeError(w, http.StatusUnprocessableEntity, "cannot generate subtasks for a subtask")
		return
	}

	existing, err := s.store.ListTasks(db.TaskFilter{ParentID: taskID})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	taken := make(map[string]bool, len(existing))
	for _, t := range existing {
		taken[t.Title] = true
	}

	out := []taskJSON{}
	for _, sub := range planSubtasks(*parent, in.MaxSubtasks) {
		if taken[sub.Title] {
			continue
		}
		created, err := s.store.CreateTask(sub)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		out = append(out, toJSON(*created))
	}
	writeJSON(w, http.StatusOK, map[string]any{"subtasks": out})
}
