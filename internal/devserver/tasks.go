package devserver

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tgienger/stride/internal/db"
	"github.com/tgienger/stride/internal/models"
)

// taskJSON is the wire form of a task. Ids go out as numbers.
type taskJSON struct {
	ID            int64               `json:"id"`
	ParentID      *int64              `json:"parent_id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	EstimatedTime int                 `json:"estimated_time"`
	Deadline      *string             `json:"deadline"`
	Status        string              `json:"status"`
	Category      *string             `json:"category"`
	Tags          map[string][]string `json:"tags"`
	Subtasks      []taskJSON          `json:"subtasks,omitempty"`
}

func toJSON(t models.Task) taskJSON {
	id, _ := strconv.ParseInt(t.ID, 10, 64)
	out := taskJSON{
		ID:            id,
		Title:         t.Title,
		Description:   t.Description,
		EstimatedTime: t.EstimatedTime,
		Status:        models.StatusToBackend(t.Status),
		Tags:          t.Tags,
	}
	if out.Tags == nil {
		out.Tags = map[string][]string{}
	}
	if t.ParentID != "" {
		pid, _ := strconv.ParseInt(t.ParentID, 10, 64)
		out.ParentID = &pid
	}
	if t.Deadline != nil {
		d := t.Deadline.String()
		out.Deadline = &d
	}
	if t.Category != "" {
		c := t.Category
		out.Category = &c
	}
	return out
}

// nest attaches each subtask to its parent, keeping creation order
func nest(parents, subtasks []models.Task) []taskJSON {
	children := make(map[string][]taskJSON)
	for _, s := range subtasks {
		children[s.ParentID] = append(children[s.ParentID], toJSON(s))
	}
	out := make([]taskJSON, 0, len(parents))
	for _, p := range parents {
		j := toJSON(p)
		j.Subtasks = children[p.ID]
		if j.Subtasks == nil {
			j.Subtasks = []taskJSON{}
		}
		out = append(out, j)
	}
	return out
}

// taskInput is the body of a create request
type taskInput struct {
	ParentID      idValue             `json:"parent_id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	EstimatedTime int                 `json:"estimated_time"`
	Deadline      *string             `json:"deadline"`
	Status        string              `json:"status"`
	Category      *string             `json:"category"`
	Tags          map[string][]string `json:"tags"`
}

func (in taskInput) toModel() (models.Task, error) {
	t := models.Task{
		ParentID:      string(in.ParentID),
		Title:         in.Title,
		Description:   in.Description,
		EstimatedTime: in.EstimatedTime,
		Status:        models.StatusFromBackend(in.Status),
		Tags:          in.Tags,
	}
	if in.Deadline != nil {
		d, err := models.ParseDate(*in.Deadline)
		if err != nil {
			return t, err
		}
		t.Deadline = d
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	return t, nil
}

// listTasks handles GET /tasks. With is_subtask=false top-level tasks come
// back with their subtasks nested; with is_subtask=true subtasks are listed
// flat.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	var filter *bool
	if v := r.URL.Query().Get("is_subtask"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "is_subtask must be a boolean")
			return
		}
		filter = &b
	}

	if filter != nil && *filter {
		subs, err := s.store.ListTasks(db.TaskFilter{IsSubtask: filter})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		out := make([]taskJSON, len(subs))
		for i, t := range subs {
			out[i] = toJSON(t)
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	all, err := s.store.ListTasks(db.TaskFilter{})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	var parents, subs []models.Task
	for _, t := range all {
		if t.IsSubtask() {
			subs = append(subs, t)
		} else {
			parents = append(parents, t)
		}
	}
	writeJSON(w, http.StatusOK, nest(parents, subs))
}

// getTask handles GET /tasks/{taskID}
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	task, err := s.store.GetTask(taskID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if task.IsSubtask() {
		writeJSON(w, http.StatusOK, toJSON(*task))
		return
	}
	subs, err := s.store.ListTasks(db.TaskFilter{ParentID: taskID})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nest([]models.Task{*task}, subs)[0])
}

// createTask handles POST /tasks/
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	s.create(w, r, false)
}

// createSubtask handles POST /tasks/subtasks
func (s *Server) createSubtask(w http.ResponseWriter, r *http.Request) {
	s.create(w, r, true)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, subtask bool) {
	var in taskInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := in.toModel()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if subtask && t.ParentID == "" {
		writeError(w, http.StatusUnprocessableEntity, "parent_id is required")
		return
	}
	if !subtask && t.ParentID != "" {
		writeError(w, http.StatusUnprocessableEntity, "use /tasks/subtasks to create subtasks")
		return
	}

	created, err := s.store.CreateTask(t)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJSON(*created))
}

// updateTask handles PATCH /tasks/{taskID}
func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, false)
}

// updateSubtask handles PATCH /tasks/subtasks/{taskID}
func (s *Server) updateSubtask(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, true)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, subtask bool) {
	taskID := mux.Vars(r)["taskID"]
	var patch map[string]any
	if err := decode(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	current, err := s.store.GetTask(taskID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if current.IsSubtask() != subtask {
		kind := "task"
		if current.IsSubtask() {
			kind = "subtask"
		}
		writeError(w, http.StatusUnprocessableEntity, taskID+" is a "+kind)
		return
	}

	updated, err := s.store.UpdateTask(taskID, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJSON(*updated))
}

// listCategories handles GET /tasks/categories
func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListCategories()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}
