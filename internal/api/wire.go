package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tgienger/stride/internal/logger"
	"github.com/tgienger/stride/internal/models"
)

// flexID accepts ids encoded as JSON strings or numbers
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// taskDTO is the backend representation of a task
type taskDTO struct {
	ID            flexID              `json:"id"`
	ParentID      flexID              `json:"parent_id,omitempty"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	EstimatedTime int                 `json:"estimated_time"`
	Deadline      *string             `json:"deadline"`
	Status        string              `json:"status"`
	Category      *string             `json:"category"`
	Tags          map[string][]string `json:"tags"`
	Subtasks      []taskDTO           `json:"subtasks,omitempty"`
}

func (d taskDTO) toModel() models.Task {
	t := models.Task{
		ID:            string(d.ID),
		ParentID:      string(d.ParentID),
		Title:         d.Title,
		Description:   d.Description,
		EstimatedTime: max(d.EstimatedTime, 0),
		Status:        models.StatusFromBackend(d.Status),
		Tags:          models.TagSet(d.Tags),
	}
	if d.Deadline != nil {
		deadline, err := models.ParseDate(*d.Deadline)
		if err != nil {
			logger.Warn("api: task %s has unreadable deadline %q", d.ID, *d.Deadline)
		}
		t.Deadline = deadline
	}
	if d.Category != nil && t.ParentID == "" {
		t.Category = *d.Category
	}
	return t
}

// flatten returns the task followed by its nested subtasks, each subtask
// carrying the parent's id
func (d taskDTO) flatten() []models.Task {
	parent := d.toModel()
	out := []models.Task{parent}
	for _, sub := range d.Subtasks {
		if sub.ParentID == "" {
			sub.ParentID = d.ID
		}
		out = append(out, sub.toModel())
	}
	return out
}

// TaskInput is the body of a task or subtask creation request
type TaskInput struct {
	ParentID      string              `json:"parent_id,omitempty"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	EstimatedTime int                 `json:"estimated_time"`
	Deadline      *string             `json:"deadline,omitempty"`
	Status        string              `json:"status"`
	Category      *string             `json:"category,omitempty"`
	Tags          map[string][]string `json:"tags,omitempty"`
}

// NewTaskInput converts a task to its creation payload
func NewTaskInput(t models.Task) TaskInput {
	in := TaskInput{
		ParentID:      t.ParentID,
		Title:         t.Title,
		Description:   t.Description,
		EstimatedTime: max(t.EstimatedTime, 0),
		Status:        models.StatusToBackend(t.Status),
		Tags:          t.Tags,
	}
	if t.Deadline != nil {
		s := models.FormatDate(t.Deadline)
		in.Deadline = &s
	}
	if !t.IsSubtask() && t.Category != "" {
		c := t.Category
		in.Category = &c
	}
	return in
}

type tagGroupDTO struct {
	ID             flexID `json:"id"`
	Name           string `json:"name"`
	IsSingleSelect bool   `json:"is_single_select"`
	AllowAddTags   bool   `json:"allow_add_tags"`
}

func (d tagGroupDTO) toModel() models.TagGroup {
	return models.TagGroup{
		ID:             string(d.ID),
		Name:           d.Name,
		IsSingleSelect: d.IsSingleSelect,
		AllowAddTags:   d.AllowAddTags,
	}
}

type tagDTO struct {
	ID         flexID `json:"id"`
	Name       string `json:"name"`
	TagGroupID flexID `json:"tag_group_id"`
}

func (d tagDTO) toModel() models.Tag {
	return models.Tag{ID: string(d.ID), Name: d.Name, GroupID: string(d.TagGroupID)}
}

// categoryDTO accepts either a bare string or an object with a name
type categoryDTO string

func (c *categoryDTO) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = categoryDTO(s)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*c = categoryDTO(obj.Name)
	return nil
}

type recordDTO struct {
	TaskID          string   `json:"task_id"`
	Mode            string   `json:"mode"`
	Place           string   `json:"place"`
	Tools           []string `json:"tools"`
	DurationMinutes int      `json:"duration_minutes"`
	Timestamp       string   `json:"timestamp"`
}

type recommendationDTO struct {
	Task   taskDTO `json:"task"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// idPath renders an id for use in a URL path
func idPath(id string) string {
	return url.PathEscape(id)
}
