package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tgienger/stride/internal/models"
)

// ListTasks returns every top-level task followed by its subtasks as one
// flat list
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var dtos []taskDTO
	query := url.Values{"is_subtask": {"false"}}
	if err := c.Get(ctx, "/tasks", query, &dtos); err != nil {
		return nil, err
	}

	var tasks []models.Task
	for _, d := range dtos {
		tasks = append(tasks, d.flatten()...)
	}
	return tasks, nil
}

// GetTask retrieves a task by ID. Nested subtasks are returned after it.
func (c *Client) GetTask(ctx context.Context, id string) ([]models.Task, error) {
	var dto taskDTO
	if err := c.Get(ctx, "/tasks/"+idPath(id), nil, &dto); err != nil {
		return nil, err
	}
	return dto.flatten(), nil
}

// UpdateTask patches a top-level task with backend-vocabulary fields
func (c *Client) UpdateTask(ctx context.Context, id string, patch map[string]any) error {
	return c.Patch(ctx, "/tasks/"+idPath(id), patch, nil)
}

// UpdateSubtask patches a subtask with backend-vocabulary fields
func (c *Client) UpdateSubtask(ctx context.Context, id string, patch map[string]any) error {
	return c.Patch(ctx, "/tasks/subtasks/"+idPath(id), patch, nil)
}

// CreateTask creates a top-level task and returns it with its backend id
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*models.Task, error) {
	in.ParentID = ""
	return c.create(ctx, "/tasks/", in)
}

// CreateSubtask creates a subtask under in.ParentID
func (c *Client) CreateSubtask(ctx context.Context, in TaskInput) (*models.Task, error) {
	if in.ParentID == "" {
		return nil, fmt.Errorf("creating subtask: parent id is required")
	}
	in.Category = nil
	return c.create(ctx, "/tasks/subtasks", in)
}

func (c *Client) create(ctx context.Context, path string, in TaskInput) (*models.Task, error) {
	var dto taskDTO
	if err := c.Post(ctx, path, in, &dto); err != nil {
		return nil, err
	}
	if dto.ID == "" {
		return nil, &Error{Kind: KindParse, Method: "POST", Path: path, Err: fmt.Errorf("response has no id")}
	}
	if in.ParentID != "" && dto.ParentID == "" {
		dto.ParentID = flexID(in.ParentID)
	}
	t := dto.toModel()
	return &t, nil
}

// GenerateSubtasks asks the backend to generate up to maxCount subtasks for
// a task. The returned records carry the parent id.
func (c *Client) GenerateSubtasks(ctx context.Context, id string, maxCount int) ([]models.Task, error) {
	body := map[string]int{"max_subtasks": maxCount}
	var resp struct {
		Subtasks []taskDTO `json:"subtasks"`
	}
	if err := c.Post(ctx, "/tasks/"+idPath(id)+"/generate-subtasks", body, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Task, 0, len(resp.Subtasks))
	for _, d := range resp.Subtasks {
		if d.ParentID == "" {
			d.ParentID = flexID(id)
		}
		out = append(out, d.toModel())
	}
	return out, nil
}
