package api

import (
	"context"
	"time"

	"github.com/tgienger/stride/internal/models"
)

// CreateRecord reports a finished work session
func (c *Client) CreateRecord(ctx context.Context, r models.WorkRecord) error {
	tools := r.Tools
	if tools == nil {
		tools = []string{}
	}
	body := recordDTO{
		TaskID:          r.TaskID,
		Mode:            r.Mode,
		Place:           r.Place,
		Tools:           tools,
		DurationMinutes: r.Minutes,
		Timestamp:       r.Timestamp.UTC().Format(time.RFC3339),
	}
	return c.Post(ctx, "/records", body, nil)
}
