package views

import (
	"errors"
	"fmt"

	"github.com/tgienger/stride/internal/api"
	"github.com/tgienger/stride/internal/models"
	"github.com/tgienger/stride/internal/tags"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// errText renders err for a banner
func errText(err error) string {
	var commitErr *tags.CommitError
	if errors.As(err, &commitErr) {
		first := commitErr.Failed[0]
		return fmt.Sprintf("%d tag change(s) not saved, kept for retry: %s", len(commitErr.Failed), errText(first.Err))
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return api.UserMessage(err)
	}
	return err.Error()
}

// OpenTags asks the app to open the tag editor
type OpenTags struct {
	// TaskID is the task the outcome is written to. Empty for the form's
	// main task.
	TaskID  string
	Title   string
	Target  tags.Target
	Current models.TagSet
}

// TagsClosed is sent when the tag editor closes. Outcome is nil when the
// edit was cancelled.
type TagsClosed struct {
	Request OpenTags
	Outcome *tags.Outcome
	Err     error
}

// NewTask asks the app to open the new task form
type NewTask struct{}

// TaskCreated is sent when the form has created a task
type TaskCreated struct {
	Task models.Task
}

// CloseForm abandons the new task form
type CloseForm struct{}

// OpenRecommend asks the app to open the recommendations screen
type OpenRecommend struct{}

// CloseRecommend returns from the recommendations screen
type CloseRecommend struct{}

// StartWork asks the app to start a timer on a task
type StartWork struct {
	Task  models.Task
	Mode  string
	Place string
	Tools []string
}

// WorkFinished is sent when the timer view closes. Record is nil when the
// session was abandoned.
type WorkFinished struct {
	Record *models.WorkRecord
}
