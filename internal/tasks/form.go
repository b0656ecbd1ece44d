package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/tgienger/stride/internal/api"
	"github.com/tgienger/stride/internal/logger"
	"github.com/tgienger/stride/internal/models"
)

// UntitledSubtask replaces an empty subtask title on submission
const UntitledSubtask = "Untitled subtask"

const tempPrefix = "tmp-"

// ErrTitleRequired is returned when submitting a draft without a title
var ErrTitleRequired = errors.New("task title is required")

// Creator creates tasks on the backend
type Creator interface {
	CreateTask(ctx context.Context, in api.TaskInput) (*models.Task, error)
	CreateSubtask(ctx context.Context, in api.TaskInput) (*models.Task, error)
}

// Draft is the state of the new-task form. It is not safe for concurrent
// use; the form must not be edited while Submit runs.
type Draft struct {
	Task     models.Task
	Subtasks []models.Task
}

// NewDraft starts an empty draft with a temporary id
func NewDraft() *Draft {
	return &Draft{Task: models.Task{
		ID:     newTempID(),
		Status: models.StatusNotStarted,
		Tags:   models.TagSet{},
	}}
}

// IsTemp reports whether id was issued locally rather than by the backend
func IsTemp(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}

// xid ids sort by creation time
func newTempID() string {
	return tempPrefix + xid.New().String()
}

// SetField edits a field of the main task
func (d *Draft) SetField(field Field, value any) error {
	e, err := newEdit(field, value)
	if err != nil {
		return err
	}
	e.apply(&d.Task)
	return nil
}

// AddSubtask appends a subtask with a temporary id and returns it
func (d *Draft) AddSubtask(title string) models.Task {
	s := models.Task{
		ID:       newTempID(),
		ParentID: d.Task.ID,
		Title:    title,
		Status:   models.StatusNotStarted,
		Tags:     models.TagSet{},
	}
	d.Subtasks = append(d.Subtasks, s)
	return s
}

// RemoveSubtask drops a subtask that has not been created yet
func (d *Draft) RemoveSubtask(id string) bool {
	i := d.subtaskIndex(id)
	if i < 0 || !IsTemp(id) {
		return false
	}
	d.Subtasks = slices.Delete(d.Subtasks, i, i+1)
	return true
}

// SetSubtaskField edits a field of one subtask
func (d *Draft) SetSubtaskField(id string, field Field, value any) error {
	i := d.subtaskIndex(id)
	if i < 0 {
		return fmt.Errorf("unknown subtask %s", id)
	}
	if field == FieldCategory {
		return fmt.Errorf("%w %s: subtasks have no category", ErrInvalidValue, field)
	}
	e, err := newEdit(field, value)
	if err != nil {
		return err
	}
	e.apply(&d.Subtasks[i])
	return nil
}

// ApplyTags writes a tag selection onto the main task (empty subtaskID) or
// one subtask. Category only applies to the main task.
func (d *Draft) ApplyTags(subtaskID string, tags models.TagSet, category *string) {
	if subtaskID == "" {
		d.Task.Tags = tags.Clone()
		if category != nil {
			d.Task.Category = *category
		}
		return
	}
	if i := d.subtaskIndex(subtaskID); i >= 0 {
		d.Subtasks[i].Tags = tags.Without(models.CategoryGroup)
	}
}

// Tree previews the draft as a task tree
func (d *Draft) Tree() Tree {
	records := append([]models.Task{d.Task}, d.Subtasks...)
	trees := Build(records)
	if len(trees) == 0 {
		return Tree{Task: d.Task}
	}
	return trees[0]
}

// Submit creates the main task and then all pending subtasks. Records that
// were already created keep their backend ids, so after a failure Submit can
// be called again and only creates what is missing.
func (d *Draft) Submit(ctx context.Context, c Creator) (models.Task, error) {
	if strings.TrimSpace(d.Task.Title) == "" {
		return models.Task{}, ErrTitleRequired
	}

	if IsTemp(d.Task.ID) {
		in := api.NewTaskInput(d.Task)
		created, err := c.CreateTask(ctx, in)
		if err != nil {
			return models.Task{}, fmt.Errorf("creating task: %w", err)
		}
		logger.Info("tasks: created task %s", created.ID)
		d.Task.ID = created.ID
		for i := range d.Subtasks {
			d.Subtasks[i].ParentID = created.ID
		}
	}

	var pending []int
	for i, s := range d.Subtasks {
		if IsTemp(s.ID) {
			pending = append(pending, i)
		}
	}

	results := make([]*models.Task, len(pending))
	errs := make([]error, len(pending))
	var g errgroup.Group
	for n, i := range pending {
		sub := d.Subtasks[i]
		g.Go(func() error {
			if strings.TrimSpace(sub.Title) == "" {
				sub.Title = UntitledSubtask
			}
			sub.Category = ""
			created, err := c.CreateSubtask(ctx, api.NewTaskInput(sub))
			if err != nil {
				errs[n] = fmt.Errorf("subtask %q: %w", sub.Title, err)
				return nil
			}
			results[n] = created
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for n, i := range pending {
		if errs[n] != nil {
			logger.Warn("tasks: %v", errs[n])
			failed = append(failed, errs[n])
			continue
		}
		d.Subtasks[i].ID = results[n].ID
		d.Subtasks[i].ParentID = d.Task.ID
		if strings.TrimSpace(d.Subtasks[i].Title) == "" {
			d.Subtasks[i].Title = UntitledSubtask
		}
	}
	if len(failed) > 0 {
		return d.Task.Clone(), fmt.Errorf("creating subtasks: %w", errors.Join(failed...))
	}
	return d.Task.Clone(), nil
}

// Records returns the main task followed by its subtasks
func (d *Draft) Records() []models.Task {
	return cloneAll(append([]models.Task{d.Task}, d.Subtasks...))
}

func (d *Draft) subtaskIndex(id string) int {
	return slices.IndexFunc(d.Subtasks, func(t models.Task) bool { return t.ID == id })
}
