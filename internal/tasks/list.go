package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tgienger/stride/internal/logger"
	"github.com/tgienger/stride/internal/models"
)

// Backend is the slice of the REST API the task list needs
type Backend interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	GetTask(ctx context.Context, id string) ([]models.Task, error)
	UpdateTask(ctx context.Context, id string, patch map[string]any) error
	UpdateSubtask(ctx context.Context, id string, patch map[string]any) error
	GenerateSubtasks(ctx context.Context, id string, maxCount int) ([]models.Task, error)
}

// Policy controls how remote failures and status cascades are handled
type Policy struct {
	// RollbackOnFailure restores local state when the PATCH fails.
	// When false the failure is logged and the optimistic change stays.
	RollbackOnFailure bool
	// CascadeRemote also PATCHes records changed by a status cascade.
	CascadeRemote bool
}

// List owns the flat task list of a screen
type List struct {
	mu      sync.Mutex
	backend Backend
	policy  Policy
	tasks   []models.Task
}

// NewList creates an empty task list
func NewList(backend Backend, policy Policy) *List {
	return &List{backend: backend, policy: policy}
}

// Load replaces the list with the backend's tasks. On failure the current
// contents are kept.
func (l *List) Load(ctx context.Context) error {
	tasks, err := l.backend.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	l.Set(tasks)
	return nil
}

// Fetch reloads one task and its subtasks from the backend
func (l *List) Fetch(ctx context.Context, id string) (models.Task, error) {
	fetched, err := l.backend.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("loading task %s: %w", id, err)
	}
	if len(fetched) == 0 {
		return models.Task{}, fmt.Errorf("loading task %s: empty response", id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range fetched {
		if i := l.indexOf(t.ID); i >= 0 {
			l.tasks[i] = t.Clone()
		} else {
			l.tasks = append(l.tasks, t.Clone())
		}
	}
	return fetched[0].Clone(), nil
}

// Set replaces the list contents
func (l *List) Set(tasks []models.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = cloneAll(tasks)
}

// Append adds records to the end of the list
func (l *List) Append(tasks ...models.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = append(l.tasks, cloneAll(tasks)...)
}

// Tasks returns a copy of the flat list
func (l *List) Tasks() []models.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneAll(l.tasks)
}

// Get returns a copy of the task with the given id
func (l *List) Get(id string) (models.Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(id); i >= 0 {
		return l.tasks[i].Clone(), true
	}
	return models.Task{}, false
}

// Trees derives the display tree from the current list
func (l *List) Trees() []Tree {
	tasks := l.Tasks()
	for _, o := range Orphans(tasks) {
		logger.Warn("tasks: subtask %s references missing parent %s", o.ID, o.ParentID)
	}
	return Build(tasks)
}

// cascade records a status change made as a side effect of another edit
type cascade struct {
	id       string
	subtask  bool
	previous models.Status
	status   models.Status
}

// UpdateField edits one field of a task or subtask. The change is applied
// locally first, then sent to the backend. Unknown ids are ignored.
func (l *List) UpdateField(ctx context.Context, id string, field Field, value any) error {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return nil
	}
	if field == FieldCategory && l.tasks[i].IsSubtask() {
		l.mu.Unlock()
		return fmt.Errorf("%w %s: subtasks have no category", ErrInvalidValue, field)
	}

	e, err := newEdit(field, value)
	if err != nil {
		l.mu.Unlock()
		return err
	}

	before := l.tasks[i].Clone()
	e.apply(&l.tasks[i])
	target := l.tasks[i].Clone()

	var cascades []cascade
	if field == FieldStatus {
		cascades = l.cascadeStatus(target)
	}
	l.mu.Unlock()

	patch := map[string]any{e.key: e.wire}
	if err := l.patch(ctx, target, patch); err != nil {
		if !l.policy.RollbackOnFailure {
			logger.Error("tasks: updating %s of %s failed, keeping local change: %v", e.field, id, err)
			return nil
		}
		logger.Warn("tasks: updating %s of %s failed, rolling back: %v", e.field, id, err)
		l.mu.Lock()
		if j := l.indexOf(id); j >= 0 {
			restoreField(field, &l.tasks[j], before)
		}
		for _, c := range cascades {
			l.restoreStatus(c)
		}
		l.mu.Unlock()
		return fmt.Errorf("updating %s of task %s: %w", e.field, id, err)
	}

	if len(cascades) == 0 {
		return nil
	}
	if !l.policy.CascadeRemote {
		logger.Debug("tasks: %d cascaded status changes kept local", len(cascades))
		return nil
	}
	return l.pushCascades(ctx, id, cascades)
}

// cascadeStatus applies the status side effects of target's new status.
// Caller holds l.mu.
func (l *List) cascadeStatus(target models.Task) []cascade {
	var out []cascade
	set := func(i int, s models.Status) {
		t := &l.tasks[i]
		out = append(out, cascade{id: t.ID, subtask: t.IsSubtask(), previous: t.Status, status: s})
		t.Status = s
	}

	if target.IsSubtask() {
		if target.Status != models.StatusInProgress {
			return nil
		}
		if p := l.indexOf(target.ParentID); p >= 0 && l.tasks[p].Status == models.StatusNotStarted {
			set(p, models.StatusInProgress)
		}
		return out
	}

	for i, t := range l.tasks {
		if t.ParentID != target.ID {
			continue
		}
		switch target.Status {
		case models.StatusDone:
			if t.Status == models.StatusNotStarted || t.Status == models.StatusInProgress {
				set(i, models.StatusDone)
			}
		case models.StatusArchive:
			if t.Status != models.StatusArchive {
				set(i, models.StatusArchive)
			}
		}
	}
	return out
}

// pushCascades sends cascaded status changes, all at once, waiting for every
// one to settle
func (l *List) pushCascades(ctx context.Context, id string, cascades []cascade) error {
	errs := make([]error, len(cascades))
	var g errgroup.Group
	for i, c := range cascades {
		g.Go(func() error {
			t := models.Task{ID: c.id}
			if c.subtask {
				t.ParentID = id
			}
			patch := map[string]any{"status": models.StatusToBackend(c.status)}
			if err := l.patch(ctx, t, patch); err != nil {
				errs[i] = fmt.Errorf("task %s: %w", c.id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed = append(failed, err)
		if l.policy.RollbackOnFailure {
			l.mu.Lock()
			l.restoreStatus(cascades[i])
			l.mu.Unlock()
		}
	}
	if len(failed) == 0 {
		return nil
	}

	err := errors.Join(failed...)
	if !l.policy.RollbackOnFailure {
		logger.Error("tasks: cascaded status updates for %s failed: %v", id, err)
		return nil
	}
	logger.Warn("tasks: cascaded status updates for %s failed, rolled back: %v", id, err)
	return fmt.Errorf("updating related tasks of %s: %w", id, err)
}

func (l *List) patch(ctx context.Context, t models.Task, patch map[string]any) error {
	if t.IsSubtask() {
		return l.backend.UpdateSubtask(ctx, t.ID, patch)
	}
	return l.backend.UpdateTask(ctx, t.ID, patch)
}

// restoreStatus reverts a cascade if nothing changed the record since.
// Caller holds l.mu.
func (l *List) restoreStatus(c cascade) {
	if i := l.indexOf(c.id); i >= 0 && l.tasks[i].Status == c.status {
		l.tasks[i].Status = c.previous
	}
}

// ApplyTags writes a tag selection, and for top-level tasks an optional
// category, onto a task
func (l *List) ApplyTags(ctx context.Context, id string, tags models.TagSet, category *string) error {
	t, ok := l.Get(id)
	if !ok {
		return nil
	}
	if t.IsSubtask() {
		tags = tags.Without(models.CategoryGroup)
	}

	var errs []error
	if err := l.UpdateField(ctx, id, FieldTags, tags); err != nil {
		errs = append(errs, err)
	}
	if category != nil && !t.IsSubtask() && *category != t.Category {
		if err := l.UpdateField(ctx, id, FieldCategory, *category); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GenerateSubtasks asks the backend for generated subtasks and appends them
// under the task
func (l *List) GenerateSubtasks(ctx context.Context, id string, maxCount int) ([]models.Task, error) {
	t, ok := l.Get(id)
	if !ok {
		return nil, fmt.Errorf("generating subtasks: unknown task %s", id)
	}
	if t.IsSubtask() {
		return nil, fmt.Errorf("generating subtasks: %s is a subtask", id)
	}

	subs, err := l.backend.GenerateSubtasks(ctx, id, maxCount)
	if err != nil {
		return nil, fmt.Errorf("generating subtasks for %s: %w", id, err)
	}
	for i := range subs {
		subs[i].ParentID = id
		subs[i].Category = ""
	}
	l.Append(subs...)
	logger.Info("tasks: generated %d subtasks for %s", len(subs), id)
	return subs, nil
}

// Caller holds l.mu.
func (l *List) indexOf(id string) int {
	return slices.IndexFunc(l.tasks, func(t models.Task) bool { return t.ID == id })
}

func restoreField(field Field, dst *models.Task, snap models.Task) {
	switch field {
	case FieldTitle:
		dst.Title = snap.Title
	case FieldDescription:
		dst.Description = snap.Description
	case FieldEstimatedTime:
		dst.EstimatedTime = snap.EstimatedTime
	case FieldDeadline:
		dst.Deadline = snap.Deadline
	case FieldStatus:
		dst.Status = snap.Status
	case FieldCategory:
		dst.Category = snap.Category
	case FieldTags:
		dst.Tags = snap.Tags
	}
}

func cloneAll(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
