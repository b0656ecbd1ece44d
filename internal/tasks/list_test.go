package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stride/internal/api"
	"github.com/tgienger/stride/internal/models"
)

type patchCall struct {
	ID      string
	Subtask bool
	Patch   map[string]any
}

type fakeBackend struct {
	mu        sync.Mutex
	tasks     []models.Task
	listErr   error
	failIDs   map[string]error
	patches   []patchCall
	generated []models.Task

	nextID      int
	createErrs  map[string]error // by title
	createCalls []api.TaskInput
}

func (f *fakeBackend) ListTasks(ctx context.Context) ([]models.Task, error) {
	return f.tasks, f.listErr
}

func (f *fakeBackend) GetTask(ctx context.Context, id string) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f.tasks {
		if t.ID == id {
			out = append([]models.Task{t}, out...)
		} else if t.ParentID == id {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, &api.Error{Kind: api.KindHTTP, Status: 404}
	}
	return out, nil
}

func (f *fakeBackend) UpdateTask(ctx context.Context, id string, patch map[string]any) error {
	return f.record(id, false, patch)
}

func (f *fakeBackend) UpdateSubtask(ctx context.Context, id string, patch map[string]any) error {
	return f.record(id, true, patch)
}

func (f *fakeBackend) record(id string, subtask bool, patch map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patchCall{ID: id, Subtask: subtask, Patch: patch})
	return f.failIDs[id]
}

func (f *fakeBackend) GenerateSubtasks(ctx context.Context, id string, maxCount int) ([]models.Task, error) {
	return f.generated, nil
}

func (f *fakeBackend) patchFor(id string) (patchCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.patches {
		if p.ID == id {
			return p, true
		}
	}
	return patchCall{}, false
}

func newList(t *testing.T, policy Policy, records ...models.Task) (*List, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{tasks: records, failIDs: map[string]error{}}
	l := NewList(fb, policy)
	require.NoError(t, l.Load(context.Background()))
	return l, fb
}

func status(t *testing.T, l *List, id string) models.Status {
	t.Helper()
	task, ok := l.Get(id)
	require.True(t, ok)
	return task.Status
}

var strict = Policy{RollbackOnFailure: true, CascadeRemote: true}

func TestUpdateFieldUnknownIDIsNoop(t *testing.T) {
	l, fb := newList(t, strict, models.Task{ID: "A"})
	require.NoError(t, l.UpdateField(context.Background(), "nope", FieldTitle, "x"))
	assert.Empty(t, fb.patches)
}

func TestUpdateFieldRoutesAndSerializes(t *testing.T) {
	l, fb := newList(t, strict,
		models.Task{ID: "A", Status: models.StatusNotStarted},
		models.Task{ID: "B", ParentID: "A"},
	)
	ctx := context.Background()

	require.NoError(t, l.UpdateField(ctx, "A", FieldDeadline, time.Date(2025, 4, 9, 18, 30, 0, 0, time.UTC)))
	require.NoError(t, l.UpdateField(ctx, "B", FieldEstimatedTime, "12"))
	require.NoError(t, l.UpdateField(ctx, "A", FieldStatus, "Done"))

	require.Len(t, fb.patches, 4)
	assert.Equal(t, patchCall{ID: "A", Patch: map[string]any{"deadline": "2025-04-09"}}, fb.patches[0])
	assert.Equal(t, patchCall{ID: "B", Subtask: true, Patch: map[string]any{"estimated_time": 12}}, fb.patches[1])
	assert.Equal(t, map[string]any{"status": "completed"}, fb.patches[2].Patch)

	a, _ := l.Get("A")
	assert.Equal(t, "2025-04-09", models.FormatDate(a.Deadline))
	b, _ := l.Get("B")
	assert.Equal(t, 12, b.EstimatedTime)
}

func TestUpdateFieldClearsDeadline(t *testing.T) {
	d := models.Date{Year: 2025, Month: 1, Day: 1}
	l, fb := newList(t, strict, models.Task{ID: "A", Deadline: &d})
	require.NoError(t, l.UpdateField(context.Background(), "A", FieldDeadline, nil))

	a, _ := l.Get("A")
	assert.Nil(t, a.Deadline)
	assert.Equal(t, map[string]any{"deadline": nil}, fb.patches[0].Patch)
}

func TestUpdateFieldRejectsBadValues(t *testing.T) {
	l, fb := newList(t, strict, models.Task{ID: "A"}, models.Task{ID: "B", ParentID: "A"})
	ctx := context.Background()

	assert.ErrorIs(t, l.UpdateField(ctx, "A", FieldStatus, "Someday"), ErrInvalidValue)
	assert.ErrorIs(t, l.UpdateField(ctx, "A", FieldEstimatedTime, "soon"), ErrInvalidValue)
	assert.ErrorIs(t, l.UpdateField(ctx, "B", FieldCategory, "Work"), ErrInvalidValue)
	assert.Empty(t, fb.patches)
}

func TestNegativeEstimateClampsToZero(t *testing.T) {
	l, _ := newList(t, strict, models.Task{ID: "A", EstimatedTime: 5})
	require.NoError(t, l.UpdateField(context.Background(), "A", FieldEstimatedTime, -3))
	a, _ := l.Get("A")
	assert.Equal(t, 0, a.EstimatedTime)
}

func TestSubtaskInProgressBumpsParent(t *testing.T) {
	l, fb := newList(t, strict,
		models.Task{ID: "A", Status: models.StatusNotStarted},
		models.Task{ID: "B", ParentID: "A", Status: models.StatusNotStarted},
	)
	require.NoError(t, l.UpdateField(context.Background(), "B", FieldStatus, models.StatusInProgress))

	assert.Equal(t, models.StatusInProgress, status(t, l, "B"))
	assert.Equal(t, models.StatusInProgress, status(t, l, "A"))

	p, ok := fb.patchFor("A")
	require.True(t, ok)
	assert.False(t, p.Subtask)
	assert.Equal(t, "in_progress", p.Patch["status"])
}

func TestSubtaskInProgressLeavesStartedParent(t *testing.T) {
	l, _ := newList(t, strict,
		models.Task{ID: "A", Status: models.StatusDone},
		models.Task{ID: "B", ParentID: "A"},
	)
	require.NoError(t, l.UpdateField(context.Background(), "B", FieldStatus, models.StatusInProgress))
	assert.Equal(t, models.StatusDone, status(t, l, "A"))
}

func TestParentDoneCompletesOpenSubtasks(t *testing.T) {
	l, _ := newList(t, strict,
		models.Task{ID: "A", Status: models.StatusInProgress},
		models.Task{ID: "B", ParentID: "A", Status: models.StatusNotStarted},
		models.Task{ID: "C", ParentID: "A", Status: models.StatusArchive},
		models.Task{ID: "D", ParentID: "A", Status: models.StatusInProgress},
		models.Task{ID: "E", ParentID: "X", Status: models.StatusNotStarted},
	)
	require.NoError(t, l.UpdateField(context.Background(), "A", FieldStatus, "Done"))

	assert.Equal(t, models.StatusDone, status(t, l, "B"))
	assert.Equal(t, models.StatusArchive, status(t, l, "C"))
	assert.Equal(t, models.StatusDone, status(t, l, "D"))
	assert.Equal(t, models.StatusNotStarted, status(t, l, "E"))
}

func TestParentArchiveArchivesAllSubtasks(t *testing.T) {
	l, fb := newList(t, strict,
		models.Task{ID: "A"},
		models.Task{ID: "B", ParentID: "A", Status: models.StatusDone},
		models.Task{ID: "C", ParentID: "A", Status: models.StatusArchive},
		models.Task{ID: "D", ParentID: "A", Status: models.StatusNotStarted},
	)
	require.NoError(t, l.UpdateField(context.Background(), "A", FieldStatus, models.StatusArchive))

	for _, id := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, models.StatusArchive, status(t, l, id), id)
	}
	_, patchedC := fb.patchFor("C")
	assert.False(t, patchedC, "already archived subtask must not be touched")
	p, ok := fb.patchFor("D")
	require.True(t, ok)
	assert.True(t, p.Subtask)
}

func TestCascadeStaysLocalWhenConfigured(t *testing.T) {
	l, fb := newList(t, Policy{RollbackOnFailure: true},
		models.Task{ID: "A"},
		models.Task{ID: "B", ParentID: "A"},
	)
	require.NoError(t, l.UpdateField(context.Background(), "A", FieldStatus, models.StatusDone))
	assert.Equal(t, models.StatusDone, status(t, l, "B"))
	assert.Len(t, fb.patches, 1)
}

func TestRemoteFailureRollsBack(t *testing.T) {
	l, fb := newList(t, strict,
		models.Task{ID: "A", Title: "Old", Status: models.StatusNotStarted},
		models.Task{ID: "B", ParentID: "A", Status: models.StatusNotStarted},
	)
	fb.failIDs["A"] = errors.New("boom")
	ctx := context.Background()

	err := l.UpdateField(ctx, "A", FieldTitle, "New")
	require.Error(t, err)
	a, _ := l.Get("A")
	assert.Equal(t, "Old", a.Title)

	err = l.UpdateField(ctx, "A", FieldStatus, models.StatusDone)
	require.Error(t, err)
	assert.Equal(t, models.StatusNotStarted, status(t, l, "A"))
	assert.Equal(t, models.StatusNotStarted, status(t, l, "B"))
	_, patchedB := fb.patchFor("B")
	assert.False(t, patchedB, "cascade is not pushed when the parent update fails")
}

func TestRemoteFailureKeptWithoutRollback(t *testing.T) {
	l, fb := newList(t, Policy{},
		models.Task{ID: "A", Title: "Old"},
	)
	fb.failIDs["A"] = errors.New("boom")

	require.NoError(t, l.UpdateField(context.Background(), "A", FieldTitle, "New"))
	a, _ := l.Get("A")
	assert.Equal(t, "New", a.Title)
}

func TestCascadeFailureRollsBackOnlyFailedChild(t *testing.T) {
	l, fb := newList(t, strict,
		models.Task{ID: "A"},
		models.Task{ID: "B", ParentID: "A"},
		models.Task{ID: "C", ParentID: "A"},
	)
	fb.failIDs["C"] = errors.New("boom")

	err := l.UpdateField(context.Background(), "A", FieldStatus, models.StatusDone)
	require.Error(t, err)
	assert.Equal(t, models.StatusDone, status(t, l, "A"))
	assert.Equal(t, models.StatusDone, status(t, l, "B"))
	assert.Equal(t, models.StatusNotStarted, status(t, l, "C"))
}

func TestApplyTags(t *testing.T) {
	l, fb := newList(t, strict,
		models.Task{ID: "A", Category: "Home"},
		models.Task{ID: "B", ParentID: "A"},
	)
	ctx := context.Background()
	work := "Work"

	sel := models.TagSet{models.CategoryGroup: {"Work"}, "Tools": {"Laptop"}}
	require.NoError(t, l.ApplyTags(ctx, "A", sel, &work))
	require.NoError(t, l.ApplyTags(ctx, "B", sel, &work))

	a, _ := l.Get("A")
	assert.Equal(t, "Work", a.Category)
	assert.True(t, a.Tags.Has(models.CategoryGroup, "Work"))

	b, _ := l.Get("B")
	assert.Equal(t, "", b.Category)
	assert.NotContains(t, b.Tags, models.CategoryGroup)
	assert.True(t, b.Tags.Has("Tools", "Laptop"))

	assert.Len(t, fb.patches, 3)
}

func TestLoadFailureKeepsContents(t *testing.T) {
	l, fb := newList(t, strict, models.Task{ID: "A"})
	fb.listErr = errors.New("offline")
	require.Error(t, l.Load(context.Background()))
	assert.Len(t, l.Tasks(), 1)
}

func TestFetchReplacesRecords(t *testing.T) {
	l, fb := newList(t, strict, models.Task{ID: "A", Title: "old"})
	fb.tasks = []models.Task{{ID: "A", Title: "new"}, {ID: "S", ParentID: "A"}}

	task, err := l.Fetch(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "new", task.Title)
	assert.Len(t, l.Tasks(), 2)

	_, err = l.Fetch(context.Background(), "missing")
	assert.Equal(t, api.KindHTTP, api.KindOf(err))
}

func TestGenerateSubtasksAppendsUnderParent(t *testing.T) {
	l, fb := newList(t, strict, models.Task{ID: "A", EstimatedTime: 50})
	fb.generated = []models.Task{
		{ID: "g1", EstimatedTime: 20, Category: "x"},
		{ID: "g2", EstimatedTime: 10},
	}

	subs, err := l.GenerateSubtasks(context.Background(), "A", 2)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	trees := l.Trees()
	require.Len(t, trees, 1)
	assert.Equal(t, 30, trees[0].DisplayTime)
	assert.Equal(t, "", trees[0].Subtasks[0].Category)

	_, err = l.GenerateSubtasks(context.Background(), "g1", 2)
	assert.Error(t, err)
}
