package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stride/internal/api"
	"github.com/tgienger/stride/internal/models"
)

func (f *fakeBackend) CreateTask(ctx context.Context, in api.TaskInput) (*models.Task, error) {
	return f.create(in)
}

func (f *fakeBackend) CreateSubtask(ctx context.Context, in api.TaskInput) (*models.Task, error) {
	return f.create(in)
}

func (f *fakeBackend) create(in api.TaskInput) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, in)
	if err := f.createErrs[in.Title]; err != nil {
		return nil, err
	}
	f.nextID++
	return &models.Task{ID: fmt.Sprintf("%d", f.nextID), ParentID: in.ParentID, Title: in.Title}, nil
}

func TestNewDraftUsesTempID(t *testing.T) {
	d := NewDraft()
	assert.True(t, IsTemp(d.Task.ID))
	assert.Equal(t, models.StatusNotStarted, d.Task.Status)

	other := NewDraft()
	assert.NotEqual(t, d.Task.ID, other.Task.ID)
}

func TestDraftSubtaskEditing(t *testing.T) {
	d := NewDraft()
	s := d.AddSubtask("Pack")
	assert.Equal(t, d.Task.ID, s.ParentID)

	require.NoError(t, d.SetSubtaskField(s.ID, FieldEstimatedTime, 15))
	assert.ErrorIs(t, d.SetSubtaskField(s.ID, FieldCategory, "Travel"), ErrInvalidValue)
	assert.Error(t, d.SetSubtaskField("nope", FieldTitle, "x"))

	other := d.AddSubtask("Book")
	require.NoError(t, d.SetSubtaskField(other.ID, FieldEstimatedTime, "10"))
	assert.Equal(t, 25, d.Tree().DisplayTime)

	assert.True(t, d.RemoveSubtask(s.ID))
	assert.False(t, d.RemoveSubtask(s.ID))
	assert.Equal(t, 10, d.Tree().DisplayTime)
}

func TestDraftApplyTags(t *testing.T) {
	d := NewDraft()
	s := d.AddSubtask("Pack")
	cat := "Travel"
	sel := models.TagSet{models.CategoryGroup: {"Travel"}, "Place": {"Home"}}

	d.ApplyTags("", sel, &cat)
	d.ApplyTags(s.ID, sel, &cat)

	assert.Equal(t, "Travel", d.Task.Category)
	assert.True(t, d.Task.Tags.Has(models.CategoryGroup, "Travel"))
	assert.NotContains(t, d.Subtasks[0].Tags, models.CategoryGroup)
	assert.Equal(t, "", d.Subtasks[0].Category)
}

func TestSubmitRequiresTitle(t *testing.T) {
	d := NewDraft()
	d.Task.Title = "   "
	_, err := d.Submit(context.Background(), &fakeBackend{})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestSubmitCreatesMainThenSubtasks(t *testing.T) {
	fb := &fakeBackend{}
	d := NewDraft()
	require.NoError(t, d.SetField(FieldTitle, "Trip"))
	require.NoError(t, d.SetField(FieldCategory, "Travel"))
	d.AddSubtask("Book flights")
	d.AddSubtask("")

	created, err := d.Submit(context.Background(), fb)
	require.NoError(t, err)
	assert.Equal(t, "1", created.ID)
	assert.False(t, IsTemp(d.Task.ID))

	require.Len(t, fb.createCalls, 3)
	assert.Equal(t, "Trip", fb.createCalls[0].Title)
	require.NotNil(t, fb.createCalls[0].Category)

	titles := []string{}
	for _, c := range fb.createCalls[1:] {
		assert.Equal(t, "1", c.ParentID)
		assert.Nil(t, c.Category)
		titles = append(titles, c.Title)
	}
	assert.ElementsMatch(t, []string{"Book flights", UntitledSubtask}, titles)

	for _, s := range d.Subtasks {
		assert.False(t, IsTemp(s.ID))
		assert.Equal(t, "1", s.ParentID)
	}
	assert.Equal(t, UntitledSubtask, d.Subtasks[1].Title)
}

func TestSubmitRetryOnlyCreatesMissing(t *testing.T) {
	fb := &fakeBackend{createErrs: map[string]error{"Flaky": errors.New("503")}}
	d := NewDraft()
	d.Task.Title = "Trip"
	d.AddSubtask("Fine")
	d.AddSubtask("Flaky")

	_, err := d.Submit(context.Background(), fb)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Flaky"))
	assert.False(t, IsTemp(d.Task.ID), "main task keeps its backend id")
	assert.False(t, IsTemp(d.Subtasks[0].ID))
	assert.True(t, IsTemp(d.Subtasks[1].ID))

	delete(fb.createErrs, "Flaky")
	_, err = d.Submit(context.Background(), fb)
	require.NoError(t, err)

	// main + 2 attempts of Flaky + Fine once
	assert.Len(t, fb.createCalls, 4)
	assert.False(t, IsTemp(d.Subtasks[1].ID))
}

func TestSubmitMainFailureKeepsDraft(t *testing.T) {
	fb := &fakeBackend{createErrs: map[string]error{"Trip": errors.New("down")}}
	d := NewDraft()
	d.Task.Title = "Trip"
	d.AddSubtask("Pack")
	tempID := d.Task.ID

	_, err := d.Submit(context.Background(), fb)
	require.Error(t, err)
	assert.Equal(t, tempID, d.Task.ID)
	assert.Equal(t, tempID, d.Subtasks[0].ParentID)
	assert.Len(t, fb.createCalls, 1)
}
