package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stride/internal/models"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// newTestServer serves responses keyed by "METHOD path" and records requests
func newTestServer(t *testing.T, responses map[string]func(w http.ResponseWriter)) (*Client, *[]recorded) {
	t.Helper()
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		reqs = append(reqs, rec)

		respond, ok := responses[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		respond(w)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL + "/"), &reqs
}

func jsonResponse(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestMissingBaseURLIsConfigError(t *testing.T) {
	c := New("  ")
	_, err := c.ListTasks(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.ErrorIs(t, err, ErrNoBaseURL)
	assert.Contains(t, UserMessage(err), "Setup problem")
}

func TestListTasksFlattensSubtasks(t *testing.T) {
	c, reqs := newTestServer(t, map[string]func(http.ResponseWriter){
		"GET /tasks": jsonResponse(200, `[
			{"id": 1, "title": "Write report", "estimated_time": 30, "status": "in_progress",
			 "deadline": "2025-03-01", "category": "Work", "tags": {"Priority": ["High"]},
			 "subtasks": [
				{"id": 2, "title": "Outline", "estimated_time": 10, "status": "pending"},
				{"id": "3", "parent_id": 1, "title": "Draft", "estimated_time": 15, "status": "weird"}
			 ]}
		]`),
	})

	tasks, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	require.Len(t, *reqs, 1)
	assert.Equal(t, "is_subtask=false", (*reqs)[0].Query)

	parent := tasks[0]
	assert.Equal(t, "1", parent.ID)
	assert.Equal(t, "", parent.ParentID)
	assert.Equal(t, models.StatusInProgress, parent.Status)
	assert.Equal(t, "2025-03-01", models.FormatDate(parent.Deadline))
	assert.Equal(t, "Work", parent.Category)
	assert.True(t, parent.Tags.Has("Priority", "High"))

	assert.Equal(t, "1", tasks[1].ParentID)
	assert.Equal(t, "1", tasks[2].ParentID)
	assert.Equal(t, "3", tasks[2].ID)
	assert.Equal(t, models.StatusNotStarted, tasks[2].Status)
}

func TestHTTPErrorExtractsMessage(t *testing.T) {
	c, _ := newTestServer(t, map[string]func(http.ResponseWriter){
		"GET /tasks/9": jsonResponse(404, `{"detail": "Task not found"}`),
	})

	_, err := c.GetTask(context.Background(), "9")
	require.Error(t, err)
	assert.Equal(t, KindHTTP, KindOf(err))
	assert.Equal(t, 404, StatusOf(err))
	assert.Equal(t, "Task not found", UserMessage(err))
	assert.Contains(t, err.Error(), "GET /tasks/9")
}

func TestHTTPErrorWithoutMessageFallsBack(t *testing.T) {
	c, _ := newTestServer(t, map[string]func(http.ResponseWriter){
		"PATCH /tasks/1": jsonResponse(500, `oops`),
	})

	err := c.UpdateTask(context.Background(), "1", map[string]any{"title": "x"})
	require.Error(t, err)
	assert.Equal(t, "The server returned an error (500).", UserMessage(err))
}

func TestParseError(t *testing.T) {
	c, _ := newTestServer(t, map[string]func(http.ResponseWriter){
		"GET /tasks/tag-groups": jsonResponse(200, `{"not": "a list"`),
	})

	_, err := c.ListTagGroups(context.Background())
	assert.Equal(t, KindParse, KindOf(err))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url).CreateRecord(context.Background(), models.WorkRecord{TaskID: "1"})
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestTimeoutError(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := New(srv.URL, WithRequestTimeout(20*time.Millisecond))
	_, err := c.ListCategories(context.Background())
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestUpdateRoutesBySubtask(t *testing.T) {
	c, reqs := newTestServer(t, map[string]func(http.ResponseWriter){
		"PATCH /tasks/7":          jsonResponse(200, `{}`),
		"PATCH /tasks/subtasks/8": jsonResponse(204, ``),
	})

	require.NoError(t, c.UpdateTask(context.Background(), "7", map[string]any{"status": "completed"}))
	require.NoError(t, c.UpdateSubtask(context.Background(), "8", map[string]any{"estimated_time": 5}))

	require.Len(t, *reqs, 2)
	assert.Equal(t, "completed", (*reqs)[0].Body["status"])
	assert.Equal(t, "/tasks/subtasks/8", (*reqs)[1].Path)
	assert.EqualValues(t, 5, (*reqs)[1].Body["estimated_time"])
}

func TestCreateTaskAndSubtask(t *testing.T) {
	c, reqs := newTestServer(t, map[string]func(http.ResponseWriter){
		"POST /tasks/":         jsonResponse(201, `{"id": 42, "title": "Trip", "status": "pending"}`),
		"POST /tasks/subtasks": jsonResponse(201, `{"id": 43, "title": "Book", "status": "pending"}`),
	})

	d := models.Date{Year: 2025, Month: time.May, Day: 2}
	main, err := c.CreateTask(context.Background(), NewTaskInput(models.Task{
		Title: "Trip", Deadline: &d, Category: "Travel", Status: models.StatusNotStarted,
	}))
	require.NoError(t, err)
	assert.Equal(t, "42", main.ID)

	sub, err := c.CreateSubtask(context.Background(), NewTaskInput(models.Task{
		ParentID: "42", Title: "Book", Category: "ignored",
	}))
	require.NoError(t, err)
	assert.Equal(t, "43", sub.ID)
	assert.Equal(t, "42", sub.ParentID)

	require.Len(t, *reqs, 2)
	assert.Equal(t, "2025-05-02", (*reqs)[0].Body["deadline"])
	assert.Equal(t, "Travel", (*reqs)[0].Body["category"])
	assert.Equal(t, "pending", (*reqs)[0].Body["status"])
	assert.Equal(t, "42", (*reqs)[1].Body["parent_id"])
	assert.NotContains(t, (*reqs)[1].Body, "category")
}

func TestCreateWithoutIDIsParseError(t *testing.T) {
	c, _ := newTestServer(t, map[string]func(http.ResponseWriter){
		"POST /tasks/": jsonResponse(201, `{"title": "x"}`),
	})
	_, err := c.CreateTask(context.Background(), TaskInput{Title: "x"})
	assert.Equal(t, KindParse, KindOf(err))
}

func TestCreateSubtaskRequiresParent(t *testing.T) {
	_, err := New("http://unused").CreateSubtask(context.Background(), TaskInput{Title: "x"})
	assert.Error(t, err)
}

func TestTagEndpoints(t *testing.T) {
	c, reqs := newTestServer(t, map[string]func(http.ResponseWriter){
		"GET /tasks/tag-groups":        jsonResponse(200, `[{"id": 1, "name": "Priority", "is_single_select": true, "allow_add_tags": false}]`),
		"POST /tasks/tag-groups":       jsonResponse(201, `{"id": 5, "name": "Energy", "is_single_select": true, "allow_add_tags": true}`),
		"GET /tasks/tag-groups/1/tags": jsonResponse(200, `[{"id": 10, "name": "High"}]`),
		"POST /tasks/tags":             jsonResponse(201, `{"id": 11, "name": "Low", "tag_group_id": 5}`),
		"GET /tasks/categories":        jsonResponse(200, `["Work", {"name": "Home"}, ""]`),
	})
	ctx := context.Background()

	groups, err := c.ListTagGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].IsSingleSelect)
	assert.False(t, groups[0].AllowAddTags)

	g, err := c.CreateTagGroup(ctx, TagGroupInput{Name: "Energy", IsSingleSelect: true, AllowAddTags: true})
	require.NoError(t, err)
	assert.Equal(t, "5", g.ID)

	tags, err := c.ListTags(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []models.Tag{{ID: "10", Name: "High", GroupID: "1"}}, tags)

	tag, err := c.CreateTag(ctx, "5", "Low")
	require.NoError(t, err)
	assert.Equal(t, "5", tag.GroupID)

	cats, err := c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Work", "Home"}, cats)

	assert.Equal(t, "5", (*reqs)[3].Body["tag_group_id"])
}

func TestGenerateSubtasks(t *testing.T) {
	c, reqs := newTestServer(t, map[string]func(http.ResponseWriter){
		"POST /tasks/4/generate-subtasks": jsonResponse(200, `{"subtasks": [{"id": 20, "title": "Step 1", "estimated_time": 5}]}`),
	})

	subs, err := c.GenerateSubtasks(context.Background(), "4", 3)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "4", subs[0].ParentID)
	assert.EqualValues(t, 3, (*reqs)[0].Body["max_subtasks"])
}

func TestRecordsAndRecommend(t *testing.T) {
	c, reqs := newTestServer(t, map[string]func(http.ResponseWriter){
		"POST /records":    jsonResponse(201, `{"id": 1}`),
		"POST /recommend/": jsonResponse(200, `{"recommendations": [{"task": {"id": 3, "title": "Read"}, "reason": "Fits in 20 minutes", "score": 0.9}]}`),
	})
	ctx := context.Background()

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, c.CreateRecord(ctx, models.WorkRecord{TaskID: "3", Mode: "focus", Place: "Home", Minutes: 25, Timestamp: ts}))

	recs, err := c.Recommend(ctx, RecommendRequest{AvailableMinutes: 20, Mode: "focus"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Read", recs[0].Task.Title)
	assert.Equal(t, "Fits in 20 minutes", recs[0].Reason)

	assert.Equal(t, "2025-01-02T03:04:05Z", (*reqs)[0].Body["timestamp"])
	assert.Equal(t, []any{}, (*reqs)[0].Body["tools"])
	assert.EqualValues(t, 20, (*reqs)[1].Body["available_minutes"])
}

func TestWithTimeoutZeroOnlyCancels(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	_, has := ctx.Deadline()
	assert.False(t, has)
	cancel()
	assert.Error(t, ctx.Err())
}
