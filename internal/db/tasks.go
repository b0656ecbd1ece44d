package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/tgienger/stride/internal/models"
)

// TaskFilter narrows ListTasks
type TaskFilter struct {
	// IsSubtask selects top-level tasks (false) or subtasks (true) when set
	IsSubtask *bool
	ParentID  string
}

const taskColumns = `id, parent_id, title, description, estimated_time, deadline, status, category, tags`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t        models.Task
		id       int64
		parentID sql.NullInt64
		deadline sql.NullString
		status   string
		category sql.NullString
		tags     string
	)
	if err := row.Scan(&id, &parentID, &t.Title, &t.Description, &t.EstimatedTime, &deadline, &status, &category, &tags); err != nil {
		return t, err
	}
	t.ID = formatID(id)
	if parentID.Valid {
		t.ParentID = formatID(parentID.Int64)
	}
	if deadline.Valid {
		d, err := models.ParseDate(deadline.String)
		if err != nil {
			return t, err
		}
		t.Deadline = d
	}
	t.Status = models.StatusFromBackend(status)
	t.Category = category.String
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return t, fmt.Errorf("decoding tags of task %s: %w", t.ID, err)
	}
	return t, nil
}

// CreateTask inserts a task or subtask. Subtasks never carry a category and
// must hang off a top-level task.
func (db *DB) CreateTask(t models.Task) (*models.Task, error) {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}

	var parentID *int64
	if t.ParentID != "" {
		parent, err := db.GetTask(t.ParentID)
		if err != nil {
			return nil, fmt.Errorf("%w: parent %s", ErrInvalid, t.ParentID)
		}
		if parent.IsSubtask() {
			return nil, fmt.Errorf("%w: parent %s is a subtask", ErrInvalid, t.ParentID)
		}
		pid, _ := parseID(parent.ID)
		parentID = &pid
		t.Category = ""
	}

	tags, err := encodeTags(t.Tags)
	if err != nil {
		return nil, err
	}
	var deadline, category *string
	if t.Deadline != nil {
		s := t.Deadline.String()
		deadline = &s
	}
	if t.Category != "" {
		category = &t.Category
		if err := db.EnsureCategory(t.Category); err != nil {
			return nil, err
		}
	}

	result, err := db.Exec(`
		INSERT INTO tasks (parent_id, title, description, estimated_time, deadline, status, category, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, parentID, title, t.Description, max(t.EstimatedTime, 0), deadline, models.StatusToBackend(t.Status), category, tags)
	if err != nil {
		return nil, translate(err, "creating task")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetTask(formatID(id))
}

// GetTask retrieves a task by ID
func (db *DB) GetTask(id string) (*models.Task, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	t, err := scanTask(db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, n))
	if err != nil {
		return nil, translate(err, "task "+id)
	}
	return &t, nil
}

// ListTasks returns tasks in creation order
func (db *DB) ListTasks(f TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1 = 1`
	var args []any

	if f.IsSubtask != nil {
		if *f.IsSubtask {
			query += " AND parent_id IS NOT NULL"
		} else {
			query += " AND parent_id IS NULL"
		}
	}
	if f.ParentID != "" {
		pid, err := parseID(f.ParentID)
		if err != nil {
			return nil, err
		}
		query += " AND parent_id = ?"
		args = append(args, pid)
	}
	query += " ORDER BY id"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial update keyed by wire field names and returns
// the updated task
func (db *DB) UpdateTask(id string, patch map[string]any) (*models.Task, error) {
	current, err := db.GetTask(id)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return current, nil
	}

	var (
		sets []string
		args []any
	)
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value, err := patchValue(key, patch[key])
		if err != nil {
			return nil, err
		}
		if key == "category" && value != nil {
			if current.IsSubtask() {
				return nil, fmt.Errorf("%w: subtasks have no category", ErrInvalid)
			}
			if err := db.EnsureCategory(value.(string)); err != nil {
				return nil, err
			}
		}
		sets = append(sets, key+" = ?")
		args = append(args, value)
	}

	n, _ := parseID(id)
	args = append(args, n)
	_, err = db.Exec(`UPDATE tasks SET `+strings.Join(sets, ", ")+`, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, args...)
	if err != nil {
		return nil, translate(err, "updating task "+id)
	}
	return db.GetTask(id)
}

// patchValue validates one patch entry and converts it to its column value.
// Keys double as column names.
func patchValue(key string, v any) (any, error) {
	invalid := func() error { return fmt.Errorf("%w: %s = %v", ErrInvalid, key, v) }

	switch key {
	case "title":
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, invalid()
		}
		return strings.TrimSpace(s), nil
	case "description":
		s, ok := v.(string)
		if !ok {
			return nil, invalid()
		}
		return s, nil
	case "estimated_time":
		switch n := v.(type) {
		case float64:
			if n < 0 || n != math.Trunc(n) {
				return nil, invalid()
			}
			return int64(n), nil
		case int:
			if n < 0 {
				return nil, invalid()
			}
			return int64(n), nil
		}
		return nil, invalid()
	case "deadline":
		if v == nil {
			return nil, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, invalid()
		}
		d, err := models.ParseDate(s)
		if err != nil {
			return nil, invalid()
		}
		if d == nil {
			return nil, nil
		}
		return d.String(), nil
	case "status":
		s, ok := v.(string)
		if !ok {
			return nil, invalid()
		}
		st, ok := models.ParseStatus(s)
		if !ok {
			return nil, invalid()
		}
		return models.StatusToBackend(st), nil
	case "category":
		if v == nil {
			return nil, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, invalid()
		}
		if s = strings.TrimSpace(s); s == "" {
			return nil, nil
		}
		return s, nil
	case "tags":
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, invalid()
		}
		var set models.TagSet
		if err := json.Unmarshal(raw, &set); err != nil {
			return nil, invalid()
		}
		return encodeTags(set)
	}
	return nil, fmt.Errorf("%w: unknown field %s", ErrInvalid, key)
}

func encodeTags(set models.TagSet) (string, error) {
	if set == nil {
		set = models.TagSet{}
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(raw), nil
}
