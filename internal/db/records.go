package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tgienger/stride/internal/models"
)

// CreateRecord stores a finished work session on a task
func (db *DB) CreateRecord(r models.WorkRecord) (string, error) {
	task, err := db.GetTask(r.TaskID)
	if err != nil {
		return "", err
	}
	if r.Minutes < 0 {
		return "", fmt.Errorf("%w: negative duration", ErrInvalid)
	}
	tools := r.Tools
	if tools == nil {
		tools = []string{}
	}
	rawTools, err := json.Marshal(tools)
	if err != nil {
		return "", err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	taskID, _ := parseID(task.ID)
	result, err := db.Exec(`
		INSERT INTO records (task_id, mode, place, tools, duration_minutes, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, taskID, r.Mode, r.Place, string(rawTools), r.Minutes, r.Timestamp.UTC())
	if err != nil {
		return "", translate(err, "creating record")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", err
	}
	return formatID(id), nil
}

// ListRecords returns the work records of a task, oldest first
func (db *DB) ListRecords(taskID string) ([]models.WorkRecord, error) {
	n, err := parseID(taskID)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`
		SELECT mode, place, tools, duration_minutes, recorded_at
		FROM records
		WHERE task_id = ?
		ORDER BY recorded_at ASC, id ASC
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.WorkRecord
	for rows.Next() {
		r := models.WorkRecord{TaskID: taskID}
		var tools string
		if err := rows.Scan(&r.Mode, &r.Place, &tools, &r.Minutes, &r.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tools), &r.Tools); err != nil {
			return nil, fmt.Errorf("decoding tools: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// MinutesWorked returns the recorded minutes per task id
func (db *DB) MinutesWorked() (map[string]int, error) {
	rows, err := db.Query(`SELECT task_id, SUM(duration_minutes) FROM records GROUP BY task_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			id      int64
			minutes int
		)
		if err := rows.Scan(&id, &minutes); err != nil {
			return nil, err
		}
		out[formatID(id)] = minutes
	}
	return out, rows.Err()
}
