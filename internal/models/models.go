package models

import (
	"slices"
	"time"
)

// CategoryGroup is the reserved tag group holding a top-level task's category
const CategoryGroup = "Category"

// Task represents a single task or subtask
type Task struct {
	ID            string
	ParentID      string // empty for a top-level task
	Title         string
	Description   string
	EstimatedTime int // minutes
	Deadline      *Date
	Status        Status
	Category      string // top-level tasks only
	Tags          TagSet
}

// IsSubtask reports whether the task belongs to a parent
func (t Task) IsSubtask() bool {
	return t.ParentID != ""
}

// Clone returns a deep copy of the task
func (t Task) Clone() Task {
	c := t
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	c.Tags = t.Tags.Clone()
	return c
}

// TagSet maps a tag group name to the selected tag names in that group
type TagSet map[string][]string

// Clone returns a deep copy of the set
func (s TagSet) Clone() TagSet {
	if s == nil {
		return nil
	}
	c := make(TagSet, len(s))
	for group, tags := range s {
		c[group] = slices.Clone(tags)
	}
	return c
}

// Has reports whether tag is selected in group
func (s TagSet) Has(group, tag string) bool {
	return slices.Contains(s[group], tag)
}

// Without returns a copy of the set with group removed
func (s TagSet) Without(group string) TagSet {
	c := s.Clone()
	if c == nil {
		c = TagSet{}
	}
	delete(c, group)
	return c
}

// Color is a background/foreground pair used for presentation
type Color struct {
	Background string
	Foreground string
}

// TagGroup represents a named category of selectable tags
type TagGroup struct {
	ID             string
	Name           string
	IsSingleSelect bool
	AllowAddTags   bool
	Color          Color
}

// Tag represents a tag scoped to one tag group
type Tag struct {
	ID      string
	Name    string
	GroupID string
}

// WorkRecord is a finished work session reported to the backend
type WorkRecord struct {
	TaskID    string
	Mode      string
	Place     string
	Tools     []string
	Minutes   int
	Timestamp time.Time
}

// Recommendation is a candidate task suggested by the backend
type Recommendation struct {
	Task   Task
	Reason string
	Score  float64
}
