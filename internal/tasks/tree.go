package tasks

import "github.com/tgienger/stride/internal/models"

// Tree is a top-level task with its subtasks
type Tree struct {
	Task        models.Task
	Subtasks    []models.Task
	DisplayTime int // minutes
}

// Build groups a flat task list into trees, one per top-level task, in
// source order. DisplayTime is the sum of subtask estimates when there are
// subtasks, otherwise the task's own estimate. Subtasks whose parent is not
// a top-level task in records are left out; see Orphans.
func Build(records []models.Task) []Tree {
	index := make(map[string]int)
	var trees []Tree
	for _, r := range records {
		if r.IsSubtask() {
			continue
		}
		index[r.ID] = len(trees)
		trees = append(trees, Tree{Task: r})
	}

	for _, r := range records {
		if !r.IsSubtask() {
			continue
		}
		if i, ok := index[r.ParentID]; ok {
			trees[i].Subtasks = append(trees[i].Subtasks, r)
		}
	}

	for i := range trees {
		trees[i].DisplayTime = displayTime(trees[i])
	}
	return trees
}

func displayTime(t Tree) int {
	if len(t.Subtasks) == 0 {
		return t.Task.EstimatedTime
	}
	total := 0
	for _, s := range t.Subtasks {
		total += s.EstimatedTime
	}
	return total
}

// Orphans returns the subtasks Build would drop
func Orphans(records []models.Task) []models.Task {
	top := make(map[string]bool)
	for _, r := range records {
		if !r.IsSubtask() {
			top[r.ID] = true
		}
	}
	var out []models.Task
	for _, r := range records {
		if r.IsSubtask() && !top[r.ParentID] {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the tree whose task or subtasks contain id
func Find(trees []Tree, id string) (Tree, bool) {
	for _, t := range trees {
		if t.Task.ID == id {
			return t, true
		}
		for _, s := range t.Subtasks {
			if s.ID == id {
				return t, true
			}
		}
	}
	return Tree{}, false
}
