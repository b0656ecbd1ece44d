package devserver

import (
	"cmp"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/tgienger/stride/internal/db"
	"github.com/tgienger/stride/internal/models"
)

const maxRecommendations = 5

type recommendRequest struct {
	AvailableMinutes int      `json:"available_minutes"`
	Mode             string   `json:"mode"`
	Place            string   `json:"place"`
	Tools            []string `json:"tools"`
}

type recommendationJSON struct {
	Task   taskJSON `json:"task"`
	Reason string   `json:"reason"`
	Score  float64  `json:"score"`
}

type candidate struct {
	task    models.Task
	score   float64
	reasons []string
}

// rank scores open leaf tasks against the request. Parents with subtasks are
// left out since the work happens on their subtasks.
func rank(tasks []models.Task, worked map[string]int, req recommendRequest, today time.Time) []candidate {
	hasChildren := make(map[string]bool)
	for _, t := range tasks {
		if t.IsSubtask() {
			hasChildren[t.ParentID] = true
		}
	}
	todayDate := models.DateOf(today)

	var out []candidate
	for _, t := range tasks {
		if hasChildren[t.ID] || t.Status == models.StatusDone || t.Status == models.StatusArchive {
			continue
		}
		c := candidate{task: t}

		left := max(t.EstimatedTime-worked[t.ID], 0)
		switch {
		case req.AvailableMinutes <= 0:
		case left > 0 && left <= req.AvailableMinutes:
			c.score += 2
			c.reasons = append(c.reasons, "fits in your time")
		case left > req.AvailableMinutes:
			c.score -= 1
		}

		if matchTag(t.Tags, "Mode", req.Mode) {
			c.score++
			c.reasons = append(c.reasons, "matches your mode")
		}
		if matchTag(t.Tags, "Place", req.Place) {
			c.score++
			c.reasons = append(c.reasons, "matches your place")
		}
		if needs := t.Tags["Tools"]; len(needs) > 0 && containsAll(req.Tools, needs) {
			c.score++
			c.reasons = append(c.reasons, "you have the tools")
		}

		if t.Deadline != nil {
			days := int(t.Deadline.Time().Sub(todayDate.Time()).Hours() / 24)
			switch {
			case days < 0:
				c.score += 2
				c.reasons = append(c.reasons, "overdue")
			case days <= 3:
				c.score += 1.5
				c.reasons = append(c.reasons, "due soon")
			}
		}
		if t.Status == models.StatusInProgress {
			c.score += 0.5
			c.reasons = append(c.reasons, "already started")
		}
		out = append(out, c)
	}

	slices.SortStableFunc(out, func(a, b candidate) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

func matchTag(tags models.TagSet, group, want string) bool {
	if want == "" {
		return false
	}
	return slices.ContainsFunc(tags[group], func(s string) bool { return strings.EqualFold(s, want) })
}

func containsAll(have, need []string) bool {
	for _, n := range need {
		if !slices.ContainsFunc(have, func(h string) bool { return strings.EqualFold(h, n) }) {
			return false
		}
	}
	return true
}

// recommend handles POST /recommend/
func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tasks, err := s.store.ListTasks(db.TaskFilter{})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	worked, err := s.store.MinutesWorked()
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := []recommendationJSON{}
	for _, c := range rank(tasks, worked, req, s.now()) {
		reason := strings.Join(c.reasons, ", ")
		if reason == "" {
			reason = "open task"
		}
		out = append(out, recommendationJSON{Task: toJSON(c.task), Reason: reason, Score: c.score})
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": out})
}
