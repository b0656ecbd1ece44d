package db

import (
	"fmt"

	"github.com/tgienger/stride/internal/models"
)

const seededKey = "seeded"

// Seed fills an empty database with a starter taxonomy and one task tree.
// It runs once per database and reports whether it did anything.
func (db *DB) Seed() (bool, error) {
	done, err := db.GetSetting(seededKey)
	if err != nil {
		return false, err
	}
	if done != "" {
		return false, nil
	}

	groups := []struct {
		group models.TagGroup
		tags  []string
	}{
		{models.TagGroup{Name: "Place", IsSingleSelect: true, AllowAddTags: true}, []string{"Home", "Office", "Outside"}},
		{models.TagGroup{Name: "Mode", IsSingleSelect: true}, []string{"Focus", "Light", "Social"}},
		{models.TagGroup{Name: "Tools", AllowAddTags: true}, []string{"Laptop", "Phone"}},
	}
	for _, g := range groups {
		created, err := db.CreateTagGroup(g.group)
		if err != nil {
			return false, fmt.Errorf("seeding: %w", err)
		}
		for _, name := range g.tags {
			if _, err := db.CreateTag(created.ID, name); err != nil {
				return false, fmt.Errorf("seeding: %w", err)
			}
		}
	}
	for _, name := range []string{"Work", "Personal", "Errands"} {
		if err := db.EnsureCategory(name); err != nil {
			return false, fmt.Errorf("seeding: %w", err)
		}
	}

	parent, err := db.CreateTask(models.Task{
		Title:         "Plan the week",
		Description:   "Review open work and block time",
		EstimatedTime: 30,
		Category:      "Work",
		Tags:          models.TagSet{"Place": {"Office"}, "Mode": {"Focus"}},
	})
	if err != nil {
		return false, fmt.Errorf("seeding: %w", err)
	}
	for _, sub := range []models.Task{
		{Title: "Clear the inbox", EstimatedTime: 15},
		{Title: "Order the backlog", EstimatedTime: 20},
	} {
		sub.ParentID = parent.ID
		if _, err := db.CreateTask(sub); err != nil {
			return false, fmt.Errorf("seeding: %w", err)
		}
	}

	return true, db.SetSetting(seededKey, "1")
}
