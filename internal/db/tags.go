package db

import (
	"fmt"
	"strings"

	"github.com/tgienger/stride/internal/models"
)

const tagGroupColumns = `id, name, is_single_select, allow_add_tags`

func scanTagGroup(row rowScanner) (models.TagGroup, error) {
	var (
		g  models.TagGroup
		id int64
	)
	if err := row.Scan(&id, &g.Name, &g.IsSingleSelect, &g.AllowAddTags); err != nil {
		return g, err
	}
	g.ID = formatID(id)
	return g, nil
}

func scanTag(row rowScanner) (models.Tag, error) {
	var (
		t           models.Tag
		id, groupID int64
	)
	if err := row.Scan(&id, &t.Name, &groupID); err != nil {
		return t, err
	}
	t.ID = formatID(id)
	t.GroupID = formatID(groupID)
	return t, nil
}

// CreateTagGroup creates a new tag group
func (db *DB) CreateTagGroup(g models.TagGroup) (*models.TagGroup, error) {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrInvalid)
	}
	result, err := db.Exec(`
		INSERT INTO tag_groups (name, is_single_select, allow_add_tags) VALUES (?, ?, ?)
	`, name, g.IsSingleSelect, g.AllowAddTags)
	if err != nil {
		return nil, translate(err, "creating tag group "+name)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetTagGroup(formatID(id))
}

// GetTagGroup retrieves a tag group by ID
func (db *DB) GetTagGroup(id string) (*models.TagGroup, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	g, err := scanTagGroup(db.QueryRow(`SELECT `+tagGroupColumns+` FROM tag_groups WHERE id = ?`, n))
	if err != nil {
		return nil, translate(err, "tag group "+id)
	}
	return &g, nil
}

// ListTagGroups returns all tag groups in creation order
func (db *DB) ListTagGroups() ([]models.TagGroup, error) {
	rows, err := db.Query(`SELECT ` + tagGroupColumns + ` FROM tag_groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.TagGroup
	for rows.Next() {
		g, err := scanTagGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreateTag creates a tag inside a group
func (db *DB) CreateTag(groupID, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tag name is required", ErrInvalid)
	}
	group, err := db.GetTagGroup(groupID)
	if err != nil {
		return nil, err
	}
	gid, _ := parseID(group.ID)

	result, err := db.Exec("INSERT INTO tags (name, tag_group_id) VALUES (?, ?)", name, gid)
	if err != nil {
		return nil, translate(err, "creating tag "+name)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetTag(formatID(id))
}

// GetTag retrieves a tag by ID
func (db *DB) GetTag(id string) (*models.Tag, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	t, err := scanTag(db.QueryRow("SELECT id, name, tag_group_id FROM tags WHERE id = ?", n))
	if err != nil {
		return nil, translate(err, "tag "+id)
	}
	return &t, nil
}

// ListTagsByGroup returns all tags in a specific group
func (db *DB) ListTagsByGroup(groupID string) ([]models.Tag, error) {
	if _, err := db.GetTagGroup(groupID); err != nil {
		return nil, err
	}
	gid, _ := parseID(groupID)

	rows, err := db.Query(`
		SELECT id, name, tag_group_id
		FROM tags
		WHERE tag_group_id = ?
		ORDER BY id
	`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
