package db

import (
	"fmt"
	"strings"
)

// EnsureCategory records a category name. Existing names are left alone,
// compared case-insensitively.
func (db *DB) EnsureCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty category", ErrInvalid)
	}
	_, err := db.Exec(`INSERT OR IGNORE INTO categories (name) VALUES (?)`, name)
	return translate(err, "saving category")
}

// ListCategories returns all category names in creation order
func (db *DB) ListCategories() ([]string, error) {
	rows, err := db.Query(`SELECT name FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CategoryCount returns the number of categories
func (db *DB) CategoryCount() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count)
	return count, err
}
