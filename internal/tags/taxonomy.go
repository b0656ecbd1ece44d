package tags

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tgienger/stride/internal/logger"
	"github.com/tgienger/stride/internal/models"
)

// Source lists the remote taxonomy
type Source interface {
	ListTagGroups(ctx context.Context) ([]models.TagGroup, error)
	ListTags(ctx context.Context, groupID string) ([]models.Tag, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// Taxonomy is the known set of tag groups and their tags
type Taxonomy struct {
	groups []models.TagGroup
	tags   map[string][]models.Tag // by group name
}

// NewTaxonomy builds a taxonomy from groups and tags. Groups without a color
// get one from the palette.
func NewTaxonomy(groups []models.TagGroup, tags []models.Tag) *Taxonomy {
	t := &Taxonomy{tags: make(map[string][]models.Tag)}
	byID := make(map[string]string)
	for _, g := range groups {
		t.addGroup(g)
		if g.ID != "" {
			byID[g.ID] = g.Name
		}
	}
	for _, tag := range tags {
		if name, ok := byID[tag.GroupID]; ok {
			t.addTag(name, tag)
		}
	}
	return t
}

// LoadTaxonomy fetches groups and their tags. When the backend has no
// Category group, one is synthesized from the flat category list.
func LoadTaxonomy(ctx context.Context, src Source) (*Taxonomy, error) {
	groups, err := src.ListTagGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tag groups: %w", err)
	}

	perGroup := make([][]models.Tag, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			tags, err := src.ListTags(gctx, group.ID)
			if err != nil {
				return fmt.Errorf("loading tags of %s: %w", group.Name, err)
			}
			perGroup[i] = tags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.Tag
	for i, tags := range perGroup {
		for _, tag := range tags {
			tag.GroupID = groups[i].ID
			all = append(all, tag)
		}
	}
	t := NewTaxonomy(groups, all)

	if _, ok := t.Group(models.CategoryGroup); !ok {
		cats, err := src.ListCategories(ctx)
		if err != nil {
			logger.Warn("tags: loading categories failed: %v", err)
		}
		t.addGroup(models.TagGroup{Name: models.CategoryGroup, IsSingleSelect: true, AllowAddTags: true})
		for _, c := range cats {
			t.addTag(models.CategoryGroup, models.Tag{Name: c})
		}
	}
	return t, nil
}

// Groups returns the groups in load order
func (t *Taxonomy) Groups() []models.TagGroup {
	return slices.Clone(t.groups)
}

// Group looks up a group by name
func (t *Taxonomy) Group(name string) (models.TagGroup, bool) {
	for _, g := range t.groups {
		if g.Name == name {
			return g, true
		}
	}
	return models.TagGroup{}, false
}

// TagNames returns the tag names of a group
func (t *Taxonomy) TagNames(group string) []string {
	tags := t.tags[group]
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = tag.Name
	}
	return out
}

// HasTag reports whether tag is known in group
func (t *Taxonomy) HasTag(group, tag string) bool {
	return slices.ContainsFunc(t.tags[group], func(x models.Tag) bool { return x.Name == tag })
}

func (t *Taxonomy) colors() []models.Color {
	out := make([]models.Color, len(t.groups))
	for i, g := range t.groups {
		out[i] = g.Color
	}
	return out
}

func (t *Taxonomy) addGroup(g models.TagGroup) {
	if _, ok := t.Group(g.Name); ok {
		return
	}
	if g.Color == (models.Color{}) {
		g.Color = NextColor(t.colors())
	}
	t.groups = append(t.groups, g)
}

func (t *Taxonomy) addTag(group string, tag models.Tag) {
	if t.HasTag(group, tag.Name) {
		return
	}
	t.tags[group] = append(t.tags[group], tag)
}

// hasGroupNamed compares names case-insensitively
func (t *Taxonomy) hasGroupNamed(name string) bool {
	return slices.ContainsFunc(t.groups, func(g models.TagGroup) bool {
		return strings.EqualFold(g.Name, name)
	})
}

// Selection returns a task's tag selection with its category folded into the
// Category group
func Selection(task models.Task) models.TagSet {
	sel := task.Tags.Clone()
	if sel == nil {
		sel = models.TagSet{}
	}
	if task.IsSubtask() {
		delete(sel, models.CategoryGroup)
		return sel
	}
	if task.Category != "" && len(sel[models.CategoryGroup]) == 0 {
		sel[models.CategoryGroup] = []string{task.Category}
	}
	return sel
}
