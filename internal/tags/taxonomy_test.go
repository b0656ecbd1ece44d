package tags

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stride/internal/models"
)

type fakeSource struct {
	groups     []models.TagGroup
	tags       map[string][]models.Tag
	categories []string
	tagsErr    error
	catErr     error
}

func (f *fakeSource) ListTagGroups(ctx context.Context) ([]models.TagGroup, error) {
	return f.groups, nil
}

func (f *fakeSource) ListTags(ctx context.Context, groupID string) ([]models.Tag, error) {
	if f.tagsErr != nil {
		return nil, f.tagsErr
	}
	return f.tags[groupID], nil
}

func (f *fakeSource) ListCategories(ctx context.Context) ([]string, error) {
	return f.categories, f.catErr
}

func TestLoadTaxonomySynthesizesCategory(t *testing.T) {
	src := &fakeSource{
		groups:     []models.TagGroup{{ID: "1", Name: "Place", IsSingleSelect: true}},
		tags:       map[string][]models.Tag{"1": {{ID: "10", Name: "Home"}, {ID: "11", Name: "Office"}}},
		categories: []string{"Work", "Travel"},
	}

	tax, err := LoadTaxonomy(context.Background(), src)
	require.NoError(t, err)

	groups := tax.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "Place", groups[0].Name)
	assert.Equal(t, models.CategoryGroup, groups[1].Name)
	assert.True(t, groups[1].IsSingleSelect)
	assert.True(t, groups[1].AllowAddTags)
	assert.Empty(t, groups[1].ID)

	assert.Equal(t, []string{"Home", "Office"}, tax.TagNames("Place"))
	assert.Equal(t, []string{"Work", "Travel"}, tax.TagNames(models.CategoryGroup))
	assert.NotEqual(t, groups[0].Color, groups[1].Color)
}

func TestLoadTaxonomyKeepsBackendCategoryGroup(t *testing.T) {
	src := &fakeSource{
		groups: []models.TagGroup{{ID: "7", Name: models.CategoryGroup, IsSingleSelect: true}},
		tags:   map[string][]models.Tag{"7": {{ID: "1", Name: "Work"}}},
		catErr: errors.New("should not be called"),
	}
	tax, err := LoadTaxonomy(context.Background(), src)
	require.NoError(t, err)
	g, ok := tax.Group(models.CategoryGroup)
	require.True(t, ok)
	assert.Equal(t, "7", g.ID)
	assert.Equal(t, []string{"Work"}, tax.TagNames(models.CategoryGroup))
}

func TestLoadTaxonomyTagFailure(t *testing.T) {
	src := &fakeSource{
		groups:  []models.TagGroup{{ID: "1", Name: "Place"}},
		tagsErr: errors.New("boom"),
	}
	_, err := LoadTaxonomy(context.Background(), src)
	assert.ErrorContains(t, err, "Place")
}

func TestLoadTaxonomyCategoryFailureStillSynthesizes(t *testing.T) {
	src := &fakeSource{catErr: errors.New("down")}
	tax, err := LoadTaxonomy(context.Background(), src)
	require.NoError(t, err)
	_, ok := tax.Group(models.CategoryGroup)
	assert.True(t, ok)
	assert.Empty(t, tax.TagNames(models.CategoryGroup))
}

func TestNextColor(t *testing.T) {
	assert.Equal(t, Palette[0], NextColor(nil))
	assert.Equal(t, Palette[2], NextColor([]models.Color{Palette[0], Palette[1]}))
	assert.Equal(t, Palette[0], NextColor([]models.Color{Palette[1]}))

	all := append([]models.Color(nil), Palette...)
	assert.Equal(t, Palette[0], NextColor(all))
	assert.Equal(t, Palette[1], NextColor(append(all, Palette[0])))
}

func TestSelection(t *testing.T) {
	main := models.Task{ID: "1", Category: "Work", Tags: models.TagSet{"Place": {"Home"}}}
	sel := Selection(main)
	assert.Equal(t, []string{"Work"}, sel[models.CategoryGroup])
	assert.Equal(t, []string{"Home"}, sel["Place"])
	assert.NotContains(t, main.Tags, models.CategoryGroup, "task is not modified")

	sub := models.Task{ID: "2", ParentID: "1", Tags: models.TagSet{models.CategoryGroup: {"Work"}}}
	assert.NotContains(t, Selection(sub), models.CategoryGroup)

	assert.NotNil(t, Selection(models.Task{ID: "3"}))
}
