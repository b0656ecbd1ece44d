package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stride/internal/models"
)

func testTaxonomy() *Taxonomy {
	return NewTaxonomy(
		[]models.TagGroup{
			{ID: "1", Name: "Place", IsSingleSelect: true, AllowAddTags: true},
			{ID: "2", Name: "Tools", AllowAddTags: true},
			{ID: "3", Name: "Mode", IsSingleSelect: true},
			{ID: "", Name: models.CategoryGroup, IsSingleSelect: true, AllowAddTags: true},
		},
		[]models.Tag{
			{ID: "10", Name: "Home", GroupID: "1"},
			{ID: "11", Name: "Office", GroupID: "1"},
			{ID: "20", Name: "Laptop", GroupID: "2"},
			{ID: "21", Name: "Phone", GroupID: "2"},
			{ID: "30", Name: "Focus", GroupID: "3"},
		},
	)
}

func openMain(t *testing.T, current models.TagSet) *Session {
	t.Helper()
	s := NewSession(testTaxonomy(), &fakeRemote{})
	require.NoError(t, s.Open(Target{}, current))
	return s
}

func TestOpenCopiesSelection(t *testing.T) {
	current := models.TagSet{"Place": {"Home"}, models.CategoryGroup: {"Work"}}
	s := NewSession(testTaxonomy(), nil)

	require.NoError(t, s.Open(Target{SubtaskID: "9"}, current))
	assert.NotContains(t, s.Draft(), models.CategoryGroup)
	assert.Equal(t, "9", s.Target().SubtaskID)
	assert.ErrorIs(t, s.Open(Target{}, current), ErrOpen)

	require.NoError(t, s.ToggleTag("Place", "Office"))
	assert.Equal(t, []string{"Home"}, current["Place"], "caller's set is untouched")
}

func TestSubtaskCannotSeeCategory(t *testing.T) {
	s := NewSession(testTaxonomy(), nil)
	require.NoError(t, s.Open(Target{SubtaskID: "9"}, nil))

	for _, g := range s.Groups() {
		assert.NotEqual(t, models.CategoryGroup, g.Group.Name)
	}
	assert.ErrorIs(t, s.ToggleTag(models.CategoryGroup, "Work"), ErrUnknownGroup)
	assert.ErrorIs(t, s.BeginNewTag(models.CategoryGroup), ErrUnknownGroup)
}

func TestToggleSingleSelect(t *testing.T) {
	s := openMain(t, nil)

	require.NoError(t, s.ToggleTag("Place", "Home"))
	assert.Equal(t, []string{"Home"}, s.Draft()["Place"])

	require.NoError(t, s.ToggleTag("Place", "Office"))
	assert.Equal(t, []string{"Office"}, s.Draft()["Place"])

	require.NoError(t, s.ToggleTag("Place", "Office"))
	assert.Empty(t, s.Draft()["Place"])
}

func TestToggleMultiSelectIsIdempotentInPairs(t *testing.T) {
	cases := []models.TagSet{
		nil,
		{"Tools": {"Laptop"}},
		{"Tools": {"Laptop", "Phone"}},
	}
	for _, current := range cases {
		for _, tag := range []string{"Laptop", "Phone"} {
			s := openMain(t, current)
			require.NoError(t, s.ToggleTag("Tools", tag))
			require.NoError(t, s.ToggleTag("Tools", tag))
			assert.ElementsMatch(t, current["Tools"], s.Draft()["Tools"], "toggle %s twice from %v", tag, current)
			s.Cancel()
		}
	}
}

func TestToggleUnknown(t *testing.T) {
	s := openMain(t, nil)
	assert.ErrorIs(t, s.ToggleTag("Nope", "x"), ErrUnknownGroup)
	assert.ErrorIs(t, s.ToggleTag("Tools", "Hammer"), ErrUnknownTag)

	require.NoError(t, s.ToggleTag(models.CategoryGroup, "Errands"))
	assert.Equal(t, []string{"Errands"}, s.Draft()[models.CategoryGroup])
	_, pending := s.Pending()
	assert.Equal(t, []string{"Errands"}, pending[models.CategoryGroup])
}

func TestToggleWhenClosed(t *testing.T) {
	s := NewSession(testTaxonomy(), nil)
	assert.ErrorIs(t, s.ToggleTag("Place", "Home"), ErrClosed)
	assert.ErrorIs(t, s.BeginNewGroup(), ErrClosed)
}

func TestNewGroupDefaults(t *testing.T) {
	s := openMain(t, nil)
	require.NoError(t, s.BeginNewGroup())
	assert.True(t, s.AddingGroup())

	assert.ErrorIs(t, s.CommitNewGroup("  "), ErrEmptyName)
	assert.ErrorIs(t, s.CommitNewGroup("place"), ErrDuplicateGroup)
	require.NoError(t, s.CommitNewGroup(" Energy "))
	assert.False(t, s.AddingGroup())
	assert.ErrorIs(t, s.CommitNewGroup("energy"), ErrDuplicateGroup)

	groups, _ := s.Pending()
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "Energy", g.Name)
	assert.True(t, g.IsSingleSelect)
	assert.True(t, g.AllowAddTags)
	assert.Equal(t, Palette[4], g.Color, "four colors are taken by known groups")

	views := s.Groups()
	last := views[len(views)-1]
	assert.True(t, last.Pending)
	assert.Equal(t, "Energy", last.Group.Name)
}

func TestNewTag(t *testing.T) {
	s := openMain(t, nil)

	assert.ErrorIs(t, s.BeginNewTag("Mode"), ErrTagsLocked)
	require.NoError(t, s.BeginNewTag("Tools"))
	assert.Equal(t, "Tools", s.NewTagGroup())
	assert.ErrorIs(t, s.CommitNewTag("Laptop"), ErrDuplicateTag)
	require.NoError(t, s.CommitNewTag("Pen"))
	assert.Empty(t, s.NewTagGroup())
	assert.Empty(t, s.Draft()["Tools"], "new tags outside Category are not auto-selected")

	require.NoError(t, s.ToggleTag("Tools", "Pen"))
	assert.Equal(t, []string{"Pen"}, s.Draft()["Tools"])

	assert.ErrorIs(t, s.CommitNewTag("Again"), ErrUnknownGroup)
}

func TestNewCategoryTagIsSelected(t *testing.T) {
	s := openMain(t, models.TagSet{models.CategoryGroup: {"Work"}})
	require.NoError(t, s.BeginNewTag(models.CategoryGroup))
	require.NoError(t, s.CommitNewTag("Garden"))
	assert.Equal(t, []string{"Garden"}, s.Draft()[models.CategoryGroup])
}

func TestGroupsShowCarriedSelections(t *testing.T) {
	s := openMain(t, models.TagSet{models.CategoryGroup: {"Legacy"}})
	for _, g := range s.Groups() {
		if g.Group.Name != models.CategoryGroup {
			continue
		}
		require.Len(t, g.Tags, 1)
		assert.Equal(t, TagView{Name: "Legacy", Selected: true}, g.Tags[0])
		return
	}
	t.Fatal("category group missing")
}

func TestCancelDropsSessionAdditions(t *testing.T) {
	s := openMain(t, nil)
	require.NoError(t, s.CommitNewGroup("Energy"))
	require.NoError(t, s.ToggleTag("Place", "Home"))
	s.Cancel()

	assert.False(t, s.IsOpen())
	groups, tags := s.Pending()
	assert.Empty(t, groups)
	assert.Empty(t, tags)
	assert.ErrorIs(t, s.ToggleTag("Place", "Home"), ErrClosed)
}

func TestSetTaxonomyWhileOpen(t *testing.T) {
	s := NewSession(nil, &fakeRemote{})
	require.NoError(t, s.Open(Target{}, models.TagSet{"Place": {"Home"}}))
	assert.ErrorIs(t, s.ToggleTag(models.CategoryGroup, "Work"), ErrUnknownGroup)

	require.NoError(t, s.CommitNewGroup("Tools"))
	require.NoError(t, s.CommitNewGroup("Energy"))

	s.SetTaxonomy(testTaxonomy())
	require.NoError(t, s.ToggleTag("Place", "Office"))
	assert.Equal(t, []string{"Office"}, s.Draft()["Place"])

	groups, _ := s.Pending()
	require.Len(t, groups, 1, "groups the taxonomy now lists are no longer pending")
	assert.Equal(t, "Energy", groups[0].Name)

	s.Cancel()
	groups, _ = s.Pending()
	assert.Empty(t, groups)
	assert.False(t, s.IsOpen())
}
