package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range Statuses {
		assert.Equal(t, s, StatusFromBackend(StatusToBackend(s)), "status %s", s)
	}
}

func TestStatusToBackendCodes(t *testing.T) {
	assert.Equal(t, "pending", StatusToBackend(StatusNotStarted))
	assert.Equal(t, "in_progress", StatusToBackend(StatusInProgress))
	assert.Equal(t, "completed", StatusToBackend(StatusDone))
	assert.Equal(t, "archived", StatusToBackend(StatusArchive))
}

func TestStatusFromBackendUnknown(t *testing.T) {
	for _, code := range []string{"", "done", "PENDING", "blocked", "InProgress"} {
		assert.Equal(t, StatusNotStarted, StatusFromBackend(code), "code %q", code)
	}
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("Done")
	require.True(t, ok)
	assert.Equal(t, StatusDone, s)

	s, ok = ParseStatus("archived")
	require.True(t, ok)
	assert.Equal(t, StatusArchive, s)

	_, ok = ParseStatus("nope")
	assert.False(t, ok)
}

func TestStatusOrderAndNext(t *testing.T) {
	assert.Equal(t, 0, StatusNotStarted.Order())
	assert.Equal(t, 3, StatusArchive.Order())
	assert.Equal(t, StatusInProgress, StatusNotStarted.Next())
	assert.Equal(t, StatusNotStarted, StatusArchive.Next())
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", FormatDate(nil))

	shape := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	cases := []Date{
		{Year: 2024, Month: time.January, Day: 5},
		{Year: 2024, Month: time.December, Day: 31},
		{Year: 987, Month: time.March, Day: 9},
	}
	for _, d := range cases {
		got := FormatDate(&d)
		assert.Len(t, got, 10)
		assert.Regexp(t, shape, got)
	}
	d := Date{Year: 2024, Month: time.February, Day: 3}
	assert.Equal(t, "2024-02-03", FormatDate(&d))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseDate("2025-07-04")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2025, Month: time.July, Day: 4}, *d)

	d, err = ParseDate("2025-07-04T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-04", d.String())

	_, err = ParseDate("07/04/2025")
	assert.Error(t, err)
}

func TestDateOfIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("x", 5*3600)
	d := DateOf(time.Date(2024, 6, 1, 23, 59, 0, 0, loc))
	assert.Equal(t, "2024-06-01", d.String())
}

func TestTaskCloneIsDeep(t *testing.T) {
	d := Date{Year: 2024, Month: 1, Day: 1}
	orig := Task{ID: "A", Deadline: &d, Tags: TagSet{"Tools": {"laptop"}}}
	c := orig.Clone()
	c.Tags["Tools"][0] = "phone"
	c.Deadline.Day = 2

	assert.Equal(t, "laptop", orig.Tags["Tools"][0])
	assert.Equal(t, 1, orig.Deadline.Day)
}

func TestTagSetWithout(t *testing.T) {
	s := TagSet{CategoryGroup: {"Work"}, "Priority": {"High"}}
	w := s.Without(CategoryGroup)
	assert.NotContains(t, w, CategoryGroup)
	assert.Contains(t, s, CategoryGroup)
	assert.True(t, w.Has("Priority", "High"))

	assert.NotNil(t, TagSet(nil).Without("x"))
}
