package tags

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tgienger/stride/internal/api"
	"github.com/tgienger/stride/internal/logger"
	"github.com/tgienger/stride/internal/models"
)

// ErrNoRemote is returned by Save when new groups or tags have no backend
// to go to. The session is closed without an outcome.
var ErrNoRemote = errors.New("saving tags: no backend")

// ErrGroupUnresolved marks a tag skipped because its group has no backend id
var ErrGroupUnresolved = errors.New("tag group was not created")

// Remote persists new groups and tags
type Remote interface {
	CreateTagGroup(ctx context.Context, in api.TagGroupInput) (*models.TagGroup, error)
	CreateTag(ctx context.Context, groupID, name string) (*models.Tag, error)
}

// ItemKind tells group results from tag results
type ItemKind int

const (
	ItemGroup ItemKind = iota
	ItemTag
)

// Result is the outcome of persisting one pending group or tag
type Result struct {
	Kind  ItemKind
	Group string
	Tag   string
	ID    string
	Err   error
}

// OK reports whether the item was persisted
func (r Result) OK() bool { return r.Err == nil }

func (r Result) String() string {
	if r.Kind == ItemGroup {
		return "group " + r.Group
	}
	return "tag " + r.Group + "/" + r.Tag
}

// Outcome is what a save writes back to the edited task
type Outcome struct {
	Target Target
	Tags   models.TagSet
	// Category is set for the main task only. An empty value clears it.
	Category *string
	Results  []Result
}

// Failed returns the items that were not persisted
func (o Outcome) Failed() []Result {
	var out []Result
	for _, r := range o.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// CommitError reports the items a save could not persist. They stay pending
// for the next save.
type CommitError struct {
	Failed []Result
}

func (e *CommitError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, r := range e.Failed {
		parts[i] = fmt.Sprintf("%s: %v", r, r.Err)
	}
	return fmt.Sprintf("saving tags: %d failed: %s", len(e.Failed), strings.Join(parts, "; "))
}

func (e *CommitError) Unwrap() []error {
	out := make([]error, len(e.Failed))
	for i, r := range e.Failed {
		out[i] = r.Err
	}
	return out
}

// Save persists pending groups, then pending tags whose group id is known,
// and closes the session. The outcome is valid even when some items fail;
// those items stay pending and the returned error is a *CommitError.
func (s *Session) Save(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if err := s.editable(); err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	snap := s.pending.clone()
	if s.remote == nil && (len(snap.groups) > 0 || hasRemoteTags(snap.tags)) {
		// nothing added in this edit can be persisted
		s.pending = s.opened
		s.close()
		s.mu.Unlock()
		return Outcome{}, ErrNoRemote
	}
	ids := make(map[string]string)
	for _, g := range s.tax.Groups() {
		if g.ID != "" {
			ids[g.Name] = g.ID
		}
	}
	s.saving = true
	s.mu.Unlock()

	groupResults := s.createGroups(ctx, snap.groups)
	for _, r := range groupResults {
		if r.OK() {
			ids[r.Group] = r.ID
		}
	}
	tagResults := s.createTags(ctx, snap.tags, ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	s.promote(snap, groupResults, tagResults)

	out := Outcome{Target: s.target, Results: append(groupResults, tagResults...)}
	if s.target.IsMain() {
		out.Tags = s.draft.Clone()
		cat := ""
		if sel := s.draft[models.CategoryGroup]; len(sel) > 0 {
			cat = sel[0]
		}
		out.Category = &cat
	} else {
		out.Tags = s.draft.Without(models.CategoryGroup)
	}
	s.close()

	if failed := out.Failed(); len(failed) > 0 {
		logger.Warn("tags: %d of %d pending items failed", len(failed), len(out.Results))
		return out, &CommitError{Failed: failed}
	}
	return out, nil
}

func hasRemoteTags(tags map[string][]string) bool {
	for group, names := range tags {
		if group != models.CategoryGroup && len(names) > 0 {
			return true
		}
	}
	return false
}

// createGroups creates every group concurrently. Failures do not cancel
// siblings.
func (s *Session) createGroups(ctx context.Context, groups []models.TagGroup) []Result {
	results := make([]Result, len(groups))
	var g errgroup.Group
	for i, group := range groups {
		g.Go(func() error {
			r := Result{Kind: ItemGroup, Group: group.Name}
			created, err := s.remote.CreateTagGroup(ctx, api.TagGroupInput{
				Name:           group.Name,
				IsSingleSelect: group.IsSingleSelect,
				AllowAddTags:   group.AllowAddTags,
			})
			switch {
			case err != nil:
				r.Err = err
			case created == nil || created.ID == "":
				r.Err = fmt.Errorf("creating group %s: no id returned", group.Name)
			default:
				r.ID = created.ID
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// createTags creates every non-Category tag whose group id is resolved.
// Category tags are carried by the task's category field and never created.
func (s *Session) createTags(ctx context.Context, tags map[string][]string, ids map[string]string) []Result {
	var results []Result
	type job struct {
		idx     int
		groupID string
	}
	var jobs []job
	for _, group := range sortedKeys(tags) {
		if group == models.CategoryGroup {
			continue
		}
		for _, name := range tags[group] {
			r := Result{Kind: ItemTag, Group: group, Tag: name}
			id, ok := ids[group]
			if !ok {
				r.Err = fmt.Errorf("%w: %s", ErrGroupUnresolved, group)
			} else {
				jobs = append(jobs, job{idx: len(results), groupID: id})
			}
			results = append(results, r)
		}
	}

	var g errgroup.Group
	for _, j := range jobs {
		g.Go(func() error {
			r := &results[j.idx]
			created, err := s.remote.CreateTag(ctx, j.groupID, r.Tag)
			switch {
			case err != nil:
				r.Err = err
			case created == nil:
				r.Err = fmt.Errorf("creating tag %s: empty response", r.Tag)
			default:
				r.ID = created.ID
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// promote moves persisted items into the taxonomy. Failed groups keep their
// pending tags. Caller holds s.mu.
func (s *Session) promote(snap pendingState, groups, tags []Result) {
	for i, r := range groups {
		if !r.OK() {
			continue
		}
		g := snap.groups[i]
		g.ID = r.ID
		s.tax.addGroup(g)
		s.pending.groups = slices.DeleteFunc(s.pending.groups, func(p models.TagGroup) bool {
			return p.Name == r.Group
		})
	}

	groupID := func(name string) string {
		g, _ := s.tax.Group(name)
		return g.ID
	}
	for _, r := range tags {
		if !r.OK() {
			continue
		}
		s.tax.addTag(r.Group, models.Tag{ID: r.ID, Name: r.Tag, GroupID: groupID(r.Group)})
		s.dropPendingTag(r.Group, r.Tag)
	}

	for _, name := range snap.tags[models.CategoryGroup] {
		s.tax.addTag(models.CategoryGroup, models.Tag{Name: name, GroupID: groupID(models.CategoryGroup)})
		s.dropPendingTag(models.CategoryGroup, name)
	}
}

func (s *Session) dropPendingTag(group, name string) {
	rest := slices.DeleteFunc(s.pending.tags[group], func(x string) bool { return x == name })
	if len(rest) == 0 {
		delete(s.pending.tags, group)
		return
	}
	s.pending.tags[group] = rest
}
