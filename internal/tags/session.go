package tags

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/tgienger/stride/internal/models"
)

var (
	ErrClosed         = errors.New("tag editor is not open")
	ErrOpen           = errors.New("tag editor is already open")
	ErrBusy           = errors.New("tag editor is saving")
	ErrUnknownGroup   = errors.New("unknown tag group")
	ErrUnknownTag     = errors.New("unknown tag")
	ErrEmptyName      = errors.New("name is required")
	ErrDuplicateGroup = errors.New("tag group already exists")
	ErrDuplicateTag   = errors.New("tag already exists")
	ErrTagsLocked     = errors.New("tag group does not allow new tags")
)

// Target is the task whose tags are edited. The zero value is the main task.
type Target struct {
	SubtaskID string
}

// IsMain reports whether the main task is the target
func (t Target) IsMain() bool {
	return t.SubtaskID == ""
}

// TagView is one row in the tag picker
type TagView struct {
	Name     string
	Pending  bool
	Selected bool
}

// GroupView is one group in the tag picker
type GroupView struct {
	Group   models.TagGroup
	Pending bool
	Tags    []TagView
}

// pendingState holds taxonomy additions not yet persisted
type pendingState struct {
	groups []models.TagGroup
	tags   map[string][]string // by group name
}

func (p pendingState) clone() pendingState {
	out := pendingState{groups: slices.Clone(p.groups), tags: make(map[string][]string, len(p.tags))}
	for k, v := range p.tags {
		out.tags[k] = slices.Clone(v)
	}
	return out
}

// known returns p without the entries tax already has
func (p pendingState) known(tax *Taxonomy) pendingState {
	out := pendingState{tags: make(map[string][]string, len(p.tags))}
	for _, g := range p.groups {
		if !tax.hasGroupNamed(g.Name) {
			out.groups = append(out.groups, g)
		}
	}
	for group, names := range p.tags {
		for _, name := range names {
			if !tax.HasTag(group, name) {
				out.tags[group] = append(out.tags[group], name)
			}
		}
	}
	return out
}

// Session edits the tags of one target at a time and reconciles new groups
// and tags with the backend on save
type Session struct {
	mu     sync.Mutex
	tax    *Taxonomy
	remote Remote

	open    bool
	saving  bool
	target  Target
	draft   models.TagSet
	pending pendingState
	opened  pendingState // pending state at Open, restored on Cancel

	addingGroup bool
	tagGroup    string // group receiving a new tag, empty when not adding
}

// NewSession returns a closed session over a loaded taxonomy
func NewSession(tax *Taxonomy, remote Remote) *Session {
	if tax == nil {
		tax = NewTaxonomy(nil, nil)
	}
	return &Session{
		tax:     tax,
		remote:  remote,
		pending: pendingState{tags: map[string][]string{}},
	}
}

// SetTaxonomy replaces the known taxonomy, also while a target is open.
// Pending groups and tags that the new taxonomy already lists are dropped.
func (s *Session) SetTaxonomy(tax *Taxonomy) {
	if tax == nil {
		tax = NewTaxonomy(nil, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tax = tax
	s.pending = s.pending.known(tax)
	if s.open {
		s.opened = s.opened.known(tax)
	}
}

// Open starts editing target with a copy of its current selection
func (s *Session) Open(target Target, current models.TagSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return ErrOpen
	}
	draft := current.Clone()
	if draft == nil {
		draft = models.TagSet{}
	}
	if !target.IsMain() {
		delete(draft, models.CategoryGroup)
	}
	s.open = true
	s.target = target
	s.draft = draft
	s.opened = s.pending.clone()
	s.resetInputs()
	return nil
}

// IsOpen reports whether a target is being edited
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Target returns the task being edited
func (s *Session) Target() Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Draft returns a copy of the working selection
func (s *Session) Draft() models.TagSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Cancel closes the session without writing back. Groups and tags added
// since Open are dropped; pending items left by an earlier failed save stay.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || s.saving {
		return
	}
	s.pending = s.opened
	s.close()
}

func (s *Session) close() {
	s.open = false
	s.target = Target{}
	s.draft = nil
	s.opened = pendingState{}
	s.resetInputs()
}

func (s *Session) resetInputs() {
	s.addingGroup = false
	s.tagGroup = ""
}

// editable checks the session accepts edits. Callers hold mu.
func (s *Session) editable() error {
	if !s.open {
		return ErrClosed
	}
	if s.saving {
		return ErrBusy
	}
	return nil
}

// visible reports whether group can be edited for the current target
func (s *Session) visible(group string) bool {
	return s.target.IsMain() || group != models.CategoryGroup
}

// group finds a known or pending group by name
func (s *Session) group(name string) (models.TagGroup, bool, bool) {
	if g, ok := s.tax.Group(name); ok {
		return g, false, true
	}
	for _, g := range s.pending.groups {
		if g.Name == name {
			return g, true, true
		}
	}
	return models.TagGroup{}, false, false
}

func (s *Session) tagKnown(group, tag string) bool {
	return s.tax.HasTag(group, tag) || slices.Contains(s.pending.tags[group], tag)
}

// Groups returns the picker rows for the current target: known groups first,
// then pending ones
func (s *Session) Groups() []GroupView {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []GroupView
	add := func(g models.TagGroup, pending bool) {
		if !s.visible(g.Name) {
			return
		}
		view := GroupView{Group: g, Pending: pending}
		seen := map[string]bool{}
		for _, name := range s.tax.TagNames(g.Name) {
			seen[name] = true
			view.Tags = append(view.Tags, TagView{Name: name, Selected: s.draft.Has(g.Name, name)})
		}
		for _, name := range s.pending.tags[g.Name] {
			if seen[name] {
				continue
			}
			seen[name] = true
			view.Tags = append(view.Tags, TagView{Name: name, Pending: true, Selected: s.draft.Has(g.Name, name)})
		}
		// selections carried in from the task that the taxonomy does not list
		for _, name := range s.draft[g.Name] {
			if !seen[name] {
				view.Tags = append(view.Tags, TagView{Name: name, Selected: true})
			}
		}
		out = append(out, view)
	}
	for _, g := range s.tax.Groups() {
		add(g, false)
	}
	for _, g := range s.pending.groups {
		add(g, true)
	}
	return out
}

// ToggleTag flips tag in group. A single-select group holds at most one tag:
// selecting replaces the previous one and selecting the current one clears it.
func (s *Session) ToggleTag(group, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	g, _, ok := s.group(group)
	if !ok || !s.visible(group) {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, group)
	}
	if !s.tagKnown(group, tag) && !s.draft.Has(group, tag) {
		if group != models.CategoryGroup {
			return fmt.Errorf("%w: %s/%s", ErrUnknownTag, group, tag)
		}
		s.pending.tags[group] = append(s.pending.tags[group], tag)
	}

	current := s.draft[group]
	switch {
	case g.IsSingleSelect && slices.Contains(current, tag):
		delete(s.draft, group)
	case g.IsSingleSelect:
		s.draft[group] = []string{tag}
	case slices.Contains(current, tag):
		rest := slices.DeleteFunc(slices.Clone(current), func(x string) bool { return x == tag })
		if len(rest) == 0 {
			delete(s.draft, group)
		} else {
			s.draft[group] = rest
		}
	default:
		s.draft[group] = append(slices.Clone(current), tag)
	}
	return nil
}

// BeginNewGroup starts typing a new group name
func (s *Session) BeginNewGroup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.tagGroup = ""
	s.addingGroup = true
	return nil
}

// AddingGroup reports whether a group name is being typed
func (s *Session) AddingGroup() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addingGroup
}

// CommitNewGroup stages a group. It defaults to single-select with new tags
// allowed and takes the next palette color.
func (s *Session) CommitNewGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if s.tax.hasGroupNamed(name) || slices.ContainsFunc(s.pending.groups, func(g models.TagGroup) bool {
		return strings.EqualFold(g.Name, name)
	}) {
		return fmt.Errorf("%w: %s", ErrDuplicateGroup, name)
	}

	used := s.tax.colors()
	for _, g := range s.pending.groups {
		used = append(used, g.Color)
	}
	s.pending.groups = append(s.pending.groups, models.TagGroup{
		Name:           name,
		IsSingleSelect: true,
		AllowAddTags:   true,
		Color:          NextColor(used),
	})
	s.addingGroup = false
	return nil
}

// CancelNewGroup abandons the group name input
func (s *Session) CancelNewGroup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addingGroup = false
}

// BeginNewTag starts typing a new tag for group
func (s *Session) BeginNewTag(group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	g, _, ok := s.group(group)
	if !ok || !s.visible(group) {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, group)
	}
	if !g.AllowAddTags {
		return fmt.Errorf("%w: %s", ErrTagsLocked, group)
	}
	s.addingGroup = false
	s.tagGroup = group
	return nil
}

// NewTagGroup returns the group receiving a new tag, or "" when not adding
func (s *Session) NewTagGroup() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tagGroup
}

// CommitNewTag stages a tag in the group chosen by BeginNewTag
func (s *Session) CommitNewTag(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if s.tagGroup == "" {
		return ErrUnknownGroup
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	group := s.tagGroup
	if s.tagKnown(group, name) {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateTag, group, name)
	}
	s.pending.tags[group] = append(s.pending.tags[group], name)

	if g, _, _ := s.group(group); group == models.CategoryGroup && g.IsSingleSelect {
		s.draft[group] = []string{name}
	}
	s.tagGroup = ""
	return nil
}

// CancelNewTag abandons the tag name input
func (s *Session) CancelNewTag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagGroup = ""
}

// Pending returns the staged groups and tags awaiting a save
func (s *Session) Pending() ([]models.TagGroup, map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending.clone()
	return p.groups, p.tags
}

// GroupColor returns the color of a known or pending group
func (s *Session) GroupColor(name string) (models.Color, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, _, ok := s.group(name)
	return g.Color, ok
}

func sortedKeys(m map[string][]string) []string {
	return slices.Sorted(maps.Keys(m))
}
