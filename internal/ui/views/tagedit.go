package views

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stride/internal/models"
	"github.com/tgienger/stride/internal/tags"
	"github.com/tgienger/stride/internal/ui/keys"
	"github.com/tgienger/stride/internal/ui/styles"
)

// tagRow is a group header (tag empty) or a tag line in the picker
type tagRow struct {
	group   models.TagGroup
	pending bool
	tag     tags.TagView
	header  bool
}

// TagEditorView edits the tags of one task through a tag session
type TagEditorView struct {
	session *tags.Session
	req     OpenTags
	ctx     context.Context
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	cursor int
	input  textinput.Model
	saving bool
	banner string
}

// NewTagEditorView opens session on the requested task
func NewTagEditorView(ctx context.Context, session *tags.Session, req OpenTags) (*TagEditorView, error) {
	if err := session.Open(req.Target, req.Current); err != nil {
		return nil, err
	}

	input := textinput.New()
	input.CharLimit = 50

	return &TagEditorView{
		session: session,
		req:     req,
		ctx:     ctx,
		styles:  styles.NewStyles(),
		keys:    keys.DefaultKeyMap(),
		input:   input,
	}, nil
}

// Init initializes the view
func (v *TagEditorView) Init() tea.Cmd {
	return nil
}

type tagsSavedMsg struct {
	outcome tags.Outcome
	err     error
}

func (v *TagEditorView) save() tea.Msg {
	out, err := v.session.Save(v.ctx)
	return tagsSavedMsg{outcome: out, err: err}
}

func (v *TagEditorView) close(out *tags.Outcome, err error) tea.Cmd {
	msg := TagsClosed{Request: v.req, Outcome: out, Err: err}
	return func() tea.Msg { return msg }
}

// Update handles messages
func (v *TagEditorView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case tagsSavedMsg:
		v.saving = false
		// a *CommitError still carries a usable outcome, other errors do not
		var commitErr *tags.CommitError
		if msg.err != nil && !errors.As(msg.err, &commitErr) {
			return v, v.close(nil, msg.err)
		}
		out := msg.outcome
		return v, v.close(&out, msg.err)

	case tea.KeyMsg:
		if v.saving {
			return v, nil
		}
		if v.inputActive() {
			return v.updateInput(msg)
		}
		return v.updateNormal(msg)
	}
	return v, nil
}

func (v *TagEditorView) inputActive() bool {
	return v.session.AddingGroup() || v.session.NewTagGroup() != ""
}

func (v *TagEditorView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := v.rows()

	switch {
	case key.Matches(msg, v.keys.Back):
		v.session.Cancel()
		return v, v.close(nil, nil)

	case key.Matches(msg, v.keys.Save):
		v.saving = true
		v.banner = ""
		return v, v.save

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
		}

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(rows)-1 {
			v.cursor++
		}

	case key.Matches(msg, v.keys.Toggle), key.Matches(msg, v.keys.Enter):
		if v.cursor >= len(rows) || rows[v.cursor].header {
			return v, nil
		}
		r := rows[v.cursor]
		v.report(v.session.ToggleTag(r.group.Name, r.tag.Name))

	case key.Matches(msg, v.keys.AddTag):
		if v.cursor >= len(rows) {
			return v, nil
		}
		if err := v.session.BeginNewTag(rows[v.cursor].group.Name); err != nil {
			v.report(err)
			return v, nil
		}
		return v, v.startInput("New tag in " + rows[v.cursor].group.Name)

	case key.Matches(msg, v.keys.AddGroup):
		if err := v.session.BeginNewGroup(); err != nil {
			v.report(err)
			return v, nil
		}
		return v, v.startInput("New group name")
	}
	return v, nil
}

func (v *TagEditorView) startInput(placeholder string) tea.Cmd {
	v.banner = ""
	v.input.Reset()
	v.input.Placeholder = placeholder
	v.input.Focus()
	return textinput.Blink
}

func (v *TagEditorView) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.session.CancelNewGroup()
		v.session.CancelNewTag()
		v.input.Blur()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		name := v.input.Value()
		var err error
		if v.session.AddingGroup() {
			err = v.session.CommitNewGroup(name)
		} else {
			err = v.session.CommitNewTag(name)
		}
		if err != nil {
			v.report(err)
			return v, nil
		}
		v.input.Blur()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *TagEditorView) report(err error) {
	if err != nil {
		v.banner = errText(err)
	} else {
		v.banner = ""
	}
}

func (v *TagEditorView) rows() []tagRow {
	var out []tagRow
	for _, g := range v.session.Groups() {
		out = append(out, tagRow{group: g.Group, pending: g.Pending, header: true})
		for _, t := range g.Tags {
			out = append(out, tagRow{group: g.Group, pending: g.Pending, tag: t})
		}
	}
	return out
}

// View renders the view
func (v *TagEditorView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	var items []string
	for i, r := range v.rows() {
		items = append(items, v.renderRow(r, i == v.cursor))
	}
	if len(items) == 0 {
		items = append(items, s.TitleMuted.Render("No tag groups yet. Press G to add one."))
	}

	lines := []string{s.Title.Render("Tags: " + v.req.Title), ""}
	if v.banner != "" {
		lines = append(lines, s.Banner.Render(v.banner), "")
	}
	lines = append(lines, lipgloss.JoinVertical(lipgloss.Left, items...))

	if v.inputActive() {
		lines = append(lines, "", s.InputFocused.Width(clamp(contentWidth-10, 20, 40)).Render(v.input.View()))
	}
	if groups, pending := v.session.Pending(); len(groups) > 0 || len(pending) > 0 {
		lines = append(lines, "", s.TitleMuted.Render(fmt.Sprintf("%d unsaved group(s), %d unsaved tag(s)", len(groups), countTags(pending))))
	}

	help := "Space: toggle • a: new tag • G: new group • Ctrl+S: save • Esc: cancel"
	switch {
	case v.saving:
		help = "Saving..."
	case v.inputActive():
		help = "Enter: add • Esc: cancel"
	}
	lines = append(lines, "", s.TitleMuted.Render(help))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TagEditorView) renderRow(r tagRow, selected bool) string {
	s := v.styles
	itemStyle := s.ListItem
	if selected {
		itemStyle = s.ListSelected
	}

	if r.header {
		kind := "any"
		if r.group.IsSingleSelect {
			kind = "one"
		}
		label := fmt.Sprintf("%s (%s)", r.group.Name, kind)
		if r.pending {
			label += " *"
		}
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(r.group.Color.Background)).Render("●")
		return itemStyle.Render(dot + " " + label)
	}

	box := "[ ]"
	if r.group.IsSingleSelect {
		box = "( )"
	}
	if r.tag.Selected {
		box = strings.Replace(strings.Replace(box, "[ ]", "[x]", 1), "( )", "(•)", 1)
	}
	return itemStyle.Render("   " + box + " " + s.TagChip(r.tag.Name, r.group.Color, r.tag.Pending || r.pending))
}

func countTags(m map[string][]string) int {
	n := 0
	for _, v := range m {
		n += len(v)
	}
	return n
}

// sortedGroups returns the group names of set in a stable order
func sortedGroups(set models.TagSet) []string {
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
