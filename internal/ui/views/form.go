package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stride/internal/models"
	"github.com/tgienger/stride/internal/tags"
	"github.com/tgienger/stride/internal/tasks"
	"github.com/tgienger/stride/internal/ui/keys"
	"github.com/tgienger/stride/internal/ui/styles"
)

const (
	formTitle = iota
	formDesc
	formEstimate
	formDeadline
	formSubtasks
	formCreate
	formFields
)

// FormView creates a task with its subtasks
type FormView struct {
	draft   *tasks.Draft
	creator tasks.Creator
	ctx     context.Context
	styles  *styles.Styles
	keys    keys.KeyMap
	colors  ColorFunc

	width  int
	height int

	focusIdx  int
	subCursor int
	title     textinput.Model
	desc      textarea.Model
	estimate  textinput.Model
	deadline  textinput.Model
	subInput  textinput.Model

	submitting bool
	snapshot   []models.Task // rendered while a submit owns the draft
	banner     string
}

// NewFormView starts an empty draft
func NewFormView(ctx context.Context, creator tasks.Creator, colors ColorFunc) *FormView {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 200
	title.Focus()

	desc := textarea.New()
	desc.Placeholder = "Description"
	desc.CharLimit = 1000
	desc.SetWidth(50)
	desc.SetHeight(3)
	desc.ShowLineNumbers = false

	estimate := textinput.New()
	estimate.Placeholder = "minutes"
	estimate.CharLimit = 5

	deadline := textinput.New()
	deadline.Placeholder = "YYYY-MM-DD"
	deadline.CharLimit = 10

	subInput := textinput.New()
	subInput.Placeholder = "Subtask title, Enter to add"
	subInput.CharLimit = 200

	if colors == nil {
		colors = func(string) (models.Color, bool) { return models.Color{}, false }
	}

	return &FormView{
		draft:    tasks.NewDraft(),
		creator:  creator,
		ctx:      ctx,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		colors:   colors,
		title:    title,
		desc:     desc,
		estimate: estimate,
		deadline: deadline,
		subInput: subInput,
	}
}

// Init initializes the view
func (v *FormView) Init() tea.Cmd {
	return textinput.Blink
}

// Draft returns the draft being edited
func (v *FormView) Draft() *tasks.Draft {
	return v.draft
}

// ApplyTags writes a tag editor outcome back to the draft
func (v *FormView) ApplyTags(closed TagsClosed) {
	if closed.Err != nil {
		v.banner = errText(closed.Err)
	}
	if closed.Outcome == nil {
		return
	}
	out := closed.Outcome
	v.draft.ApplyTags(out.Target.SubtaskID, out.Tags, out.Category)
}

type formSubmittedMsg struct {
	task models.Task
	err  error
}

// Update handles messages
func (v *FormView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.desc.SetWidth(clamp(styles.ContentWidth(v.width)-10, 20, 50))
		return v, nil

	case formSubmittedMsg:
		v.submitting = false
		v.snapshot = nil
		if msg.err != nil {
			// created records keep their ids; saving again creates the rest
			v.banner = errText(msg.err)
			return v, nil
		}
		task := msg.task
		return v, func() tea.Msg { return TaskCreated{Task: task} }

	case tea.KeyMsg:
		if v.submitting {
			return v, nil
		}
		return v.updateKeys(msg)
	}
	return v, nil
}

func (v *FormView) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return CloseForm{} }

	case key.Matches(msg, v.keys.Save):
		return v, v.submit()

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % formFields
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.ShiftTab):
		v.focusIdx = (v.focusIdx + formFields - 1) % formFields
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.FormTags):
		return v, v.openTags()

	case key.Matches(msg, v.keys.AddSub):
		v.addSubtask()
		return v, nil
	}

	if v.focusIdx == formSubtasks {
		switch {
		case key.Matches(msg, v.keys.Enter):
			v.addSubtask()
			return v, nil
		case msg.Type == tea.KeyUp:
			if v.subCursor > 0 {
				v.subCursor--
			}
			return v, nil
		case msg.Type == tea.KeyDown:
			if v.subCursor < len(v.draft.Subtasks)-1 {
				v.subCursor++
			}
			return v, nil
		case key.Matches(msg, v.keys.DelSub):
			if v.subCursor < len(v.draft.Subtasks) {
				if !v.draft.RemoveSubtask(v.draft.Subtasks[v.subCursor].ID) {
					v.banner = "That subtask was already created"
				}
				v.subCursor = clamp(v.subCursor, 0, max(len(v.draft.Subtasks)-1, 0))
			}
			return v, nil
		}
	}

	if key.Matches(msg, v.keys.Enter) {
		switch v.focusIdx {
		case formCreate:
			return v, v.submit()
		case formDesc:
			// newline in the description
		default:
			v.focusIdx++
			v.updateFocus()
			return v, nil
		}
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case formTitle:
		v.title, cmd = v.title.Update(msg)
	case formDesc:
		v.desc, cmd = v.desc.Update(msg)
	case formEstimate:
		v.estimate, cmd = v.estimate.Update(msg)
	case formDeadline:
		v.deadline, cmd = v.deadline.Update(msg)
	case formSubtasks:
		v.subInput, cmd = v.subInput.Update(msg)
	}
	return v, cmd
}

func (v *FormView) updateFocus() {
	v.title.Blur()
	v.desc.Blur()
	v.estimate.Blur()
	v.deadline.Blur()
	v.subInput.Blur()

	switch v.focusIdx {
	case formTitle:
		v.title.Focus()
	case formDesc:
		v.desc.Focus()
	case formEstimate:
		v.estimate.Focus()
	case formDeadline:
		v.deadline.Focus()
	case formSubtasks:
		v.subInput.Focus()
	}
}

func (v *FormView) addSubtask() {
	v.draft.AddSubtask(strings.TrimSpace(v.subInput.Value()))
	v.subInput.Reset()
	v.subCursor = len(v.draft.Subtasks) - 1
}

// openTags edits the selected subtask while the subtask list has focus,
// otherwise the main task
func (v *FormView) openTags() tea.Cmd {
	req := OpenTags{
		Title:   strings.TrimSpace(v.title.Value()),
		Current: tags.Selection(v.draft.Task),
	}
	if req.Title == "" {
		req.Title = "New task"
	}
	if v.focusIdx == formSubtasks && v.subCursor < len(v.draft.Subtasks) {
		sub := v.draft.Subtasks[v.subCursor]
		req.TaskID = sub.ID
		req.Title = sub.Title
		if req.Title == "" {
			req.Title = tasks.UntitledSubtask
		}
		req.Target = tags.Target{SubtaskID: sub.ID}
		req.Current = tags.Selection(sub)
	}
	return func() tea.Msg { return req }
}

// sync copies the inputs into the draft. Once the main task exists on the
// backend its fields are fixed.
func (v *FormView) sync() error {
	if !tasks.IsTemp(v.draft.Task.ID) {
		return nil
	}
	fields := []struct {
		field tasks.Field
		value string
	}{
		{tasks.FieldTitle, strings.TrimSpace(v.title.Value())},
		{tasks.FieldDescription, strings.TrimSpace(v.desc.Value())},
		{tasks.FieldEstimatedTime, v.estimate.Value()},
		{tasks.FieldDeadline, v.deadline.Value()},
	}
	for _, f := range fields {
		if err := v.draft.SetField(f.field, f.value); err != nil {
			return err
		}
	}
	return nil
}

func (v *FormView) submit() tea.Cmd {
	if err := v.sync(); err != nil {
		v.banner = errText(err)
		return nil
	}
	if strings.TrimSpace(v.draft.Task.Title) == "" {
		v.banner = errText(tasks.ErrTitleRequired)
		v.focusIdx = formTitle
		v.updateFocus()
		return nil
	}

	v.banner = ""
	v.submitting = true
	v.snapshot = v.draft.Records()
	draft, creator, ctx := v.draft, v.creator, v.ctx
	return func() tea.Msg {
		task, err := draft.Submit(ctx, creator)
		return formSubmittedMsg{task: task, err: err}
	}
}

// View renders the view
func (v *FormView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	inputStyle := func(idx int) lipgloss.Style {
		if v.focusIdx == idx {
			return s.InputFocused
		}
		return s.Input
	}
	btnStyle := s.Button
	if v.focusIdx == formCreate {
		btnStyle = s.ButtonFocused
	}

	records := v.snapshot
	if records == nil {
		records = v.draft.Records()
	}
	main, subs := records[0], records[1:]

	inputWidth := clamp(contentWidth-6, 20, 50)
	lines := []string{s.Title.Render("New Task"), ""}
	if v.banner != "" {
		lines = append(lines, s.Banner.Render(v.banner), "")
	}

	category := main.Category
	if category == "" {
		category = s.TitleMuted.Render("none")
	}
	lines = append(lines,
		"Title:",
		inputStyle(formTitle).Width(inputWidth).Render(v.title.View()),
		"",
		"Description:",
		inputStyle(formDesc).Render(v.desc.View()),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.JoinVertical(lipgloss.Left, "Estimate (minutes):", inputStyle(formEstimate).Width(12).Render(v.estimate.View())),
			"   ",
			lipgloss.JoinVertical(lipgloss.Left, "Deadline:", inputStyle(formDeadline).Width(14).Render(v.deadline.View())),
		),
		"",
		"Category: "+category,
		"Tags: "+renderTags(s, main.Tags.Without(models.CategoryGroup), v.colors),
		"",
		fmt.Sprintf("Subtasks (%d):", len(subs)),
	)
	for i, sub := range subs {
		title := sub.Title
		if title == "" {
			title = s.TitleMuted.Render(tasks.UntitledSubtask)
		}
		if !tasks.IsTemp(sub.ID) {
			title += " ✓"
		}
		style := s.ListItem
		if v.focusIdx == formSubtasks && i == v.subCursor {
			style = s.ListSelected
		}
		lines = append(lines, style.Render("└ "+title))
	}
	lines = append(lines,
		inputStyle(formSubtasks).Width(inputWidth).Render(v.subInput.View()),
		"",
		btnStyle.Render(" Create "),
		"",
	)

	help := "Tab: next • Ctrl+N: add subtask • Ctrl+D: remove • Ctrl+T: tags • Ctrl+S: create • Esc: cancel"
	if v.submitting {
		help = "Creating..."
	}
	lines = append(lines, s.TitleMuted.Render(help))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
	return styles.CenterView(centered, v.width, v.height)
}
