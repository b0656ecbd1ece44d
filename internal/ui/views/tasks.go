package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

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

// ColorFunc looks up the palette color of a tag group
type ColorFunc func(group string) (models.Color, bool)

// row is one line of the flattened task tree
type row struct {
	task    models.Task
	sub     bool
	minutes int // display time for a parent, the estimate for a subtask
}

// TaskListView shows the task tree
type TaskListView struct {
	list        *tasks.List
	ctx         context.Context
	styles      *styles.Styles
	keys        keys.KeyMap
	colors      ColorFunc
	maxGenerate int
	today       func() time.Time

	width  int
	height int

	cursor  int
	scrollY int
	loaded  bool
	busy    string
	banner  string
	notice  string

	// Read-only detail view
	viewingTask bool

	// Field editing
	editing      bool
	editTask     models.Task
	editFocusIdx int // 0=title, 1=desc, 2=estimate, 3=deadline, 4=save
	editTitle    textinput.Model
	editDesc     textarea.Model
	editEstimate textinput.Model
	editDeadline textinput.Model

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

// NewTaskListView creates the task tree view over list. ctx bounds every
// remote call the view starts.
func NewTaskListView(ctx context.Context, list *tasks.List, maxGenerate int) *TaskListView {
	editTitle := textinput.New()
	editTitle.Placeholder = "Task title"
	editTitle.CharLimit = 200

	editDesc := textarea.New()
	editDesc.Placeholder = "Description"
	editDesc.CharLimit = 1000
	editDesc.SetWidth(50)
	editDesc.SetHeight(3)
	editDesc.ShowLineNumbers = false

	editEstimate := textinput.New()
	editEstimate.Placeholder = "minutes"
	editEstimate.CharLimit = 5

	editDeadline := textinput.New()
	editDeadline.Placeholder = "YYYY-MM-DD"
	editDeadline.CharLimit = 10

	return &TaskListView{
		list:         list,
		ctx:          ctx,
		styles:       styles.NewStyles(),
		keys:         keys.DefaultKeyMap(),
		colors:       func(string) (models.Color, bool) { return models.Color{}, false },
		maxGenerate:  maxGenerate,
		today:        time.Now,
		editTitle:    editTitle,
		editDesc:     editDesc,
		editEstimate: editEstimate,
		editDeadline: editDeadline,
	}
}

// SetColors sets the tag group color lookup
func (v *TaskListView) SetColors(fn ColorFunc) {
	if fn != nil {
		v.colors = fn
	}
}

// Init initializes the view
func (v *TaskListView) Init() tea.Cmd {
	return v.loadTasks
}

// Reload refetches the task list
func (v *TaskListView) Reload() tea.Cmd {
	v.busy = "Loading..."
	return v.loadTasks
}

// ShowError puts err in the banner
func (v *TaskListView) ShowError(err error) {
	if err != nil {
		v.banner = errText(err)
	}
}

// ShowNotice shows a one-line confirmation
func (v *TaskListView) ShowNotice(msg string) {
	v.notice = msg
}

type tasksLoadedMsg struct {
	err error
}

type taskSavedMsg struct {
	id  string
	err error
}

type statusChangedMsg struct {
	id     string
	status models.Status
	err    error
}

type taskFetchedMsg struct {
	task models.Task
	edit bool
	err  error
}

type generatedMsg struct {
	id    string
	count int
	err   error
}

func (v *TaskListView) loadTasks() tea.Msg {
	return tasksLoadedMsg{err: v.list.Load(v.ctx)}
}

// setStatus moves a task to status. Parents and subtasks follow the cascade
// rules of the list.
func (v *TaskListView) setStatus(id string, status models.Status) tea.Cmd {
	return func() tea.Msg {
		err := v.list.UpdateField(v.ctx, id, tasks.FieldStatus, status)
		return statusChangedMsg{id: id, status: status, err: err}
	}
}

// fetch reloads a task before it is shown or edited
func (v *TaskListView) fetch(id string, edit bool) tea.Cmd {
	v.busy = "Loading..."
	return func() tea.Msg {
		task, err := v.list.Fetch(v.ctx, id)
		return taskFetchedMsg{task: task, edit: edit, err: err}
	}
}

func (v *TaskListView) generate(id string) tea.Cmd {
	return func() tea.Msg {
		subs, err := v.list.GenerateSubtasks(v.ctx, id, v.maxGenerate)
		return generatedMsg{id: id, count: len(subs), err: err}
	}
}

// Update handles messages
func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		v.editDesc.SetWidth(clamp(contentWidth-10, 20, 50))
		return v, nil

	case tasksLoadedMsg:
		v.loaded = true
		v.busy = ""
		if msg.err != nil {
			v.banner = errText(msg.err)
		} else {
			v.banner = ""
		}
		v.clampCursor()
		return v, nil

	case statusChangedMsg:
		v.busy = ""
		if msg.err != nil {
			v.banner = errText(msg.err)
			return v, nil
		}
		v.banner = ""
		if t, ok := v.list.Get(msg.id); ok {
			v.notice = fmt.Sprintf("%s: %s", t.Title, msg.status.Label())
		}
		return v, nil

	case taskSavedMsg:
		v.busy = ""
		if msg.err != nil {
			v.banner = errText(msg.err)
			return v, nil
		}
		v.banner = ""
		v.notice = "Saved"
		return v, nil

	case taskFetchedMsg:
		v.busy = ""
		if msg.err != nil {
			v.banner = errText(msg.err)
			v.viewingTask = false
			return v, nil
		}
		v.banner = ""
		v.selectTask(msg.task.ID)
		if msg.edit {
			v.viewingTask = false
			v.startEditTask(msg.task)
			return v, textinput.Blink
		}
		v.viewingTask = true
		return v, nil

	case generatedMsg:
		v.busy = ""
		if msg.err != nil {
			v.banner = errText(msg.err)
			return v, nil
		}
		v.banner = ""
		v.notice = fmt.Sprintf("Added %d subtasks", msg.count)
		return v, nil

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.editing {
			return v.updateEditing(msg)
		}

		if v.viewingTask {
			return v.updateViewingTask(msg)
		}

		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.notice = ""

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.rows())-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		return v, func() tea.Msg { return NewTask{} }

	case key.Matches(msg, v.keys.Recommend):
		return v, func() tea.Msg { return OpenRecommend{} }

	case key.Matches(msg, v.keys.Refresh):
		return v, v.Reload()
	}

	r, ok := v.selected()
	if !ok {
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Enter):
		return v, v.fetch(r.task.ID, false)

	case key.Matches(msg, v.keys.Status):
		v.busy = "Saving..."
		return v, v.setStatus(r.task.ID, r.task.Status.Next())

	case key.Matches(msg, v.keys.Edit):
		return v, v.fetch(r.task.ID, true)

	case key.Matches(msg, v.keys.Tags):
		return v, v.openTags(r.task)

	case key.Matches(msg, v.keys.Generate):
		if r.sub {
			v.banner = "Subtasks cannot have subtasks of their own"
			return v, nil
		}
		v.busy = "Generating subtasks..."
		return v, v.generate(r.task.ID)

	case key.Matches(msg, v.keys.Timer):
		task := r.task
		return v, func() tea.Msg { return StartWork{Task: task} }
	}
	return v, nil
}

func (v *TaskListView) updateViewingTask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r, ok := v.selected()
	if !ok {
		v.viewingTask = false
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		v.viewingTask = false
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	case key.Matches(msg, v.keys.Edit):
		return v, v.fetch(r.task.ID, true)
	case key.Matches(msg, v.keys.Tags):
		return v, v.openTags(r.task)
	case key.Matches(msg, v.keys.Status):
		v.busy = "Saving..."
		return v, v.setStatus(r.task.ID, r.task.Status.Next())
	case key.Matches(msg, v.keys.Timer):
		task := r.task
		return v, func() tea.Msg { return StartWork{Task: task} }
	}
	return v, nil
}

func (v *TaskListView) openTags(task models.Task) tea.Cmd {
	req := OpenTags{
		TaskID:  task.ID,
		Title:   task.Title,
		Current: tags.Selection(task),
	}
	if task.IsSubtask() {
		req.Target = tags.Target{SubtaskID: task.ID}
	}
	return func() tea.Msg { return req }
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Tab):
		v.editFocusIdx = (v.editFocusIdx + 1) % 5
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.ShiftTab):
		v.editFocusIdx = (v.editFocusIdx + 4) % 5
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		// Enter in the description is a newline
		if v.editFocusIdx == 4 {
			return v, v.saveTask()
		}
		if v.editFocusIdx != 1 {
			v.editFocusIdx++
			v.updateEditFocus()
			return v, nil
		}
	}

	var cmd tea.Cmd
	switch v.editFocusIdx {
	case 0:
		v.editTitle, cmd = v.editTitle.Update(msg)
	case 1:
		v.editDesc, cmd = v.editDesc.Update(msg)
	case 2:
		v.editEstimate, cmd = v.editEstimate.Update(msg)
	case 3:
		v.editDeadline, cmd = v.editDeadline.Update(msg)
	}
	return v, cmd
}

func (v *TaskListView) startEditTask(task models.Task) {
	v.editing = true
	v.editTask = task
	v.editFocusIdx = 0
	v.editTitle.SetValue(task.Title)
	v.editDesc.SetValue(task.Description)
	v.editEstimate.SetValue(strconv.Itoa(task.EstimatedTime))
	v.editDeadline.SetValue(models.FormatDate(task.Deadline))
	v.updateEditFocus()
}

func (v *TaskListView) updateEditFocus() {
	v.editTitle.Blur()
	v.editDesc.Blur()
	v.editEstimate.Blur()
	v.editDeadline.Blur()

	switch v.editFocusIdx {
	case 0:
		v.editTitle.Focus()
	case 1:
		v.editDesc.Focus()
	case 2:
		v.editEstimate.Focus()
	case 3:
		v.editDeadline.Focus()
	}
}

// edits returns the fields the edit form changed, in a fixed order
func (v *TaskListView) edits() ([]tasks.Field, []any, error) {
	t := v.editTask
	var fields []tasks.Field
	var values []any

	title := strings.TrimSpace(v.editTitle.Value())
	if title == "" {
		return nil, nil, tasks.ErrTitleRequired
	}
	if title != t.Title {
		fields = append(fields, tasks.FieldTitle)
		values = append(values, title)
	}
	if desc := strings.TrimSpace(v.editDesc.Value()); desc != t.Description {
		fields = append(fields, tasks.FieldDescription)
		values = append(values, desc)
	}
	if est := strings.TrimSpace(v.editEstimate.Value()); est != strconv.Itoa(t.EstimatedTime) {
		fields = append(fields, tasks.FieldEstimatedTime)
		values = append(values, est)
	}
	if dl := strings.TrimSpace(v.editDeadline.Value()); dl != models.FormatDate(t.Deadline) {
		if _, err := models.ParseDate(dl); err != nil {
			return nil, nil, errors.New("deadline must be YYYY-MM-DD")
		}
		fields = append(fields, tasks.FieldDeadline)
		values = append(values, dl)
	}
	return fields, values, nil
}

func (v *TaskListView) saveTask() tea.Cmd {
	fields, values, err := v.edits()
	if err != nil {
		v.banner = errText(err)
		return nil
	}
	v.editing = false
	if len(fields) == 0 {
		return nil
	}

	id := v.editTask.ID
	v.busy = "Saving..."
	return func() tea.Msg {
		var errs []error
		for i, f := range fields {
			if err := v.list.UpdateField(v.ctx, id, f, values[i]); err != nil {
				errs = append(errs, err)
			}
		}
		return taskSavedMsg{id: id, err: errors.Join(errs...)}
	}
}

func (v *TaskListView) rows() []row {
	var out []row
	for _, t := range v.list.Trees() {
		out = append(out, row{task: t.Task, minutes: t.DisplayTime})
		for _, s := range t.Subtasks {
			out = append(out, row{task: s, sub: true, minutes: s.EstimatedTime})
		}
	}
	return out
}

func (v *TaskListView) selected() (row, bool) {
	rows := v.rows()
	if v.cursor < 0 || v.cursor >= len(rows) {
		return row{}, false
	}
	return rows[v.cursor], true
}

// selectTask moves the cursor to the row of id
func (v *TaskListView) selectTask(id string) {
	for i, r := range v.rows() {
		if r.task.ID == id {
			v.cursor = i
			v.ensureVisible()
			return
		}
	}
}

func (v *TaskListView) clampCursor() {
	n := len(v.rows())
	if v.cursor >= n {
		v.cursor = max(0, n-1)
	}
	v.ensureVisible()
}

func (v *TaskListView) visibleRows() int {
	return max(v.height-10, 1)
}

func (v *TaskListView) ensureVisible() {
	visible := v.visibleRows()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

// View renders the view
func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.editing {
		return v.renderEditForm()
	}

	if v.viewingTask {
		return v.renderTaskView()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList())
	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles
	lines := []string{s.Title.Render("Tasks")}
	switch {
	case v.banner != "":
		lines = append(lines, s.Banner.Render(v.banner))
	case v.busy != "":
		lines = append(lines, s.TitleMuted.Render(v.busy))
	case v.notice != "":
		lines = append(lines, s.Notice.Render(v.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles

	if !v.loaded {
		return s.TitleMuted.Render("Loading...")
	}

	rows := v.rows()
	if len(rows) == 0 {
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	var items []string
	endIdx := min(v.scrollY+v.visibleRows(), len(rows))
	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderRow(rows[i], i == v.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderRow(r row, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	marker := "▸ "
	if r.sub {
		marker = "  └ "
	}
	line := marker + r.task.Title
	meta := []string{styles.Status(r.task.Status)}
	if r.minutes > 0 {
		meta = append(meta, s.TaskTime.Render(formatMinutes(r.minutes)))
	}
	if dl := v.renderDeadline(r.task.Deadline); dl != "" {
		meta = append(meta, dl)
	}

	style := s.ListItem
	if selected {
		style = s.ListSelected
	}
	return style.Width(width).Render(line + "  " + strings.Join(meta, " · "))
}

func (v *TaskListView) renderDeadline(d *models.Date) string {
	if d == nil {
		return ""
	}
	if d.Time().Before(models.DateOf(v.today()).Time()) {
		return v.styles.Overdue.Render("overdue " + d.String())
	}
	return v.styles.Deadline.Render("due " + d.String())
}

// renderTags renders a task's selection as colored chips
func renderTags(s *styles.Styles, set models.TagSet, colors ColorFunc) string {
	var chips []string
	for _, group := range sortedGroups(set) {
		c, _ := colors(group)
		for _, name := range set[group] {
			chips = append(chips, s.TagChip(name, c, false))
		}
	}
	if len(chips) == 0 {
		return s.TitleMuted.Render("None")
	}
	return strings.Join(chips, "")
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	if m%60 == 0 {
		return fmt.Sprintf("%dh", m/60)
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}

func (v *TaskListView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	titleStyle := s.Input
	descStyle := s.Input
	estStyle := s.Input
	dlStyle := s.Input
	btnStyle := s.Button

	switch v.editFocusIdx {
	case 0:
		titleStyle = s.InputFocused
	case 1:
		descStyle = s.InputFocused
	case 2:
		estStyle = s.InputFocused
	case 3:
		dlStyle = s.InputFocused
	case 4:
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)

	formTitle := "Edit Task"
	if v.editTask.IsSubtask() {
		formTitle = "Edit Subtask"
	}
	lines := []string{s.Title.Render(formTitle), ""}
	if v.banner != "" {
		lines = append(lines, s.Banner.Render(v.banner), "")
	}
	lines = append(lines,
		"Title:",
		titleStyle.Width(inputWidth).Render(v.editTitle.View()),
		"",
		"Description:",
		descStyle.Render(v.editDesc.View()),
		"",
		"Estimate (minutes):",
		estStyle.Width(12).Render(v.editEstimate.View()),
		"",
		"Deadline:",
		dlStyle.Width(14).Render(v.editDeadline.View()),
		"",
		btnStyle.Render(" Save "),
		"",
		s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	return v.styles.Help.Render(
		fmt.Sprintf("%s view • %s status • %s edit • %s tags • %s generate • %s work • %s new • %s suggest • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("s"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("t"),
			v.styles.HelpKey.Render("g"),
			v.styles.HelpKey.Render("w"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("r"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      view task",
		s.HelpKey.Render("s") + "      next status",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("t") + "      edit tags",
		s.HelpKey.Render("g") + "      generate subtasks",
		s.HelpKey.Render("w") + "      start working",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("r") + "      suggest a task",
		s.HelpKey.Render("R") + "      reload",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderTaskView() string {
	r, ok := v.selected()
	if !ok {
		return ""
	}

	s := v.styles
	task := r.task
	textWidth := clamp(styles.ContentWidth(v.width)-10, 20, 70)

	descText := task.Description
	if descText == "" {
		descText = s.TitleMuted.Render("No description")
	}
	deadline := v.renderDeadline(task.Deadline)
	if deadline == "" {
		deadline = s.TitleMuted.Render("None")
	}

	labelStyle := s.TitleMuted
	lines := []string{
		s.Title.MarginBottom(1).Render(task.Title),
		"",
		labelStyle.Render("Status"),
		styles.Status(task.Status),
		"",
		labelStyle.Render("Time"),
		s.TaskTime.Render(formatMinutes(r.minutes)),
		"",
		labelStyle.Render("Deadline"),
		deadline,
	}
	if !task.IsSubtask() {
		category := task.Category
		if category == "" {
			category = s.TitleMuted.Render("None")
		}
		lines = append(lines, "", labelStyle.Render("Category"), category)
	}
	lines = append(lines,
		"",
		labelStyle.Render("Tags"),
		renderTags(s, task.Tags, v.colors),
		"",
		labelStyle.Render("Description"),
		lipgloss.NewStyle().Width(textWidth).Render(descText),
		"",
		s.Help.Render(
			fmt.Sprintf("%s edit • %s tags • %s status • %s work • %s back",
				s.HelpKey.Render("e"),
				s.HelpKey.Render("t"),
				s.HelpKey.Render("s"),
				s.HelpKey.Render("w"),
				s.HelpKey.Render("esc"),
			),
		),
	)

	padded := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return styles.CenterView(padded, v.width, v.height)
}
