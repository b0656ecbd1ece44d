package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stride/internal/api"
	"github.com/tgienger/stride/internal/models"
	"github.com/tgienger/stride/internal/ui/keys"
	"github.com/tgienger/stride/internal/ui/styles"
)

// Recommender ranks tasks for a working context
type Recommender interface {
	Recommend(ctx context.Context, req api.RecommendRequest) ([]models.Recommendation, error)
}

type recommendationItem struct {
	rec models.Recommendation
}

func (i recommendationItem) Title() string       { return i.rec.Task.Title }
func (i recommendationItem) Description() string { return i.rec.Reason }
func (i recommendationItem) FilterValue() string { return i.rec.Task.Title }

type recommendationDelegate struct {
	styles *styles.Styles
	width  int
}

func (d recommendationDelegate) Height() int                               { return 2 }
func (d recommendationDelegate) Spacing() int                              { return 1 }
func (d recommendationDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d recommendationDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	r, ok := item.(recommendationItem)
	if !ok {
		return
	}

	selected := index == m.Index()
	width := max(d.width-4, 20)

	var titleStyle, descStyle lipgloss.Style
	if selected {
		titleStyle = d.styles.ListSelected.Width(width)
		descStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	} else {
		titleStyle = d.styles.ListItem.Width(width)
		descStyle = d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	title := r.Title()
	if r.rec.Task.EstimatedTime > 0 {
		title += "  " + d.styles.TaskTime.Render(formatMinutes(r.rec.Task.EstimatedTime))
	}
	fmt.Fprintf(w, "%s\n%s", titleStyle.Render(title), descStyle.Render(r.Description()))
}

// RecommendView asks for the working context and lists suggested tasks
type RecommendView struct {
	recommender Recommender
	ctx         context.Context
	list        list.Model
	delegate    *recommendationDelegate
	styles      *styles.Styles
	keys        keys.KeyMap
	width       int
	height      int

	// context form
	asking   bool
	focusIdx int // 0=minutes, 1=mode, 2=place, 3=tools, 4=submit
	minutes  textinput.Model
	mode     textinput.Model
	place    textinput.Model
	tools    textinput.Model

	loading bool
	request api.RecommendRequest
	banner  string
}

// NewRecommendView creates the view. defaultMinutes prefills the time field.
func NewRecommendView(ctx context.Context, r Recommender, defaultMinutes int) *RecommendView {
	s := styles.NewStyles()

	minutes := textinput.New()
	minutes.Placeholder = "minutes"
	minutes.CharLimit = 4
	if defaultMinutes > 0 {
		minutes.SetValue(strconv.Itoa(defaultMinutes))
	}
	minutes.Focus()

	mode := textinput.New()
	mode.Placeholder = "e.g. Focus"
	mode.CharLimit = 50

	place := textinput.New()
	place.Placeholder = "e.g. Home"
	place.CharLimit = 50

	tools := textinput.New()
	tools.Placeholder = "comma separated, e.g. Laptop, Phone"
	tools.CharLimit = 200

	delegate := &recommendationDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Suggestions"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &RecommendView{
		recommender: r,
		ctx:         ctx,
		list:        l,
		delegate:    delegate,
		styles:      s,
		keys:        keys.DefaultKeyMap(),
		asking:      true,
		minutes:     minutes,
		mode:        mode,
		place:       place,
		tools:       tools,
	}
}

// Init initializes the view
func (v *RecommendView) Init() tea.Cmd {
	return textinput.Blink
}

type recommendationsLoadedMsg struct {
	recs []models.Recommendation
	err  error
}

func (v *RecommendView) fetch(req api.RecommendRequest) tea.Cmd {
	return func() tea.Msg {
		recs, err := v.recommender.Recommend(v.ctx, req)
		return recommendationsLoadedMsg{recs: recs, err: err}
	}
}

// Update handles messages
func (v *RecommendView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-6)
		return v, nil

	case recommendationsLoadedMsg:
		v.loading = false
		if msg.err != nil {
			v.banner = errText(msg.err)
			v.asking = true
			return v, nil
		}
		items := make([]list.Item, len(msg.recs))
		for i, r := range msg.recs {
			items[i] = recommendationItem{rec: r}
		}
		v.list.SetItems(items)
		v.asking = false
		return v, nil

	case tea.KeyMsg:
		if v.loading {
			return v, nil
		}
		if v.asking {
			return v.updateAsking(msg)
		}
		// let the list own keys while filtering
		if v.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, v.keys.Back):
			// esc clears an applied filter first
			if v.list.FilterState() != list.Unfiltered {
				break
			}
			v.asking = true
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(recommendationItem); ok {
				req := v.request
				return v, func() tea.Msg {
					return StartWork{Task: item.rec.Task, Mode: req.Mode, Place: req.Place, Tools: req.Tools}
				}
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *RecommendView) updateAsking(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return CloseRecommend{} }

	case key.Matches(msg, v.keys.Save):
		return v, v.submit()

	case key.Matches(msg, v.keys.ShiftTab):
		v.focusIdx = (v.focusIdx + 4) % 5
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % 5
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx == 4 {
			return v, v.submit()
		}
		v.focusIdx++
		v.updateFocus()
		return v, nil
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case 0:
		v.minutes, cmd = v.minutes.Update(msg)
	case 1:
		v.mode, cmd = v.mode.Update(msg)
	case 2:
		v.place, cmd = v.place.Update(msg)
	case 3:
		v.tools, cmd = v.tools.Update(msg)
	}
	return v, cmd
}

func (v *RecommendView) updateFocus() {
	v.minutes.Blur()
	v.mode.Blur()
	v.place.Blur()
	v.tools.Blur()
	switch v.focusIdx {
	case 0:
		v.minutes.Focus()
	case 1:
		v.mode.Focus()
	case 2:
		v.place.Focus()
	case 3:
		v.tools.Focus()
	}
}

// buildRequest reads the context form
func (v *RecommendView) buildRequest() (api.RecommendRequest, error) {
	req := api.RecommendRequest{
		Mode:  strings.TrimSpace(v.mode.Value()),
		Place: strings.TrimSpace(v.place.Value()),
		Tools: splitList(v.tools.Value()),
	}
	if m := strings.TrimSpace(v.minutes.Value()); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n < 0 {
			return req, errors.New("available time must be a whole number of minutes")
		}
		req.AvailableMinutes = n
	}
	return req, nil
}

func (v *RecommendView) submit() tea.Cmd {
	req, err := v.buildRequest()
	if err != nil {
		v.banner = err.Error()
		return nil
	}
	v.banner = ""
	v.request = req
	v.loading = true
	return v.fetch(req)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// View renders the view
func (v *RecommendView) View() string {
	if v.asking || v.loading {
		return v.renderAskForm()
	}
	if len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}
	content := v.list.View() + "\n" + v.renderHelp()
	return styles.CenterView(content, v.width, v.height)
}

func (v *RecommendView) renderAskForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	style := func(idx int) lipgloss.Style {
		if v.focusIdx == idx {
			return s.InputFocused
		}
		return s.Input
	}
	btnStyle := s.Button
	if v.focusIdx == 4 {
		btnStyle = s.ButtonFocused
	}
	inputWidth := clamp(contentWidth-6, 20, 50)

	lines := []string{s.Title.Render("What can you do right now?"), ""}
	if v.banner != "" {
		lines = append(lines, s.Banner.Render(v.banner), "")
	}
	lines = append(lines,
		"Available time:",
		style(0).Width(12).Render(v.minutes.View()),
		"",
		"Mode:",
		style(1).Width(inputWidth).Render(v.mode.View()),
		"",
		"Place:",
		style(2).Width(inputWidth).Render(v.place.View()),
		"",
		"Tools at hand:",
		style(3).Width(inputWidth).Render(v.tools.View()),
		"",
		btnStyle.Render(" Suggest "),
		"",
	)
	if v.loading {
		lines = append(lines, s.TitleMuted.Render("Looking for tasks..."))
	} else {
		lines = append(lines, s.TitleMuted.Render("Tab: next • Ctrl+S: suggest • Esc: back"))
	}

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *RecommendView) renderEmpty() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("Nothing to suggest"),
		"",
		s.TitleMuted.Render("No open task fits. Press esc to change your answers."),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *RecommendView) renderHelp() string {
	return v.styles.Help.Render(
		fmt.Sprintf("%s start working • %s filter • %s change answers",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("/"),
			v.styles.HelpKey.Render("esc"),
		),
	)
}
