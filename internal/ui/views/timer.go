package views

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stride/internal/models"
	"github.com/tgienger/stride/internal/timer"
	"github.com/tgienger/stride/internal/ui/keys"
	"github.com/tgienger/stride/internal/ui/styles"
)

// TimerView runs a work session on one task
type TimerView struct {
	timer    *timer.Timer
	recorder timer.Recorder
	ctx      context.Context
	styles   *styles.Styles
	keys     keys.KeyMap
	bar      progress.Model

	width  int
	height int

	recording         bool
	confirmingDiscard bool
	closed            bool
	banner            string
}

// NewTimerView creates an idle timer view for the session
func NewTimerView(ctx context.Context, t *timer.Timer, rec timer.Recorder) *TimerView {
	bar := progress.New(
		progress.WithSolidFill(string(styles.Current.Success)),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(styles.Current.Border)
	bar.Width = 10
	return &TimerView{
		bar:      bar,
		timer:    t,
		recorder: rec,
		ctx:      ctx,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
	}
}

type tickMsg time.Time

type recordedMsg struct {
	record models.WorkRecord
	err    error
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the countdown
func (v *TimerView) Init() tea.Cmd {
	if err := v.timer.Start(); err != nil {
		v.banner = errText(err)
		return nil
	}
	return tick()
}

// Close stops the tick loop
func (v *TimerView) Close() {
	v.closed = true
}

func (v *TimerView) complete() tea.Msg {
	rec, err := v.timer.Complete(v.ctx, v.recorder)
	return recordedMsg{record: rec, err: err}
}

// Update handles messages
func (v *TimerView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.bar.Width = clamp(styles.ContentWidth(v.width)-10, 10, 40)
		return v, nil

	case tickMsg:
		if v.closed || v.timer.State() == timer.Finished {
			return v, nil
		}
		return v, tick()

	case recordedMsg:
		v.recording = false
		if msg.err != nil {
			v.banner = errText(msg.err)
			return v, nil
		}
		v.closed = true
		rec := msg.record
		return v, func() tea.Msg { return WorkFinished{Record: &rec} }

	case tea.KeyMsg:
		if v.recording {
			return v, nil
		}
		if v.confirmingDiscard {
			return v.updateConfirmDiscard(msg)
		}

		switch {
		case key.Matches(msg, v.keys.Toggle):
			wasIdle := v.timer.State() == timer.Idle
			if err := v.timer.Toggle(); err != nil {
				v.banner = errText(err)
				return v, nil
			}
			// ticks keep running while paused
			if wasIdle {
				return v, tick()
			}
		case key.Matches(msg, v.keys.Enter):
			v.recording = true
			v.banner = ""
			return v, v.complete
		case key.Matches(msg, v.keys.Back):
			v.confirmingDiscard = true
		}
	}
	return v, nil
}

func (v *TimerView) updateConfirmDiscard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.timer.Stop()
		v.closed = true
		return v, func() tea.Msg { return WorkFinished{} }
	case "n", "N", "esc":
		v.confirmingDiscard = false
	}
	return v, nil
}

// View renders the view
func (v *TimerView) View() string {
	if v.confirmingDiscard {
		return v.renderDiscardConfirm()
	}

	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	state := v.timer.State()

	remaining := v.timer.Remaining().Round(time.Second)
	clock := fmt.Sprintf("%02d:%02d", int(remaining.Minutes()), int(remaining.Seconds())%60)

	status := state.String()
	switch state {
	case timer.Finished:
		status = "Time's up"
	case timer.Paused:
		status = "Paused"
	case timer.Running:
		status = "Working"
	}

	task := v.timer.Task()
	lines := []string{
		s.Title.Render(task.Title),
		"",
		lipgloss.NewStyle().Bold(true).Foreground(styles.Current.Accent).Render(clock),
		v.bar.ViewAs(v.timer.Progress()),
		s.TitleMuted.Render(status),
	}
	if v.banner != "" {
		lines = append(lines, "", s.Banner.Render(v.banner))
	}

	help := "Space: pause/resume • Enter: finish and record • Esc: discard"
	if v.recording {
		help = "Recording..."
	}
	lines = append(lines, "", s.TitleMuted.Render(help))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, lines...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TimerView) renderDiscardConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Discard this session?"),
		"",
		s.TitleMuted.Render("The time worked will not be recorded."),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}
