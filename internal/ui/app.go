package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/stride/internal/logger"
	"github.com/tgienger/stride/internal/models"
	"github.com/tgienger/stride/internal/tags"
	"github.com/tgienger/stride/internal/tasks"
	"github.com/tgienger/stride/internal/timer"
	"github.com/tgienger/stride/internal/ui/views"
)

// Backend is everything the screens need from the REST API
type Backend interface {
	tasks.Backend
	tasks.Creator
	tags.Source
	tags.Remote
	timer.Recorder
	views.Recommender
}

// Options tune the app from config
type Options struct {
	Policy       tasks.Policy
	MaxGenerate  int
	TimerMinutes int
}

// Currently active view
type View int

const (
	ViewTasks View = iota
	ViewForm
	ViewTags
	ViewRecommend
	ViewTimer
)

type App struct {
	backend Backend
	opts    Options
	ctx     context.Context
	cancel  context.CancelFunc

	list    *tasks.List
	session *tags.Session

	taxonomyLoaded  bool
	taxonomyLoading bool

	currentView View
	tagsReturn  View // view shown again when the tag editor closes
	taskList    *views.TaskListView
	form        *views.FormView
	tagEditor   *views.TagEditorView
	recommend   *views.RecommendView
	timerView   *views.TimerView

	// cancel funcs of the transient views' contexts
	cancels map[View]context.CancelFunc

	width  int
	height int
}

// NewApp creates the application
func NewApp(backend Backend, opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())
	list := tasks.NewList(backend, opts.Policy)
	a := &App{
		backend:     backend,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		list:        list,
		session:     tags.NewSession(nil, backend),
		currentView: ViewTasks,
		taskList:    views.NewTaskListView(ctx, list, opts.MaxGenerate),
		cancels:     map[View]context.CancelFunc{},
	}
	a.taskList.SetColors(a.groupColor)
	return a
}

// Close cancels every in-flight request
func (a *App) Close() {
	a.cancel()
}

func (a *App) groupColor(name string) (models.Color, bool) {
	return a.session.GroupColor(name)
}

type taxonomyLoadedMsg struct {
	tax *tags.Taxonomy
	err error
}

type tagsAppliedMsg struct {
	err error
}

type workStartedMsg struct {
	err error
}

type retryTaxonomyMsg struct{}

// taxonomyRetryDelay spaces out reloads after a failed taxonomy load
const taxonomyRetryDelay = 10 * time.Second

func (a *App) loadTaxonomy() tea.Msg {
	tax, err := tags.LoadTaxonomy(a.ctx, a.backend)
	return taxonomyLoadedMsg{tax: tax, err: err}
}

// reloadTaxonomy starts a load unless one is running or one has succeeded
func (a *App) reloadTaxonomy() tea.Cmd {
	if a.taxonomyLoaded || a.taxonomyLoading {
		return nil
	}
	a.taxonomyLoading = true
	return a.loadTaxonomy
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.taskList.Init(), a.reloadTaxonomy())
}

// open gives a transient view its own context, cancelled when it closes
func (a *App) open(v View) context.Context {
	a.closeView(v)
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancels[v] = cancel
	return ctx
}

func (a *App) closeView(v View) {
	if cancel, ok := a.cancels[v]; ok {
		cancel()
		delete(a.cancels, v)
	}
}

func (a *App) resize() tea.Cmd {
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: a.width, Height: a.height}
	}
}

func (a *App) show(v View, init tea.Cmd) tea.Cmd {
	a.currentView = v
	return tea.Batch(init, a.resize())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Always update the task list size since it persists
		a.taskList.Update(msg)
		if a.currentView == ViewTasks {
			return a, nil
		}

	case taxonomyLoadedMsg:
		a.taxonomyLoading = false
		if msg.err != nil {
			logger.Warn("ui: loading tags failed, retrying in %s: %v", taxonomyRetryDelay, msg.err)
			a.taskList.ShowError(msg.err)
			return a, tea.Tick(taxonomyRetryDelay, func(time.Time) tea.Msg { return retryTaxonomyMsg{} })
		}
		a.taxonomyLoaded = true
		a.session.SetTaxonomy(msg.tax)
		return a, nil

	case retryTaxonomyMsg:
		return a, a.reloadTaxonomy()

	case views.OpenTags:
		ctx, cancel := context.WithCancel(a.ctx)
		editor, err := views.NewTagEditorView(ctx, a.session, msg)
		if err != nil {
			cancel()
			if a.currentView == ViewForm && a.form != nil {
				a.form.ApplyTags(views.TagsClosed{Request: msg, Err: err})
			} else {
				a.taskList.ShowError(err)
			}
			return a, nil
		}
		a.closeView(ViewTags)
		a.cancels[ViewTags] = cancel
		a.tagEditor = editor
		a.tagsReturn = a.currentView
		return a, tea.Batch(a.show(ViewTags, editor.Init()), a.reloadTaxonomy())

	case views.TagsClosed:
		a.closeView(ViewTags)
		a.tagEditor = nil
		a.currentView = a.tagsReturn
		if a.currentView == ViewForm && a.form != nil {
			a.form.ApplyTags(msg)
			return a, a.resize()
		}
		a.taskList.ShowError(msg.Err)
		if msg.Outcome == nil {
			return a, a.resize()
		}
		return a, tea.Batch(a.applyTags(msg.Request.TaskID, *msg.Outcome), a.resize())

	case tagsAppliedMsg:
		if msg.err != nil {
			a.taskList.ShowError(msg.err)
		}
		return a, nil

	case views.NewTask:
		ctx := a.open(ViewForm)
		a.form = views.NewFormView(ctx, a.backend, a.groupColor)
		return a, a.show(ViewForm, a.form.Init())

	case views.CloseForm:
		a.closeView(ViewForm)
		a.form = nil
		return a, a.show(ViewTasks, nil)

	case views.TaskCreated:
		a.closeView(ViewForm)
		a.form = nil
		a.taskList.ShowNotice(fmt.Sprintf("Created %q", msg.Task.Title))
		return a, a.show(ViewTasks, a.taskList.Reload())

	case views.OpenRecommend:
		ctx := a.open(ViewRecommend)
		a.recommend = views.NewRecommendView(ctx, a.backend, a.opts.TimerMinutes)
		return a, a.show(ViewRecommend, a.recommend.Init())

	case views.CloseRecommend:
		a.closeView(ViewRecommend)
		a.recommend = nil
		return a, a.show(ViewTasks, nil)

	case views.StartWork:
		a.closeView(ViewRecommend)
		a.recommend = nil
		ctx := a.open(ViewTimer)
		minutes := a.opts.TimerMinutes
		if minutes <= 0 {
			minutes = 25
		}
		t := timer.New(msg.Task, time.Duration(minutes)*time.Minute,
			timer.WithContext(msg.Mode, msg.Place, msg.Tools))
		a.timerView = views.NewTimerView(ctx, t, a.backend)
		return a, tea.Batch(a.show(ViewTimer, a.timerView.Init()), a.markInProgress(msg.Task.ID))

	case workStartedMsg:
		if msg.err != nil {
			a.taskList.ShowError(msg.err)
		}
		return a, nil

	case views.WorkFinished:
		if a.timerView != nil {
			a.timerView.Close()
		}
		a.closeView(ViewTimer)
		a.timerView = nil
		if msg.Record != nil {
			a.taskList.ShowNotice(fmt.Sprintf("Recorded %d minutes", msg.Record.Minutes))
		}
		return a, a.show(ViewTasks, nil)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewTasks:
		_, cmd = a.taskList.Update(msg)
	case ViewForm:
		if a.form != nil {
			_, cmd = a.form.Update(msg)
		}
	case ViewTags:
		if a.tagEditor != nil {
			_, cmd = a.tagEditor.Update(msg)
		}
	case ViewRecommend:
		if a.recommend != nil {
			_, cmd = a.recommend.Update(msg)
		}
	case ViewTimer:
		if a.timerView != nil {
			_, cmd = a.timerView.Update(msg)
		}
	}
	return a, cmd
}

// applyTags writes a saved tag selection to a task in the list
func (a *App) applyTags(taskID string, out tags.Outcome) tea.Cmd {
	return func() tea.Msg {
		return tagsAppliedMsg{err: a.list.ApplyTags(a.ctx, taskID, out.Tags, out.Category)}
	}
}

// markInProgress moves a not started task to in progress when work begins
func (a *App) markInProgress(id string) tea.Cmd {
	t, ok := a.list.Get(id)
	if !ok || t.Status != models.StatusNotStarted {
		return nil
	}
	return func() tea.Msg {
		return workStartedMsg{err: a.list.UpdateField(a.ctx, id, tasks.FieldStatus, models.StatusInProgress)}
	}
}

func (a *App) View() string {
	switch a.currentView {
	case ViewForm:
		if a.form != nil {
			return a.form.View()
		}
	case ViewTags:
		if a.tagEditor != nil {
			return a.tagEditor.View()
		}
	case ViewRecommend:
		if a.recommend != nil {
			return a.recommend.View()
		}
	case ViewTimer:
		if a.timerView != nil {
			return a.timerView.View()
		}
	}
	return a.taskList.View()
}
