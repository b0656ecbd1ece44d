package timer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tgienger/stride/internal/logger"
	"github.com/tgienger/stride/internal/models"
)

// State of a work timer
type State int

const (
	Idle State = iota
	Running
	Paused
	Finished
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return "idle"
	}
}

var ErrState = errors.New("invalid timer state")

// Recorder stores completed work
type Recorder interface {
	CreateRecord(ctx context.Context, r models.WorkRecord) error
}

// Option configures a Timer
type Option func(*Timer)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithContext sets the work context sent with the record
func WithContext(mode, place string, tools []string) Option {
	return func(t *Timer) {
		t.mode = mode
		t.place = place
		t.tools = slices.Clone(tools)
	}
}

// Timer counts down a work session on one task. Elapsed time is the
// accumulated time of finished runs plus the current run.
type Timer struct {
	mu          sync.Mutex
	now         func() time.Time
	task        models.Task
	duration    time.Duration
	state       State
	started     time.Time // start of the current run
	accumulated time.Duration
	mode, place string
	tools       []string
}

// New returns an idle timer for task
func New(task models.Task, d time.Duration, opts ...Option) *Timer {
	t := &Timer{now: time.Now, task: task, duration: d}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Task returns the timed task
func (t *Timer) Task() models.Task { return t.task }

// Duration returns the planned length
func (t *Timer) Duration() time.Duration { return t.duration }

// State returns the current state, finishing the timer if time is up
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.check()
	return t.state
}

// Start begins an idle timer
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Idle {
		return fmt.Errorf("%w: start while %s", ErrState, t.state)
	}
	t.state = Running
	t.started = t.now()
	return nil
}

// Pause stops the clock
func (t *Timer) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.check()
	if t.state != Running {
		return fmt.Errorf("%w: pause while %s", ErrState, t.state)
	}
	t.accumulated += t.now().Sub(t.started)
	t.state = Paused
	return nil
}

// Resume restarts a paused timer
func (t *Timer) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Paused {
		return fmt.Errorf("%w: resume while %s", ErrState, t.state)
	}
	t.state = Running
	t.started = t.now()
	return nil
}

// Toggle pauses a running timer and resumes a paused one
func (t *Timer) Toggle() error {
	switch t.State() {
	case Running:
		return t.Pause()
	case Paused:
		return t.Resume()
	case Idle:
		return t.Start()
	default:
		return fmt.Errorf("%w: toggle while finished", ErrState)
	}
}

// Stop ends the session early
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.check()
	if t.state == Running {
		t.accumulated += t.now().Sub(t.started)
	}
	t.state = Finished
}

// Elapsed returns the time worked, capped at the planned duration
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.check()
	return t.elapsed()
}

// Remaining returns the time left
func (t *Timer) Remaining() time.Duration {
	return t.duration - t.Elapsed()
}

// Progress returns the completed fraction in [0, 1]
func (t *Timer) Progress() float64 {
	if t.duration <= 0 {
		return 1
	}
	return float64(t.Elapsed()) / float64(t.duration)
}

// Done reports whether the timer has finished
func (t *Timer) Done() bool {
	return t.State() == Finished
}

func (t *Timer) elapsed() time.Duration {
	e := t.accumulated
	if t.state == Running {
		e += t.now().Sub(t.started)
	}
	return min(e, t.duration)
}

// check finishes a running timer whose time is up. Caller holds mu.
func (t *Timer) check() {
	if t.state != Running {
		return
	}
	if t.accumulated+t.now().Sub(t.started) >= t.duration {
		t.accumulated = t.duration
		t.state = Finished
	}
}

// Record returns the work record for the time spent so far. Minutes are
// rounded to the nearest minute with a floor of one.
func (t *Timer) Record() models.WorkRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.check()
	minutes := int(t.elapsed().Round(time.Minute) / time.Minute)
	return models.WorkRecord{
		TaskID:    t.task.ID,
		Mode:      t.mode,
		Place:     t.place,
		Tools:     slices.Clone(t.tools),
		Minutes:   max(minutes, 1),
		Timestamp: t.now(),
	}
}

// Complete stops the timer and posts the work record
func (t *Timer) Complete(ctx context.Context, rec Recorder) (models.WorkRecord, error) {
	t.Stop()
	r := t.Record()
	if err := rec.CreateRecord(ctx, r); err != nil {
		return r, fmt.Errorf("recording work on %s: %w", t.task.ID, err)
	}
	logger.Info("timer: recorded %d minutes on %s", r.Minutes, t.task.ID)
	return r, nil
}
