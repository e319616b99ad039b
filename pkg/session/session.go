// Package session drives one automation run: launch the app, then work
// through the steps, locating and interacting with retries per step.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"

	"github.com/uitap-dev/uitap/pkg/config"
	"github.com/uitap-dev/uitap/pkg/core"
	"github.com/uitap-dev/uitap/pkg/locator"
	"github.com/uitap-dev/uitap/pkg/logger"
)

// State is the session lifecycle phase. Transitions only move forward;
// a session is single-use.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateLocating
	StateInteracting
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateLocating:
		return "locating"
	case StateInteracting:
		return "interacting"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session can no longer run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Action is the interaction a step performs once its target is located.
type Action string

const (
	ActionTap       Action = "tap"
	ActionLongPress Action = "longPress"
	ActionSwipe     Action = "swipe"
	ActionInput     Action = "input"
	ActionWait      Action = "wait"
)

// Step is one unit of work: locate Target, then perform Action.
type Step struct {
	Name   string
	Action Action
	Target locator.Criteria

	Text     string        // input: text to type
	Delta    core.Point    // swipe: offset from the located point
	Duration time.Duration // longPress hold / swipe duration

	Timeout time.Duration // locate timeout; zero uses the configured default
	Retries *int          // per-step override of the configured retry count
}

// StepResult records the outcome of one step.
type StepResult struct {
	Step     Step
	Attempts int
	Strategy string
	Point    core.Point
	Duration time.Duration
	Err      error
}

// Finder resolves criteria to screen points.
type Finder interface {
	Locate(ctx context.Context, c locator.Criteria, timeout time.Duration) (*locator.Result, error)
}

// Gestures performs device interactions.
type Gestures interface {
	Tap(ctx context.Context, p core.Point) error
	LongPress(ctx context.Context, p core.Point, duration time.Duration) error
	Swipe(ctx context.Context, from, to core.Point, duration time.Duration) error
	EnterText(ctx context.Context, text string) error
}

// AppController launches and stops the app under automation.
type AppController interface {
	LaunchApp(ctx context.Context, pkg, activity string) error
	StopApp(ctx context.Context, pkg string) error
}

// App identifies the application a session drives. Empty Package means the
// session runs against whatever is already on screen.
type App struct {
	Package  string
	Activity string
}

// ErrSessionConsumed is returned when Run is called on a session that
// already ran.
var ErrSessionConsumed = core.NewAutomationError(core.ErrCategoryConfig, "session_consumed", "session already ran; create a new one")

// Session executes steps against one device. Single-use: one Run per
// session.
type Session struct {
	id       string
	finder   Finder
	gestures Gestures
	app      AppController
	cfg      *config.Config

	mu      sync.Mutex
	state   State
	results []StepResult
}

// New creates an idle session. The app controller may be nil when no app
// lifecycle management is wanted.
func New(finder Finder, gestures Gestures, app AppController, cfg *config.Config) *Session {
	return &Session{
		id:       uuid.NewString(),
		finder:   finder,
		gestures: gestures,
		app:      app,
		cfg:      cfg,
		state:    StateIdle,
	}
}

// ID returns the session correlation id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Results returns the step results recorded so far.
func (s *Session) Results() []StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StepResult, len(s.results))
	copy(out, s.results)
	return out
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// Run launches the app (when one is given) and executes the steps in
// order. The first failing step moves the session to failed and aborts the
// rest. Run may be called once; later calls return ErrSessionConsumed.
func (s *Session) Run(ctx context.Context, app App, steps []Step) ([]StepResult, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, ErrSessionConsumed
	}
	s.state = StateLaunching
	s.mu.Unlock()

	logger.Info("session").
		Str("session", s.id).
		Str("package", app.Package).
		Int("steps", len(steps)).
		Msg("session started")

	if app.Package != "" && s.app != nil {
		if err := s.app.LaunchApp(ctx, app.Package, app.Activity); err != nil {
			s.setState(StateFailed)
			return s.Results(), core.ErrTransport.WithMessage("app launch failed").WithCause(err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.app.StopApp(stopCtx, app.Package); err != nil {
				logger.Warn("session").Str("session", s.id).Err(err).Msg("app stop failed")
			}
		}()
	}

	for i, step := range steps {
		result := s.runStep(ctx, step)

		s.mu.Lock()
		s.results = append(s.results, result)
		s.mu.Unlock()

		if result.Err != nil {
			s.setState(StateFailed)
			logger.Error("session").
				Str("session", s.id).
				Int("step", i+1).
				Str("name", step.Name).
				Err(result.Err).
				Msg("step failed")
			return s.Results(), result.Err
		}
		logger.Info("session").
			Str("session", s.id).
			Int("step", i+1).
			Str("name", step.Name).
			Int("attempts", result.Attempts).
			Msg("step completed")
	}

	s.setState(StateCompleted)
	return s.Results(), nil
}

// runStep locates and interacts, retrying the whole step on retryable
// failures with a constant interval. Parse, config and ambiguity errors
// abort immediately.
func (s *Session) runStep(ctx context.Context, step Step) StepResult {
	result := StepResult{Step: step}
	start := time.Now()

	retries := s.cfg.StepRetries
	if step.Retries != nil {
		retries = *step.Retries
	}
	timeout := step.Timeout
	if timeout == 0 {
		timeout = s.cfg.LocateTimeout()
	}

	op := func() error {
		result.Attempts++

		// Input without a selector types into whatever field has focus.
		if step.Action == ActionInput && step.Target.IsEmpty() {
			s.setState(StateInteracting)
			if err := s.gestures.EnterText(ctx, step.Text); err != nil {
				return permanentIfNotRetryable(err)
			}
			return nil
		}

		s.setState(StateLocating)
		res, err := s.finder.Locate(ctx, step.Target, timeout)
		if err != nil {
			return permanentIfNotRetryable(err)
		}
		result.Strategy = res.Strategy
		result.Point = res.Point

		s.setState(StateInteracting)
		if err := s.interact(ctx, step, res.Point); err != nil {
			return permanentIfNotRetryable(err)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.PollInterval()), uint64(retries)),
		ctx,
	)
	result.Err = backoff.Retry(op, policy)
	result.Duration = time.Since(start)
	return result
}

func (s *Session) interact(ctx context.Context, step Step, p core.Point) error {
	switch step.Action {
	case ActionTap, "":
		return s.gestures.Tap(ctx, p)
	case ActionLongPress:
		return s.gestures.LongPress(ctx, p, step.Duration)
	case ActionSwipe:
		to := core.Point{X: p.X + step.Delta.X, Y: p.Y + step.Delta.Y}
		return s.gestures.Swipe(ctx, p, to, step.Duration)
	case ActionInput:
		if err := s.gestures.Tap(ctx, p); err != nil {
			return err
		}
		return s.gestures.EnterText(ctx, step.Text)
	case ActionWait:
		// Locating the target was the whole point.
		return nil
	default:
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unknown action %q", step.Action))
	}
}

func permanentIfNotRetryable(err error) error {
	if core.CategoryOf(err).Retryable() {
		return err
	}
	return backoff.Permanent(err)
}
