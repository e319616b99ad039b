package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/uitap-dev/uitap/pkg/config"
	"github.com/uitap-dev/uitap/pkg/core"
	"github.com/uitap-dev/uitap/pkg/locator"
)

// fakeFinder replays a scripted error sequence; nil means success. Once the
// script runs out every call succeeds.
type fakeFinder struct {
	script []error
	calls  int
	point  core.Point
}

func (f *fakeFinder) Locate(_ context.Context, c locator.Criteria, _ time.Duration) (*locator.Result, error) {
	f.calls++
	if f.calls <= len(f.script) {
		if err := f.script[f.calls-1]; err != nil {
			return nil, err
		}
	}
	return &locator.Result{Point: f.point, Strategy: "hierarchy"}, nil
}

type fakeGestures struct {
	ops []string
	err error
}

func (g *fakeGestures) record(format string, args ...any) error {
	if g.err != nil {
		return g.err
	}
	g.ops = append(g.ops, fmt.Sprintf(format, args...))
	return nil
}

func (g *fakeGestures) Tap(_ context.Context, p core.Point) error {
	return g.record("tap %s", p)
}

func (g *fakeGestures) LongPress(_ context.Context, p core.Point, d time.Duration) error {
	return g.record("longPress %s %s", p, d)
}

func (g *fakeGestures) Swipe(_ context.Context, from, to core.Point, d time.Duration) error {
	return g.record("swipe %s %s %s", from, to, d)
}

func (g *fakeGestures) EnterText(_ context.Context, text string) error {
	return g.record("text %q", text)
}

type fakeApp struct {
	launches  []string
	stops     []string
	launchErr error
}

func (a *fakeApp) LaunchApp(_ context.Context, pkg, activity string) error {
	if a.launchErr != nil {
		return a.launchErr
	}
	a.launches = append(a.launches, pkg+"/"+activity)
	return nil
}

func (a *fakeApp) StopApp(_ context.Context, pkg string) error {
	a.stops = append(a.stops, pkg)
	return nil
}

func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.PollIntervalMs = 1
	cfg.LocateTimeoutMs = 1
	return cfg
}

func TestRunHappyPath(t *testing.T) {
	finder := &fakeFinder{point: core.Point{X: 200, Y: 220}}
	gestures := &fakeGestures{}
	app := &fakeApp{}
	s := New(finder, gestures, app, fastConfig())

	steps := []Step{
		{Name: "open search", Action: ActionTap, Target: locator.Criteria{ResourceID: "com.app:id/search_box"}},
		{Name: "type query", Action: ActionInput, Target: locator.Criteria{ResourceID: "com.app:id/search_box"}, Text: "alice"},
	}
	results, err := s.Run(context.Background(), App{Package: "com.app", Activity: ".Main"}, steps)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if s.State() != StateCompleted {
		t.Errorf("State() = %v, want completed", s.State())
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("results[%d].Err = %v", i, r.Err)
		}
		if r.Attempts != 1 {
			t.Errorf("results[%d].Attempts = %d, want 1", i, r.Attempts)
		}
		if r.Strategy != "hierarchy" {
			t.Errorf("results[%d].Strategy = %q", i, r.Strategy)
		}
	}
	wantOps := []string{"tap (200, 220)", "tap (200, 220)", `text "alice"`}
	if len(gestures.ops) != len(wantOps) {
		t.Fatalf("ops = %v, want %v", gestures.ops, wantOps)
	}
	for i := range wantOps {
		if gestures.ops[i] != wantOps[i] {
			t.Errorf("ops[%d] = %q, want %q", i, gestures.ops[i], wantOps[i])
		}
	}
	if len(app.launches) != 1 || app.launches[0] != "com.app/.Main" {
		t.Errorf("launches = %v", app.launches)
	}
	if len(app.stops) != 1 || app.stops[0] != "com.app" {
		t.Errorf("stops = %v", app.stops)
	}
}

func TestRunRetriesRetryableFailures(t *testing.T) {
	finder := &fakeFinder{script: []error{core.ErrLocateTimeout, core.ErrLocateTimeout, nil}}
	s := New(finder, &fakeGestures{}, nil, fastConfig())

	results, err := s.Run(context.Background(), App{}, []Step{
		{Name: "wait for list", Action: ActionWait, Target: locator.Criteria{Text: "Chats"}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if results[0].Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", results[0].Attempts)
	}
	if s.State() != StateCompleted {
		t.Errorf("State() = %v, want completed", s.State())
	}
}

func TestRunRetriesExhausted(t *testing.T) {
	finder := &fakeFinder{script: []error{
		core.ErrLocateTimeout, core.ErrLocateTimeout, core.ErrLocateTimeout, core.ErrLocateTimeout,
	}}
	cfg := fastConfig()
	cfg.StepRetries = 1
	s := New(finder, &fakeGestures{}, nil, cfg)

	results, err := s.Run(context.Background(), App{}, []Step{
		{Name: "doomed", Action: ActionTap, Target: locator.Criteria{Text: "Ghost"}},
	})
	if !errors.Is(err, core.ErrLocateTimeout) {
		t.Fatalf("Run() error = %v, want ErrLocateTimeout", err)
	}
	if got := results[0].Attempts; got != 2 {
		t.Errorf("Attempts = %d, want 2 (one try plus one retry)", got)
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %v, want failed", s.State())
	}
}

func TestRunNonRetryableAbortsImmediately(t *testing.T) {
	finder := &fakeFinder{script: []error{core.ErrAmbiguousMatch, core.ErrAmbiguousMatch}}
	s := New(finder, &fakeGestures{}, nil, fastConfig())

	results, err := s.Run(context.Background(), App{}, []Step{
		{Name: "ambiguous", Action: ActionTap, Target: locator.Criteria{Text: "OK"}},
	})
	if !errors.Is(err, core.ErrAmbiguousMatch) {
		t.Fatalf("Run() error = %v, want ErrAmbiguousMatch", err)
	}
	if results[0].Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", results[0].Attempts)
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %v, want failed", s.State())
	}
}

func TestRunPerStepRetryOverride(t *testing.T) {
	finder := &fakeFinder{script: []error{
		core.ErrLocateTimeout, core.ErrLocateTimeout, core.ErrLocateTimeout, core.ErrLocateTimeout,
		core.ErrLocateTimeout, core.ErrLocateTimeout,
	}}
	cfg := fastConfig()
	cfg.StepRetries = 0
	s := New(finder, &fakeGestures{}, nil, cfg)

	four := 4
	results, err := s.Run(context.Background(), App{}, []Step{
		{Name: "stubborn", Action: ActionTap, Target: locator.Criteria{Text: "X"}, Retries: &four},
	})
	if !errors.Is(err, core.ErrLocateTimeout) {
		t.Fatalf("Run() error = %v", err)
	}
	if results[0].Attempts != 5 {
		t.Errorf("Attempts = %d, want 5", results[0].Attempts)
	}
}

func TestRunSingleUse(t *testing.T) {
	s := New(&fakeFinder{}, &fakeGestures{}, nil, fastConfig())

	if _, err := s.Run(context.Background(), App{}, nil); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	_, err := s.Run(context.Background(), App{}, nil)
	if !errors.Is(err, ErrSessionConsumed) {
		t.Fatalf("second Run() error = %v, want ErrSessionConsumed", err)
	}
	if s.State() != StateCompleted {
		t.Errorf("State() = %v, want completed after rejected rerun", s.State())
	}
}

func TestRunLaunchFailure(t *testing.T) {
	finder := &fakeFinder{}
	app := &fakeApp{launchErr: errors.New("activity not found")}
	s := New(finder, &fakeGestures{}, app, fastConfig())

	_, err := s.Run(context.Background(), App{Package: "com.app"}, []Step{
		{Action: ActionTap, Target: locator.Criteria{Text: "X"}},
	})
	if !errors.Is(err, core.ErrTransport) {
		t.Fatalf("Run() error = %v, want ErrTransport", err)
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %v, want failed", s.State())
	}
	if finder.calls != 0 {
		t.Errorf("finder.calls = %d, want 0 after launch failure", finder.calls)
	}
}

func TestRunWaitPerformsNoGesture(t *testing.T) {
	gestures := &fakeGestures{}
	s := New(&fakeFinder{}, gestures, nil, fastConfig())

	_, err := s.Run(context.Background(), App{}, []Step{
		{Name: "visible", Action: ActionWait, Target: locator.Criteria{Text: "Chats"}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(gestures.ops) != 0 {
		t.Errorf("ops = %v, want none for wait", gestures.ops)
	}
}

func TestRunSwipeDelta(t *testing.T) {
	gestures := &fakeGestures{}
	finder := &fakeFinder{point: core.Point{X: 540, Y: 1500}}
	s := New(finder, gestures, nil, fastConfig())

	_, err := s.Run(context.Background(), App{}, []Step{
		{
			Action:   ActionSwipe,
			Target:   locator.Criteria{ResourceID: "com.app:id/list"},
			Delta:    core.Point{X: 0, Y: -1000},
			Duration: 300 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "swipe (540, 1500) (540, 500) 300ms"
	if len(gestures.ops) != 1 || gestures.ops[0] != want {
		t.Errorf("ops = %v, want [%q]", gestures.ops, want)
	}
}

func TestRunUnknownAction(t *testing.T) {
	s := New(&fakeFinder{}, &fakeGestures{}, nil, fastConfig())

	_, err := s.Run(context.Background(), App{}, []Step{
		{Action: Action("teleport"), Target: locator.Criteria{Text: "X"}},
	})
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("Run() error = %v, want ErrInvalidConfig", err)
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %v, want failed", s.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateLaunching, "launching"},
		{StateLocating, "locating"},
		{StateInteracting, "interacting"},
		{StateCompleted, "completed"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
	if !StateCompleted.Terminal() || !StateFailed.Terminal() || StateLocating.Terminal() {
		t.Error("Terminal() misclassified a state")
	}
}

func TestSessionIDsUnique(t *testing.T) {
	a := New(&fakeFinder{}, &fakeGestures{}, nil, fastConfig())
	b := New(&fakeFinder{}, &fakeGestures{}, nil, fastConfig())
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("IDs = %q, %q; want distinct non-empty", a.ID(), b.ID())
	}
}
