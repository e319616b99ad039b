package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/uitap-dev/uitap/pkg/config"
	"github.com/uitap-dev/uitap/pkg/core"
)

// recordingTransport logs every injected event as a formatted string.
type recordingTransport struct {
	ops []string
	err error
}

func (r *recordingTransport) record(format string, args ...any) error {
	if r.err != nil {
		return r.err
	}
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
	return nil
}

func (r *recordingTransport) Tap(_ context.Context, p core.Point) error {
	return r.record("tap %s", p)
}

func (r *recordingTransport) Swipe(_ context.Context, from, to core.Point, d time.Duration) error {
	return r.record("swipe %s %s %s", from, to, d)
}

func (r *recordingTransport) InputText(_ context.Context, text string) error {
	return r.record("text %q", text)
}

func (r *recordingTransport) KeyEvent(_ context.Context, code int) error {
	return r.record("key %d", code)
}

func (r *recordingTransport) SetClipboard(_ context.Context, text string) error {
	return r.record("clipboard %q", text)
}

func newTestDispatcher(transport InputTransport, settleMs int) *Dispatcher {
	cfg := config.Default()
	cfg.SettleDelayMs = settleMs
	return New(transport, cfg)
}

func TestTap(t *testing.T) {
	tr := &recordingTransport{}
	d := newTestDispatcher(tr, 0)

	if err := d.Tap(context.Background(), core.Point{X: 200, Y: 220}); err != nil {
		t.Fatalf("Tap() error = %v", err)
	}
	want := []string{"tap (200, 220)"}
	assertOps(t, tr.ops, want)
}

func TestLongPressDefaults(t *testing.T) {
	tr := &recordingTransport{}
	d := newTestDispatcher(tr, 0)

	p := core.Point{X: 10, Y: 20}
	if err := d.LongPress(context.Background(), p, 0); err != nil {
		t.Fatalf("LongPress() error = %v", err)
	}
	want := []string{fmt.Sprintf("swipe (10, 20) (10, 20) %s", DefaultLongPressDuration)}
	assertOps(t, tr.ops, want)
}

func TestSwipe(t *testing.T) {
	tr := &recordingTransport{}
	d := newTestDispatcher(tr, 0)

	from := core.Point{X: 540, Y: 1500}
	to := core.Point{X: 540, Y: 500}
	if err := d.Swipe(context.Background(), from, to, 300*time.Millisecond); err != nil {
		t.Fatalf("Swipe() error = %v", err)
	}
	assertOps(t, tr.ops, []string{"swipe (540, 1500) (540, 500) 300ms"})
}

func TestEnterTextASCII(t *testing.T) {
	tr := &recordingTransport{}
	d := newTestDispatcher(tr, 0)

	if err := d.EnterText(context.Background(), "hello world"); err != nil {
		t.Fatalf("EnterText() error = %v", err)
	}
	assertOps(t, tr.ops, []string{`text "hello world"`})
}

func TestEnterTextNonASCIIUsesClipboard(t *testing.T) {
	tr := &recordingTransport{}
	d := newTestDispatcher(tr, 0)

	if err := d.EnterText(context.Background(), "你好"); err != nil {
		t.Fatalf("EnterText() error = %v", err)
	}
	want := []string{
		`clipboard "你好"`,
		fmt.Sprintf("key %d", KeycodePaste),
	}
	assertOps(t, tr.ops, want)
}

func TestEnterTextEmptyIsNoop(t *testing.T) {
	tr := &recordingTransport{}
	d := newTestDispatcher(tr, 0)

	if err := d.EnterText(context.Background(), ""); err != nil {
		t.Fatalf("EnterText() error = %v", err)
	}
	if len(tr.ops) != 0 {
		t.Errorf("ops = %v, want none", tr.ops)
	}
}

func TestTransportErrorWrapped(t *testing.T) {
	tr := &recordingTransport{err: errors.New("device offline")}
	d := newTestDispatcher(tr, 0)

	err := d.Tap(context.Background(), core.Point{X: 1, Y: 1})
	if !errors.Is(err, core.ErrTransport) {
		t.Fatalf("Tap() error = %v, want ErrTransport", err)
	}
}

func TestTransportErrorNotDoubleWrapped(t *testing.T) {
	underlying := core.ErrTransport.WithMessage("shell input failed")
	tr := &recordingTransport{err: underlying}
	d := newTestDispatcher(tr, 0)

	err := d.Tap(context.Background(), core.Point{X: 1, Y: 1})
	if err != underlying { //nolint:errorlint -- identity check on purpose
		t.Fatalf("Tap() error = %v, want the original transport error", err)
	}
}

func TestSettleDelayApplied(t *testing.T) {
	tr := &recordingTransport{}
	d := newTestDispatcher(tr, 50)

	start := time.Now()
	if err := d.Tap(context.Background(), core.Point{X: 1, Y: 1}); err != nil {
		t.Fatalf("Tap() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Tap() returned after %v, want at least the settle delay", elapsed)
	}
}

func TestSettleDelayCancellable(t *testing.T) {
	tr := &recordingTransport{}
	d := newTestDispatcher(tr, 5000)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := d.Tap(ctx, core.Point{X: 1, Y: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Tap() error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Tap() blocked %v after cancel", elapsed)
	}
	// The gesture itself still went out before the settle wait.
	assertOps(t, tr.ops, []string{"tap (1, 1)"})
}

func assertOps(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ops[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
