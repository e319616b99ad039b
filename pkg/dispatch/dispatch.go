// Package dispatch turns located points into device gestures. It owns the
// post-gesture settle delay and the text entry strategy; the actual device
// calls go through an InputTransport.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/uitap-dev/uitap/pkg/config"
	"github.com/uitap-dev/uitap/pkg/core"
	"github.com/uitap-dev/uitap/pkg/logger"
)

// Android key event codes used by the dispatcher.
const (
	KeycodeBack  = 4
	KeycodeEnter = 66
	KeycodePaste = 279
)

// DefaultLongPressDuration holds the press long enough for Android to
// treat it as a long click rather than a tap.
const DefaultLongPressDuration = 800 * time.Millisecond

// InputTransport injects input events into the device. Implementations
// return an error when the device rejects or drops the call.
type InputTransport interface {
	Tap(ctx context.Context, p core.Point) error
	Swipe(ctx context.Context, from, to core.Point, duration time.Duration) error
	InputText(ctx context.Context, text string) error
	KeyEvent(ctx context.Context, code int) error
	SetClipboard(ctx context.Context, text string) error
}

// Dispatcher executes gestures and waits for the UI to settle after each
// one.
type Dispatcher struct {
	transport   InputTransport
	settleDelay time.Duration
}

// New builds a dispatcher using the configured settle delay.
func New(transport InputTransport, cfg *config.Config) *Dispatcher {
	return &Dispatcher{transport: transport, settleDelay: cfg.SettleDelay()}
}

// Tap taps the point.
func (d *Dispatcher) Tap(ctx context.Context, p core.Point) error {
	logger.Debug("dispatch").Str("point", p.String()).Msg("tap")
	if err := d.transport.Tap(ctx, p); err != nil {
		return transportErr(err)
	}
	return d.settle(ctx)
}

// LongPress holds the point for the given duration; zero means the
// default long press duration.
func (d *Dispatcher) LongPress(ctx context.Context, p core.Point, duration time.Duration) error {
	if duration <= 0 {
		duration = DefaultLongPressDuration
	}
	logger.Debug("dispatch").Str("point", p.String()).Dur("duration", duration).Msg("long press")
	if err := d.transport.Swipe(ctx, p, p, duration); err != nil {
		return transportErr(err)
	}
	return d.settle(ctx)
}

// Swipe drags from one point to another over the given duration.
func (d *Dispatcher) Swipe(ctx context.Context, from, to core.Point, duration time.Duration) error {
	logger.Debug("dispatch").
		Str("from", from.String()).
		Str("to", to.String()).
		Dur("duration", duration).
		Msg("swipe")
	if err := d.transport.Swipe(ctx, from, to, duration); err != nil {
		return transportErr(err)
	}
	return d.settle(ctx)
}

// EnterText types text into the focused field. ASCII goes through the key
// event path; anything else is set on the clipboard and pasted, which is
// the only reliable route for non-Latin input over adb.
func (d *Dispatcher) EnterText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if isASCII(text) {
		logger.Debug("dispatch").Int("chars", len(text)).Msg("input text")
		if err := d.transport.InputText(ctx, text); err != nil {
			return transportErr(err)
		}
		return d.settle(ctx)
	}

	logger.Debug("dispatch").Int("chars", len([]rune(text))).Msg("input text via clipboard")
	if err := d.transport.SetClipboard(ctx, text); err != nil {
		return transportErr(err)
	}
	if err := d.transport.KeyEvent(ctx, KeycodePaste); err != nil {
		return transportErr(err)
	}
	return d.settle(ctx)
}

// PressKey sends a bare key event.
func (d *Dispatcher) PressKey(ctx context.Context, code int) error {
	if err := d.transport.KeyEvent(ctx, code); err != nil {
		return transportErr(err)
	}
	return d.settle(ctx)
}

// settle waits out the configured delay so animations triggered by the
// gesture finish before the next snapshot. Cancelling ctx ends the wait.
func (d *Dispatcher) settle(ctx context.Context) error {
	if d.settleDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.settleDelay):
		return nil
	}
}

func transportErr(err error) error {
	if errors.Is(err, core.ErrTransport) {
		return err
	}
	return core.ErrTransport.WithCause(err)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
