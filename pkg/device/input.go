package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uitap-dev/uitap/pkg/core"
)

// ClipperPackage is the helper app used for clipboard writes; plain
// `input text` cannot carry non-ASCII characters over adb.
const ClipperPackage = "ca.zgrs.clipper"

// Tap taps the point via `input tap`.
func (d *AndroidDevice) Tap(ctx context.Context, p core.Point) error {
	_, err := d.Shell(ctx, fmt.Sprintf("input tap %d %d", p.X, p.Y))
	return err
}

// Swipe drags between two points. A zero or negative duration lets the
// device pick its default.
func (d *AndroidDevice) Swipe(ctx context.Context, from, to core.Point, duration time.Duration) error {
	cmd := fmt.Sprintf("input swipe %d %d %d %d", from.X, from.Y, to.X, to.Y)
	if duration > 0 {
		cmd = fmt.Sprintf("%s %d", cmd, duration.Milliseconds())
	}
	_, err := d.Shell(ctx, cmd)
	return err
}

// InputText types ASCII text into the focused field via `input text`.
func (d *AndroidDevice) InputText(ctx context.Context, text string) error {
	_, err := d.Shell(ctx, "input text "+escapeInputText(text))
	return err
}

// KeyEvent sends a key event code.
func (d *AndroidDevice) KeyEvent(ctx context.Context, code int) error {
	_, err := d.Shell(ctx, fmt.Sprintf("input keyevent %d", code))
	return err
}

// SetClipboard puts text on the device clipboard through the clipper
// broadcast.
func (d *AndroidDevice) SetClipboard(ctx context.Context, text string) error {
	quoted := "'" + strings.ReplaceAll(text, "'", `'\''`) + "'"
	cmd := fmt.Sprintf("am broadcast -a clipper.set -e text %s", quoted)
	out, err := d.Shell(ctx, cmd)
	if err != nil {
		return err
	}
	if !strings.Contains(out, "Broadcast completed") {
		return core.ErrTransport.WithMessage("clipboard broadcast not delivered; is clipper installed?")
	}
	return nil
}

// LaunchApp starts the app. With an explicit activity it uses `am start`;
// otherwise it fires the launcher intent through monkey.
func (d *AndroidDevice) LaunchApp(ctx context.Context, pkg, activity string) error {
	var cmd string
	if activity != "" {
		cmd = fmt.Sprintf("am start -W -n %s/%s", pkg, activity)
	} else {
		cmd = fmt.Sprintf("monkey -p %s -c android.intent.category.LAUNCHER 1", pkg)
	}
	out, err := d.Shell(ctx, cmd)
	if err != nil {
		return err
	}
	if strings.Contains(out, "Error") || strings.Contains(out, "does not exist") {
		return core.ErrTransport.WithMessage("app launch failed").WithDetails(map[string]any{
			"package": pkg,
			"output":  strings.TrimSpace(out),
		})
	}
	return nil
}

// StopApp force-stops the app.
func (d *AndroidDevice) StopApp(ctx context.Context, pkg string) error {
	_, err := d.Shell(ctx, "am force-stop "+pkg)
	return err
}

// escapeInputText prepares text for `input text`: spaces become %s and
// shell metacharacters get backslash-escaped. Literal % must be escaped
// too or `input text` expands %s sequences back into spaces.
func escapeInputText(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case ' ':
			b.WriteString("%s")
		case '\'', '"', '`', '\\', '$', '&', '|', ';', '(', ')', '<', '>', '*', '?', '~', '#', '%':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
