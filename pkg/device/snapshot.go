package device

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	"github.com/uitap-dev/uitap/pkg/core"
	"github.com/uitap-dev/uitap/pkg/hierarchy"
	"github.com/uitap-dev/uitap/pkg/locator"
	"github.com/uitap-dev/uitap/pkg/logger"
)

// DumpHierarchy returns the current accessibility tree as raw XML.
// `uiautomator dump /dev/tty` streams the dump over exec-out, followed by
// a status line that has to be stripped.
func (d *AndroidDevice) DumpHierarchy(ctx context.Context) (string, error) {
	out, err := d.adbRaw(ctx, "exec-out", "uiautomator", "dump", "/dev/tty")
	if err != nil {
		return "", err
	}
	return trimDumpOutput(string(out)), nil
}

// trimDumpOutput drops everything after the closing hierarchy tag, i.e.
// uiautomator's "UI hierchary dumped to" status line.
func trimDumpOutput(raw string) string {
	if i := strings.LastIndex(raw, "</hierarchy>"); i >= 0 {
		return raw[:i+len("</hierarchy>")]
	}
	return raw
}

// Screenshot captures the screen as a decoded image.
func (d *AndroidDevice) Screenshot(ctx context.Context) (image.Image, error) {
	out, err := d.adbRaw(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, core.ErrTransport.WithMessage("screencap returned invalid PNG").WithCause(err)
	}
	return img, nil
}

// CaptureSnapshot grabs the hierarchy and the screenshot in one pass. A
// failed screenshot degrades to a hierarchy-only snapshot; a failed
// hierarchy dump is fatal.
func (d *AndroidDevice) CaptureSnapshot(ctx context.Context) (*locator.Snapshot, error) {
	raw, err := d.DumpHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	root, err := hierarchy.Parse(raw)
	if err != nil {
		return nil, err
	}

	snap := &locator.Snapshot{Root: root}
	img, err := d.Screenshot(ctx)
	if err != nil {
		logger.Warn("device").Str("serial", d.serial).Err(err).Msg("screenshot failed, hierarchy-only snapshot")
	} else {
		snap.Screenshot = img
	}
	return snap, nil
}
