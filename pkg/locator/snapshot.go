package locator

import (
	"context"
	"image"

	"github.com/uitap-dev/uitap/pkg/hierarchy"
)

// Snapshot is a point-in-time capture of device state. Either field may be
// nil when the corresponding capture is unavailable; strategies skip work
// they cannot do on a partial snapshot.
type Snapshot struct {
	Root       *hierarchy.Element
	Screenshot image.Image
}

// SnapshotSource produces fresh snapshots on demand. The locator captures a
// new snapshot for every polling iteration so strategies always see current
// state.
type SnapshotSource interface {
	CaptureSnapshot(ctx context.Context) (*Snapshot, error)
}
