package locator

import (
	"context"
	"time"

	"github.com/uitap-dev/uitap/pkg/config"
	"github.com/uitap-dev/uitap/pkg/core"
	"github.com/uitap-dev/uitap/pkg/logger"
	"github.com/uitap-dev/uitap/pkg/ocr"
	"github.com/uitap-dev/uitap/pkg/vision"
)

// Result is a successful location. Point is the coordinate to interact
// with; Strategy names the strategy that produced it.
type Result struct {
	Point     core.Point
	Strategy  string
	Candidate core.MatchCandidate
}

// Locator runs an ordered strategy list against fresh snapshots until a
// target is found or the timeout expires.
type Locator struct {
	source          SnapshotSource
	strategies      []Strategy
	pollInterval    time.Duration
	strictAmbiguity bool
}

// New builds a locator with the standard strategy order: hierarchy, then
// template matching, then OCR. Store and recognizer may be nil; the
// corresponding strategies then never apply.
func New(source SnapshotSource, store *vision.Store, recognizer ocr.Recognizer, cfg *config.Config) *Locator {
	return &Locator{
		source: source,
		strategies: []Strategy{
			hierarchyStrategy{},
			templateStrategy{store: store, threshold: cfg.ConfidenceThreshold},
			ocrStrategy{recognizer: recognizer},
		},
		pollInterval:    cfg.PollInterval(),
		strictAmbiguity: cfg.StrictAmbiguity,
	}
}

// Strategies returns the names of the configured strategies in attempt
// order.
func (l *Locator) Strategies() []string {
	names := make([]string, len(l.strategies))
	for i, s := range l.strategies {
		names[i] = s.Name()
	}
	return names
}

// Locate resolves criteria to a screen point. With timeout zero it performs
// exactly one capture-and-search pass and reports not-found on a miss; with
// a positive timeout it re-captures and retries every poll interval until
// the deadline. Cancelling ctx stops the wait between iterations.
//
// Capture failures, parse failures, configuration errors and (in strict
// mode) ambiguous matches are returned immediately without further polling.
func (l *Locator) Locate(ctx context.Context, c Criteria, timeout time.Duration) (*Result, error) {
	if c.IsEmpty() {
		return nil, core.ErrInvalidConfig.WithMessage("empty criteria")
	}
	deadline := time.Now().Add(timeout)
	var lastErr error
	for attempt := 1; ; attempt++ {
		snap, err := l.source.CaptureSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		res, err := l.attempt(ctx, c, snap)
		if err == nil {
			logger.Debug("locator").
				Str("criteria", c.Describe()).
				Str("strategy", res.Strategy).
				Int("attempt", attempt).
				Str("point", res.Point.String()).
				Msg("target located")
			return res, nil
		}
		if !core.CategoryOf(err).Retryable() {
			return nil, err
		}
		lastErr = err
		if timeout == 0 {
			return nil, err
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, core.ErrLocateTimeout.WithMessage("locate cancelled").WithCause(ctx.Err())
		case <-time.After(l.pollInterval):
		}
	}
	logger.Debug("locator").
		Str("criteria", c.Describe()).
		Dur("timeout", timeout).
		Msg("locate timed out")
	return nil, core.ErrLocateTimeout.WithDetails(map[string]any{
		"criteria": c.Describe(),
		"timeout":  timeout.String(),
	}).WithCause(lastErr)
}

// attempt runs a single pass over the strategy list. The first applicable
// strategy that yields at least one candidate decides the outcome; later
// strategies are not consulted.
func (l *Locator) attempt(ctx context.Context, c Criteria, snap *Snapshot) (*Result, error) {
	for _, s := range l.strategies {
		if !s.Applicable(c) {
			continue
		}
		candidates, err := s.Attempt(ctx, c, snap)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			continue
		}
		return l.resolve(c, s.Name(), candidates)
	}
	return nil, core.ErrNotFound.WithDetails(map[string]any{"criteria": c.Describe()})
}

// resolve picks one candidate from a strategy's matches. Candidates are
// ordered by screen position so an explicit index is stable across
// captures. Without an index, strict mode rejects multiple matches and
// permissive mode takes the first.
func (l *Locator) resolve(c Criteria, strategy string, candidates []core.MatchCandidate) (*Result, error) {
	sortTopLeft(candidates)
	picked := 0
	switch {
	case c.Index != nil:
		if *c.Index < 0 || *c.Index >= len(candidates) {
			return nil, core.ErrNotFound.WithMessage("match index out of range").WithDetails(map[string]any{
				"criteria": c.Describe(),
				"matches":  len(candidates),
			})
		}
		picked = *c.Index
	case len(candidates) > 1 && l.strictAmbiguity:
		return nil, core.ErrAmbiguousMatch.WithDetails(map[string]any{
			"criteria": c.Describe(),
			"strategy": strategy,
			"matches":  len(candidates),
		})
	}
	cand := candidates[picked]
	return &Result{Point: cand.Center(), Strategy: strategy, Candidate: cand}, nil
}
