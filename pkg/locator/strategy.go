package locator

import (
	"context"
	"sort"
	"strings"

	"github.com/uitap-dev/uitap/pkg/core"
	"github.com/uitap-dev/uitap/pkg/hierarchy"
	"github.com/uitap-dev/uitap/pkg/ocr"
	"github.com/uitap-dev/uitap/pkg/vision"
)

// Strategy is one way of turning criteria plus a snapshot into match
// candidates. Strategies are stateless with respect to snapshots; the
// locator runs them in declaration order and stops at the first one that
// yields candidates.
type Strategy interface {
	Name() string
	// Applicable reports whether the criteria carry the fields this
	// strategy operates on.
	Applicable(c Criteria) bool
	// Attempt searches the snapshot. Returning zero candidates with a nil
	// error means "nothing found here, try the next strategy".
	Attempt(ctx context.Context, c Criteria, snap *Snapshot) ([]core.MatchCandidate, error)
}

// hierarchyStrategy matches against the parsed view hierarchy by
// resource-id, class name and text.
type hierarchyStrategy struct{}

func (hierarchyStrategy) Name() string { return "hierarchy" }

func (hierarchyStrategy) Applicable(c Criteria) bool {
	return c.ResourceID != "" || c.Text != "" || c.ClassName != ""
}

func (hierarchyStrategy) Attempt(_ context.Context, c Criteria, snap *Snapshot) ([]core.MatchCandidate, error) {
	if snap.Root == nil {
		return nil, nil
	}
	var preds []func(*hierarchy.Element) bool
	if c.ResourceID != "" {
		preds = append(preds, hierarchy.ByResourceID(c.ResourceID))
	}
	if c.ClassName != "" {
		preds = append(preds, hierarchy.ByClass(c.ClassName))
	}
	if c.Text != "" {
		if c.ExactText {
			preds = append(preds, hierarchy.ByText(c.Text))
		} else {
			preds = append(preds, hierarchy.ByTextContains(c.Text))
		}
	}
	matches := hierarchy.Find(snap.Root, hierarchy.And(preds...))
	candidates := make([]core.MatchCandidate, 0, len(matches))
	for _, el := range matches {
		target := el
		if !el.Clickable {
			// A label often sits inside (or next to) the node that
			// actually receives taps; prefer the interactive node.
			if d := hierarchy.FindClickableDescendant(el); d != nil {
				target = d
			}
		}
		if target.Bounds.Empty() {
			// Zero-area bounds come from malformed dump attributes; their
			// center is not a point inside any element.
			continue
		}
		candidates = append(candidates, core.MatchCandidate{
			Bounds:     target.Bounds,
			Confidence: 1.0,
			Source:     "hierarchy",
		})
	}
	return candidates, nil
}

// templateStrategy matches a stored template image against the screenshot.
type templateStrategy struct {
	store     *vision.Store
	threshold float64
}

func (templateStrategy) Name() string { return vision.SourceTag }

func (s templateStrategy) Applicable(c Criteria) bool {
	return c.Template != "" && s.store != nil
}

func (s templateStrategy) Attempt(_ context.Context, c Criteria, snap *Snapshot) ([]core.MatchCandidate, error) {
	if snap.Screenshot == nil {
		return nil, nil
	}
	tpl, ok := s.store.Get(c.Template)
	if !ok {
		return nil, core.ErrInvalidConfig.WithMessage("unknown template").WithDetails(map[string]any{
			"template": c.Template,
		})
	}
	return vision.Match(snap.Screenshot, tpl, tpl.EffectiveThreshold(s.threshold)), nil
}

// ocrStrategy matches criteria text against recognized on-screen words. It
// only runs when the hierarchy strategy came up empty, which the locator's
// strategy ordering guarantees.
type ocrStrategy struct {
	recognizer ocr.Recognizer
}

func (ocrStrategy) Name() string { return ocr.SourceTag }

func (s ocrStrategy) Applicable(c Criteria) bool {
	return c.Text != "" && s.recognizer != nil
}

func (s ocrStrategy) Attempt(ctx context.Context, c Criteria, snap *Snapshot) ([]core.MatchCandidate, error) {
	if snap.Screenshot == nil {
		return nil, nil
	}
	words, err := s.recognizer.Recognize(ctx, snap.Screenshot)
	if err != nil {
		if core.CategoryOf(err) == core.ErrCategoryConfig {
			// Recognition disabled; not an error, just no candidates.
			return nil, nil
		}
		return nil, err
	}
	ocr.SortByPosition(words)
	var candidates []core.MatchCandidate
	for _, w := range words {
		if w.Bounds.Empty() || !matchText(w.Text, c.Text, c.ExactText) {
			continue
		}
		candidates = append(candidates, core.MatchCandidate{
			Bounds:     w.Bounds,
			Confidence: w.Confidence,
			Source:     ocr.SourceTag,
		})
	}
	return candidates, nil
}

func matchText(have, want string, exact bool) bool {
	if exact {
		return have == want
	}
	return strings.Contains(have, want)
}

// sortTopLeft orders candidates by reading position so that index selection
// is deterministic across captures.
func sortTopLeft(cands []core.MatchCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Bounds.Y != cands[j].Bounds.Y {
			return cands[i].Bounds.Y < cands[j].Bounds.Y
		}
		return cands[i].Bounds.X < cands[j].Bounds.X
	})
}
