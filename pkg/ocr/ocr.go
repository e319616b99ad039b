// Package ocr defines the pluggable text-recognition capability. Text
// recognition is optional: when no engine is configured, strategies that
// depend on it are skipped rather than failed.
package ocr

import (
	"context"
	"image"
	"sort"

	"github.com/uitap-dev/uitap/pkg/core"
)

// SourceTag identifies candidates produced by text recognition.
const SourceTag = "ocr"

// Word is one recognized text fragment with its location.
type Word struct {
	Text       string
	Bounds     core.Bounds
	Confidence float64 // in [0,1]
}

// Recognizer extracts text and bounding regions from a screenshot. Word
// order is whatever the underlying engine produces; callers needing
// positional order use SortByPosition.
type Recognizer interface {
	Recognize(ctx context.Context, screenshot image.Image) ([]Word, error)
}

// SortByPosition orders words top-then-left, in place.
func SortByPosition(words []Word) {
	sort.SliceStable(words, func(i, j int) bool {
		if words[i].Bounds.Y != words[j].Bounds.Y {
			return words[i].Bounds.Y < words[j].Bounds.Y
		}
		return words[i].Bounds.X < words[j].Bounds.X
	})
}

// Disabled is the no-engine placeholder. Every call reports
// core.ErrOCRUnavailable so callers can skip the strategy gracefully.
type Disabled struct{}

// Recognize always fails with core.ErrOCRUnavailable.
func (Disabled) Recognize(ctx context.Context, screenshot image.Image) ([]Word, error) {
	return nil, core.ErrOCRUnavailable
}
