// Package vision performs visual template matching against screenshots and
// manages the store of named reference images.
package vision

import (
	"image"
	"math"
	"sort"

	xdraw "golang.org/x/image/draw"

	"github.com/uitap-dev/uitap/pkg/core"
)

// SourceTag identifies candidates produced by template matching.
const SourceTag = "template"

// dedupIoU is the box-overlap fraction above which two candidates are
// considered duplicates of the same visual feature.
const dedupIoU = 0.5

// Template is a named reference image used for visual matching. Immutable
// once created; removed from the store only by explicit deletion.
type Template struct {
	Name      string
	Image     image.Image
	Source    core.Bounds // region it was captured from, zero when unknown
	Threshold float64     // per-template confidence override, 0 = use default
}

// EffectiveThreshold returns the template's own threshold when set,
// otherwise the given default.
func (t *Template) EffectiveThreshold(def float64) float64 {
	if t.Threshold > 0 {
		return t.Threshold
	}
	return def
}

// Match slides the template over the screenshot computing zero-mean
// normalized cross-correlation, keeps local maxima scoring at or above
// threshold, deduplicates overlapping boxes (IoU > 0.5, higher score wins)
// and returns the survivors sorted by score descending. Ties are broken
// top-then-left so the result order is deterministic.
func Match(screenshot image.Image, tpl *Template, threshold float64) []core.MatchCandidate {
	img := grayPlane(screenshot)
	t := grayPlane(tpl.Image)

	tw, th := t.w, t.h
	if tw == 0 || th == 0 || tw > img.w || th > img.h {
		return nil
	}

	scores := correlate(img, t)
	cols := img.w - tw + 1
	rows := img.h - th + 1

	var candidates []core.MatchCandidate
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			s := scores[y*cols+x]
			if s < threshold || !isLocalMax(scores, cols, rows, x, y) {
				continue
			}
			candidates = append(candidates, core.MatchCandidate{
				Bounds:     core.Bounds{X: x, Y: y, Width: tw, Height: th},
				Confidence: s,
				Source:     SourceTag,
			})
		}
	}

	sortCandidates(candidates)
	return dedupCandidates(candidates)
}

// sortCandidates orders by confidence descending, then top-then-left.
func sortCandidates(cs []core.MatchCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Confidence != cs[j].Confidence {
			return cs[i].Confidence > cs[j].Confidence
		}
		if cs[i].Bounds.Y != cs[j].Bounds.Y {
			return cs[i].Bounds.Y < cs[j].Bounds.Y
		}
		return cs[i].Bounds.X < cs[j].Bounds.X
	})
}

// dedupCandidates greedily keeps the best-scoring representative of each
// overlapping group. Input must already be sorted best-first.
func dedupCandidates(cs []core.MatchCandidate) []core.MatchCandidate {
	var kept []core.MatchCandidate
	for _, c := range cs {
		overlaps := false
		for _, k := range kept {
			if c.Bounds.IoU(k.Bounds) >= dedupIoU {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

// Capture crops the region out of the screenshot into a new template.
// The region must lie entirely within the screenshot bounds.
func Capture(screenshot image.Image, region core.Bounds, name string) (*Template, error) {
	b := screenshot.Bounds()
	screen := core.Bounds{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()}
	if region.Empty() || !region.In(screen) {
		return nil, core.ErrInvalidRegion.WithDetails(map[string]interface{}{
			"region": region.String(),
			"screen": screen.String(),
		})
	}

	dst := image.NewNRGBA(image.Rect(0, 0, region.Width, region.Height))
	src := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	xdraw.Copy(dst, image.Point{}, screenshot, src, xdraw.Src, nil)

	return &Template{Name: name, Image: dst, Source: region}, nil
}

// plane is a float64 luminance raster.
type plane struct {
	w, h int
	pix  []float64
}

func grayPlane(img image.Image) *plane {
	b := img.Bounds()
	p := &plane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma on 16-bit channels.
			p.pix[i] = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
			i++
		}
	}
	return p
}

// correlate computes the zero-mean NCC score surface of t against img.
// Result has (img.w-t.w+1) x (img.h-t.h+1) entries in row-major order.
// Windows or templates with no variance score zero.
func correlate(img, t *plane) []float64 {
	tw, th := t.w, t.h
	n := float64(tw * th)

	// Template statistics are fixed across the scan.
	var tSum float64
	for _, v := range t.pix {
		tSum += v
	}
	tMean := tSum / n
	tDelta := make([]float64, len(t.pix))
	var tVar float64
	for i, v := range t.pix {
		d := v - tMean
		tDelta[i] = d
		tVar += d * d
	}

	cols := img.w - tw + 1
	rows := img.h - th + 1
	scores := make([]float64, cols*rows)
	if tVar == 0 {
		return scores
	}
	tNorm := math.Sqrt(tVar)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var wSum float64
			for ty := 0; ty < th; ty++ {
				row := img.pix[(y+ty)*img.w+x:]
				for tx := 0; tx < tw; tx++ {
					wSum += row[tx]
				}
			}
			wMean := wSum / n

			var num, wVar float64
			for ty := 0; ty < th; ty++ {
				row := img.pix[(y+ty)*img.w+x:]
				trow := tDelta[ty*tw:]
				for tx := 0; tx < tw; tx++ {
					d := row[tx] - wMean
					num += d * trow[tx]
					wVar += d * d
				}
			}
			if wVar == 0 {
				continue
			}
			scores[y*cols+x] = num / (tNorm * math.Sqrt(wVar))
		}
	}
	return scores
}

// isLocalMax reports whether the score at (x, y) is not exceeded by any of
// its 8 neighbors.
func isLocalMax(scores []float64, cols, rows, x, y int) bool {
	s := scores[y*cols+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= cols || ny >= rows {
				continue
			}
			if scores[ny*cols+nx] > s {
				return false
			}
		}
	}
	return true
}
