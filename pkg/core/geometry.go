// Package core holds the shared data types and error taxonomy used across
// the locator, matcher and dispatcher packages.
package core

import "fmt"

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String returns "(x, y)".
func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Bounds represents element position and size in screen coordinates.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the bounds.
func (b Bounds) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Contains checks if a point is within the bounds.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Empty reports whether the bounds have zero area.
func (b Bounds) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Area returns the area in square pixels.
func (b Bounds) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width * b.Height
}

// In reports whether b lies entirely within outer.
func (b Bounds) In(outer Bounds) bool {
	return b.X >= outer.X &&
		b.Y >= outer.Y &&
		b.X+b.Width <= outer.X+outer.Width &&
		b.Y+b.Height <= outer.Y+outer.Height
}

// Intersect returns the intersection of two bounds. The result is empty
// when they do not overlap.
func (b Bounds) Intersect(o Bounds) Bounds {
	left := max(b.X, o.X)
	top := max(b.Y, o.Y)
	right := min(b.X+b.Width, o.X+o.Width)
	bottom := min(b.Y+b.Height, o.Y+o.Height)
	if right <= left || bottom <= top {
		return Bounds{}
	}
	return Bounds{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// IoU returns the intersection-over-union ratio of two bounds in [0,1].
func (b Bounds) IoU(o Bounds) float64 {
	inter := b.Intersect(o).Area()
	if inter == 0 {
		return 0
	}
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// String returns the Android bounds notation "[l,t][r,b]".
func (b Bounds) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
