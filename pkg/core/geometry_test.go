package core

import "testing"

func TestBoundsCenter(t *testing.T) {
	tests := []struct {
		name   string
		bounds Bounds
		want   Point
	}{
		{"simple", Bounds{X: 100, Y: 200, Width: 200, Height: 40}, Point{200, 220}},
		{"origin", Bounds{X: 0, Y: 0, Width: 10, Height: 10}, Point{5, 5}},
		{"odd size", Bounds{X: 0, Y: 0, Width: 5, Height: 3}, Point{2, 1}},
	}

	for _, tt := range tests {
		got := tt.bounds.Center()
		if got != tt.want {
			t.Errorf("%s: Center() = %v, want %v", tt.name, got, tt.want)
		}
		if !tt.bounds.Contains(got.X, got.Y) {
			t.Errorf("%s: center %v not inside bounds %v", tt.name, got, tt.bounds)
		}
	}
}

func TestBoundsContains(t *testing.T) {
	b := Bounds{X: 10, Y: 10, Width: 20, Height: 20}

	if !b.Contains(10, 10) {
		t.Error("top-left corner should be inside")
	}
	if b.Contains(30, 30) {
		t.Error("bottom-right edge is exclusive")
	}
	if b.Contains(5, 15) {
		t.Error("point left of bounds should be outside")
	}
}

func TestBoundsIntersect(t *testing.T) {
	a := Bounds{X: 0, Y: 0, Width: 100, Height: 100}
	b := Bounds{X: 50, Y: 50, Width: 100, Height: 100}

	got := a.Intersect(b)
	want := Bounds{X: 50, Y: 50, Width: 50, Height: 50}
	if got != want {
		t.Errorf("Intersect() = %v, want %v", got, want)
	}

	// Disjoint bounds produce an empty intersection.
	c := Bounds{X: 200, Y: 200, Width: 10, Height: 10}
	if !a.Intersect(c).Empty() {
		t.Error("disjoint bounds should not intersect")
	}
}

func TestBoundsIoU(t *testing.T) {
	a := Bounds{X: 0, Y: 0, Width: 100, Height: 100}

	if got := a.IoU(a); got != 1.0 {
		t.Errorf("IoU with self = %v, want 1.0", got)
	}

	b := Bounds{X: 100, Y: 0, Width: 100, Height: 100}
	if got := a.IoU(b); got != 0 {
		t.Errorf("IoU of touching bounds = %v, want 0", got)
	}

	// Half overlap: intersection 5000, union 15000.
	c := Bounds{X: 50, Y: 0, Width: 100, Height: 100}
	got := a.IoU(c)
	want := 5000.0 / 15000.0
	if got != want {
		t.Errorf("IoU = %v, want %v", got, want)
	}
}

func TestBoundsIn(t *testing.T) {
	outer := Bounds{X: 0, Y: 0, Width: 1080, Height: 1920}

	inner := Bounds{X: 100, Y: 200, Width: 200, Height: 40}
	if !inner.In(outer) {
		t.Error("expected inner bounds to be inside screen")
	}

	overflow := Bounds{X: 1000, Y: 1900, Width: 200, Height: 200}
	if overflow.In(outer) {
		t.Error("expected overflowing bounds to be outside screen")
	}
}

func TestBoundsString(t *testing.T) {
	b := Bounds{X: 100, Y: 200, Width: 200, Height: 40}
	if got := b.String(); got != "[100,200][300,240]" {
		t.Errorf("String() = %q", got)
	}
}
