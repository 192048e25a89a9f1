// Package viewer models the before/after comparison pane: a vertical reveal
// slider over two image layers that share one pan-and-zoom transform.
//
// Gesture values are immutable; every operation returns the next value. The
// package draws nothing. The TUI and HTTP front ends render from Layout.
package viewer

import "math"

// Mode is the active pointer interaction.
type Mode string

const (
	ModeNone    Mode = "none"
	ModeSliding Mode = "sliding"
	ModePanning Mode = "panning"
)

const (
	MinScale      = 1.0
	MaxScale      = 8.0
	ZoomFactor    = 1.5
	SnapThreshold = 1.1 // zooming out below this snaps back to MinScale
	DefaultSlider = 50.0
)

// Point is a position or offset in container coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds is the container rectangle in pointer coordinates.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{X: b.Left + b.Width/2, Y: b.Top + b.Height/2}
}

// Gesture is the comparison pane's interaction state.
type Gesture struct {
	Slider float64 `json:"sliderPosition"` // 0-100, percent of container width showing the original
	Scale  float64 `json:"scale"`
	Pan    Point   `json:"pan"`
	Mode   Mode    `json:"interactionMode"`

	// anchor is initialPan - initialPointer, captured when a pan starts.
	anchor Point
}

// DefaultGesture is the state shown for a freshly presented pair.
func DefaultGesture() Gesture {
	return Gesture{Slider: DefaultSlider, Scale: MinScale, Mode: ModeNone}
}

// BeginSliderDrag enters sliding mode and moves the slider under x.
func (g Gesture) BeginSliderDrag(b Bounds, x float64) Gesture {
	g.Mode = ModeSliding
	g.Slider = sliderAt(b, x, g.Slider)
	return g
}

// BeginPanDrag enters panning mode, anchoring the pan to the pointer.
func (g Gesture) BeginPanDrag(x, y float64) Gesture {
	g.Mode = ModePanning
	g.anchor = Point{X: g.Pan.X - x, Y: g.Pan.Y - y}
	return g
}

// BeginContainerDrag starts a drag anywhere in the container: a slider drag
// at unit scale, a pan otherwise.
func (g Gesture) BeginContainerDrag(b Bounds, x, y float64) Gesture {
	if g.Scale == MinScale {
		return g.BeginSliderDrag(b, x)
	}
	return g.BeginPanDrag(x, y)
}

// PointerMove updates the slider or pan for the active drag.
func (g Gesture) PointerMove(b Bounds, x, y float64) Gesture {
	switch g.Mode {
	case ModeSliding:
		g.Slider = sliderAt(b, x, g.Slider)
	case ModePanning:
		g.Pan = Point{X: x + g.anchor.X, Y: y + g.anchor.Y}
	}
	return g
}

// EndDrag leaves any drag mode.
func (g Gesture) EndDrag() Gesture {
	g.Mode = ModeNone
	g.anchor = Point{}
	return g
}

// ZoomIn multiplies the scale by ZoomFactor, up to MaxScale.
func (g Gesture) ZoomIn() Gesture {
	g.Scale = math.Min(g.Scale*ZoomFactor, MaxScale)
	return g
}

// ZoomOut divides the scale by ZoomFactor. Landing below SnapThreshold
// returns to unit scale with no pan.
func (g Gesture) ZoomOut() Gesture {
	next := g.Scale / ZoomFactor
	if next < SnapThreshold {
		g.Scale = MinScale
		g.Pan = Point{}
		if g.Mode == ModePanning {
			g.Mode = ModeNone
			g.anchor = Point{}
		}
		return g
	}
	g.Scale = math.Min(next, MaxScale)
	return g
}

// Wheel zooms in for a negative deltaY (wheel up) and out for a positive one.
func (g Gesture) Wheel(deltaY float64) Gesture {
	switch {
	case deltaY < 0:
		return g.ZoomIn()
	case deltaY > 0:
		return g.ZoomOut()
	}
	return g
}

// NudgeSlider moves the slider by delta percentage points.
func (g Gesture) NudgeSlider(delta float64) Gesture {
	g.Slider = clamp(g.Slider+delta, 0, 100)
	return g
}

// Reset restores unit scale, no pan, a centered slider and no active drag.
func (g Gesture) Reset() Gesture {
	return DefaultGesture()
}

// sliderAt returns the slider position for pointer x, or current when the
// container has no width.
func sliderAt(b Bounds, x, current float64) float64 {
	if b.Width <= 0 {
		return current
	}
	return clamp((x-b.Left)/b.Width*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
