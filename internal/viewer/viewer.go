package viewer

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Pair identifies the two images being compared.
type Pair struct {
	OriginalID string `json:"originalId"`
	EditedID   string `json:"editedId"`
}

// Empty reports whether no pair is presented.
func (p Pair) Empty() bool {
	return p.OriginalID == "" && p.EditedID == ""
}

// Viewer owns the gesture state for one comparison pane. It is not safe for
// concurrent use; callers serialize access.
type Viewer struct {
	gesture Gesture
	bounds  Bounds
	pair    Pair
}

// New creates a Viewer for a container of the given bounds.
func New(b Bounds) *Viewer {
	return &Viewer{gesture: DefaultGesture(), bounds: b}
}

// Present shows p. When the pair identity changes, gesture state is reset
// before the new pair is shown. It reports whether a reset happened.
func (v *Viewer) Present(p Pair) bool {
	if p == v.pair {
		return false
	}
	log.Debug().
		Str("original_id", p.OriginalID).
		Str("edited_id", p.EditedID).
		Msg("Comparison pair changed; resetting gesture")
	v.pair = p
	v.gesture = DefaultGesture()
	return true
}

// Pair returns the presented pair.
func (v *Viewer) Pair() Pair { return v.pair }

// Gesture returns the current gesture state.
func (v *Viewer) Gesture() Gesture { return v.gesture }

// Bounds returns the container bounds.
func (v *Viewer) Bounds() Bounds { return v.bounds }

// SetBounds updates the container bounds, e.g. after a terminal resize.
func (v *Viewer) SetBounds(b Bounds) { v.bounds = b }

func (v *Viewer) BeginSliderDrag(x float64) {
	v.gesture = v.gesture.BeginSliderDrag(v.bounds, x)
}

func (v *Viewer) BeginContainerDrag(x, y float64) {
	v.gesture = v.gesture.BeginContainerDrag(v.bounds, x, y)
}

func (v *Viewer) PointerMove(x, y float64) {
	v.gesture = v.gesture.PointerMove(v.bounds, x, y)
}

func (v *Viewer) EndDrag()                  { v.gesture = v.gesture.EndDrag() }
func (v *Viewer) ZoomIn()                   { v.gesture = v.gesture.ZoomIn() }
func (v *Viewer) ZoomOut()                  { v.gesture = v.gesture.ZoomOut() }
func (v *Viewer) Wheel(deltaY float64)      { v.gesture = v.gesture.Wheel(deltaY) }
func (v *Viewer) NudgeSlider(delta float64) { v.gesture = v.gesture.NudgeSlider(delta) }
func (v *Viewer) Reset()                    { v.gesture = v.gesture.Reset() }

// Layout returns the shared transform for the current gesture and bounds.
func (v *Viewer) Layout() Layout {
	return NewLayout(v.bounds, v.gesture)
}

// EventType names a gesture event sent by a remote front end.
type EventType string

const (
	EventSliderDown    EventType = "slider_down"
	EventContainerDown EventType = "container_down"
	EventMove          EventType = "move"
	EventUp            EventType = "up"
	EventZoomIn        EventType = "zoom_in"
	EventZoomOut       EventType = "zoom_out"
	EventWheel         EventType = "wheel"
	EventNudge         EventType = "nudge"
	EventReset         EventType = "reset"
	EventResize        EventType = "resize"
)

// Event is one serialized gesture input.
type Event struct {
	Type   EventType `json:"type"`
	X      float64   `json:"x,omitempty"`
	Y      float64   `json:"y,omitempty"`
	Delta  float64   `json:"delta,omitempty"`
	Bounds *Bounds   `json:"bounds,omitempty"`
}

// Apply dispatches e to the matching operation.
func (v *Viewer) Apply(e Event) error {
	switch e.Type {
	case EventSliderDown:
		v.BeginSliderDrag(e.X)
	case EventContainerDown:
		v.BeginContainerDrag(e.X, e.Y)
	case EventMove:
		v.PointerMove(e.X, e.Y)
	case EventUp:
		v.EndDrag()
	case EventZoomIn:
		v.ZoomIn()
	case EventZoomOut:
		v.ZoomOut()
	case EventWheel:
		v.Wheel(e.Delta)
	case EventNudge:
		v.NudgeSlider(e.Delta)
	case EventReset:
		v.Reset()
	case EventResize:
		if e.Bounds == nil {
			return fmt.Errorf("resize event requires bounds")
		}
		v.SetBounds(*e.Bounds)
	default:
		return fmt.Errorf("unknown gesture event %q", e.Type)
	}
	return nil
}
