package viewer

// Layout is the geometry both image layers are drawn with. Each layer is
// scaled about the container center and then translated by Pan, so a
// container point p shows content point c + (p - c - Pan) / Scale.
type Layout struct {
	Bounds   Bounds  `json:"bounds"`
	Scale    float64 `json:"scale"`
	Pan      Point   `json:"pan"`
	Origin   Point   `json:"origin"`   // transform origin, the container center
	Boundary float64 `json:"boundary"` // reveal boundary x in container coordinates
}

// NewLayout computes the layout for g in container b.
func NewLayout(b Bounds, g Gesture) Layout {
	return Layout{
		Bounds:   b,
		Scale:    g.Scale,
		Pan:      g.Pan,
		Origin:   b.Center(),
		Boundary: b.Left + b.Width*g.Slider/100,
	}
}

// ShowsOriginal reports whether container column x shows the original layer.
func (l Layout) ShowsOriginal(x float64) bool {
	return x < l.Boundary
}

// ToContent maps container point (x, y) to normalized content coordinates,
// where (0,0) is the top-left and (1,1) the bottom-right of the unzoomed
// layer. The same mapping applies to both layers. ok is false outside the
// content.
func (l Layout) ToContent(x, y float64) (u, v float64, ok bool) {
	if l.Bounds.Width <= 0 || l.Bounds.Height <= 0 || l.Scale <= 0 {
		return 0, 0, false
	}
	cx := l.Origin.X + (x-l.Origin.X-l.Pan.X)/l.Scale
	cy := l.Origin.Y + (y-l.Origin.Y-l.Pan.Y)/l.Scale
	u = (cx - l.Bounds.Left) / l.Bounds.Width
	v = (cy - l.Bounds.Top) / l.Bounds.Height
	ok = u >= 0 && u < 1 && v >= 0 && v < 1
	return u, v, ok
}
