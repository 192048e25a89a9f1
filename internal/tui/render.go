package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"

	"github.com/fpang/photo-critic/internal/viewer"
)

// maxPreviewSide caps the long side of a cached preview. Zooming past what
// this resolution can show just enlarges pixels.
const maxPreviewSide = 1024

// scalePreview downsamples img so its long side is at most maxPreviewSide.
func scalePreview(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxPreviewSide && h <= maxPreviewSide {
		return img
	}
	if w >= h {
		h = h * maxPreviewSide / w
		w = maxPreviewSide
	} else {
		w = w * maxPreviewSide / h
		h = maxPreviewSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(1, w), max(1, h)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// pane describes the comparison area in terminal cells. Each cell holds two
// vertically stacked pixels drawn with a half block.
type pane struct {
	left, top  int // cell offset on screen
	cols, rows int
}

// bounds returns the pane in half-block pixel units, the coordinate space the
// viewer works in.
func (p pane) bounds() viewer.Bounds {
	return viewer.Bounds{
		Left:   float64(p.left),
		Top:    float64(p.top * 2),
		Width:  float64(p.cols),
		Height: float64(p.rows * 2),
	}
}

// contains reports whether screen cell (x, y) lies in the pane.
func (p pane) contains(x, y int) bool {
	return x >= p.left && x < p.left+p.cols && y >= p.top && y < p.top+p.rows
}

// pointer converts a screen cell to viewer coordinates at the cell center.
func pointer(x, y int) (float64, float64) {
	return float64(x) + 0.5, float64(y*2) + 1
}

var (
	backgroundColor = color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}
	boundaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD166")).Bold(true)
)

// renderComparison draws original and edited into p using layout. When edited
// is nil only the original is drawn and no boundary is shown.
func renderComparison(p pane, layout viewer.Layout, original, edited image.Image) string {
	if p.cols <= 0 || p.rows <= 0 {
		return ""
	}
	boundaryCol := -1
	if edited != nil {
		boundaryCol = int(layout.Boundary) - p.left
		if boundaryCol >= p.cols {
			boundaryCol = p.cols - 1
		}
	}

	var sb strings.Builder
	for r := 0; r < p.rows; r++ {
		for c := 0; c < p.cols; c++ {
			if c == boundaryCol {
				sb.WriteString(boundaryStyle.Render("│"))
				continue
			}
			x := float64(p.left+c) + 0.5
			topY := float64((p.top+r)*2) + 0.5
			top := sample(layout, original, edited, x, topY)
			bottom := sample(layout, original, edited, x, topY+1)
			sb.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(hex(top))).
				Background(lipgloss.Color(hex(bottom))).
				Render("▀"))
		}
		if r < p.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// sample returns the color visible at container point (x, y). Both layers go
// through the same layout mapping; the slider only picks the layer.
func sample(layout viewer.Layout, original, edited image.Image, x, y float64) color.Color {
	img := original
	if edited != nil && !layout.ShowsOriginal(x) {
		img = edited
	}
	if img == nil {
		return backgroundColor
	}
	u, v, ok := layout.ToContent(x, y)
	if !ok {
		return backgroundColor
	}
	return containAt(img, layout.Bounds.Width, layout.Bounds.Height, u, v)
}

// containAt fits img inside a w×h frame preserving aspect ratio and returns
// the pixel under normalized frame point (u, v).
func containAt(img image.Image, w, h, u, v float64) color.Color {
	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw == 0 || ih == 0 {
		return backgroundColor
	}
	scale := min(w/iw, h/ih)
	offX := (w - iw*scale) / 2
	offY := (h - ih*scale) / 2

	px := (u*w - offX) / scale
	py := (v*h - offY) / scale
	if px < 0 || py < 0 || px >= iw || py >= ih {
		return backgroundColor
	}
	return img.At(b.Min.X+int(px), b.Min.Y+int(py))
}

func hex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
