package tui

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/critique"
	"github.com/fpang/photo-critic/internal/imageasset"
	"github.com/fpang/photo-critic/internal/metrics"
	"github.com/fpang/photo-critic/internal/viewer"
	"github.com/fpang/photo-critic/internal/workflow"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type stubAnalyzer struct{ analysis *critique.PhotoAnalysis }

func (s stubAnalyzer) AnalyzePhoto(context.Context, []byte, string) (*critique.PhotoAnalysis, error) {
	return s.analysis, nil
}

type stubEditor struct{ data []byte }

func (s stubEditor) EditPhoto(context.Context, []byte, string, *critique.PhotoAnalysis, aspect.Ratio) ([]byte, string, error) {
	return s.data, "image/png", nil
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func newTestApp(t *testing.T) (*App, *workflow.Controller) {
	t.Helper()
	analysis := &critique.PhotoAnalysis{
		Rating:         6,
		OverallComment: "Nice light",
		SuggestedEdits: []critique.SuggestedEdit{{Edit: "Crop"}, {Edit: "Warm"}, {Edit: "Sharpen"}},
	}
	ctrl := workflow.New(stubAnalyzer{analysis}, stubEditor{solidPNG(t, 8, 8, color.White)}, workflow.WithRunner(workflow.Inline))

	src := solidPNG(t, 8, 8, color.Black)
	loader := func(path string) (*imageasset.Asset, error) {
		if path == "missing.png" {
			return nil, errors.New("no such file")
		}
		return imageasset.FromBytes(src, "image/png", filepath.Base(path))
	}
	app := NewApp(ctrl, WithLoader(loader), WithSaveDir(t.TempDir()))
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return app, ctrl
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typePath(app *App, path string) {
	app.Update(key("o"))
	for _, r := range path {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	app.Update(key("enter"))
	app.Update(stateChangedMsg{})
}

func TestOpenAnalyzeEditFlow(t *testing.T) {
	app, ctrl := newTestApp(t)

	typePath(app, "photo.png")
	if ctrl.State().Source == nil {
		t.Fatal("expected image to be selected")
	}

	app.Update(key("a"))
	app.Update(stateChangedMsg{})
	if got := app.state.Phase; got != workflow.PhaseReady {
		t.Fatalf("Phase = %s, want ready", got)
	}
	if !strings.Contains(app.View(), "Rating: 6.0/10") {
		t.Error("view should show the critique")
	}

	app.Update(key("e"))
	app.Update(stateChangedMsg{})
	if got := app.state.Phase; got != workflow.PhaseEditReady {
		t.Fatalf("Phase = %s, want edit_ready", got)
	}
	if app.view.Pair().EditedID == "" {
		t.Error("viewer should present the edited image")
	}

	app.Update(key("s"))
	if app.err != nil {
		t.Fatalf("save error: %v", app.err)
	}
	saved := filepath.Join(app.saveDir, app.state.Edited.FileName(""))
	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !bytes.Equal(data, app.state.Edited.Bytes()) {
		t.Error("saved bytes should match the edited image verbatim")
	}

	edited := app.state.Edited
	app.Update(key("r"))
	app.Update(stateChangedMsg{})
	if app.state.Source != edited {
		t.Error("rating the edit should make it the source")
	}
}

func TestEditWithoutAnalysisShowsError(t *testing.T) {
	app, _ := newTestApp(t)
	typePath(app, "photo.png")

	app.Update(key("e"))
	var perr *workflow.PreconditionError
	if !errors.As(app.err, &perr) {
		t.Errorf("err = %v, want PreconditionError", app.err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	app, ctrl := newTestApp(t)
	typePath(app, "missing.png")
	if app.err == nil {
		t.Error("expected load error")
	}
	if ctrl.State().Source != nil {
		t.Error("failed load should not select anything")
	}
}

func TestPromptEscCancels(t *testing.T) {
	app, _ := newTestApp(t)
	app.Update(key("o"))
	if !app.prompt {
		t.Fatal("o should open the path prompt")
	}
	app.Update(key("esc"))
	if app.prompt {
		t.Error("esc should close the prompt")
	}
}

func TestGestureKeys(t *testing.T) {
	app, _ := newTestApp(t)
	typePath(app, "photo.png")

	app.Update(key("+"))
	if got := app.view.Gesture().Scale; got != 1.5 {
		t.Errorf("Scale = %v, want 1.5", got)
	}
	app.Update(key("right"))
	if got := app.view.Gesture().Slider; got != 55 {
		t.Errorf("Slider = %v, want 55", got)
	}
	app.Update(key("0"))
	if app.view.Gesture() != viewer.DefaultGesture() {
		t.Errorf("Gesture() = %+v, want defaults", app.view.Gesture())
	}
}

func TestMouseDragMovesSlider(t *testing.T) {
	app, _ := newTestApp(t)
	typePath(app, "photo.png")

	row := app.pane.top + 1
	app.Update(tea.MouseMsg{X: 0, Y: row, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if got := app.view.Gesture().Mode; got != viewer.ModeSliding {
		t.Fatalf("Mode = %s, want sliding", got)
	}
	app.Update(tea.MouseMsg{X: app.pane.cols + 20, Y: row, Action: tea.MouseActionMotion})
	if got := app.view.Gesture().Slider; got != 100 {
		t.Errorf("Slider = %v, want 100", got)
	}
	app.Update(tea.MouseMsg{X: 0, Y: row, Action: tea.MouseActionRelease})
	if got := app.view.Gesture().Mode; got != viewer.ModeNone {
		t.Errorf("Mode = %s, want none", got)
	}

	app.Update(tea.MouseMsg{X: 1, Y: row, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if got := app.view.Gesture().Scale; got != 1.5 {
		t.Errorf("Scale after wheel = %v, want 1.5", got)
	}
}

func TestRenderComparison(t *testing.T) {
	p := pane{cols: 6, rows: 3}
	g := viewer.DefaultGesture()
	layout := viewer.NewLayout(p.bounds(), g)

	black := image.NewRGBA(image.Rect(0, 0, 4, 4))
	out := renderComparison(p, layout, black, nil)
	if lines := strings.Split(out, "\n"); len(lines) != 3 {
		t.Errorf("rendered %d rows, want 3", len(lines))
	}
	if strings.Contains(out, "│") {
		t.Error("single image should have no boundary")
	}

	out = renderComparison(p, layout, black, black)
	if !strings.Contains(out, "│") {
		t.Error("comparison should draw the boundary")
	}
}

func TestContainAt(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{B: 255, A: 255})

	// A 2:1 image in a square frame is letterboxed top and bottom.
	if got := containAt(img, 10, 10, 0.5, 0.1); got != backgroundColor {
		t.Errorf("letterbox = %v, want background", got)
	}
	if r, _, _, _ := containAt(img, 10, 10, 0.25, 0.5).RGBA(); r>>8 != 255 {
		t.Error("left half should sample the red pixel")
	}
	if _, _, b, _ := containAt(img, 10, 10, 0.75, 0.5).RGBA(); b>>8 != 255 {
		t.Error("right half should sample the blue pixel")
	}
}

func TestScalePreview(t *testing.T) {
	big := image.NewRGBA(image.Rect(0, 0, 2048, 1024))
	got := scalePreview(big).Bounds()
	if got.Dx() != 1024 || got.Dy() != 512 {
		t.Errorf("scalePreview() = %dx%d, want 1024x512", got.Dx(), got.Dy())
	}

	small := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if scalePreview(small) != image.Image(small) {
		t.Error("small images should be returned as is")
	}
}
