// Package tui is the interactive terminal front end: a comparison pane drawn
// with half blocks beside the critique, driven by the workflow controller.
//
// Bubbletea follows The Elm Architecture: Update turns messages into a new
// model, View renders it. Workflow results arrive from controller goroutines
// and are forwarded to the program as stateChangedMsg.
package tui

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-critic/internal/imageasset"
	"github.com/fpang/photo-critic/internal/viewer"
	"github.com/fpang/photo-critic/internal/workflow"
)

const (
	nudgeStep    = 5.0
	headerRows   = 1
	footerRows   = 2
	minPaneCols  = 10
	panelMinCols = 36
)

// Picker returns a path chosen by the user.
type Picker func() (string, error)

// Loader turns a path into an image asset.
type Loader func(path string) (*imageasset.Asset, error)

// AppOption customizes App construction.
type AppOption func(*App)

// WithPicker sets the native file picker used by the "p" key.
func WithPicker(p Picker) AppOption {
	return func(a *App) { a.pick = p }
}

// WithLoader replaces imageasset.Load, for tests.
func WithLoader(l Loader) AppOption {
	return func(a *App) {
		if l != nil {
			a.load = l
		}
	}
}

// WithSaveDir sets where "s" writes the edited image.
func WithSaveDir(dir string) AppOption {
	return func(a *App) { a.saveDir = dir }
}

// WithInitialPath loads path when the program starts.
func WithInitialPath(path string) AppOption {
	return func(a *App) { a.initialPath = path }
}

type stateChangedMsg struct{}

type previewMsg struct {
	id  string
	img image.Image
	err error
}

type pickedMsg struct {
	path string
	err  error
}

// App is the bubbletea model.
type App struct {
	ctrl    *workflow.Controller
	view    *viewer.Viewer
	changes chan struct{}

	pick        Picker
	load        Loader
	saveDir     string
	initialPath string

	state    workflow.State
	previews map[string]image.Image
	spinner  spinner.Model
	input    textinput.Model
	prompt   bool

	width, height int
	pane          pane
	statusMsg     string
	err           error
}

// NewApp creates the model around ctrl. Register it before any request is
// issued so no state change is missed.
func NewApp(ctrl *workflow.Controller, opts ...AppOption) *App {
	ti := textinput.New()
	ti.Placeholder = "path/to/photo.jpg"
	ti.CharLimit = 4096

	a := &App{
		ctrl:     ctrl,
		view:     viewer.New(viewer.Bounds{}),
		changes:  make(chan struct{}, 1),
		load:     imageasset.Load,
		saveDir:  ".",
		state:    ctrl.State(),
		previews: make(map[string]image.Image),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:    ti,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	ctrl.OnChange(func(workflow.State) {
		select {
		case a.changes <- struct{}{}:
		default:
		}
	})
	return a
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.waitForChange(), a.spinner.Tick}
	if a.initialPath != "" {
		path := a.initialPath
		cmds = append(cmds, func() tea.Msg { return pickedMsg{path: path} })
	}
	return tea.Batch(cmds...)
}

func (a *App) waitForChange() tea.Cmd {
	ch := a.changes
	return func() tea.Msg {
		<-ch
		return stateChangedMsg{}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case stateChangedMsg:
		return a, tea.Batch(a.syncState(), a.waitForChange())

	case previewMsg:
		if msg.err != nil {
			log.Warn().Err(msg.err).Str("image_id", msg.id).Msg("Preview unavailable")
			a.err = msg.err
			return a, nil
		}
		a.previews[msg.id] = msg.img
		return a, nil

	case pickedMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, zenity.ErrCanceled) {
				a.err = msg.err
			}
			return a, nil
		}
		return a, a.open(msg.path)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		a.handleMouse(msg)
		return a, nil

	case tea.KeyMsg:
		if a.prompt {
			return a.updatePrompt(msg)
		}
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.err = nil
	switch msg.String() {
	case "ctrl+c", "q":
		return a, tea.Quit
	case "o":
		a.prompt = true
		a.input.SetValue("")
		return a, a.input.Focus()
	case "p":
		if a.pick == nil {
			a.statusMsg = "No file picker available; press o to type a path"
			return a, nil
		}
		pick := a.pick
		return a, func() tea.Msg {
			path, err := pick()
			return pickedMsg{path: path, err: err}
		}
	case "a":
		a.report(a.ctrl.Analyze(), "Analyzing…")
	case "e":
		a.report(a.ctrl.Edit(), "Applying improvements…")
	case "r":
		a.report(a.ctrl.Reanalyze(), "Rating the edit…")
	case "s":
		a.save()
	case "+", "=":
		a.view.ZoomIn()
	case "-", "_":
		a.view.ZoomOut()
	case "0":
		a.view.Reset()
	case "left", "h":
		a.view.NudgeSlider(-nudgeStep)
	case "right", "l":
		a.view.NudgeSlider(nudgeStep)
	}
	return a, nil
}

func (a *App) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.prompt = false
		a.input.Blur()
		return a, nil
	case "enter":
		a.prompt = false
		a.input.Blur()
		return a, a.open(strings.TrimSpace(a.input.Value()))
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleMouse(msg tea.MouseMsg) {
	if a.view.Pair().Empty() {
		return
	}
	x, y := pointer(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		a.view.Wheel(-1)
	case msg.Button == tea.MouseButtonWheelDown:
		a.view.Wheel(1)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if a.pane.contains(msg.X, msg.Y) {
			a.view.BeginContainerDrag(x, y)
		}
	case msg.Action == tea.MouseActionMotion:
		a.view.PointerMove(x, y)
	case msg.Action == tea.MouseActionRelease:
		a.view.EndDrag()
	}
}

// open loads path and selects it, abandoning any request in flight.
func (a *App) open(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	asset, err := a.load(path)
	if err != nil {
		a.err = err
		return nil
	}
	if err := a.ctrl.Select(asset); err != nil {
		a.err = err
		return nil
	}
	a.statusMsg = fmt.Sprintf("Loaded %s (%dx%d)", asset.Name(), asset.Width(), asset.Height())
	return nil
}

func (a *App) report(err error, status string) {
	if err != nil {
		a.err = err
		return
	}
	a.statusMsg = status
}

// syncState pulls the controller snapshot, presents the current pair to the
// viewer and queues previews for images not yet decoded.
func (a *App) syncState() tea.Cmd {
	a.state = a.ctrl.State()

	pair := viewer.Pair{}
	if a.state.Source != nil {
		pair.OriginalID = a.state.Source.ID()
	}
	if a.state.Edited != nil {
		pair.EditedID = a.state.Edited.ID()
	}
	a.view.Present(pair)

	switch a.state.Phase {
	case workflow.PhaseReady:
		a.statusMsg = "Critique ready. Press e to apply the improvements."
	case workflow.PhaseEditReady:
		a.statusMsg = "Edit ready. Drag to compare, r to rate it, s to save."
	case workflow.PhaseAnalysisError, workflow.PhaseEditError:
		a.statusMsg = "Request failed. Retry or open another image."
	}

	var cmds []tea.Cmd
	for _, asset := range []*imageasset.Asset{a.state.Source, a.state.Edited} {
		if asset == nil {
			continue
		}
		if _, ok := a.previews[asset.ID()]; ok {
			continue
		}
		cmds = append(cmds, loadPreview(asset))
	}
	return tea.Batch(cmds...)
}

func loadPreview(asset *imageasset.Asset) tea.Cmd {
	return func() tea.Msg {
		img, err := asset.Decode()
		if err != nil {
			return previewMsg{id: asset.ID(), err: err}
		}
		return previewMsg{id: asset.ID(), img: scalePreview(img)}
	}
}

// save writes the edited image bytes verbatim.
func (a *App) save() {
	edited := a.state.Edited
	if edited == nil {
		a.err = errors.New("nothing to save: no edited image yet")
		return
	}
	path := filepath.Join(a.saveDir, edited.FileName(""))
	if err := os.WriteFile(path, edited.Bytes(), 0o644); err != nil {
		a.err = fmt.Errorf("failed to save edited image: %w", err)
		return
	}
	log.Info().Str("path", path).Int("bytes", edited.Size()).Msg("Edited image saved")
	a.statusMsg = "Saved " + path
}

func (a *App) resize(width, height int) {
	a.width, a.height = width, height
	cols := width - panelMinCols - 1
	if cols < minPaneCols {
		cols = max(minPaneCols, width/2)
	}
	rows := max(1, height-headerRows-footerRows)
	a.pane = pane{left: 0, top: headerRows, cols: cols, rows: rows}
	a.view.SetBounds(a.pane.bounds())
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	phaseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	panelStyle  = lipgloss.NewStyle().PaddingLeft(1)
)

// View renders the current state to a string.
func (a *App) View() string {
	header := titleStyle.Render("◐ photo-critic") + "  " + phaseStyle.Render(a.phaseLabel())

	var original, edited image.Image
	if a.state.Source != nil {
		original = a.previews[a.state.Source.ID()]
	}
	if a.state.Edited != nil {
		edited = a.previews[a.state.Edited.ID()]
	}
	comparison := renderComparison(a.pane, a.view.Layout(), original, edited)
	panel := panelStyle.Width(max(panelMinCols, a.width-a.pane.cols-1)).Render(a.renderPanel())
	body := lipgloss.JoinHorizontal(lipgloss.Top, comparison, panel)

	footer := mutedStyle.Render(a.statusMsg)
	if a.err != nil {
		footer = errorStyle.Render(a.err.Error())
	}
	if a.prompt {
		footer = "Open: " + a.input.View()
	}
	keys := mutedStyle.Render("o open · p pick · a analyze · e improve · r rate · s save · +/- zoom · 0 reset · ←/→ slide · q quit")
	return strings.Join([]string{header, body, footer, keys}, "\n")
}

func (a *App) phaseLabel() string {
	label := strings.ReplaceAll(string(a.state.Phase), "_", " ")
	if a.state.Pending() {
		return a.spinner.View() + " " + label
	}
	return label
}

func (a *App) renderPanel() string {
	s := a.state
	if s.Source == nil {
		return mutedStyle.Render("No image selected.\nPress o to type a path or p to pick a file.")
	}

	var lines []string
	lines = append(lines, headerStyle.Render(s.Source.Name()),
		mutedStyle.Render(fmt.Sprintf("%dx%d · %s", s.Source.Width(), s.Source.Height(), s.Source.MIMEType())), "")

	if s.Failed() {
		lines = append(lines, errorStyle.Render(s.Message), "")
	}
	if s.Analysis != nil {
		lines = append(lines, s.Analysis.Summary())
		for _, w := range s.Analysis.Warnings() {
			lines = append(lines, mutedStyle.Render("! "+w))
		}
	}
	if s.Ratio != "" {
		lines = append(lines, "", mutedStyle.Render("Edit aspect ratio: "+string(s.Ratio)))
	}
	if s.Edited != nil {
		g := a.view.Gesture()
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Slider %.0f%% · zoom %.2fx · %s", g.Slider, g.Scale, g.Mode)))
	}
	return strings.Join(lines, "\n")
}
