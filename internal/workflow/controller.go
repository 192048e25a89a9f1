package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/critique"
	"github.com/fpang/photo-critic/internal/imageasset"
	"github.com/fpang/photo-critic/internal/metrics"
)

// Analyzer produces a validated critique for an image.
type Analyzer interface {
	AnalyzePhoto(ctx context.Context, data []byte, mimeType string) (*critique.PhotoAnalysis, error)
}

// Editor applies an analysis' suggested edits and returns the new image bytes
// and MIME type.
type Editor interface {
	EditPhoto(ctx context.Context, data []byte, mimeType string, analysis *critique.PhotoAnalysis, ratio aspect.Ratio) ([]byte, string, error)
}

// Runner executes a request. The default starts a goroutine.
type Runner func(task func())

// Inline runs requests on the caller's goroutine, so request methods return
// only after the result has been applied.
func Inline(task func()) { task() }

func goroutine(task func()) { go task() }

// Controller owns the workflow state for one session. It is safe for
// concurrent use.
type Controller struct {
	analyzer Analyzer
	editor   Editor
	ctx      context.Context
	run      Runner

	mu         sync.Mutex
	state      State
	generation uint64
	listeners  []func(State)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithRunner replaces the request runner.
func WithRunner(r Runner) Option {
	return func(c *Controller) { c.run = r }
}

// WithContext sets the context passed to remote calls.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}

// New creates a Controller in the Idle state.
func New(analyzer Analyzer, editor Editor, opts ...Option) *Controller {
	c := &Controller{
		analyzer: analyzer,
		editor:   editor,
		ctx:      context.Background(),
		run:      goroutine,
		state:    State{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the tag of the current state. It advances on every
// accepted event.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// OnChange registers fn to receive every new state. fn runs on the goroutine
// that caused the change and must not call back into the Controller
// synchronously.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Select holds img as the source and resets to Idle, abandoning any request
// in flight.
func (c *Controller) Select(img *imageasset.Asset) error {
	if _, _, err := c.apply(SelectImage{Image: img}, 0); err != nil {
		return err
	}
	log.Info().
		Str("image_id", img.ID()).
		Str("name", img.Name()).
		Int("width", img.Width()).
		Int("height", img.Height()).
		Msg("Image selected")
	return nil
}

// Analyze requests a critique of the held image.
func (c *Controller) Analyze() error {
	s, tag, err := c.apply(RequestAnalysis{}, 0)
	if err != nil {
		return err
	}
	c.dispatchAnalysis(s.Source, tag, "analyze")
	return nil
}

// Edit requests the held analysis' edits be applied to the source image.
func (c *Controller) Edit() error {
	s, tag, err := c.apply(RequestEdit{}, 0)
	if err != nil {
		return err
	}
	c.dispatchEdit(s.Source, s.Analysis, s.Ratio, tag)
	return nil
}

// Reanalyze promotes the edited image to source and requests its critique.
func (c *Controller) Reanalyze() error {
	s, tag, err := c.apply(RequestReanalysis{}, 0)
	if err != nil {
		return err
	}
	c.dispatchAnalysis(s.Source, tag, "reanalyze")
	return nil
}

// errStale is returned by apply when the request tag no longer matches.
var errStale = errors.New("stale result")

// apply runs e through Next under the lock and notifies listeners on success.
// A non-zero tag must equal the current generation or the event is dropped
// with errStale. It returns the new state and its generation.
func (c *Controller) apply(e Event, tag uint64) (State, uint64, error) {
	c.mu.Lock()
	if tag != 0 && tag != c.generation {
		current := c.generation
		c.mu.Unlock()
		log.Debug().
			Uint64("request_generation", tag).
			Uint64("current_generation", current).
			Msg("Discarding stale result")
		return State{}, 0, errStale
	}
	next, err := Next(c.state, e)
	if err != nil {
		phase := c.state.Phase
		c.mu.Unlock()
		log.Debug().Err(err).Str("phase", string(phase)).Msg("Workflow event rejected")
		return next, 0, err
	}
	prev := c.state.Phase
	c.state = next
	c.generation++
	gen := c.generation
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()

	log.Debug().
		Str("from", string(prev)).
		Str("to", string(next.Phase)).
		Uint64("generation", gen).
		Msg("Workflow transition")
	for _, fn := range listeners {
		fn(next)
	}
	return next, gen, nil
}

func (c *Controller) dispatchAnalysis(src *imageasset.Asset, tag uint64, op string) {
	c.run(func() {
		start := time.Now()
		log.Info().Str("op", op).Str("image_id", src.ID()).Msg("Requesting critique")

		analysis, err := c.analyzer.AnalyzePhoto(c.ctx, src.Bytes(), src.MIMEType())
		if err == nil && analysis == nil {
			err = errors.New("analyzer returned no analysis")
		}

		var ev Event = AnalysisSucceeded{Analysis: analysis}
		if err != nil {
			ev = AnalysisFailed{Err: err}
		}
		_, _, applyErr := c.apply(ev, tag)
		if err != nil {
			failureEvent(applyErr).Err(err).Str("op", op).Dur("duration", time.Since(start)).Msg("Critique failed")
		}
		recordRequest(op, "AnalysisLatencyMs", start, err, applyErr == nil)
	})
}

func (c *Controller) dispatchEdit(src *imageasset.Asset, analysis *critique.PhotoAnalysis, ratio aspect.Ratio, tag uint64) {
	c.run(func() {
		start := time.Now()
		log.Info().
			Str("image_id", src.ID()).
			Str("aspect_ratio", string(ratio)).
			Msg("Requesting edit")

		data, mimeType, err := c.editor.EditPhoto(c.ctx, src.Bytes(), src.MIMEType(), analysis, ratio)
		var edited *imageasset.Asset
		if err == nil {
			edited, err = imageasset.FromBytes(data, mimeType, src.FileName("edited-"))
			if err != nil {
				err = fmt.Errorf("edited image is unusable: %w", err)
			}
		}

		var ev Event = EditSucceeded{Image: edited}
		if err != nil {
			ev = EditFailed{Err: err}
		}
		_, _, applyErr := c.apply(ev, tag)
		if err != nil {
			failureEvent(applyErr).Err(err).Dur("duration", time.Since(start)).Msg("Edit failed")
		}
		recordRequest("edit", "EditLatencyMs", start, err, applyErr == nil)
	})
}

// failureEvent logs failed requests at error level, or at debug level when the
// request was superseded before it finished.
func failureEvent(applyErr error) *zerolog.Event {
	if errors.Is(applyErr, errStale) {
		return log.Debug()
	}
	return log.Error()
}

func recordRequest(op, latencyMetric string, start time.Time, err error, applied bool) {
	result := "success"
	switch {
	case !applied:
		result = "stale"
	case err != nil:
		kind, _ := classify(err)
		result = string(kind)
	}
	metrics.New(metrics.Namespace).
		Dimension("Operation", op).
		Dimension("Result", result).
		Metric(latencyMetric, float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Count("RequestResult").
		Flush()
}
