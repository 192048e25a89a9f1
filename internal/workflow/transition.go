package workflow

import (
	"errors"

	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/critique"
	"github.com/fpang/photo-critic/internal/imageasset"
)

// Event is an input to Next.
type Event interface {
	action() string
}

// SelectImage replaces the held image. Accepted in every state; anything in
// flight is abandoned.
type SelectImage struct{ Image *imageasset.Asset }

// RequestAnalysis asks for a critique of the held image.
type RequestAnalysis struct{}

// AnalysisSucceeded resolves an analysis or re-analysis request.
type AnalysisSucceeded struct{ Analysis *critique.PhotoAnalysis }

// AnalysisFailed resolves an analysis or re-analysis request with an error.
type AnalysisFailed struct{ Err error }

// RequestEdit asks for the critique's edits to be applied.
type RequestEdit struct{}

// EditSucceeded resolves an edit request with the edited image.
type EditSucceeded struct{ Image *imageasset.Asset }

// EditFailed resolves an edit request with an error.
type EditFailed struct{ Err error }

// RequestReanalysis asks for a critique of the edited image, which becomes
// the new source.
type RequestReanalysis struct{}

func (SelectImage) action() string       { return "select image" }
func (RequestAnalysis) action() string   { return "analyze" }
func (AnalysisSucceeded) action() string { return "complete analysis" }
func (AnalysisFailed) action() string    { return "fail analysis" }
func (RequestEdit) action() string       { return "edit" }
func (EditSucceeded) action() string     { return "complete edit" }
func (EditFailed) action() string        { return "fail edit" }
func (RequestReanalysis) action() string { return "rate edit" }

// Next returns the state that follows s on e. A rejected event returns s
// unchanged together with a *PreconditionError.
func Next(s State, e Event) (State, error) {
	switch ev := e.(type) {
	case SelectImage:
		if ev.Image == nil {
			return s, precondition(ev.action(), s.Phase, ErrNoImage)
		}
		return State{Phase: PhaseIdle, Source: ev.Image}, nil

	case RequestAnalysis:
		if s.Pending() {
			return s, precondition(ev.action(), s.Phase, ErrRequestInFlight)
		}
		switch s.Phase {
		case PhaseIdle, PhaseReady, PhaseAnalysisError:
		default:
			return s, precondition(ev.action(), s.Phase, errors.New("use rate edit to critique the edited image"))
		}
		if s.Source == nil {
			return s, precondition(ev.action(), s.Phase, ErrNoImage)
		}
		return State{Phase: PhaseAnalyzing, Source: s.Source}, nil

	case AnalysisSucceeded:
		if s.Phase != PhaseAnalyzing && s.Phase != PhaseReanalyzingEdited {
			return s, precondition(ev.action(), s.Phase, ErrNotPending)
		}
		if ev.Analysis == nil {
			return s, precondition(ev.action(), s.Phase, ErrNoAnalysis)
		}
		return State{Phase: PhaseReady, Source: s.Source, Analysis: ev.Analysis}, nil

	case AnalysisFailed:
		if s.Phase != PhaseAnalyzing && s.Phase != PhaseReanalyzingEdited {
			return s, precondition(ev.action(), s.Phase, ErrNotPending)
		}
		kind, msg := classify(ev.Err)
		return State{Phase: PhaseAnalysisError, Source: s.Source, Message: msg, ErrKind: kind}, nil

	case RequestEdit:
		if s.Pending() {
			return s, precondition(ev.action(), s.Phase, ErrRequestInFlight)
		}
		// EditError keeps the source and analysis, so it accepts a retry.
		if (s.Phase != PhaseReady && s.Phase != PhaseEditError) || s.Analysis == nil {
			return s, precondition(ev.action(), s.Phase, ErrNoAnalysis)
		}
		if s.Source == nil {
			return s, precondition(ev.action(), s.Phase, ErrNoImage)
		}
		ratio := aspect.Select(s.Source.Width(), s.Source.Height(), s.Analysis.EditInstructions())
		return State{Phase: PhaseEditing, Source: s.Source, Analysis: s.Analysis, Ratio: ratio}, nil

	case EditSucceeded:
		if s.Phase != PhaseEditing {
			return s, precondition(ev.action(), s.Phase, ErrNotPending)
		}
		if ev.Image == nil {
			return s, precondition(ev.action(), s.Phase, ErrNoEditedImage)
		}
		return State{
			Phase:    PhaseEditReady,
			Source:   s.Source,
			Analysis: s.Analysis,
			Edited:   ev.Image,
			Ratio:    s.Ratio,
		}, nil

	case EditFailed:
		if s.Phase != PhaseEditing {
			return s, precondition(ev.action(), s.Phase, ErrNotPending)
		}
		kind, msg := classify(ev.Err)
		return State{
			Phase:    PhaseEditError,
			Source:   s.Source,
			Analysis: s.Analysis,
			Ratio:    s.Ratio,
			Message:  msg,
			ErrKind:  kind,
		}, nil

	case RequestReanalysis:
		if s.Pending() {
			return s, precondition(ev.action(), s.Phase, ErrRequestInFlight)
		}
		if s.Phase != PhaseEditReady || s.Edited == nil {
			return s, precondition(ev.action(), s.Phase, ErrNoEditedImage)
		}
		return State{Phase: PhaseReanalyzingEdited, Source: s.Edited}, nil
	}

	return s, errors.New("workflow: unknown event")
}
