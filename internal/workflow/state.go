// Package workflow drives the analyze → edit → re-analyze cycle for one photo.
//
// Transitions are a pure function of (State, Event); Controller layers request
// dispatch, stale-result tagging and change notification on top of it.
package workflow

import (
	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/critique"
	"github.com/fpang/photo-critic/internal/imageasset"
)

// Phase names the current workflow state.
type Phase string

const (
	PhaseIdle              Phase = "idle"               // No request; Source may hold a selected image
	PhaseAnalyzing         Phase = "analyzing"          // Critique requested for Source
	PhaseAnalysisError     Phase = "analysis_error"     // Critique failed; Message explains why
	PhaseReady             Phase = "ready"              // Source has a critique
	PhaseEditing           Phase = "editing"            // Edit requested for Source using Analysis
	PhaseEditError         Phase = "edit_error"         // Edit failed; Message explains why
	PhaseEditReady         Phase = "edit_ready"         // Edited holds the result of the edit
	PhaseReanalyzingEdited Phase = "reanalyzing_edited" // Critique requested for the previously edited image
)

// ErrorKind classifies the failure carried by an error state.
type ErrorKind string

const (
	ErrorKindNone       ErrorKind = ""
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindTransport  ErrorKind = "transport"
)

// State is a snapshot of the workflow. Assets and the analysis are shared by
// pointer and must be treated as read-only.
type State struct {
	Phase    Phase
	Source   *imageasset.Asset
	Analysis *critique.PhotoAnalysis
	Edited   *imageasset.Asset
	Ratio    aspect.Ratio // target ratio of the current or last edit
	Message  string
	ErrKind  ErrorKind
}

// Pending reports whether an external request is outstanding.
func (s State) Pending() bool {
	switch s.Phase {
	case PhaseAnalyzing, PhaseEditing, PhaseReanalyzingEdited:
		return true
	}
	return false
}

// Failed reports whether the state is an error state.
func (s State) Failed() bool {
	return s.Phase == PhaseAnalysisError || s.Phase == PhaseEditError
}

// CanAnalyze reports whether RequestAnalysis would be accepted.
func (s State) CanAnalyze() bool { return s.accepts(RequestAnalysis{}) }

// CanEdit reports whether RequestEdit would be accepted.
func (s State) CanEdit() bool { return s.accepts(RequestEdit{}) }

// CanReanalyze reports whether RequestReanalysis would be accepted.
func (s State) CanReanalyze() bool { return s.accepts(RequestReanalysis{}) }

func (s State) accepts(e Event) bool {
	_, err := Next(s, e)
	return err == nil
}
