package workflow

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/critique"
	"github.com/fpang/photo-critic/internal/imageasset"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testAsset(t *testing.T, w, h int) *imageasset.Asset {
	t.Helper()
	a, err := imageasset.FromBytes(pngBytes(t, w, h), "image/png", "photo.png")
	if err != nil {
		t.Fatalf("FromBytes() error = %v", err)
	}
	return a
}

func testAnalysis(edits ...string) *critique.PhotoAnalysis {
	a := &critique.PhotoAnalysis{Rating: 6, OverallComment: "Decent"}
	for _, e := range edits {
		a.SuggestedEdits = append(a.SuggestedEdits, critique.SuggestedEdit{Edit: e})
	}
	return a
}

func mustNext(t *testing.T, s State, e Event) State {
	t.Helper()
	next, err := Next(s, e)
	if err != nil {
		t.Fatalf("Next(%s, %T) error = %v", s.Phase, e, err)
	}
	return next
}

func TestNextHappyPath(t *testing.T) {
	src := testAsset(t, 1920, 1080)
	edited := testAsset(t, 1920, 1080)
	analysis := testAnalysis("Lift shadows", "Warm it up", "Crop to 1:1")

	s := State{Phase: PhaseIdle}
	s = mustNext(t, s, SelectImage{Image: src})
	if s.Phase != PhaseIdle || s.Source != src {
		t.Fatalf("after select: %+v", s)
	}

	s = mustNext(t, s, RequestAnalysis{})
	if s.Phase != PhaseAnalyzing {
		t.Fatalf("Phase = %s, want analyzing", s.Phase)
	}

	s = mustNext(t, s, AnalysisSucceeded{Analysis: analysis})
	if s.Phase != PhaseReady || s.Analysis != analysis {
		t.Fatalf("after analysis: %+v", s)
	}

	s = mustNext(t, s, RequestEdit{})
	if s.Phase != PhaseEditing {
		t.Fatalf("Phase = %s, want editing", s.Phase)
	}
	if s.Ratio != aspect.Square {
		t.Errorf("Ratio = %s, want 1:1 from keyword", s.Ratio)
	}

	s = mustNext(t, s, EditSucceeded{Image: edited})
	if s.Phase != PhaseEditReady || s.Edited != edited || s.Source != src {
		t.Fatalf("after edit: %+v", s)
	}

	s = mustNext(t, s, RequestReanalysis{})
	if s.Phase != PhaseReanalyzingEdited || s.Source != edited {
		t.Fatalf("after reanalysis request: %+v", s)
	}

	s = mustNext(t, s, AnalysisSucceeded{Analysis: testAnalysis("a", "b", "c")})
	if s.Phase != PhaseReady || s.Source != edited {
		t.Errorf("after reanalysis: Phase = %s, source is edited = %v", s.Phase, s.Source == edited)
	}
	if s.Edited != nil {
		t.Error("Ready after reanalysis should not carry an edited image")
	}
}

func TestNextRejections(t *testing.T) {
	src := testAsset(t, 100, 100)
	analysis := testAnalysis("a", "b", "c")

	tests := []struct {
		name  string
		state State
		event Event
		want  error
	}{
		{"analyze without image", State{Phase: PhaseIdle}, RequestAnalysis{}, ErrNoImage},
		{"analyze while analyzing", State{Phase: PhaseAnalyzing, Source: src}, RequestAnalysis{}, ErrRequestInFlight},
		{"analyze while editing", State{Phase: PhaseEditing, Source: src, Analysis: analysis}, RequestAnalysis{}, ErrRequestInFlight},
		{"edit in idle", State{Phase: PhaseIdle, Source: src}, RequestEdit{}, ErrNoAnalysis},
		{"edit in analysis error", State{Phase: PhaseAnalysisError, Source: src}, RequestEdit{}, ErrNoAnalysis},
		{"edit while editing", State{Phase: PhaseEditing, Source: src, Analysis: analysis}, RequestEdit{}, ErrRequestInFlight},
		{"reanalyze in ready", State{Phase: PhaseReady, Source: src, Analysis: analysis}, RequestReanalysis{}, ErrNoEditedImage},
		{"reanalyze while reanalyzing", State{Phase: PhaseReanalyzingEdited, Source: src}, RequestReanalysis{}, ErrRequestInFlight},
		{"result without request", State{Phase: PhaseIdle, Source: src}, AnalysisSucceeded{Analysis: analysis}, ErrNotPending},
		{"edit result without request", State{Phase: PhaseReady, Source: src, Analysis: analysis}, EditSucceeded{Image: src}, ErrNotPending},
		{"select nil image", State{Phase: PhaseReady, Source: src, Analysis: analysis}, SelectImage{}, ErrNoImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.state, tt.event)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Next() error = %v, want %v", err, tt.want)
			}
			var perr *PreconditionError
			if !errors.As(err, &perr) {
				t.Errorf("expected *PreconditionError, got %T", err)
			}
			if got.Phase != tt.state.Phase {
				t.Errorf("rejected event changed phase to %s", got.Phase)
			}
		})
	}
}

func TestNextSelectResetsFromAnyState(t *testing.T) {
	src := testAsset(t, 100, 100)
	next := testAsset(t, 200, 100)
	analysis := testAnalysis("a", "b", "c")

	states := []State{
		{Phase: PhaseAnalyzing, Source: src},
		{Phase: PhaseAnalysisError, Source: src, Message: "boom"},
		{Phase: PhaseReady, Source: src, Analysis: analysis},
		{Phase: PhaseEditing, Source: src, Analysis: analysis},
		{Phase: PhaseEditError, Source: src, Analysis: analysis, Message: "boom"},
		{Phase: PhaseEditReady, Source: src, Analysis: analysis, Edited: src},
		{Phase: PhaseReanalyzingEdited, Source: src},
	}
	for _, s := range states {
		t.Run(string(s.Phase), func(t *testing.T) {
			got := mustNext(t, s, SelectImage{Image: next})
			if got.Phase != PhaseIdle || got.Source != next || got.Analysis != nil || got.Message != "" {
				t.Errorf("Next() = %+v, want clean idle with new source", got)
			}
		})
	}
}

func TestNextFailuresKeepRetryContext(t *testing.T) {
	src := testAsset(t, 100, 100)
	analysis := testAnalysis("a", "b", "c")

	s := mustNext(t, State{Phase: PhaseAnalyzing, Source: src}, AnalysisFailed{Err: errors.New("timeout")})
	if s.Phase != PhaseAnalysisError || s.Message != "timeout" || s.ErrKind != ErrorKindTransport {
		t.Fatalf("analysis failure state = %+v", s)
	}
	if !s.CanAnalyze() {
		t.Error("analysis error should allow retrying analysis")
	}
	if s.CanEdit() {
		t.Error("analysis error should not allow edit")
	}

	s = mustNext(t, State{Phase: PhaseEditing, Source: src, Analysis: analysis}, EditFailed{Err: errors.New("no image")})
	if s.Phase != PhaseEditError || s.Analysis != analysis {
		t.Fatalf("edit failure state = %+v", s)
	}
	if !s.CanEdit() {
		t.Error("edit error should allow retrying the edit")
	}
	if s.CanAnalyze() || s.CanReanalyze() {
		t.Error("edit error should only allow edit retry or a new selection")
	}
}

func TestNextReanalysisOutcomes(t *testing.T) {
	edited := testAsset(t, 160, 90)
	reanalyzing := State{Phase: PhaseReanalyzingEdited, Source: edited}

	tests := []struct {
		name      string
		event     Event
		wantPhase Phase
	}{
		{"success", AnalysisSucceeded{Analysis: testAnalysis("a", "b", "c")}, PhaseReady},
		{"failure", AnalysisFailed{Err: errors.New("boom")}, PhaseAnalysisError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustNext(t, reanalyzing, tt.event)
			if got.Phase != tt.wantPhase {
				t.Errorf("Phase = %s, want %s", got.Phase, tt.wantPhase)
			}
			if got.Source != edited {
				t.Error("the edited image must stay the source")
			}
			if got.Edited != nil {
				t.Error("Edited should be cleared once the edit becomes the source")
			}
			if !got.CanAnalyze() {
				t.Error("analysis of the edited image should be retryable")
			}
		})
	}

	got := mustNext(t, reanalyzing, AnalysisFailed{Err: errors.New("boom")})
	if got.Message != "boom" || got.ErrKind != ErrorKindTransport {
		t.Errorf("failure message/kind = %q/%q", got.Message, got.ErrKind)
	}
}

func TestNextValidationFailureKind(t *testing.T) {
	src := testAsset(t, 100, 100)
	verr := &critique.ValidationError{Field: "rating", Message: "must be a number"}

	s := mustNext(t, State{Phase: PhaseAnalyzing, Source: src}, AnalysisFailed{Err: verr})
	if s.ErrKind != ErrorKindValidation {
		t.Errorf("ErrKind = %q, want validation", s.ErrKind)
	}
	if s.Message == "" {
		t.Error("expected a human-readable message")
	}
}

func TestNextEditRatioFromGeometry(t *testing.T) {
	src := testAsset(t, 90, 160)
	s := State{Phase: PhaseReady, Source: src, Analysis: testAnalysis("Brighten", "Sharpen", "Denoise")}

	got := mustNext(t, s, RequestEdit{})
	if got.Ratio != aspect.Portrait9x16 {
		t.Errorf("Ratio = %s, want 9:16", got.Ratio)
	}
}
