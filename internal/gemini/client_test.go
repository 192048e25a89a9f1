package gemini

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/critique"
	"github.com/fpang/photo-critic/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	calls int

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

const detailedJSON = `{
  "rating": 5.5,
  "projectedRating": 7,
  "composition": "Horizon tilted",
  "lighting": "Backlit",
  "subject": "Sunset over a lake",
  "overallComment": "Strong colors, weak framing",
  "suggestedEdits": [
    {"edit": "Straighten the horizon", "reason": "It tilts"},
    {"edit": "Crop to 16:9", "reason": "Emphasize the width"},
    {"edit": "Recover highlights", "reason": "The sky clips"}
  ]
}`

func TestAnalyzePhoto(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse("```json\n" + detailedJSON + "\n```")}
	c := newClient(fake, WithAnalysisModel("critic-model"))

	a, err := c.AnalyzePhoto(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("AnalyzePhoto() error = %v", err)
	}
	if a.Rating != 5.5 {
		t.Errorf("Rating = %v, want 5.5", a.Rating)
	}
	if a.ProjectedRating == nil || *a.ProjectedRating != 7 {
		t.Errorf("ProjectedRating = %v, want 7", a.ProjectedRating)
	}
	if fake.model != "critic-model" {
		t.Errorf("model = %q, want critic-model", fake.model)
	}
	if fake.config.ResponseMIMEType != "application/json" {
		t.Errorf("ResponseMIMEType = %q", fake.config.ResponseMIMEType)
	}

	parts := fake.contents[0].Parts
	if len(parts) != 2 || parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "image/jpeg" {
		t.Fatalf("expected image part first, got %+v", parts)
	}
	if parts[1].Text == "" {
		t.Error("expected prompt text as second part")
	}
}

func TestAnalyzePhotoValidationError(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse(`{"rating": "high"}`)}
	c := newClient(fake)

	_, err := c.AnalyzePhoto(context.Background(), []byte("img"), "image/png")
	var verr *critique.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *critique.ValidationError, got %T (%v)", err, err)
	}
	if verr.Field != "rating" {
		t.Errorf("Field = %q, want rating", verr.Field)
	}
}

func TestAnalyzePhotoTransportError(t *testing.T) {
	fake := &fakeGenerator{err: errors.New("connection reset")}
	c := newClient(fake)

	_, err := c.AnalyzePhoto(context.Background(), []byte("img"), "image/png")
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T (%v)", err, err)
	}
	if terr.Op != "analyze" {
		t.Errorf("Op = %q, want analyze", terr.Op)
	}
}

func TestAnalyzePhotoPlainVariantPrompt(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse(`{"rating":6,"composition":"a","lighting":"b","subject":"c","overallComment":"d","suggestedEdits":["x","y","z"]}`)}
	c := newClient(fake, WithVariant(critique.VariantPlain))

	a, err := c.AnalyzePhoto(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("AnalyzePhoto() error = %v", err)
	}
	if a.ProjectedRating != nil {
		t.Error("plain variant should not carry a projected rating")
	}
	if got := fake.contents[0].Parts[1].Text; got != critiquePrompt(critique.VariantPlain) {
		t.Error("expected plain prompt to be sent")
	}
}

func TestEditPhoto(t *testing.T) {
	fake := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Here is your edit."},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("edited")}},
			}},
		}},
	}}
	c := newClient(fake, WithImageModel("image-model"))
	analysis := &critique.PhotoAnalysis{
		Rating:         5,
		OverallComment: "Fine",
		SuggestedEdits: []critique.SuggestedEdit{{Edit: "Crop to 16:9"}},
	}

	data, mimeType, err := c.EditPhoto(context.Background(), []byte("src"), "image/jpeg", analysis, aspect.Landscape16x9)
	if err != nil {
		t.Fatalf("EditPhoto() error = %v", err)
	}
	if string(data) != "edited" || mimeType != "image/png" {
		t.Errorf("EditPhoto() = %q, %q", data, mimeType)
	}
	if fake.model != "image-model" {
		t.Errorf("model = %q, want image-model", fake.model)
	}
	if fake.config.ImageConfig == nil || fake.config.ImageConfig.AspectRatio != "16:9" {
		t.Errorf("ImageConfig = %+v, want aspect 16:9", fake.config.ImageConfig)
	}
	if len(fake.config.ResponseModalities) != 2 {
		t.Errorf("ResponseModalities = %v", fake.config.ResponseModalities)
	}
	prompt := fake.contents[0].Parts[1].Text
	if !strings.Contains(prompt, "Crop to 16:9") {
		t.Errorf("edit prompt missing suggested edit: %q", prompt)
	}
}

func TestEditPhotoNoImage(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse("I can't edit this photo.")}
	c := newClient(fake)

	_, _, err := c.EditPhoto(context.Background(), []byte("src"), "image/jpeg", &critique.PhotoAnalysis{}, aspect.Square)
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	var terr *TransportError
	if !errors.As(err, &terr) || terr.Op != "edit" {
		t.Errorf("expected edit TransportError, got %v", err)
	}
}

func TestEditPhotoRequiresAnalysis(t *testing.T) {
	fake := &fakeGenerator{}
	c := newClient(fake)

	if _, _, err := c.EditPhoto(context.Background(), []byte("src"), "image/jpeg", nil, aspect.Square); err == nil {
		t.Fatal("expected error for nil analysis")
	}
	if fake.calls != 0 {
		t.Errorf("GenerateContent called %d times, want 0", fake.calls)
	}
}

func TestEditPhotoRejectsUnsupportedRatio(t *testing.T) {
	fake := &fakeGenerator{}
	c := newClient(fake)

	_, _, err := c.EditPhoto(context.Background(), []byte("src"), "image/jpeg", &critique.PhotoAnalysis{}, aspect.Ratio("2:3"))
	if err == nil || !strings.Contains(err.Error(), "16:9") {
		t.Fatalf("expected unsupported ratio error listing supported ratios, got %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("GenerateContent called %d times, want 0", fake.calls)
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("abcdef", 3); got != "abc..." {
		t.Errorf("truncateString() = %q, want abc...", got)
	}
	if got := truncateString("abc", 3); got != "abc" {
		t.Errorf("truncateString() = %q, want abc", got)
	}
}
