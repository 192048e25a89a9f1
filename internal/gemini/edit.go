package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/assets"
	"github.com/fpang/photo-critic/internal/critique"
)

// EditPhoto asks the image model to apply the analysis' suggested edits to the
// photo, constraining the output to ratio. It returns the edited image bytes and
// their MIME type.
func (c *Client) EditPhoto(ctx context.Context, data []byte, mimeType string, analysis *critique.PhotoAnalysis, ratio aspect.Ratio) ([]byte, string, error) {
	if analysis == nil {
		return nil, "", fmt.Errorf("edit requires an analysis")
	}
	if !ratio.Valid() {
		return nil, "", fmt.Errorf("unsupported aspect ratio %q (supported: %v)", ratio, aspect.All())
	}

	startTime := time.Now()
	log.Info().
		Str("model", c.imageModel).
		Int("image_bytes", len(data)).
		Str("image_mime", mimeType).
		Str("aspect_ratio", string(ratio)).
		Int("edit_count", len(analysis.SuggestedEdits)).
		Msg("Sending image to Gemini for editing")

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: assets.EditSystemPrompt}},
		},
		ResponseModalities: []string{modalityText, modalityImage},
		ImageConfig:        &genai.ImageConfig{AspectRatio: string(ratio)},
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
		{Text: editInstruction(analysis, ratio)},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := c.generate(ctx, "edit", c.imageModel, contents, config)
	if err != nil {
		return nil, "", err
	}

	imageData, imageMIME, text := extractImage(resp)
	if imageData == nil {
		log.Error().
			Str("text", truncateString(text, maxLoggedResponseFragment)).
			Msg("Gemini edit returned no image")
		return nil, "", &TransportError{
			Op:  "edit",
			Err: fmt.Errorf("%w (text: %s)", ErrNoImage, truncateString(text, maxLoggedResponseFragment)),
		}
	}

	log.Info().
		Int("output_bytes", len(imageData)).
		Str("output_mime", imageMIME).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini image editing complete")
	return imageData, imageMIME, nil
}

func editInstruction(analysis *critique.PhotoAnalysis, ratio aspect.Ratio) string {
	lines := make([]assets.EditLine, 0, len(analysis.SuggestedEdits))
	for _, e := range analysis.SuggestedEdits {
		lines = append(lines, assets.EditLine{Edit: e.Edit, Reason: e.Reason})
	}
	return assets.RenderEditInstruction(assets.EditPromptData{
		Rating:         analysis.Rating,
		OverallComment: analysis.OverallComment,
		Edits:          lines,
		AspectRatio:    string(ratio),
	})
}

// extractImage returns the last inline image in the response along with any
// text the model sent next to it.
func extractImage(resp *genai.GenerateContentResponse) ([]byte, string, string) {
	var (
		data     []byte
		mimeType string
		text     string
	)
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				data = part.InlineData.Data
				mimeType = part.InlineData.MIMEType
			}
			if part.Text != "" {
				text += part.Text
			}
		}
	}
	return data, mimeType, text
}
