package gemini

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/photo-critic/internal/assets"
	"github.com/fpang/photo-critic/internal/critique"
)

// AnalyzePhoto sends one photo to the critique model and returns the validated
// analysis. A malformed response yields a *critique.ValidationError; a failed
// call yields a *TransportError.
func (c *Client) AnalyzePhoto(ctx context.Context, data []byte, mimeType string) (*critique.PhotoAnalysis, error) {
	startTime := time.Now()
	log.Info().
		Str("model", c.analysisModel).
		Str("variant", string(c.variant)).
		Int("image_bytes", len(data)).
		Str("image_mime", mimeType).
		Msg("Sending image to Gemini for critique")

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: assets.CritiqueSystemPrompt}},
		},
		ResponseMIMEType: responseMIMETypeJSON,
	}

	// Image first, then the variant prompt
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
		{Text: critiquePrompt(c.variant)},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := c.generate(ctx, "analyze", c.analysisModel, contents, config)
	if err != nil {
		return nil, err
	}

	responseText := resp.Text()
	log.Debug().Int("response_length", len(responseText)).Msg("Parsing critique response")

	analysis, err := critique.Parse(responseText, c.variant)
	if err != nil {
		log.Warn().
			Err(err).
			Str("response", truncateString(responseText, maxLoggedResponseFragment)).
			Msg("Critique response failed validation")
		return nil, err
	}

	for _, w := range analysis.Warnings() {
		log.Warn().Str("warning", w).Msg("Critique accepted with warning")
	}

	log.Info().
		Float64("rating", analysis.Rating).
		Int("edit_count", len(analysis.SuggestedEdits)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini critique complete")
	return analysis, nil
}

func critiquePrompt(v critique.Variant) string {
	if v == critique.VariantPlain {
		return assets.CritiquePlainPrompt
	}
	return assets.CritiqueDetailedPrompt
}
