package cli

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-critic/internal/auth"
	"github.com/fpang/photo-critic/internal/config"
	"github.com/fpang/photo-critic/internal/gemini"
)

// InitGeminiClient creates and validates a Gemini client configured from cfg.
// Returns the context and client ready for use, or exits fatally on failure.
func InitGeminiClient(cfg *config.Config) (context.Context, *gemini.Client) {
	apiKey, err := auth.GetAPIKey(cfg.APIKey)
	if err != nil {
		HandleValidationError(&auth.ValidationError{Type: auth.ErrTypeNoKey, Message: err.Error(), Err: err})
	}

	ctx := context.Background()
	genaiClient, err := gemini.NewGenAIClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}

	log.Info().Msg("connection successful - Gemini client initialized")

	if err := auth.ValidateAPIKey(ctx, genaiClient, cfg.Model); err != nil {
		HandleValidationError(err)
	}

	log.Info().Msg("API key validation complete - ready for operations")

	client := gemini.NewClient(genaiClient,
		gemini.WithAnalysisModel(cfg.Model),
		gemini.WithImageModel(cfg.ImageModel),
		gemini.WithVariant(cfg.CritiqueVariant()),
		gemini.WithTimeout(cfg.Timeout),
	)
	return ctx, client
}
