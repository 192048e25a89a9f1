package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-critic/internal/auth"
	"github.com/fpang/photo-critic/internal/imageasset"
)

// ResolveImagePath checks that path is an existing regular file with a
// supported image extension and returns its absolute form.
func ResolveImagePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("image not found: %s", path)
		}
		return "", fmt.Errorf("failed to access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory, not an image", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := imageasset.SupportedImageExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: unsupported file extension %q", imageasset.ErrNotImage, ext)
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// ValidateAndResolveImage is ResolveImagePath that exits fatally on failure.
func ValidateAndResolveImage(path string) string {
	resolved, err := ResolveImagePath(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Invalid image path")
	}
	return resolved
}

// HandleValidationError processes auth.ValidationError and exits with appropriate messaging.
func HandleValidationError(err error) {
	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Type {
		case auth.ErrTypeNoKey:
			log.Fatal().Msg("No API key configured. Set GEMINI_API_KEY or api_key in ~/.photo-critic/config.yaml")
		case auth.ErrTypeInvalidKey:
			log.Fatal().Err(err).Msg("Invalid API key. Please check your API key and try again")
		case auth.ErrTypeNetworkError:
			log.Fatal().Err(err).Msg("Network error. Please check your internet connection")
		case auth.ErrTypeQuotaExceeded:
			log.Fatal().Err(err).Msg("API quota exceeded. Please try again later or check your usage limits")
		default:
			log.Fatal().Err(err).Msg("API key validation failed")
		}
	} else {
		log.Fatal().Err(err).Msg("unexpected error during API key validation")
	}
	os.Exit(1)
}
