package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-critic/internal/imageasset"
)

// imagePatterns returns glob patterns for every supported extension, sorted.
func imagePatterns() []string {
	patterns := make([]string, 0, len(imageasset.SupportedImageExtensions))
	for ext := range imageasset.SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}
	sort.Strings(patterns)
	return patterns
}

// PickImage opens the native file dialog filtered to supported images.
// Returns zenity.ErrCanceled when the user dismisses it.
func PickImage() (string, error) {
	path, err := zenity.SelectFile(
		zenity.Title("Choose a photo to critique"),
		zenity.FileFilters{
			{Name: "Images", Patterns: imagePatterns(), CaseFold: true},
		},
	)
	if err != nil {
		return "", err
	}
	log.Debug().Str("path", path).Msg("Image picked from dialog")
	return path, nil
}

// PromptForImage asks for an image path on stdin. It is the fallback when no
// native dialog is available (e.g. over SSH).
func PromptForImage() string {
	fmt.Print("Image path: ")

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read input")
		return ""
	}
	return strings.TrimSpace(input)
}

// ChooseImage resolves the image to work on: the argument if given, else the
// native picker, else a stdin prompt.
func ChooseImage(arg string) string {
	if arg != "" {
		return ValidateAndResolveImage(arg)
	}

	path, err := PickImage()
	switch {
	case err == nil:
	case errors.Is(err, zenity.ErrCanceled):
		log.Fatal().Msg("No image selected")
	default:
		log.Debug().Err(err).Msg("Native file dialog unavailable, prompting instead")
		path = PromptForImage()
	}
	if path == "" {
		log.Fatal().Msg("No image selected")
	}
	return ValidateAndResolveImage(path)
}
