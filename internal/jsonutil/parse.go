// Package jsonutil extracts JSON from model responses. Gemini sometimes wraps its
// answer in markdown code fences or adds prose around it even when asked for JSON.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a response contains no JSON object or array.
var ErrNoJSON = errors.New("no JSON content found")

// previewLen bounds how much of a bad payload is quoted in error messages.
const previewLen = 200

// StripMarkdownFences removes a surrounding ```json ... ``` (or bare ```) block.
// Text without a leading fence is returned trimmed but otherwise unchanged.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}

// ExtractJSON returns the span from the first '{' or '[' to the last matching
// closing delimiter of the same kind.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return "", ErrNoJSON
	}

	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}

	text = text[start:]
	end := strings.LastIndex(text, closer)
	if end == -1 {
		return "", fmt.Errorf("no closing %s found", closer)
	}
	return text[:end+1], nil
}

// DecodeObject extracts a JSON object from raw and decodes it without a schema.
// Numbers are kept as json.Number so callers can tell them apart from strings
// and nothing is silently converted.
func DecodeObject(raw string) (map[string]any, error) {
	payload, err := extract(raw)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(payload, "{") {
		return nil, fmt.Errorf("expected a JSON object, got %s", preview(payload))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview(payload))
	}
	return obj, nil
}

func extract(raw string) (string, error) {
	payload, err := ExtractJSON(StripMarkdownFences(raw))
	if err != nil {
		return "", fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}
	return payload, nil
}

func preview(s string) string {
	if len(s) > previewLen {
		return s[:previewLen] + "..."
	}
	return s
}
