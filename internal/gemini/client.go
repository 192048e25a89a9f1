// Package gemini implements the two remote operations the workflow depends on:
// critiquing a photo and applying the critique's edits to it.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/photo-critic/internal/critique"
	"github.com/fpang/photo-critic/internal/metrics"
)

// ErrNoImage is returned when the edit model answers without an image part.
var ErrNoImage = errors.New("no image returned in response")

// TransportError reports a failed remote call or a response with no usable
// payload. It is terminal for the request; nothing is retried automatically.
type TransportError struct {
	Op  string // "analyze" or "edit"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gemini %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// generator is the subset of *genai.Models used here; tests substitute a fake.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client performs critique and edit requests.
type Client struct {
	models        generator
	analysisModel string
	imageModel    string
	variant       critique.Variant
	timeout       time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithAnalysisModel overrides the critique model.
func WithAnalysisModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.analysisModel = model
		}
	}
}

// WithImageModel overrides the edit model.
func WithImageModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.imageModel = model
		}
	}
}

// WithVariant selects the critique shape.
func WithVariant(v critique.Variant) Option {
	return func(c *Client) { c.variant = v }
}

// WithTimeout bounds each remote call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewGenAIClient creates the underlying SDK client for the Gemini API backend.
func NewGenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewClient wraps an SDK client.
func NewClient(client *genai.Client, opts ...Option) *Client {
	return newClient(client.Models, opts...)
}

func newClient(models generator, opts ...Option) *Client {
	c := &Client{
		models:        models,
		analysisModel: DefaultAnalysisModel,
		imageModel:    DefaultImageModel,
		variant:       critique.VariantDetailed,
		timeout:       2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Variant returns the critique shape this client requests.
func (c *Client) Variant() critique.Variant { return c.variant }

// generate runs one GenerateContent call with timeout, logging and metrics.
func (c *Client) generate(ctx context.Context, op, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	log.Debug().Str("op", op).Str("model", model).Msg("Starting Gemini API call")
	resp, err := c.models.GenerateContent(ctx, model, contents, config)
	elapsed := time.Since(start)

	m := metrics.New(metrics.Namespace).
		Dimension("Operation", op).
		Metric("GeminiApiLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiErrors")
	}
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("GeminiInputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}
	m.Flush()

	if err != nil {
		log.Error().Err(err).Str("op", op).Dur("duration", elapsed).Msg("Gemini API call failed")
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp == nil {
		return nil, &TransportError{Op: op, Err: errors.New("received empty response from Gemini API")}
	}

	log.Debug().Str("op", op).Dur("duration", elapsed).Msg("Gemini API response received")
	return resp, nil
}

// truncateString truncates s to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
