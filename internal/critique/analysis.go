// Package critique defines the structured photo critique returned by the analysis
// model and the validator every raw response passes through before it is trusted.
package critique

import (
	"fmt"
	"strings"
)

// Variant selects the critique shape requested from the model.
type Variant string

const (
	// VariantPlain asks for three plain-string edits and no projected rating.
	VariantPlain Variant = "plain"
	// VariantDetailed asks for {edit, reason} pairs and a projected rating.
	VariantDetailed Variant = "detailed"
)

// ExpectedEdits is the number of suggested edits the model is asked to produce.
const ExpectedEdits = 3

// Rating bounds used in prompts and warnings.
const (
	MinRating = 1.0
	MaxRating = 10.0
)

// ParseVariant maps a configuration string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantDetailed:
		return VariantDetailed, nil
	case VariantPlain:
		return VariantPlain, nil
	default:
		return "", fmt.Errorf("unknown critique variant %q (want %q or %q)", s, VariantPlain, VariantDetailed)
	}
}

// SuggestedEdit is one concrete edit instruction. Reason is empty for the plain variant.
type SuggestedEdit struct {
	Edit   string `json:"edit"`
	Reason string `json:"reason,omitempty"`
}

// PhotoAnalysis is a validated critique.
type PhotoAnalysis struct {
	Rating          float64         `json:"rating"`
	ProjectedRating *float64        `json:"projectedRating,omitempty"`
	Composition     string          `json:"composition"`
	Lighting        string          `json:"lighting"`
	Subject         string          `json:"subject"`
	OverallComment  string          `json:"overallComment"`
	SuggestedEdits  []SuggestedEdit `json:"suggestedEdits"`
}

// EditInstructions returns the edit texts in order.
func (a *PhotoAnalysis) EditInstructions() []string {
	out := make([]string, 0, len(a.SuggestedEdits))
	for _, e := range a.SuggestedEdits {
		out = append(out, e.Edit)
	}
	return out
}

// Warnings lists soft expectations the model was asked to meet but the validator
// does not enforce: rating range, projected rating not below the current one,
// and exactly ExpectedEdits suggestions.
func (a *PhotoAnalysis) Warnings() []string {
	var w []string
	if a.Rating < MinRating || a.Rating > MaxRating {
		w = append(w, fmt.Sprintf("rating %.1f is outside %.0f-%.0f", a.Rating, MinRating, MaxRating))
	}
	if a.ProjectedRating != nil {
		p := *a.ProjectedRating
		if p < MinRating || p > MaxRating {
			w = append(w, fmt.Sprintf("projected rating %.1f is outside %.0f-%.0f", p, MinRating, MaxRating))
		}
		if p < a.Rating {
			w = append(w, fmt.Sprintf("projected rating %.1f is below current rating %.1f", p, a.Rating))
		}
	}
	if len(a.SuggestedEdits) != ExpectedEdits {
		w = append(w, fmt.Sprintf("expected %d suggested edits, got %d", ExpectedEdits, len(a.SuggestedEdits)))
	}
	return w
}

// Summary renders the critique as plain text for terminals and logs.
func (a *PhotoAnalysis) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rating: %.1f/10", a.Rating)
	if a.ProjectedRating != nil {
		fmt.Fprintf(&sb, " (projected after edits: %.1f/10)", *a.ProjectedRating)
	}
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Composition: %s\n", a.Composition)
	fmt.Fprintf(&sb, "Lighting:    %s\n", a.Lighting)
	fmt.Fprintf(&sb, "Subject:     %s\n", a.Subject)
	fmt.Fprintf(&sb, "\n%s\n", a.OverallComment)
	sb.WriteString("\nSuggested edits:\n")
	for i, e := range a.SuggestedEdits {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e.Edit)
		if e.Reason != "" {
			fmt.Fprintf(&sb, "     why: %s\n", e.Reason)
		}
	}
	return sb.String()
}
