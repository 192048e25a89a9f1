package critique

import (
	"encoding/json"
	"fmt"

	"github.com/fpang/photo-critic/internal/jsonutil"
)

// ValidationError reports that a model response does not have the critique shape.
// It is terminal for the request that produced it.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid analysis: %s %s", e.Field, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Parse extracts the JSON object from a model response and validates it.
// A response with no decodable object is a ValidationError on field "response".
func Parse(responseText string, variant Variant) (*PhotoAnalysis, error) {
	raw, err := jsonutil.DecodeObject(responseText)
	if err != nil {
		return nil, &ValidationError{Field: "response", Message: "is not a JSON object", Err: err}
	}
	return Validate(raw, variant)
}

// Validate checks raw against the critique shape for variant and converts it.
//
// Checks run in a fixed order and stop at the first failure: rating,
// projectedRating (detailed only), the four text fields, then suggestedEdits.
// Nothing is coerced: a rating of "7" is rejected, not parsed.
func Validate(raw map[string]any, variant Variant) (*PhotoAnalysis, error) {
	if raw == nil {
		return nil, &ValidationError{Field: "response", Message: "is empty"}
	}

	a := &PhotoAnalysis{}

	rating, err := number(raw, "rating")
	if err != nil {
		return nil, err
	}
	a.Rating = rating

	if variant == VariantDetailed {
		projected, err := number(raw, "projectedRating")
		if err != nil {
			return nil, err
		}
		a.ProjectedRating = &projected
	}

	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"composition", &a.Composition},
		{"lighting", &a.Lighting},
		{"subject", &a.Subject},
		{"overallComment", &a.OverallComment},
	} {
		s, err := text(raw, f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = s
	}

	edits, err := sequence(raw, "suggestedEdits")
	if err != nil {
		return nil, err
	}
	a.SuggestedEdits = make([]SuggestedEdit, 0, len(edits))
	for i, item := range edits {
		edit, err := suggestedEdit(item, variant, i)
		if err != nil {
			return nil, err
		}
		a.SuggestedEdits = append(a.SuggestedEdits, edit)
	}

	return a, nil
}

func number(raw map[string]any, field string) (float64, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return 0, &ValidationError{Field: field, Message: "is missing"}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, &ValidationError{Field: field, Message: "is not a number", Err: err}
		}
		return f, nil
	default:
		return 0, &ValidationError{Field: field, Message: fmt.Sprintf("must be a number, got %T", v)}
	}
}

func text(raw map[string]any, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", &ValidationError{Field: field, Message: "is missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: field, Message: fmt.Sprintf("must be text, got %T", v)}
	}
	return s, nil
}

func sequence(raw map[string]any, field string) ([]any, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return nil, &ValidationError{Field: field, Message: "is missing"}
	}
	switch s := v.(type) {
	case []any:
		return s, nil
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	default:
		return nil, &ValidationError{Field: field, Message: fmt.Sprintf("must be a list, got %T", v)}
	}
}

func suggestedEdit(item any, variant Variant, i int) (SuggestedEdit, error) {
	field := fmt.Sprintf("suggestedEdits[%d]", i)

	if variant == VariantPlain {
		s, ok := item.(string)
		if !ok {
			return SuggestedEdit{}, &ValidationError{Field: field, Message: fmt.Sprintf("must be text, got %T", item)}
		}
		return SuggestedEdit{Edit: s}, nil
	}

	obj, ok := item.(map[string]any)
	if !ok {
		return SuggestedEdit{}, &ValidationError{Field: field, Message: fmt.Sprintf("must be an object, got %T", item)}
	}
	edit, err := text(obj, "edit")
	if err != nil {
		return SuggestedEdit{}, &ValidationError{Field: field + ".edit", Message: err.(*ValidationError).Message}
	}
	out := SuggestedEdit{Edit: edit}
	if r, present := obj["reason"]; present && r != nil {
		reason, ok := r.(string)
		if !ok {
			return SuggestedEdit{}, &ValidationError{Field: field + ".reason", Message: fmt.Sprintf("must be text, got %T", r)}
		}
		out.Reason = reason
	}
	return out, nil
}
