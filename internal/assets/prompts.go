// Package assets embeds the prompt templates sent to Gemini.
//
// Prompts are stored as text files under prompts/ so they can be tuned without
// touching the request code.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

// --- Static prompts ---

// CritiqueSystemPrompt sets the reviewer persona and output rules for analysis.
//
//go:embed prompts/critique-system.txt
var CritiqueSystemPrompt string

// CritiquePlainPrompt requests three plain-string edits and no projected rating.
//
//go:embed prompts/critique-plain.txt
var CritiquePlainPrompt string

// CritiqueDetailedPrompt requests {edit, reason} pairs plus a projected rating.
//
//go:embed prompts/critique-detailed.txt
var CritiqueDetailedPrompt string

// EditSystemPrompt constrains the image model to the reviewer's edits.
//
//go:embed prompts/edit-system.txt
var EditSystemPrompt string

// --- Dynamic prompt templates ---

//go:embed prompts/edit-instruction.txt
var editInstructionTemplate string

// template.Must panics on a malformed template at startup rather than per request.
var editInstructionTmpl = template.Must(template.New("edit").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(editInstructionTemplate))

// EditLine is one reviewer edit injected into the edit prompt.
type EditLine struct {
	Edit   string
	Reason string
}

// EditPromptData holds the dynamic data for the edit instruction template.
type EditPromptData struct {
	Rating         float64
	OverallComment string
	Edits          []EditLine
	AspectRatio    string
}

// RenderEditInstruction renders the instruction sent alongside the photo to the
// image model.
func RenderEditInstruction(data EditPromptData) string {
	var buf bytes.Buffer
	// Execution errors are not expected with this template; return what rendered.
	_ = editInstructionTmpl.Execute(&buf, data)
	return buf.String()
}
