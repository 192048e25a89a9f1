package cli

import (
	"fmt"
	"strings"

	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/critique"
)

// FormatSize formats a byte count as B, KB or MB.
func FormatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// FormatCritique renders an analysis for terminal output, with any soft
// warnings appended.
func FormatCritique(a *critique.PhotoAnalysis) string {
	var sb strings.Builder
	sb.WriteString(a.Summary())
	if warnings := a.Warnings(); len(warnings) > 0 {
		sb.WriteString("\nNotes:\n")
		for _, w := range warnings {
			fmt.Fprintf(&sb, "  ! %s\n", w)
		}
	}
	return sb.String()
}

// FormatRatio describes the ratio an image maps to, e.g. "4032x3024 -> 4:3".
func FormatRatio(width, height int, r aspect.Ratio) string {
	return fmt.Sprintf("%dx%d -> %s", width, height, r)
}
