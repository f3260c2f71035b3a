package agent

import (
	"fmt"
	"strings"
)

// Feedback synthesizes the next round's message from a round outcome.
// The text is a pure function of the outcome: successes listed in one
// sentence, every failure getting its own paragraph with the current
// file content fenced for the model to re-read, and a closing
// instruction chosen by what happened.
func Feedback(rr RoundOutcome) string {
	var parts []string

	if len(rr.Applied) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Successfully applied changes to: %s.", strings.Join(rr.Applied, ", ")))
	}

	if len(rr.Failed) > 0 {
		for _, f := range rr.Failed {
			parts = append(parts, fmt.Sprintf(
				"FAILED to apply edit to %s: %s", f.Path, f.Error))
			if f.Snippet != "" {
				parts = append(parts, fmt.Sprintf(
					"Current content of %s:\n```\n%s\n```", f.Path, f.Snippet))
			}
		}
		parts = append(parts,
			"Please retry the failed edits with corrected SEARCH content "+
				"that exactly matches the current file content shown above.")
	}

	if len(rr.Applied) == 0 && len(rr.Failed) == 0 {
		parts = append(parts, "Continue with next steps.")
	}
	if len(rr.Applied) > 0 && len(rr.Failed) == 0 {
		parts = append(parts, "Continue with any remaining tasks.")
	}

	return strings.Join(parts, "\n\n")
}
