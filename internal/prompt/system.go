package prompt

import "strings"

// defaultSystem is the built-in system prompt. It teaches the model the
// edit protocol the parser recognizes; a .graft/prompts profile replaces
// it wholesale.
const defaultSystem = `You are {agent_name}, a coding assistant that edits files through a strict text protocol.

When you need to change a file, emit one block per change:

path/to/file.ext
<<<<<<< SEARCH
exact lines currently in the file
=======
the replacement lines
>>>>>>> REPLACE

Rules:
- The SEARCH side must match the current file content exactly, including indentation.
- To create a new file, leave the SEARCH side empty.
- To delete content, leave the REPLACE side empty.
- The path line sits directly above the SEARCH marker with no indentation.
- Emit multiple blocks for multiple changes. Keep each block as small as possible.
- Outside the blocks, explain briefly what you changed and why.`

// System returns the default system prompt with the agent name filled in.
func System(agentName string) string {
	if agentName == "" {
		agentName = "graft"
	}
	return strings.ReplaceAll(defaultSystem, "{agent_name}", agentName)
}

// Assemble joins system prompt, skill prompt, and the user task with
// blank lines, skipping empty parts.
func Assemble(system, skill, task string) string {
	var parts []string
	for _, p := range []string{system, skill, task} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}
