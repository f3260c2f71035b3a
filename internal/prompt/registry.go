package prompt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Registry indexes prompts and skills discovered on disk. Two locations
// are scanned, workspace first: <workspace>/.graft/<kind> then
// ~/.graft/<kind>. A workspace entry shadows a user entry of the same
// name.
type Registry struct {
	workspace string
	entries   map[string]Metadata
}

// promptFile and skillFile are the per-directory manifest names.
const (
	promptFile = "PROMPT.md"
	skillFile  = "SKILL.md"
)

// NewPromptRegistry discovers system-prompt profiles under
// .graft/prompts directories.
func NewPromptRegistry(workspace string) *Registry {
	return discover(workspace, "prompts", promptFile)
}

// NewSkillRegistry discovers skills under .graft/skills directories.
func NewSkillRegistry(workspace string) *Registry {
	return discover(workspace, "skills", skillFile)
}

func discover(workspace, kind, manifest string) *Registry {
	r := &Registry{workspace: workspace, entries: make(map[string]Metadata)}

	var roots []string
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".graft", kind))
	}
	if workspace != "" {
		roots = append(roots, filepath.Join(workspace, ".graft", kind))
	}

	// Later roots shadow earlier ones, so the workspace scan runs last.
	for _, root := range roots {
		dirs, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, dir := range dirs {
			if !dir.IsDir() {
				continue
			}
			path := filepath.Join(root, dir.Name(), manifest)
			if meta, ok := LoadMetadata(path); ok {
				r.entries[meta.Name] = meta
			}
		}
	}
	return r
}

// Get returns the metadata for a name.
func (r *Registry) Get(name string) (Metadata, bool) {
	meta, ok := r.entries[name]
	return meta, ok
}

// List returns all entries sorted by name.
func (r *Registry) List() []Metadata {
	list := make([]Metadata, 0, len(r.entries))
	for _, meta := range r.entries {
		list = append(list, meta)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// LoadBody returns the body of a named entry with {agent_name}
// substituted.
func (r *Registry) LoadBody(name, agentName string) (string, bool) {
	meta, ok := r.entries[name]
	if !ok {
		return "", false
	}
	content, ok := LoadFull(meta.SourcePath)
	if !ok {
		return "", false
	}
	body := content.Body
	if agentName != "" {
		body = strings.ReplaceAll(body, "{agent_name}", agentName)
	}
	return body, true
}
