// Package prompt loads system-prompt profiles and skills from markdown
// files with YAML front matter, and assembles the full prompt sent on the
// first agent round.
package prompt

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata is the front-matter header of a PROMPT.md or SKILL.md file.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	AutoApply   bool   `yaml:"auto_apply"`
	Meta        struct {
		Author   string `yaml:"author"`
		Version  string `yaml:"version"`
		Category string `yaml:"category"`
	} `yaml:"metadata"`
	SourcePath string `yaml:"-"`
}

// Content is a fully loaded prompt or skill: metadata plus body, plus any
// reference documents sitting next to a skill.
type Content struct {
	Metadata   Metadata
	Body       string
	References map[string]string
}

// LoadMetadata reads only the front matter of a markdown file. Missing
// files, missing front matter, and malformed YAML all return ok=false;
// discovery treats those files as absent.
func LoadMetadata(path string) (Metadata, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, false
	}
	front, _, ok := splitFrontMatter(string(data))
	if !ok {
		return Metadata{}, false
	}

	var meta Metadata
	if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
		return Metadata{}, false
	}
	if meta.Name == "" {
		meta.Name = filepath.Base(filepath.Dir(path))
	}
	meta.SourcePath = path
	return meta, true
}

// LoadFull reads front matter, body, and any references/ directory next
// to the file.
func LoadFull(path string) (Content, bool) {
	meta, ok := LoadMetadata(path)
	if !ok {
		return Content{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Content{}, false
	}
	_, body, ok := splitFrontMatter(string(data))
	if !ok {
		return Content{}, false
	}

	content := Content{Metadata: meta, Body: strings.TrimSpace(body)}

	refsDir := filepath.Join(filepath.Dir(path), "references")
	if entries, err := os.ReadDir(refsDir); err == nil {
		content.References = make(map[string]string)
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if refData, err := os.ReadFile(filepath.Join(refsDir, entry.Name())); err == nil {
				content.References[entry.Name()] = string(refData)
			}
		}
	}
	return content, true
}

// splitFrontMatter separates a leading "---\n...\n---\n" block from the
// body. The document must start with the opening delimiter.
func splitFrontMatter(text string) (front, body string, ok bool) {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return "", "", false
	}
	rest := normalized[4:]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		// Front matter closing at EOF without a trailing newline.
		if strings.HasSuffix(rest, "\n---") {
			return rest[:len(rest)-4], "", true
		}
		return "", "", false
	}
	return rest[:idx], rest[idx+5:], true
}
