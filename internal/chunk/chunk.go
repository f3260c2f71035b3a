// Package chunk fits codebases into model context windows. It builds
// signature-level summaries via tree-sitter and splits full file content
// into token-budgeted chunks by greedy bin-packing, highest-priority
// files first.
package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"graft/internal/logging"
	"graft/internal/tokens"
)

// FileSummary is the signature-level digest of one source file.
type FileSummary struct {
	Path            string
	Module          string
	Signatures      []string
	Imports         []string
	LineCount       int
	EstimatedTokens int
}

// Chunk is a group of files whose combined content fits the budget.
type Chunk struct {
	ID              int
	Files           []string
	Content         string
	EstimatedTokens int
	Relevance       float64
}

// Plan is the result of chunking a codebase.
type Plan struct {
	TotalFiles      int
	TotalTokens     int
	TokenBudget     int
	Chunks          []Chunk
	Summary         string
}

// ScoredFile pairs a path with its packing priority.
type ScoredFile struct {
	Path  string
	Score float64
}

// defaultBudget is 70% of the default 128k context window.
const defaultBudget = 89600

// Chunker summarizes and packs source trees.
type Chunker struct {
	budget int
}

// New creates a chunker. A non-positive budget falls back to 70% of the
// default context window.
func New(tokenBudget int) *Chunker {
	if tokenBudget <= 0 {
		tokenBudget = defaultBudget
	}
	return &Chunker{budget: tokenBudget}
}

// BudgetFor returns 70% of a model's context window.
func BudgetFor(contextWindow int) int {
	if contextWindow <= 0 {
		return defaultBudget
	}
	return contextWindow * 7 / 10
}

// SummarizeFile digests a single file. Read failures yield an empty
// summary carrying only the path; unparseable sources keep their line and
// token counts with no signatures.
func (c *Chunker) SummarizeFile(path string) FileSummary {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileSummary{Path: path}
	}
	source := string(data)

	summary := FileSummary{
		Path:            path,
		Module:          strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		LineCount:       len(strings.Split(source, "\n")),
		EstimatedTokens: tokens.EstimateTokens(source),
	}

	if extract := extractorFor(path); extract != nil {
		ex := extract(data)
		summary.Signatures = ex.signatures
		summary.Imports = ex.imports
	}
	return summary
}

// SummarizeCodebase builds a one-shot markdown overview of all source
// files under paths, truncated to the token budget.
func (c *Chunker) SummarizeCodebase(paths []string) string {
	timer := logging.StartTimer(logging.CategoryChunk, "Summarize codebase")
	defer timer.Stop()

	files := c.discover(paths)
	summaries := make([]FileSummary, 0, len(files))
	for _, f := range files {
		summaries = append(summaries, c.SummarizeFile(f))
	}

	totalLines := 0
	for _, s := range summaries {
		totalLines += s.LineCount
	}

	var lines []string
	lines = append(lines, "# Codebase Summary", "")
	lines = append(lines, fmt.Sprintf("**Files**: %d", len(summaries)))
	lines = append(lines, fmt.Sprintf("**Total lines**: %d", totalLines), "")

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Path < summaries[j].Path })
	for _, s := range summaries {
		lines = append(lines, "## "+s.Path)
		if len(s.Imports) > 0 {
			shown := s.Imports
			if len(shown) > 5 {
				shown = shown[:5]
			}
			lines = append(lines, "  Imports: "+strings.Join(shown, ", "))
		}
		for _, sig := range s.Signatures {
			lines = append(lines, "  - "+sig)
		}
		lines = append(lines, "")
	}

	result := strings.Join(lines, "\n")
	if tokens.EstimateTokens(result) > c.budget {
		result = truncateToBudget(result, c.budget)
	}
	logging.Chunk("Summarized %d files (%d lines)", len(summaries), totalLines)
	return result
}

// ChunkCodebase packs full file contents into budget-sized chunks,
// highest-priority files first.
func (c *Chunker) ChunkCodebase(paths []string) Plan {
	timer := logging.StartTimer(logging.CategoryChunk, "Chunk codebase")
	defer timer.Stop()

	files := c.discover(paths)
	plan := Plan{TokenBudget: c.budget}
	if len(files) == 0 {
		return plan
	}
	plan.TotalFiles = len(files)

	scored := PrioritizeFiles(files)
	current := Chunk{}
	for _, sf := range scored {
		data, err := os.ReadFile(sf.Path)
		if err != nil {
			continue
		}
		content := string(data)
		cost := tokens.EstimateTokens(content)

		if current.EstimatedTokens+cost > c.budget && len(current.Files) > 0 {
			plan.Chunks = append(plan.Chunks, current)
			current = Chunk{ID: len(plan.Chunks)}
		}

		current.Files = append(current.Files, sf.Path)
		current.Content += fmt.Sprintf("\n===== FILE: %s =====\n%s\n", sf.Path, content)
		current.EstimatedTokens += cost
		if sf.Score > current.Relevance {
			current.Relevance = sf.Score
		}
	}
	if len(current.Files) > 0 {
		plan.Chunks = append(plan.Chunks, current)
	}

	for _, ch := range plan.Chunks {
		plan.TotalTokens += ch.EstimatedTokens
	}
	plan.Summary = fmt.Sprintf("%d chunks, %d tokens total", len(plan.Chunks), plan.TotalTokens)
	logging.Chunk("Planned %s across %d files", plan.Summary, plan.TotalFiles)
	return plan
}

// PrioritizeFiles scores paths 0.4*centrality + 0.3*recency + 0.3*(1-size)
// and returns them highest first. Unstattable files score as old and empty.
func PrioritizeFiles(paths []string) []ScoredFile {
	if len(paths) == 0 {
		return nil
	}

	type stat struct {
		path  string
		mtime int64
		size  int64
	}
	stats := make([]stat, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			stats = append(stats, stat{path: p})
			continue
		}
		stats = append(stats, stat{path: p, mtime: info.ModTime().Unix(), size: info.Size()})
	}

	minMt, maxMt := stats[0].mtime, stats[0].mtime
	var maxSize int64
	for _, s := range stats {
		if s.mtime < minMt {
			minMt = s.mtime
		}
		if s.mtime > maxMt {
			maxMt = s.mtime
		}
		if s.size > maxSize {
			maxSize = s.size
		}
	}
	mtRange := float64(maxMt - minMt)
	if mtRange <= 0 {
		mtRange = 1
	}
	if maxSize == 0 {
		maxSize = 1
	}

	scored := make([]ScoredFile, 0, len(stats))
	for _, s := range stats {
		centrality := centralityOf(s.path)
		recency := float64(s.mtime-minMt) / mtRange
		sizeScore := 1.0 - float64(s.size)/float64(maxSize)
		scored = append(scored, ScoredFile{
			Path:  s.path,
			Score: 0.4*centrality + 0.3*recency + 0.3*sizeScore,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

// centralityOf estimates how load-bearing a file is from its name alone.
func centralityOf(path string) float64 {
	name := filepath.Base(path)
	switch name {
	case "__init__.py", "main.go":
		return 1.0
	case "models.py", "config.py", "utils.py", "base.py", "types.go", "config.go":
		return 0.8
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if len(stem) < 8 {
		return 0.6
	}
	return 0.5
}

// discover collects summarizable source files from files and directory
// trees, sorted, hidden directories pruned.
func (c *Chunker) discover(paths []string) []string {
	seen := make(map[string]bool)
	var files []string

	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if !seen[abs] && extractorFor(abs) != nil {
			seen[abs] = true
			files = append(files, abs)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if name := d.Name(); strings.HasPrefix(name, ".") && path != p {
					return filepath.SkipDir
				}
				return nil
			}
			add(path)
			return nil
		})
	}
	sort.Strings(files)
	return files
}

// truncateToBudget keeps whole lines until the budget is spent, closing
// with an elision marker.
func truncateToBudget(text string, budget int) string {
	var kept []string
	used := 0
	for _, line := range strings.Split(text, "\n") {
		cost := tokens.EstimateTokens(line)
		if used+cost > budget {
			kept = append(kept, "... (truncated to fit token budget)")
			break
		}
		kept = append(kept, line)
		used += cost
	}
	return strings.Join(kept, "\n")
}
