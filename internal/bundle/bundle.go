// Package bundle discovers, classifies, and concatenates workspace files
// into per-type upload bundles.
//
// Inputs may be literal file paths, directories, or glob patterns.
// Directories are walked with the configured exclusion list applied to
// directory names; binary files and files over the per-type size cap are
// skipped. Each bundle is the files of one configured type joined into a
// single marked-up string ready for upload.
package bundle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"graft/internal/config"
	"graft/internal/logging"
	"graft/internal/tokens"

	"golang.org/x/sync/errgroup"
)

const (
	// binarySniffBytes is how much of a file head is scanned for NUL bytes.
	binarySniffBytes = 8192

	maxConcurrentReads = 8
)

// FileBundle is the assembled content of one file type.
type FileBundle struct {
	FileType        string
	Content         string
	FileCount       int
	FilePaths       []string
	EstimatedTokens int
}

// Bundler discovers and bundles files according to the bundling config.
type Bundler struct {
	cfg       config.BundlingConfig
	base      string
	typeNames []string
}

// New creates a bundler rooted at baseDir. Relative paths inside bundle
// markers are computed against baseDir.
func New(cfg config.BundlingConfig, baseDir string) *Bundler {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}

	names := make([]string, 0, len(cfg.Types))
	for name := range cfg.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Bundler{cfg: cfg, base: baseDir, typeNames: names}
}

// Classify returns the configured type name for a file, or "" when no
// type claims it. An exact filename match (go.mod, Makefile) wins over an
// extension match so manifests land with their language rather than the
// generic config type.
func (b *Bundler) Classify(path string) string {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	for _, typeName := range b.typeNames {
		for _, n := range b.cfg.Types[typeName].IncludeNames {
			if name == n {
				return typeName
			}
		}
	}
	if ext == "" {
		return ""
	}
	for _, typeName := range b.typeNames {
		for _, e := range b.cfg.Types[typeName].Extensions {
			if ext == e {
				return typeName
			}
		}
	}
	return ""
}

// Discover expands the given inputs into classified absolute file paths.
// Returns {type: files} plus the inputs that matched nothing.
func (b *Bundler) Discover(paths []string, fileType string) (map[string][]string, []string) {
	result := make(map[string][]string)
	seen := make(map[string]bool)
	var unmatched []string

	for _, raw := range paths {
		matches, err := filepath.Glob(raw)
		if err != nil || len(matches) == 0 {
			if info, statErr := os.Stat(raw); statErr == nil {
				if info.IsDir() {
					b.walkDir(raw, result, seen, fileType)
				} else {
					b.addFile(raw, result, seen, fileType)
				}
			} else {
				unmatched = append(unmatched, raw)
			}
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				continue
			}
			if info.IsDir() {
				b.walkDir(m, result, seen, fileType)
			} else {
				b.addFile(m, result, seen, fileType)
			}
		}
	}

	return result, unmatched
}

// walkDir walks a directory tree, pruning excluded directory names.
func (b *Bundler) walkDir(root string, result map[string][]string, seen map[string]bool, fileType string) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.BundleDebug("Skipping unreadable entry %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if b.excludedDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		b.addFile(path, result, seen, fileType)
		return nil
	})
}

func (b *Bundler) excludedDir(name string) bool {
	for _, pattern := range b.cfg.ExcludeDirs {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// addFile classifies and filters a single file, recording it under its
// type when it passes.
func (b *Bundler) addFile(path string, result map[string][]string, seen map[string]bool, fileType string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if seen[abs] {
		return
	}

	ft := b.Classify(abs)
	if ft == "" {
		return
	}
	if fileType != "" && fileType != "all" && ft != fileType {
		return
	}

	if maxKB := b.cfg.Types[ft].MaxFileSizeKB; maxKB > 0 {
		info, err := os.Stat(abs)
		if err != nil {
			return
		}
		if info.Size() > int64(maxKB)*1024 {
			logging.BundleDebug("Skipping oversized file %s (%d bytes, cap %d KiB)", abs, info.Size(), maxKB)
			return
		}
	}

	if isBinary(abs) {
		logging.BundleDebug("Skipping binary file %s", abs)
		return
	}

	seen[abs] = true
	result[ft] = append(result[ft], abs)
}

// isBinary samples the head of a file and reports whether it contains a
// NUL byte. Unreadable files count as binary so they are skipped.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, binarySniffBytes)
	n, _ := io.ReadFull(f, buf)
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// Bundle discovers files for the given inputs and assembles one bundle
// per file type. Bundles are ordered by type name and files within a
// bundle by path, so repeated runs produce identical output.
func (b *Bundler) Bundle(ctx context.Context, paths []string, fileType string) ([]FileBundle, []string, error) {
	timer := logging.StartTimer(logging.CategoryBundle, "Bundle")
	defer timer.Stop()

	discovered, unmatched := b.Discover(paths, fileType)

	typeNames := make([]string, 0, len(discovered))
	for name := range discovered {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	var bundles []FileBundle
	for _, ft := range typeNames {
		files := discovered[ft]
		sort.Strings(files)

		content, err := b.assemble(ctx, files)
		if err != nil {
			return nil, nil, err
		}

		bundles = append(bundles, FileBundle{
			FileType:        ft,
			Content:         content,
			FileCount:       len(files),
			FilePaths:       files,
			EstimatedTokens: tokens.EstimateTokens(content),
		})
	}

	logging.Bundle("Bundled %d file types from %d inputs (%d unmatched)",
		len(bundles), len(paths), len(unmatched))
	return bundles, unmatched, nil
}

// assemble reads files concurrently and joins their sections in input
// order. Files that disappear between discovery and read are skipped.
func (b *Bundler) assemble(ctx context.Context, files []string) (string, error) {
	parts := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			data, err := os.ReadFile(path)
			if err != nil {
				logging.BundleDebug("Skipping unreadable file %s: %v", path, err)
				return nil
			}
			parts[i] = b.formatSection(path, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n"), nil
}

// formatSection renders one file as a marked bundle section.
func (b *Bundler) formatSection(path string, data []byte) string {
	rel, err := filepath.Rel(b.base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}
	content := strings.ToValidUTF8(string(data), "�")
	return fmt.Sprintf("===== FILE: %s =====\nRelative Path: %s\n\n%s", path, rel, content)
}
