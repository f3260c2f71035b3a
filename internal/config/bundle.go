package config

// FileTypeConfig describes one named bundle of file types.
type FileTypeConfig struct {
	Extensions    []string `yaml:"extensions"`
	IncludeNames  []string `yaml:"include_names"`
	MaxFileSizeKB int      `yaml:"max_file_size_kb"`
}

// BundlingConfig configures the file bundler.
type BundlingConfig struct {
	// Named file-type groups selectable with --type
	Types map[string]FileTypeConfig `yaml:"types"`

	// Directory names skipped during workspace walks
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// DefaultBundlingConfig returns the built-in file-type catalog.
func DefaultBundlingConfig() BundlingConfig {
	return BundlingConfig{
		Types: map[string]FileTypeConfig{
			"python": {
				Extensions:    []string{".py", ".pyi"},
				IncludeNames:  []string{"requirements.txt", "pyproject.toml", "setup.py"},
				MaxFileSizeKB: 500,
			},
			"go": {
				Extensions:    []string{".go"},
				IncludeNames:  []string{"go.mod", "go.sum"},
				MaxFileSizeKB: 500,
			},
			"web": {
				Extensions:    []string{".js", ".jsx", ".ts", ".tsx", ".html", ".css"},
				IncludeNames:  []string{"package.json", "tsconfig.json"},
				MaxFileSizeKB: 500,
			},
			"rust": {
				Extensions:    []string{".rs"},
				IncludeNames:  []string{"Cargo.toml"},
				MaxFileSizeKB: 500,
			},
			"docs": {
				Extensions:    []string{".md", ".rst", ".txt"},
				MaxFileSizeKB: 500,
			},
			"config": {
				Extensions:    []string{".yaml", ".yml", ".toml", ".json", ".ini"},
				IncludeNames:  []string{"Dockerfile", "Makefile"},
				MaxFileSizeKB: 500,
			},
		},
		ExcludeDirs: []string{
			".git", ".graft", "node_modules", "__pycache__", ".venv", "venv",
			"dist", "build", "target", ".idea", ".vscode",
		},
	}
}

// TypeNames returns the configured bundle type names.
func (b BundlingConfig) TypeNames() []string {
	names := make([]string, 0, len(b.Types))
	for name := range b.Types {
		names = append(names, name)
	}
	return names
}
