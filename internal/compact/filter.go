package compact

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// SkipDirs are directory names whose contents are never compacted.
var SkipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	".git":         true,
	"target":       true,
	"build":        true,
	".next":        true,
	".turbo":       true,
	"out":          true,
	"coverage":     true,
	".cache":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".idea":        true,
	".vscode":      true,
	".digest":      true,
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Filter decides which listed files are eligible for compaction.
type Filter struct {
	ignorePatterns []compiledPattern
	supports       func(path string) bool
}

// NewFilter compiles ignore globs (matched against root-relative,
// slash-separated paths). supports reports whether some extractor
// backend recognizes a path.
func NewFilter(ignorePatterns []string, supports func(path string) bool) (*Filter, error) {
	f := &Filter{supports: supports}
	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		f.ignorePatterns = append(f.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}
	return f, nil
}

// Apply drops directories, files under skipped directories, ignored files
// and unsupported files. Input order is kept.
func (f *Filter) Apply(root string, files []FileEntry) []FileEntry {
	var kept []FileEntry
	for _, file := range files {
		if file.IsDir {
			continue
		}
		rel := relativePath(root, file.Path)
		if inSkippedDir(rel) || f.shouldIgnore(rel) {
			continue
		}
		if f.supports != nil && !f.supports(file.Path) {
			continue
		}
		kept = append(kept, file)
	}
	return kept
}

// inSkippedDir reports whether any segment of path is a skipped directory.
func inSkippedDir(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if SkipDirs[part] {
			return true
		}
	}
	return false
}

// shouldIgnore checks if a path matches any ignore pattern.
func (f *Filter) shouldIgnore(relPath string) bool {
	if f.matchesAnyPattern(relPath) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix
	// For example, "generated" should match pattern "generated/**"
	return f.matchesAnyPattern(relPath + "/**")
}

// matchesAnyPattern checks if a path matches any of the ignore patterns.
func (f *Filter) matchesAnyPattern(path string) bool {
	for _, cp := range f.ignorePatterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Root-level paths also match "**/" patterns with the prefix removed,
	// so "**/*.gen.ts" matches both "a.gen.ts" and "src/a.gen.ts".
	if !strings.Contains(path, "/") {
		for _, cp := range f.ignorePatterns {
			if !strings.HasPrefix(cp.pattern, "**/") {
				continue
			}
			simplified := strings.TrimPrefix(cp.pattern, "**/")
			if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(path) {
				return true
			}
		}
	}
	return false
}

// relativePath returns path relative to root with forward slashes. Paths
// outside root are returned unchanged apart from separators.
func relativePath(root, path string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}
