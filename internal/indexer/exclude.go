package indexer

import (
	"path"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExcludes are glob patterns matched against individual path
// components and skipped during directory indexing
var DefaultExcludes = []string{
	"__pycache__",
	"*.egg-info",
	"node_modules",
	"build",
	"dist",
	"venv",
	".venv",
}

// shouldExclude reports whether a relative path should be skipped.
// Any dot-prefixed component excludes the path, as does any component
// matching one of the patterns.
func shouldExclude(rel string, patterns []string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
		for _, pattern := range patterns {
			if ok, _ := path.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

// loadGitignore compiles the project root .gitignore, if present
func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
