package tree_model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFileName is the per-project file holding extra ignore globs, one per line.
const IgnoreFileName = ".codai-scope-ignore"

var defaultIgnored = []string{
	".git",
	".svn",
	".idea",
	".vscode",
	".cache",
	"node_modules",
	"bin",
	"obj",
	"dist",
	"out",
	"__pycache__",
	"*.exe",
	"*.dll",
	"*.log",
	"*.bak",
	"*.tmp",
	"*.mp3",
	"*.wav",
	"*.flac",
	"*.jpg",
	"*.jpeg",
	"*.png",
	"*.gif",
	"*.mp4",
	"*.mov",
}

// GetIgnorePatterns reads the ignore file in rootDir. A missing file yields no patterns.
func GetIgnorePatterns(rootDir string) ([]string, error) {
	content, err := os.ReadFile(filepath.Join(rootDir, IgnoreFileName))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !doublestar.ValidatePattern(line) {
			return nil, fmt.Errorf("invalid ignore pattern %q", line)
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

// IsDefaultIgnored reports whether any segment of a slash path matches a built-in ignore entry.
func IsDefaultIgnored(relativePath string) bool {
	for _, part := range strings.Split(relativePath, "/") {
		part = strings.ToLower(part)
		for _, pattern := range defaultIgnored {
			if match, _ := doublestar.Match(pattern, part); match {
				return true
			}
		}
	}
	return false
}

// IsIgnored reports whether a slash path matches one of the user patterns. A trailing "/"
// ignores the whole directory.
func IsIgnored(relativePath string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			dir := strings.TrimSuffix(pattern, "/")
			if relativePath == dir || strings.HasPrefix(relativePath, pattern) {
				return true
			}
			continue
		}
		if match, _ := doublestar.Match(pattern, relativePath); match {
			return true
		}
		// Patterns without a slash match the base name anywhere, like .gitignore.
		if !strings.Contains(pattern, "/") {
			if match, _ := doublestar.Match(pattern, filepath.Base(relativePath)); match {
				return true
			}
		}
	}
	return false
}
