package tree_model

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meysamhadeli/codai-scope/tree_model/models"
)

// RootPath is the path given to the root node of a locally loaded tree.
const RootPath = "."

// LoadDirectory walks rootDir and builds a tree of everything not ignored. Paths are
// relative to rootDir and slash separated; the root itself gets RootPath.
func LoadDirectory(rootDir string, extraPatterns []string) (*models.TreeNode, error) {
	patterns, err := GetIgnorePatterns(rootDir)
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, extraPatterns...)

	root := &models.TreeNode{Path: RootPath, Name: filepath.Base(rootDir), Type: models.Dir}
	dirs := map[string]*models.TreeNode{RootPath: root}

	err = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relativePath, err := filepath.Rel(rootDir, path)
		if err != nil {
			return fmt.Errorf("failed to resolve relative path for %s: %w", path, err)
		}
		relativePath = filepath.ToSlash(relativePath)
		if relativePath == "." {
			return nil
		}

		if IsDefaultIgnored(relativePath) || IsIgnored(relativePath, patterns) || relativePath == IgnoreFileName {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		parent := dirs[parentPath(relativePath)]
		if parent == nil {
			// Parent was skipped.
			return nil
		}

		node := &models.TreeNode{Path: relativePath, Name: d.Name(), Type: models.File}
		if d.IsDir() {
			node.Type = models.Dir
			dirs[relativePath] = node
		}
		parent.Children = append(parent.Children, node)

		return nil
	})
	if err != nil {
		return nil, err
	}

	finish(root)
	return root, nil
}

func parentPath(relativePath string) string {
	idx := strings.LastIndex(relativePath, "/")
	if idx < 0 {
		return RootPath
	}
	return relativePath[:idx]
}

// finish orders children dirs first, then by name, and fills in file counts.
func finish(node *models.TreeNode) int {
	if !node.IsDir() {
		return 1
	}

	sort.SliceStable(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return a.Name < b.Name
	})

	count := 0
	for _, child := range node.Children {
		count += finish(child)
	}
	node.FileCount = &count
	return count
}
