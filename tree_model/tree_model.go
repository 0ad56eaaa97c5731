package tree_model

import (
	"github.com/meysamhadeli/codai-scope/tree_model/contracts"
	"github.com/meysamhadeli/codai-scope/tree_model/models"
)

// TreeModel holds one loaded file hierarchy. A new load replaces everything; nodes are never patched.
type TreeModel struct {
	root  *models.TreeNode
	index map[string]*models.TreeNode
}

// NewTreeModel creates an empty tree model.
func NewTreeModel() contracts.ITreeModel {
	return &TreeModel{index: make(map[string]*models.TreeNode)}
}

// Load replaces the whole tree and rebuilds the path index.
func (tm *TreeModel) Load(root *models.TreeNode) {
	tm.root = root
	tm.index = make(map[string]*models.TreeNode)
	if root == nil {
		return
	}

	walk(root, func(node *models.TreeNode) {
		// First depth-first hit wins, same as a plain DFS search would.
		if _, exists := tm.index[node.Path]; !exists {
			tm.index[node.Path] = node
		}
	})
}

func (tm *TreeModel) Root() *models.TreeNode {
	return tm.root
}

// Find returns the node with exactly this path, or nil.
func (tm *TreeModel) Find(path string) *models.TreeNode {
	return tm.index[path]
}

// CollectDescendantPaths returns path followed by every descendant path in depth-first order.
// Unknown paths are treated as opaque leaves so stale or external paths can still be toggled.
func (tm *TreeModel) CollectDescendantPaths(path string) []string {
	node := tm.Find(path)
	if node == nil {
		return []string{path}
	}

	var paths []string
	walk(node, func(n *models.TreeNode) {
		paths = append(paths, n.Path)
	})
	return paths
}

// AllPaths returns every path of the tree, root first.
func (tm *TreeModel) AllPaths() []string {
	if tm.root == nil {
		return nil
	}
	return tm.CollectDescendantPaths(tm.root.Path)
}

// Files returns all file paths in depth-first order.
func (tm *TreeModel) Files() []string {
	var files []string
	if tm.root == nil {
		return files
	}
	walk(tm.root, func(n *models.TreeNode) {
		if !n.IsDir() {
			files = append(files, n.Path)
		}
	})
	return files
}

// VisibleNodes lists the nodes a tree view shows: the root's children, recursing only into
// expanded directories. maxDepth caps display recursion; zero or less means unlimited.
func (tm *TreeModel) VisibleNodes(isExpanded func(path string) bool, maxDepth int) []models.VisibleNode {
	var visible []models.VisibleNode
	if tm.root == nil {
		return visible
	}

	var visit func(nodes []*models.TreeNode, depth int)
	visit = func(nodes []*models.TreeNode, depth int) {
		for _, child := range nodes {
			visible = append(visible, models.VisibleNode{Node: child, Depth: depth})
			if !child.IsDir() || !isExpanded(child.Path) {
				continue
			}
			if maxDepth > 0 && depth+1 >= maxDepth {
				continue
			}
			visit(child.Children, depth+1)
		}
	}
	visit(tm.root.Children, 0)

	return visible
}

func walk(node *models.TreeNode, fn func(*models.TreeNode)) {
	fn(node)
	for _, child := range node.Children {
		walk(child, fn)
	}
}
