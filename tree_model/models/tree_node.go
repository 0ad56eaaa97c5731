package models

// NodeType distinguishes files from directories in the tree.
type NodeType string

const (
	File NodeType = "file"
	Dir  NodeType = "dir"
)

// TreeNode is one entry of the project hierarchy. Paths are slash separated and unique.
type TreeNode struct {
	Path      string      `json:"path"`
	Name      string      `json:"name"`
	Type      NodeType    `json:"type"`
	Children  []*TreeNode `json:"children,omitempty"`
	FileCount *int        `json:"file_count,omitempty"`
}

func (n *TreeNode) IsDir() bool {
	return n.Type == Dir
}

// VisibleNode is a node paired with its display depth.
type VisibleNode struct {
	Node  *TreeNode
	Depth int
}
