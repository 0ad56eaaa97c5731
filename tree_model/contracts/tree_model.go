package contracts

import "github.com/meysamhadeli/codai-scope/tree_model/models"

type ITreeModel interface {
	Load(root *models.TreeNode)
	Root() *models.TreeNode
	Find(path string) *models.TreeNode
	CollectDescendantPaths(path string) []string
	AllPaths() []string
	Files() []string
	VisibleNodes(isExpanded func(path string) bool, maxDepth int) []models.VisibleNode
}
