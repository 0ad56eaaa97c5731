package scope_store

import (
	"sort"
	"strings"

	"github.com/meysamhadeli/codai-scope/scope_store/contracts"
	"github.com/meysamhadeli/codai-scope/scope_store/models"
	tree_contracts "github.com/meysamhadeli/codai-scope/tree_model/contracts"
)

// ScopeStore is the source of truth for what a query is evaluated against.
// It is not safe for concurrent use; the session serialises access.
//
// Exclusion is kept as rules: path -> excluded. A path takes the rule of its deepest
// ruled ancestor-or-self, with "." as the rule for the whole repository, so paths that
// appear after a rule was written inherit it.
type ScopeStore struct {
	tree          tree_contracts.ITreeModel
	rules         map[string]bool
	centralFiles  []string
	externalFiles []models.ExternalFile
	expandedDirs  map[string]struct{}
}

// NewScopeStore starts in the opt-in state: everything excluded.
func NewScopeStore(tree tree_contracts.ITreeModel) contracts.IScopeStore {
	return &ScopeStore{
		tree:         tree,
		rules:        map[string]bool{models.ExcludeAll: true},
		expandedDirs: make(map[string]struct{}),
	}
}

// IsExcluded reports whether path falls under an exclusion that no deeper include overrides.
func (s *ScopeStore) IsExcluded(path string) bool {
	return isExcluded(s.rules, path)
}

// IsInScope is the pin-aware check every context filter must use.
func (s *ScopeStore) IsInScope(path string) bool {
	return s.IsCentral(path) || !s.IsExcluded(path)
}

// SetIncluded cascades an include or exclude over path and all its descendants. The new
// rules are built on a copy and swapped in, so callers never see a half-applied toggle.
func (s *ScopeStore) SetIncluded(path string, included bool) {
	next := make(map[string]bool, len(s.rules)+1)
	for p, excluded := range s.rules {
		if !covers(path, p) {
			next[p] = excluded
		}
	}
	if isExcluded(next, path) != !included {
		next[path] = !included
	}
	s.rules = next
}

// SelectAll clears every exclusion, or excludes every tree path. The exclusion form also
// keeps the "." rule so paths outside the tree are covered too.
func (s *ScopeStore) SelectAll(included bool) {
	if included {
		s.rules = make(map[string]bool)
		return
	}

	next := map[string]bool{models.ExcludeAll: true}
	for _, p := range s.tree.AllPaths() {
		next[p] = true
	}
	s.rules = next
}

func (s *ScopeStore) PinCentral(path string) {
	if s.IsCentral(path) {
		return
	}
	s.centralFiles = append(s.centralFiles, path)
}

func (s *ScopeStore) UnpinCentral(path string) {
	filtered := s.centralFiles[:0:0]
	for _, p := range s.centralFiles {
		if p != path {
			filtered = append(filtered, p)
		}
	}
	s.centralFiles = filtered
}

func (s *ScopeStore) IsCentral(path string) bool {
	for _, p := range s.centralFiles {
		if p == path {
			return true
		}
	}
	return false
}

// CentralFiles returns the pinned files in pin order.
func (s *ScopeStore) CentralFiles() []string {
	return append([]string(nil), s.centralFiles...)
}

// IngestExternal adds file unless one with the same path exists. It reports whether it was added.
func (s *ScopeStore) IngestExternal(file models.ExternalFile) bool {
	for _, existing := range s.externalFiles {
		if existing.Path == file.Path {
			return false
		}
	}
	s.externalFiles = append(s.externalFiles, file)
	return true
}

func (s *ScopeStore) RemoveExternal(path string) bool {
	filtered := s.externalFiles[:0:0]
	for _, f := range s.externalFiles {
		if f.Path != path {
			filtered = append(filtered, f)
		}
	}
	removed := len(filtered) != len(s.externalFiles)
	s.externalFiles = filtered
	return removed
}

func (s *ScopeStore) ExternalFiles() []models.ExternalFile {
	return append([]models.ExternalFile(nil), s.externalFiles...)
}

func (s *ScopeStore) ToggleExpanded(path string) {
	if _, ok := s.expandedDirs[path]; ok {
		delete(s.expandedDirs, path)
		return
	}
	s.expandedDirs[path] = struct{}{}
}

func (s *ScopeStore) IsExpanded(path string) bool {
	_, ok := s.expandedDirs[path]
	return ok
}

// IncludedFiles lists the files a query runs against: in-scope tree files, then pinned
// files outside the tree, then external files.
func (s *ScopeStore) IncludedFiles() []string {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, p := range s.tree.Files() {
		if s.IsInScope(p) {
			add(p)
		}
	}
	for _, p := range s.centralFiles {
		add(p)
	}
	for _, f := range s.externalFiles {
		add(f.Path)
	}
	return files
}

// Snapshot returns a detached copy of the scope. ExcludedPaths is in the backend's form,
// where any listed path excludes its whole subtree; see excludedPaths.
func (s *ScopeStore) Snapshot() models.ScopeSnapshot {
	return models.ScopeSnapshot{
		ExcludedPaths: s.excludedPaths(),
		CentralFiles:  s.CentralFiles(),
		ExternalFiles: s.ExternalFiles(),
		ExpandedDirs:  sortedKeys(s.expandedDirs),
	}
}

// excludedPaths flattens the rules into plain exclusions. An excluded rule with no include
// beneath it is listed as is. Otherwise it is replaced by its excluded children in the
// current tree, recursively. A rule whose subtree is not in the tree is listed as is, so an
// include the tree cannot resolve never widens what the backend scans.
func (s *ScopeStore) excludedPaths() []string {
	set := make(map[string]struct{})

	var emit func(path string)
	emit = func(path string) {
		if !s.hasIncludeUnder(path) {
			set[path] = struct{}{}
			return
		}
		node := s.tree.Find(path)
		if path == models.ExcludeAll {
			node = s.tree.Root()
		}
		if node == nil {
			set[path] = struct{}{}
			return
		}
		for _, child := range node.Children {
			if _, ruled := s.rules[child.Path]; ruled {
				continue
			}
			emit(child.Path)
		}
	}

	for p, excluded := range s.rules {
		if excluded {
			emit(p)
		}
	}
	return sortedKeys(set)
}

func (s *ScopeStore) hasIncludeUnder(path string) bool {
	for p, excluded := range s.rules {
		if !excluded && p != path && covers(path, p) {
			return true
		}
	}
	return false
}

// isExcluded applies the rule of the deepest ruled ancestor-or-self of path.
func isExcluded(rules map[string]bool, path string) bool {
	if excluded, ok := rules[path]; ok {
		return excluded
	}
	candidates := ancestors(path)
	for i := len(candidates) - 1; i >= 0; i-- {
		if excluded, ok := rules[candidates[i]]; ok {
			return excluded
		}
	}
	return rules[models.ExcludeAll]
}

// covers reports whether p is root itself or lies beneath it.
func covers(root string, p string) bool {
	return root == models.ExcludeAll || p == root || strings.HasPrefix(p, root+"/")
}

// ancestors returns the proper slash-prefixes of path, outermost first.
func ancestors(path string) []string {
	var result []string
	for i := 0; i < len(path); i++ {
		if path[i] == '/' && i > 0 {
			result = append(result, path[:i])
		}
	}
	return result
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
