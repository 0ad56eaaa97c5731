package models

// ExcludeAll is the sentinel entry of the excluded set meaning "everything is excluded".
const ExcludeAll = "."

// ExternalFile is content ingested from outside the tree, keyed by Path.
type ExternalFile struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Summary string `json:"summary,omitempty"`
}

// ScopeSnapshot is a detached copy of the scope taken when a request is issued.
type ScopeSnapshot struct {
	ExcludedPaths []string       `json:"excludedPaths"`
	CentralFiles  []string       `json:"centralFiles"`
	ExternalFiles []ExternalFile `json:"externalFiles"`
	ExpandedDirs  []string       `json:"expandedDirs"`
}
