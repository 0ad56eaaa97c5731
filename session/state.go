package session

import (
	reconciler_models "github.com/meysamhadeli/codai-scope/context_reconciler/models"
	hypothesis_models "github.com/meysamhadeli/codai-scope/hypothesis_mapper/models"
	scope_models "github.com/meysamhadeli/codai-scope/scope_store/models"
	tree_models "github.com/meysamhadeli/codai-scope/tree_model/models"
)

// TreeEntry is one visible row of the tree view with its scope state resolved.
type TreeEntry struct {
	Path      string               `json:"path"`
	Name      string               `json:"name"`
	Type      tree_models.NodeType `json:"type"`
	Depth     int                  `json:"depth"`
	FileCount *int                 `json:"file_count,omitempty"`
	Excluded  bool                 `json:"excluded"`
	InScope   bool                 `json:"inScope"`
	Central   bool                 `json:"central"`
	Expanded  bool                 `json:"expanded"`
}

// State is a consistent, detached view of the whole session. Renderers project it; they never
// read the engine directly.
type State struct {
	Tree           []TreeEntry                     `json:"tree"`
	Scope          scope_models.ScopeSnapshot      `json:"scope"`
	Channel        reconciler_models.Channel       `json:"channel"`
	Context        []reconciler_models.ContextItem `json:"context"`
	Selected       []string                        `json:"selected"`
	Hypotheses     []hypothesis_models.Hypothesis  `json:"hypotheses"`
	ContextVersion uint64                          `json:"contextVersion"`
	Busy           bool                            `json:"busy"`
}

type EventKind string

const (
	TreeLoaded        EventKind = "tree_loaded"
	ScopeChanged      EventKind = "scope_changed"
	ContextReplaced   EventKind = "context_replaced"
	SelectionChanged  EventKind = "selection_changed"
	HypothesesChanged EventKind = "hypotheses_changed"
	BusyChanged       EventKind = "busy_changed"
)

// Event tells observers that State changed.
type Event struct {
	Kind EventKind `json:"kind"`
}
