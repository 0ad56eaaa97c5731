package contracts

import "github.com/meysamhadeli/codai-scope/scope_store/models"

type IScopeStore interface {
	IsExcluded(path string) bool
	IsInScope(path string) bool
	SetIncluded(path string, included bool)
	SelectAll(included bool)
	PinCentral(path string)
	UnpinCentral(path string)
	IsCentral(path string) bool
	CentralFiles() []string
	IngestExternal(file models.ExternalFile) bool
	RemoveExternal(path string) bool
	ExternalFiles() []models.ExternalFile
	ToggleExpanded(path string)
	IsExpanded(path string) bool
	IncludedFiles() []string
	Snapshot() models.ScopeSnapshot
}
