package contracts

import "github.com/meysamhadeli/codai-scope/context_reconciler/models"

type IContextReconciler interface {
	Ingest(batch models.Batch) error
	Items() []models.ContextItem
	Len() int
	GetSelected() []string
	SetChecked(path string, checked bool) error
	SetAllChecked(checked bool)
	OverwriteChecked(paths map[string]struct{})
	Channel() models.Channel
	Version() uint64
	LastSeq() uint64
	Fingerprint() uint64
	Clear()
}
