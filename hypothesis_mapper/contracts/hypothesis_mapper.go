package contracts

import (
	reconciler_contracts "github.com/meysamhadeli/codai-scope/context_reconciler/contracts"
	"github.com/meysamhadeli/codai-scope/hypothesis_mapper/models"
)

type IHypothesisMapper interface {
	Ingest(hypotheses []models.Hypothesis, fingerprint uint64)
	Hypotheses() []models.Hypothesis
	Toggle(id string) error
	Selected() []string
	ApplySelection(reconciler reconciler_contracts.IContextReconciler) (models.ApplyResult, error)
	Clear()
}
