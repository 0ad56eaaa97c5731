package hypothesis_mapper

import (
	"errors"
	"fmt"
	"sort"

	reconciler_contracts "github.com/meysamhadeli/codai-scope/context_reconciler/contracts"
	"github.com/meysamhadeli/codai-scope/hypothesis_mapper/contracts"
	"github.com/meysamhadeli/codai-scope/hypothesis_mapper/models"
)

var (
	// ErrUnknownHypothesis is returned when toggling an id that is not loaded.
	ErrUnknownHypothesis = errors.New("unknown hypothesis")
	// ErrStaleHypotheses is returned when the context list changed since the hypotheses were generated.
	ErrStaleHypotheses = errors.New("hypotheses refer to a replaced context list")
)

// HypothesisMapper projects selected hypotheses onto context selection.
type HypothesisMapper struct {
	hypotheses  []models.Hypothesis
	fingerprint uint64
}

func NewHypothesisMapper() contracts.IHypothesisMapper {
	return &HypothesisMapper{}
}

// Ingest stores a fresh list generated against the context list with the given fingerprint.
// Any previous selection is dropped.
func (m *HypothesisMapper) Ingest(hypotheses []models.Hypothesis, fingerprint uint64) {
	m.hypotheses = make([]models.Hypothesis, len(hypotheses))
	seen := make(map[string]struct{}, len(hypotheses))
	for _, h := range hypotheses {
		seen[h.ID] = struct{}{}
	}
	taken := make(map[string]struct{}, len(hypotheses))
	for i, h := range hypotheses {
		// Ids must be unique for Toggle; empty and repeated ones get a generated id.
		if _, dup := taken[h.ID]; h.ID == "" || dup {
			h.ID = freshID(i+1, seen)
		}
		taken[h.ID] = struct{}{}
		seen[h.ID] = struct{}{}
		h.Selected = false
		h.FileIndices = append([]int(nil), h.FileIndices...)
		m.hypotheses[i] = h
	}
	m.fingerprint = fingerprint
}

func (m *HypothesisMapper) Hypotheses() []models.Hypothesis {
	result := make([]models.Hypothesis, len(m.hypotheses))
	copy(result, m.hypotheses)
	return result
}

func (m *HypothesisMapper) Toggle(id string) error {
	for i := range m.hypotheses {
		if m.hypotheses[i].ID == id {
			m.hypotheses[i].Selected = !m.hypotheses[i].Selected
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownHypothesis, id)
}

// Selected returns the ids of the selected hypotheses in list order.
func (m *HypothesisMapper) Selected() []string {
	var ids []string
	for _, h := range m.hypotheses {
		if h.Selected {
			ids = append(ids, h.ID)
		}
	}
	return ids
}

// ApplySelection overwrites the reconciler's checked state with the union of the files
// referenced by selected hypotheses. An empty union leaves the selection untouched.
// Indices outside the current list are skipped and reported.
func (m *HypothesisMapper) ApplySelection(reconciler reconciler_contracts.IContextReconciler) (models.ApplyResult, error) {
	var result models.ApplyResult

	union := make(map[int]struct{})
	ignored := make(map[int]struct{})
	size := reconciler.Len()
	for _, h := range m.hypotheses {
		if !h.Selected {
			continue
		}
		for _, idx := range h.FileIndices {
			position := idx - 1
			if position < 0 || position >= size {
				ignored[idx] = struct{}{}
				continue
			}
			union[position] = struct{}{}
		}
	}
	result.IgnoredIndices = sortedInts(ignored)

	if len(union) == 0 {
		return result, nil
	}

	if reconciler.Fingerprint() != m.fingerprint {
		return result, fmt.Errorf("%w: fingerprint %x, current %x", ErrStaleHypotheses, m.fingerprint, reconciler.Fingerprint())
	}

	items := reconciler.Items()
	checked := make(map[string]struct{}, len(union))
	for position := range union {
		checked[items[position].FilePath] = struct{}{}
	}
	reconciler.OverwriteChecked(checked)

	result.Applied = true
	result.CheckedCount = len(union)
	return result, nil
}

// Clear discards the hypotheses; called whenever the context list is replaced.
func (m *HypothesisMapper) Clear() {
	m.hypotheses = nil
	m.fingerprint = 0
}

// freshID returns hypothesis-n, or the first hypothesis-n-k not already in use.
func freshID(n int, used map[string]struct{}) string {
	id := fmt.Sprintf("hypothesis-%d", n)
	for k := 2; ; k++ {
		if _, ok := used[id]; !ok {
			return id
		}
		id = fmt.Sprintf("hypothesis-%d-%d", n, k)
	}
}

func sortedInts(set map[int]struct{}) []int {
	if len(set) == 0 {
		return nil
	}
	values := make([]int, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Ints(values)
	return values
}
