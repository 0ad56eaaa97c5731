package context_reconciler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meysamhadeli/codai-scope/context_reconciler/contracts"
	"github.com/meysamhadeli/codai-scope/context_reconciler/models"
	"github.com/zeebo/xxh3"
)

var (
	// ErrStaleBatch is returned when a batch was issued before the last accepted one.
	ErrStaleBatch = errors.New("stale context batch")
	// ErrUnknownItem is returned when toggling a path that is not in the current list.
	ErrUnknownItem = errors.New("unknown context item")
	// ErrUnknownChannel is returned for batches tagged with a channel the reconciler does not know.
	ErrUnknownChannel = errors.New("unknown channel")
)

// CentralChecker tells the reconciler which paths are pinned.
type CentralChecker interface {
	IsCentral(path string) bool
}

// ContextReconciler owns the authoritative context list. Every accepted batch replaces it.
// It is not safe for concurrent use; the session serialises access.
type ContextReconciler struct {
	central   CentralChecker
	items     []models.ContextItem
	overrides map[string]bool
	channel   models.Channel
	lastSeq   uint64
	version   uint64
}

// NewContextReconciler creates an empty reconciler that consults central for pinned files.
func NewContextReconciler(central CentralChecker) contracts.IContextReconciler {
	return &ContextReconciler{
		central:   central,
		overrides: make(map[string]bool),
	}
}

// Ingest replaces the context list with batch, applying the channel's default selection and
// then forcing every central file to checked. Batches older than the last accepted one are
// rejected with ErrStaleBatch and leave the list untouched.
func (r *ContextReconciler) Ingest(batch models.Batch) error {
	if batch.Seq < r.lastSeq {
		return fmt.Errorf("%w: seq %d is older than %d", ErrStaleBatch, batch.Seq, r.lastSeq)
	}

	incoming := normalize(batch.Items)

	var next []models.ContextItem
	switch batch.Channel {
	case models.TotalRecall:
		next = incoming
		for i := range next {
			next[i].Checked = true
		}
	case models.Search:
		next = incoming
		for i := range next {
			next[i].Checked = next[i].Source == string(models.TotalRecall)
		}
	case models.TotalRecallLite:
		next = r.mergeFiltered(incoming)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, batch.Channel)
	}

	for i := range next {
		if r.central != nil && r.central.IsCentral(next[i].FilePath) {
			next[i].Checked = true
		}
	}

	r.items = next
	r.overrides = make(map[string]bool)
	r.channel = batch.Channel
	r.lastSeq = batch.Seq
	r.version++

	return nil
}

// mergeFiltered keeps the previous list order, checking the survivors of the filter and
// unchecking the rest. Survivors the previous list did not have are appended.
func (r *ContextReconciler) mergeFiltered(survivors []models.ContextItem) []models.ContextItem {
	byPath := make(map[string]models.ContextItem, len(survivors))
	for _, item := range survivors {
		byPath[item.FilePath] = item
	}

	previous := r.Items()
	next := make([]models.ContextItem, 0, len(previous)+len(survivors))
	seen := make(map[string]struct{}, len(previous))

	for _, item := range previous {
		seen[item.FilePath] = struct{}{}
		if survivor, ok := byPath[item.FilePath]; ok {
			if survivor.FullContent == "" {
				survivor.FullContent = item.FullContent
			}
			survivor.Checked = true
			next = append(next, survivor)
			continue
		}
		item.Checked = false
		next = append(next, item)
	}

	for _, item := range survivors {
		if _, ok := seen[item.FilePath]; ok {
			continue
		}
		item.Checked = true
		next = append(next, item)
	}

	return next
}

// Items returns a copy of the list with manual overrides applied.
func (r *ContextReconciler) Items() []models.ContextItem {
	items := make([]models.ContextItem, len(r.items))
	copy(items, r.items)
	for i := range items {
		if checked, ok := r.overrides[items[i].FilePath]; ok {
			items[i].Checked = checked
		}
	}
	return items
}

func (r *ContextReconciler) Len() int {
	return len(r.items)
}

// GetSelected returns the checked paths in list order.
func (r *ContextReconciler) GetSelected() []string {
	var selected []string
	for _, item := range r.Items() {
		if item.Checked {
			selected = append(selected, item.FilePath)
		}
	}
	return selected
}

// SetChecked records a manual override that wins until the next ingest.
func (r *ContextReconciler) SetChecked(path string, checked bool) error {
	for _, item := range r.items {
		if item.FilePath == path {
			r.overrides[path] = checked
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownItem, path)
}

// OverwriteChecked makes exactly the listed paths checked, as manual overrides, in one pass
// over the list. Paths not in the list are ignored.
func (r *ContextReconciler) OverwriteChecked(paths map[string]struct{}) {
	for _, item := range r.items {
		_, checked := paths[item.FilePath]
		r.overrides[item.FilePath] = checked
	}
}

func (r *ContextReconciler) SetAllChecked(checked bool) {
	for _, item := range r.items {
		r.overrides[item.FilePath] = checked
	}
}

// Channel is the channel of the batch currently shown.
func (r *ContextReconciler) Channel() models.Channel {
	return r.channel
}

// Version increases every time the list is replaced.
func (r *ContextReconciler) Version() uint64 {
	return r.version
}

func (r *ContextReconciler) LastSeq() uint64 {
	return r.lastSeq
}

// Fingerprint hashes the ordered item paths. Positional references such as hypothesis
// indices are only meaningful against the fingerprint they were produced for.
func (r *ContextReconciler) Fingerprint() uint64 {
	var b strings.Builder
	for _, item := range r.items {
		b.WriteString(item.FilePath)
		b.WriteByte(0)
	}
	return xxh3.HashString(b.String())
}

// Clear empties the list. The sequence watermark is kept.
func (r *ContextReconciler) Clear() {
	r.items = nil
	r.overrides = make(map[string]bool)
	r.channel = ""
	r.version++
}

// normalize drops items without a path, keeps the first occurrence of each path and clamps scores to [0,1].
func normalize(items []models.ContextItem) []models.ContextItem {
	seen := make(map[string]struct{}, len(items))
	result := make([]models.ContextItem, 0, len(items))
	for _, item := range items {
		if item.FilePath == "" {
			continue
		}
		if _, ok := seen[item.FilePath]; ok {
			continue
		}
		seen[item.FilePath] = struct{}{}

		switch {
		case item.Score < 0:
			item.Score = 0
		case item.Score > 1:
			item.Score = 1
		}
		result = append(result, item)
	}
	return result
}
