package context_reconciler

import (
	"testing"

	"github.com/meysamhadeli/codai-scope/context_reconciler/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinned []string

func (p pinned) IsCentral(path string) bool {
	for _, c := range p {
		if c == path {
			return true
		}
	}
	return false
}

func items(paths ...string) []models.ContextItem {
	var result []models.ContextItem
	for i, p := range paths {
		result = append(result, models.ContextItem{FilePath: p, Score: 1 - float64(i)*0.1, Excerpt: "excerpt of " + p})
	}
	return result
}

func checkedSet(r *ContextReconciler) map[string]bool {
	set := make(map[string]bool)
	for _, item := range r.Items() {
		set[item.FilePath] = item.Checked
	}
	return set
}

func paths(list []models.ContextItem) []string {
	var result []string
	for _, item := range list {
		result = append(result, item.FilePath)
	}
	return result
}

func newReconciler(central ...string) *ContextReconciler {
	return NewContextReconciler(pinned(central)).(*ContextReconciler)
}

func TestReconciler_TotalRecallChecksEverything(t *testing.T) {
	r := newReconciler()

	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.TotalRecall, Items: items("a.go", "b.go", "c.go")}))

	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, r.GetSelected())
}

func TestReconciler_SearchChecksNothingByDefault(t *testing.T) {
	r := newReconciler()

	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.Search, Items: items("a.go", "b.go", "c.go")}))

	assert.Empty(t, r.GetSelected())
	assert.Equal(t, 3, r.Len())
}

func TestReconciler_SearchChecksCentralAndRecallProvenance(t *testing.T) {
	r := newReconciler("b.go")
	batch := items("a.go", "b.go", "c.go")
	batch[2].Source = string(models.TotalRecall)

	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.Search, Items: batch}))

	assert.Equal(t, []string{"b.go", "c.go"}, r.GetSelected())
}

func TestReconciler_ReplaceIsWholesale(t *testing.T) {
	r := newReconciler("shared.go")

	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.TotalRecall, Items: items("old.go", "shared.go")}))
	require.NoError(t, r.SetChecked("shared.go", false))
	require.NoError(t, r.Ingest(models.Batch{Seq: 2, Channel: models.Search, Items: items("new.go", "shared.go")}))

	assert.Equal(t, []string{"new.go", "shared.go"}, paths(r.Items()))
	assert.Equal(t, map[string]bool{"new.go": false, "shared.go": true}, checkedSet(r))
	assert.Equal(t, models.Search, r.Channel())
}

func TestReconciler_CentralSettleIsSynchronous(t *testing.T) {
	r := newReconciler("a.go")

	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.Search, Items: items("a.go", "b.go")}))

	assert.True(t, checkedSet(r)["a.go"])
}

func TestReconciler_TotalRecallLite(t *testing.T) {
	r := newReconciler()
	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.TotalRecall, Items: items("a.go", "b.go", "c.go")}))

	filtered := []models.ContextItem{
		{FilePath: "c.go", Score: 0.9, Excerpt: "relevant"},
		{FilePath: "d.go", Score: 0.5},
	}
	require.NoError(t, r.Ingest(models.Batch{Seq: 2, Channel: models.TotalRecallLite, Items: filtered}))

	assert.Equal(t, []string{"a.go", "b.go", "c.go", "d.go"}, paths(r.Items()))
	assert.Equal(t, map[string]bool{"a.go": false, "b.go": false, "c.go": true, "d.go": true}, checkedSet(r))
	assert.Equal(t, "relevant", r.Items()[2].Excerpt)
}

func TestReconciler_ManualOverrideWinsUntilNextIngest(t *testing.T) {
	r := newReconciler()
	batch := models.Batch{Seq: 1, Channel: models.Search, Items: items("a.go", "b.go")}
	require.NoError(t, r.Ingest(batch))

	require.NoError(t, r.SetChecked("b.go", true))
	assert.Equal(t, []string{"b.go"}, r.GetSelected())

	batch.Seq = 2
	require.NoError(t, r.Ingest(batch))
	assert.Empty(t, r.GetSelected())
}

func TestReconciler_ManualOverrideOnCentralFile(t *testing.T) {
	r := newReconciler("a.go")
	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.Search, Items: items("a.go")}))

	require.NoError(t, r.SetChecked("a.go", false))

	assert.Empty(t, r.GetSelected())
}

func TestReconciler_SetCheckedUnknownPath(t *testing.T) {
	r := newReconciler()

	err := r.SetChecked("missing.go", true)

	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestReconciler_SetAllChecked(t *testing.T) {
	r := newReconciler()
	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.Search, Items: items("a.go", "b.go")}))

	r.SetAllChecked(true)
	assert.Equal(t, []string{"a.go", "b.go"}, r.GetSelected())

	r.SetAllChecked(false)
	assert.Empty(t, r.GetSelected())
}

func TestReconciler_OverwriteChecked(t *testing.T) {
	r := newReconciler("c.go")
	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.TotalRecall, Items: items("a.go", "b.go", "c.go")}))

	r.OverwriteChecked(map[string]struct{}{"b.go": {}, "missing.go": {}})

	assert.Equal(t, []string{"b.go"}, r.GetSelected())

	require.NoError(t, r.Ingest(models.Batch{Seq: 2, Channel: models.TotalRecall, Items: items("a.go", "b.go", "c.go")}))
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, r.GetSelected())
}

func TestReconciler_ManualIsNotAChannel(t *testing.T) {
	r := newReconciler()

	err := r.Ingest(models.Batch{Seq: 1, Channel: "manual", Items: items("a.go")})

	assert.ErrorIs(t, err, ErrUnknownChannel)
	assert.Empty(t, r.Items())
}

func TestReconciler_IngestIsIdempotent(t *testing.T) {
	for _, channel := range []models.Channel{models.TotalRecall, models.Search, models.TotalRecallLite} {
		t.Run(string(channel), func(t *testing.T) {
			r := newReconciler("b.go")
			batch := models.Batch{Seq: 1, Channel: channel, Items: items("a.go", "b.go", "c.go")}

			require.NoError(t, r.Ingest(batch))
			first := r.Items()
			require.NoError(t, r.Ingest(batch))

			assert.Equal(t, first, r.Items())
		})
	}
}

func TestReconciler_StaleBatchIsDiscarded(t *testing.T) {
	r := newReconciler()
	require.NoError(t, r.Ingest(models.Batch{Seq: 5, Channel: models.Search, Items: items("newer.go")}))
	version := r.Version()

	err := r.Ingest(models.Batch{Seq: 4, Channel: models.TotalRecall, Items: items("older.go")})

	assert.ErrorIs(t, err, ErrStaleBatch)
	assert.Equal(t, []string{"newer.go"}, paths(r.Items()))
	assert.Equal(t, version, r.Version())
	assert.Equal(t, uint64(5), r.LastSeq())
}

func TestReconciler_UnknownChannelLeavesStateIntact(t *testing.T) {
	r := newReconciler()
	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.TotalRecall, Items: items("a.go")}))

	err := r.Ingest(models.Batch{Seq: 2, Channel: "bogus", Items: items("b.go")})

	assert.ErrorIs(t, err, ErrUnknownChannel)
	assert.Equal(t, []string{"a.go"}, r.GetSelected())
	assert.Equal(t, uint64(1), r.LastSeq())
}

func TestReconciler_NormalizesBatch(t *testing.T) {
	r := newReconciler()
	batch := []models.ContextItem{
		{FilePath: "a.go", Score: 1.7},
		{FilePath: "", Score: 0.5},
		{FilePath: "a.go", Score: 0.1},
		{FilePath: "b.go", Score: -2},
	}

	require.NoError(t, r.Ingest(models.Batch{Seq: 1, Channel: models.TotalRecall, Items: batch}))

	list := r.Items()
	require.Len(t, list, 2)
	assert.Equal(t, 1.0, list[0].Score)
	assert.Equal(t, 0.0, list[1].Score)
}

func TestReconciler_Fingerprint(t *testing.T) {
	a := newReconciler()
	b := newReconciler()
	require.NoError(t, a.Ingest(models.Batch{Seq: 1, Channel: models.TotalRecall, Items: items("a.go", "b.go")}))
	require.NoError(t, b.Ingest(models.Batch{Seq: 1, Channel: models.Search, Items: items("a.go", "b.go")}))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	require.NoError(t, b.Ingest(models.Batch{Seq: 2, Channel: models.Search, Items: items("b.go", "a.go")}))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestReconciler_Clear(t *testing.T) {
	r := newReconciler()
	require.NoError(t, r.Ingest(models.Batch{Seq: 3, Channel: models.TotalRecall, Items: items("a.go")}))

	r.Clear()

	assert.Zero(t, r.Len())
	assert.Equal(t, uint64(3), r.LastSeq())
	assert.Equal(t, uint64(2), r.Version())
}
