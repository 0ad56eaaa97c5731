package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	backend_contracts "github.com/meysamhadeli/codai-scope/backend/contracts"
	backend_models "github.com/meysamhadeli/codai-scope/backend/models"
	reconciler_models "github.com/meysamhadeli/codai-scope/context_reconciler/models"
	hypothesis_models "github.com/meysamhadeli/codai-scope/hypothesis_mapper/models"
	scope_models "github.com/meysamhadeli/codai-scope/scope_store/models"
	tree_models "github.com/meysamhadeli/codai-scope/tree_model/models"
)

// Result is one channel response, ready for the reconciler.
type Result struct {
	Batch         reconciler_models.Batch `json:"-"`
	FilesScanned  int                     `json:"filesScanned,omitempty"`
	FilesRelevant int                     `json:"filesRelevant,omitempty"`
	FilesChecked  int                     `json:"filesChecked,omitempty"`
	RelevantCount int                     `json:"relevantCount,omitempty"`
	ChannelsUsed  []string                `json:"channelsUsed,omitempty"`
	DurationSec   float64                 `json:"durationSec,omitempty"`
	Discarded     bool                    `json:"discarded"`
}

type HypothesesResult struct {
	Seq        uint64
	Hypotheses []hypothesis_models.Hypothesis
}

type PreselectResult struct {
	Seq            uint64
	SuggestedFiles []string
	SuggestedDirs  []string
}

// Orchestrator issues backend calls. Every call gets a sequence number at issue time so
// late responses can be recognised. Calls are neither retried nor cancelled by newer ones.
type Orchestrator struct {
	backend      backend_contracts.IRetrievalBackend
	timeout      time.Duration
	logger       *slog.Logger
	seq          atomic.Uint64
	inFlight     atomic.Int64
	OnBusyChange func(busy bool)
}

func NewOrchestrator(backend backend_contracts.IRetrievalBackend, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{backend: backend, timeout: timeout, logger: logger}
}

// Busy reports whether any call is outstanding.
func (o *Orchestrator) Busy() bool {
	return o.inFlight.Load() > 0
}

func (o *Orchestrator) FetchTree(ctx context.Context) (*tree_models.TreeNode, error) {
	ctx, done := o.begin(ctx)
	defer done()

	tree, err := o.backend.FetchTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("tree fetch failed: %w", err)
	}
	return tree, nil
}

// TotalRecall runs the exhaustive scan over the given scope.
func (o *Orchestrator) TotalRecall(ctx context.Context, scope scope_models.ScopeSnapshot, query string, mode string) (*Result, error) {
	seq := o.next()
	ctx, done := o.begin(ctx)
	defer done()

	externals := make([]backend_models.ExternalFilePayload, 0, len(scope.ExternalFiles))
	for _, f := range scope.ExternalFiles {
		externals = append(externals, backend_models.ExternalFilePayload{Path: f.Path, Name: f.Name, Content: f.Content, Summary: f.Summary})
	}

	resp, err := o.backend.TotalRecall(ctx, backend_models.TotalRecallRequest{
		Query:         query,
		ExcludedPaths: nonNil(scope.ExcludedPaths),
		CentralFiles:  nonNil(scope.CentralFiles),
		ExternalFiles: externals,
		Mode:          mode,
	})
	if err != nil {
		return nil, fmt.Errorf("total recall failed: %w", err)
	}

	o.logger.Info("total recall finished", "seq", seq, "results", len(resp.Results), "files_scanned", resp.FilesScanned)
	return &Result{
		Batch:         batch(seq, reconciler_models.TotalRecall, resp.Results),
		FilesScanned:  resp.FilesScanned,
		FilesRelevant: resp.FilesRelevant,
		DurationSec:   resp.DurationSec,
	}, nil
}

// Search runs the embedding/integrated search restricted to selectedFiles.
func (o *Orchestrator) Search(ctx context.Context, query string, topK int, selectedFiles []string, activeContext []string) (*Result, error) {
	seq := o.next()
	ctx, done := o.begin(ctx)
	defer done()

	resp, err := o.backend.Search(ctx, backend_models.SearchRequest{
		Query:         query,
		TopK:          topK,
		SelectedFiles: nonNil(selectedFiles),
		ActiveContext: activeContext,
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	o.logger.Info("search finished", "seq", seq, "results", len(resp.Results), "channels", resp.ChannelsUsed)
	return &Result{
		Batch:        batch(seq, reconciler_models.Search, resp.Results),
		ChannelsUsed: resp.ChannelsUsed,
	}, nil
}

// TotalRecallLite asks the LLM to filter the given items.
func (o *Orchestrator) TotalRecallLite(ctx context.Context, query string, items []reconciler_models.ContextItem) (*Result, error) {
	seq := o.next()
	ctx, done := o.begin(ctx)
	defer done()

	files := make([]backend_models.RerankFile, 0, len(items))
	for _, item := range items {
		files = append(files, backend_models.RerankFile{FilePath: item.FilePath, Excerpt: item.Excerpt, Score: item.Score})
	}

	resp, err := o.backend.Rerank(ctx, backend_models.RerankRequest{Query: query, Files: files})
	if err != nil {
		return nil, fmt.Errorf("total recall lite failed: %w", err)
	}

	o.logger.Info("total recall lite finished", "seq", seq, "relevant", resp.RelevantCount, "checked", resp.FilesChecked)
	return &Result{
		Batch:         batch(seq, reconciler_models.TotalRecallLite, resp.Results),
		FilesChecked:  resp.FilesChecked,
		RelevantCount: resp.RelevantCount,
		DurationSec:   resp.DurationSec,
	}, nil
}

// GenerateHypotheses asks for hypotheses over items; indices in the answer refer to items' order.
func (o *Orchestrator) GenerateHypotheses(ctx context.Context, query string, items []reconciler_models.ContextItem) (*HypothesesResult, error) {
	seq := o.next()
	ctx, done := o.begin(ctx)
	defer done()

	files := make([]backend_models.HypothesisFile, 0, len(items))
	for _, item := range items {
		files = append(files, backend_models.HypothesisFile{FilePath: item.FilePath, Excerpt: item.Excerpt})
	}

	resp, err := o.backend.GenerateHypotheses(ctx, backend_models.HypothesesRequest{Query: query, Files: files})
	if err != nil {
		return nil, fmt.Errorf("hypothesis generation failed: %w", err)
	}

	o.logger.Info("hypotheses generated", "seq", seq, "count", len(resp.Hypotheses))
	return &HypothesesResult{Seq: seq, Hypotheses: resp.Hypotheses}, nil
}

func (o *Orchestrator) SmartPreselect(ctx context.Context, query string) (*PreselectResult, error) {
	seq := o.next()
	ctx, done := o.begin(ctx)
	defer done()

	resp, err := o.backend.SmartPreselect(ctx, backend_models.SmartPreselectRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("smart preselect failed: %w", err)
	}

	o.logger.Info("smart preselect finished", "seq", seq, "files", len(resp.SuggestedFiles), "dirs", len(resp.SuggestedDirs))
	return &PreselectResult{Seq: seq, SuggestedFiles: resp.SuggestedFiles, SuggestedDirs: resp.SuggestedDirs}, nil
}

func (o *Orchestrator) next() uint64 {
	return o.seq.Add(1)
}

func (o *Orchestrator) begin(ctx context.Context) (context.Context, func()) {
	if o.inFlight.Add(1) == 1 && o.OnBusyChange != nil {
		o.OnBusyChange(true)
	}

	cancel := context.CancelFunc(func() {})
	if o.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
	}

	return ctx, func() {
		cancel()
		if o.inFlight.Add(-1) == 0 && o.OnBusyChange != nil {
			o.OnBusyChange(false)
		}
	}
}

// batch converts wire items, tagging untagged ones with the channel that produced them.
func batch(seq uint64, channel reconciler_models.Channel, results []backend_models.ResultItem) reconciler_models.Batch {
	items := make([]reconciler_models.ContextItem, 0, len(results))
	for _, r := range results {
		source := r.Source
		if source == "" {
			source = string(channel)
		}
		items = append(items, reconciler_models.ContextItem{
			FilePath:    r.FilePath,
			Score:       r.Score,
			Excerpt:     r.Excerpt,
			FullContent: r.FullContent,
			Source:      source,
		})
	}
	return reconciler_models.Batch{Seq: seq, Channel: channel, Items: items}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
