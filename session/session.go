package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	backend_contracts "github.com/meysamhadeli/codai-scope/backend/contracts"
	"github.com/meysamhadeli/codai-scope/context_reconciler"
	reconciler_contracts "github.com/meysamhadeli/codai-scope/context_reconciler/contracts"
	"github.com/meysamhadeli/codai-scope/hypothesis_mapper"
	hypothesis_contracts "github.com/meysamhadeli/codai-scope/hypothesis_mapper/contracts"
	hypothesis_models "github.com/meysamhadeli/codai-scope/hypothesis_mapper/models"
	"github.com/meysamhadeli/codai-scope/orchestrator"
	"github.com/meysamhadeli/codai-scope/scope_store"
	scope_contracts "github.com/meysamhadeli/codai-scope/scope_store/contracts"
	scope_models "github.com/meysamhadeli/codai-scope/scope_store/models"
	"github.com/meysamhadeli/codai-scope/summarizer"
	"github.com/meysamhadeli/codai-scope/tree_model"
	tree_contracts "github.com/meysamhadeli/codai-scope/tree_model/contracts"
)

// ErrEmptyContext is returned by operations that work on the current context list when it is empty.
var ErrEmptyContext = errors.New("context list is empty")

const (
	defaultTopK         = 20
	subscriberQueueSize = 16
)

type Options struct {
	Backend      backend_contracts.IRetrievalBackend
	Timeout      time.Duration
	TopK         int
	DisplayDepth int
	Logger       *slog.Logger
}

// Session owns the engine components for one operator. Every read and mutation of engine
// state happens under mu; backend calls run outside it and re-enter through the sequence checks.
type Session struct {
	mu                sync.Mutex
	tree              tree_contracts.ITreeModel
	scope             scope_contracts.IScopeStore
	reconciler        reconciler_contracts.IContextReconciler
	mapper            hypothesis_contracts.IHypothesisMapper
	orchestrator      *orchestrator.Orchestrator
	summarizer        *summarizer.Summarizer
	logger            *slog.Logger
	topK              int
	displayDepth      int
	lastHypothesisSeq uint64

	subsMu      sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int
}

func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	tree := tree_model.NewTreeModel()
	scope := scope_store.NewScopeStore(tree)

	s := &Session{
		tree:         tree,
		scope:        scope,
		reconciler:   context_reconciler.NewContextReconciler(scope),
		mapper:       hypothesis_mapper.NewHypothesisMapper(),
		orchestrator: orchestrator.NewOrchestrator(opts.Backend, opts.Timeout, logger),
		summarizer:   summarizer.NewSummarizer(),
		logger:       logger,
		topK:         topK,
		displayDepth: opts.DisplayDepth,
		subscribers:  make(map[int]chan Event),
	}
	s.orchestrator.OnBusyChange = func(bool) { s.publish(BusyChanged) }

	return s
}

// LoadTree fetches the tree from the backend and replaces the current one.
func (s *Session) LoadTree(ctx context.Context) error {
	root, err := s.orchestrator.FetchTree(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tree.Load(root)
	s.mu.Unlock()

	s.publish(TreeLoaded)
	return nil
}

// LoadTreeFromDirectory builds the tree from the local filesystem instead of the backend.
func (s *Session) LoadTreeFromDirectory(rootDir string, ignorePatterns []string) error {
	root, err := tree_model.LoadDirectory(rootDir, ignorePatterns)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", rootDir, err)
	}

	s.mu.Lock()
	s.tree.Load(root)
	s.mu.Unlock()

	s.publish(TreeLoaded)
	return nil
}

func (s *Session) SetIncluded(path string, included bool) {
	s.withScope(func(scope scope_contracts.IScopeStore) { scope.SetIncluded(path, included) })
}

func (s *Session) SelectAll(included bool) {
	s.withScope(func(scope scope_contracts.IScopeStore) { scope.SelectAll(included) })
}

func (s *Session) PinCentral(path string) {
	s.withScope(func(scope scope_contracts.IScopeStore) { scope.PinCentral(path) })
}

func (s *Session) UnpinCentral(path string) {
	s.withScope(func(scope scope_contracts.IScopeStore) { scope.UnpinCentral(path) })
}

func (s *Session) ToggleExpanded(path string) {
	s.withScope(func(scope scope_contracts.IScopeStore) { scope.ToggleExpanded(path) })
}

// IngestExternal adds a file from outside the tree. It reports false when the path is already known.
func (s *Session) IngestExternal(ctx context.Context, filePath string, content []byte) (bool, error) {
	if filePath == "" {
		return false, errors.New("external file needs a path")
	}

	file := scope_models.ExternalFile{
		Path:    filePath,
		Name:    path.Base(filePath),
		Content: string(content),
		Summary: s.summarizer.Summarize(ctx, filePath, content),
	}

	s.mu.Lock()
	added := s.scope.IngestExternal(file)
	s.mu.Unlock()

	if added {
		s.publish(ScopeChanged)
	}
	return added, nil
}

func (s *Session) RemoveExternal(filePath string) bool {
	s.mu.Lock()
	removed := s.scope.RemoveExternal(filePath)
	s.mu.Unlock()

	if removed {
		s.publish(ScopeChanged)
	}
	return removed
}

// RunTotalRecall runs the exhaustive scan over the current scope.
func (s *Session) RunTotalRecall(ctx context.Context, query string, mode string) (*orchestrator.Result, error) {
	s.mu.Lock()
	snapshot := s.scope.Snapshot()
	s.mu.Unlock()

	result, err := s.orchestrator.TotalRecall(ctx, snapshot, query, mode)
	if err != nil {
		return nil, err
	}
	return s.ingest(result)
}

// RunSearch runs the embedding search over the files currently in scope.
func (s *Session) RunSearch(ctx context.Context, query string, topK int) (*orchestrator.Result, error) {
	if topK <= 0 {
		topK = s.topK
	}

	s.mu.Lock()
	selectedFiles := s.scope.IncludedFiles()
	activeContext := s.reconciler.GetSelected()
	s.mu.Unlock()

	result, err := s.orchestrator.Search(ctx, query, topK, selectedFiles, activeContext)
	if err != nil {
		return nil, err
	}
	return s.ingest(result)
}

// RunTotalRecallLite filters the current context list through the LLM.
func (s *Session) RunTotalRecallLite(ctx context.Context, query string) (*orchestrator.Result, error) {
	s.mu.Lock()
	items := s.reconciler.Items()
	s.mu.Unlock()

	if len(items) == 0 {
		return nil, ErrEmptyContext
	}

	result, err := s.orchestrator.TotalRecallLite(ctx, query, items)
	if err != nil {
		return nil, err
	}
	return s.ingest(result)
}

// RequestHypotheses generates hypotheses over the current context list. The answer is dropped
// if the list was replaced, or a newer hypothesis request landed, while it was in flight.
func (s *Session) RequestHypotheses(ctx context.Context, query string) ([]hypothesis_models.Hypothesis, error) {
	s.mu.Lock()
	items := s.reconciler.Items()
	fingerprint := s.reconciler.Fingerprint()
	s.mu.Unlock()

	if len(items) == 0 {
		return nil, ErrEmptyContext
	}

	result, err := s.orchestrator.GenerateHypotheses(ctx, query, items)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if result.Seq < s.lastHypothesisSeq || s.reconciler.Fingerprint() != fingerprint {
		s.mu.Unlock()
		s.logger.Warn("discarding stale hypotheses", "seq", result.Seq)
		return nil, fmt.Errorf("%w: request %d", hypothesis_mapper.ErrStaleHypotheses, result.Seq)
	}
	s.lastHypothesisSeq = result.Seq
	s.mapper.Ingest(result.Hypotheses, fingerprint)
	hypotheses := s.mapper.Hypotheses()
	s.mu.Unlock()

	s.publish(HypothesesChanged)
	return hypotheses, nil
}

func (s *Session) ToggleHypothesis(id string) error {
	s.mu.Lock()
	err := s.mapper.Toggle(id)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.publish(HypothesesChanged)
	return nil
}

// ApplyHypotheses projects the selected hypotheses onto the context selection.
func (s *Session) ApplyHypotheses() (hypothesis_models.ApplyResult, error) {
	s.mu.Lock()
	result, err := s.mapper.ApplySelection(s.reconciler)
	s.mu.Unlock()

	if len(result.IgnoredIndices) > 0 {
		s.logger.Warn("ignoring out of range hypothesis indices", "indices", result.IgnoredIndices)
	}
	if err != nil {
		return result, err
	}
	if result.Applied {
		s.publish(SelectionChanged)
	}
	return result, nil
}

// SmartPreselect asks the backend which files and dirs matter for query, includes the dirs
// and pins the files.
func (s *Session) SmartPreselect(ctx context.Context, query string) (*orchestrator.PreselectResult, error) {
	result, err := s.orchestrator.SmartPreselect(ctx, query)
	if err != nil {
		return nil, err
	}

	s.withScope(func(scope scope_contracts.IScopeStore) {
		for _, dir := range result.SuggestedDirs {
			scope.SetIncluded(dir, true)
		}
		for _, file := range result.SuggestedFiles {
			scope.PinCentral(file)
		}
	})
	return result, nil
}

func (s *Session) SetChecked(path string, checked bool) error {
	s.mu.Lock()
	err := s.reconciler.SetChecked(path, checked)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.publish(SelectionChanged)
	return nil
}

func (s *Session) SetAllChecked(checked bool) {
	s.mu.Lock()
	s.reconciler.SetAllChecked(checked)
	s.mu.Unlock()

	s.publish(SelectionChanged)
}

// Selected returns the checked context paths, which is what downstream processing consumes.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.GetSelected()
}

func (s *Session) Busy() bool {
	return s.orchestrator.Busy()
}

// State returns a consistent snapshot of everything a UI shows.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []TreeEntry
	for _, v := range s.tree.VisibleNodes(s.scope.IsExpanded, s.displayDepth) {
		entries = append(entries, TreeEntry{
			Path:      v.Node.Path,
			Name:      v.Node.Name,
			Type:      v.Node.Type,
			Depth:     v.Depth,
			FileCount: v.Node.FileCount,
			Excluded:  s.scope.IsExcluded(v.Node.Path),
			InScope:   s.scope.IsInScope(v.Node.Path),
			Central:   s.scope.IsCentral(v.Node.Path),
			Expanded:  s.scope.IsExpanded(v.Node.Path),
		})
	}

	return State{
		Tree:           entries,
		Scope:          s.scope.Snapshot(),
		Channel:        s.reconciler.Channel(),
		Context:        s.reconciler.Items(),
		Selected:       s.reconciler.GetSelected(),
		Hypotheses:     s.mapper.Hypotheses(),
		ContextVersion: s.reconciler.Version(),
		Busy:           s.orchestrator.Busy(),
	}
}

// Subscribe returns a channel of change events and a function that ends the subscription.
// Slow subscribers miss events rather than block the session.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Event, subscriberQueueSize)
	s.subscribers[id] = ch

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

func (s *Session) ingest(result *orchestrator.Result) (*orchestrator.Result, error) {
	s.mu.Lock()
	err := s.reconciler.Ingest(result.Batch)
	if err == nil {
		// Hypothesis indices are positional, a new list makes them meaningless.
		s.mapper.Clear()
	}
	s.mu.Unlock()

	if errors.Is(err, context_reconciler.ErrStaleBatch) {
		s.logger.Warn("discarding stale channel response", "channel", result.Batch.Channel, "seq", result.Batch.Seq, "error", err)
		result.Discarded = true
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	s.publish(ContextReplaced)
	return result, nil
}

func (s *Session) withScope(fn func(scope scope_contracts.IScopeStore)) {
	s.mu.Lock()
	fn(s.scope)
	s.mu.Unlock()

	s.publish(ScopeChanged)
}

func (s *Session) publish(kind EventKind) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- Event{Kind: kind}:
		default:
		}
	}
}
