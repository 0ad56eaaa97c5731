package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/meysamhadeli/codai-scope/backend"
	backend_models "github.com/meysamhadeli/codai-scope/backend/models"
	reconciler_models "github.com/meysamhadeli/codai-scope/context_reconciler/models"
	scope_models "github.com/meysamhadeli/codai-scope/scope_store/models"
	tree_models "github.com/meysamhadeli/codai-scope/tree_model/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockBackend implements the retrieval backend with overridable funcs.
type MockBackend struct {
	FetchTreeFunc      func(ctx context.Context) (*tree_models.TreeNode, error)
	TotalRecallFunc    func(ctx context.Context, req backend_models.TotalRecallRequest) (*backend_models.TotalRecallResponse, error)
	SearchFunc         func(ctx context.Context, req backend_models.SearchRequest) (*backend_models.SearchResponse, error)
	RerankFunc         func(ctx context.Context, req backend_models.RerankRequest) (*backend_models.RerankResponse, error)
	HypothesesFunc     func(ctx context.Context, req backend_models.HypothesesRequest) (*backend_models.HypothesesResponse, error)
	SmartPreselectFunc func(ctx context.Context, req backend_models.SmartPreselectRequest) (*backend_models.SmartPreselectResponse, error)
}

func (m *MockBackend) FetchTree(ctx context.Context) (*tree_models.TreeNode, error) {
	if m.FetchTreeFunc != nil {
		return m.FetchTreeFunc(ctx)
	}
	return &tree_models.TreeNode{Path: ".", Type: tree_models.Dir}, nil
}

func (m *MockBackend) TotalRecall(ctx context.Context, req backend_models.TotalRecallRequest) (*backend_models.TotalRecallResponse, error) {
	if m.TotalRecallFunc != nil {
		return m.TotalRecallFunc(ctx, req)
	}
	return &backend_models.TotalRecallResponse{}, nil
}

func (m *MockBackend) Search(ctx context.Context, req backend_models.SearchRequest) (*backend_models.SearchResponse, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, req)
	}
	return &backend_models.SearchResponse{}, nil
}

func (m *MockBackend) Rerank(ctx context.Context, req backend_models.RerankRequest) (*backend_models.RerankResponse, error) {
	if m.RerankFunc != nil {
		return m.RerankFunc(ctx, req)
	}
	return &backend_models.RerankResponse{}, nil
}

func (m *MockBackend) GenerateHypotheses(ctx context.Context, req backend_models.HypothesesRequest) (*backend_models.HypothesesResponse, error) {
	if m.HypothesesFunc != nil {
		return m.HypothesesFunc(ctx, req)
	}
	return &backend_models.HypothesesResponse{}, nil
}

func (m *MockBackend) SmartPreselect(ctx context.Context, req backend_models.SmartPreselectRequest) (*backend_models.SmartPreselectResponse, error) {
	if m.SmartPreselectFunc != nil {
		return m.SmartPreselectFunc(ctx, req)
	}
	return &backend_models.SmartPreselectResponse{}, nil
}

func TestOrchestrator_TotalRecallSendsScope(t *testing.T) {
	var received backend_models.TotalRecallRequest
	mock := &MockBackend{
		TotalRecallFunc: func(ctx context.Context, req backend_models.TotalRecallRequest) (*backend_models.TotalRecallResponse, error) {
			received = req
			return &backend_models.TotalRecallResponse{
				Results:      []backend_models.ResultItem{{FilePath: "a.go", Score: 0.5}},
				FilesScanned: 12,
			}, nil
		},
	}
	o := NewOrchestrator(mock, time.Second, nil)

	result, err := o.TotalRecall(context.Background(), scope_models.ScopeSnapshot{
		ExcludedPaths: []string{"vendor"},
		CentralFiles:  []string{"main.go"},
		ExternalFiles: []scope_models.ExternalFile{{Path: "ext/a.md", Name: "a.md", Content: "hello"}},
	}, "find auth", "deep")

	require.NoError(t, err)
	assert.Equal(t, "find auth", received.Query)
	assert.Equal(t, []string{"vendor"}, received.ExcludedPaths)
	assert.Equal(t, []string{"main.go"}, received.CentralFiles)
	assert.Equal(t, "hello", received.ExternalFiles[0].Content)
	assert.Equal(t, "deep", received.Mode)

	assert.Equal(t, reconciler_models.TotalRecall, result.Batch.Channel)
	assert.Equal(t, uint64(1), result.Batch.Seq)
	assert.Equal(t, string(reconciler_models.TotalRecall), result.Batch.Items[0].Source)
	assert.Equal(t, 12, result.FilesScanned)
}

func TestOrchestrator_EmptyScopeSendsEmptyArrays(t *testing.T) {
	var received backend_models.TotalRecallRequest
	mock := &MockBackend{
		TotalRecallFunc: func(ctx context.Context, req backend_models.TotalRecallRequest) (*backend_models.TotalRecallResponse, error) {
			received = req
			return &backend_models.TotalRecallResponse{Results: []backend_models.ResultItem{}}, nil
		},
	}

	_, err := NewOrchestrator(mock, 0, nil).TotalRecall(context.Background(), scope_models.ScopeSnapshot{}, "q", "")

	require.NoError(t, err)
	assert.NotNil(t, received.ExcludedPaths)
	assert.NotNil(t, received.CentralFiles)
	assert.NotNil(t, received.ExternalFiles)
}

func TestOrchestrator_SequenceNumbersIncrease(t *testing.T) {
	o := NewOrchestrator(&MockBackend{}, time.Second, nil)

	first, err := o.Search(context.Background(), "q", 5, nil, nil)
	require.NoError(t, err)
	second, err := o.TotalRecallLite(context.Background(), "q", nil)
	require.NoError(t, err)
	third, err := o.GenerateHypotheses(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Less(t, first.Batch.Seq, second.Batch.Seq)
	assert.Less(t, second.Batch.Seq, third.Seq)
}

func TestOrchestrator_SearchKeepsProvenance(t *testing.T) {
	mock := &MockBackend{
		SearchFunc: func(ctx context.Context, req backend_models.SearchRequest) (*backend_models.SearchResponse, error) {
			assert.Equal(t, 7, req.TopK)
			assert.Equal(t, []string{"a.go"}, req.ActiveContext)
			return &backend_models.SearchResponse{Results: []backend_models.ResultItem{
				{FilePath: "a.go", Source: "total_recall"},
				{FilePath: "b.go"},
			}}, nil
		},
	}

	result, err := NewOrchestrator(mock, time.Second, nil).Search(context.Background(), "q", 7, []string{"a.go", "b.go"}, []string{"a.go"})

	require.NoError(t, err)
	assert.Equal(t, "total_recall", result.Batch.Items[0].Source)
	assert.Equal(t, "search", result.Batch.Items[1].Source)
}

func TestOrchestrator_ErrorsAreWrapped(t *testing.T) {
	mock := &MockBackend{
		RerankFunc: func(ctx context.Context, req backend_models.RerankRequest) (*backend_models.RerankResponse, error) {
			return nil, backend.ErrTransport
		},
	}
	o := NewOrchestrator(mock, time.Second, nil)

	_, err := o.TotalRecallLite(context.Background(), "q", []reconciler_models.ContextItem{{FilePath: "a.go"}})

	assert.True(t, errors.Is(err, backend.ErrTransport))
	assert.False(t, o.Busy())
}

func TestOrchestrator_BusyWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	mock := &MockBackend{
		SmartPreselectFunc: func(ctx context.Context, req backend_models.SmartPreselectRequest) (*backend_models.SmartPreselectResponse, error) {
			close(started)
			<-release
			return &backend_models.SmartPreselectResponse{SuggestedFiles: []string{"a.go"}}, nil
		},
	}
	o := NewOrchestrator(mock, time.Second, nil)

	var mu sync.Mutex
	var transitions []bool
	o.OnBusyChange = func(busy bool) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, busy)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.SmartPreselect(context.Background(), "q")
	}()

	<-started
	assert.True(t, o.Busy())
	close(release)
	<-done

	assert.False(t, o.Busy())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestOrchestrator_TimeoutIsApplied(t *testing.T) {
	mock := &MockBackend{
		FetchTreeFunc: func(ctx context.Context) (*tree_models.TreeNode, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
			return &tree_models.TreeNode{Path: "."}, nil
		},
	}

	_, err := NewOrchestrator(mock, time.Minute, nil).FetchTree(context.Background())

	require.NoError(t, err)
}
