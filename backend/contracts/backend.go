package contracts

import (
	"context"

	"github.com/meysamhadeli/codai-scope/backend/models"
	tree_models "github.com/meysamhadeli/codai-scope/tree_model/models"
)

// IRetrievalBackend is the external retrieval and processing service.
type IRetrievalBackend interface {
	FetchTree(ctx context.Context) (*tree_models.TreeNode, error)
	TotalRecall(ctx context.Context, req models.TotalRecallRequest) (*models.TotalRecallResponse, error)
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
	Rerank(ctx context.Context, req models.RerankRequest) (*models.RerankResponse, error)
	GenerateHypotheses(ctx context.Context, req models.HypothesesRequest) (*models.HypothesesResponse, error)
	SmartPreselect(ctx context.Context, req models.SmartPreselectRequest) (*models.SmartPreselectResponse, error)
}
