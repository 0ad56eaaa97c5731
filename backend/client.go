package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/meysamhadeli/codai-scope/backend/contracts"
	"github.com/meysamhadeli/codai-scope/backend/models"
	tree_models "github.com/meysamhadeli/codai-scope/tree_model/models"
)

var (
	// ErrTransport covers network failures and timeouts.
	ErrTransport = errors.New("backend transport failure")
	// ErrMalformedResponse covers unsuccessful, undecodable or incomplete responses.
	ErrMalformedResponse = errors.New("malformed backend response")
)

const (
	treePath           = "/api/tree"
	totalRecallPath    = "/api/total-recall"
	searchPath         = "/api/search"
	rerankPath         = "/api/total-recall-lite"
	hypothesesPath     = "/api/hypotheses"
	smartPreselectPath = "/api/smart-preselect"

	defaultBaseURL = "http://localhost:8765"
	maxErrorBody   = 4 << 10
)

// Client talks JSON over HTTP to the retrieval service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type statusCarrier interface {
	Status() (bool, string)
}

// NewClient creates a client. timeout bounds every call; the core defines none of its own.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) contracts.IRetrievalBackend {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

func (c *Client) FetchTree(ctx context.Context) (*tree_models.TreeNode, error) {
	var resp models.TreeResponse
	if err := c.do(ctx, http.MethodGet, treePath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Tree == nil {
		return nil, fmt.Errorf("%w: tree fetch returned no tree", ErrMalformedResponse)
	}
	return resp.Tree, nil
}

func (c *Client) TotalRecall(ctx context.Context, req models.TotalRecallRequest) (*models.TotalRecallResponse, error) {
	var resp models.TotalRecallResponse
	if err := c.do(ctx, http.MethodPost, totalRecallPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: total recall returned no results field", ErrMalformedResponse)
	}
	return &resp, nil
}

func (c *Client) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	var resp models.SearchResponse
	if err := c.do(ctx, http.MethodPost, searchPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: search returned no results field", ErrMalformedResponse)
	}
	return &resp, nil
}

func (c *Client) Rerank(ctx context.Context, req models.RerankRequest) (*models.RerankResponse, error) {
	var resp models.RerankResponse
	if err := c.do(ctx, http.MethodPost, rerankPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: re-rank returned no results field", ErrMalformedResponse)
	}
	return &resp, nil
}

func (c *Client) GenerateHypotheses(ctx context.Context, req models.HypothesesRequest) (*models.HypothesesResponse, error) {
	var resp models.HypothesesResponse
	if err := c.do(ctx, http.MethodPost, hypothesesPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.Hypotheses == nil {
		return nil, fmt.Errorf("%w: hypothesis generation returned no hypotheses field", ErrMalformedResponse)
	}
	return &resp, nil
}

func (c *Client) SmartPreselect(ctx context.Context, req models.SmartPreselectRequest) (*models.SmartPreselectResponse, error) {
	var resp models.SmartPreselectResponse
	if err := c.do(ctx, http.MethodPost, smartPreselectPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.SuggestedFiles == nil && resp.SuggestedDirs == nil {
		return nil, fmt.Errorf("%w: smart preselect returned no suggestions field", ErrMalformedResponse)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out statusCarrier) error {
	requestID := uuid.NewString()
	started := time.Now()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshalling request body: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Warn("backend request failed", "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	bodyReader, err := decodedBody(resp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	defer bodyReader.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(bodyReader, maxErrorBody))
		var envelope models.Envelope
		message := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			message = envelope.Error
		}
		return fmt.Errorf("%w: %s returned status %d: %s", ErrMalformedResponse, path, resp.StatusCode, message)
	}

	if err := json.NewDecoder(bodyReader).Decode(out); err != nil {
		return fmt.Errorf("%w: error decoding %s response: %v", ErrMalformedResponse, path, err)
	}

	if success, message := out.Status(); !success {
		if message == "" {
			message = "success flag not set"
		}
		return fmt.Errorf("%w: %s: %s", ErrMalformedResponse, path, message)
	}

	c.Logger.Debug("backend request done", "path", path, "request_id", requestID, "duration", time.Since(started))
	return nil
}

// decodedBody unwraps a gzip body. Closing the result does not close resp.Body.
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return io.NopCloser(resp.Body), nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error opening gzip body: %w", err)
	}
	return gz, nil
}
