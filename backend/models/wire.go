package models

import (
	hypothesis_models "github.com/meysamhadeli/codai-scope/hypothesis_mapper/models"
	tree_models "github.com/meysamhadeli/codai-scope/tree_model/models"
)

// Envelope is embedded in every response.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (e Envelope) Status() (bool, string) {
	return e.Success, e.Error
}

// ResultItem is a context item as the service sends it.
type ResultItem struct {
	FilePath    string  `json:"filePath"`
	Score       float64 `json:"score"`
	Excerpt     string  `json:"excerpt,omitempty"`
	FullContent string  `json:"fullContent,omitempty"`
	Source      string  `json:"source,omitempty"`
}

type ExternalFilePayload struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Summary string `json:"summary,omitempty"`
}

type TreeResponse struct {
	Envelope
	Tree *tree_models.TreeNode `json:"tree"`
}

type TotalRecallRequest struct {
	Query         string                `json:"query"`
	ExcludedPaths []string              `json:"excludedPaths"`
	CentralFiles  []string              `json:"centralFiles"`
	ExternalFiles []ExternalFilePayload `json:"externalFiles"`
	Mode          string                `json:"mode,omitempty"`
}

type TotalRecallResponse struct {
	Envelope
	Results       []ResultItem `json:"results"`
	FilesScanned  int          `json:"filesScanned"`
	FilesRelevant int          `json:"filesRelevant"`
	DurationSec   float64      `json:"durationSec"`
}

type SearchRequest struct {
	Query         string   `json:"query"`
	TopK          int      `json:"topK"`
	SelectedFiles []string `json:"selectedFiles"`
	ActiveContext []string `json:"activeContext,omitempty"`
}

type SearchResponse struct {
	Envelope
	Results      []ResultItem `json:"results"`
	ChannelsUsed []string     `json:"channelsUsed"`
}

type RerankFile struct {
	FilePath string  `json:"filePath"`
	Excerpt  string  `json:"excerpt"`
	Score    float64 `json:"score"`
}

type RerankRequest struct {
	Query string       `json:"query"`
	Files []RerankFile `json:"files"`
}

type RerankResponse struct {
	Envelope
	Results       []ResultItem `json:"results"`
	RelevantCount int          `json:"relevantCount"`
	FilesChecked  int          `json:"filesChecked"`
	DurationSec   float64      `json:"durationSec"`
}

type HypothesisFile struct {
	FilePath string `json:"filePath"`
	Excerpt  string `json:"excerpt"`
}

type HypothesesRequest struct {
	Query string           `json:"query"`
	Files []HypothesisFile `json:"files"`
}

type HypothesesResponse struct {
	Envelope
	Hypotheses []hypothesis_models.Hypothesis `json:"hypotheses"`
}

type SmartPreselectRequest struct {
	Query string `json:"query"`
}

type SmartPreselectResponse struct {
	Envelope
	SuggestedFiles []string `json:"suggestedFiles"`
	SuggestedDirs  []string `json:"suggestedDirs"`
}
