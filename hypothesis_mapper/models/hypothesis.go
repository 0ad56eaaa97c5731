package models

// Hypothesis is a backend-proposed grouping of context items, referenced by 1-based position.
type Hypothesis struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	FileIndices []int   `json:"fileIndices"`
	Selected    bool    `json:"selected"`
}

// ApplyResult reports what ApplySelection did.
type ApplyResult struct {
	Applied        bool  `json:"applied"`
	CheckedCount   int   `json:"checkedCount"`
	IgnoredIndices []int `json:"ignoredIndices,omitempty"`
}
