package models

// Channel names one retrieval strategy whose results replace the context list.
type Channel string

const (
	TotalRecall     Channel = "total_recall"
	Search          Channel = "search"
	TotalRecallLite Channel = "total_recall_lite"
)

// ContextItem is one candidate file surfaced by a channel.
type ContextItem struct {
	FilePath    string  `json:"filePath"`
	Score       float64 `json:"score"`
	Excerpt     string  `json:"excerpt,omitempty"`
	FullContent string  `json:"fullContent,omitempty"`
	Source      string  `json:"source,omitempty"`
	Checked     bool    `json:"checked"`
}

// Batch is one channel response, stamped with the sequence number of the request that produced it.
type Batch struct {
	Seq     uint64
	Channel Channel
	Items   []ContextItem
}
