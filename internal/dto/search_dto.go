package dto

import "github.com/google/uuid"

const (
	SearchModeVector  = "vector"
	SearchModeKeyword = "keyword"
	SearchModeHybrid  = "hybrid"
)

type SearchRequest struct {
	Query string `json:"query" validate:"required"`
	K     int    `json:"k,omitempty"`
	Mode  string `json:"mode,omitempty"` // vector | keyword | hybrid (default)
}

// SearchResultFragment carries one ranked chunk plus enough positional
// metadata for the consumer to render a citation.
type SearchResultFragment struct {
	DocumentId  uuid.UUID `json:"document_id"`
	ChunkId     uuid.UUID `json:"chunk_id"`
	SeqIndex    int       `json:"seq_index"`
	Text        string    `json:"text"`
	Score       float64   `json:"score"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
	Page        int       `json:"page,omitempty"`
	Section     string    `json:"section,omitempty"`
	Filename    string    `json:"filename"`
}

type SearchResponse struct {
	Results []SearchResultFragment `json:"results"`
}
