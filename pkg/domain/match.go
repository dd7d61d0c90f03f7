package domain

// RetrievedMatch is a scored hit returned by the nearest-neighbour index.
type RetrievedMatch struct {
	ID       string        `json:"id"`
	Score    float64       `json:"score"`
	Metadata MatchMetadata `json:"metadata"`
}

type MatchMetadata struct {
	Source       string   `json:"source"`
	Text         string   `json:"text"`
	RelatedLinks []string `json:"related_links,omitempty"`
}

// Document is the ingestion-time unit stored in the index.
type Document struct {
	ID       string
	Text     string
	Metadata MatchMetadata
}
