package model

// Chunk is a contiguous span of chapter text used as a retrieval unit.
// IDs are content addressed so spans untouched by an edit keep their id
// across reindexing runs.
type Chunk struct {
	ID            string `json:"id"`
	SourceDocID   string `json:"source_doc_id"`
	Text          string `json:"text"`
	StartOffset   int    `json:"start_offset"`
	EndOffset     int    `json:"end_offset"`
	SequenceIndex int    `json:"sequence_index"`
	Section       string `json:"section,omitempty"`
}
