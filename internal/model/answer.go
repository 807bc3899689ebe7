package model

type Citation struct {
	ChunkID       string  `json:"chunk_id"`
	SourceDocID   string  `json:"source_doc_id"`
	ChapterTitle  string  `json:"chapter_title,omitempty"`
	Section       string  `json:"section,omitempty"`
	SequenceIndex int     `json:"sequence_index"`
	Score         float32 `json:"score"`
}

// AnswerRecord is the immutable outcome of one question. When Grounded is
// false the answer is the fixed refusal text and Citations is empty.
type AnswerRecord struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id,omitempty"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Grounded   bool       `json:"grounded"`
	Citations  []Citation `json:"citations"`
	Confidence float32    `json:"confidence"`
	Ctime      int64      `json:"ctime"`
}

// CitedChunkIDs returns the chunk ids backing the answer, in citation order.
func (a *AnswerRecord) CitedChunkIDs() []string {
	ids := make([]string, 0, len(a.Citations))
	for _, c := range a.Citations {
		ids = append(ids, c.ChunkID)
	}
	return ids
}
