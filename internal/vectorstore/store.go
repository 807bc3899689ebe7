package vectorstore

import "context"

// Record is the indexed representation of one chunk. Citation metadata is
// denormalized so search results can be rendered without extra lookups.
type Record struct {
	ChunkID       string
	SourceDocID   string
	ChapterTitle  string
	Section       string
	SequenceIndex int
	Content       string
	Embedding     []float32
	Mtime         int64
}

// Match pairs a stored record with its cosine similarity to the query.
type Match struct {
	Record Record
	Score  float32
}

type Store interface {
	Upsert(ctx context.Context, records []Record) error
	// Replace upserts records and retires ids as one atomic mutation; a
	// write failure leaves the prior record set intact.
	Replace(ctx context.Context, records []Record, retireIDs []string) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	ListIDsByDoc(ctx context.Context, docID string) ([]string, error)
}
