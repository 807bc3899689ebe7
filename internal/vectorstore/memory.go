package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a brute-force cosine similarity store. It backs tests and
// small single-node deployments; the pgvector store is the production path.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	return s.Replace(ctx, records, nil)
}

// Replace validates every record before touching the map, so a rejected
// batch leaves the store exactly as it was.
func (s *MemoryStore) Replace(ctx context.Context, records []Record, retireIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dimension := s.dimension
	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			return fmt.Errorf("record %s has empty embedding", rec.ChunkID)
		}
		if dimension == 0 {
			dimension = len(rec.Embedding)
		}
		if len(rec.Embedding) != dimension {
			return fmt.Errorf("record %s dimension %d, index dimension %d", rec.ChunkID, len(rec.Embedding), dimension)
		}
	}
	s.dimension = dimension
	for _, rec := range records {
		s.records[rec.ChunkID] = rec
	}
	for _, id := range retireIDs {
		delete(s.records, id)
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 {
		k = 5
	}
	matches := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		matches = append(matches, Match{Record: rec, Score: CosineSimilarity(vector, rec.Embedding)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Record.SequenceIndex != matches[j].Record.SequenceIndex {
			return matches[i].Record.SequenceIndex < matches[j].Record.SequenceIndex
		}
		return matches[i].Record.ChunkID < matches[j].Record.ChunkID
	})
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

func (s *MemoryStore) ListIDsByDoc(ctx context.Context, docID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, rec := range s.records {
		if rec.SourceDocID == docID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Len reports the number of live records; used by tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
