package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/readmate/readmate/internal/ai"
	"github.com/readmate/readmate/internal/model"
	apperr "github.com/readmate/readmate/internal/pkg/errors"
	"github.com/readmate/readmate/internal/pkg/logutil"
	"github.com/readmate/readmate/internal/pkg/retry"
	"github.com/readmate/readmate/internal/rag"
	"github.com/readmate/readmate/internal/vectorstore"
)

const documentTaskType = "RETRIEVAL_DOCUMENT"

// IndexService rebuilds the retrieval corpus for one document at a time.
// Reindex is a full replace per document: chunk, diff against stored ids,
// embed only new chunks, then upsert and retire together in one store
// mutation. Embedding happens before any index write, so a failed embed
// leaves the prior state untouched.
type IndexService struct {
	chunker      *rag.Chunker
	embedder     ai.IEmbedder
	store        vectorstore.Store
	embedTimeout time.Duration
	attempts     int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewIndexService(chunker *rag.Chunker, embedder ai.IEmbedder, store vectorstore.Store, embedTimeout time.Duration) *IndexService {
	return &IndexService{
		chunker:      chunker,
		embedder:     embedder,
		store:        store,
		embedTimeout: embedTimeout,
		attempts:     retry.DefaultAttempts,
		locks:        make(map[string]*sync.Mutex),
	}
}

// lockFor serializes reindexing per document id; different documents
// proceed independently.
func (s *IndexService) lockFor(docID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[docID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[docID] = lock
	}
	return lock
}

func (s *IndexService) Reindex(ctx context.Context, docID, title, text string) (indexed int, retired int, err error) {
	lock := s.lockFor(docID)
	lock.Lock()
	defer lock.Unlock()

	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID))

	chunks, err := s.chunker.Chunk(docID, text)
	if err != nil {
		return 0, 0, err
	}

	existing, err := s.store.ListIDsByDoc(ctx, docID)
	if err != nil {
		return 0, 0, err
	}
	existingSet := make(map[string]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}
	newSet := make(map[string]bool, len(chunks))
	var fresh []model.Chunk
	for _, chunk := range chunks {
		newSet[chunk.ID] = true
		if !existingSet[chunk.ID] {
			fresh = append(fresh, chunk)
		}
	}
	var retiredIDs []string
	for _, id := range existing {
		if !newSet[id] {
			retiredIDs = append(retiredIDs, id)
		}
	}
	if len(fresh) == 0 && len(retiredIDs) == 0 {
		logger.Debug("reindex is a no-op, content unchanged")
		return 0, 0, nil
	}

	now := time.Now().Unix()
	records := make([]vectorstore.Record, 0, len(fresh))
	for _, chunk := range fresh {
		vec, err := s.embedChunk(ctx, chunk.Text)
		if err != nil {
			logger.Error("embedding failed, aborting reindex", zap.String("chunk_id", chunk.ID), zap.Error(err))
			return 0, 0, fmt.Errorf("embed chunk %s of %s: %w", chunk.ID, docID, err)
		}
		records = append(records, vectorstore.Record{
			ChunkID:       chunk.ID,
			SourceDocID:   docID,
			ChapterTitle:  title,
			Section:       chunk.Section,
			SequenceIndex: chunk.SequenceIndex,
			Content:       chunk.Text,
			Embedding:     vec,
			Mtime:         now,
		})
	}

	// One atomic swap: a write failure here must not leave the document
	// half replaced.
	if err := s.store.Replace(ctx, records, retiredIDs); err != nil {
		return 0, 0, err
	}
	logger.Info("reindex done",
		zap.Int("chunks_total", len(chunks)),
		zap.Int("chunks_indexed", len(records)),
		zap.Int("chunks_retired", len(retiredIDs)),
	)
	return len(records), len(retiredIDs), nil
}

func (s *IndexService) embedChunk(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := retry.Do(ctx, s.attempts, func(ctx context.Context) error {
		callCtx := ctx
		if s.embedTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.embedTimeout)
			defer cancel()
		}
		res, err := s.embedder.Embed(callCtx, text, documentTaskType)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: %v", apperr.ErrRetrievalTimeout, err)
			}
			return fmt.Errorf("%w: %v", apperr.ErrEmbeddingUnavailable, err)
		}
		vec = res
		return nil
	})
	return vec, err
}
