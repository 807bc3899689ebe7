package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/readmate/readmate/internal/ai"
	apperr "github.com/readmate/readmate/internal/pkg/errors"
	"github.com/readmate/readmate/internal/pkg/logutil"
	"github.com/readmate/readmate/internal/vectorstore"
)

const queryTaskType = "RETRIEVAL_QUERY"

// RetrievalResult holds the ranked matches for one query, ordered by score
// descending with sequenceIndex then chunkId as tie breakers.
type RetrievalResult struct {
	QueryVector []float32
	Matches     []vectorstore.Match
}

type RetrieverConfig struct {
	DefaultK      int
	MaxK          int
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
}

type Retriever struct {
	embedder ai.IEmbedder
	store    vectorstore.Store
	cfg      RetrieverConfig
}

func NewRetriever(embedder ai.IEmbedder, store vectorstore.Store, cfg RetrieverConfig) *Retriever {
	return &Retriever{embedder: embedder, store: store, cfg: cfg}
}

// EffectiveQuery prepends the user-highlighted excerpt so retrieval is
// anchored to the passage the reader is actually looking at.
func EffectiveQuery(question, excerpt string) string {
	excerpt = strings.TrimSpace(excerpt)
	if excerpt == "" {
		return question
	}
	return excerpt + "\n" + question
}

func (r *Retriever) ClampK(k int) int {
	if k <= 0 {
		k = r.cfg.DefaultK
	}
	if r.cfg.MaxK > 0 && k > r.cfg.MaxK {
		k = r.cfg.MaxK
	}
	return k
}

// EmbedQuery embeds the effective query text once. Exposed separately from
// SearchVector so callers can retry each external boundary on its own.
func (r *Retriever) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalid)
	}
	if r.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.EmbedTimeout)
		defer cancel()
	}
	vec, err := r.embedder.Embed(ctx, query, queryTaskType)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: embed query: %v", apperr.ErrRetrievalTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrEmbeddingUnavailable, err)
	}
	return vec, nil
}

func (r *Retriever) SearchVector(ctx context.Context, vector []float32, k int) (*RetrievalResult, error) {
	if r.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SearchTimeout)
		defer cancel()
	}
	matches, err := r.store.Search(ctx, vector, r.ClampK(k))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: vector search: %v", apperr.ErrRetrievalTimeout, err)
		}
		if errors.Is(err, apperr.ErrIndexUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrIndexUnavailable, err)
	}
	sortMatches(matches)
	logutil.GetLogger(ctx).Debug("retrieval done", zap.Int("matches", len(matches)))
	return &RetrievalResult{QueryVector: vector, Matches: matches}, nil
}

// Retrieve runs embed + search as one pass without retries; retry policy
// belongs to the caller, boundary by boundary.
func (r *Retriever) Retrieve(ctx context.Context, question, excerpt string, k int) (*RetrievalResult, error) {
	vec, err := r.EmbedQuery(ctx, EffectiveQuery(question, excerpt))
	if err != nil {
		return nil, err
	}
	return r.SearchVector(ctx, vec, k)
}

// sortMatches enforces deterministic ordering regardless of what the store
// returned: score desc, then sequenceIndex asc, then chunkId asc.
func sortMatches(matches []vectorstore.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Record.SequenceIndex != matches[j].Record.SequenceIndex {
			return matches[i].Record.SequenceIndex < matches[j].Record.SequenceIndex
		}
		return matches[i].Record.ChunkID < matches[j].Record.ChunkID
	})
}
