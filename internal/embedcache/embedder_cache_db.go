package embedcache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/readmate/readmate/internal/ai"
	"github.com/readmate/readmate/internal/model"
	"github.com/readmate/readmate/internal/pkg/logutil"
	"github.com/readmate/readmate/internal/repo"
)

// WrapDB adds a persistent cache tier keyed by (model, taskType, contentHash)
// so unchanged spans survive process restarts without re-embedding.
func WrapDB(e ai.IEmbedder, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo *repo.EmbeddingCacheRepo
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	_, contentHash := CacheKey(d.next.ModelName(), taskType, text)
	values, ok, err := d.repo.Get(ctx, d.next.ModelName(), taskType, contentHash)
	if err == nil && ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.String("task_type", taskType))
		return values, nil
	}
	if err != nil {
		logutil.GetLogger(ctx).Warn("embedding cache lookup failed", zap.Error(err))
	}
	res, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := d.repo.Save(ctx, &model.EmbeddingCache{
		ModelName:   d.next.ModelName(),
		TaskType:    taskType,
		ContentHash: contentHash,
		Embedding:   res,
		Ctime:       time.Now().Unix(),
	}); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return res, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
