package job

import (
	"context"

	"github.com/readmate/readmate/internal/service"
)

// ContentSyncJob keeps chapters and the retrieval index in step with the
// content store. Unchanged chapters cost nothing beyond a chunk pass.
type ContentSyncJob struct {
	content *service.ContentService
}

func NewContentSyncJob(content *service.ContentService) *ContentSyncJob {
	return &ContentSyncJob{content: content}
}

func (j *ContentSyncJob) Name() string {
	return "content_sync"
}

func (j *ContentSyncJob) Run(ctx context.Context) error {
	if j.content == nil {
		return nil
	}
	return j.content.Sync(ctx)
}
