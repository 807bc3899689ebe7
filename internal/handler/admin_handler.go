package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/readmate/readmate/internal/pkg/errcode"
	"github.com/readmate/readmate/internal/pkg/response"
	"github.com/readmate/readmate/internal/service"
)

type AdminHandler struct {
	content *service.ContentService
	indexer *service.IndexService
}

func NewAdminHandler(content *service.ContentService, indexer *service.IndexService) *AdminHandler {
	return &AdminHandler{content: content, indexer: indexer}
}

type reindexRequest struct {
	DocID string `json:"doc_id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Reindex indexes one document supplied inline. Used for ad-hoc material
// that does not live in the content store.
func (h *AdminHandler) Reindex(c *gin.Context) {
	var req reindexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	indexed, retired, err := h.indexer.Reindex(c.Request.Context(), req.DocID, req.Title, req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chunksIndexed": indexed, "chunksRetired": retired})
}

// Sync pulls the whole content store and refreshes chapters and the index.
func (h *AdminHandler) Sync(c *gin.Context) {
	if err := h.content.Sync(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"synced": true})
}
