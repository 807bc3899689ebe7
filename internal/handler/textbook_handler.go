package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/readmate/readmate/internal/model"
	"github.com/readmate/readmate/internal/pkg/errcode"
	"github.com/readmate/readmate/internal/pkg/response"
	"github.com/readmate/readmate/internal/service"
)

type TextbookHandler struct {
	content  *service.ContentService
	sessions *service.SessionService
}

func NewTextbookHandler(content *service.ContentService, sessions *service.SessionService) *TextbookHandler {
	return &TextbookHandler{content: content, sessions: sessions}
}

func (h *TextbookHandler) ListChapters(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	language := c.Query("lang")
	items, total, err := h.content.List(c.Request.Context(), language, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	// Listings carry metadata only.
	for i := range items {
		items[i].Content = ""
	}
	response.Success(c, gin.H{"items": items, "total": total})
}

func (h *TextbookHandler) GetChapter(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "chapter id required")
		return
	}
	language := c.Query("lang")
	prefs := h.resolvePreferences(c, &language)
	chapter, err := h.content.Get(c.Request.Context(), id, language, prefs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, chapter)
}

func (h *TextbookHandler) GetToc(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "chapter id required")
		return
	}
	entries, err := h.content.Toc(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": entries})
}

func (h *TextbookHandler) Languages(c *gin.Context) {
	langs, err := h.content.Languages(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": langs})
}

// resolvePreferences loads the session tied to the request, if any. The
// session's language preference fills in an absent lang query parameter.
func (h *TextbookHandler) resolvePreferences(c *gin.Context, language *string) *model.Preferences {
	sessionID := c.Query("session_id")
	if sessionID == "" || h.sessions == nil {
		return nil
	}
	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		return nil
	}
	if *language == "" && session.Preferences.Language != "" {
		*language = session.Preferences.Language
	}
	return &session.Preferences
}
