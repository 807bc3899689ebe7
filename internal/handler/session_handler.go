package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/readmate/readmate/internal/model"
	"github.com/readmate/readmate/internal/pkg/errcode"
	"github.com/readmate/readmate/internal/pkg/response"
	"github.com/readmate/readmate/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type createSessionRequest struct {
	Preferences model.Preferences `json:"preferences"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), req.Preferences)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, session)
}

func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, session)
}

func (h *SessionHandler) History(c *gin.Context) {
	records, err := h.sessions.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": records})
}

func (h *SessionHandler) UpdatePreferences(c *gin.Context) {
	var prefs model.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.sessions.UpdatePreferences(c.Request.Context(), c.Param("id"), prefs); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": true})
}
