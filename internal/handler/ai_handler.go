package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/readmate/readmate/internal/pkg/errcode"
	"github.com/readmate/readmate/internal/pkg/response"
	"github.com/readmate/readmate/internal/service"
)

type AIHandler struct {
	query *service.QueryService
}

func NewAIHandler(query *service.QueryService) *AIHandler {
	return &AIHandler{query: query}
}

type aiQueryRequest struct {
	Question  string `json:"question"`
	Excerpt   string `json:"excerpt"`
	SessionID string `json:"session_id"`
	K         int    `json:"k"`
}

type aiValidateRequest struct {
	Question string `json:"question"`
	Excerpt  string `json:"excerpt"`
}

func (h *AIHandler) Query(c *gin.Context) {
	var req aiQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	record, err := h.query.Query(c.Request.Context(), service.QueryInput{
		Question:  req.Question,
		Excerpt:   req.Excerpt,
		SessionID: req.SessionID,
		K:         req.K,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, record)
}

// QueryStream answers the same question as Query but emits the answer as
// server-sent events: one "fragment" event per text piece, then a single
// "final" event carrying the full answer record.
func (h *AIHandler) QueryStream(c *gin.Context) {
	var req aiQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	stream, err := h.query.QueryStream(c.Request.Context(), service.QueryInput{
		Question:  req.Question,
		Excerpt:   req.Excerpt,
		SessionID: req.SessionID,
		K:         req.K,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		fragment, ok := <-stream
		if !ok {
			return false
		}
		if fragment.Final != nil {
			payload, _ := json.Marshal(fragment.Final)
			c.SSEvent("final", string(payload))
			return false
		}
		c.SSEvent("fragment", fragment.Text)
		return true
	})
}

func (h *AIHandler) Validate(c *gin.Context) {
	var req aiValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.query.Validate(c.Request.Context(), req.Question, req.Excerpt)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *AIHandler) QueueStatus(c *gin.Context) {
	active, waiting, capacity := h.query.QueueStatus()
	response.Success(c, gin.H{
		"active":   active,
		"waiting":  waiting,
		"capacity": capacity,
	})
}
