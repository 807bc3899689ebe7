package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/readmate/readmate/internal/pkg/errcode"
	apperr "github.com/readmate/readmate/internal/pkg/errors"
	"github.com/readmate/readmate/internal/pkg/logutil"
	"github.com/readmate/readmate/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, apperr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, apperr.ErrForbidden):
		response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, apperr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	case errors.Is(err, apperr.ErrConflict):
		response.Error(c, http.StatusConflict, errcode.ErrConflict, "conflict")
	case errors.Is(err, apperr.ErrOverloaded):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrOverloaded, "too many concurrent questions, try again shortly")
	case errors.Is(err, apperr.ErrRetrievalTimeout):
		response.Error(c, http.StatusGatewayTimeout, errcode.ErrRetrievalTimeout, "retrieval timed out")
	case errors.Is(err, apperr.ErrGenerationTimeout):
		response.Error(c, http.StatusGatewayTimeout, errcode.ErrGenerationTimeout, "generation timed out")
	case errors.Is(err, apperr.ErrEmbeddingUnavailable):
		response.Error(c, http.StatusServiceUnavailable, errcode.ErrEmbeddingUnavailable, "embedding service unavailable")
	case errors.Is(err, apperr.ErrIndexUnavailable):
		response.Error(c, http.StatusServiceUnavailable, errcode.ErrIndexUnavailable, "index unavailable")
	case errors.Is(err, apperr.ErrGenerationUnavailable):
		response.Error(c, http.StatusServiceUnavailable, errcode.ErrGenerationUnavailable, "generation service unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
