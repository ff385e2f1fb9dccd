package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/response"
	"github.com/stemsi/result-portal/internal/service"
)

// failFromError maps service errors onto the response envelope.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownRound):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownRound)
	case errors.Is(err, service.ErrUnknownSession):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownSession)
	case errors.Is(err, service.ErrRoundNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrRoundNotFound)
	case errors.Is(err, service.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		log.Warn().Err(err).Str("request_id", response.RequestID(c)).Msg("Store unavailable")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrRoundUnavailable)
	default:
		log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Unhandled error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
