package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/middleware"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stemsi/result-portal/internal/response"
	"github.com/stemsi/result-portal/internal/scoring"
	"github.com/stemsi/result-portal/internal/validator"
)

// ResultReader serves a student's own results.
type ResultReader interface {
	DiscoverRounds(ctx context.Context, studentID string) ([]model.RoundResult, error)
	GetRoundResult(ctx context.Context, roundID, studentID string) (*model.RoundResult, error)
	GetRank(ctx context.Context, roundID, studentID string, mode model.RankMode) (*model.Rank, error)
}

// ResultHandler handles student-facing result endpoints.
type ResultHandler struct {
	results     ResultReader
	defaultMode model.RankMode
	log         zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results ResultReader, defaultMode model.RankMode, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		results:     results,
		defaultMode: defaultMode,
		log:         log.With().Str("component", "result_handler").Logger(),
	}
}

// ListRounds godoc
// GET /api/v1/student/rounds
// Returns every round the student has data for, in round order.
func (h *ResultHandler) ListRounds(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	rounds, err := h.results.DiscoverRounds(c.Request.Context(), claims.StudentID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rounds": rounds})
}

// GetRound godoc
// GET /api/v1/student/rounds/:round
func (h *ResultHandler) GetRound(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := h.results.GetRoundResult(c.Request.Context(), c.Param("round"), claims.StudentID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetRank godoc
// GET /api/v1/student/rounds/:round/rank?mode=valid|inclusive
func (h *ResultHandler) GetRank(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q model.RankQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery, fields)
		return
	}
	mode := h.defaultMode
	if q.Mode != "" {
		mode = scoring.ParseRankMode(string(q.Mode))
	}

	rank, err := h.results.GetRank(c.Request.Context(), c.Param("round"), claims.StudentID, mode)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, rank)
}
