package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/export"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stemsi/result-portal/internal/response"
	"github.com/stemsi/result-portal/internal/scoring"
	"github.com/stemsi/result-portal/internal/validator"
)

const defaultResultsPerPage = 100

// RoundAdmin evaluates and finalizes whole rounds.
type RoundAdmin interface {
	RoundResults(ctx context.Context, roundID string, mode model.RankMode) ([]model.RoundResult, error)
	FinalizeRound(ctx context.Context, roundID string) (int, error)
}

// RecordIngester stores raw session records.
type RecordIngester interface {
	UpsertRecord(ctx context.Context, roundID string, sessionID model.SessionID, studentID string, req *model.UpsertSessionRecordRequest) (*model.SessionRecord, error)
}

// AdminRoundHandler handles operator endpoints for rounds and records.
type AdminRoundHandler struct {
	subjects    *scoring.SubjectMap
	rounds      RoundAdmin
	records     RecordIngester
	defaultMode model.RankMode
	log         zerolog.Logger
}

// NewAdminRoundHandler creates a new AdminRoundHandler.
func NewAdminRoundHandler(subjects *scoring.SubjectMap, rounds RoundAdmin, records RecordIngester, defaultMode model.RankMode, log zerolog.Logger) *AdminRoundHandler {
	return &AdminRoundHandler{
		subjects:    subjects,
		rounds:      rounds,
		records:     records,
		defaultMode: defaultMode,
		log:         log.With().Str("component", "admin_round_handler").Logger(),
	}
}

// UpsertRecord godoc
// PUT /api/v1/admin/rounds/:round/sessions/:session/records/:student_id
func (h *AdminRoundHandler) UpsertRecord(c *gin.Context) {
	var req model.UpsertSessionRecordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rec, err := h.records.UpsertRecord(
		c.Request.Context(),
		c.Param("round"),
		model.SessionID(c.Param("session")),
		c.Param("student_id"),
		&req,
	)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, rec)
}

// ListResults godoc
// GET /api/v1/admin/rounds/:round/results?mode=&page=&per_page=
func (h *AdminRoundHandler) ListResults(c *gin.Context) {
	var q model.RoundResultsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery, fields)
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = defaultResultsPerPage
	}

	results, err := h.rounds.RoundResults(c.Request.Context(), c.Param("round"), h.mode(q.Mode))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	start := min((q.Page-1)*q.PerPage, len(results))
	end := min(start+q.PerPage, len(results))

	response.SuccessWithPagination(c, http.StatusOK,
		gin.H{"results": results[start:end]},
		response.NewPagination(q.Page, q.PerPage, len(results)),
	)
}

// ExportResults godoc
// GET /api/v1/admin/rounds/:round/results.xlsx?mode=
func (h *AdminRoundHandler) ExportResults(c *gin.Context) {
	var q model.RankQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery, fields)
		return
	}

	roundID := c.Param("round")
	round, ok := h.subjects.Round(roundID)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrUnknownRound)
		return
	}

	results, err := h.rounds.RoundResults(c.Request.Context(), round.ID, h.mode(q.Mode))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="round-%s-results.xlsx"`, round.ID))
	c.Status(http.StatusOK)
	if err := export.WriteRoundResults(c.Writer, h.subjects.Layout(), round, results); err != nil {
		h.log.Error().Err(err).Str("round_id", round.ID).Msg("Export failed mid-stream")
	}
}

// FinalizeRound godoc
// POST /api/v1/admin/rounds/:round/finalize
func (h *AdminRoundHandler) FinalizeRound(c *gin.Context) {
	size, err := h.rounds.FinalizeRound(c.Request.Context(), c.Param("round"))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"round_id":        c.Param("round"),
		"population_size": size,
	})
}

func (h *AdminRoundHandler) mode(m model.RankMode) model.RankMode {
	if m == "" {
		return h.defaultMode
	}
	return scoring.ParseRankMode(string(m))
}
