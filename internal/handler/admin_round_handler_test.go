package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/config"
	"github.com/stemsi/result-portal/internal/export"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stemsi/result-portal/internal/response"
	"github.com/stemsi/result-portal/internal/scoring"
	"github.com/stemsi/result-portal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newAdminEngine(t *testing.T, rounds *mockRoundAdmin, records *mockRecordIngester) *gin.Engine {
	t.Helper()
	layout, err := config.LoadLayout("")
	require.NoError(t, err)
	subjects, err := scoring.NewSubjectMap(layout)
	require.NoError(t, err)

	h := NewAdminRoundHandler(subjects, rounds, records, model.RankModeValid, zerolog.Nop())
	r := newEngine(&service.Claims{TokenType: service.TokenTypeAdmin})
	r.PUT("/rounds/:round/sessions/:session/records/:student_id", h.UpsertRecord)
	r.GET("/rounds/:round/results", h.ListResults)
	r.GET("/rounds/:round/results.xlsx", h.ExportResults)
	r.POST("/rounds/:round/finalize", h.FinalizeRound)
	return r
}

func recordPath(round, session, student string) string {
	return fmt.Sprintf("/rounds/%s/sessions/%s/records/%s", round, url.PathEscape(session), student)
}

func TestUpsertRecord(t *testing.T) {
	records := new(mockRecordIngester)
	records.On("UpsertRecord", mock.Anything, "1", model.SessionID("2교시"), "S1",
		&model.UpsertSessionRecordRequest{Responses: map[int]int{1: 3, 2: 0}, WrongQuestions: []int{4, 9}},
	).Return(&model.SessionRecord{RoundID: "1", SessionID: "2교시", StudentID: "S1", WrongQuestions: []int{4, 9}}, nil)

	w := serveJSON(newAdminEngine(t, new(mockRoundAdmin), records), http.MethodPut,
		recordPath("1", "2교시", "S1"),
		`{"responses":{"1":3,"2":0},"wrong_questions":[4,9]}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rec model.SessionRecord
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rec))
	assert.Equal(t, []int{4, 9}, rec.WrongQuestions)
	records.AssertExpectations(t)
}

func TestUpsertRecordValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing wrong questions", `{"responses":{"1":3}}`},
		{"choice out of range", `{"responses":{"1":9},"wrong_questions":[]}`},
		{"question zero", `{"wrong_questions":[0]}`},
		{"malformed", `{"wrong_questions":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := new(mockRecordIngester)

			w := serveJSON(newAdminEngine(t, new(mockRoundAdmin), records), http.MethodPut, recordPath("1", "1교시", "S1"), tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, response.ErrValidation, env.Error.Code)
			assert.NotEmpty(t, env.Error.Fields)
			records.AssertNotCalled(t, "UpsertRecord", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpsertRecordUnknownSession(t *testing.T) {
	records := new(mockRecordIngester)
	records.On("UpsertRecord", mock.Anything, "1", model.SessionID("9교시"), "S1", mock.Anything).Return(nil, service.ErrUnknownSession)

	w := serveJSON(newAdminEngine(t, new(mockRoundAdmin), records), http.MethodPut, recordPath("1", "9교시", "S1"), `{"wrong_questions":[]}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrUnknownSession, errCode(t, w))
}

func threeResults() []model.RoundResult {
	return []model.RoundResult{
		{RoundID: "1", StudentID: "A", Available: true, TotalScore: 300},
		{RoundID: "1", StudentID: "B", Available: true, TotalScore: 250},
		{RoundID: "1", StudentID: "C", Available: true, TotalScore: 200},
	}
}

func TestListResultsPaginates(t *testing.T) {
	rounds := new(mockRoundAdmin)
	rounds.On("RoundResults", mock.Anything, "1", model.RankModeInclusive).Return(threeResults(), nil)

	w := serve(newAdminEngine(t, rounds, new(mockRecordIngester)), http.MethodGet, "/rounds/1/results?mode=inclusive&page=2&per_page=2", nil)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	var data struct {
		Results []model.RoundResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Results, 1)
	assert.Equal(t, "C", data.Results[0].StudentID)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	assert.Equal(t, 3, env.Pagination.TotalItems)
}

func TestListResultsPageBeyondEnd(t *testing.T) {
	rounds := new(mockRoundAdmin)
	rounds.On("RoundResults", mock.Anything, "1", model.RankModeValid).Return(threeResults(), nil)

	w := serve(newAdminEngine(t, rounds, new(mockRecordIngester)), http.MethodGet, "/rounds/1/results?page=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Results []model.RoundResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Empty(t, data.Results)
}

func TestListResultsRejectsBadPage(t *testing.T) {
	w := serve(newAdminEngine(t, new(mockRoundAdmin), new(mockRecordIngester)), http.MethodGet, "/rounds/1/results?per_page=0&page=-1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidQuery, errCode(t, w))
}

func TestExportResults(t *testing.T) {
	rounds := new(mockRoundAdmin)
	rounds.On("RoundResults", mock.Anything, "2", model.RankModeValid).Return(threeResults(), nil)

	w := serve(newAdminEngine(t, rounds, new(mockRecordIngester)), http.MethodGet, "/rounds/2/results.xlsx", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "round-2-results.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.ResultsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestExportResultsUnknownRound(t *testing.T) {
	rounds := new(mockRoundAdmin)

	w := serve(newAdminEngine(t, rounds, new(mockRecordIngester)), http.MethodGet, "/rounds/7/results.xlsx", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrUnknownRound, errCode(t, w))
	rounds.AssertNotCalled(t, "RoundResults", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeRound(t *testing.T) {
	rounds := new(mockRoundAdmin)
	rounds.On("FinalizeRound", mock.Anything, "4").Return(12, nil)

	w := serve(newAdminEngine(t, rounds, new(mockRecordIngester)), http.MethodPost, "/rounds/4/finalize", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		RoundID        string `json:"round_id"`
		PopulationSize int    `json:"population_size"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "4", data.RoundID)
	assert.Equal(t, 12, data.PopulationSize)
}
