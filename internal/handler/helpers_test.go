package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/result-portal/internal/middleware"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stemsi/result-portal/internal/response"
	"github.com/stemsi/result-portal/internal/service"
	"github.com/stemsi/result-portal/internal/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type envelope struct {
	Data       json.RawMessage      `json:"data"`
	Error      *response.ErrorBody  `json:"error"`
	Pagination *response.Pagination `json:"pagination"`
	Metadata   response.Metadata    `json:"metadata"`
}

func newEngine(claims *service.Claims) *gin.Engine {
	r := gin.New()
	r.Use(response.RequestIDMiddleware())
	if claims != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextKeyClaims, claims)
			c.Next()
		})
	}
	return r
}

func studentClaims(id string) *service.Claims {
	return &service.Claims{TokenType: service.TokenTypeStudent, StudentID: id}
}

func serve(r *gin.Engine, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func serveJSON(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	return serve(r, method, target, strings.NewReader(body))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NotEmpty(t, env.Metadata.RequestID)
	return env
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	env := decode(t, w)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}

type mockResultReader struct {
	mock.Mock
}

func (m *mockResultReader) DiscoverRounds(ctx context.Context, studentID string) ([]model.RoundResult, error) {
	args := m.Called(ctx, studentID)
	r, _ := args.Get(0).([]model.RoundResult)
	return r, args.Error(1)
}

func (m *mockResultReader) GetRoundResult(ctx context.Context, roundID, studentID string) (*model.RoundResult, error) {
	args := m.Called(ctx, roundID, studentID)
	r, _ := args.Get(0).(*model.RoundResult)
	return r, args.Error(1)
}

func (m *mockResultReader) GetRank(ctx context.Context, roundID, studentID string, mode model.RankMode) (*model.Rank, error) {
	args := m.Called(ctx, roundID, studentID, mode)
	r, _ := args.Get(0).(*model.Rank)
	return r, args.Error(1)
}

type mockRoundAdmin struct {
	mock.Mock
}

func (m *mockRoundAdmin) RoundResults(ctx context.Context, roundID string, mode model.RankMode) ([]model.RoundResult, error) {
	args := m.Called(ctx, roundID, mode)
	r, _ := args.Get(0).([]model.RoundResult)
	return r, args.Error(1)
}

func (m *mockRoundAdmin) FinalizeRound(ctx context.Context, roundID string) (int, error) {
	args := m.Called(ctx, roundID)
	return args.Int(0), args.Error(1)
}

type mockRecordIngester struct {
	mock.Mock
}

func (m *mockRecordIngester) UpsertRecord(ctx context.Context, roundID string, sessionID model.SessionID, studentID string, req *model.UpsertSessionRecordRequest) (*model.SessionRecord, error) {
	args := m.Called(ctx, roundID, sessionID, studentID, req)
	r, _ := args.Get(0).(*model.SessionRecord)
	return r, args.Error(1)
}

