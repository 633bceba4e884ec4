package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/querypilot/query-core/internal/message"
	"github.com/querypilot/query-core/internal/progress"
)

type fakeRun struct {
	id     string
	result message.Result
	err    error
}

func (r *fakeRun) GetID() string    { return r.id }
func (r *fakeRun) GetRunID() string { return "run-1" }

func (r *fakeRun) Get(_ context.Context, valuePtr interface{}) error {
	if r.err != nil {
		return r.err
	}
	*(valuePtr.(*message.Result)) = r.result
	return nil
}

func (r *fakeRun) GetWithOptions(ctx context.Context, valuePtr interface{}, _ client.WorkflowRunGetOptions) error {
	return r.Get(ctx, valuePtr)
}

type fakeStarter struct {
	lastOptions client.StartWorkflowOptions
	run         *fakeRun
	startErr    error
}

func (f *fakeStarter) ExecuteWorkflow(_ context.Context, options client.StartWorkflowOptions, _ interface{}, _ ...interface{}) (client.WorkflowRun, error) {
	f.lastOptions = options
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.run.id = options.ID
	return f.run, nil
}

func newTestServer(starter *fakeStarter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	s := &Server{
		Temporal:  starter,
		Hub:       progress.NewHub(),
		Log:       zap.NewNop().Sugar(),
		TaskQueue: "query-pipeline",
	}
	r := gin.New()
	s.Routes(r)
	return r
}

func TestHandleQuerySuccess(t *testing.T) {
	nl := "There are **2 singers**."
	starter := &fakeStarter{run: &fakeRun{result: message.Result{
		Output: &message.QueryOutput{
			Question:                "how many singers are there",
			Database:                "concert_singer",
			SQL:                     "SELECT COUNT(*) FROM singer",
			ExecutionResult:         []message.Row{{"COUNT(*)": float64(2)}},
			RowCount:                1,
			NaturalLanguageResponse: &nl,
		},
	}}}
	r := newTestServer(starter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"question": "how many singers are there"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		RequestID string               `json:"request_id"`
		Output    *message.QueryOutput `json:"output"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.RequestID, "query-"))
	require.NotNil(t, resp.Output)
	assert.Equal(t, "SELECT COUNT(*) FROM singer", resp.Output.SQL)
	assert.Equal(t, "query-pipeline", starter.lastOptions.TaskQueue)
}

func TestHandleQueryClassifiedFailureIsStillOK(t *testing.T) {
	starter := &fakeStarter{run: &fakeRun{result: message.Result{
		Failure: &message.FailureOutput{
			ErrorKind:     message.ErrRetriesExhausted,
			ErrorMessage:  `near "SELEC": syntax error`,
			SyntaxRetries: 2,
		},
	}}}
	r := newTestServer(starter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"question": "broken"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Failure *message.FailureOutput `json:"failure"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Failure)
	assert.Equal(t, message.ErrRetriesExhausted, resp.Failure.ErrorKind)
}

func TestHandleQueryValidation(t *testing.T) {
	r := newTestServer(&fakeStarter{run: &fakeRun{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"question": "   "}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleQueryStartFailure(t *testing.T) {
	r := newTestServer(&fakeStarter{startErr: errors.New("temporal unreachable")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"question": "q"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealthz(t *testing.T) {
	r := newTestServer(&fakeStarter{run: &fakeRun{}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
