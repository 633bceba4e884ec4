package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querypilot/query-core/internal/message"
)

func msgWith(status message.Status) message.Message {
	m := message.New("q", "db", 2)
	m.Status = status
	return m
}

func TestRouteIsTotal(t *testing.T) {
	for _, s := range message.AllStatuses {
		for _, retryable := range []bool{true, false} {
			m := msgWith(s)
			if !retryable {
				m.RetryLedger.SyntaxCount = m.RetryLedger.MaxRetries
				m.RetryLedger.SemanticCount = m.RetryLedger.MaxRetries
			}
			stage, err := Route(m)
			require.NoError(t, err, "status %s retryable=%v", s, retryable)
			assert.NotEmpty(t, stage)
		}
	}
}

func TestRouteHappyPath(t *testing.T) {
	cases := []struct {
		status message.Status
		want   Stage
	}{
		{message.StatusInit, StageSchemaSelection},
		{message.StatusSchemaSelected, StageSQLGeneration},
		{message.StatusSQLGenerated, StageSQLExecution},
		{message.StatusSuccess, StageHandleSuccess},
	}
	for _, tc := range cases {
		got, err := Route(msgWith(tc.status))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "status %s", tc.status)
	}
}

func TestRouteErrorStatusesRespectLedger(t *testing.T) {
	m := msgWith(message.StatusSyntaxError)
	got, err := Route(m)
	require.NoError(t, err)
	assert.Equal(t, StageHandleSyntaxError, got)

	m.RetryLedger.SyntaxCount = m.RetryLedger.MaxRetries
	got, err = Route(m)
	require.NoError(t, err)
	assert.Equal(t, StageEscalate, got)

	// Exhausting the syntax budget does not affect semantic routing.
	m.Status = message.StatusSemanticError
	got, err = Route(m)
	require.NoError(t, err)
	assert.Equal(t, StageHandleSemanticError, got)
}

func TestRouteTerminalSinks(t *testing.T) {
	for _, s := range []message.Status{message.StatusEmptyResult, message.StatusTimeout} {
		got, err := Route(msgWith(s))
		require.NoError(t, err)
		assert.Equal(t, StageHandleExecutionIssue, got)
	}
}

func TestRouteIsPure(t *testing.T) {
	m := msgWith(message.StatusSyntaxError)
	before := m
	_, err := Route(m)
	require.NoError(t, err)
	assert.Equal(t, before, m)
}

func TestRecoveryTargetsBypassHandlers(t *testing.T) {
	assert.Equal(t, StageSQLGeneration, SyntaxRecoveryTarget)
	assert.Equal(t, StageSchemaSelection, SemanticRecoveryTarget)
}
