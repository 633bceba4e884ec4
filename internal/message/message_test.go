package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	m := New("how many singers are there", "concert_singer", 0)
	assert.Equal(t, StatusInit, m.Status)
	assert.Equal(t, DefaultMaxRetries, m.RetryLedger.MaxRetries)
	assert.Zero(t, m.RetryLedger.SyntaxCount)
	assert.Zero(t, m.RetryLedger.SemanticCount)
	require.NoError(t, m.Validate())
}

func TestRetryLedgerBounds(t *testing.T) {
	l := NewRetryLedger(2)

	assert.True(t, l.CanRetry(RetrySyntax))
	l = l.Increment(RetrySyntax)
	assert.True(t, l.CanRetry(RetrySyntax))
	l = l.Increment(RetrySyntax)
	assert.False(t, l.CanRetry(RetrySyntax))
	assert.Equal(t, 2, l.SyntaxCount)

	// Kinds are independent.
	assert.True(t, l.CanRetry(RetrySemantic))
	l = l.Increment(RetrySemantic)
	assert.Equal(t, 1, l.SemanticCount)
	assert.Equal(t, 2, l.SyntaxCount)
}

func TestRefinementPredicates(t *testing.T) {
	m := New("q", "db", 2)
	assert.False(t, m.NeedsSQLRefinement())
	assert.False(t, m.NeedsSchemaRefinement())

	m.Status = StatusSyntaxError
	assert.True(t, m.NeedsSQLRefinement())
	assert.False(t, m.NeedsSchemaRefinement())

	m.Status = StatusSemanticError
	assert.False(t, m.NeedsSQLRefinement())
	assert.True(t, m.NeedsSchemaRefinement())
}

func TestIncrementDoesNotMutateReceiver(t *testing.T) {
	l := NewRetryLedger(2)
	_ = l.Increment(RetrySyntax)
	assert.Zero(t, l.SyntaxCount)
}

func validSuccess() Message {
	return Message{
		Question:    "top city by population",
		Database:    "world_1",
		SQL:         "SELECT name FROM city ORDER BY population DESC LIMIT 1",
		Status:      StatusSuccess,
		ResultRows:  []Row{{"name": "Mumbai"}},
		RowCount:    1,
		SchemaID:    "b7a9f0e2-1111-4222-8333-444455556666",
		RetryLedger: NewRetryLedger(2),
	}
}

func TestValidateStatusInvariants(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Message)
		wantErr string
	}{
		{"valid success", func(m *Message) {}, ""},
		{"success without rows", func(m *Message) {
			m.ResultRows = nil
			m.RowCount = 0
		}, "at least one result row"},
		{"init must not carry sql", func(m *Message) {
			m.Status = StatusInit
			m.ResultRows = nil
			m.RowCount = 0
			m.SchemaID = ""
		}, "must not carry sql"},
		{"syntax error requires message", func(m *Message) {
			m.Status = StatusSyntaxError
			m.ResultRows = nil
			m.RowCount = 0
		}, "requires error_message"},
		{"timeout carries sql and message", func(m *Message) {
			m.Status = StatusTimeout
			m.ResultRows = nil
			m.RowCount = 0
			m.ErrorMessage = "query exceeded deadline"
		}, ""},
		{"empty result rejects rows", func(m *Message) {
			m.Status = StatusEmptyResult
		}, "requires zero result rows"},
		{"row count mismatch", func(m *Message) {
			m.RowCount = 3
		}, "row_count"},
		{"ledger over bound", func(m *Message) {
			m.RetryLedger.SyntaxCount = 3
		}, "exceeds bound"},
		{"semantic error before any schema", func(m *Message) {
			m.Status = StatusSemanticError
			m.SQL = ""
			m.ResultRows = nil
			m.RowCount = 0
			m.SchemaID = ""
			m.ErrorMessage = `selected database "does_not_exist" not in catalog`
		}, ""},
		{"post-init requires schema id", func(m *Message) {
			m.Status = StatusSchemaSelected
			m.SQL = ""
			m.ResultRows = nil
			m.RowCount = 0
			m.SchemaID = ""
		}, "requires schema_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := validSuccess()
			tc.mutate(&m)
			err := m.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestFailureFrom(t *testing.T) {
	m := validSuccess()
	m.Status = StatusSemanticError
	m.ResultRows = nil
	m.RowCount = 0
	m.ErrorMessage = "no such table: singers"
	m.RetryLedger = m.RetryLedger.Increment(RetrySemantic).Increment(RetrySemantic)

	out := FailureFrom("req-1", m, ErrRetriesExhausted)
	assert.Equal(t, ErrRetriesExhausted, out.ErrorKind)
	assert.Equal(t, "no such table: singers", out.ErrorMessage)
	require.NotNil(t, out.PartialSQL)
	assert.Equal(t, m.SQL, *out.PartialSQL)
	assert.Equal(t, 2, out.SemanticRetries)
	assert.Zero(t, out.SyntaxRetries)
}

func TestFailureFromWithoutSQL(t *testing.T) {
	m := New("q", "db", 2)
	out := FailureFrom("req-2", m, ErrTimeout)
	assert.Nil(t, out.PartialSQL)
	assert.NotEmpty(t, out.ErrorMessage)
}
