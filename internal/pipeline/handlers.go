package pipeline

import (
	"fmt"

	"github.com/querypilot/query-core/internal/message"
)

// The recovery handlers are deterministic: they only touch the ledger and
// leave the failure context (statement, error text) on the message for the
// correction prompt. Routing already established that the budget allows
// another attempt.

func handleSyntaxError(m message.Message) message.Message {
	m.RetryLedger = m.RetryLedger.Increment(message.RetrySyntax)
	m.ResultRows = nil
	m.RowCount = 0
	return m
}

func handleSemanticError(m message.Message) message.Message {
	m.RetryLedger = m.RetryLedger.Increment(message.RetrySemantic)
	m.ResultRows = nil
	m.RowCount = 0
	return m
}

// aggregateSuccess joins the two branch results into the terminal output.
// A nil branch slot stays nil; the overall request still succeeds.
func aggregateSuccess(requestID string, m message.Message, eval *message.ReasoningEvaluation, nl *string) message.QueryOutput {
	rows := m.ResultRows
	if rows == nil {
		rows = []message.Row{}
	}
	return message.QueryOutput{
		RequestID:               requestID,
		Question:                m.Question,
		Database:                m.Database,
		SQL:                     m.SQL,
		ExecutionResult:         rows,
		RowCount:                m.RowCount,
		ExecutionTimeMs:         m.ExecutionTimeMs,
		NaturalLanguageResponse: nl,
		ReasoningEvaluation:     eval,
	}
}

// emptyResultOutput keeps the success shape for a query that ran cleanly but
// matched nothing. No model call is needed for the explanation.
func emptyResultOutput(requestID string, m message.Message) message.QueryOutput {
	nl := fmt.Sprintf("The query executed successfully against %q but returned no rows.", m.Database)
	out := aggregateSuccess(requestID, m, nil, &nl)
	out.ExecutionResult = []message.Row{}
	out.RowCount = 0
	return out
}
