// Package router holds the transition table that maps a message's status to
// the stage that must run next. The table is pure data: it never mutates the
// message, never touches the retry ledger, and is total over every status.
package router

import (
	"fmt"

	"github.com/querypilot/query-core/internal/message"
)

// Stage names a pipeline step.
type Stage string

const (
	StageSchemaSelection      Stage = "schema_understanding"
	StageSQLGeneration        Stage = "sql_generation"
	StageSQLExecution         Stage = "sql_execution"
	StageHandleSuccess        Stage = "handle_success"
	StageHandleSyntaxError    Stage = "handle_syntax_error"
	StageHandleSemanticError  Stage = "handle_semantic_error"
	StageHandleExecutionIssue Stage = "handle_execution_issue"
	// StageEscalate terminates a request whose retry budget for the failing
	// kind is spent.
	StageEscalate Stage = "escalate_retries_exhausted"
)

// Recovery handlers re-enter the pipeline through fixed edges rather than a
// second routing decision, so a re-emitted error status cannot loop back
// into its own handler.
const (
	SyntaxRecoveryTarget   = StageSQLGeneration
	SemanticRecoveryTarget = StageSchemaSelection
)

type key struct {
	status    message.Status
	retryable bool
}

var table = map[key]Stage{
	{message.StatusInit, true}:  StageSchemaSelection,
	{message.StatusInit, false}: StageSchemaSelection,

	{message.StatusSchemaSelected, true}:  StageSQLGeneration,
	{message.StatusSchemaSelected, false}: StageSQLGeneration,

	{message.StatusSQLGenerated, true}:  StageSQLExecution,
	{message.StatusSQLGenerated, false}: StageSQLExecution,

	{message.StatusSuccess, true}:  StageHandleSuccess,
	{message.StatusSuccess, false}: StageHandleSuccess,

	{message.StatusSyntaxError, true}:  StageHandleSyntaxError,
	{message.StatusSyntaxError, false}: StageEscalate,

	{message.StatusSemanticError, true}:  StageHandleSemanticError,
	{message.StatusSemanticError, false}: StageEscalate,

	{message.StatusEmptyResult, true}:  StageHandleExecutionIssue,
	{message.StatusEmptyResult, false}: StageHandleExecutionIssue,

	{message.StatusTimeout, true}:  StageHandleExecutionIssue,
	{message.StatusTimeout, false}: StageHandleExecutionIssue,
}

// Route returns the next stage for the message. The retryable dimension is
// read from the ledger for the status's own failure kind; statuses without a
// retry loop ignore it.
func Route(m message.Message) (Stage, error) {
	retryable := true
	switch {
	case m.NeedsSQLRefinement():
		retryable = m.RetryLedger.CanRetry(message.RetrySyntax)
	case m.NeedsSchemaRefinement():
		retryable = m.RetryLedger.CanRetry(message.RetrySemantic)
	}
	s, ok := table[key{m.Status, retryable}]
	if !ok {
		return "", fmt.Errorf("router: no transition for status %q", m.Status)
	}
	return s, nil
}
