// Package message defines the single typed value that moves between
// pipeline stages, together with the retry ledger and the two terminal
// output shapes.
package message

import "fmt"

// Status tags a Message with its current phase or outcome and drives all
// routing decisions.
type Status string

const (
	StatusInit           Status = "Init"
	StatusSchemaSelected Status = "SchemaSelected"
	StatusSQLGenerated   Status = "SQLGenerated"
	StatusSuccess        Status = "Success"
	StatusSyntaxError    Status = "SyntaxError"
	StatusSemanticError  Status = "SemanticError"
	StatusEmptyResult    Status = "EmptyResult"
	StatusTimeout        Status = "Timeout"
)

// AllStatuses lists every defined status. Used to keep the router table
// exhaustively checkable.
var AllStatuses = []Status{
	StatusInit,
	StatusSchemaSelected,
	StatusSQLGenerated,
	StatusSuccess,
	StatusSyntaxError,
	StatusSemanticError,
	StatusEmptyResult,
	StatusTimeout,
}

// RetryKind names a recoverable failure class tracked by the ledger.
type RetryKind string

const (
	RetrySyntax   RetryKind = "syntax"
	RetrySemantic RetryKind = "semantic"
)

// DefaultMaxRetries bounds each retry kind per request.
const DefaultMaxRetries = 2

// RetryLedger counts recovery attempts per failure kind. Counters only ever
// increase within a request's lifetime.
type RetryLedger struct {
	SyntaxCount   int `json:"syntax_count"`
	SemanticCount int `json:"semantic_count"`
	MaxRetries    int `json:"max_retries"`
}

// NewRetryLedger returns a zeroed ledger with the given bound. A bound of
// zero or below falls back to DefaultMaxRetries.
func NewRetryLedger(maxRetries int) RetryLedger {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return RetryLedger{MaxRetries: maxRetries}
}

// CanRetry reports whether another recovery attempt of the given kind is
// still inside the bound.
func (l RetryLedger) CanRetry(kind RetryKind) bool {
	return l.Count(kind) < l.MaxRetries
}

// Count returns the attempts recorded for the given kind.
func (l RetryLedger) Count(kind RetryKind) int {
	switch kind {
	case RetrySyntax:
		return l.SyntaxCount
	case RetrySemantic:
		return l.SemanticCount
	default:
		return 0
	}
}

// Increment returns a copy of the ledger with the given kind's counter
// advanced by exactly one.
func (l RetryLedger) Increment(kind RetryKind) RetryLedger {
	switch kind {
	case RetrySyntax:
		l.SyntaxCount++
	case RetrySemantic:
		l.SemanticCount++
	}
	return l
}

// Row is one result row keyed by column name.
type Row = map[string]any

// Message is the self-contained unit of state passed between stages. Each
// stage receives one Message and produces exactly one new Message (or a
// terminal output); there is no shared mutable Message.
type Message struct {
	Question string `json:"question"`
	Database string `json:"database"`

	SQL          string `json:"sql,omitempty"`
	Status       Status `json:"status"`
	ResultRows   []Row  `json:"result_rows,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	RetryLedger RetryLedger `json:"retry_ledger"`

	Confidence     float64  `json:"confidence,omitempty"`
	Reasoning      string   `json:"reasoning,omitempty"`
	SelectedTables []string `json:"selected_tables,omitempty"`
	SchemaID       string   `json:"schema_id,omitempty"`

	ExecutionTimeMs float64 `json:"execution_time_ms"`
	RowCount        int     `json:"row_count"`
}

// New creates the initial message for a request.
func New(question, database string, maxRetries int) Message {
	return Message{
		Question:    question,
		Database:    database,
		Status:      StatusInit,
		RetryLedger: NewRetryLedger(maxRetries),
	}
}

// WithStatus returns a copy re-tagged with the given status.
func (m Message) WithStatus(s Status) Message {
	m.Status = s
	return m
}

// NeedsSQLRefinement reports whether the message is in the syntax retry loop.
func (m Message) NeedsSQLRefinement() bool { return m.Status == StatusSyntaxError }

// NeedsSchemaRefinement reports whether the message is in the semantic retry
// loop.
func (m Message) NeedsSchemaRefinement() bool { return m.Status == StatusSemanticError }

func statusIn(s Status, set ...Status) bool {
	for _, c := range set {
		if s == c {
			return true
		}
	}
	return false
}

// Validate checks the per-status field presence invariants.
func (m Message) Validate() error {
	if m.Question == "" {
		return fmt.Errorf("message: question is required")
	}
	if !statusIn(m.Status, AllStatuses...) {
		return fmt.Errorf("message: unknown status %q", m.Status)
	}

	// SemanticError may predate any SQL (schema selection can fail
	// semantically), so sql and schema_id are optional there.
	wantSQL := statusIn(m.Status,
		StatusSQLGenerated, StatusSuccess, StatusSyntaxError,
		StatusEmptyResult, StatusTimeout)
	if wantSQL && m.SQL == "" {
		return fmt.Errorf("message: status %s requires sql", m.Status)
	}
	if statusIn(m.Status, StatusInit, StatusSchemaSelected) && m.SQL != "" {
		return fmt.Errorf("message: status %s must not carry sql", m.Status)
	}

	wantRows := statusIn(m.Status, StatusSuccess, StatusEmptyResult)
	if !wantRows && m.ResultRows != nil {
		return fmt.Errorf("message: status %s must not carry result rows", m.Status)
	}
	if m.Status == StatusSuccess && len(m.ResultRows) == 0 {
		return fmt.Errorf("message: Success requires at least one result row")
	}
	if m.Status == StatusEmptyResult && len(m.ResultRows) != 0 {
		return fmt.Errorf("message: EmptyResult requires zero result rows")
	}

	wantErr := statusIn(m.Status, StatusSyntaxError, StatusSemanticError, StatusTimeout)
	if wantErr && m.ErrorMessage == "" {
		return fmt.Errorf("message: status %s requires error_message", m.Status)
	}
	if !wantErr && m.ErrorMessage != "" {
		return fmt.Errorf("message: status %s must not carry error_message", m.Status)
	}

	wantSchema := !statusIn(m.Status, StatusInit, StatusSemanticError)
	if wantSchema && m.SchemaID == "" {
		return fmt.Errorf("message: status %s requires schema_id", m.Status)
	}

	if m.RowCount != len(m.ResultRows) {
		return fmt.Errorf("message: row_count %d does not match %d result rows",
			m.RowCount, len(m.ResultRows))
	}
	if m.ExecutionTimeMs < 0 {
		return fmt.Errorf("message: execution_time_ms must be non-negative")
	}
	if over := m.RetryLedger.SyntaxCount > m.RetryLedger.MaxRetries ||
		m.RetryLedger.SemanticCount > m.RetryLedger.MaxRetries; over {
		return fmt.Errorf("message: retry ledger exceeds bound %d", m.RetryLedger.MaxRetries)
	}
	return nil
}
