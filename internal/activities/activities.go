// Package activities implements the pipeline stages that touch the outside
// world: schema storage, the language model, and the SQLite engine. Every
// classifiable outcome is encoded in the returned message's status; activity
// errors are reserved for infrastructure faults.
package activities

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/querypilot/query-core/internal/catalog"
	"github.com/querypilot/query-core/internal/llm"
	"github.com/querypilot/query-core/internal/message"
	"github.com/querypilot/query-core/internal/progress"
	"github.com/querypilot/query-core/internal/prompts"
	"github.com/querypilot/query-core/internal/schemastore"
	"github.com/querypilot/query-core/internal/sqlrunner"
)

// ConfidenceThreshold is the minimum self-reported generation confidence
// (0..100) accepted before execution.
const ConfidenceThreshold = 50.0

// Activities carries the stage dependencies. One instance is registered per
// worker.
type Activities struct {
	Store    schemastore.Store
	LLM      llm.Completer
	Loader   *catalog.Loader
	Runner   *sqlrunner.Runner
	Reporter progress.Reporter

	MaxRetries int
}

// StartInput is what a caller submits to begin a request.
type StartInput struct {
	Question       string   `json:"question"`
	Database       string   `json:"database,omitempty"`
	SelectedTables []string `json:"selected_tables,omitempty"`
}

// InitializeContext validates the request and ensures the catalog overview
// is available, building and publishing it on first use.
func (a *Activities) InitializeContext(ctx context.Context, in StartInput) (message.Message, error) {
	logger := activity.GetLogger(ctx)

	q := strings.TrimSpace(in.Question)
	if q == "" {
		return message.Message{}, fmt.Errorf("initialize: question is required")
	}

	if _, err := a.Store.GetCatalog(ctx); err != nil {
		cat, buildErr := a.Loader.BuildCatalog(ctx)
		if buildErr != nil {
			return message.Message{}, fmt.Errorf("initialize: build catalog: %w", buildErr)
		}
		if err := a.Store.PutCatalog(ctx, cat); err != nil {
			return message.Message{}, fmt.Errorf("initialize: publish catalog: %w", err)
		}
		logger.Info("catalog published", "databases", len(cat))
	}

	m := message.New(q, strings.TrimSpace(in.Database), a.MaxRetries)
	m.SelectedTables = in.SelectedTables
	return m, nil
}

// schemaSelection is the parsed shape of the schema selection response.
type schemaSelection struct {
	Database   string   `json:"database"`
	Tables     []string `json:"tables"`
	Reasoning  string   `json:"reasoning"`
	Confidence float64  `json:"confidence"`
}

// SelectSchema picks the database and tables for the question, stores the
// detailed schema under a fresh schema id, and advances to SchemaSelected.
// Selection problems (unknown database, unparseable response) come back as a
// SemanticError message.
func (a *Activities) SelectSchema(ctx context.Context, m message.Message) (message.Message, error) {
	logger := activity.GetLogger(ctx)

	cat, err := a.Store.GetCatalog(ctx)
	if err != nil {
		return message.Message{}, fmt.Errorf("select schema: load catalog: %w", err)
	}
	catalogJSON, err := renderCatalog(cat)
	if err != nil {
		return message.Message{}, fmt.Errorf("select schema: render catalog: %w", err)
	}

	prompt := prompts.SchemaSelection(m.Question, catalogJSON, m.Database, m.SelectedTables)
	raw, err := a.LLM.Complete(ctx, prompt)
	if err != nil {
		return message.Message{}, fmt.Errorf("select schema: llm: %w", err)
	}

	var sel schemaSelection
	if err := parseJSON(raw, &sel); err != nil {
		return semanticFailure(m, fmt.Sprintf("schema selection response unparseable: %v", err)), nil
	}

	// A pre-selected database always wins over the model's pick.
	if m.Database != "" {
		sel.Database = m.Database
	}
	tables, ok := cat[sel.Database]
	if !ok {
		return semanticFailure(m, fmt.Sprintf("selected database %q not in catalog", sel.Database)), nil
	}
	if len(m.SelectedTables) > 0 {
		sel.Tables = m.SelectedTables
	}
	for _, t := range sel.Tables {
		if _, ok := tables[t]; !ok {
			return semanticFailure(m, fmt.Sprintf("selected table %q not in database %q", t, sel.Database)), nil
		}
	}

	detailed, err := a.Loader.DetailedSchema(ctx, sel.Database)
	if err != nil {
		return message.Message{}, fmt.Errorf("select schema: detailed schema: %w", err)
	}
	schemaID := uuid.NewString()
	if err := a.Store.PutDetailedSchema(ctx, schemaID, detailed); err != nil {
		return message.Message{}, fmt.Errorf("select schema: store schema: %w", err)
	}

	logger.Info("schema selected",
		"database", sel.Database, "tables", len(sel.Tables), "schema_id", schemaID)

	out := m
	out.Status = message.StatusSchemaSelected
	out.Database = sel.Database
	out.SelectedTables = sel.Tables
	out.SchemaID = schemaID
	out.Confidence = sel.Confidence
	out.Reasoning = sel.Reasoning
	out.SQL = ""
	out.ErrorMessage = ""
	out.ResultRows = nil
	out.RowCount = 0
	return out, nil
}

// sqlGeneration is the parsed shape of the SQL generation response.
type sqlGeneration struct {
	SQL        string  `json:"sql"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// GenerateSQL turns the question plus detailed schema into a SQLite query.
// When the incoming message carries a prior statement and error the prompt
// switches to correction mode. Low-confidence generations are classified as
// SemanticError without executing.
func (a *Activities) GenerateSQL(ctx context.Context, m message.Message) (message.Message, error) {
	logger := activity.GetLogger(ctx)

	detailed, err := a.Store.GetDetailedSchema(ctx, m.SchemaID)
	if err != nil {
		return message.Message{}, fmt.Errorf("generate sql: load schema %s: %w", m.SchemaID, err)
	}

	prompt := prompts.SQLGeneration(m.Question, detailed, m.SelectedTables, m.SQL, m.ErrorMessage)
	raw, err := a.LLM.Complete(ctx, prompt)
	if err != nil {
		return message.Message{}, fmt.Errorf("generate sql: llm: %w", err)
	}

	var gen sqlGeneration
	if err := parseJSON(raw, &gen); err != nil {
		// Correction-mode responses are sometimes bare SQL.
		if sql := extractSQL(raw); sql != "" {
			gen = sqlGeneration{SQL: sql, Confidence: ConfidenceThreshold}
		} else {
			return semanticFailure(m, fmt.Sprintf("sql generation response unparseable: %v", err)), nil
		}
	}
	gen.SQL = strings.TrimSpace(gen.SQL)
	if gen.SQL == "" {
		return semanticFailure(m, "sql generation returned an empty statement"), nil
	}
	if gen.Confidence < ConfidenceThreshold {
		out := semanticFailure(m,
			fmt.Sprintf("generation confidence %.0f below threshold %.0f", gen.Confidence, ConfidenceThreshold))
		out.SQL = gen.SQL
		return out, nil
	}

	logger.Info("sql generated", "confidence", gen.Confidence)

	out := m
	out.Status = message.StatusSQLGenerated
	out.SQL = gen.SQL
	out.Reasoning = gen.Reasoning
	out.Confidence = gen.Confidence
	out.ErrorMessage = ""
	out.ResultRows = nil
	out.RowCount = 0
	return out, nil
}

// ExecuteSQL runs the generated statement and classifies the outcome into
// Success, EmptyResult, SyntaxError, SemanticError or Timeout.
func (a *Activities) ExecuteSQL(ctx context.Context, m message.Message) (message.Message, error) {
	logger := activity.GetLogger(ctx)

	outcome, err := a.Runner.Execute(ctx, a.Loader.DatabasePath(m.Database), m.SQL)
	if err != nil {
		return message.Message{}, fmt.Errorf("execute sql: %w", err)
	}

	logger.Info("sql executed",
		"status", string(outcome.Status), "rows", outcome.RowCount, "elapsed_ms", outcome.ExecutionTimeMs)

	out := m
	out.Status = outcome.Status
	out.ResultRows = outcome.Rows
	out.RowCount = outcome.RowCount
	out.ErrorMessage = outcome.ErrorMessage
	// Wall-clock accumulates across retry attempts.
	out.ExecutionTimeMs = m.ExecutionTimeMs + outcome.ExecutionTimeMs
	return out, nil
}

// evaluation is the parsed shape of the reasoning evaluation response.
type evaluation struct {
	IsCorrect   bool    `json:"is_correct"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	Suggestions string  `json:"suggestions"`
}

// EvaluateReasoning judges whether the executed SQL answers the question.
// Failures here are branch failures, tolerated by the aggregator.
func (a *Activities) EvaluateReasoning(ctx context.Context, m message.Message) (message.ReasoningEvaluation, error) {
	formatted, _ := FormatResults(m.ResultRows)
	prompt := prompts.ReasoningEvaluation(
		m.Question, m.SQL, m.Reasoning, m.Confidence, formatted, m.RowCount, m.ExecutionTimeMs)
	raw, err := a.LLM.Complete(ctx, prompt)
	if err != nil {
		return message.ReasoningEvaluation{}, fmt.Errorf("evaluate reasoning: llm: %w", err)
	}
	var ev evaluation
	if err := parseJSON(raw, &ev); err != nil {
		return message.ReasoningEvaluation{}, fmt.Errorf("evaluate reasoning: parse: %w", err)
	}
	return message.ReasoningEvaluation{
		IsCorrect:   ev.IsCorrect,
		Confidence:  ev.Confidence,
		Explanation: ev.Explanation,
		Suggestions: ev.Suggestions,
	}, nil
}

// nlResponse is the parsed shape of the natural language response.
type nlResponse struct {
	Response   string  `json:"response"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

// GenerateNLResponse produces the conversational answer. Failures here are
// branch failures, tolerated by the aggregator.
func (a *Activities) GenerateNLResponse(ctx context.Context, m message.Message) (string, error) {
	formatted, _ := FormatResults(m.ResultRows)
	prompt := prompts.NLResponse(m.Question, m.SQL, formatted)
	raw, err := a.LLM.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("nl response: llm: %w", err)
	}
	var nl nlResponse
	if err := parseJSON(raw, &nl); err != nil {
		return "", fmt.Errorf("nl response: parse: %w", err)
	}
	if strings.TrimSpace(nl.Response) == "" {
		return "", fmt.Errorf("nl response: empty response field")
	}
	return nl.Response, nil
}

// PublishProgress forwards one transition event to the configured reporter.
func (a *Activities) PublishProgress(_ context.Context, e progress.Event) error {
	if a.Reporter != nil {
		a.Reporter.Report(e)
	}
	return nil
}

// semanticFailure re-tags the message as a semantic failure, clearing any
// stale execution state.
func semanticFailure(m message.Message, errMsg string) message.Message {
	m.Status = message.StatusSemanticError
	m.ErrorMessage = errMsg
	m.ResultRows = nil
	m.RowCount = 0
	return m
}
