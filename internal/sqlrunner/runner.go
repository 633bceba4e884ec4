// Package sqlrunner executes generated SQL against a SQLite file with a row
// cap and a deadline, and classifies the outcome into the pipeline's result
// statuses instead of surfacing raw driver errors.
package sqlrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/querypilot/query-core/internal/message"
)

const (
	DefaultMaxRows = 1000
	DefaultTimeout = 30 * time.Second
)

// Runner executes read queries. Zero-value limits fall back to the defaults.
type Runner struct {
	MaxRows int
	Timeout time.Duration
}

// Outcome is the classified result of one execution attempt.
type Outcome struct {
	Status          message.Status
	Rows            []message.Row
	RowCount        int
	ErrorMessage    string
	ExecutionTimeMs float64
}

var syntaxMarkers = []string{
	"syntax error",
	"near ",
	"unrecognized token",
	"incomplete input",
}

// Classify maps an execution error to a result status. Deadline errors win,
// then the syntax markers; everything else is semantic.
func Classify(err error) message.Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return message.StatusTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "interrupted") {
		return message.StatusTimeout
	}
	for _, marker := range syntaxMarkers {
		if strings.Contains(msg, marker) {
			return message.StatusSyntaxError
		}
	}
	return message.StatusSemanticError
}

// Execute runs the query against the database file and returns the classified
// outcome. Only infrastructure faults (unreadable file) come back as errors;
// every query-level failure is encoded in the Outcome status.
func (r *Runner) Execute(ctx context.Context, dbPath, query string) (Outcome, error) {
	maxRows := r.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		return Outcome{}, fmt.Errorf("sqlrunner: open %s: %w", dbPath, err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return r.failed(err, start), nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return r.failed(err, start), nil
	}

	var out []message.Row
	for rows.Next() {
		if len(out) >= maxRows {
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return r.failed(err, start), nil
		}
		row := make(message.Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return r.failed(err, start), nil
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	status := message.StatusSuccess
	if len(out) == 0 {
		status = message.StatusEmptyResult
		out = nil
	}
	return Outcome{
		Status:          status,
		Rows:            out,
		RowCount:        len(out),
		ExecutionTimeMs: elapsed,
	}, nil
}

func (r *Runner) failed(err error, start time.Time) Outcome {
	status := Classify(err)
	msg := err.Error()
	if status == message.StatusTimeout {
		msg = fmt.Sprintf("query exceeded deadline: %s", err.Error())
	}
	return Outcome{
		Status:          status,
		ErrorMessage:    msg,
		ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}
