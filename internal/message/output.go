package message

// ErrorKind labels a terminal failure output.
type ErrorKind string

const (
	ErrSyntax           ErrorKind = "SyntaxError"
	ErrSemantic         ErrorKind = "SemanticError"
	ErrEmptyResult      ErrorKind = "EmptyResult"
	ErrTimeout          ErrorKind = "Timeout"
	ErrRetriesExhausted ErrorKind = "RetriesExhausted"
)

// ReasoningEvaluation is the fan-out branch that judges whether the
// generated SQL answers the question.
type ReasoningEvaluation struct {
	IsCorrect   bool    `json:"is_correct"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	Suggestions string  `json:"suggestions,omitempty"`
}

// QueryOutput is the terminal success shape. EmptyResult terminals reuse it
// with an empty ExecutionResult. Branch slots stay nil when their branch
// failed or was skipped.
type QueryOutput struct {
	RequestID               string               `json:"request_id"`
	Question                string               `json:"question"`
	Database                string               `json:"database"`
	SQL                     string               `json:"sql"`
	ExecutionResult         []Row                `json:"execution_result"`
	RowCount                int                  `json:"row_count"`
	ExecutionTimeMs         float64              `json:"execution_time_ms"`
	NaturalLanguageResponse *string              `json:"natural_language_response"`
	ReasoningEvaluation     *ReasoningEvaluation `json:"reasoning_evaluation"`
}

// FailureOutput is the terminal failure shape. PartialSQL carries the last
// generated statement when one exists.
type FailureOutput struct {
	RequestID       string    `json:"request_id"`
	Question        string    `json:"question"`
	Database        string    `json:"database"`
	ErrorKind       ErrorKind `json:"error_kind"`
	ErrorMessage    string    `json:"error_message"`
	PartialSQL      *string   `json:"partial_sql"`
	SyntaxRetries   int       `json:"syntax_retries"`
	SemanticRetries int       `json:"semantic_retries"`
}

// Result is the union delivered to callers: exactly one of Output and
// Failure is set.
type Result struct {
	Output  *QueryOutput   `json:"output,omitempty"`
	Failure *FailureOutput `json:"failure,omitempty"`
}

// FailureFrom builds the failure terminal for a message, mapping its status
// (or retry exhaustion) to the error kind.
func FailureFrom(requestID string, m Message, kind ErrorKind) FailureOutput {
	out := FailureOutput{
		RequestID:       requestID,
		Question:        m.Question,
		Database:        m.Database,
		ErrorKind:       kind,
		ErrorMessage:    m.ErrorMessage,
		SyntaxRetries:   m.RetryLedger.SyntaxCount,
		SemanticRetries: m.RetryLedger.SemanticCount,
	}
	if m.SQL != "" {
		sql := m.SQL
		out.PartialSQL = &sql
	}
	if out.ErrorMessage == "" {
		switch kind {
		case ErrEmptyResult:
			out.ErrorMessage = "query executed successfully but returned no rows"
		default:
			out.ErrorMessage = string(kind)
		}
	}
	return out
}
