// Package pipeline contains the orchestration workflow: a status-routed
// stage loop with bounded recovery retries and a two-branch fan-out on
// success. Everything in this package is deterministic; the stages that call
// models or databases live in the activities package.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/querypilot/query-core/internal/activities"
	"github.com/querypilot/query-core/internal/message"
	"github.com/querypilot/query-core/internal/progress"
	"github.com/querypilot/query-core/internal/router"
)

// TaskQueue is the default queue workers and clients agree on.
const TaskQueue = "query-pipeline"

// maxTransitions caps the stage loop. The retry ledger already bounds every
// cycle, so hitting this indicates a routing bug, not a slow request.
const maxTransitions = 32

// Request starts one translation.
type Request struct {
	Question       string   `json:"question"`
	Database       string   `json:"database,omitempty"`
	SelectedTables []string `json:"selected_tables,omitempty"`
	// ReturnNaturalLanguage defaults to true when unset.
	ReturnNaturalLanguage *bool `json:"return_natural_language,omitempty"`
}

func (r Request) wantsNL() bool {
	return r.ReturnNaturalLanguage == nil || *r.ReturnNaturalLanguage
}

// TranslateQuestionWorkflow drives one question from Init to a terminal
// Result. Classifiable failures come back inside the Result; a returned
// error means infrastructure failure.
func TranslateQuestionWorkflow(ctx workflow.Context, req Request) (message.Result, error) {
	logger := workflow.GetLogger(ctx)
	requestID := workflow.GetInfo(ctx).WorkflowExecution.ID

	// Classifiable outcomes are encoded in the message status, so the
	// server-side retry policy stays at a single attempt.
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var a *activities.Activities

	var m message.Message
	err := workflow.ExecuteActivity(ctx, a.InitializeContext, activities.StartInput{
		Question:       req.Question,
		Database:       req.Database,
		SelectedTables: req.SelectedTables,
	}).Get(ctx, &m)
	if err != nil {
		return message.Result{}, fmt.Errorf("initialize context: %w", err)
	}
	publishTransition(ctx, requestID, "initialize_context", m, "")

	for i := 0; i < maxTransitions; i++ {
		stage, err := router.Route(m)
		if err != nil {
			return message.Result{}, err
		}

		switch stage {
		case router.StageSchemaSelection:
			if err := runStage(ctx, a.SelectSchema, &m); err != nil {
				return message.Result{}, fmt.Errorf("schema selection: %w", err)
			}
			publishTransition(ctx, requestID, string(stage), m, m.Database)

		case router.StageSQLGeneration:
			if err := runStage(ctx, a.GenerateSQL, &m); err != nil {
				return message.Result{}, fmt.Errorf("sql generation: %w", err)
			}
			publishTransition(ctx, requestID, string(stage), m, m.SQL)

		case router.StageSQLExecution:
			if err := runStage(ctx, a.ExecuteSQL, &m); err != nil {
				return message.Result{}, fmt.Errorf("sql execution: %w", err)
			}
			publishTransition(ctx, requestID, string(stage), m,
				fmt.Sprintf("%d rows", m.RowCount))

		case router.StageHandleSyntaxError:
			m = handleSyntaxError(m)
			logger.Info("retrying after syntax error",
				"attempt", m.RetryLedger.SyntaxCount, "error", m.ErrorMessage)
			publishTransition(ctx, requestID, string(stage), m, m.ErrorMessage)
			// Fixed recovery edge back into generation; no second routing
			// decision, so the handler cannot re-enter itself.
			if err := runStage(ctx, a.GenerateSQL, &m); err != nil {
				return message.Result{}, fmt.Errorf("sql regeneration: %w", err)
			}
			publishTransition(ctx, requestID, string(router.SyntaxRecoveryTarget), m, m.SQL)

		case router.StageHandleSemanticError:
			m = handleSemanticError(m)
			logger.Info("retrying after semantic error",
				"attempt", m.RetryLedger.SemanticCount, "error", m.ErrorMessage)
			publishTransition(ctx, requestID, string(stage), m, m.ErrorMessage)
			if err := runStage(ctx, a.SelectSchema, &m); err != nil {
				return message.Result{}, fmt.Errorf("schema reselection: %w", err)
			}
			publishTransition(ctx, requestID, string(router.SemanticRecoveryTarget), m, m.Database)

		case router.StageHandleSuccess:
			out := handleSuccess(ctx, requestID, req, m)
			publishTransition(ctx, requestID, string(stage), m, "completed")
			return message.Result{Output: &out}, nil

		case router.StageHandleExecutionIssue:
			if m.Status == message.StatusEmptyResult {
				out := emptyResultOutput(requestID, m)
				publishTransition(ctx, requestID, string(stage), m, "empty result")
				return message.Result{Output: &out}, nil
			}
			fail := message.FailureFrom(requestID, m, message.ErrTimeout)
			publishTransition(ctx, requestID, string(stage), m, fail.ErrorMessage)
			return message.Result{Failure: &fail}, nil

		case router.StageEscalate:
			fail := message.FailureFrom(requestID, m, message.ErrRetriesExhausted)
			logger.Info("retry budget exhausted",
				"status", string(m.Status),
				"syntax_retries", fail.SyntaxRetries,
				"semantic_retries", fail.SemanticRetries)
			publishTransition(ctx, requestID, string(stage), m, fail.ErrorMessage)
			return message.Result{Failure: &fail}, nil

		default:
			return message.Result{}, fmt.Errorf("unhandled stage %q", stage)
		}
	}
	return message.Result{}, fmt.Errorf("transition budget exceeded for request %s", requestID)
}

// runStage executes one message-in message-out activity.
func runStage(ctx workflow.Context, fn func(context.Context, message.Message) (message.Message, error), m *message.Message) error {
	return workflow.ExecuteActivity(ctx, fn, *m).Get(ctx, m)
}

// handleSuccess fans out the two enrichment branches, waits for both, and
// aggregates. A failed branch contributes a nil slot instead of failing the
// request.
func handleSuccess(ctx workflow.Context, requestID string, req Request, m message.Message) message.QueryOutput {
	logger := workflow.GetLogger(ctx)
	var a *activities.Activities

	evalFut := workflow.ExecuteActivity(ctx, a.EvaluateReasoning, m)
	var nlFut workflow.Future
	if req.wantsNL() {
		nlFut = workflow.ExecuteActivity(ctx, a.GenerateNLResponse, m)
	}

	var evalSlot *message.ReasoningEvaluation
	var eval message.ReasoningEvaluation
	if err := evalFut.Get(ctx, &eval); err != nil {
		logger.Warn("reasoning evaluation branch failed", "error", err)
	} else {
		evalSlot = &eval
	}

	var nlSlot *string
	if nlFut != nil {
		var nl string
		if err := nlFut.Get(ctx, &nl); err != nil {
			logger.Warn("natural language branch failed", "error", err)
		} else {
			nlSlot = &nl
		}
	}

	return aggregateSuccess(requestID, m, evalSlot, nlSlot)
}

// publishTransition reports one transition, best-effort.
func publishTransition(ctx workflow.Context, requestID, stage string, m message.Message, summary string) {
	var a *activities.Activities
	opts := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	_ = workflow.ExecuteActivity(opts, a.PublishProgress, progress.Event{
		RequestID: requestID,
		Stage:     stage,
		Status:    string(m.Status),
		Summary:   summary,
		At:        workflow.Now(ctx),
	}).Get(opts, nil)
}
