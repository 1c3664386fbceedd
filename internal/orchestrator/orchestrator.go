// File path: internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/nicodishanthj/talkdata/internal/catalog"
	"github.com/nicodishanthj/talkdata/internal/common"
	"github.com/nicodishanthj/talkdata/internal/engine"
	"github.com/nicodishanthj/talkdata/internal/llm"
	"github.com/nicodishanthj/talkdata/internal/prompt"
	"github.com/nicodishanthj/talkdata/internal/safety"
	"github.com/nicodishanthj/talkdata/internal/session"
	"github.com/nicodishanthj/talkdata/internal/viz"
)

// State labels a point in a query's lifecycle, mostly for logging. A query
// always finishes in exactly one of the terminal states.
type State string

const (
	StateReceived      State = "received"
	StateContextBuilt  State = "context_built"
	StateGenerating    State = "generating"
	StateValidating    State = "validating"
	StateAccepted      State = "accepted"
	StateRejectedRetry State = "rejected_retry"
	StateExecuting     State = "executing"

	StateSucceeded       State = "succeeded"
	StateExecutionFailed State = "execution_failed"
	StateTimedOut        State = "timed_out"
	StateRejectedFinal   State = "rejected_final"
	StateOracleFailed    State = "oracle_failed"
)

// Result is the pipeline's answer to one question. Error is empty on
// success; Result and Columns are nil unless the query executed.
type Result struct {
	Success           bool             `json:"success"`
	SQLQuery          string           `json:"sql_query,omitempty"`
	Result            []map[string]any `json:"result,omitempty"`
	Columns           []string         `json:"columns,omitempty"`
	Error             string           `json:"error,omitempty"`
	VisualizationType viz.Type         `json:"visualization_type"`
	ExecutionTimeMS   float64          `json:"execution_time_ms"`
}

// Orchestrator drives a question through context building, SQL generation,
// validation and execution, recording one history entry per query.
type Orchestrator struct {
	registry *session.Registry
	provider llm.Provider
	builder  *prompt.Builder
	store    *catalog.Store
	sem      *semaphore.Weighted
	cfg      Config
}

func New(registry *session.Registry, provider llm.Provider, builder *prompt.Builder, store *catalog.Store, cfg Config) *Orchestrator {
	cfg = DefaultConfig().Merge(cfg)
	return &Orchestrator{
		registry: registry,
		provider: provider,
		builder:  builder,
		store:    store,
		sem:      semaphore.NewWeighted(cfg.OracleConcurrency),
		cfg:      cfg,
	}
}

// Run answers one natural-language question against the given session. Every
// path that reaches the oracle finishes with exactly one history record; the
// two precondition failures below happen before the pipeline starts and
// record nothing.
func (o *Orchestrator) Run(ctx context.Context, sessionID, question string) (*Result, error) {
	logger := common.Logger()
	// Cancellation is cooperative: an abandoned caller must not tear down an
	// in-flight oracle call or execution mid-mutation, and the terminal
	// history write has to land either way. The oracle and execution
	// timeouts remain the only hard bounds.
	ctx = context.WithoutCancel(ctx)
	sess, err := o.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sources := sess.DataSources()
	if len(sources) == 0 {
		return nil, session.ErrNoDatasets
	}
	logger.Info("query: received", "state", StateReceived, "session", sessionID, "question", question)

	contextText, err := o.buildContext(ctx, sess, sources)
	if err != nil {
		return nil, err
	}
	logger.Debug("query: context built", "state", StateContextBuilt, "session", sessionID, "chars", len(contextText))

	messages, err := o.builder.GenerationMessages(contextText, question)
	if err != nil {
		return nil, fmt.Errorf("build generation prompt: %w", err)
	}
	logger.Debug("query: generating", "state", StateGenerating, "session", sessionID)
	raw, err := o.generate(ctx, messages)
	if err != nil {
		return o.finishOracleFailed(ctx, sess, question, err)
	}
	candidate := prompt.ExtractSQL(raw)

	logger.Debug("query: validating", "state", StateValidating, "session", sessionID)
	statement, rejection := safety.Validate(candidate, sess.Tables())
	if rejection != nil {
		logger.Warn("query: candidate rejected, regenerating",
			"state", StateRejectedRetry, "session", sessionID,
			"reason", rejection.Reason, "detail", rejection.Detail)
		messages, err = o.builder.RegenerationMessages(contextText, question, candidate, rejection.Error())
		if err != nil {
			return nil, fmt.Errorf("build regeneration prompt: %w", err)
		}
		raw, err = o.generate(ctx, messages)
		if err != nil {
			return o.finishOracleFailed(ctx, sess, question, err)
		}
		candidate = prompt.ExtractSQL(raw)
		statement, rejection = safety.Validate(candidate, sess.Tables())
		if rejection != nil {
			return o.finishRejected(ctx, sess, question, candidate, rejection)
		}
	}

	logger.Debug("query: candidate accepted", "state", StateAccepted, "session", sessionID)
	logger.Info("query: executing", "state", StateExecuting, "session", sessionID, "sql", statement)
	sess.LockExecution()
	table, elapsed, execErr := sess.Engine().Execute(ctx, statement, o.cfg.ExecTimeout)
	sess.UnlockExecution()
	elapsedMS := float64(elapsed.Microseconds()) / 1000

	if execErr != nil {
		if errors.Is(execErr, engine.ErrTimeout) {
			return o.finishTimedOut(ctx, sess, question, statement, elapsedMS)
		}
		return o.finishExecutionFailed(ctx, sess, question, statement, execErr, elapsedMS)
	}

	vizType := viz.Classify(table)
	result := &Result{
		Success:           true,
		SQLQuery:          statement,
		Result:            table.Records(),
		Columns:           table.Columns,
		VisualizationType: vizType,
		ExecutionTimeMS:   elapsedMS,
	}
	record := o.newRecord(sess.ID, question, catalog.StatusSucceeded)
	record.SQLQuery = nullString(statement)
	record.VisualizationType = string(vizType)
	record.ResultRows = int64(len(table.Rows))
	record.ResultColumns = int64(len(table.Columns))
	record.ExecutionTimeMS = elapsedMS
	o.appendRecord(ctx, record)
	logger.Info("query: succeeded", "state", StateSucceeded, "session", sess.ID,
		"rows", len(table.Rows), "elapsed_ms", elapsedMS, "viz", vizType)
	return result, nil
}

// buildContext assembles the deterministic prompt context from the session's
// schemas, sample rows and recent history.
func (o *Orchestrator) buildContext(ctx context.Context, sess *session.Session, sources []*session.DataSource) (string, error) {
	tables := make([]prompt.TableContext, 0, len(sources))
	for _, src := range sources {
		tables = append(tables, prompt.TableContext{
			Name:       src.TableName,
			Schema:     src.Schema,
			SampleRows: src.SampleRows,
		})
	}
	var history []prompt.HistoryTurn
	records, err := o.store.RecentQueries(ctx, sess.ID, o.cfg.HistoryTurns)
	if err != nil {
		return "", fmt.Errorf("load recent history: %w", err)
	}
	for _, rec := range records {
		if rec.Status != catalog.StatusSucceeded || !rec.SQLQuery.Valid {
			continue
		}
		history = append(history, prompt.HistoryTurn{Question: rec.Question, SQL: rec.SQLQuery.String})
	}
	return o.builder.BuildContext(tables, history), nil
}

// generate calls the oracle under the global concurrency cap, retrying
// transient failures with a fixed backoff. OracleRetries bounds the retries
// after the first attempt.
func (o *Orchestrator) generate(ctx context.Context, messages []llm.Message) (string, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire oracle slot: %w", err)
	}
	defer o.sem.Release(1)

	var lastErr error
	for attempt := 0; attempt <= o.cfg.OracleRetries; attempt++ {
		if attempt > 0 {
			common.Logger().Warn("oracle: retrying", "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(o.cfg.OracleBackoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.OracleTimeout)
		reply, err := o.provider.Chat(callCtx, messages)
		cancel()
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("oracle unavailable after %d attempts: %w", o.cfg.OracleRetries+1, lastErr)
}

func (o *Orchestrator) finishOracleFailed(ctx context.Context, sess *session.Session, question string, cause error) (*Result, error) {
	record := o.newRecord(sess.ID, question, catalog.StatusOracleFailed)
	record.ErrorMessage = nullString(cause.Error())
	o.appendRecord(ctx, record)
	common.Logger().Error("query: oracle failed", "state", StateOracleFailed, "session", sess.ID, "error", cause)
	return &Result{
		Error:             "the query service is temporarily unavailable",
		VisualizationType: viz.TypeTable,
	}, nil
}

func (o *Orchestrator) finishRejected(ctx context.Context, sess *session.Session, question, candidate string, rejection *safety.Rejection) (*Result, error) {
	record := o.newRecord(sess.ID, question, catalog.StatusRejected)
	record.SQLQuery = nullString(candidate)
	record.ErrorMessage = nullString(rejection.Error())
	o.appendRecord(ctx, record)
	common.Logger().Warn("query: rejected", "state", StateRejectedFinal, "session", sess.ID,
		"reason", rejection.Reason, "detail", rejection.Detail)
	return &Result{
		SQLQuery:          candidate,
		Error:             fmt.Sprintf("generated query was rejected: %s", rejection.Error()),
		VisualizationType: viz.TypeTable,
	}, nil
}

func (o *Orchestrator) finishTimedOut(ctx context.Context, sess *session.Session, question, statement string, elapsedMS float64) (*Result, error) {
	record := o.newRecord(sess.ID, question, catalog.StatusTimeout)
	record.SQLQuery = nullString(statement)
	record.ErrorMessage = nullString("query exceeded the execution time limit")
	record.ExecutionTimeMS = elapsedMS
	o.appendRecord(ctx, record)
	common.Logger().Warn("query: timed out", "state", StateTimedOut, "session", sess.ID, "sql", statement)
	return &Result{
		SQLQuery:          statement,
		Error:             "query exceeded the execution time limit",
		VisualizationType: viz.TypeTable,
		ExecutionTimeMS:   elapsedMS,
	}, nil
}

func (o *Orchestrator) finishExecutionFailed(ctx context.Context, sess *session.Session, question, statement string, cause error, elapsedMS float64) (*Result, error) {
	record := o.newRecord(sess.ID, question, catalog.StatusExecutionError)
	record.SQLQuery = nullString(statement)
	record.ErrorMessage = nullString(cause.Error())
	record.ExecutionTimeMS = elapsedMS
	o.appendRecord(ctx, record)
	common.Logger().Warn("query: execution failed", "state", StateExecutionFailed, "session", sess.ID, "error", cause)
	return &Result{
		SQLQuery:          statement,
		Error:             fmt.Sprintf("query execution failed: %v", cause),
		VisualizationType: viz.TypeTable,
		ExecutionTimeMS:   elapsedMS,
	}, nil
}

func (o *Orchestrator) newRecord(sessionID, question, status string) catalog.QueryRecord {
	return catalog.QueryRecord{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		Question:          question,
		Status:            status,
		VisualizationType: string(viz.TypeTable),
		CreatedAt:         time.Now().UTC(),
	}
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// appendRecord writes the history entry. History is an audit trail; a write
// failure is logged but does not turn a finished query into an error.
func (o *Orchestrator) appendRecord(ctx context.Context, record catalog.QueryRecord) {
	if err := o.store.AppendQuery(ctx, record); err != nil {
		common.Logger().Error("query: history write failed",
			"session", record.SessionID, "record", record.ID, "error", err)
	}
}
