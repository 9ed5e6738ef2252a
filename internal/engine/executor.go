// Package engine executes aggregation queries against Athena and decodes the
// results into typed tables. Athena runs queries asynchronously: a submission
// returns a handle, and the executor polls for a terminal state before
// fetching results.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/google/uuid"

	"usage-report/internal/domain"
)

const (
	defaultPollInterval = 1 * time.Second
	defaultMaxWait      = 15 * time.Minute
)

// AthenaAPI is the subset of the Athena client the executor needs.
type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
	StopQueryExecution(ctx context.Context, params *athena.StopQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StopQueryExecutionOutput, error)
}

// ExecutorConfig holds the query execution context.
type ExecutorConfig struct {
	Database       string        // Athena database queries run against
	OutputLocation string        // S3 URI Athena writes result artifacts to
	WorkGroup      string        // optional Athena workgroup
	PollInterval   time.Duration // delay between status polls (default 1s)
	MaxWait        time.Duration // bound on a single execution (default 15m)
}

// Executor submits queries, polls for completion, and fetches results.
type Executor struct {
	client AthenaAPI
	cfg    ExecutorConfig
	logger *slog.Logger

	// sleep waits between status polls; injectable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an Executor with defaults applied.
func NewExecutor(client AthenaAPI, cfg ExecutorConfig, logger *slog.Logger) *Executor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{client: client, cfg: cfg, logger: logger, sleep: sleepCtx}
}

// Execute runs a query to completion and returns the decoded result table.
// Submission failures return a BackendUnavailableError; a FAILED or CANCELLED
// terminal state returns a QueryExecutionError carrying the backend's reason;
// exceeding the configured max wait stops the query and returns a
// QueryTimeoutError.
func (e *Executor) Execute(ctx context.Context, sql string) (*domain.ResultTable, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, domain.ErrValidation("sql query is required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.MaxWait)
	defer cancel()

	input := &athena.StartQueryExecutionInput{
		QueryString:           aws.String(sql),
		QueryExecutionContext: &types.QueryExecutionContext{Database: aws.String(e.cfg.Database)},
		ResultConfiguration:   &types.ResultConfiguration{OutputLocation: aws.String(e.cfg.OutputLocation)},
		ClientRequestToken:    aws.String(uuid.NewString()),
	}
	if e.cfg.WorkGroup != "" {
		input.WorkGroup = aws.String(e.cfg.WorkGroup)
	}

	start := time.Now()
	submitted, err := e.client.StartQueryExecution(ctx, input)
	if err != nil {
		return nil, domain.ErrBackendUnavailable("submit query: %v", err)
	}
	handle := aws.ToString(submitted.QueryExecutionId)

	state, reason, err := e.waitForTerminal(ctx, handle)
	if err != nil {
		// The query keeps running server-side after a local deadline;
		// stop it so it cannot bill for a result nobody will fetch.
		e.stopQuery(handle)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrQueryTimeout("query %s did not reach a terminal state within %s", handle, e.cfg.MaxWait)
		}
		return nil, err
	}

	if state != domain.QueryStateSucceeded {
		if reason == "" {
			reason = "Unknown error"
		}
		e.logger.Warn("query reached non-success terminal state",
			"query_execution_id", handle, "state", string(state), "reason", reason)
		return nil, domain.ErrQueryExecution(reason)
	}

	results, err := e.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(handle),
	})
	if err != nil {
		return nil, domain.ErrBackendUnavailable("fetch query results: %v", err)
	}

	table := DecodeResultSet(results.ResultSet)
	e.logger.Debug("query completed",
		"query_execution_id", handle, "rows", table.RowCount(), "duration", time.Since(start))
	return table, nil
}

// waitForTerminal polls the execution status until it is terminal, sleeping
// the configured interval between polls.
func (e *Executor) waitForTerminal(ctx context.Context, handle string) (domain.QueryState, string, error) {
	for {
		out, err := e.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(handle),
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", "", ctxErr
			}
			return "", "", domain.ErrBackendUnavailable("poll query status: %v", err)
		}

		status := out.QueryExecution.Status
		state := domain.QueryState(status.State)
		if state.Terminal() {
			return state, aws.ToString(status.StateChangeReason), nil
		}

		if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
			return "", "", err
		}
	}
}

// stopQuery asks the backend to cancel an execution. Best-effort: the caller
// is already failing the request.
func (e *Executor) stopQuery(handle string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := e.client.StopQueryExecution(ctx, &athena.StopQueryExecutionInput{
		QueryExecutionId: aws.String(handle),
	}); err != nil {
		e.logger.Warn("stop query execution", "query_execution_id", handle, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
