// Package athena submits analytic SQL queries to Amazon Athena and polls
// execution state until results are ready.
package athena

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"hios/internal/domain"
)

// API is the subset of the Athena client used by the query service.
type API interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// QueryService runs the submit / poll / fetch state machine over Athena
// query executions. Independent calls share no mutable state; the service
// itself provides no concurrency control.
type QueryService struct {
	client API
	logger *slog.Logger
}

// NewQueryService creates a query service over the given Athena client.
func NewQueryService(client API, logger *slog.Logger) *QueryService {
	return &QueryService{client: client, logger: logger}
}

// Submit starts a query execution against the given database, writing
// results to outputLocation, and returns the execution id.
func (s *QueryService) Submit(ctx context.Context, query, database, outputLocation string) (string, error) {
	out, err := s.client.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(query),
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: aws.String(database),
		},
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: aws.String(outputLocation),
		},
	})
	if err != nil {
		return "", fmt.Errorf("start query execution: %w", err)
	}
	if out.QueryExecutionId == nil {
		return "", fmt.Errorf("start query execution: no execution id returned")
	}

	s.logger.Info("query submitted", "execution_id", *out.QueryExecutionId)
	return *out.QueryExecutionId, nil
}

// AwaitCompletion polls the execution until it reaches a terminal state,
// sleeping pollInterval between polls. SUCCEEDED returns nil; FAILED and
// CANCELLED return a QueryError carrying the reason, without further polling.
// The context bounds the wait: set a deadline to avoid polling forever.
func (s *QueryService) AwaitCompletion(ctx context.Context, executionID string, pollInterval time.Duration) error {
	for {
		exec, err := s.Status(ctx, executionID)
		if err != nil {
			return err
		}

		s.logger.Debug("query state", "execution_id", executionID, "state", exec.State)

		switch exec.State {
		case domain.QueryStateSucceeded:
			return nil
		case domain.QueryStateFailed, domain.QueryStateCancelled:
			return &domain.QueryError{State: exec.State, Reason: exec.Reason}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for query %s: %w", executionID, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// Status fetches the current execution state and failure reason, if any.
func (s *QueryService) Status(ctx context.Context, executionID string) (*domain.QueryExecution, error) {
	out, err := s.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
		QueryExecutionId: aws.String(executionID),
	})
	if err != nil {
		return nil, fmt.Errorf("get query execution %s: %w", executionID, err)
	}
	if out.QueryExecution == nil || out.QueryExecution.Status == nil {
		return nil, fmt.Errorf("get query execution %s: empty status", executionID)
	}

	status := out.QueryExecution.Status
	exec := &domain.QueryExecution{
		ID:    executionID,
		State: domain.QueryExecutionState(status.State),
	}
	if status.StateChangeReason != nil {
		exec.Reason = *status.StateChangeReason
	}
	return exec, nil
}

// StreamResults pages through the execution's result set in server-defined
// order, calling fn once per record. The execution must already be terminal
// and successful. Iteration is restartable only from the beginning by calling
// StreamResults again with the same execution id.
func (s *QueryService) StreamResults(ctx context.Context, executionID string, fn func(domain.ResultRow) error) error {
	var columns []string
	var nextToken *string

	for {
		out, err := s.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
			QueryExecutionId: aws.String(executionID),
			NextToken:        nextToken,
		})
		if err != nil {
			return fmt.Errorf("get query results %s: %w", executionID, err)
		}
		if out.ResultSet == nil {
			return nil
		}

		if columns == nil && out.ResultSet.ResultSetMetadata != nil {
			for _, info := range out.ResultSet.ResultSetMetadata.ColumnInfo {
				columns = append(columns, aws.ToString(info.Name))
			}
		}

		for _, row := range out.ResultSet.Rows {
			values := make([]string, 0, len(row.Data))
			for _, datum := range row.Data {
				values = append(values, aws.ToString(datum.VarCharValue))
			}
			if err := fn(domain.ResultRow{Columns: columns, Values: values}); err != nil {
				return err
			}
		}

		nextToken = out.NextToken
		if nextToken == nil {
			return nil
		}
	}
}
