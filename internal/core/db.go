package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	temporalclient "go.temporal.io/sdk/client"
)

const taskQueue = "backhaul-tasks"

// DB is the query surface the services need. *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrHasDependents is returned when deleting a backup that other backups
// reference as their parent. The chain stays intact until the dependents
// are removed first.
var ErrHasDependents = errors.New("backup has dependent incremental backups")

// skipWorkflowKey is a context key that suppresses workflow execution.
// Used when a workflow creates records itself and must not recurse into
// starting another run.
type skipWorkflowKey struct{}

// WithSkipWorkflow returns a context that causes startWorkflow to be a no-op.
func WithSkipWorkflow(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipWorkflowKey{}, true)
}

// workflowID builds a human-readable Temporal workflow ID from a resource
// type prefix and the resource's unique ID.
func workflowID(prefix, id string) string {
	return fmt.Sprintf("%s-%s", prefix, id)
}

// startWorkflow executes a Temporal workflow on the shared task queue. The
// workflow ID doubles as a single-flight guard: Temporal rejects a second
// start while a run with the same ID is open. If the context has
// WithSkipWorkflow set, this is a no-op.
func startWorkflow(ctx context.Context, tc temporalclient.Client, workflowName, wfID string, arg any) error {
	if v, _ := ctx.Value(skipWorkflowKey{}).(bool); v {
		return nil
	}
	_, err := tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        wfID,
		TaskQueue: taskQueue,
	}, workflowName, arg)
	return err
}
