package workflow

import (
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"

	"github.com/devflow/backhaul/internal/activity"
)

// registerActivities registers activity structs with the test workflow
// environment so that parameter and return types can be deserialized
// correctly by the Temporal test framework. In unit tests all activities are
// mocked via OnActivity, but the framework still needs the type information.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.BackupDB{})
	env.RegisterActivity(&activity.Uploader{})
	env.RegisterActivity(&activity.Agent{})
}

// registerBackupWorkflows registers the per-kind backup workflows so a
// schedule run can execute them as children by name.
func registerBackupWorkflows(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterWorkflow(FileBackupWorkflow)
	env.RegisterWorkflow(DatabaseBackupWorkflow)
	env.RegisterWorkflow(ServerBackupWorkflow)
}

// matchFailedBackup returns a mock.MatchedBy matcher for FailBackupParams
// that checks kind, id and that the message is non-empty. The exact message
// includes Temporal activity error wrapping that is not predictable in tests.
func matchFailedBackup(kind, id string) interface{} {
	return mock.MatchedBy(func(params activity.FailBackupParams) bool {
		return params.Kind == kind && params.ID == id && params.Message != ""
	})
}
