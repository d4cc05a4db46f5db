package activity

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/devflow/backhaul/internal/model"
)

// Agent contains the activities that produce backup artifacts on the host
// that owns the data. An agent worker registers them on its own task queue;
// the backup workflows route to that queue via the backup context.
type Agent struct {
	logger  zerolog.Logger
	dataDir string
	workDir string
}

// NewAgent creates the agent activity struct. dataDir is the root under
// which project and server data lives; workDir is where artifacts are
// staged before upload.
func NewAgent(logger zerolog.Logger, dataDir, workDir string) *Agent {
	return &Agent{
		logger:  logger.With().Str("component", "agent-activity").Logger(),
		dataDir: dataDir,
		workDir: workDir,
	}
}

// CreateFileArchive produces a gzipped tar of a project's file tree. For
// incremental backups only files modified after the parent's completion
// time are included.
func (a *Agent) CreateFileArchive(ctx context.Context, bctx BackupContext) (*ArtifactResult, error) {
	a.logger.Info().Str("project", bctx.ProjectID).Str("backup", bctx.ID).Msg("CreateFileArchive")

	sourceDir := filepath.Join(a.dataDir, "projects", bctx.ProjectID, "files")
	artifactPath := filepath.Join(a.workDir, bctx.ID+".tar.gz")

	if err := os.MkdirAll(a.workDir, 0755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	args := []string{"czf", artifactPath}
	if bctx.IncrementalSince != nil {
		args = append(args, "--newer-mtime="+bctx.IncrementalSince.UTC().Format("2006-01-02 15:04:05"))
	}
	args = append(args, "-C", sourceDir, ".")

	cmd := exec.CommandContext(ctx, "tar", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("tar czf failed: %w: %s", err, string(out))
	}

	return a.artifactResult(artifactPath)
}

// CreateDatabaseDump runs pg_dump for the backup's database and stores the
// compressed output.
func (a *Agent) CreateDatabaseDump(ctx context.Context, bctx BackupContext) (*ArtifactResult, error) {
	a.logger.Info().Str("database", bctx.DatabaseName).Str("backup", bctx.ID).Msg("CreateDatabaseDump")

	artifactPath := filepath.Join(a.workDir, bctx.ID+".sql.gz")

	if err := os.MkdirAll(a.workDir, 0755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, "bash", "-c",
		fmt.Sprintf("pg_dump %s | gzip > %s", bctx.DatabaseName, artifactPath))
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pg_dump failed: %w: %s", err, string(out))
	}

	return a.artifactResult(artifactPath)
}

// CreateServerSnapshot copies a server's disk image into the staging area.
// Snapshot-type backups convert to qcow2, image-type backups are a sparse
// raw copy.
func (a *Agent) CreateServerSnapshot(ctx context.Context, bctx BackupContext) (*ArtifactResult, error) {
	if bctx.ServerID == nil {
		return nil, fmt.Errorf("server backup %s has no server", bctx.ID)
	}
	a.logger.Info().Str("server", *bctx.ServerID).Str("backup", bctx.ID).Msg("CreateServerSnapshot")

	sourceImage := filepath.Join(a.dataDir, "servers", *bctx.ServerID, "disk.img")
	artifactPath := filepath.Join(a.workDir, bctx.ID+".img")

	if err := os.MkdirAll(a.workDir, 0755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	var cmd *exec.Cmd
	if bctx.SnapshotType == model.SnapshotTypeImage {
		cmd = exec.CommandContext(ctx, "cp", "--sparse=always", sourceImage, artifactPath)
	} else {
		cmd = exec.CommandContext(ctx, "qemu-img", "convert", "-O", "qcow2", sourceImage, artifactPath)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("snapshot %s failed: %w: %s", *bctx.ServerID, err, string(out))
	}

	return a.artifactResult(artifactPath)
}

// RemoveArtifact deletes a staged artifact after it has been uploaded.
func (a *Agent) RemoveArtifact(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

func (a *Agent) artifactResult(path string) (*ArtifactResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	return &ArtifactResult{LocalPath: path, SizeBytes: info.Size()}, nil
}
