package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/devflow/backhaul/internal/model"
)

// ApplyRetention prunes a project's completed file backups down to a
// grandfather-father-son keep set: the newest backup of each of the last
// `daily` days, each of the last `weekly` weeks and each of the last
// `monthly` months survives. A backup outside the keep set is only deleted
// once nothing depends on it, so chains are trimmed leaf first and a kept
// incremental always retains its ancestry. Returns the IDs deleted.
func (s *FileBackupService) ApplyRetention(ctx context.Context, projectID string, daily, weekly, monthly int) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+fileBackupColumns+` FROM file_backups WHERE project_id = $1 AND status = $2`,
		projectID, model.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("load completed backups for project %s: %w", projectID, err)
	}
	defer rows.Close()

	var backups []model.FileBackup
	for rows.Next() {
		b, err := scanFileBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file backup: %w", err)
		}
		backups = append(backups, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed backups: %w", err)
	}

	keep := retentionKeepSet(backups, daily, weekly, monthly)

	// Ancestors of kept backups must survive regardless of their own bucket,
	// otherwise a kept incremental would lose its restore chain.
	byID := make(map[string]model.FileBackup, len(backups))
	for _, b := range backups {
		byID[b.ID] = b
	}
	for id := range keep {
		cur, ok := byID[id]
		for ok && cur.ParentBackupID != nil {
			keep[*cur.ParentBackupID] = true
			cur, ok = byID[*cur.ParentBackupID]
		}
	}

	dependents := make(map[string]int)
	for _, b := range backups {
		if b.ParentBackupID != nil {
			dependents[*b.ParentBackupID]++
		}
	}

	// Leaf-first fixpoint: each pass removes victims nothing depends on any
	// more, freeing their parents for the next pass.
	var deleted []string
	pruned := make(map[string]bool)
	for {
		progressed := false
		for _, b := range backups {
			if keep[b.ID] || pruned[b.ID] || dependents[b.ID] > 0 {
				continue
			}
			if err := s.Delete(ctx, b.ID); err != nil {
				return deleted, fmt.Errorf("prune backup %s: %w", b.ID, err)
			}
			pruned[b.ID] = true
			deleted = append(deleted, b.ID)
			if b.ParentBackupID != nil {
				dependents[*b.ParentBackupID]--
			}
			progressed = true
		}
		if !progressed {
			return deleted, nil
		}
	}
}

// retentionKeepSet selects the newest backup per calendar day, ISO week and
// calendar month, limited to the most recent daily/weekly/monthly buckets.
func retentionKeepSet(backups []model.FileBackup, daily, weekly, monthly int) map[string]bool {
	sorted := make([]model.FileBackup, len(backups))
	copy(sorted, backups)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	keep := make(map[string]bool)
	keepNewestPerBucket(sorted, keep, daily, func(b model.FileBackup) string {
		return b.CreatedAt.UTC().Format("2006-01-02")
	})
	keepNewestPerBucket(sorted, keep, weekly, func(b model.FileBackup) string {
		year, week := b.CreatedAt.UTC().ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	})
	keepNewestPerBucket(sorted, keep, monthly, func(b model.FileBackup) string {
		return b.CreatedAt.UTC().Format("2006-01")
	})
	return keep
}

// keepNewestPerBucket walks newest-first, marking the first backup seen in
// each of the first `limit` distinct buckets.
func keepNewestPerBucket(sorted []model.FileBackup, keep map[string]bool, limit int, bucket func(model.FileBackup) string) {
	if limit <= 0 {
		return
	}
	seen := make(map[string]bool)
	for _, b := range sorted {
		key := bucket(b)
		if seen[key] {
			continue
		}
		if len(seen) == limit {
			return
		}
		seen[key] = true
		keep[b.ID] = true
	}
}
