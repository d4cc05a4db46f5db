// Package chain resolves incremental file-backup dependency chains. An Arena
// holds every file backup of one project; parent walks are bounded by the
// arena size so corrupt data is detected instead of looping.
package chain

import (
	"errors"
	"fmt"

	"github.com/devflow/backhaul/internal/model"
)

// ErrCorrupt marks a cycle or a parent reference that leaves the arena's
// scope. It is fatal and reported, never repaired in place.
var ErrCorrupt = errors.New("backup chain corrupt")

// ErrDanglingParent marks a parent reference to a backup missing from the
// arena. It wraps ErrCorrupt, so both report through the same fatal path.
var ErrDanglingParent = fmt.Errorf("dangling parent reference: %w", ErrCorrupt)

// ErrNotFound is returned when the requested backup is not in the arena.
var ErrNotFound = errors.New("backup not in chain arena")

// Arena is an immutable snapshot of one project's file backups keyed by id.
type Arena struct {
	records map[string]*model.FileBackup
}

// New builds an arena from a project's file backups.
func New(records []model.FileBackup) *Arena {
	m := make(map[string]*model.FileBackup, len(records))
	for i := range records {
		m[records[i].ID] = &records[i]
	}
	return &Arena{records: m}
}

// Chain returns the full restore chain for the given backup, root first:
// [full, inc1, ..., backup].
func (a *Arena) Chain(id string) ([]*model.FileBackup, error) {
	var chain []*model.FileBackup

	current, ok := a.records[id]
	if !ok {
		return nil, fmt.Errorf("backup %s: %w", id, ErrNotFound)
	}

	// A valid chain visits each record at most once; one extra hop past the
	// arena size can only mean a cycle.
	for hops := 0; hops <= len(a.records); hops++ {
		chain = append(chain, current)
		if current.ParentBackupID == nil {
			reverse(chain)
			return chain, nil
		}
		parent, ok := a.records[*current.ParentBackupID]
		if !ok {
			return nil, fmt.Errorf("backup %s references parent %s outside its scope: %w",
				current.ID, *current.ParentBackupID, ErrDanglingParent)
		}
		current = parent
	}

	return nil, fmt.Errorf("cycle detected walking parents of backup %s: %w", id, ErrCorrupt)
}

// Root returns the full backup at the root of the given backup's chain.
// A full backup is its own root.
func (a *Arena) Root(id string) (*model.FileBackup, error) {
	chain, err := a.Chain(id)
	if err != nil {
		return nil, err
	}
	return chain[0], nil
}

// Depth returns the number of parent hops from the given backup to its root:
// 0 for a full backup, 1 for an incremental whose parent is full, and so on.
func (a *Arena) Depth(id string) (int, error) {
	chain, err := a.Chain(id)
	if err != nil {
		return 0, err
	}
	return len(chain) - 1, nil
}

// RestoreOrder returns the exact order backups must be applied to restore
// the given record: the full payload first, then each incremental delta.
func (a *Arena) RestoreOrder(id string) ([]*model.FileBackup, error) {
	return a.Chain(id)
}

func reverse(s []*model.FileBackup) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
