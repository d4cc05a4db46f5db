package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/devflow/backhaul/internal/api/request"
	"github.com/devflow/backhaul/internal/api/response"
	"github.com/devflow/backhaul/internal/core"
	"github.com/devflow/backhaul/internal/model"
	"github.com/devflow/backhaul/internal/platform"
)

type FileBackup struct {
	svc *core.FileBackupService
}

func NewFileBackup(svc *core.FileBackupService) *FileBackup {
	return &FileBackup{svc: svc}
}

func (h *FileBackup) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "projectID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg := request.ParsePagination(r)
	status := r.URL.Query().Get("status")
	backupType := r.URL.Query().Get("type")

	backups, hasMore, err := h.svc.ListByProject(r.Context(), projectID, status, backupType, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(backups) > 0 {
		nextCursor = backups[len(backups)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, backups, nextCursor, hasMore)
}

func (h *FileBackup) Create(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "projectID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateFileBackup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Type == model.BackupTypeIncremental && req.ParentBackupID == nil {
		response.WriteError(w, http.StatusBadRequest, "parent_backup_id is required for incremental backups")
		return
	}

	now := time.Now()
	backup := &model.FileBackup{
		ID:             platform.NewID(),
		ProjectID:      projectID,
		ParentBackupID: req.ParentBackupID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	switch req.Type {
	case model.BackupTypeFull:
		err = h.svc.CreateFull(r.Context(), backup)
	case model.BackupTypeIncremental:
		err = h.svc.CreateIncremental(r.Context(), backup)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, backup)
}

func (h *FileBackup) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	backup, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, backup)
}

// RestoreOrder returns the backups that must be applied, oldest first, to
// restore the state captured by this backup.
func (h *FileBackup) RestoreOrder(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.svc.RestoreOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"backups": order})
}

// Chain returns the full ancestry of the backup from its root full backup.
func (h *FileBackup) Chain(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	backups, err := h.svc.Chain(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"backups": backups})
}

func (h *FileBackup) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
