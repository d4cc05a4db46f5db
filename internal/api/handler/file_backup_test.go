package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/devflow/backhaul/internal/core"
)

func TestFileBackupCreate_InvalidType(t *testing.T) {
	h := NewFileBackup(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/projects/"+validID+"/file-backups", map[string]any{
		"type": "differential",
	})
	r = withChiURLParam(r, "projectID", validID)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestFileBackupCreate_IncrementalWithoutParent(t *testing.T) {
	h := NewFileBackup(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/projects/"+validID+"/file-backups", map[string]any{
		"type": "incremental",
	})
	r = withChiURLParam(r, "projectID", validID)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "parent_backup_id is required")
}

func TestFileBackupGet_EmptyID(t *testing.T) {
	h := NewFileBackup(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/file-backups/", nil)
	r = withChiURLParam(r, "id", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileBackupDelete_HasDependents(t *testing.T) {
	db := &handlerMockDB{}
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&handlerMockRow{scanFunc: func(dest ...any) error {
			*dest[0].(*int) = 2
			return nil
		}})

	h := NewFileBackup(core.NewFileBackupService(db, nil))
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodDelete, "/file-backups/"+validID, nil)
	r = withChiURLParam(r, "id", validID)

	h.Delete(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}
