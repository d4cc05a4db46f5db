package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/devflow/backhaul/internal/core"
)

func TestBackupScheduleListByProject_EmptyID(t *testing.T) {
	h := NewBackupSchedule(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/projects//backup-schedules", nil)
	r = withChiURLParam(r, "projectID", "")

	h.ListByProject(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestBackupScheduleCreate_InvalidJSON(t *testing.T) {
	h := NewBackupSchedule(nil)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/projects/"+validID+"/backup-schedules", "{bad json")
	r = withChiURLParam(r, "projectID", validID)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestBackupScheduleCreate_MissingKind(t *testing.T) {
	h := NewBackupSchedule(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/projects/"+validID+"/backup-schedules", map[string]any{
		"frequency": "daily",
	})
	r = withChiURLParam(r, "projectID", validID)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestBackupScheduleCreate_BadTimeOfDay(t *testing.T) {
	// Recurrence validation happens before any database work, so a nil DB
	// is safe here.
	h := NewBackupSchedule(core.NewBackupScheduleService(nil))
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/projects/"+validID+"/backup-schedules", map[string]any{
		"backup_kind": "file",
		"frequency":   "daily",
		"time_of_day": "25:99",
	})
	r = withChiURLParam(r, "projectID", validID)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "time_of_day")
}

func TestBackupScheduleCreate_Success(t *testing.T) {
	db := &handlerMockDB{}
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	h := NewBackupSchedule(core.NewBackupScheduleService(db))
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/projects/"+validID+"/backup-schedules", map[string]any{
		"backup_kind":     "file",
		"frequency":       "daily",
		"time_of_day":     "02:00",
		"retention_daily": 7,
	})
	r = withChiURLParam(r, "projectID", validID)

	h.Create(rec, r)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	assert.Equal(t, validID, body["project_id"])
	assert.Equal(t, true, body["is_active"])
	assert.NotEmpty(t, body["next_run_at"])
	db.AssertExpectations(t)
}

func TestBackupScheduleUpdate_EmptyID(t *testing.T) {
	h := NewBackupSchedule(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPut, "/backup-schedules/", map[string]any{"frequency": "daily"})
	r = withChiURLParam(r, "id", "")

	h.Update(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
