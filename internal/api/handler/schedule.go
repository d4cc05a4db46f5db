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

type BackupSchedule struct {
	svc *core.BackupScheduleService
}

func NewBackupSchedule(svc *core.BackupScheduleService) *BackupSchedule {
	return &BackupSchedule{svc: svc}
}

func (h *BackupSchedule) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "projectID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg := request.ParsePagination(r)

	schedules, hasMore, err := h.svc.ListByProject(r.Context(), projectID, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(schedules) > 0 {
		nextCursor = schedules[len(schedules)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, schedules, nextCursor, hasMore)
}

func (h *BackupSchedule) Create(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "projectID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateBackupSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	sched := &model.BackupSchedule{
		ID:               platform.NewID(),
		ProjectID:        projectID,
		ServerID:         req.ServerID,
		BackupKind:       req.BackupKind,
		DatabaseName:     req.DatabaseName,
		Frequency:        req.Frequency,
		TimeOfDay:        req.TimeOfDay,
		DayOfWeek:        req.DayOfWeek,
		DayOfMonth:       req.DayOfMonth,
		RetentionDaily:   req.RetentionDaily,
		RetentionWeekly:  req.RetentionWeekly,
		RetentionMonthly: req.RetentionMonthly,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.svc.Create(r.Context(), sched); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, sched)
}

func (h *BackupSchedule) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, sched)
}

func (h *BackupSchedule) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateBackupSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	sched.ServerID = req.ServerID
	sched.DatabaseName = req.DatabaseName
	sched.Frequency = req.Frequency
	sched.TimeOfDay = req.TimeOfDay
	sched.DayOfWeek = req.DayOfWeek
	sched.DayOfMonth = req.DayOfMonth
	sched.RetentionDaily = req.RetentionDaily
	sched.RetentionWeekly = req.RetentionWeekly
	sched.RetentionMonthly = req.RetentionMonthly

	if err := h.svc.Update(r.Context(), sched); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, sched)
}

func (h *BackupSchedule) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Activate(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *BackupSchedule) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *BackupSchedule) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
