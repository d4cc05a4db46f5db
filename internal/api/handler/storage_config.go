package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/devflow/backhaul/internal/api/request"
	"github.com/devflow/backhaul/internal/api/response"
	"github.com/devflow/backhaul/internal/core"
	"github.com/devflow/backhaul/internal/model"
	"github.com/devflow/backhaul/internal/platform"
)

type StorageConfig struct {
	svc *core.StorageConfigService
}

func NewStorageConfig(svc *core.StorageConfigService) *StorageConfig {
	return &StorageConfig{svc: svc}
}

// List returns the configurations for a scope. A project_id query parameter
// selects a project's scope; without one the global scope is listed.
func (h *StorageConfig) List(w http.ResponseWriter, r *http.Request) {
	var projectID *string
	if v := r.URL.Query().Get("project_id"); v != "" {
		projectID = &v
	}

	pg := request.ParsePagination(r)

	configs, hasMore, err := h.svc.ListByScope(r.Context(), projectID, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(configs) > 0 {
		nextCursor = configs[len(configs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, configs, nextCursor, hasMore)
}

func (h *StorageConfig) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateStorageConfiguration
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	cfg := &model.StorageConfiguration{
		ID:          platform.NewID(),
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Driver:      req.Driver,
		Credentials: req.Credentials,
		Bucket:      req.Bucket,
		Region:      req.Region,
		Endpoint:    req.Endpoint,
		PathPrefix:  req.PathPrefix,
		IsDefault:   req.IsDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.svc.Create(r.Context(), cfg); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, cfg)
}

func (h *StorageConfig) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, cfg)
}

func (h *StorageConfig) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateStorageConfiguration
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	cfg.Name = req.Name
	cfg.Credentials = req.Credentials
	cfg.Bucket = req.Bucket
	cfg.Region = req.Region
	cfg.Endpoint = req.Endpoint
	cfg.PathPrefix = req.PathPrefix

	if err := h.svc.Update(r.Context(), cfg); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, cfg)
}

// SetDefault makes the configuration the default of its scope, clearing the
// flag on its siblings.
func (h *StorageConfig) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetDefault(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TestConnection probes the configured remote and records the outcome. Only
// a probe that ran and failed reads as an inactive outcome; a configuration
// that cannot be looked up is a request error.
func (h *StorageConfig) TestConnection(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.TestConnection(r.Context(), id); err != nil {
		if !errors.Is(err, core.ErrProbeFailed) {
			writeServiceError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, map[string]any{
			"status": model.StorageStatusInactive,
			"error":  err.Error(),
		})
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"status": model.StorageStatusActive,
	})
}

// GenerateEncryptionKey enables payload encryption and returns the new key.
// The key is shown exactly once; it cannot be recovered afterwards.
func (h *StorageConfig) GenerateEncryptionKey(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := h.svc.GenerateEncryptionKey(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{
		"encryption_key": key,
		"warning":        "Store this key somewhere safe. It is shown only once; without it encrypted backups cannot be restored.",
	})
}

func (h *StorageConfig) Delete(w http.ResponseWriter, r *http.Request) {
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
