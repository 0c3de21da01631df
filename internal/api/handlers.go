// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"keeper/internal/config"
	"keeper/internal/engine"
	"keeper/internal/errors"
	"keeper/internal/storage"
	"keeper/internal/tracker"
	shared "keeper/shared/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Watcher abstracts the per-project watch supervision so handler tests can
// fake it.
type Watcher interface {
	Watch(project shared.Project) error
	Unwatch(projectID string) error
}

// Handler exposes the auto-commit engine over HTTP.
type Handler struct {
	engine   *engine.Engine
	tracker  *tracker.Tracker
	cfg      *config.Store
	projects *storage.ProjectStore
	commits  *storage.CommitStore
	watcher  Watcher
	logger   *zap.Logger
}

func NewHandler(eng *engine.Engine, trk *tracker.Tracker, cfg *config.Store,
	projects *storage.ProjectStore, commits *storage.CommitStore,
	watcher Watcher, logger *zap.Logger) *Handler {
	return &Handler{
		engine:   eng,
		tracker:  trk,
		cfg:      cfg,
		projects: projects,
		commits:  commits,
		watcher:  watcher,
		logger:   logger,
	}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/projects", h.RegisterProject)
	mux.HandleFunc("GET /api/projects", h.ListProjects)
	mux.HandleFunc("DELETE /api/projects/{id}", h.RemoveProject)
	mux.HandleFunc("GET /api/projects/{id}/status", h.ProjectStatus)
	mux.HandleFunc("POST /api/projects/{id}/trigger", h.Trigger)
	mux.HandleFunc("GET /api/projects/{id}/commits", h.ListCommits)
	mux.HandleFunc("GET /api/autocommit/config", h.GetConfig)
	mux.HandleFunc("PATCH /api/autocommit/config", h.UpdateConfig)
}

type registerProjectRequest struct {
	ID       string `json:"id,omitempty"`
	RootPath string `json:"root_path"`
}

func (h *Handler) RegisterProject(w http.ResponseWriter, r *http.Request) {
	var req registerProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ValidationError("invalid request body", err.Error()))
		return
	}
	if req.RootPath == "" {
		writeError(w, errors.ValidationError("root_path is required", nil))
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	project := shared.Project{
		ID:        req.ID,
		RootPath:  req.RootPath,
		CreatedAt: time.Now(),
	}
	if err := h.projects.Put(project); err != nil {
		h.logger.Error("storing project", zap.Error(err))
		writeError(w, errors.Internal("storing project failed"))
		return
	}
	if err := h.watcher.Watch(project); err != nil {
		h.logger.Error("starting watcher", zap.String("project", project.ID), zap.Error(err))
		writeError(w, errors.Internal("starting watcher failed"))
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List()
	if err != nil {
		h.logger.Error("listing projects", zap.Error(err))
		writeError(w, errors.Internal("listing projects failed"))
		return
	}
	if projects == nil {
		projects = []shared.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) RemoveProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.projects.Get(id); err != nil {
		writeError(w, errors.NotFound("project not found"))
		return
	}

	if err := h.watcher.Unwatch(id); err != nil {
		h.logger.Warn("stopping watcher", zap.String("project", id), zap.Error(err))
	}
	if err := h.projects.Delete(id); err != nil {
		h.logger.Error("deleting project", zap.Error(err))
		writeError(w, errors.Internal("deleting project failed"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ProjectStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	project, err := h.projects.Get(id)
	if err != nil {
		writeError(w, errors.NotFound("project not found"))
		return
	}

	status := shared.ProjectStatus{
		ProjectID:      project.ID,
		RootPath:       project.RootPath,
		PendingChanges: h.tracker.PendingCount(project.ID),
		Busy:           h.engine.Busy(project.ID),
	}
	if last := h.engine.LastCommitAt(project.ID); !last.IsZero() {
		status.LastCommitAt = &last
	}
	writeJSON(w, http.StatusOK, status)
}

type triggerRequest struct {
	Kind           string `json:"kind"`
	ToolName       string `json:"tool_name,omitempty"`
	Summary        string `json:"summary,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type triggerResponse struct {
	Scheduled bool                   `json:"scheduled"`
	Skipped   bool                   `json:"skipped,omitempty"`
	Result    *shared.PipelineResult `json:"result,omitempty"`
}

func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	project, err := h.projects.Get(id)
	if err != nil {
		writeError(w, errors.NotFound("project not found"))
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.ValidationError("invalid request body", err.Error()))
		return
	}
	kind, err := shared.ParseTriggerKind(req.Kind)
	if err != nil {
		writeError(w, errors.ValidationError(err.Error(), nil))
		return
	}

	cc := shared.CommitContext{
		ProjectID:      project.ID,
		RootPath:       project.RootPath,
		Trigger:        kind,
		ToolName:       req.ToolName,
		Summary:        req.Summary,
		ConversationID: req.ConversationID,
		RequestedAt:    time.Now(),
	}

	result, err := h.engine.OnTrigger(r.Context(), cc)
	if err != nil {
		h.logger.Error("trigger failed", zap.String("project", id), zap.Error(err))
		writeError(w, errors.Internal("trigger failed"))
		return
	}

	if result == nil {
		// Debounced kinds were scheduled; immediate kinds were gated off.
		resp := triggerResponse{Scheduled: debouncedKind(kind), Skipped: !debouncedKind(kind)}
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	writeJSON(w, http.StatusOK, triggerResponse{Result: result})
}

func debouncedKind(kind shared.TriggerKind) bool {
	return kind == shared.TriggerFileChange || kind == shared.TriggerToolExecution
}

func (h *Handler) ListCommits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.projects.Get(id); err != nil {
		writeError(w, errors.NotFound("project not found"))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errors.ValidationError("invalid limit", raw))
			return
		}
		limit = n
	}

	records, err := h.commits.List(id, limit)
	if err != nil {
		h.logger.Error("listing commits", zap.Error(err))
		writeError(w, errors.Internal("listing commits failed"))
		return
	}
	if records == nil {
		records = []shared.CommitRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Get())
}

func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var update config.AutoCommitUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, errors.ValidationError("invalid request body", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.cfg.Update(update))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *errors.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
}
