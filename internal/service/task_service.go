package service

import (
	"net/http"
	"time"

	"github.com/ckocyigit/duoledger/internal/middleware"
	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
)

// TaskService exposes task listing and manual task management.
type TaskService struct {
	store storage.Store
}

// NewTaskService creates a new task service.
func NewTaskService(store storage.Store) *TaskService {
	return &TaskService{store: store}
}

// List returns the current user's tasks, filtered by the query parameters
// status, assigned_to and created_by.
func (s *TaskService) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.TaskFilter{
		ParticipantID: middleware.GetUserID(r.Context()),
		Status:        models.TaskStatus(q.Get("status")),
		AssignedTo:    q.Get("assigned_to"),
		CreatedBy:     q.Get("created_by"),
	}
	if f.Status != "" && !f.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}

	tasks, err := s.store.ListTasks(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]taskView, len(tasks))
	for i, t := range tasks {
		views[i] = viewTask(t)
	}
	writeJSON(w, http.StatusOK, views)
}

// Get returns a task; only its participants may read it.
func (s *TaskService) Get(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !task.Participant(middleware.GetUserID(r.Context())) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not authorized to view this task"})
		return
	}
	writeJSON(w, http.StatusOK, viewTask(task))
}

type taskUpdateRequest struct {
	Status models.TaskStatus `json:"status"`
}

// Update changes a task's status. Status only moves forward: a completed or
// cancelled task cannot be reopened, and completed_at is set at the first
// transition into completed, never cleared.
func (s *TaskService) Update(w http.ResponseWriter, r *http.Request) {
	var req taskUpdateRequest
	if err := decode(r, &req); err != nil || !req.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a valid status is required"})
		return
	}

	task, err := s.store.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !task.Participant(middleware.GetUserID(r.Context())) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not authorized to update this task"})
		return
	}
	if !task.Status.Open() && req.Status != task.Status {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task is already " + string(task.Status)})
		return
	}

	task.Status = req.Status
	if req.Status == models.TaskCompleted && task.CompletedAt == 0 {
		task.CompletedAt = time.Now().Unix()
	}
	if err := s.store.UpdateTask(r.Context(), task); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewTask(task))
}

// Delete removes a task. Only the creator may delete.
func (s *TaskService) Delete(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if task.CreatedBy != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only the creator may delete this task"})
		return
	}
	if err := s.store.DeleteTask(r.Context(), task.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
