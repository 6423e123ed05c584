package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/studyexec/internal/domain"
	"github.com/shaiso/studyexec/internal/repo"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListExecutions возвращает список executions с фильтрацией.
// GET /api/v1/executions?status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ExecutionFilter{Limit: defaultListLimit}
	query := r.URL.Query()

	if s := query.Get("status"); s != "" {
		status, ok := domain.ParseExecutionStatus(s)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	if s := query.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}

	if s := query.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	executions, err := h.executions.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, e := range executions {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// CreateExecution создаёт execution в статусе PENDING и публикует execution.pending.
// POST /api/v1/executions
func (h *Handler) CreateExecution(w http.ResponseWriter, r *http.Request) {
	var req CreateExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Input) == "" {
		BadRequest(w, "input is required")
		return
	}

	maxRetries := h.defaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}
	if maxRetries < 0 {
		BadRequest(w, "max_retries must not be negative")
		return
	}

	exec := domain.NewExecution(req.Input, maxRetries)

	if err := h.executions.Create(r.Context(), exec); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.publishPending(r, exec.ID)

	Created(w, ExecutionFromDomain(*exec))
}

// GetExecution возвращает execution с журналом попыток.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, ok := parseExecutionID(w, r)
	if !ok {
		return
	}

	exec, err := h.executions.GetWithLogs(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// ListExecutionLogs возвращает журнал попыток execution.
// GET /api/v1/executions/{id}/logs
func (h *Handler) ListExecutionLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := parseExecutionID(w, r)
	if !ok {
		return
	}

	// Проверяем, что execution существует
	_, err := h.executions.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	logs, err := h.executions.ListLogs(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	List(w, LogsFromDomain(logs), len(logs))
}

// EnqueueExecution повторно публикует execution.pending для PENDING execution.
// POST /api/v1/executions/{id}/enqueue
func (h *Handler) EnqueueExecution(w http.ResponseWriter, r *http.Request) {
	id, ok := parseExecutionID(w, r)
	if !ok {
		return
	}

	exec, err := h.executions.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	if exec.Status != domain.ExecutionStatusPending {
		InvalidState(w, "execution is "+string(exec.Status)+", only PENDING can be enqueued")
		return
	}

	if h.publisher == nil {
		Unavailable(w, "message queue is not available")
		return
	}

	if err := h.publisher.PublishExecutionPending(r.Context(), id); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	JSON(w, http.StatusAccepted, DataResponse{Data: ExecutionFromDomain(*exec)})
}

// publishPending публикует событие; ошибка только логируется,
// execution всё равно подхватит polling воркера.
func (h *Handler) publishPending(r *http.Request, id uuid.UUID) {
	if h.publisher == nil {
		return
	}

	if err := h.publisher.PublishExecutionPending(r.Context(), id); err != nil {
		h.logger.Warn("failed to publish execution.pending", "execution_id", id, "error", err)
	}
}

func parseExecutionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return uuid.Nil, false
	}
	return id, true
}
