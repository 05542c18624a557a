package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/logger"
	"taskboard/internal/service"
)

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
	}
}

// ListColumnTasks отдаёт видимые задачи колонки. Для колонки
// "Выполнено" сервис по пути применяет лимит и архивирует лишнее.
func (h *TaskHandler) ListColumnTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tasks, err := h.TaskService.ListColumnTasks(r.Context(), user.ID, columnID)
	if err != nil {
		serviceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Задачи колонки получены",
		zap.String("column_id", columnID.String()),
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))
	responseWithJSON(w, http.StatusOK, toPayload("tasks", tasks))
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}

	var request CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	task, err := h.TaskService.CreateTask(r.Context(), user.ID, columnID, service.CreateTaskInput{
		Title:       request.Title,
		Description: request.Description,
		Priority:    request.Priority,
		DueDate:     request.DueDate,
		Tags:        request.Tags,
		AssigneeIDs: request.AssigneeIDs,
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", task.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))
	responseWithJSON(w, http.StatusCreated, toPayload("task", task))
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.TaskService.GetTask(r.Context(), user.ID, taskID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("task", task))
}

// UpdateTask — частичное обновление; перенос между колонками и явная
// смена статуса проходят через один и тот же PATCH.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}

	var request UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	task, err := h.TaskService.UpdateTask(r.Context(), user.ID, taskID, service.UpdateTaskInput{
		Title:       request.Title,
		Description: request.Description,
		Status:      request.Status,
		Priority:    request.Priority,
		ColumnID:    request.ColumnID,
		Position:    request.Position,
		DueDate:     request.DueDate,
		IsArchived:  request.IsArchived,
		AssigneeIDs: request.AssigneeIDs,
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", taskID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))
	responseWithJSON(w, http.StatusOK, toPayload("task", task))
}

// ReplaceTask — полная замена задачи (PUT). В отличие от PATCH,
// все поля считаются переданными: пропущенные обнуляются.
func (h *TaskHandler) ReplaceTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}

	var request ReplaceTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	assignees := request.AssigneeIDs
	if assignees == nil {
		assignees = []uuid.UUID{}
	}
	input := service.UpdateTaskInput{
		Title:       &request.Title,
		Description: &request.Description,
		ColumnID:    request.ColumnID,
		Position:    &request.Position,
		DueDate:     request.DueDate,
		AssigneeIDs: &assignees,
	}
	if request.Status != "" {
		input.Status = &request.Status
	}
	if request.Priority != "" {
		input.Priority = &request.Priority
	}

	task, err := h.TaskService.UpdateTask(r.Context(), user.ID, taskID, input)
	if err != nil {
		serviceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Задача заменена",
		zap.String("task_id", taskID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))
	responseWithJSON(w, http.StatusOK, toPayload("task", task))
}

func (h *TaskHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.TaskService.ToggleComplete(r.Context(), user.ID, taskID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("task", task))
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.TaskService.DeleteTask(r.Context(), user.ID, taskID); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderTasks применяет пакет перестановок одной транзакцией.
func (h *TaskHandler) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}

	var request ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}
	if len(request.Moves) == 0 {
		responseWithError(w, http.StatusBadRequest, "пустой пакет перестановок")
		return
	}

	moves := make([]service.TaskPosition, len(request.Moves))
	for i, m := range request.Moves {
		moves[i] = service.TaskPosition{TaskID: m.TaskID, Position: m.Position, ColumnID: m.ColumnID}
	}
	if err := h.TaskService.ReorderTasks(r.Context(), user.ID, moves); err != nil {
		serviceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Перестановка применена",
		zap.Int("moves", len(moves)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))
	responseWithJSON(w, http.StatusOK, toPayload("message", "порядок обновлён"))
}

// ReorderColumnTasks — пакет перестановок в рамках колонки из пути:
// перемещения без явной колонки получают её по умолчанию.
func (h *TaskHandler) ReorderColumnTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}

	var request ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}
	if len(request.Moves) == 0 {
		responseWithError(w, http.StatusBadRequest, "пустой пакет перестановок")
		return
	}

	moves := make([]service.TaskPosition, len(request.Moves))
	for i, m := range request.Moves {
		target := m.ColumnID
		if target == nil {
			id := columnID
			target = &id
		}
		moves[i] = service.TaskPosition{TaskID: m.TaskID, Position: m.Position, ColumnID: target}
	}
	if err := h.TaskService.ReorderTasks(r.Context(), user.ID, moves); err != nil {
		serviceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Перестановка в колонке применена",
		zap.String("column_id", columnID.String()),
		zap.Int("moves", len(moves)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))
	responseWithJSON(w, http.StatusOK, toPayload("message", "порядок обновлён"))
}

func (h *TaskHandler) ListArchivedTasks(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	boardID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tasks, err := h.TaskService.ListArchivedTasks(r.Context(), user.ID, boardID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("tasks", tasks))
}

func (h *TaskHandler) UnarchiveTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.TaskService.UnarchiveTask(r.Context(), user.ID, taskID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("task", task))
}

func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}
	comment, err := h.TaskService.AddComment(r.Context(), user.ID, taskID, request.Body, request.ParentID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusCreated, toPayload("comment", comment))
}

func (h *TaskHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	comments, err := h.TaskService.ListComments(r.Context(), user.ID, taskID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("comments", comments))
}

func (h *TaskHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentId")
	if !ok {
		return
	}
	if err := h.TaskService.DeleteComment(r.Context(), user.ID, taskID, commentID); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request CreateAttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}
	att, err := h.TaskService.AddAttachment(r.Context(), user.ID, taskID,
		request.FileName, request.MimeType, request.FileSize)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusCreated, toPayload("attachment", att))
}

func (h *TaskHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	atts, err := h.TaskService.ListAttachments(r.Context(), user.ID, taskID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("attachments", atts))
}

func (h *TaskHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	attachmentID, ok := pathID(w, r, "attachmentId")
	if !ok {
		return
	}
	if err := h.TaskService.DeleteAttachment(r.Context(), user.ID, taskID, attachmentID); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
		responseWithJSON(w, http.StatusServiceUnavailable, toPayload("status", "unhealthy"))
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
}
