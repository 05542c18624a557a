package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/logger"
	"taskboard/internal/models"
	"taskboard/internal/service"
)

type ProjectHandler struct {
	ProjectService ProjectService
}

func NewProjectHandler(projectService ProjectService) ProjectHandler {
	return ProjectHandler{
		ProjectService: projectService,
	}
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}

	var request CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	project, err := h.ProjectService.CreateProject(r.Context(), user.ID, service.CreateProjectInput{
		Name:        request.Name,
		Description: request.Description,
		Color:       request.Color,
		Icon:        request.Icon,
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Проект создан",
		zap.String("project_id", project.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))
	responseWithJSON(w, http.StatusCreated, toPayload("project", project))
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projects, err := h.ProjectService.ListProjects(r.Context(), user.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("projects", projects))
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	project, err := h.ProjectService.GetProject(r.Context(), user.ID, projectID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("project", project))
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	project, err := h.ProjectService.UpdateProject(r.Context(), user.ID, &models.Project{
		ID:          projectID,
		Name:        request.Name,
		Description: request.Description,
		Color:       request.Color,
		Icon:        request.Icon,
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("project", project))
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.ProjectService.DeleteProject(r.Context(), user.ID, projectID); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}
	if err := h.ProjectService.AddMember(r.Context(), user.ID, projectID, request.UserID, request.Role); err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusCreated, toPayload("message", "участник добавлен"))
}

func (h *ProjectHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	members, err := h.ProjectService.ListMembers(r.Context(), user.ID, projectID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("members", members))
}

func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	if err := h.ProjectService.RemoveMember(r.Context(), user.ID, projectID, memberID); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request CreateBoardRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}
	board, err := h.ProjectService.CreateBoard(r.Context(), user.ID, projectID, request.Name)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusCreated, toPayload("board", board))
}

func (h *ProjectHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boards, err := h.ProjectService.ListBoards(r.Context(), user.ID, projectID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("boards", boards))
}

func (h *ProjectHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	boardID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	board, err := h.ProjectService.GetBoard(r.Context(), user.ID, boardID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("board", board))
}

func (h *ProjectHandler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	boardID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.ProjectService.DeleteBoard(r.Context(), user.ID, boardID); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	boardID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request CreateColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}
	column, err := h.ProjectService.CreateColumn(r.Context(), user.ID, boardID, service.CreateColumnInput{
		Title:  request.Title,
		Status: request.Status,
		Color:  request.Color,
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusCreated, toPayload("column", column))
}

func (h *ProjectHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	boardID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	columns, err := h.ProjectService.ListColumns(r.Context(), user.ID, boardID)
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("columns", columns))
}

func (h *ProjectHandler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request UpdateColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return
	}
	column, err := h.ProjectService.UpdateColumn(r.Context(), user.ID, columnID, service.UpdateColumnInput{
		Title:    request.Title,
		Status:   request.Status,
		Color:    request.Color,
		Position: request.Position,
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("column", column))
}

func (h *ProjectHandler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	columnID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.ProjectService.DeleteColumn(r.Context(), user.ID, columnID); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
