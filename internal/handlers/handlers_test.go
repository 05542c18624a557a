package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/handlers"
	"taskboard/internal/models"
	"taskboard/internal/repository/inmemory"
	"taskboard/internal/service"
	"taskboard/internal/workflow"
)

type env struct {
	repo   *inmemory.Storage
	svc    *service.Service
	server *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo := inmemory.New()
	svc := service.New(repo, workflow.DoneLimit)

	authH := handlers.NewAuthHandler(svc)
	projectH := handlers.NewProjectHandler(svc)
	taskH := handlers.NewTaskHandler(svc)
	router := handlers.NewRouter(authH, projectH, taskH, svc)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &env{repo: repo, svc: svc, server: server}
}

// registerApproved регистрирует пользователя, одобряет его напрямую
// через хранилище и возвращает токен сессии.
func (e *env) registerApproved(t *testing.T, email string) (uuid.UUID, string) {
	t.Helper()
	ctx := context.Background()

	user, err := e.svc.Register(ctx, email, "Тестовый пользователь", "парольпароль")
	require.NoError(t, err)
	require.NoError(t, e.repo.SetUserApproval(ctx, user.ID, models.ApprovalApproved))

	session, _, err := e.svc.Login(ctx, email, "парольпароль")
	require.NoError(t, err)
	return user.ID, session.Token
}

func (e *env) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	out := make(map[string]any)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// setupBoard создаёт проект и возвращает id колонок доски по умолчанию.
func (e *env) setupBoard(t *testing.T, token string) (projectID, boardID string, columns map[string]string) {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/projects", token, handlers.CreateProjectRequest{Name: "Запуск"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	projectID = body["project"].(map[string]any)["id"].(string)

	resp = e.do(t, http.MethodGet, "/projects/"+projectID+"/boards", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	boards := decode(t, resp)["boards"].([]any)
	require.Len(t, boards, 1)
	boardID = boards[0].(map[string]any)["id"].(string)

	resp = e.do(t, http.MethodGet, "/boards/"+boardID+"/columns", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cols := decode(t, resp)["columns"].([]any)
	require.Len(t, cols, 4)

	columns = make(map[string]string)
	for _, c := range cols {
		col := c.(map[string]any)
		columns[col["status"].(string)] = col["id"].(string)
	}
	return projectID, boardID, columns
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)

	// регистрация
	resp := e.do(t, http.MethodPost, "/auth/register", "", handlers.RegisterRequest{
		Email:    "user@example.com",
		Name:     "Пользователь",
		Password: "парольпароль",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// вход до одобрения запрещён
	resp = e.do(t, http.MethodPost, "/auth/login", "", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "парольпароль",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// кривой email — 400
	resp = e.do(t, http.MethodPost, "/auth/register", "", handlers.RegisterRequest{
		Email:    "не-адрес",
		Name:     "Кто-то",
		Password: "парольпароль",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])

	// повторная регистрация — 409
	resp = e.do(t, http.MethodPost, "/auth/register", "", handlers.RegisterRequest{
		Email:    "user@example.com",
		Name:     "Дубль",
		Password: "парольпароль",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/tasks/"+uuid.NewString(), "такого-токена-нет", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestTaskLifecycle(t *testing.T) {
	e := newEnv(t)
	_, token := e.registerApproved(t, "owner@example.com")
	_, _, columns := e.setupBoard(t, token)

	// создание задачи в колонке
	resp := e.do(t, http.MethodPost, "/columns/"+columns["todo"]+"/tasks", token, handlers.CreateTaskRequest{
		Title:       "Первая задача",
		Description: "Описание",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	task := decode(t, resp)["task"].(map[string]any)
	taskID := task["id"].(string)
	assert.Equal(t, "todo", task["status"])

	// пустой заголовок — 400
	resp = e.do(t, http.MethodPost, "/columns/"+columns["todo"]+"/tasks", token, handlers.CreateTaskRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// PATCH: перенос в "Выполнено" выводит статус из колонки
	doneID := columns["done"]
	colUUID, err := uuid.Parse(doneID)
	require.NoError(t, err)
	resp = e.do(t, http.MethodPatch, "/tasks/"+taskID, token, handlers.UpdateTaskRequest{
		ColumnID: &colUUID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	task = decode(t, resp)["task"].(map[string]any)
	assert.Equal(t, "done", task["status"])

	// переключение возвращает на проверку
	resp = e.do(t, http.MethodPost, "/tasks/"+taskID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	task = decode(t, resp)["task"].(map[string]any)
	assert.Equal(t, "review", task["status"])
	assert.Equal(t, columns["review"], task["column_id"])

	// удаление
	resp = e.do(t, http.MethodDelete, "/tasks/"+taskID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/tasks/"+taskID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestForbiddenForOutsider(t *testing.T) {
	e := newEnv(t)
	_, ownerToken := e.registerApproved(t, "owner@example.com")
	_, outsiderToken := e.registerApproved(t, "outsider@example.com")

	projectID, _, columns := e.setupBoard(t, ownerToken)

	resp := e.do(t, http.MethodPost, "/columns/"+columns["todo"]+"/tasks", ownerToken, handlers.CreateTaskRequest{Title: "Приватная"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	taskID := decode(t, resp)["task"].(map[string]any)["id"].(string)

	resp = e.do(t, http.MethodGet, "/projects/"+projectID, outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "FORBIDDEN", body["error"])

	resp = e.do(t, http.MethodPatch, "/tasks/"+taskID, outsiderToken, handlers.UpdateTaskRequest{})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodDelete, "/tasks/"+taskID, outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestDoneColumnListingArchivesOverflow(t *testing.T) {
	e := newEnv(t)
	_, token := e.registerApproved(t, "owner@example.com")
	_, boardID, columns := e.setupBoard(t, token)
	doneID := columns["done"]

	for i := 0; i < workflow.DoneLimit+2; i++ {
		resp := e.do(t, http.MethodPost, "/columns/"+doneID+"/tasks", token, handlers.CreateTaskRequest{
			Title: fmt.Sprintf("Завершённая %d", i),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := e.do(t, http.MethodGet, "/columns/"+doneID+"/tasks", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tasks := decode(t, resp)["tasks"].([]any)
	assert.Len(t, tasks, workflow.DoneLimit)

	resp = e.do(t, http.MethodGet, "/boards/"+boardID+"/archived", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	archived := decode(t, resp)["tasks"].([]any)
	assert.Len(t, archived, 2)

	// возврат из архива
	archivedID := archived[0].(map[string]any)["id"].(string)
	resp = e.do(t, http.MethodPost, "/tasks/"+archivedID+"/unarchive", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	restored := decode(t, resp)["task"].(map[string]any)
	assert.Equal(t, false, restored["is_archived"])
}

func TestReorderEndpoint(t *testing.T) {
	e := newEnv(t)
	_, token := e.registerApproved(t, "owner@example.com")
	_, _, columns := e.setupBoard(t, token)
	todoID := columns["todo"]

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		resp := e.do(t, http.MethodPost, "/columns/"+todoID+"/tasks", token, handlers.CreateTaskRequest{
			Title: fmt.Sprintf("Задача %d", i),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		id, err := uuid.Parse(decode(t, resp)["task"].(map[string]any)["id"].(string))
		require.NoError(t, err)
		ids[i] = id
	}

	resp := e.do(t, http.MethodPost, "/tasks/reorder", token, handlers.ReorderRequest{
		Moves: []handlers.ReorderMove{
			{TaskID: ids[2], Position: 0},
			{TaskID: ids[0], Position: 1},
			{TaskID: ids[1], Position: 2},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/columns/"+todoID+"/tasks", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tasks := decode(t, resp)["tasks"].([]any)
	require.Len(t, tasks, 3)
	assert.Equal(t, ids[2].String(), tasks[0].(map[string]any)["id"])
	assert.Equal(t, ids[0].String(), tasks[1].(map[string]any)["id"])

	// пустой пакет — 400
	resp = e.do(t, http.MethodPost, "/tasks/reorder", token, handlers.ReorderRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// Пакетная перестановка, привязанная к колонке из пути.
func TestColumnScopedReorderEndpoint(t *testing.T) {
	e := newEnv(t)
	_, token := e.registerApproved(t, "owner@example.com")
	_, _, columns := e.setupBoard(t, token)
	todoID := columns["todo"]

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		resp := e.do(t, http.MethodPost, "/columns/"+todoID+"/tasks", token, handlers.CreateTaskRequest{
			Title: fmt.Sprintf("Задача %d", i),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		id, err := uuid.Parse(decode(t, resp)["task"].(map[string]any)["id"].(string))
		require.NoError(t, err)
		ids[i] = id
	}

	// column_id в перемещениях не указан, колонка берётся из пути
	resp := e.do(t, http.MethodPatch, "/columns/"+todoID+"/tasks", token, handlers.ReorderRequest{
		Moves: []handlers.ReorderMove{
			{TaskID: ids[1], Position: 0},
			{TaskID: ids[2], Position: 1},
			{TaskID: ids[0], Position: 2},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/columns/"+todoID+"/tasks", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tasks := decode(t, resp)["tasks"].([]any)
	require.Len(t, tasks, 3)
	assert.Equal(t, ids[1].String(), tasks[0].(map[string]any)["id"])
	assert.Equal(t, ids[2].String(), tasks[1].(map[string]any)["id"])
	assert.Equal(t, ids[0].String(), tasks[2].(map[string]any)["id"])

	// пустой пакет — 400
	resp = e.do(t, http.MethodPatch, "/columns/"+todoID+"/tasks", token, handlers.ReorderRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// PUT — полная замена: пропущенные поля обнуляются, а не сохраняются.
func TestReplaceTaskEndpoint(t *testing.T) {
	e := newEnv(t)
	_, token := e.registerApproved(t, "owner@example.com")
	_, _, columns := e.setupBoard(t, token)

	high := models.PriorityHigh
	resp := e.do(t, http.MethodPost, "/columns/"+columns["todo"]+"/tasks", token, handlers.CreateTaskRequest{
		Title:       "Черновик",
		Description: "Старое описание",
		Priority:    &high,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	taskID := decode(t, resp)["task"].(map[string]any)["id"].(string)

	resp = e.do(t, http.MethodPut, "/tasks/"+taskID, token, handlers.ReplaceTaskRequest{
		Title:    "Итоговая формулировка",
		Priority: models.PriorityLow,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	task := decode(t, resp)["task"].(map[string]any)
	assert.Equal(t, "Итоговая формулировка", task["title"])
	assert.Equal(t, string(models.PriorityLow), task["priority"])
	assert.Empty(t, task["description"], "описание не передано и должно очиститься")

	// пустой заголовок при полной замене отклоняется
	resp = e.do(t, http.MethodPut, "/tasks/"+taskID, token, handlers.ReplaceTaskRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCommentRoutes(t *testing.T) {
	e := newEnv(t)
	_, token := e.registerApproved(t, "owner@example.com")
	_, _, columns := e.setupBoard(t, token)

	resp := e.do(t, http.MethodPost, "/columns/"+columns["todo"]+"/tasks", token, handlers.CreateTaskRequest{Title: "С обсуждением"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	taskID := decode(t, resp)["task"].(map[string]any)["id"].(string)

	resp = e.do(t, http.MethodPost, "/tasks/"+taskID+"/comments", token, handlers.CreateCommentRequest{Body: "Первый!"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodPost, "/tasks/"+taskID+"/comments", token, handlers.CreateCommentRequest{Body: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/tasks/"+taskID+"/comments", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	comments := decode(t, resp)["comments"].([]any)
	assert.Len(t, comments, 1)
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "ok", body["status"])
}
