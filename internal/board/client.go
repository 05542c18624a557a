package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

// Client — серверные операции, которые нужны доске.
type Client interface {
	ListColumns(ctx context.Context, boardID uuid.UUID) ([]models.Column, error)
	ListColumnTasks(ctx context.Context, columnID uuid.UUID) ([]models.Task, error)
	CreateTask(ctx context.Context, columnID uuid.UUID, title, description string) (*models.Task, error)
	MoveTask(ctx context.Context, taskID, destColumnID uuid.UUID, position int) (*models.Task, error)
	ToggleComplete(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID uuid.UUID) error
}

// APIClient ходит в HTTP API доски с токеном сессии.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *APIClient) do(ctx context.Context, method, path string, body any, out any) error {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("кодирование запроса: %w", err)
		}
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Message, apiErr.Error)
		}
		return fmt.Errorf("%s %s: статус %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *APIClient) ListColumns(ctx context.Context, boardID uuid.UUID) ([]models.Column, error) {
	var out struct {
		Columns []models.Column `json:"columns"`
	}
	if err := c.do(ctx, http.MethodGet, "/boards/"+boardID.String()+"/columns", nil, &out); err != nil {
		return nil, err
	}
	return out.Columns, nil
}

func (c *APIClient) ListColumnTasks(ctx context.Context, columnID uuid.UUID) ([]models.Task, error) {
	var out struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/columns/"+columnID.String()+"/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (c *APIClient) CreateTask(ctx context.Context, columnID uuid.UUID, title, description string) (*models.Task, error) {
	body := map[string]any{"title": title, "description": description}
	var out struct {
		Task models.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPost, "/columns/"+columnID.String()+"/tasks", body, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

func (c *APIClient) MoveTask(ctx context.Context, taskID, destColumnID uuid.UUID, position int) (*models.Task, error) {
	body := map[string]any{"column_id": destColumnID, "position": position}
	var out struct {
		Task models.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+taskID.String(), body, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

func (c *APIClient) ToggleComplete(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	var out struct {
		Task models.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks/"+taskID.String()+"/toggle", nil, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

func (c *APIClient) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+taskID.String(), nil, nil)
}
