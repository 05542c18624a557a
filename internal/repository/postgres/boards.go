package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"taskboard/internal/logger"
	"taskboard/internal/models"
	repo "taskboard/internal/repository"
)

func (s *Storage) CreateBoard(ctx context.Context, board *models.Board) error {
	query := `INSERT INTO boards (id, project_id, name, is_default, created_at)
				VALUES ($1, $2, $3, $4, NOW())
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query, board.ID, board.ProjectID, board.Name, board.IsDefault).
		Scan(&board.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось создать доску", err)
		return fmt.Errorf("создание доски: %w", err)
	}
	return nil
}

func (s *Storage) GetBoardByID(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	query := `SELECT id, project_id, name, is_default, created_at, updated_at FROM boards WHERE id = $1`

	b := &models.Board{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.ProjectID, &b.Name, &b.IsDefault, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить доску", err)
		return nil, fmt.Errorf("получение доски: %w", err)
	}
	return b, nil
}

func (s *Storage) ListProjectBoards(ctx context.Context, projectID uuid.UUID) ([]models.Board, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, name, is_default, created_at, updated_at
			FROM boards WHERE project_id = $1 ORDER BY created_at ASC`,
		projectID)
	if err != nil {
		logger.Error("Repository: Не удалось получить доски", err)
		return nil, fmt.Errorf("получение досок: %w", err)
	}
	defer rows.Close()

	boards := []models.Board{}
	for rows.Next() {
		b := models.Board{}
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.Name, &b.IsDefault, &b.CreatedAt, &b.UpdatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования доски", zap.Error(err))
			continue
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return boards, nil
}

func (s *Storage) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить доску", err)
		return fmt.Errorf("удаление доски: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) CreateColumn(ctx context.Context, column *models.Column) error {
	query := `INSERT INTO columns (id, board_id, title, position, status, color, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, NOW())
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		column.ID,
		column.BoardID,
		column.Title,
		column.Position,
		column.Status,
		column.Color,
	).Scan(&column.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось создать колонку", err)
		return fmt.Errorf("создание колонки: %w", err)
	}
	return nil
}

func (s *Storage) GetColumnByID(ctx context.Context, id uuid.UUID) (*models.Column, error) {
	query := `SELECT id, board_id, title, position, status, color, created_at, updated_at
				FROM columns WHERE id = $1`

	c := &models.Column{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.BoardID, &c.Title, &c.Position, &c.Status, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить колонку", err)
		return nil, fmt.Errorf("получение колонки: %w", err)
	}
	return c, nil
}

// ListBoardColumns: позиции не уникальны на уровне БД, равные позиции
// упорядочиваются по времени создания.
func (s *Storage) ListBoardColumns(ctx context.Context, boardID uuid.UUID) ([]models.Column, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, board_id, title, position, status, color, created_at, updated_at
			FROM columns WHERE board_id = $1 ORDER BY position ASC, created_at ASC`,
		boardID)
	if err != nil {
		logger.Error("Repository: Не удалось получить колонки", err)
		return nil, fmt.Errorf("получение колонок: %w", err)
	}
	defer rows.Close()

	columns := []models.Column{}
	for rows.Next() {
		c := models.Column{}
		if err := rows.Scan(&c.ID, &c.BoardID, &c.Title, &c.Position, &c.Status, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования колонки", zap.Error(err))
			continue
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return columns, nil
}

// ListAllColumns — все колонки во всех досках; используется фоновым
// контролёром done-лимита.
func (s *Storage) ListAllColumns(ctx context.Context) ([]models.Column, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, board_id, title, position, status, color, created_at, updated_at FROM columns`)
	if err != nil {
		logger.Error("Repository: Не удалось получить колонки", err)
		return nil, fmt.Errorf("получение колонок: %w", err)
	}
	defer rows.Close()

	columns := []models.Column{}
	for rows.Next() {
		c := models.Column{}
		if err := rows.Scan(&c.ID, &c.BoardID, &c.Title, &c.Position, &c.Status, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования колонки", zap.Error(err))
			continue
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return columns, nil
}

func (s *Storage) UpdateColumn(ctx context.Context, column *models.Column) error {
	query := `UPDATE columns
				SET title = $1, position = $2, status = $3, color = $4, updated_at = NOW()
				WHERE id = $5
				RETURNING updated_at`

	err := s.pool.QueryRow(ctx, query,
		column.Title, column.Position, column.Status, column.Color, column.ID).
		Scan(&column.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить колонку", err)
		return fmt.Errorf("обновление колонки: %w", err)
	}
	return nil
}

// DeleteColumn: задачи колонки не удаляются, их column_id становится NULL по FK.
func (s *Storage) DeleteColumn(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM columns WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить колонку", err)
		return fmt.Errorf("удаление колонки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// GetColumnRef — принадлежность колонки проекту и доске одним запросом,
// для проверки доступа перед мутациями.
func (s *Storage) GetColumnRef(ctx context.Context, columnID uuid.UUID) (*repo.ColumnRef, error) {
	query := `SELECT b.project_id, c.board_id
				FROM columns c
				JOIN boards b ON c.board_id = b.id
				WHERE c.id = $1`

	ref := &repo.ColumnRef{}
	err := s.pool.QueryRow(ctx, query, columnID).Scan(&ref.ProjectID, &ref.BoardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось определить принадлежность колонки", err)
		return nil, fmt.Errorf("принадлежность колонки: %w", err)
	}
	return ref, nil
}
