package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/logger"
	"taskboard/internal/models"
	repo "taskboard/internal/repository"
)

func (s *Storage) CreateComment(ctx context.Context, comment *models.Comment) error {
	query := `INSERT INTO comments (id, task_id, author_id, parent_id, body, created_at)
				VALUES ($1, $2, $3, $4, $5, NOW())
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		comment.ID, comment.TaskID, comment.AuthorID, comment.ParentID, comment.Body).
		Scan(&comment.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось создать комментарий", err)
		return fmt.Errorf("создание комментария: %w", err)
	}
	return nil
}

func (s *Storage) ListTaskComments(ctx context.Context, taskID uuid.UUID) ([]models.Comment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, author_id, parent_id, body, created_at, updated_at
			FROM comments WHERE task_id = $1 ORDER BY created_at ASC`,
		taskID)
	if err != nil {
		logger.Error("Repository: Не удалось получить комментарии", err)
		return nil, fmt.Errorf("получение комментариев: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c := models.Comment{}
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.ParentID, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования комментария", zap.Error(err))
			continue
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return comments, nil
}

func (s *Storage) DeleteComment(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить комментарий", err)
		return fmt.Errorf("удаление комментария: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) CreateAttachment(ctx context.Context, att *models.Attachment) error {
	query := `INSERT INTO attachments (id, task_id, uploaded_by, file_name, file_size, mime_type, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, NOW())
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		att.ID, att.TaskID, att.UploadedBy, att.FileName, att.FileSize, att.MimeType).
		Scan(&att.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось сохранить вложение", err)
		return fmt.Errorf("сохранение вложения: %w", err)
	}
	return nil
}

func (s *Storage) ListTaskAttachments(ctx context.Context, taskID uuid.UUID) ([]models.Attachment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, uploaded_by, file_name, file_size, mime_type, created_at
			FROM attachments WHERE task_id = $1 ORDER BY created_at ASC`,
		taskID)
	if err != nil {
		logger.Error("Repository: Не удалось получить вложения", err)
		return nil, fmt.Errorf("получение вложений: %w", err)
	}
	defer rows.Close()

	attachments := []models.Attachment{}
	for rows.Next() {
		a := models.Attachment{}
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UploadedBy, &a.FileName, &a.FileSize, &a.MimeType, &a.CreatedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования вложения", zap.Error(err))
			continue
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return attachments, nil
}

func (s *Storage) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить вложение", err)
		return fmt.Errorf("удаление вложения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
