package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"taskboard/internal/logger"
	"taskboard/internal/models"
	repo "taskboard/internal/repository"
)

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	start := time.Now()

	query := `INSERT INTO users (id, email, name, password_hash, role, approval_status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, NOW())
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Approval,
	).Scan(&user.CreatedAt)

	if err != nil {
		logger.Error("Repository: Не удалось создать пользователя", err)
		return fmt.Errorf("создание пользователя: %w", err)
	}

	warnSlow("create_user", start, 50*time.Millisecond)
	return nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	start := time.Now()

	query := `SELECT id, email, name, password_hash, role, approval_status, created_at, updated_at
				FROM users WHERE email = $1`

	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.Approval,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	warnSlow("get_user_by_email", start, 100*time.Millisecond)
	return user, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, email, name, password_hash, role, approval_status, created_at, updated_at
				FROM users WHERE id = $1`

	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.Approval,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return user, nil
}

func (s *Storage) SetUserApproval(ctx context.Context, id uuid.UUID, approval models.ApprovalStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET approval_status = $1, updated_at = NOW() WHERE id = $2`,
		approval, id)
	if err != nil {
		logger.Error("Repository: Не удалось обновить статус пользователя", err,
			zap.String("user_id", id.String()))
		return fmt.Errorf("обновление статуса пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO sessions (token, user_id, expires_at, created_at)
				VALUES ($1, $2, $3, NOW())
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query, session.Token, session.UserID, session.ExpiresAt).
		Scan(&session.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось создать сессию", err)
		return fmt.Errorf("создание сессии: %w", err)
	}
	return nil
}

// GetSessionUser возвращает пользователя по действующему токену сессии.
func (s *Storage) GetSessionUser(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT u.id, u.email, u.name, u.password_hash, u.role, u.approval_status, u.created_at, u.updated_at
				FROM sessions s
				JOIN users u ON u.id = s.user_id
				WHERE s.token = $1 AND s.expires_at > NOW()`

	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, token).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.Approval,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить сессию", err)
		return nil, fmt.Errorf("получение сессии: %w", err)
	}
	return user, nil
}

func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		logger.Error("Repository: Не удалось удалить сессию", err)
		return fmt.Errorf("удаление сессии: %w", err)
	}
	return nil
}
