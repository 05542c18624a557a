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

func (s *Storage) CreateProject(ctx context.Context, project *models.Project) error {
	start := time.Now()

	query := `INSERT INTO projects (id, name, description, color, icon, created_by, is_archived, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.Color,
		project.Icon,
		project.CreatedBy,
	).Scan(&project.CreatedAt)

	if err != nil {
		logger.Error("Repository: Не удалось создать проект", err)
		return fmt.Errorf("создание проекта: %w", err)
	}

	warnSlow("create_project", start, 50*time.Millisecond)
	return nil
}

func (s *Storage) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `SELECT id, name, description, color, icon, created_by, is_archived, created_at, updated_at
				FROM projects WHERE id = $1`

	p := &models.Project{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Color,
		&p.Icon,
		&p.CreatedBy,
		&p.IsArchived,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить проект", err)
		return nil, fmt.Errorf("получение проекта: %w", err)
	}
	return p, nil
}

// ListUserProjects — проекты, где пользователь создатель или участник.
func (s *Storage) ListUserProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	start := time.Now()

	query := `SELECT DISTINCT p.id, p.name, p.description, p.color, p.icon, p.created_by, p.is_archived, p.created_at, p.updated_at
				FROM projects p
				LEFT JOIN project_members m ON m.project_id = p.id
				WHERE p.created_by = $1 OR m.user_id = $1
				ORDER BY p.created_at ASC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		logger.Error("Repository: Не удалось получить проекты", err)
		return nil, fmt.Errorf("получение проектов: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p := models.Project{}
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Color, &p.Icon,
			&p.CreatedBy, &p.IsArchived, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования проекта", zap.Error(err))
			continue
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnSlow("list_user_projects", start, 100*time.Millisecond)
	return projects, nil
}

func (s *Storage) UpdateProject(ctx context.Context, project *models.Project) error {
	query := `UPDATE projects
				SET name = $1, description = $2, color = $3, icon = $4, is_archived = $5, updated_at = NOW()
				WHERE id = $6
				RETURNING updated_at`

	err := s.pool.QueryRow(ctx, query,
		project.Name,
		project.Description,
		project.Color,
		project.Icon,
		project.IsArchived,
		project.ID,
	).Scan(&project.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить проект", err)
		return fmt.Errorf("обновление проекта: %w", err)
	}
	return nil
}

// DeleteProject удаляет проект; доски, колонки и задачи уходят каскадом по FK.
func (s *Storage) DeleteProject(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить проект", err)
		return fmt.Errorf("удаление проекта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) AddProjectMember(ctx context.Context, member *models.ProjectMember) error {
	query := `INSERT INTO project_members (project_id, user_id, role, joined_at)
				VALUES ($1, $2, $3, NOW())
				ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
				RETURNING joined_at`

	err := s.pool.QueryRow(ctx, query, member.ProjectID, member.UserID, member.Role).
		Scan(&member.JoinedAt)
	if err != nil {
		logger.Error("Repository: Не удалось добавить участника", err)
		return fmt.Errorf("добавление участника: %w", err)
	}
	return nil
}

func (s *Storage) ListProjectMembers(ctx context.Context, projectID uuid.UUID) ([]models.ProjectMember, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT project_id, user_id, role, joined_at FROM project_members WHERE project_id = $1 ORDER BY joined_at ASC`,
		projectID)
	if err != nil {
		logger.Error("Repository: Не удалось получить участников", err)
		return nil, fmt.Errorf("получение участников: %w", err)
	}
	defer rows.Close()

	members := []models.ProjectMember{}
	for rows.Next() {
		m := models.ProjectMember{}
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			logger.Warn("Repository: Ошибка сканирования участника", zap.Error(err))
			continue
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return members, nil
}

func (s *Storage) RemoveProjectMember(ctx context.Context, projectID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID)
	if err != nil {
		logger.Error("Repository: Не удалось удалить участника", err)
		return fmt.Errorf("удаление участника: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// HasProjectAccess: доступ есть у создателя проекта и у любого участника.
func (s *Storage) HasProjectAccess(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	start := time.Now()

	query := `SELECT EXISTS (
				SELECT 1 FROM projects WHERE id = $1 AND created_by = $2
				UNION
				SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2
			)`

	var has bool
	if err := s.pool.QueryRow(ctx, query, projectID, userID).Scan(&has); err != nil {
		logger.Error("Repository: Не удалось проверить доступ", err,
			zap.String("user_id", userID.String()),
			zap.String("project_id", projectID.String()))
		return false, fmt.Errorf("проверка доступа: %w", err)
	}

	warnSlow("has_project_access", start, 50*time.Millisecond)
	return has, nil
}
