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

const taskColumns = `id, project_id, board_id, column_id, title, description, priority, status,
	position, due_date, is_archived, archived_at, reporter_id, tags, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	t := &models.Task{}
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.BoardID,
		&t.ColumnID,
		&t.Title,
		&t.Description,
		&t.Priority,
		&t.Status,
		&t.Position,
		&t.DueDate,
		&t.IsArchived,
		&t.ArchivedAt,
		&t.ReporterID,
		&t.Tags,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks
				(id, project_id, board_id, column_id, title, description, priority, status,
				 position, due_date, is_archived, reporter_id, tags, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11, $12, NOW())
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		task.ID,
		task.ProjectID,
		task.BoardID,
		task.ColumnID,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.Position,
		task.DueDate,
		task.ReporterID,
		task.Tags,
	).Scan(&task.CreatedAt)

	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	warnSlow("create_task", start, 50*time.Millisecond)
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	start := time.Now()

	task, err := scanTask(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err)
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnSlow("get_task", start, 100*time.Millisecond)
	return task, nil
}

// GetColumnTasks — видимые (неархивированные) задачи колонки в порядке
// позиций; равные позиции упорядочиваются по времени создания.
func (s *Storage) GetColumnTasks(ctx context.Context, columnID uuid.UUID) ([]models.Task, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
			WHERE column_id = $1 AND is_archived = FALSE
			ORDER BY position ASC, created_at ASC`,
		columnID)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			continue
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnSlow("get_column_tasks", start, 100*time.Millisecond)
	return tasks, nil
}

// GetArchivedTasks — архив доски, свежие сверху.
func (s *Storage) GetArchivedTasks(ctx context.Context, boardID uuid.UUID) ([]models.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
			WHERE board_id = $1 AND is_archived = TRUE
			ORDER BY archived_at DESC NULLS LAST`,
		boardID)
	if err != nil {
		logger.Error("Repository: Не удалось получить архив", err)
		return nil, fmt.Errorf("получение архива: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			continue
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

// UpdateTask применяет частичное обновление. SET собирается динамически из
// непустых полей, семантика записи — last-write-wins на уровне строки.
func (s *Storage) UpdateTask(ctx context.Context, id uuid.UUID, upd repo.TaskUpdate) (*models.Task, error) {
	start := time.Now()

	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Priority != nil {
		add("priority", *upd.Priority)
	}
	if upd.ColumnID != nil {
		add("column_id", *upd.ColumnID)
	}
	if upd.Position != nil {
		add("position", *upd.Position)
	}
	if upd.DueDate != nil {
		add("due_date", *upd.DueDate)
	}
	if upd.IsArchived != nil {
		add("is_archived", *upd.IsArchived)
	}
	if upd.ArchivedAt != nil {
		add("archived_at", *upd.ArchivedAt)
	}

	if len(sets) == 0 {
		return s.GetTaskByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tasks SET %s, updated_at = NOW() WHERE id = $%d RETURNING `+taskColumns,
		joinSets(sets), len(args))

	task, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить задачу", err, zap.String("task_id", id.String()))
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}

	warnSlow("update_task", start, 100*time.Millisecond)
	return task, nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

// ArchiveTask выставляет флаг архива и метку времени. Задача не удаляется
// и остаётся доступной через выборку архива.
func (s *Storage) ArchiveTask(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET is_archived = TRUE, archived_at = $1, updated_at = NOW() WHERE id = $2`,
		at, id)
	if err != nil {
		logger.Error("Repository: Не удалось заархивировать задачу", err,
			zap.String("task_id", id.String()))
		return fmt.Errorf("архивация задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) UnarchiveTask(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET is_archived = FALSE, archived_at = NULL, updated_at = NOW() WHERE id = $1`,
		id)
	if err != nil {
		logger.Error("Repository: Не удалось восстановить задачу", err,
			zap.String("task_id", id.String()))
		return fmt.Errorf("восстановление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// UpdateTaskPositions применяет пакет перестановок одной транзакцией:
// частичный сбой не оставляет колонку в полуобновлённом порядке.
func (s *Storage) UpdateTaskPositions(ctx context.Context, moves []repo.PositionUpdate) error {
	if len(moves) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось открыть транзакцию", err)
		return fmt.Errorf("открытие транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range moves {
		tag, err := tx.Exec(ctx,
			`UPDATE tasks SET position = $1, column_id = COALESCE($2, column_id), updated_at = NOW() WHERE id = $3`,
			m.Position, m.ColumnID, m.TaskID)
		if err != nil {
			logger.Error("Repository: Не удалось обновить позицию", err,
				zap.String("task_id", m.TaskID.String()))
			return fmt.Errorf("обновление позиции: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("задача %s: %w", m.TaskID, repo.ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return fmt.Errorf("фиксация транзакции: %w", err)
	}

	warnSlow("update_positions", start, 50*time.Millisecond+10*time.Millisecond*time.Duration(len(moves)))
	return nil
}

// ReplaceAssignees полностью заменяет исполнителей задачи.
func (s *Storage) ReplaceAssignees(ctx context.Context, taskID uuid.UUID, userIDs []uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("открытие транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, taskID); err != nil {
		logger.Error("Repository: Не удалось очистить исполнителей", err)
		return fmt.Errorf("очистка исполнителей: %w", err)
	}

	for _, uid := range userIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			taskID, uid)
		if err != nil {
			logger.Error("Repository: Не удалось добавить исполнителя", err)
			return fmt.Errorf("добавление исполнителя: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("фиксация транзакции: %w", err)
	}
	return nil
}

func (s *Storage) GetAssignees(ctx context.Context, taskID uuid.UUID) ([]models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.email, u.name, u.role
			FROM task_assignees ta
			JOIN users u ON u.id = ta.user_id
			WHERE ta.task_id = $1
			ORDER BY u.name ASC`,
		taskID)
	if err != nil {
		logger.Error("Repository: Не удалось получить исполнителей", err)
		return nil, fmt.Errorf("получение исполнителей: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u := models.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role); err != nil {
			logger.Warn("Repository: Ошибка сканирования исполнителя", zap.Error(err))
			continue
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return users, nil
}
