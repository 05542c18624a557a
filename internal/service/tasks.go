package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/logger"
	"taskboard/internal/models"
	rep "taskboard/internal/repository"
	"taskboard/internal/workflow"
)

const (
	maxTitleLen       = 500
	maxDescriptionLen = 2000
)

type CreateTaskInput struct {
	Title       string
	Description string
	Priority    *models.Priority
	DueDate     *time.Time
	Tags        []string
	AssigneeIDs []uuid.UUID
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *models.Status
	Priority    *models.Priority
	ColumnID    *uuid.UUID
	Position    *int
	DueDate     *time.Time
	IsArchived  *bool
	AssigneeIDs *[]uuid.UUID
}

type TaskPosition struct {
	TaskID   uuid.UUID
	Position int
	ColumnID *uuid.UUID
}

// ListColumnTasks возвращает видимые задачи колонки. Для колонок со
// статусом "выполнено" попутно применяется лимит: лишние задачи
// архивируются, в ответ попадают только оставшиеся.
func (s *Service) ListColumnTasks(ctx context.Context, userID, columnID uuid.UUID) ([]models.Task, error) {
	if _, err := s.ensureColumnAccess(ctx, userID, columnID); err != nil {
		return nil, err
	}

	column, err := s.repo.GetColumnByID(ctx, columnID)
	if err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceColumn, columnID.String())
		}
		return nil, NewInternal(err)
	}

	tasks, err := s.repo.GetColumnTasks(ctx, columnID)
	if err != nil {
		return nil, NewInternal(err)
	}

	if workflow.ResolveStatus(*column) == models.StatusDone {
		tasks, err = s.applyDoneLimit(ctx, *column, tasks)
		if err != nil {
			return nil, err
		}
	}

	for i := range tasks {
		assignees, err := s.repo.GetAssignees(ctx, tasks[i].ID)
		if err != nil {
			return nil, NewInternal(err)
		}
		tasks[i].Assignees = assignees
	}
	return tasks, nil
}

// applyDoneLimit архивирует хвост колонки сверх лимита. Каждая
// перелимитная задача архивируется ровно один раз за вызов.
func (s *Service) applyDoneLimit(ctx context.Context, column models.Column, tasks []models.Task) ([]models.Task, error) {
	visible, archived := workflow.EnforceDoneLimit(tasks, s.doneLimit)
	if len(archived) == 0 {
		return visible, nil
	}

	now := time.Now()
	for _, t := range archived {
		if err := s.repo.ArchiveTask(ctx, t.ID, now); err != nil && !isNotFound(err) {
			return nil, NewInternal(fmt.Errorf("архивация задачи %s: %w", t.ID, err))
		}
	}
	logger.Info("Service: перелимитные задачи заархивированы",
		zap.String("column_id", column.ID.String()),
		zap.Int("archived", len(archived)),
		zap.Int("visible", len(visible)))
	return visible, nil
}

func (s *Service) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.ensureTaskAccess(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	assignees, err := s.repo.GetAssignees(ctx, taskID)
	if err != nil {
		return nil, NewInternal(err)
	}
	task.Assignees = assignees
	return task, nil
}

func (s *Service) CreateTask(ctx context.Context, userID, columnID uuid.UUID, in CreateTaskInput) (*models.Task, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}
	if in.Priority != nil && !isValidPriority(*in.Priority) {
		return nil, NewValidationError("priority", fmt.Sprintf("недопустимое значение '%s'", *in.Priority))
	}

	ref, err := s.ensureColumnAccess(ctx, userID, columnID)
	if err != nil {
		return nil, err
	}
	column, err := s.repo.GetColumnByID(ctx, columnID)
	if err != nil {
		return nil, NewInternal(err)
	}
	existing, err := s.repo.GetColumnTasks(ctx, columnID)
	if err != nil {
		return nil, NewInternal(err)
	}

	priority := models.PriorityMedium
	if in.Priority != nil {
		priority = *in.Priority
	}

	task := &models.Task{
		ID:          uuid.New(),
		ProjectID:   ref.ProjectID,
		BoardID:     ref.BoardID,
		ColumnID:    &columnID,
		Title:       in.Title,
		Description: in.Description,
		Status:      workflow.ResolveStatus(*column),
		Priority:    priority,
		Position:    len(existing),
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		ReporterID:  userID,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, NewInternal(fmt.Errorf("создание задачи: %w", err))
	}

	if len(in.AssigneeIDs) > 0 {
		if err := s.repo.ReplaceAssignees(ctx, task.ID, in.AssigneeIDs); err != nil {
			return nil, NewInternal(err)
		}
	}

	logger.Info("Service: задача создана",
		zap.String("task_id", task.ID.String()),
		zap.String("column_id", columnID.String()))

	// создание сразу в "выполнено" тоже может пробить лимит
	if workflow.ResolveStatus(*column) == models.StatusDone {
		if err := s.enforceColumnLimit(ctx, columnID); err != nil {
			return nil, err
		}
	}
	return task, nil
}

// UpdateTask — частичное обновление. Перенос в другую колонку меняет
// статус по назначению колонки, явный статус в запросе имеет приоритет.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	task, err := s.ensureTaskAccess(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	upd := rep.TaskUpdate{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Position:    in.Position,
		DueDate:     in.DueDate,
		IsArchived:  in.IsArchived,
	}

	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		if err := validateDescription(*in.Description); err != nil {
			return nil, err
		}
	}
	if in.Priority != nil && !isValidPriority(*in.Priority) {
		return nil, NewValidationError("priority", fmt.Sprintf("недопустимое значение '%s'", *in.Priority))
	}
	if in.Status != nil && !isValidStatus(*in.Status) {
		return nil, NewValidationError("status", fmt.Sprintf("недопустимое значение '%s'", *in.Status))
	}

	var destColumn *models.Column
	if in.ColumnID != nil {
		ref, err := s.ensureColumnAccess(ctx, userID, *in.ColumnID)
		if err != nil {
			return nil, err
		}
		if ref.ProjectID != task.ProjectID {
			return nil, NewValidationError("columnId", "колонка принадлежит другому проекту")
		}
		destColumn, err = s.repo.GetColumnByID(ctx, *in.ColumnID)
		if err != nil {
			return nil, NewInternal(err)
		}
		upd.ColumnID = in.ColumnID
		resolved := workflow.ResolveStatus(*destColumn)
		upd.Status = &resolved
	}

	// явный статус перекрывает выведенный из колонки
	if in.Status != nil {
		upd.Status = in.Status
		// статус без колонки: ищем колонку-синоним на той же доске
		if in.ColumnID == nil && (*in.Status == models.StatusDone || *in.Status == models.StatusReview) {
			columns, err := s.repo.ListBoardColumns(ctx, task.BoardID)
			if err != nil {
				return nil, NewInternal(err)
			}
			if target := workflow.FindColumnForStatus(columns, *in.Status); target != nil {
				upd.ColumnID = &target.ID
				destColumn = target
			}
		}
	}

	if in.IsArchived != nil && *in.IsArchived {
		now := time.Now()
		upd.ArchivedAt = &now
	}

	updated, err := s.repo.UpdateTask(ctx, taskID, upd)
	if err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceTask, taskID.String())
		}
		return nil, NewInternal(fmt.Errorf("обновление задачи: %w", err))
	}

	if in.AssigneeIDs != nil {
		if err := s.repo.ReplaceAssignees(ctx, taskID, *in.AssigneeIDs); err != nil {
			return nil, NewInternal(err)
		}
	}

	// приземление в "выполнено" может пробить лимит колонки
	if destColumn != nil && workflow.ResolveStatus(*destColumn) == models.StatusDone && !updated.IsArchived {
		if err := s.enforceColumnLimit(ctx, destColumn.ID); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// ToggleComplete переключает задачу между "выполнено" и "на проверке",
// перенося её в подходящую по названию колонку, если такая есть.
func (s *Service) ToggleComplete(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.ensureTaskAccess(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	target := models.StatusDone
	if task.Status == models.StatusDone {
		target = models.StatusReview
	}

	upd := rep.TaskUpdate{Status: &target}

	columns, err := s.repo.ListBoardColumns(ctx, task.BoardID)
	if err != nil {
		return nil, NewInternal(err)
	}
	var destColumn *models.Column
	if destColumn = workflow.FindColumnForStatus(columns, target); destColumn != nil {
		upd.ColumnID = &destColumn.ID
		siblings, err := s.repo.GetColumnTasks(ctx, destColumn.ID)
		if err != nil {
			return nil, NewInternal(err)
		}
		pos := len(siblings)
		upd.Position = &pos
	}

	updated, err := s.repo.UpdateTask(ctx, taskID, upd)
	if err != nil {
		return nil, NewInternal(fmt.Errorf("переключение статуса: %w", err))
	}
	logger.Info("Service: статус задачи переключён",
		zap.String("task_id", taskID.String()),
		zap.String("status", string(target)))

	if target == models.StatusDone && destColumn != nil {
		if err := s.enforceColumnLimit(ctx, destColumn.ID); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

func (s *Service) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	if _, err := s.ensureTaskAccess(ctx, userID, taskID); err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceTask, taskID.String())
		}
		return NewInternal(err)
	}
	return nil
}

// ReorderTasks применяет пакет перестановок одной транзакцией.
// Все задачи пакета должны принадлежать одному доступному проекту.
func (s *Service) ReorderTasks(ctx context.Context, userID uuid.UUID, moves []TaskPosition) error {
	if len(moves) == 0 {
		return nil
	}

	var projectID uuid.UUID
	for i, m := range moves {
		task, err := s.repo.GetTaskByID(ctx, m.TaskID)
		if err != nil {
			if isNotFound(err) {
				return NewNotFound(ResourceTask, m.TaskID.String())
			}
			return NewInternal(err)
		}
		if i == 0 {
			projectID = task.ProjectID
		} else if task.ProjectID != projectID {
			return NewValidationError("tasks", "задачи пакета принадлежат разным проектам")
		}
		if m.ColumnID != nil {
			ref, err := s.repo.GetColumnRef(ctx, *m.ColumnID)
			if err != nil {
				if isNotFound(err) {
					return NewNotFound(ResourceColumn, m.ColumnID.String())
				}
				return NewInternal(err)
			}
			if ref.ProjectID != projectID {
				return NewValidationError("columnId", "колонка принадлежит другому проекту")
			}
		}
	}
	if err := s.ensureProjectAccess(ctx, userID, projectID); err != nil {
		return err
	}

	updates := make([]rep.PositionUpdate, len(moves))
	for i, m := range moves {
		updates[i] = rep.PositionUpdate{TaskID: m.TaskID, Position: m.Position, ColumnID: m.ColumnID}
	}
	if err := s.repo.UpdateTaskPositions(ctx, updates); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceTask, "из пакета перестановок")
		}
		return NewInternal(fmt.Errorf("пакетная перестановка: %w", err))
	}
	return nil
}

func (s *Service) ListArchivedTasks(ctx context.Context, userID, boardID uuid.UUID) ([]models.Task, error) {
	board, err := s.repo.GetBoardByID(ctx, boardID)
	if err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceBoard, boardID.String())
		}
		return nil, NewInternal(err)
	}
	if err := s.ensureProjectAccess(ctx, userID, board.ProjectID); err != nil {
		return nil, err
	}
	tasks, err := s.repo.GetArchivedTasks(ctx, boardID)
	if err != nil {
		return nil, NewInternal(err)
	}
	return tasks, nil
}

func (s *Service) UnarchiveTask(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error) {
	if _, err := s.ensureTaskAccess(ctx, userID, taskID); err != nil {
		return nil, err
	}
	if err := s.repo.UnarchiveTask(ctx, taskID); err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceTask, taskID.String())
		}
		return nil, NewInternal(err)
	}
	return s.repo.GetTaskByID(ctx, taskID)
}

// enforceColumnLimit перечитывает колонку и применяет лимит "выполнено".
func (s *Service) enforceColumnLimit(ctx context.Context, columnID uuid.UUID) error {
	tasks, err := s.repo.GetColumnTasks(ctx, columnID)
	if err != nil {
		return NewInternal(err)
	}
	column, err := s.repo.GetColumnByID(ctx, columnID)
	if err != nil {
		return NewInternal(err)
	}
	_, err = s.applyDoneLimit(ctx, *column, tasks)
	return err
}

func isValidStatus(st models.Status) bool {
	_, ok := models.ValidStatuses[st]
	return ok
}

func isValidPriority(p models.Priority) bool {
	_, ok := models.ValidPriorities[p]
	return ok
}

func validateTitle(title string) error {
	if len(title) == 0 {
		return NewValidationError("title", "обязательное поле")
	}
	if len([]rune(title)) > maxTitleLen {
		return NewValidationError("title", fmt.Sprintf("длиннее %d символов", maxTitleLen))
	}
	return nil
}

func validateDescription(description string) error {
	if len([]rune(description)) > maxDescriptionLen {
		return NewValidationError("description", fmt.Sprintf("длиннее %d символов", maxDescriptionLen))
	}
	return nil
}
