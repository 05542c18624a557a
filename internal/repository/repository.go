package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

var (
	ErrNotFound      = errors.New("запись не найдена")
	ErrAlreadyExists = errors.New("запись уже существует")
)

// TaskUpdate — частичное обновление задачи. Нулевой указатель означает
// "поле не трогать". Нормализация имён полей происходит только здесь,
// на границе адаптера, потребители работают с единой схемой.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *models.Status
	Priority    *models.Priority
	ColumnID    *uuid.UUID
	Position    *int
	DueDate     *time.Time
	IsArchived  *bool
	ArchivedAt  *time.Time
}

// IsEmpty сообщает, что обновлять нечего.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil &&
		u.Priority == nil && u.ColumnID == nil && u.Position == nil &&
		u.DueDate == nil && u.IsArchived == nil && u.ArchivedAt == nil
}

// PositionUpdate — элемент пакетного обновления позиций. ColumnID задаётся
// при переносе задачи в другую колонку.
type PositionUpdate struct {
	TaskID   uuid.UUID
	Position int
	ColumnID *uuid.UUID
}

// ColumnRef — принадлежность колонки: проект и доска. Используется
// проверкой доступа перед мутациями задач.
type ColumnRef struct {
	ProjectID uuid.UUID
	BoardID   uuid.UUID
}
