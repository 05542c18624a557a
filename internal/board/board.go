package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/logger"
	"taskboard/internal/models"
	"taskboard/internal/workflow"
)

// MutationState — жизненный цикл оптимистичной мутации.
type MutationState int

const (
	StatePending MutationState = iota
	StateCommitting
	StateCommitted
	StateFailed
)

func (s MutationState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Mutation — запись об отправленной на сервер правке доски.
type Mutation struct {
	ID        uuid.UUID
	Kind      string
	TaskID    uuid.UUID
	State     MutationState
	Err       error
	StartedAt time.Time
}

// ColumnView — колонка вместе с её задачами и вычисленным статусом.
type ColumnView struct {
	Column   models.Column
	Resolved models.Status
	Tasks    []models.Task
}

// Filter решает, показывать ли задачу. Паника или ошибка фильтра
// никогда не прячет задачу: при сбое задача остаётся видимой.
type Filter func(models.Task) bool

// Board — клиентское представление доски с оптимистичными правками.
// Локальное состояние меняется сразу, подтверждение сервера
// примиряется по номеру поколения: ответы, пришедшие после
// перезагрузки доски, отбрасываются.
type Board struct {
	mtx sync.Mutex

	client     Client
	boardID    uuid.UUID
	doneLimit  int
	generation uint64

	columns   []ColumnView
	filters   []Filter
	mutations []Mutation

	// refresh получает сигнал, когда состояние требует перечитывания
	refresh chan struct{}
}

func New(client Client, boardID uuid.UUID, doneLimit int) *Board {
	return &Board{
		client:    client,
		boardID:   boardID,
		doneLimit: doneLimit,
		refresh:   make(chan struct{}, 1),
	}
}

// Refresh — канал сигналов о необходимости перечитать доску.
func (b *Board) Refresh() <-chan struct{} {
	return b.refresh
}

func (b *Board) signalRefresh() {
	select {
	case b.refresh <- struct{}{}:
	default:
	}
}

// Load перечитывает колонки и их задачи. Задачи колонок грузятся
// параллельно, порядок колонок сохраняется.
func (b *Board) Load(ctx context.Context) error {
	columns, err := b.client.ListColumns(ctx, b.boardID)
	if err != nil {
		return fmt.Errorf("загрузка колонок: %w", err)
	}

	views := make([]ColumnView, len(columns))
	g, gctx := errgroup.WithContext(ctx)
	for i := range columns {
		i := i
		g.Go(func() error {
			tasks, err := b.client.ListColumnTasks(gctx, columns[i].ID)
			if err != nil {
				return fmt.Errorf("загрузка задач колонки %s: %w", columns[i].ID, err)
			}
			views[i] = ColumnView{
				Column:   columns[i],
				Resolved: workflow.ResolveStatus(columns[i]),
				Tasks:    tasks,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	b.mtx.Lock()
	b.columns = views
	b.generation++
	b.mutations = nil
	b.mtx.Unlock()
	return nil
}

// Snapshot возвращает копию состояния с применёнными фильтрами.
func (b *Board) Snapshot() []ColumnView {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	out := make([]ColumnView, len(b.columns))
	for i, cv := range b.columns {
		out[i] = ColumnView{
			Column:   cv.Column,
			Resolved: cv.Resolved,
			Tasks:    b.applyFilters(cv.Tasks),
		}
	}
	return out
}

// SetFilters заменяет набор фильтров отображения.
func (b *Board) SetFilters(filters ...Filter) {
	b.mtx.Lock()
	b.filters = filters
	b.mtx.Unlock()
}

// applyFilters фильтрует задачи. Сбойный фильтр пропускает задачу
// в выдачу, а не прячет её. Вызывается под мьютексом.
func (b *Board) applyFilters(tasks []models.Task) []models.Task {
	if len(b.filters) == 0 {
		out := make([]models.Task, len(tasks))
		copy(out, tasks)
		return out
	}

	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if keepTask(b.filters, t) {
			out = append(out, t)
		}
	}
	return out
}

func keepTask(filters []Filter, t models.Task) (keep bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Board: фильтр упал, задача остаётся видимой",
				zap.String("task_id", t.ID.String()),
				zap.Any("panic", r))
			keep = true
		}
	}()
	for _, f := range filters {
		if !f(t) {
			return false
		}
	}
	return true
}

// Mutations возвращает копию журнала мутаций.
func (b *Board) Mutations() []Mutation {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	out := make([]Mutation, len(b.mutations))
	copy(out, b.mutations)
	return out
}

func (b *Board) recordMutation(kind string, taskID uuid.UUID) uuid.UUID {
	id := uuid.New()
	b.mutations = append(b.mutations, Mutation{
		ID:        id,
		Kind:      kind,
		TaskID:    taskID,
		State:     StatePending,
		StartedAt: time.Now(),
	})
	return id
}

func (b *Board) setMutationState(id uuid.UUID, state MutationState, err error) {
	for i := range b.mutations {
		if b.mutations[i].ID == id {
			b.mutations[i].State = state
			b.mutations[i].Err = err
			return
		}
	}
}

// snapshotColumns — глубокая копия колонок для отката. Под мьютексом.
func (b *Board) snapshotColumns() []ColumnView {
	snap := make([]ColumnView, len(b.columns))
	for i, cv := range b.columns {
		tasks := make([]models.Task, len(cv.Tasks))
		copy(tasks, cv.Tasks)
		snap[i] = ColumnView{Column: cv.Column, Resolved: cv.Resolved, Tasks: tasks}
	}
	return snap
}

func (b *Board) findColumn(columnID uuid.UUID) *ColumnView {
	for i := range b.columns {
		if b.columns[i].Column.ID == columnID {
			return &b.columns[i]
		}
	}
	return nil
}

func (b *Board) findTask(taskID uuid.UUID) (*ColumnView, int) {
	for i := range b.columns {
		for j := range b.columns[i].Tasks {
			if b.columns[i].Tasks[j].ID == taskID {
				return &b.columns[i], j
			}
		}
	}
	return nil, -1
}

// MoveTask оптимистично переносит задачу в другую колонку и
// подтверждает перенос на сервере. При ошибке сервера локальное
// состояние откатывается.
func (b *Board) MoveTask(ctx context.Context, taskID, destColumnID uuid.UUID, position int) error {
	b.mtx.Lock()

	src, idx := b.findTask(taskID)
	dest := b.findColumn(destColumnID)
	if src == nil || dest == nil {
		b.mtx.Unlock()
		return fmt.Errorf("задача %s или колонка %s не найдены на доске", taskID, destColumnID)
	}

	snapshot := b.snapshotColumns()
	gen := b.generation
	mutID := b.recordMutation("move", taskID)

	// локальное применение
	task := src.Tasks[idx]
	src.Tasks = append(src.Tasks[:idx], src.Tasks[idx+1:]...)
	task.ColumnID = &dest.Column.ID
	task.Status = dest.Resolved
	if position < 0 || position > len(dest.Tasks) {
		position = len(dest.Tasks)
	}
	dest.Tasks = append(dest.Tasks[:position], append([]models.Task{task}, dest.Tasks[position:]...)...)
	b.localDoneLimit(dest)
	b.setMutationState(mutID, StateCommitting, nil)
	b.mtx.Unlock()

	updated, err := b.client.MoveTask(ctx, taskID, destColumnID, position)

	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.generation != gen {
		// доска перезагружена, ответ устарел
		logger.Warn("Board: ответ сервера отброшен как устаревший",
			zap.String("task_id", taskID.String()))
		b.setMutationState(mutID, StateCommitted, nil)
		return nil
	}
	if err != nil {
		b.columns = snapshot
		b.setMutationState(mutID, StateFailed, err)
		b.signalRefresh()
		return fmt.Errorf("перенос задачи не подтверждён: %w", err)
	}

	b.reconcileTask(updated)
	b.setMutationState(mutID, StateCommitted, nil)
	return nil
}

// ToggleComplete оптимистично переключает "выполнено/на проверке".
func (b *Board) ToggleComplete(ctx context.Context, taskID uuid.UUID) error {
	b.mtx.Lock()

	src, idx := b.findTask(taskID)
	if src == nil {
		b.mtx.Unlock()
		return fmt.Errorf("задача %s не найдена на доске", taskID)
	}

	target := models.StatusDone
	if src.Tasks[idx].Status == models.StatusDone {
		target = models.StatusReview
	}

	snapshot := b.snapshotColumns()
	gen := b.generation
	mutID := b.recordMutation("toggle", taskID)

	task := src.Tasks[idx]
	task.Status = target

	cols := make([]models.Column, len(b.columns))
	for i := range b.columns {
		cols[i] = b.columns[i].Column
	}
	if targetCol := workflow.FindColumnForStatus(cols, target); targetCol != nil {
		dest := b.findColumn(targetCol.ID)
		src.Tasks = append(src.Tasks[:idx], src.Tasks[idx+1:]...)
		task.ColumnID = &dest.Column.ID
		dest.Tasks = append(dest.Tasks, task)
		b.localDoneLimit(dest)
	} else {
		src.Tasks[idx] = task
	}
	b.setMutationState(mutID, StateCommitting, nil)
	b.mtx.Unlock()

	updated, err := b.client.ToggleComplete(ctx, taskID)

	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.generation != gen {
		b.setMutationState(mutID, StateCommitted, nil)
		return nil
	}
	if err != nil {
		b.columns = snapshot
		b.setMutationState(mutID, StateFailed, err)
		b.signalRefresh()
		return fmt.Errorf("переключение статуса не подтверждено: %w", err)
	}

	b.reconcileTask(updated)
	b.setMutationState(mutID, StateCommitted, nil)
	return nil
}

// CreateTask создаёт задачу на сервере и вставляет её в колонку.
// Создание не оптимистично: без серверного id задачу не отобразить.
func (b *Board) CreateTask(ctx context.Context, columnID uuid.UUID, title, description string) (*models.Task, error) {
	task, err := b.client.CreateTask(ctx, columnID, title, description)
	if err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()
	if dest := b.findColumn(columnID); dest != nil {
		dest.Tasks = append(dest.Tasks, *task)
		b.localDoneLimit(dest)
	}
	return task, nil
}

// DeleteTask оптимистично убирает задачу и подтверждает удаление.
func (b *Board) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	b.mtx.Lock()

	src, idx := b.findTask(taskID)
	if src == nil {
		b.mtx.Unlock()
		return fmt.Errorf("задача %s не найдена на доске", taskID)
	}

	snapshot := b.snapshotColumns()
	gen := b.generation
	mutID := b.recordMutation("delete", taskID)
	src.Tasks = append(src.Tasks[:idx], src.Tasks[idx+1:]...)
	b.setMutationState(mutID, StateCommitting, nil)
	b.mtx.Unlock()

	err := b.client.DeleteTask(ctx, taskID)

	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.generation != gen {
		b.setMutationState(mutID, StateCommitted, nil)
		return nil
	}
	if err != nil {
		b.columns = snapshot
		b.setMutationState(mutID, StateFailed, err)
		b.signalRefresh()
		return fmt.Errorf("удаление задачи не подтверждено: %w", err)
	}
	b.setMutationState(mutID, StateCommitted, nil)
	return nil
}

// reconcileTask заменяет локальную копию задачи серверной.
// Вызывается под мьютексом.
func (b *Board) reconcileTask(updated *models.Task) {
	if updated == nil {
		return
	}
	if cv, idx := b.findTask(updated.ID); cv != nil {
		if updated.ColumnID != nil && cv.Column.ID == *updated.ColumnID {
			cv.Tasks[idx] = *updated
			return
		}
		// сервер положил задачу не туда, куда ждал клиент
		cv.Tasks = append(cv.Tasks[:idx], cv.Tasks[idx+1:]...)
	}
	if updated.ColumnID != nil {
		if dest := b.findColumn(*updated.ColumnID); dest != nil {
			dest.Tasks = append(dest.Tasks, *updated)
		}
	}
}

// localDoneLimit зеркалит серверный лимит: в колонке "выполнено"
// видимыми остаются не больше doneLimit задач. Под мьютексом.
func (b *Board) localDoneLimit(cv *ColumnView) {
	if cv.Resolved != models.StatusDone {
		return
	}
	visible, archived := workflow.EnforceDoneLimit(cv.Tasks, b.doneLimit)
	if len(archived) > 0 {
		logger.Info("Board: локальный лимит скрыл задачи",
			zap.String("column_id", cv.Column.ID.String()),
			zap.Int("hidden", len(archived)))
	}
	cv.Tasks = visible
}
