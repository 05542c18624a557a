package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/logger"
	"taskboard/internal/models"
	"taskboard/internal/workflow"
)

// SweeperRepo — доступ к хранилищу, который нужен подметальщику.
type SweeperRepo interface {
	ListAllColumns(ctx context.Context) ([]models.Column, error)
	GetColumnTasks(ctx context.Context, columnID uuid.UUID) ([]models.Task, error)
	ArchiveTask(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ArchiveSweeper периодически обходит колонки "Выполнено" и
// архивирует задачи сверх лимита. Страхует случаи, когда колонку
// давно никто не открывал, а задачи в неё продолжали падать.
type ArchiveSweeper struct {
	repo      SweeperRepo
	interval  time.Duration
	doneLimit int
}

func NewArchiveSweeper(repo SweeperRepo, interval time.Duration, doneLimit int) *ArchiveSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if doneLimit <= 0 {
		doneLimit = workflow.DoneLimit
	}
	return &ArchiveSweeper{
		repo:      repo,
		interval:  interval,
		doneLimit: doneLimit,
	}
}

func (w *ArchiveSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: Фоновая проверка лимита колонок", zap.Time("started_at", time.Now()))
			w.Sweep(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновая проверка останавливается")
			return
		}
	}
}

// Sweep — один проход по всем колонкам.
func (w *ArchiveSweeper) Sweep(ctx context.Context) {
	start := time.Now()

	columns, err := w.repo.ListAllColumns(ctx)
	if err != nil {
		logger.Warn("Worker: ошибка получения колонок", zap.Error(err))
		return
	}

	checked := 0
	archivedTotal := 0
	for _, col := range columns {
		if workflow.ResolveStatus(col) != models.StatusDone {
			continue
		}
		checked++

		n, err := w.sweepColumn(ctx, col)
		if err != nil {
			logger.Warn("Worker: Ошибка обработки колонки",
				zap.String("column_id", col.ID.String()),
				zap.Error(err))
			continue
		}
		archivedTotal += n
	}

	logger.Info("Worker: Завершение проверки лимита",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", checked),
		zap.Int("archived", archivedTotal),
	)
}

func (w *ArchiveSweeper) sweepColumn(ctx context.Context, col models.Column) (int, error) {
	tasks, err := w.repo.GetColumnTasks(ctx, col.ID)
	if err != nil {
		return 0, err
	}

	_, overflow := workflow.EnforceDoneLimit(tasks, w.doneLimit)
	if len(overflow) == 0 {
		return 0, nil
	}

	now := time.Now()
	archived := 0
	for _, t := range overflow {
		if err := w.repo.ArchiveTask(ctx, t.ID, now); err != nil {
			logger.Warn("Worker: Ошибка архивации задачи",
				zap.String("task_id", t.ID.String()),
				zap.Error(err))
			continue
		}
		archived++
	}
	return archived, nil
}
