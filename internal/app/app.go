package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/handlers"
	"taskboard/internal/logger"
	"taskboard/internal/repository/inmemory"
	"taskboard/internal/repository/postgres"
	"taskboard/internal/service"
	"taskboard/internal/worker"
)

type App struct {
	config    *config.Config
	server    *http.Server
	service   *service.Service
	sweeper   *worker.ArchiveSweeper
	shutdowns []func() // функции для graceful shutdown, вызываются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	repo, err := a.initRepository(ctx)
	if err != nil {
		return err
	}

	a.service = service.New(repo, a.config.Board.DoneLimit)

	authH := handlers.NewAuthHandler(a.service)
	projectH := handlers.NewProjectHandler(a.service)
	taskH := handlers.NewTaskHandler(a.service)
	router := handlers.NewRouter(authH, projectH, taskH, a.service)

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if a.config.Sweeper.Enabled {
		if sr, ok := repo.(worker.SweeperRepo); ok {
			a.sweeper = worker.NewArchiveSweeper(sr, a.config.Sweeper.Interval, a.config.Board.DoneLimit)
		}
	}
	return nil
}

func (a *App) initRepository(ctx context.Context) (service.Repository, error) {
	switch a.config.Repository.Type {
	case "inmemory":
		logger.Info("Хранилище: in-memory")
		return inmemory.New(), nil
	case "postgres", "":
		storage, err := postgres.New(ctx, a.config.Database.URL, postgres.Options{
			MaxConns:    a.config.Database.MaxConnections,
			MinConns:    a.config.Database.MinConnections,
			IdleTimeout: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("подключение к postgres: %w", err)
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Закрытие пула подключений...")
			storage.Close()
		})

		if err := postgres.Migrate(a.config.Database.URL, a.config.Database.MigrationsPath); err != nil {
			return nil, fmt.Errorf("миграции: %w", err)
		}
		logger.Info("Хранилище: postgres, миграции применены")
		return storage, nil
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %s", a.config.Repository.Type)
	}
}

// Run запускает сервер и воркер и блокируется до SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if a.sweeper != nil {
		go a.sweeper.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.Stop(context.Background())
		return fmt.Errorf("сервер: %w", err)
	case <-ctx.Done():
		logger.Info("Получен сигнал остановки")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки сервера", err)
	}

	a.Stop(shutdownCtx)
	return nil
}

// Stop выполняет накопленные shutdown-функции в обратном порядке.
func (a *App) Stop(ctx context.Context) {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}
