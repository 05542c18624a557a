package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"taskboard/internal/models"
	rep "taskboard/internal/repository"
	"taskboard/internal/repository/postgres"
)

// PostgresTestSuite — интеграционные тесты хранилища на живом PostgreSQL.
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	ctx        context.Context
	connString string
}

func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	s.storage, err = postgres.New(s.ctx, s.connString, postgres.Options{})
	require.NoError(s.T(), err)

	require.NoError(s.T(), postgres.Migrate(s.connString, "../../../migrations"))
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		s.container.Terminate(s.ctx)
	}
}

func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	// каскады подчищают остальные таблицы
	_, err = conn.Exec(s.ctx, "DELETE FROM users")
	require.NoError(s.T(), err)
	_, err = conn.Exec(s.ctx, "DELETE FROM projects")
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) seedUser(email string) *models.User {
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Тестовый пользователь",
		PasswordHash: "hash",
		Role:         models.RoleUser,
		Approval:     models.ApprovalApproved,
	}
	require.NoError(s.T(), s.storage.CreateUser(s.ctx, user))
	return user
}

// seedBoard создаёт проект, доску и одну колонку.
func (s *PostgresTestSuite) seedBoard(owner *models.User) (*models.Project, *models.Board, *models.Column) {
	project := &models.Project{ID: uuid.New(), Name: "Проект", CreatedBy: owner.ID}
	require.NoError(s.T(), s.storage.CreateProject(s.ctx, project))

	board := &models.Board{ID: uuid.New(), ProjectID: project.ID, Name: "Доска", IsDefault: true}
	require.NoError(s.T(), s.storage.CreateBoard(s.ctx, board))

	st := models.StatusTodo
	column := &models.Column{ID: uuid.New(), BoardID: board.ID, Title: "К выполнению", Status: &st}
	require.NoError(s.T(), s.storage.CreateColumn(s.ctx, column))
	return project, board, column
}

func (s *PostgresTestSuite) seedTask(project *models.Project, board *models.Board, column *models.Column, title string, position int) *models.Task {
	task := &models.Task{
		ID:         uuid.New(),
		ProjectID:  project.ID,
		BoardID:    board.ID,
		ColumnID:   &column.ID,
		Title:      title,
		Priority:   models.PriorityMedium,
		Status:     models.StatusTodo,
		Position:   position,
		ReporterID: project.CreatedBy,
		CreatedAt:  time.Now(),
	}
	require.NoError(s.T(), s.storage.CreateTask(s.ctx, task))
	return task
}

func (s *PostgresTestSuite) TestUserAndSessionRoundTrip() {
	user := s.seedUser("user@example.com")

	got, err := s.storage.GetUserByEmail(s.ctx, "user@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, got.ID)

	// дубликат email отклоняется
	dup := &models.User{ID: uuid.New(), Email: "user@example.com", Name: "Дубль", PasswordHash: "h"}
	err = s.storage.CreateUser(s.ctx, dup)
	assert.ErrorIs(s.T(), err, rep.ErrAlreadyExists)

	session := &models.Session{
		Token:     "token-123",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(s.T(), s.storage.CreateSession(s.ctx, session))

	sessUser, err := s.storage.GetSessionUser(s.ctx, "token-123")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, sessUser.ID)

	// истёкшая сессия не возвращается
	expired := &models.Session{
		Token:     "token-old",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(s.T(), s.storage.CreateSession(s.ctx, expired))
	_, err = s.storage.GetSessionUser(s.ctx, "token-old")
	assert.ErrorIs(s.T(), err, rep.ErrNotFound)

	require.NoError(s.T(), s.storage.DeleteSession(s.ctx, "token-123"))
	_, err = s.storage.GetSessionUser(s.ctx, "token-123")
	assert.ErrorIs(s.T(), err, rep.ErrNotFound)
}

func (s *PostgresTestSuite) TestProjectAccess() {
	owner := s.seedUser("owner@example.com")
	member := s.seedUser("member@example.com")
	outsider := s.seedUser("outsider@example.com")

	project, _, _ := s.seedBoard(owner)

	ok, err := s.storage.HasProjectAccess(s.ctx, owner.ID, project.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), ok, "создатель имеет доступ")

	ok, err = s.storage.HasProjectAccess(s.ctx, outsider.ID, project.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), ok, "посторонний доступа не имеет")

	require.NoError(s.T(), s.storage.AddProjectMember(s.ctx, &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    member.ID,
		Role:      models.MemberMember,
	}))
	ok, err = s.storage.HasProjectAccess(s.ctx, member.ID, project.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), ok, "участник имеет доступ")

	require.NoError(s.T(), s.storage.RemoveProjectMember(s.ctx, project.ID, member.ID))
	ok, err = s.storage.HasProjectAccess(s.ctx, member.ID, project.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *PostgresTestSuite) TestColumnRefJoin() {
	owner := s.seedUser("owner@example.com")
	project, board, column := s.seedBoard(owner)

	ref, err := s.storage.GetColumnRef(s.ctx, column.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), project.ID, ref.ProjectID)
	assert.Equal(s.T(), board.ID, ref.BoardID)

	_, err = s.storage.GetColumnRef(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, rep.ErrNotFound)
}

func (s *PostgresTestSuite) TestTaskLifecycle() {
	owner := s.seedUser("owner@example.com")
	project, board, column := s.seedBoard(owner)

	task := s.seedTask(project, board, column, "Первая", 0)

	got, err := s.storage.GetTaskByID(s.ctx, task.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Первая", got.Title)

	newTitle := "Переименованная"
	done := models.StatusDone
	updated, err := s.storage.UpdateTask(s.ctx, task.ID, rep.TaskUpdate{
		Title:  &newTitle,
		Status: &done,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Переименованная", updated.Title)
	assert.Equal(s.T(), models.StatusDone, updated.Status)
	require.NotNil(s.T(), updated.UpdatedAt)

	// архивные не попадают в выдачу колонки
	require.NoError(s.T(), s.storage.ArchiveTask(s.ctx, task.ID, time.Now()))
	tasks, err := s.storage.GetColumnTasks(s.ctx, column.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), tasks)

	archived, err := s.storage.GetArchivedTasks(s.ctx, board.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), archived, 1)
	assert.True(s.T(), archived[0].IsArchived)
	require.NotNil(s.T(), archived[0].ArchivedAt)

	require.NoError(s.T(), s.storage.UnarchiveTask(s.ctx, task.ID))
	tasks, err = s.storage.GetColumnTasks(s.ctx, column.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), tasks, 1)

	require.NoError(s.T(), s.storage.DeleteTask(s.ctx, task.ID))
	_, err = s.storage.GetTaskByID(s.ctx, task.ID)
	assert.ErrorIs(s.T(), err, rep.ErrNotFound)
}

func (s *PostgresTestSuite) TestUpdateTaskPositionsAtomic() {
	owner := s.seedUser("owner@example.com")
	project, board, column := s.seedBoard(owner)

	st := models.StatusInProgress
	second := &models.Column{ID: uuid.New(), BoardID: board.ID, Title: "В работе", Position: 1, Status: &st}
	require.NoError(s.T(), s.storage.CreateColumn(s.ctx, second))

	a := s.seedTask(project, board, column, "А", 0)
	b := s.seedTask(project, board, column, "Б", 1)
	c := s.seedTask(project, board, column, "В", 2)

	require.NoError(s.T(), s.storage.UpdateTaskPositions(s.ctx, []rep.PositionUpdate{
		{TaskID: c.ID, Position: 0},
		{TaskID: a.ID, Position: 1},
		{TaskID: b.ID, Position: 0, ColumnID: &second.ID},
	}))

	tasks, err := s.storage.GetColumnTasks(s.ctx, column.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 2)
	assert.Equal(s.T(), c.ID, tasks[0].ID)
	assert.Equal(s.T(), a.ID, tasks[1].ID)

	moved, err := s.storage.GetColumnTasks(s.ctx, second.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), moved, 1)
	assert.Equal(s.T(), b.ID, moved[0].ID)

	// пакет с несуществующей задачей откатывается целиком
	err = s.storage.UpdateTaskPositions(s.ctx, []rep.PositionUpdate{
		{TaskID: a.ID, Position: 5},
		{TaskID: uuid.New(), Position: 0},
	})
	require.Error(s.T(), err)

	tasks, err = s.storage.GetColumnTasks(s.ctx, column.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, tasks[1].Position, "позиция не изменилась после отката")
}

// Гонка переносов одной задачи в разные колонки: выигрывает
// последняя запись, задача оказывается ровно в одной колонке.
func (s *PostgresTestSuite) TestConcurrentMovesLastWriteWins() {
	owner := s.seedUser("owner@example.com")
	project, board, column := s.seedBoard(owner)

	st := models.StatusDone
	done := &models.Column{ID: uuid.New(), BoardID: board.ID, Title: "Выполнено", Position: 1, Status: &st}
	require.NoError(s.T(), s.storage.CreateColumn(s.ctx, done))

	task := s.seedTask(project, board, column, "Спорная", 0)

	var wg sync.WaitGroup
	targets := []uuid.UUID{column.ID, done.ID, column.ID, done.ID}
	for _, target := range targets {
		wg.Add(1)
		go func(dest uuid.UUID) {
			defer wg.Done()
			pos := 0
			_, err := s.storage.UpdateTask(s.ctx, task.ID, rep.TaskUpdate{ColumnID: &dest, Position: &pos})
			assert.NoError(s.T(), err)
		}(target)
	}
	wg.Wait()

	got, err := s.storage.GetTaskByID(s.ctx, task.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), got.ColumnID)
	assert.Contains(s.T(), targets, *got.ColumnID)

	inSrc, err := s.storage.GetColumnTasks(s.ctx, column.ID)
	require.NoError(s.T(), err)
	inDone, err := s.storage.GetColumnTasks(s.ctx, done.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, len(inSrc)+len(inDone), "задача ровно в одной колонке")
}

func (s *PostgresTestSuite) TestAssigneesReplace() {
	owner := s.seedUser("owner@example.com")
	first := s.seedUser("first@example.com")
	second := s.seedUser("second@example.com")
	project, board, column := s.seedBoard(owner)
	task := s.seedTask(project, board, column, "С исполнителями", 0)

	require.NoError(s.T(), s.storage.ReplaceAssignees(s.ctx, task.ID, []uuid.UUID{first.ID, second.ID, first.ID}))
	assignees, err := s.storage.GetAssignees(s.ctx, task.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), assignees, 2, "дубликаты схлопываются")

	require.NoError(s.T(), s.storage.ReplaceAssignees(s.ctx, task.ID, []uuid.UUID{second.ID}))
	assignees, err = s.storage.GetAssignees(s.ctx, task.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), assignees, 1)
	assert.Equal(s.T(), second.ID, assignees[0].ID)
}

func (s *PostgresTestSuite) TestDeleteColumnDetachesTasks() {
	owner := s.seedUser("owner@example.com")
	project, board, column := s.seedBoard(owner)
	task := s.seedTask(project, board, column, "Сирота", 0)

	require.NoError(s.T(), s.storage.DeleteColumn(s.ctx, column.ID))

	got, err := s.storage.GetTaskByID(s.ctx, task.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), got.ColumnID)
	assert.Equal(s.T(), board.ID, got.BoardID)
}

func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("интеграционный тест пропускается в -short режиме")
	}
	suite.Run(t, new(PostgresTestSuite))
}
