package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
	"taskboard/internal/repository/inmemory"
	"taskboard/internal/workflow"
)

// countingRepo считает вызовы ArchiveTask поверх inmemory-хранилища.
type countingRepo struct {
	*inmemory.Storage

	mtx      sync.Mutex
	archived map[uuid.UUID]int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{
		Storage:  inmemory.New(),
		archived: make(map[uuid.UUID]int),
	}
}

func (r *countingRepo) ArchiveTask(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mtx.Lock()
	r.archived[id]++
	r.mtx.Unlock()
	return r.Storage.ArchiveTask(ctx, id, at)
}

func (r *countingRepo) CountArchived() map[uuid.UUID]int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	out := make(map[uuid.UUID]int, len(r.archived))
	for id, n := range r.archived {
		out[id] = n
	}
	return out
}

type fixture struct {
	repo    *countingRepo
	svc     *Service
	owner   *models.User
	project *models.Project
	board   *models.Board
	columns map[models.Status]*models.Column
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := newCountingRepo()
	svc := New(repo, workflow.DoneLimit)

	owner, err := svc.Register(ctx, "owner@example.com", "Владелец", "секретный-пароль")
	require.NoError(t, err)
	require.NoError(t, repo.SetUserApproval(ctx, owner.ID, models.ApprovalApproved))

	project, err := svc.CreateProject(ctx, owner.ID, CreateProjectInput{Name: "Запуск"})
	require.NoError(t, err)

	boards, err := svc.ListBoards(ctx, owner.ID, project.ID)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	board := &boards[0]

	cols, err := svc.ListColumns(ctx, owner.ID, board.ID)
	require.NoError(t, err)
	require.Len(t, cols, 4)

	byStatus := make(map[models.Status]*models.Column)
	for i := range cols {
		require.NotNil(t, cols[i].Status)
		byStatus[*cols[i].Status] = &cols[i]
	}

	return &fixture{
		repo:    repo,
		svc:     svc,
		owner:   owner,
		project: project,
		board:   board,
		columns: byStatus,
	}
}

func (f *fixture) mustCreateTask(t *testing.T, columnID uuid.UUID, title string) *models.Task {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), f.owner.ID, columnID, CreateTaskInput{Title: title})
	require.NoError(t, err)
	return task
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// до одобрения вход закрыт
	pending, err := f.svc.Register(ctx, "new@example.com", "Новичок", "парольпароль")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, pending.Approval)

	_, _, err = f.svc.Login(ctx, "new@example.com", "парольпароль")
	var busErr *BusinessError
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, "FORBIDDEN", busErr.Code)

	require.NoError(t, f.repo.SetUserApproval(ctx, pending.ID, models.ApprovalApproved))
	session, user, err := f.svc.Login(ctx, "new@example.com", "парольпароль")
	require.NoError(t, err)
	assert.Equal(t, pending.ID, user.ID)
	assert.NotEmpty(t, session.Token)

	got, err := f.svc.VerifySession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)

	// неверный пароль не раскрывает существование пользователя
	_, _, err = f.svc.Login(ctx, "new@example.com", "не-тот-пароль")
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, "UNAUTHORIZED", busErr.Code)
}

func TestCreateTask_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	todo := f.columns[models.StatusTodo]

	var busErr *BusinessError

	_, err := f.svc.CreateTask(ctx, f.owner.ID, todo.ID, CreateTaskInput{Title: ""})
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, "VALIDATION_ERROR", busErr.Code)

	long := make([]rune, 501)
	for i := range long {
		long[i] = 'я'
	}
	_, err = f.svc.CreateTask(ctx, f.owner.ID, todo.ID, CreateTaskInput{Title: string(long)})
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, "VALIDATION_ERROR", busErr.Code)

	task := f.mustCreateTask(t, todo.ID, "Обычная задача")
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, 0, task.Position)
}

func TestCreateTask_StatusFollowsColumn(t *testing.T) {
	f := newFixture(t)

	task := f.mustCreateTask(t, f.columns[models.StatusReview].ID, "На ревью")
	assert.Equal(t, models.StatusReview, task.Status)

	task = f.mustCreateTask(t, f.columns[models.StatusInProgress].ID, "В работе")
	assert.Equal(t, models.StatusInProgress, task.Status)
}

func TestForbiddenBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	outsider, err := f.svc.Register(ctx, "outsider@example.com", "Чужой", "парольпароль")
	require.NoError(t, err)
	require.NoError(t, f.repo.SetUserApproval(ctx, outsider.ID, models.ApprovalApproved))

	todo := f.columns[models.StatusTodo]
	task := f.mustCreateTask(t, todo.ID, "Приватная задача")

	var busErr *BusinessError

	_, err = f.svc.CreateTask(ctx, outsider.ID, todo.ID, CreateTaskInput{Title: "Вторжение"})
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, "FORBIDDEN", busErr.Code)

	_, err = f.svc.UpdateTask(ctx, outsider.ID, task.ID, UpdateTaskInput{Title: strPtr("Переименовано")})
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, "FORBIDDEN", busErr.Code)

	err = f.svc.DeleteTask(ctx, outsider.ID, task.ID)
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, "FORBIDDEN", busErr.Code)

	// задача не изменилась
	got, err := f.svc.GetTask(ctx, f.owner.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Приватная задача", got.Title)

	// участник проекта доступ получает
	require.NoError(t, f.svc.AddMember(ctx, f.owner.ID, f.project.ID, outsider.ID, models.MemberMember))
	_, err = f.svc.GetTask(ctx, outsider.ID, task.ID)
	require.NoError(t, err)
}

func TestUpdateTask_MoveDerivesStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task := f.mustCreateTask(t, f.columns[models.StatusTodo].ID, "Переносимая")
	done := f.columns[models.StatusDone]

	updated, err := f.svc.UpdateTask(ctx, f.owner.ID, task.ID, UpdateTaskInput{ColumnID: &done.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, updated.Status)
	require.NotNil(t, updated.ColumnID)
	assert.Equal(t, done.ID, *updated.ColumnID)
}

func TestUpdateTask_StatusOnlyFindsSynonymColumn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task := f.mustCreateTask(t, f.columns[models.StatusTodo].ID, "Статус без колонки")
	done := models.StatusDone

	updated, err := f.svc.UpdateTask(ctx, f.owner.ID, task.ID, UpdateTaskInput{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, updated.Status)
	require.NotNil(t, updated.ColumnID)
	assert.Equal(t, f.columns[models.StatusDone].ID, *updated.ColumnID)
}

func TestToggleComplete_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task := f.mustCreateTask(t, f.columns[models.StatusTodo].ID, "Переключаемая")

	updated, err := f.svc.ToggleComplete(ctx, f.owner.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, updated.Status)
	require.NotNil(t, updated.ColumnID)
	assert.Equal(t, f.columns[models.StatusDone].ID, *updated.ColumnID)

	updated, err = f.svc.ToggleComplete(ctx, f.owner.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReview, updated.Status)
	require.NotNil(t, updated.ColumnID)
	assert.Equal(t, f.columns[models.StatusReview].ID, *updated.ColumnID)
}

// Переключение в заполненную до лимита колонку "Выполнено":
// старейшая задача уходит в архив, переключённая остаётся видимой.
func TestToggleComplete_IntoFullDoneColumn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	done := f.columns[models.StatusDone]

	oldest := f.mustCreateTask(t, done.ID, "Завершённая 0")
	for i := 1; i < workflow.DoneLimit; i++ {
		f.mustCreateTask(t, done.ID, fmt.Sprintf("Завершённая %d", i))
	}

	toggled := f.mustCreateTask(t, f.columns[models.StatusTodo].ID, "Переключаемая")
	updated, err := f.svc.ToggleComplete(ctx, f.owner.ID, toggled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, updated.Status)

	visible, err := f.svc.ListColumnTasks(ctx, f.owner.ID, done.ID)
	require.NoError(t, err)
	require.Len(t, visible, workflow.DoneLimit)

	visibleIDs := make(map[uuid.UUID]bool, len(visible))
	for _, task := range visible {
		visibleIDs[task.ID] = true
	}
	assert.True(t, visibleIDs[toggled.ID], "переключённая задача видима")
	assert.False(t, visibleIDs[oldest.ID], "старейшая ушла в архив")

	archived, err := f.svc.ListArchivedTasks(ctx, f.owner.ID, f.board.ID)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, oldest.ID, archived[0].ID)

	counts := f.repo.CountArchived()
	assert.Equal(t, 1, counts[oldest.ID])
	assert.Len(t, counts, 1)
}

func TestDoneLimit_ListingArchivesOverflowOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	done := f.columns[models.StatusDone]

	ids := make([]uuid.UUID, 0, workflow.DoneLimit+2)
	for i := 0; i < workflow.DoneLimit+2; i++ {
		task := f.mustCreateTask(t, done.ID, fmt.Sprintf("Завершённая %d", i))
		ids = append(ids, task.ID)
		// создание в "выполнено" сразу применяет лимит, поэтому
		// после девятой задачи две старейшие уже в архиве
	}

	visible, err := f.svc.ListColumnTasks(ctx, f.owner.ID, done.ID)
	require.NoError(t, err)
	assert.Len(t, visible, workflow.DoneLimit)

	archived, err := f.svc.ListArchivedTasks(ctx, f.owner.ID, f.board.ID)
	require.NoError(t, err)
	assert.Len(t, archived, 2)

	// каждая перелимитная задача ушла в архив ровно одним вызовом
	for id, n := range f.repo.CountArchived() {
		assert.Equalf(t, 1, n, "задача %s архивирована %d раз", id, n)
	}
	_ = ids
}

func TestDoneLimit_RepeatedListingIsStable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	done := f.columns[models.StatusDone]

	for i := 0; i < workflow.DoneLimit+3; i++ {
		f.mustCreateTask(t, done.ID, fmt.Sprintf("Задача %d", i))
	}

	first, err := f.svc.ListColumnTasks(ctx, f.owner.ID, done.ID)
	require.NoError(t, err)
	second, err := f.svc.ListColumnTasks(ctx, f.owner.ID, done.ID)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	for _, n := range f.repo.CountArchived() {
		assert.Equal(t, 1, n)
	}
}

func TestUnarchiveTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	done := f.columns[models.StatusDone]

	for i := 0; i < workflow.DoneLimit+1; i++ {
		f.mustCreateTask(t, done.ID, fmt.Sprintf("Задача %d", i))
	}
	archived, err := f.svc.ListArchivedTasks(ctx, f.owner.ID, f.board.ID)
	require.NoError(t, err)
	require.NotEmpty(t, archived)

	restored, err := f.svc.UnarchiveTask(ctx, f.owner.ID, archived[0].ID)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)
	assert.Nil(t, restored.ArchivedAt)
}

func TestReorderTasks_Batch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	todo := f.columns[models.StatusTodo]
	progress := f.columns[models.StatusInProgress]

	a := f.mustCreateTask(t, todo.ID, "Первая")
	b := f.mustCreateTask(t, todo.ID, "Вторая")
	c := f.mustCreateTask(t, todo.ID, "Третья")

	err := f.svc.ReorderTasks(ctx, f.owner.ID, []TaskPosition{
		{TaskID: c.ID, Position: 0},
		{TaskID: a.ID, Position: 1},
		{TaskID: b.ID, Position: 0, ColumnID: &progress.ID},
	})
	require.NoError(t, err)

	todoTasks, err := f.svc.ListColumnTasks(ctx, f.owner.ID, todo.ID)
	require.NoError(t, err)
	require.Len(t, todoTasks, 2)
	assert.Equal(t, c.ID, todoTasks[0].ID)
	assert.Equal(t, a.ID, todoTasks[1].ID)

	progressTasks, err := f.svc.ListColumnTasks(ctx, f.owner.ID, progress.ID)
	require.NoError(t, err)
	require.Len(t, progressTasks, 1)
	assert.Equal(t, b.ID, progressTasks[0].ID)
	assert.Equal(t, models.StatusTodo, progressTasks[0].Status) // перестановка статус не трогает
}

func TestComments_OneLevelReplies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task := f.mustCreateTask(t, f.columns[models.StatusTodo].ID, "С обсуждением")

	root, err := f.svc.AddComment(ctx, f.owner.ID, task.ID, "Первый!", nil)
	require.NoError(t, err)

	reply, err := f.svc.AddComment(ctx, f.owner.ID, task.ID, "Ответ", &root.ID)
	require.NoError(t, err)

	var busErr *BusinessError
	_, err = f.svc.AddComment(ctx, f.owner.ID, task.ID, "Ответ на ответ", &reply.ID)
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, "VALIDATION_ERROR", busErr.Code)

	comments, err := f.svc.ListComments(ctx, f.owner.ID, task.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}

func TestDeleteColumn_TasksSurvive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	todo := f.columns[models.StatusTodo]

	task := f.mustCreateTask(t, todo.ID, "Сирота")
	require.NoError(t, f.svc.DeleteColumn(ctx, f.owner.ID, todo.ID))

	got, err := f.svc.GetTask(ctx, f.owner.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ColumnID)
}

func strPtr(s string) *string { return &s }
