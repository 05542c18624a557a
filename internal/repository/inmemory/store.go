package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
	repo "taskboard/internal/repository"
)

// Storage — хранилище в памяти с тем же контрактом, что и PostgreSQL-адаптер.
// Используется в тестах и как лёгкий бэкенд для локального запуска.
type Storage struct {
	mtx sync.RWMutex

	users       map[uuid.UUID]*models.User
	sessions    map[string]*models.Session
	projects    map[uuid.UUID]*models.Project
	members     map[uuid.UUID][]models.ProjectMember
	boards      map[uuid.UUID]*models.Board
	columns     map[uuid.UUID]*models.Column
	tasks       map[uuid.UUID]*models.Task
	assignees   map[uuid.UUID][]uuid.UUID
	comments    map[uuid.UUID]*models.Comment
	attachments map[uuid.UUID]*models.Attachment
}

func New() *Storage {
	return &Storage{
		users:       make(map[uuid.UUID]*models.User),
		sessions:    make(map[string]*models.Session),
		projects:    make(map[uuid.UUID]*models.Project),
		members:     make(map[uuid.UUID][]models.ProjectMember),
		boards:      make(map[uuid.UUID]*models.Board),
		columns:     make(map[uuid.UUID]*models.Column),
		tasks:       make(map[uuid.UUID]*models.Task),
		assignees:   make(map[uuid.UUID][]uuid.UUID),
		comments:    make(map[uuid.UUID]*models.Comment),
		attachments: make(map[uuid.UUID]*models.Attachment),
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error { return nil }

func (s *Storage) Close() {}

// ---- users & sessions ----

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return repo.ErrAlreadyExists
		}
	}
	user.CreatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Storage) SetUserApproval(ctx context.Context, id uuid.UUID, approval models.ApprovalStatus) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	now := time.Now()
	u.Approval = approval
	u.UpdatedAt = &now
	return nil
}

func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	session.CreatedAt = time.Now()
	cp := *session
	s.sessions[session.Token] = &cp
	return nil
}

func (s *Storage) GetSessionUser(ctx context.Context, token string) (*models.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	sess, ok := s.sessions[token]
	if !ok || sess.ExpiresAt.Before(time.Now()) {
		return nil, repo.ErrNotFound
	}
	u, ok := s.users[sess.UserID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.sessions, token)
	return nil
}

// ---- projects & members ----

func (s *Storage) CreateProject(ctx context.Context, project *models.Project) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	project.CreatedAt = time.Now()
	cp := *project
	s.projects[project.ID] = &cp
	return nil
}

func (s *Storage) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Storage) ListUserProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []models.Project{}
	for _, p := range s.projects {
		if p.CreatedBy == userID {
			res = append(res, *p)
			continue
		}
		for _, m := range s.members[p.ID] {
			if m.UserID == userID {
				res = append(res, *p)
				break
			}
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *Storage) UpdateProject(ctx context.Context, project *models.Project) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.projects[project.ID]
	if !ok {
		return repo.ErrNotFound
	}
	now := time.Now()
	project.CreatedAt = existing.CreatedAt
	project.UpdatedAt = &now
	cp := *project
	s.projects[project.ID] = &cp
	return nil
}

func (s *Storage) DeleteProject(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.projects[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.projects, id)
	delete(s.members, id)

	// каскад: доски, колонки и задачи проекта
	for bid, b := range s.boards {
		if b.ProjectID == id {
			delete(s.boards, bid)
		}
	}
	for cid, c := range s.columns {
		if _, ok := s.boards[c.BoardID]; !ok {
			delete(s.columns, cid)
		}
	}
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
			delete(s.assignees, tid)
		}
	}
	return nil
}

func (s *Storage) AddProjectMember(ctx context.Context, member *models.ProjectMember) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	member.JoinedAt = time.Now()
	list := s.members[member.ProjectID]
	for i, m := range list {
		if m.UserID == member.UserID {
			list[i].Role = member.Role
			return nil
		}
	}
	s.members[member.ProjectID] = append(list, *member)
	return nil
}

func (s *Storage) ListProjectMembers(ctx context.Context, projectID uuid.UUID) ([]models.ProjectMember, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]models.ProjectMember, len(s.members[projectID]))
	copy(res, s.members[projectID])
	return res, nil
}

func (s *Storage) RemoveProjectMember(ctx context.Context, projectID, userID uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	list := s.members[projectID]
	for i, m := range list {
		if m.UserID == userID {
			s.members[projectID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (s *Storage) HasProjectAccess(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	p, ok := s.projects[projectID]
	if !ok {
		return false, nil
	}
	if p.CreatedBy == userID {
		return true, nil
	}
	for _, m := range s.members[projectID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// ---- boards & columns ----

func (s *Storage) CreateBoard(ctx context.Context, board *models.Board) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	board.CreatedAt = time.Now()
	cp := *board
	s.boards[board.ID] = &cp
	return nil
}

func (s *Storage) GetBoardByID(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	b, ok := s.boards[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Storage) ListProjectBoards(ctx context.Context, projectID uuid.UUID) ([]models.Board, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []models.Board{}
	for _, b := range s.boards {
		if b.ProjectID == projectID {
			res = append(res, *b)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *Storage) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.boards[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.boards, id)
	for cid, c := range s.columns {
		if c.BoardID == id {
			delete(s.columns, cid)
		}
	}
	for tid, t := range s.tasks {
		if t.BoardID == id {
			delete(s.tasks, tid)
			delete(s.assignees, tid)
		}
	}
	return nil
}

func (s *Storage) CreateColumn(ctx context.Context, column *models.Column) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	column.CreatedAt = time.Now()
	cp := *column
	s.columns[column.ID] = &cp
	return nil
}

func (s *Storage) GetColumnByID(ctx context.Context, id uuid.UUID) (*models.Column, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	c, ok := s.columns[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Storage) ListBoardColumns(ctx context.Context, boardID uuid.UUID) ([]models.Column, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []models.Column{}
	for _, c := range s.columns {
		if c.BoardID == boardID {
			res = append(res, *c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Position != res[j].Position {
			return res[i].Position < res[j].Position
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (s *Storage) ListAllColumns(ctx context.Context) ([]models.Column, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []models.Column{}
	for _, c := range s.columns {
		res = append(res, *c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *Storage) UpdateColumn(ctx context.Context, column *models.Column) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.columns[column.ID]
	if !ok {
		return repo.ErrNotFound
	}
	now := time.Now()
	column.CreatedAt = existing.CreatedAt
	column.UpdatedAt = &now
	cp := *column
	s.columns[column.ID] = &cp
	return nil
}

func (s *Storage) DeleteColumn(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.columns[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.columns, id)

	// задачи колонки не удаляются, column_id сбрасывается
	for _, t := range s.tasks {
		if t.ColumnID != nil && *t.ColumnID == id {
			t.ColumnID = nil
		}
	}
	return nil
}

func (s *Storage) GetColumnRef(ctx context.Context, columnID uuid.UUID) (*repo.ColumnRef, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	c, ok := s.columns[columnID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	b, ok := s.boards[c.BoardID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &repo.ColumnRef{ProjectID: b.ProjectID, BoardID: b.ID}, nil
}

// ---- tasks ----

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Storage) GetColumnTasks(ctx context.Context, columnID uuid.UUID) ([]models.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []models.Task{}
	for _, t := range s.tasks {
		if t.ColumnID != nil && *t.ColumnID == columnID && !t.IsArchived {
			res = append(res, *t)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Position != res[j].Position {
			return res[i].Position < res[j].Position
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (s *Storage) GetArchivedTasks(ctx context.Context, boardID uuid.UUID) ([]models.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []models.Task{}
	for _, t := range s.tasks {
		if t.BoardID == boardID && t.IsArchived {
			res = append(res, *t)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		ti, tj := res[i].ArchivedAt, res[j].ArchivedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	return res, nil
}

func (s *Storage) UpdateTask(ctx context.Context, id uuid.UUID, upd repo.TaskUpdate) (*models.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}

	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.ColumnID != nil {
		cid := *upd.ColumnID
		t.ColumnID = &cid
	}
	if upd.Position != nil {
		t.Position = *upd.Position
	}
	if upd.DueDate != nil {
		d := *upd.DueDate
		t.DueDate = &d
	}
	if upd.IsArchived != nil {
		t.IsArchived = *upd.IsArchived
	}
	if upd.ArchivedAt != nil {
		a := *upd.ArchivedAt
		t.ArchivedAt = &a
	}

	now := time.Now()
	t.UpdatedAt = &now
	cp := *t
	return &cp, nil
}

func (s *Storage) ArchiveTask(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return repo.ErrNotFound
	}
	now := time.Now()
	t.IsArchived = true
	t.ArchivedAt = &at
	t.UpdatedAt = &now
	return nil
}

func (s *Storage) UnarchiveTask(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return repo.ErrNotFound
	}
	now := time.Now()
	t.IsArchived = false
	t.ArchivedAt = nil
	t.UpdatedAt = &now
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.tasks, id)
	delete(s.assignees, id)
	return nil
}

func (s *Storage) UpdateTaskPositions(ctx context.Context, moves []repo.PositionUpdate) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	// атомарность пакета: сначала проверяем, затем применяем
	for _, m := range moves {
		if _, ok := s.tasks[m.TaskID]; !ok {
			return repo.ErrNotFound
		}
	}
	now := time.Now()
	for _, m := range moves {
		t := s.tasks[m.TaskID]
		t.Position = m.Position
		if m.ColumnID != nil {
			cid := *m.ColumnID
			t.ColumnID = &cid
		}
		t.UpdatedAt = &now
	}
	return nil
}

func (s *Storage) ReplaceAssignees(ctx context.Context, taskID uuid.UUID, userIDs []uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	seen := map[uuid.UUID]struct{}{}
	res := []uuid.UUID{}
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	s.assignees[taskID] = res
	return nil
}

func (s *Storage) GetAssignees(ctx context.Context, taskID uuid.UUID) ([]models.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []models.User{}
	for _, uid := range s.assignees[taskID] {
		if u, ok := s.users[uid]; ok {
			res = append(res, *u)
		}
	}
	return res, nil
}

// ---- comments & attachments ----

func (s *Storage) CreateComment(ctx context.Context, comment *models.Comment) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	comment.CreatedAt = time.Now()
	cp := *comment
	s.comments[comment.ID] = &cp
	return nil
}

func (s *Storage) ListTaskComments(ctx context.Context, taskID uuid.UUID) ([]models.Comment, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []models.Comment{}
	for _, c := range s.comments {
		if c.TaskID == taskID {
			res = append(res, *c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *Storage) DeleteComment(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.comments[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *Storage) CreateAttachment(ctx context.Context, att *models.Attachment) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	att.CreatedAt = time.Now()
	cp := *att
	s.attachments[att.ID] = &cp
	return nil
}

func (s *Storage) ListTaskAttachments(ctx context.Context, taskID uuid.UUID) ([]models.Attachment, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []models.Attachment{}
	for _, a := range s.attachments {
		if a.TaskID == taskID {
			res = append(res, *a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *Storage) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.attachments[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.attachments, id)
	return nil
}
