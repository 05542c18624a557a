package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

func (s *Service) CreateBoard(ctx context.Context, userID, projectID uuid.UUID, name string) (*models.Board, error) {
	if name == "" {
		return nil, NewValidationError("name", "обязательное поле")
	}
	if err := s.ensureProjectAccess(ctx, userID, projectID); err != nil {
		return nil, err
	}
	board := &models.Board{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
	}
	if err := s.repo.CreateBoard(ctx, board); err != nil {
		return nil, NewInternal(fmt.Errorf("создание доски: %w", err))
	}
	return board, nil
}

func (s *Service) ListBoards(ctx context.Context, userID, projectID uuid.UUID) ([]models.Board, error) {
	if err := s.ensureProjectAccess(ctx, userID, projectID); err != nil {
		return nil, err
	}
	boards, err := s.repo.ListProjectBoards(ctx, projectID)
	if err != nil {
		return nil, NewInternal(err)
	}
	return boards, nil
}

func (s *Service) GetBoard(ctx context.Context, userID, boardID uuid.UUID) (*models.Board, error) {
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
	return board, nil
}

func (s *Service) DeleteBoard(ctx context.Context, userID, boardID uuid.UUID) error {
	board, err := s.repo.GetBoardByID(ctx, boardID)
	if err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceBoard, boardID.String())
		}
		return NewInternal(err)
	}
	if err := s.ensureProjectAccess(ctx, userID, board.ProjectID); err != nil {
		return err
	}
	if board.IsDefault {
		return NewConflict("доска по умолчанию не удаляется")
	}
	if err := s.repo.DeleteBoard(ctx, boardID); err != nil {
		return NewInternal(err)
	}
	return nil
}

type CreateColumnInput struct {
	Title  string
	Status *models.Status
	Color  string
}

func (s *Service) CreateColumn(ctx context.Context, userID, boardID uuid.UUID, in CreateColumnInput) (*models.Column, error) {
	if in.Title == "" {
		return nil, NewValidationError("title", "обязательное поле")
	}
	if in.Status != nil && !isValidStatus(*in.Status) {
		return nil, NewValidationError("status", fmt.Sprintf("недопустимое значение '%s'", *in.Status))
	}
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
	existing, err := s.repo.ListBoardColumns(ctx, boardID)
	if err != nil {
		return nil, NewInternal(err)
	}

	column := &models.Column{
		ID:       uuid.New(),
		BoardID:  boardID,
		Title:    in.Title,
		Position: len(existing),
		Status:   in.Status,
		Color:    in.Color,
	}
	if err := s.repo.CreateColumn(ctx, column); err != nil {
		return nil, NewInternal(fmt.Errorf("создание колонки: %w", err))
	}
	return column, nil
}

func (s *Service) ListColumns(ctx context.Context, userID, boardID uuid.UUID) ([]models.Column, error) {
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
	columns, err := s.repo.ListBoardColumns(ctx, boardID)
	if err != nil {
		return nil, NewInternal(err)
	}
	return columns, nil
}

type UpdateColumnInput struct {
	Title    *string
	Status   *models.Status
	Color    *string
	Position *int
}

func (s *Service) UpdateColumn(ctx context.Context, userID, columnID uuid.UUID, in UpdateColumnInput) (*models.Column, error) {
	if in.Title != nil && *in.Title == "" {
		return nil, NewValidationError("title", "обязательное поле")
	}
	if in.Status != nil && !isValidStatus(*in.Status) {
		return nil, NewValidationError("status", fmt.Sprintf("недопустимое значение '%s'", *in.Status))
	}
	if _, err := s.ensureColumnAccess(ctx, userID, columnID); err != nil {
		return nil, err
	}
	column, err := s.repo.GetColumnByID(ctx, columnID)
	if err != nil {
		return nil, NewInternal(err)
	}
	if in.Title != nil {
		column.Title = *in.Title
	}
	if in.Status != nil {
		column.Status = in.Status
	}
	if in.Color != nil {
		column.Color = *in.Color
	}
	if in.Position != nil {
		column.Position = *in.Position
	}
	if err := s.repo.UpdateColumn(ctx, column); err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceColumn, columnID.String())
		}
		return nil, NewInternal(err)
	}
	return column, nil
}

// DeleteColumn убирает колонку, задачи остаются без колонки.
func (s *Service) DeleteColumn(ctx context.Context, userID, columnID uuid.UUID) error {
	if _, err := s.ensureColumnAccess(ctx, userID, columnID); err != nil {
		return err
	}
	if err := s.repo.DeleteColumn(ctx, columnID); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceColumn, columnID.String())
		}
		return NewInternal(err)
	}
	return nil
}
