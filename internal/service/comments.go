package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

const maxCommentLen = 5000

func (s *Service) AddComment(ctx context.Context, userID, taskID uuid.UUID, body string, parentID *uuid.UUID) (*models.Comment, error) {
	if body == "" {
		return nil, NewValidationError("body", "обязательное поле")
	}
	if len([]rune(body)) > maxCommentLen {
		return nil, NewValidationError("body", fmt.Sprintf("длиннее %d символов", maxCommentLen))
	}
	if _, err := s.ensureTaskAccess(ctx, userID, taskID); err != nil {
		return nil, err
	}

	// ответы допускаются только на комментарии верхнего уровня
	if parentID != nil {
		parents, err := s.repo.ListTaskComments(ctx, taskID)
		if err != nil {
			return nil, NewInternal(err)
		}
		found := false
		for _, c := range parents {
			if c.ID == *parentID {
				if c.ParentID != nil {
					return nil, NewValidationError("parentId", "ответ на ответ не поддерживается")
				}
				found = true
				break
			}
		}
		if !found {
			return nil, NewNotFound(ResourceComment, parentID.String())
		}
	}

	comment := &models.Comment{
		ID:       uuid.New(),
		TaskID:   taskID,
		AuthorID: userID,
		ParentID: parentID,
		Body:     body,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, NewInternal(fmt.Errorf("создание комментария: %w", err))
	}
	return comment, nil
}

func (s *Service) ListComments(ctx context.Context, userID, taskID uuid.UUID) ([]models.Comment, error) {
	if _, err := s.ensureTaskAccess(ctx, userID, taskID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListTaskComments(ctx, taskID)
	if err != nil {
		return nil, NewInternal(err)
	}
	return comments, nil
}

func (s *Service) DeleteComment(ctx context.Context, userID, taskID, commentID uuid.UUID) error {
	if _, err := s.ensureTaskAccess(ctx, userID, taskID); err != nil {
		return err
	}
	if err := s.repo.DeleteComment(ctx, commentID); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceComment, commentID.String())
		}
		return NewInternal(err)
	}
	return nil
}

func (s *Service) AddAttachment(ctx context.Context, userID, taskID uuid.UUID, fileName, mimeType string, fileSize int64) (*models.Attachment, error) {
	if fileName == "" {
		return nil, NewValidationError("fileName", "обязательное поле")
	}
	if fileSize < 0 {
		return nil, NewValidationError("fileSize", "не может быть отрицательным")
	}
	if _, err := s.ensureTaskAccess(ctx, userID, taskID); err != nil {
		return nil, err
	}

	att := &models.Attachment{
		ID:         uuid.New(),
		TaskID:     taskID,
		UploadedBy: userID,
		FileName:   fileName,
		FileSize:   fileSize,
		MimeType:   mimeType,
	}
	if err := s.repo.CreateAttachment(ctx, att); err != nil {
		return nil, NewInternal(fmt.Errorf("создание вложения: %w", err))
	}
	return att, nil
}

func (s *Service) ListAttachments(ctx context.Context, userID, taskID uuid.UUID) ([]models.Attachment, error) {
	if _, err := s.ensureTaskAccess(ctx, userID, taskID); err != nil {
		return nil, err
	}
	atts, err := s.repo.ListTaskAttachments(ctx, taskID)
	if err != nil {
		return nil, NewInternal(err)
	}
	return atts, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, userID, taskID, attachmentID uuid.UUID) error {
	if _, err := s.ensureTaskAccess(ctx, userID, taskID); err != nil {
		return err
	}
	if err := s.repo.DeleteAttachment(ctx, attachmentID); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceAttachment, attachmentID.String())
		}
		return NewInternal(err)
	}
	return nil
}
