package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/logger"
	"taskboard/internal/models"
	rep "taskboard/internal/repository"
)

const sessionTTL = 7 * 24 * time.Hour

// Register создаёт пользователя со статусом "ожидает подтверждения".
// Войти он сможет только после одобрения администратором.
func (s *Service) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, NewValidationError("email", "некорректный адрес")
	}
	if name == "" {
		return nil, NewValidationError("name", "обязательное поле")
	}
	if len(password) < 8 {
		return nil, NewValidationError("password", "минимум 8 символов")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewInternal(fmt.Errorf("хеширование пароля: %w", err))
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Approval:     models.ApprovalPending,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if err == rep.ErrAlreadyExists {
			return nil, NewConflict("пользователь с таким email уже существует")
		}
		return nil, NewInternal(fmt.Errorf("создание пользователя: %w", err))
	}

	logger.Info("Service: пользователь зарегистрирован", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login проверяет пароль и выдаёт токен сессии.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, NewUnauthorized("неверный email или пароль")
		}
		return nil, nil, NewInternal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, NewUnauthorized("неверный email или пароль")
	}
	if user.Approval != models.ApprovalApproved {
		return nil, nil, NewBusinessError("FORBIDDEN", "учётная запись не подтверждена администратором")
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, nil, NewInternal(err)
	}
	session := &models.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, nil, NewInternal(fmt.Errorf("создание сессии: %w", err))
	}
	return session, user, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		return NewInternal(err)
	}
	return nil
}

// VerifySession возвращает пользователя по действующему токену.
// Используется middleware аутентификации.
func (s *Service) VerifySession(ctx context.Context, token string) (*models.User, error) {
	user, err := s.repo.GetSessionUser(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return nil, NewUnauthorized("сессия не найдена или истекла")
		}
		return nil, NewInternal(err)
	}
	return user, nil
}

// ApproveUser меняет статус подтверждения. Доступно только администратору.
func (s *Service) ApproveUser(ctx context.Context, adminID, userID uuid.UUID, approval models.ApprovalStatus) error {
	admin, err := s.repo.GetUserByID(ctx, adminID)
	if err != nil {
		return NewInternal(err)
	}
	if admin.Role != models.RoleAdmin {
		return NewForbidden(ResourceUser, userID.String())
	}
	if approval != models.ApprovalApproved && approval != models.ApprovalRejected {
		return NewValidationError("approval_status", "допустимы только approved и rejected")
	}
	if err := s.repo.SetUserApproval(ctx, userID, approval); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceUser, userID.String())
		}
		return NewInternal(err)
	}
	logger.Info("Service: статус подтверждения изменён",
		zap.String("user_id", userID.String()),
		zap.String("approval", string(approval)))
	return nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("генерация токена: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
