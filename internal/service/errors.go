package service

import "fmt"

// Resource — тип сущности для сообщений об ошибках.
type Resource string

const (
	ResourceUser       Resource = "пользователь"
	ResourceProject    Resource = "проект"
	ResourceBoard      Resource = "доска"
	ResourceColumn     Resource = "колонка"
	ResourceTask       Resource = "задача"
	ResourceComment    Resource = "комментарий"
	ResourceAttachment Resource = "вложение"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}
	return busErr
}

func NewNotFound(resource Resource, id string) *BusinessError {
	return &BusinessError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewUnauthorized(reason string) *BusinessError {
	return &BusinessError{
		Code:    "UNAUTHORIZED",
		Message: reason,
		Details: map[string]any{},
	}
}

func NewForbidden(resource Resource, id string) *BusinessError {
	return &BusinessError{
		Code:    "FORBIDDEN",
		Message: fmt.Sprintf("нет доступа: %s %s", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewConflict(reason string) *BusinessError {
	return &BusinessError{
		Code:    "CONFLICT",
		Message: reason,
		Details: map[string]any{},
	}
}

func NewInternal(err error) *BusinessError {
	return &BusinessError{
		Code:    "INTERNAL",
		Message: "внутренняя ошибка сервера",
		Details: map[string]any{},
		Err:     err,
	}
}
