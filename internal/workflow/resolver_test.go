package workflow_test

import (
	"testing"

	"taskboard/internal/models"
	"taskboard/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func col(title string) models.Column {
	return models.Column{ID: uuid.New(), BoardID: uuid.New(), Title: title}
}

func colWithStatus(title string, status models.Status) models.Column {
	c := col(title)
	c.Status = &status
	return c
}

func TestResolveStatus(t *testing.T) {
	tests := []struct {
		name     string
		column   models.Column
		expected models.Status
	}{
		{
			name:     "explicit status is authoritative",
			column:   colWithStatus("Выполнено", models.StatusReview),
			expected: models.StatusReview,
		},
		{
			name:     "done by russian keyword",
			column:   col("Выполнено"),
			expected: models.StatusDone,
		},
		{
			name:     "done by english keyword",
			column:   col("Done"),
			expected: models.StatusDone,
		},
		{
			name:     "done keyword surrounded by words",
			column:   col("Всё готово к релизу"),
			expected: models.StatusDone,
		},
		{
			name:     "todo column with done substring must not match done",
			column:   col("К выполнению"),
			expected: models.StatusTodo,
		},
		{
			name:     "review by russian stem",
			column:   col("На проверке"),
			expected: models.StatusReview,
		},
		{
			name:     "in progress by russian keyword",
			column:   col("В работе"),
			expected: models.StatusInProgress,
		},
		{
			name:     "in progress by english keyword",
			column:   col("In Progress"),
			expected: models.StatusInProgress,
		},
		{
			name:     "backlog",
			column:   col("Беклог"),
			expected: models.StatusBacklog,
		},
		{
			name:     "deferred by russian stem",
			column:   col("Отложено"),
			expected: models.StatusDeferred,
		},
		{
			name:     "deferred by english keyword",
			column:   col("Deferred items"),
			expected: models.StatusDeferred,
		},
		{
			name:     "unknown name defaults to todo",
			column:   col("Идеи"),
			expected: models.StatusTodo,
		},
		{
			name:     "empty name defaults to todo",
			column:   col(""),
			expected: models.StatusTodo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := workflow.ResolveStatus(tt.column)
			assert.Equal(t, tt.expected, got)

			// повторный вызов на тех же метаданных обязан дать тот же статус
			assert.Equal(t, got, workflow.ResolveStatus(tt.column))
		})
	}
}

func TestIsDoneColumn(t *testing.T) {
	assert.True(t, workflow.IsDoneColumn(col("Выполнено")))
	assert.True(t, workflow.IsDoneColumn(col("Завершено")))
	assert.True(t, workflow.IsDoneColumn(colWithStatus("Любое имя", models.StatusDone)))
	assert.False(t, workflow.IsDoneColumn(col("К выполнению")))
	assert.False(t, workflow.IsDoneColumn(col("В работе")))
}

func TestFindColumnForStatus(t *testing.T) {
	todo := col("К выполнению")
	progress := col("В работе")
	review := col("На проверке")
	done := col("Выполнено")
	cols := []models.Column{todo, progress, review, done}

	found := workflow.FindColumnForStatus(cols, models.StatusDone)
	if assert.NotNil(t, found) {
		assert.Equal(t, done.ID, found.ID)
	}

	found = workflow.FindColumnForStatus(cols, models.StatusReview)
	if assert.NotNil(t, found) {
		assert.Equal(t, review.ID, found.ID)
	}

	// "к выполнению" не должна подбираться как done-колонка
	found = workflow.FindColumnForStatus([]models.Column{todo, progress}, models.StatusDone)
	assert.Nil(t, found)
}
