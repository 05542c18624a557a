package workflow_test

import (
	"testing"
	"time"

	"taskboard/internal/models"
	"taskboard/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskAt(title string, updated time.Time) models.Task {
	u := updated
	return models.Task{
		ID:        uuid.New(),
		Title:     title,
		Status:    models.StatusDone,
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: &u,
	}
}

func TestEnforceDoneLimit_UnderLimit(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tasks := []models.Task{}
	for i := 0; i < 7; i++ {
		tasks = append(tasks, taskAt("task", base.Add(time.Duration(i)*time.Minute)))
	}

	visible, archived := workflow.EnforceDoneLimit(tasks, workflow.DoneLimit)
	assert.Len(t, visible, 7)
	assert.Empty(t, archived)
}

// Колонка с 8 задачами и возрастающими updated_at: архивируется ровно
// самая старая, остальные семь остаются видимыми.
func TestEnforceDoneLimit_OldestArchivedFirst(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tasks := []models.Task{}
	for i := 1; i <= 8; i++ {
		tasks = append(tasks, taskAt("task", base.Add(time.Duration(i)*time.Minute)))
	}

	visible, archived := workflow.EnforceDoneLimit(tasks, workflow.DoneLimit)
	require.Len(t, archived, 1)
	require.Len(t, visible, 7)
	assert.Equal(t, tasks[0].ID, archived[0].ID)
	for _, v := range visible {
		assert.NotEqual(t, tasks[0].ID, v.ID)
	}
}

func TestEnforceDoneLimit_Invariants(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, n := range []int{0, 1, 7, 8, 9, 20} {
		tasks := []models.Task{}
		for i := 0; i < n; i++ {
			tasks = append(tasks, taskAt("task", base.Add(time.Duration(i)*time.Second)))
		}

		visible, archived := workflow.EnforceDoneLimit(tasks, workflow.DoneLimit)

		expectedVisible := n
		if expectedVisible > workflow.DoneLimit {
			expectedVisible = workflow.DoneLimit
		}
		assert.Len(t, visible, expectedVisible, "n=%d", n)
		assert.Equal(t, n, len(visible)+len(archived), "n=%d", n)

		// каждая заархивированная задача не новее любой видимой
		for _, a := range archived {
			for _, v := range visible {
				assert.False(t, a.ActivityTime().After(v.ActivityTime()), "n=%d", n)
			}
		}
	}
}

func TestEnforceDoneLimit_TieBreakIsDeterministic(t *testing.T) {
	same := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tasks := []models.Task{}
	for i := 0; i < 10; i++ {
		tasks = append(tasks, taskAt("tied", same))
	}

	_, first := workflow.EnforceDoneLimit(tasks, workflow.DoneLimit)
	require.Len(t, first, 3)

	for run := 0; run < 5; run++ {
		_, again := workflow.EnforceDoneLimit(tasks, workflow.DoneLimit)
		require.Len(t, again, 3)
		for i := range first {
			assert.Equal(t, first[i].ID, again[i].ID)
		}
	}
}

// Отсутствие меток времени не роняет лимитер: задачи без updated_at и
// created_at считаются активными "сейчас" и остаются видимыми.
func TestEnforceDoneLimit_MissingTimestamps(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tasks := []models.Task{}
	for i := 0; i < 8; i++ {
		tasks = append(tasks, taskAt("task", base.Add(time.Duration(i)*time.Minute)))
	}
	noTimes := models.Task{ID: uuid.New(), Title: "no timestamps", Status: models.StatusDone}
	tasks = append(tasks, noTimes)

	visible, archived := workflow.EnforceDoneLimit(tasks, workflow.DoneLimit)
	assert.Len(t, visible, 7)
	assert.Len(t, archived, 2)

	for _, a := range archived {
		assert.NotEqual(t, noTimes.ID, a.ID)
	}
}

func TestEnforceDoneLimit_PreservesInputOrder(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// позиционный порядок не совпадает с порядком активности
	tasks := []models.Task{
		taskAt("a", base.Add(5*time.Minute)),
		taskAt("b", base.Add(1*time.Minute)),
		taskAt("c", base.Add(8*time.Minute)),
		taskAt("d", base.Add(2*time.Minute)),
		taskAt("e", base.Add(7*time.Minute)),
		taskAt("f", base.Add(3*time.Minute)),
		taskAt("g", base.Add(6*time.Minute)),
		taskAt("h", base.Add(4*time.Minute)),
	}

	visible, archived := workflow.EnforceDoneLimit(tasks, workflow.DoneLimit)
	require.Len(t, archived, 1)
	assert.Equal(t, tasks[1].ID, archived[0].ID) // b — самая старая

	// видимые сохраняют исходный порядок списка
	want := []string{"a", "c", "d", "e", "f", "g", "h"}
	for i, v := range visible {
		assert.Equal(t, want[i], v.Title)
	}
}
