package workflow

import (
	"sort"
	"strings"
	"time"

	"taskboard/internal/models"
)

// DoneLimit — максимум видимых задач в колонке "Выполнено".
const DoneLimit = 7

// EnforceDoneLimit делит задачи done-колонки на видимые и подлежащие архивации.
// Видимыми остаются limit самых свежих по времени активности задач, излишек
// архивируется начиная с самых старых. Задачи никогда не теряются:
// len(visible)+len(archived) == len(tasks).
//
// Сортировка стабильная, при равных метках времени порядок решает идентификатор
// задачи — повторный вызов на том же входе выбирает те же задачи.
func EnforceDoneLimit(tasks []models.Task, limit int) (visible, archived []models.Task) {
	if limit <= 0 {
		limit = DoneLimit
	}

	if len(tasks) <= limit {
		visible = make([]models.Task, len(tasks))
		copy(visible, tasks)
		return visible, nil
	}

	byAge := make([]models.Task, len(tasks))
	copy(byAge, tasks)

	// Фолбэк "сейчас" фиксируется один раз на задачу, иначе компаратор
	// нестабилен для задач без меток времени.
	activity := make(map[string]time.Time, len(byAge))
	for _, t := range byAge {
		activity[t.ID.String()] = t.ActivityTime()
	}

	sort.SliceStable(byAge, func(i, j int) bool {
		ti, tj := activity[byAge[i].ID.String()], activity[byAge[j].ID.String()]
		if ti.Equal(tj) {
			return strings.Compare(byAge[i].ID.String(), byAge[j].ID.String()) < 0
		}
		return ti.Before(tj)
	})

	overflow := len(byAge) - limit
	archived = byAge[:overflow]

	archivedIDs := make(map[string]struct{}, overflow)
	for _, t := range archived {
		archivedIDs[t.ID.String()] = struct{}{}
	}

	// Видимые задачи сохраняют исходный порядок списка, а не порядок сортировки.
	visible = make([]models.Task, 0, limit)
	for _, t := range tasks {
		if _, ok := archivedIDs[t.ID.String()]; ok {
			continue
		}
		visible = append(visible, t)
	}
	return visible, archived
}
