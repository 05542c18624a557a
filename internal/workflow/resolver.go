package workflow

import (
	"regexp"
	"strings"

	"taskboard/internal/models"
)

// Определение статуса задачи по колонке. Явный статус колонки всегда
// авторитетен; для старых досок статус выводится из названия колонки
// по упорядоченному списку правил (русские и английские ключевые слова).
//
// ВАЖНО: правило done обязано совпадать только по целому слову.
// "К выполнению" содержит подстроку "выполнен", но это колонка todo,
// наивный strings.Contains здесь даёт ложное срабатывание.
var doneWord = regexp.MustCompile(`(?:^|\s)(выполнено|готово|done)(?:$|\s)`)

// doneColumnWord — расширенный набор для проверки "это колонка Выполнено?":
// плюс "завершено", которое встречается на досках, но не участвует в ResolveStatus.
var doneColumnWord = regexp.MustCompile(`(?:^|\s)(выполнено|готово|завершено|done)(?:$|\s)`)

type nameRule struct {
	status models.Status
	match  func(name string) bool
}

func containsAny(subs ...string) func(string) bool {
	return func(name string) bool {
		for _, s := range subs {
			if strings.Contains(name, s) {
				return true
			}
		}
		return false
	}
}

// Порядок правил фиксирован: done проверяется первым, дефолт — todo.
var nameRules = []nameRule{
	{models.StatusDone, doneWord.MatchString},
	{models.StatusReview, containsAny("проверк", "review")},
	{models.StatusInProgress, containsAny("работе", "progress", "процессе")},
	{models.StatusBacklog, containsAny("беклог", "backlog")},
	{models.StatusDeferred, containsAny("отлож", "deferred")},
}

// ResolveStatus возвращает канонический статус задач колонки.
// Функция чистая: повторный вызов на тех же метаданных даёт тот же результат.
func ResolveStatus(col models.Column) models.Status {
	if col.Status != nil && *col.Status != "" {
		return *col.Status
	}

	name := strings.ToLower(strings.TrimSpace(col.Title))
	if name == "" {
		return models.StatusTodo
	}

	for _, r := range nameRules {
		if r.match(name) {
			return r.status
		}
	}
	return models.StatusTodo
}

// IsDoneColumn сообщает, отображается ли колонка в статус done.
func IsDoneColumn(col models.Column) bool {
	if ResolveStatus(col) == models.StatusDone {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(col.Title))
	return doneColumnWord.MatchString(name)
}

// Синонимы для поиска целевой колонки при переключении done <-> review.
// Стем "выполнен" сюда не входит намеренно, см. комментарий к doneWord.
var toggleSynonyms = map[models.Status][]string{
	models.StatusDone:   {"выполнено", "готово", "готов", "done"},
	models.StatusReview: {"проверке", "на проверке", "review"},
}

// FindColumnForStatus ищет колонку, соответствующую целевому статусу done
// или review: сначала по канонизации, затем по словарю синонимов с проверкой
// границ слова. Возвращает nil, если подходящей колонки нет.
func FindColumnForStatus(cols []models.Column, target models.Status) *models.Column {
	synonyms := toggleSynonyms[target]

	for i := range cols {
		if ResolveStatus(cols[i]) == target {
			return &cols[i]
		}

		name := strings.ToLower(strings.TrimSpace(cols[i].Title))
		for _, s := range synonyms {
			if name == s ||
				strings.Contains(name, " "+s) ||
				strings.HasPrefix(name, s+" ") ||
				strings.HasSuffix(name, " "+s) {
				return &cols[i]
			}
		}
	}
	return nil
}
