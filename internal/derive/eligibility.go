// derive содержит вычисляемые атрибуты пользователя, которые не хранятся в БД:
//   - eligibility.go — допуск по возрасту (Allowed/Blocked) по дате рождения;
//   - bizzfuzz.go — классификатор Bizz/Fuzz для сохранённого случайного числа;
//   - filters.go — обёртки для html/template (calculate_age, get_bizz_fuzz).
//
// Все функции чистые: текущая дата передаётся явно, отсутствующий вход
// даёт пустую строку, а не ошибку.
package derive

import "time"

const (
	// Allowed — пользователь старше MinAge.
	Allowed = "Allowed"
	// Blocked — пользователю MinAge лет или меньше.
	Blocked = "Blocked"
)

// MinAge — возраст, который нужно превысить для статуса Allowed.
const MinAge = 13

// Age возвращает полный календарный возраст на дату now.
// Если день рождения в текущем году ещё не наступил, возраст уменьшается на 1.
func Age(birth, now time.Time) int {
	by, bm, bd := birth.Date()
	ny, nm, nd := now.Date()

	age := ny - by
	if nm < bm || (nm == bm && nd < bd) {
		age--
	}

	return age
}

// Eligibility классифицирует дату рождения относительно now.
// nil или нулевое время считаются отсутствующим значением и дают "".
func Eligibility(birth *time.Time, now time.Time) string {
	if birth == nil || birth.IsZero() {
		return ""
	}

	if Age(*birth, now) > MinAge {
		return Allowed
	}

	return Blocked
}
