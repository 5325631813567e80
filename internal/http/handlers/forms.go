package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/user-manager/internal/models"
	"github.com/pribylovaa/user-manager/internal/service"
)

// MsgLoginFailed — ошибка формы входа без привязки к полю.
const MsgLoginFailed = "Please enter a correct username and password. Note that both fields may be case-sensitive."

// field — поле HTML-формы для шаблона "field".
type field struct {
	Name  string
	Label string
	Type  string
	Value string
	Error string
}

// form — состояние формы: поля со значениями/ошибками и общая ошибка.
type form struct {
	Fields   []field
	NonField string
}

type fieldSpec struct {
	name, label, typ string
}

var (
	signupFields = []fieldSpec{
		{service.FieldUsername, "Username", "text"},
		{service.FieldEmail, "Email", "email"},
		{service.FieldBirthDate, "Birth date", "date"},
		{service.FieldPassword1, "Password", "password"},
		{service.FieldPassword2, "Password confirmation", "password"},
	}
	loginFields = []fieldSpec{
		{service.FieldUsername, "Username", "text"},
		{"password", "Password", "password"},
	}
	passwordChangeFields = []fieldSpec{
		{service.FieldOldPassword, "Old password", "password"},
		{service.FieldNewPassword1, "New password", "password"},
		{service.FieldNewPassword2, "New password confirmation", "password"},
	}
	editFields = []fieldSpec{
		{service.FieldUsername, "Username", "text"},
		{service.FieldBirthDate, "Birth date", "date"},
		{service.FieldRandomNumber, "Random number", "number"},
	}
)

// buildForm собирает форму; пароли в ответ не возвращаются.
func buildForm(specs []fieldSpec, values map[string]string, errs service.FieldErrors) form {
	f := form{Fields: make([]field, 0, len(specs))}

	for _, s := range specs {
		v := values[s.name]
		if s.typ == "password" {
			v = ""
		}

		f.Fields = append(f.Fields, field{
			Name:  s.name,
			Label: s.label,
			Type:  s.typ,
			Value: v,
			Error: errs[s.name],
		})
	}

	return f
}

// formValues читает значения полей specs из POST-формы.
func formValues(r *http.Request, specs []fieldSpec) map[string]string {
	values := make(map[string]string, len(specs))
	for _, s := range specs {
		values[s.name] = r.PostFormValue(s.name)
	}

	return values
}

// userValues — значения формы редактирования из профиля.
func userValues(u *models.User) map[string]string {
	values := map[string]string{
		service.FieldUsername:  u.Username,
		service.FieldBirthDate: u.BirthDateString(),
	}

	if u.RandomNumber != nil {
		values[service.FieldRandomNumber] = strconv.Itoa(*u.RandomNumber)
	}

	return values
}

// parseDate разбирает YYYY-MM-DD. Пустое значение — nil без ошибки
// (обязательность проверяет сервис).
func parseDate(raw string, errs service.FieldErrors, name string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		errs[name] = service.MsgDateInvalid
		return nil
	}

	return &t
}

// parseInt разбирает целое число; пустое значение — nil без ошибки.
func parseInt(raw string, errs service.FieldErrors, name string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		errs[name] = service.MsgWholeNumber
		return nil
	}

	return &n
}

// mergeFieldErrors накладывает ошибки разбора формы поверх ошибок сервиса:
// неразобранное значение приходит в сервис как nil и получает "required",
// пользователю же важнее сообщение о формате.
func mergeFieldErrors(err error, parsed service.FieldErrors) (service.FieldErrors, bool) {
	var fe service.FieldErrors
	if !errors.As(err, &fe) {
		return nil, false
	}

	out := make(service.FieldErrors, len(fe)+len(parsed))
	for k, v := range fe {
		out[k] = v
	}

	for k, v := range parsed {
		out[k] = v
	}

	return out, true
}

// safeNext пропускает только локальные пути вида "/...".
func safeNext(next string) string {
	if next == "" || next[0] != '/' || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}

	return next
}
