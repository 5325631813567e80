package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/user-manager/internal/http/errors"
	"github.com/pribylovaa/user-manager/internal/service"
	"github.com/pribylovaa/user-manager/pkg/log"
)

// SignupForm — GET /signup/.
func (h *Handlers) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageSignup, &pageData{
		Section: "signup",
		Form:    buildForm(signupFields, nil, nil),
	})
}

// Signup — POST /signup/: создаёт пользователя, открывает сессию и ведёт на /home/.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	values := formValues(r, signupFields)

	parsed := service.FieldErrors{}
	birth := parseDate(values[service.FieldBirthDate], parsed, service.FieldBirthDate)

	_, session, err := h.svc.Signup(r.Context(), service.SignupInput{
		Username:  values[service.FieldUsername],
		Email:     values[service.FieldEmail],
		BirthDate: birth,
		Password1: values[service.FieldPassword1],
		Password2: values[service.FieldPassword2],
	})
	if err != nil {
		if fe, ok := mergeFieldErrors(err, parsed); ok {
			h.render(w, r, http.StatusOK, pageSignup, &pageData{
				Section: "signup",
				Form:    buildForm(signupFields, values, fe),
			})

			return
		}

		apierrors.WriteError(w, r, err)

		return
	}

	h.cookie.Set(w, session.Token, session.ExpiresAt)
	http.Redirect(w, r, "/home/", http.StatusFound)
}

// LoginForm — GET /login/.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageLogin, &pageData{
		Section: "login",
		Form:    buildForm(loginFields, nil, nil),
		Next:    safeNext(r.URL.Query().Get("next")),
	})
}

// Login — POST /login/: при успехе ставит cookie и ведёт на next (локальный) или /home/.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	values := formValues(r, loginFields)
	next := safeNext(r.PostFormValue("next"))

	errs := service.FieldErrors{}
	for _, s := range loginFields {
		if values[s.name] == "" {
			errs[s.name] = service.MsgRequired
		}
	}

	data := &pageData{Section: "login", Next: next}

	if len(errs) > 0 {
		data.Form = buildForm(loginFields, values, errs)
		h.render(w, r, http.StatusOK, pageLogin, data)

		return
	}

	_, session, err := h.svc.Login(r.Context(), values[service.FieldUsername], values["password"])
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			data.Form = buildForm(loginFields, values, nil)
			data.Form.NonField = MsgLoginFailed
			h.render(w, r, http.StatusOK, pageLogin, data)

			return
		}

		apierrors.WriteError(w, r, err)

		return
	}

	if next == "" {
		next = "/home/"
	}

	h.cookie.Set(w, session.Token, session.ExpiresAt)
	http.Redirect(w, r, next, http.StatusFound)
}

// Logout — POST /logout/: отзывает сессию (если есть кэш), удаляет cookie и ведёт на /home/.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessionToken(r); token != "" {
		if err := h.svc.Logout(r.Context(), token); err != nil {
			log.From(r.Context()).Warn("logout_revoke_failed", slog.String("err", err.Error()))
		}
	}

	h.cookie.Clear(w)
	http.Redirect(w, r, "/home/", http.StatusFound)
}
