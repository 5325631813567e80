package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/user-manager/internal/http/errors"
	"github.com/pribylovaa/user-manager/internal/service"
	"github.com/pribylovaa/user-manager/pkg/log"
)

// Сообщения страниц профиля.
const (
	MsgProfileUpdated = "Your profile has been updated successfully!"
	MsgCorrectErrors  = "Please correct the error below."
	MsgUserDeleted    = "User successfully deleted!"
)

// Root — GET /: перенаправляет на /home/.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/home/", http.StatusFound)
}

// Home — GET /home/.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageHome, &pageData{
		Section:  "home",
		Messages: popFlash(w, r),
	})
}

// UserList — GET /users/: активные пользователи без staff.
func (h *Handlers) UserList(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, pageList, &pageData{
		Section: "users",
		Users:   users,
	})
}

// UserDetails — GET /user/{username}/: профиль активного пользователя или 404.
func (h *Handlers) UserDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.UserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	me := currentUser(r)

	h.render(w, r, http.StatusOK, pageDetails, &pageData{
		Section: "account",
		Details: details,
		Own:     me != nil && me.ID == details.ID,
	})
}

// EditForm — GET /edit/.
func (h *Handlers) EditForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageEdit, &pageData{
		Form: buildForm(editFields, userValues(currentUser(r)), nil),
	})
}

// Edit — POST /edit/: сохраняет профиль и показывает форму снова с уведомлением.
func (h *Handlers) Edit(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	values := formValues(r, editFields)

	parsed := service.FieldErrors{}
	birth := parseDate(values[service.FieldBirthDate], parsed, service.FieldBirthDate)
	number := parseInt(values[service.FieldRandomNumber], parsed, service.FieldRandomNumber)

	updated, err := h.svc.UpdateProfile(r.Context(), me.ID, service.UpdateProfileInput{
		Username:     values[service.FieldUsername],
		BirthDate:    birth,
		RandomNumber: number,
	})
	if err != nil {
		if fe, ok := mergeFieldErrors(err, parsed); ok {
			h.render(w, r, http.StatusOK, pageEdit, &pageData{
				Messages: []Message{{Level: levelError, Text: MsgCorrectErrors}},
				Form:     buildForm(editFields, values, fe),
			})

			return
		}

		apierrors.WriteError(w, r, err)

		return
	}

	h.render(w, r, http.StatusOK, pageEdit, &pageData{
		User:     updated,
		Messages: []Message{{Level: levelSuccess, Text: MsgProfileUpdated}},
		Form:     buildForm(editFields, userValues(updated), nil),
	})
}

// DeleteForm — GET /delete/: страница подтверждения.
func (h *Handlers) DeleteForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageDelete, &pageData{})
}

// Delete — POST /delete/: удаляет текущего пользователя и завершает его сессию.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)

	if err := h.svc.DeleteUser(r.Context(), me.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.Logout(r.Context(), h.sessionToken(r)); err != nil {
		log.From(r.Context()).Warn("logout_revoke_failed", slog.String("err", err.Error()))
	}

	h.cookie.Clear(w)
	setFlash(w, Message{Level: levelSuccess, Text: MsgUserDeleted})
	http.Redirect(w, r, "/home/", http.StatusFound)
}
