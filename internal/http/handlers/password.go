package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/user-manager/internal/http/errors"
	"github.com/pribylovaa/user-manager/internal/service"
)

// PasswordChangeForm — GET /password_change/.
func (h *Handlers) PasswordChangeForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pagePasswordChange, &pageData{
		Form: buildForm(passwordChangeFields, nil, nil),
	})
}

// PasswordChange — POST /password_change/: при успехе ведёт на /password_change/done/.
// Сессия после смены пароля сохраняется.
func (h *Handlers) PasswordChange(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	values := formValues(r, passwordChangeFields)

	err := h.svc.ChangePassword(r.Context(), me.ID, service.ChangePasswordInput{
		OldPassword:  values[service.FieldOldPassword],
		NewPassword1: values[service.FieldNewPassword1],
		NewPassword2: values[service.FieldNewPassword2],
	})
	if err != nil {
		if fe, ok := mergeFieldErrors(err, nil); ok {
			h.render(w, r, http.StatusOK, pagePasswordChange, &pageData{
				Form: buildForm(passwordChangeFields, values, fe),
			})

			return
		}

		apierrors.WriteError(w, r, err)

		return
	}

	http.Redirect(w, r, "/password_change/done/", http.StatusFound)
}

// PasswordChangeDone — GET /password_change/done/.
func (h *Handlers) PasswordChangeDone(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pagePasswordChangeDone, &pageData{})
}
