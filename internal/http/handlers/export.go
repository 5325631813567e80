package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/pribylovaa/user-manager/internal/export"
	apierrors "github.com/pribylovaa/user-manager/internal/http/errors"
)

// Download — GET /download/: CSV со всеми активными пользователями без staff.
// Документ целиком собирается до отправки заголовков.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	var body bytes.Buffer

	res, err := h.svc.ExportUsersCSV(r.Context(), &body)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", export.ContentDisposition(res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body.Bytes())
}
