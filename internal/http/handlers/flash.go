package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const flashCookie = "messages"

// newFlashCookie — cookie флеш-сообщения; запись и удаление идут с одинаковыми атрибутами.
func newFlashCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// setFlash сохраняет сообщение до следующего показа страницы (после redirect).
func setFlash(w http.ResponseWriter, m Message) {
	http.SetCookie(w, newFlashCookie(base64.RawURLEncoding.EncodeToString([]byte(m.Level+"\n"+m.Text)), 0))
}

// popFlash читает и удаляет отложенное сообщение.
func popFlash(w http.ResponseWriter, r *http.Request) []Message {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}

	http.SetCookie(w, newFlashCookie("", -1))

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}

	level, text, ok := strings.Cut(string(raw), "\n")
	if !ok || text == "" {
		return nil
	}

	return []Message{{Level: level, Text: text}}
}
