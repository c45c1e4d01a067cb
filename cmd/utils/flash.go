package utils

import (
	"encoding/base64"
	"net/http"
)

// FlashCookieName carries the pending notice between a redirect and the next
// rendered page.
const FlashCookieName = "inkwell_flash"

// Flash is a one-time notice attached to the next rendered page.
type Flash struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

// SetFlash stores a notice for the next request. The value is base64 encoded
// because cookie values cannot carry spaces.
func SetFlash(w http.ResponseWriter, message, category string) {
	value := base64.URLEncoding.EncodeToString([]byte(category + "|" + message))
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
	})
}

// PopFlash returns the pending notice, if any, and clears it.
func PopFlash(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return Flash{}, false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	decoded, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return Flash{}, false
	}
	for i := 0; i < len(decoded); i++ {
		if decoded[i] == '|' {
			return Flash{Category: string(decoded[:i]), Message: string(decoded[i+1:])}, true
		}
	}
	return Flash{Message: string(decoded)}, true
}
