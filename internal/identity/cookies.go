package identity

import (
	"net/http"
	"time"
)

const (
	SessionCookie = "session"
	IntentCookie  = "intended_event"

	IntentTTL = 5 * time.Minute
)

// Cookies writes the auth cookies; Secure is set from configuration.
type Cookies struct {
	Secure bool
}

func (c Cookies) SetSession(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c Cookies) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// SetIntent remembers the event a visitor wanted to check in to across the
// login redirect.
func (c Cookies) SetIntent(w http.ResponseWriter, eventID string, sameSite http.SameSite) {
	http.SetCookie(w, &http.Cookie{
		Name:     IntentCookie,
		Value:    eventID,
		Path:     "/",
		MaxAge:   int(IntentTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSite,
	})
}

func (c Cookies) ClearIntent(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   IntentCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// Value returns the named cookie's value or "".
func Value(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
