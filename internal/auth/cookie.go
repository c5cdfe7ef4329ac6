package auth

import (
	"net/http"
	"time"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// CookiePolicy decides the attributes of session cookies. Production gets
// Secure and SameSite=Strict, everything else Lax over plain http.
type CookiePolicy struct {
	Secure bool
}

func (p CookiePolicy) sameSite() http.SameSite {
	if p.Secure {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

func (p CookiePolicy) set(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.sameSite(),
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
	})
}

func (p CookiePolicy) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.sameSite(),
	})
}

func (p CookiePolicy) SetAccess(w http.ResponseWriter, token string, expires time.Time) {
	p.set(w, AccessCookieName, token, expires)
}

func (p CookiePolicy) SetSession(w http.ResponseWriter, s *Session) {
	p.set(w, AccessCookieName, s.AccessToken, s.AccessExpires)
	p.set(w, RefreshCookieName, s.RefreshToken, s.RefreshExpires)
}

func (p CookiePolicy) ClearSession(w http.ResponseWriter) {
	p.clear(w, AccessCookieName)
	p.clear(w, RefreshCookieName)
}

// ReadCookie returns the named cookie's value or "" when absent.
func ReadCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
