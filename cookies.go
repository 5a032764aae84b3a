package panelGate

import (
	"net/http"
	"time"

	"github.com/MrEthical07/panelGate/jwt"
	"github.com/MrEthical07/panelGate/session"
	"github.com/google/uuid"
)

// SetSessionCookies writes the token and role cookies read by the gate. An
// empty role clears the role cookie. With Cookie.UseTokenExpiry the lifetime
// is capped at the token's exp claim.
func (e *Engine) SetSessionCookies(w http.ResponseWriter, token, role string) error {
	if token == "" {
		return ErrMissingToken
	}

	now := e.now()
	expires := now.Add(e.config.Cookie.MaxAge)
	if e.config.Cookie.UseTokenExpiry {
		if exp, ok := jwt.Expiry(token); ok {
			if !exp.After(now) {
				return ErrTokenExpired
			}
			if exp.Before(expires) {
				expires = exp
			}
		}
	}

	http.SetCookie(w, e.cookie(e.config.Gate.TokenCookie, token, expires, now))
	if role == "" {
		http.SetCookie(w, e.expiredCookie(e.config.Gate.RoleCookie))
	} else {
		http.SetCookie(w, e.cookie(e.config.Gate.RoleCookie, role, expires, now))
	}
	return nil
}

// ClearSessionCookies expires both gate cookies.
func (e *Engine) ClearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, e.expiredCookie(e.config.Gate.TokenCookie))
	http.SetCookie(w, e.expiredCookie(e.config.Gate.RoleCookie))
}

// ReadSessionCookies returns the gate cookie values of r. Missing cookies read
// as empty strings.
func (e *Engine) ReadSessionCookies(r *http.Request) (token, role string) {
	if c, err := r.Cookie(e.config.Gate.TokenCookie); err == nil {
		token = c.Value
	}
	if c, err := r.Cookie(e.config.Gate.RoleCookie); err == nil {
		role = c.Value
	}
	return token, role
}

// ReadBrowserID returns the browser ID cookie of r without minting one.
func (e *Engine) ReadBrowserID(r *http.Request) (string, bool) {
	c, err := r.Cookie(e.config.Session.BrowserCookie)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// BrowserID returns the browser ID cookie of r, minting and setting a new
// one on w when it is missing or malformed.
func (e *Engine) BrowserID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := e.ReadBrowserID(r); ok {
		return id
	}

	id := uuid.NewString()
	now := e.now()
	c := e.cookie(e.config.Session.BrowserCookie, id, now.Add(e.config.Cookie.MaxAge), now)
	c.HttpOnly = true
	http.SetCookie(w, c)
	return id
}

// SessionBrowser returns a [session.Browser] that applies Logout side effects
// to w using the engine's cookie attributes.
func (e *Engine) SessionBrowser(w http.ResponseWriter, r *http.Request) *session.ResponseBrowser {
	return &session.ResponseBrowser{
		W:        w,
		R:        r,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Secure:   e.config.Cookie.Secure,
		HTTPOnly: e.config.Cookie.HTTPOnly,
		SameSite: e.config.Cookie.SameSite,
	}
}

func (e *Engine) cookie(name, value string, expires, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Expires:  expires.UTC(),
		MaxAge:   int(expires.Sub(now).Seconds()),
		Secure:   e.config.Cookie.Secure,
		HttpOnly: e.config.Cookie.HTTPOnly,
		SameSite: e.config.Cookie.SameSite,
	}
}

func (e *Engine) expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   e.config.Cookie.Secure,
		HttpOnly: e.config.Cookie.HTTPOnly,
		SameSite: e.config.Cookie.SameSite,
	}
}
