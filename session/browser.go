package session

import (
	"net/http"
	"time"
)

// Browser is the side-effect port used by [Store.Logout].
type Browser interface {
	// ClearCookies expires the named cookies.
	ClearCookies(names ...string)
	// Navigate sends the browser to path.
	Navigate(path string)
}

// NopBrowser ignores every side effect.
type NopBrowser struct{}

func (NopBrowser) ClearCookies(...string) {}

func (NopBrowser) Navigate(string) {}

// ResponseBrowser applies Browser side effects to an HTTP response.
//
// ClearCookies writes expired Set-Cookie headers and Navigate writes a 303
// redirect, so ClearCookies must run first. Navigate writes at most once.
type ResponseBrowser struct {
	W        http.ResponseWriter
	R        *http.Request
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite

	navigated bool
}

// ClearCookies implements [Browser].
func (b *ResponseBrowser) ClearCookies(names ...string) {
	path := b.Path
	if path == "" {
		path = "/"
	}
	for _, name := range names {
		http.SetCookie(b.W, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			Domain:   b.Domain,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			Secure:   b.Secure,
			HttpOnly: b.HTTPOnly,
			SameSite: b.SameSite,
		})
	}
}

// Navigate implements [Browser].
func (b *ResponseBrowser) Navigate(path string) {
	if b.navigated {
		return
	}
	b.navigated = true
	http.Redirect(b.W, b.R, path, http.StatusSeeOther)
}

// Navigated reports whether Navigate wrote a response.
func (b *ResponseBrowser) Navigated() bool {
	return b.navigated
}
