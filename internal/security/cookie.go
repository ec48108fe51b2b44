package security

import (
	"net/http"
	"strings"
	"time"
)

const bearerPrefix = "Bearer "

// CookieTransport moves tokens between responses and requests. Every
// cookie it writes is HttpOnly, Secure, SameSite=Strict and scoped to "/".
type CookieTransport struct {
	name   string
	domain string
	maxAge time.Duration
}

func NewCookieTransport(name, domain string, maxAge time.Duration) *CookieTransport {
	return &CookieTransport{name: name, domain: domain, maxAge: maxAge}
}

func (t *CookieTransport) Name() string {
	return t.name
}

func (t *CookieTransport) Write(token string) *http.Cookie {
	return t.cookie(token, int(t.maxAge/time.Second))
}

// Clear returns a cookie that makes the browser drop the token.
func (t *CookieTransport) Clear() *http.Cookie {
	// net/http renders a negative MaxAge as "Max-Age=0".
	return t.cookie("", -1)
}

func (t *CookieTransport) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     t.name,
		Value:    value,
		Path:     "/",
		Domain:   t.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (t *CookieTransport) ReadFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(t.name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (t *CookieTransport) ReadFromHeader(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", false
	}
	return token, true
}
