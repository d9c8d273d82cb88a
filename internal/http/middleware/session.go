package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/oneroot-leads/internal/session"
)

const (
	// SessionCookie carries the visitor session id.
	SessionCookie = "oneroot_session"
	// SessionHeader lets non-browser clients pass the session id explicitly.
	SessionHeader = "X-Session-Id"

	sessionMaxAge = 365 * 24 * time.Hour
)

// Session attaches a visitor session id to the request context, taken from
// the X-Session-Id header or the session cookie. Unknown visitors get a new
// id and a cookie. Ids that are not UUIDs are replaced.
func Session(secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := validSessionID(r.Header.Get(SessionHeader))
			if sid == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					sid = validSessionID(c.Value)
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(sessionMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(SessionHeader, sid)
			next.ServeHTTP(w, r.WithContext(session.WithSessionID(r.Context(), sid)))
		})
	}
}

func validSessionID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}
