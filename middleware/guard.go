package middleware

import (
	"context"
	"errors"
	"net/http"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/MrEthical07/goSecretQ/session"
)

// RequireAnswered lets a request through only when it carries a live
// answered marker for the session's realm. Requests without one are
// redirected to opts.ChallengePath.
func RequireAnswered(engine *goSecretQ.Engine, sessions SessionLookup, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := guardSession(w, r, engine, sessions, opts)
			if !ok {
				return
			}

			req := goSecretQ.StepRequest{
				UserID:  sess.UserID,
				Realm:   sess.Realm,
				BaseURI: opts.BaseURI,
				Cookies: r.Cookies(),
			}
			if !engine.HasMarker(req) {
				http.Redirect(w, r, challengePath(opts), http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireEnrolled redirects users without a secret question to
// opts.EnrollPath.
func RequireEnrolled(engine *goSecretQ.Engine, sessions SessionLookup, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := guardSession(w, r, engine, sessions, opts)
			if !ok {
				return
			}

			configured, err := engine.IsConfigured(r.Context(), sess.UserID)
			if err != nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
			if !configured {
				http.Redirect(w, r, enrollPath(opts), http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func guardSession(w http.ResponseWriter, r *http.Request, engine *goSecretQ.Engine, sessions SessionLookup, opts Options) (*session.Session, bool) {
	if engine == nil || sessions == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	cookieName := opts.SessionCookie
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	sess, err := lookupSession(r, sessions, cookieName)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		} else {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
		return nil, false
	}
	return sess, true
}

func challengePath(opts Options) string {
	if opts.ChallengePath == "" {
		return "/secret-question"
	}
	return opts.ChallengePath
}

func enrollPath(opts Options) string {
	if opts.EnrollPath == "" {
		return "/secret-question/config"
	}
	return opts.EnrollPath
}
