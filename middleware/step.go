package middleware

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/MrEthical07/goSecretQ/session"
	"golang.org/x/text/language"
)

// DefaultSessionCookie names the cookie carrying the authentication session id.
const DefaultSessionCookie = "SQ_AUTH_SESSION"

// SessionLookup resolves an authentication session by id. [*session.Store]
// satisfies it.
type SessionLookup interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
}

// Options configures [StepHandler] and the guards.
type Options struct {
	// BaseURI is the public server base the marker path is derived from.
	BaseURI string
	// SessionCookie defaults to DefaultSessionCookie.
	SessionCookie string
	// ChallengePath and EnrollPath are where guards redirect to.
	ChallengePath string
	EnrollPath    string
	// AuthenticatorConfig is passed to every step call (cookie.max.age).
	AuthenticatorConfig map[string]string
	// OnSuccess runs after a step completes. The default redirects to "/".
	OnSuccess func(w http.ResponseWriter, r *http.Request, sess *session.Session)
	// Limiter, when set, throttles wrong answers on the challenge form.
	Limiter AttemptLimiter
	// TrustedProxies lists peers whose X-Forwarded-For header is honoured.
	// Empty means the client address is always taken from RemoteAddr.
	TrustedProxies []*net.IPNet
	Logger         *log.Logger
}

// StepHandler serves the secret question challenge and enrollment forms over
// HTTP. The user comes from the authentication session named by the session
// cookie; session notes feed the device-binding branch.
type StepHandler struct {
	engine   *goSecretQ.Engine
	sessions SessionLookup
	opts     Options
}

type sessionContextKey struct{}

// SessionFromContext returns the authentication session attached by a guard
// or step handler.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess, ok
}

// NewStepHandler returns a handler bound to engine and sessions.
func NewStepHandler(engine *goSecretQ.Engine, sessions SessionLookup, opts Options) *StepHandler {
	if opts.SessionCookie == "" {
		opts.SessionCookie = DefaultSessionCookie
	}
	if opts.ChallengePath == "" {
		opts.ChallengePath = "/secret-question"
	}
	if opts.EnrollPath == "" {
		opts.EnrollPath = "/secret-question/config"
	}
	if opts.OnSuccess == nil {
		opts.OnSuccess = func(w http.ResponseWriter, r *http.Request, _ *session.Session) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
		}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &StepHandler{engine: engine, sessions: sessions, opts: opts}
}

// Register mounts the four step routes on mux.
func (h *StepHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+h.opts.ChallengePath, h.Authenticate)
	mux.HandleFunc("POST "+h.opts.ChallengePath, h.Action)
	mux.HandleFunc("GET "+h.opts.EnrollPath, h.EnrollChallenge)
	mux.HandleFunc("POST "+h.opts.EnrollPath, h.EnrollAction)
}

// Authenticate renders the challenge. Users without a secret question are
// sent to the enrollment form.
func (h *StepHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := h.begin(w, r)
	if !ok {
		return
	}

	configured, err := h.engine.IsConfigured(ctx, sess.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !configured {
		http.Redirect(w, r, h.opts.EnrollPath, http.StatusSeeOther)
		return
	}

	res, err := h.engine.Authenticate(ctx, h.stepRequest(r, sess))
	h.respond(w, r, sess, res, err)
}

// Action checks the submitted answer.
func (h *StepHandler) Action(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := h.begin(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ip := h.clientIP(r)
	if h.opts.Limiter != nil {
		if err := h.opts.Limiter.Check(ctx, sess.UserID, ip); err != nil {
			h.limited(w, err)
			return
		}
	}

	res, err := h.engine.Action(ctx, h.stepRequest(r, sess))
	if err == nil && h.opts.Limiter != nil {
		switch {
		case res.Status == goSecretQ.StepSuccess:
			if rerr := h.opts.Limiter.Reset(ctx, sess.UserID); rerr != nil {
				h.opts.Logger.Printf("goSecretQ: attempt reset failed: %v", rerr)
			}
		case res.FlowError == goSecretQ.FlowErrorInvalidCredentials:
			if lerr := h.opts.Limiter.RecordFailure(ctx, sess.UserID, ip); lerr != nil && !errors.Is(lerr, ErrTooManyAttempts) {
				h.opts.Logger.Printf("goSecretQ: attempt record failed: %v", lerr)
			}
		}
	}
	h.respond(w, r, sess, res, err)
}

func (h *StepHandler) limited(w http.ResponseWriter, err error) {
	status := limiterStatus(err)
	if status >= http.StatusInternalServerError {
		h.opts.Logger.Printf("goSecretQ: attempt limiter: %v", err)
	}
	http.Error(w, http.StatusText(status), status)
}

// EnrollChallenge renders the enrollment form.
func (h *StepHandler) EnrollChallenge(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := h.begin(w, r)
	if !ok {
		return
	}

	res, err := h.engine.EnrollChallenge(ctx, h.stepRequest(r, sess))
	h.respond(w, r, sess, res, err)
}

// EnrollAction stores the submitted answer.
func (h *StepHandler) EnrollAction(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := h.begin(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	res, err := h.engine.EnrollAction(ctx, h.stepRequest(r, sess))
	h.respond(w, r, sess, res, err)
}

func (h *StepHandler) begin(w http.ResponseWriter, r *http.Request) (*session.Session, context.Context, bool) {
	if h == nil || h.engine == nil || h.sessions == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return nil, nil, false
	}
	sess, err := lookupSession(r, h.sessions, h.opts.SessionCookie)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		} else {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
		return nil, nil, false
	}

	ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
	ctx = goSecretQ.WithClientIP(ctx, h.clientIP(r))
	ctx = goSecretQ.WithRealm(ctx, sess.Realm)
	return sess, ctx, true
}

func (h *StepHandler) stepRequest(r *http.Request, sess *session.Session) goSecretQ.StepRequest {
	return goSecretQ.StepRequest{
		UserID:              sess.UserID,
		Realm:               sess.Realm,
		BaseURI:             h.opts.BaseURI,
		Locale:              requestLocale(r),
		Form:                r.PostForm,
		Cookies:             r.Cookies(),
		Notes:               sess,
		AuthenticatorConfig: h.opts.AuthenticatorConfig,
	}
}

func (h *StepHandler) respond(w http.ResponseWriter, r *http.Request, sess *session.Session, res goSecretQ.StepResult, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}

	switch res.Status {
	case goSecretQ.StepSuccess:
		if res.Marker != nil {
			http.SetCookie(w, res.Marker)
		}
		h.opts.OnSuccess(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey{}, sess)), sess)
	case goSecretQ.StepFailureChallenge:
		writeResponse(w, res.Response, http.StatusUnauthorized)
	default:
		writeResponse(w, res.Response, http.StatusOK)
	}
}

func (h *StepHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.opts.Logger.Printf("goSecretQ: step failed: %v", err)
	}
	http.Error(w, http.StatusText(status), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, goSecretQ.ErrUserRequired):
		return http.StatusUnauthorized
	case errors.Is(err, goSecretQ.ErrDeviceNameTaken):
		return http.StatusConflict
	case errors.Is(err, goSecretQ.ErrDeviceNameRequired):
		return http.StatusBadRequest
	case errors.Is(err, goSecretQ.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeResponse(w http.ResponseWriter, resp any, status int) {
	switch v := resp.(type) {
	case *Page:
		v.Serve(w, status)
	case []byte:
		w.WriteHeader(status)
		_, _ = w.Write(v)
	case string:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(v))
	default:
		w.WriteHeader(status)
	}
}

func lookupSession(r *http.Request, sessions SessionLookup, cookieName string) (*session.Session, error) {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return nil, session.ErrSessionNotFound
	}
	return sessions.Get(r.Context(), c.Value)
}

// requestLocale prefers an explicit ?locale= and falls back to the first
// Accept-Language entry.
func requestLocale(r *http.Request) string {
	if v := r.URL.Query().Get("locale"); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return tag.String()
		}
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return ""
	}
	return tags[0].String()
}
