// Package web serves the password-protected dashboard and its JSON API.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	frontendx "github.com/tanpawarit/sentinel-orchestrator/agent/frontend"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
	statex "github.com/tanpawarit/sentinel-orchestrator/agent/state"
)

const (
	cookieName      = "sentinel_session"
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// Config is decoded with the SENTINEL prefix.
type Config struct {
	Addr         string `envconfig:"ADDR" default:":8000"`
	Password     string `envconfig:"PASSWORD"`
	VersionFile  string `split_words:"true" default:"VERSION"`
	SecureCookie bool   `split_words:"true" default:"false"`
}

type Server struct {
	cfg   Config
	ctrl  *frontendx.Controller
	store statex.Store

	locks sync.Map // session id -> *sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewServer(cfg Config, ctrl *frontendx.Controller, store statex.Store) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("controller is required")
	}
	if store == nil {
		store = statex.NewMemoryStore()
	}
	if strings.TrimSpace(cfg.Password) == "" {
		log.Warn().Msg("SENTINEL_PASSWORD is not set; every login will fail")
	}
	return &Server{
		cfg:   cfg,
		ctrl:  ctrl,
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /api/session", s.withSession(s.handleSession))
	mux.HandleFunc("POST /api/ask", s.withSession(s.handleAsk))
	mux.HandleFunc("POST /api/next", s.withSession(s.handleNext))
	mux.HandleFunc("POST /api/reset", s.withSession(s.handleReset))
	mux.HandleFunc("POST /api/document", s.withSession(s.handleDocument))
	return mux
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", s.cfg.Addr).Msg("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type pageData struct {
	Auth         bool
	Error        string
	Agents       []personax.Agent
	VersionLabel string
	VersionURL   string
	Time         string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.renderPage(w, http.StatusOK, pageData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	password := r.PostFormValue("password")
	if !s.passwordOK(password) {
		log.Warn().Str("remote", r.RemoteAddr).Msg("login rejected")
		s.renderPage(w, http.StatusUnauthorized, pageData{Error: "Incorrect password"})
		return
	}

	st := statex.NewSessionState(s.newID(), s.ctrl.Personas(), s.now())
	if err := s.store.Save(r.Context(), st); err != nil {
		log.Error().Err(err).Msg("save new session")
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    st.SessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) passwordOK(password string) bool {
	want := s.cfg.Password
	if want == "" || password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(want)) == 1
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(r); !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	label, url, err := ReadVersion(s.cfg.VersionFile)
	if err != nil {
		log.Warn().Err(err).Str("path", s.cfg.VersionFile).Msg("read version file")
	}
	s.renderPage(w, http.StatusOK, pageData{
		Auth:         true,
		Agents:       s.ctrl.Personas().Order(),
		VersionLabel: label,
		VersionURL:   url,
		Time:         s.now().Format("03:04 PM"),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if st, ok := s.session(r); ok {
		if _, err := s.ctrl.Reset(r.Context(), *st, ""); err != nil {
			log.Warn().Err(err).Msg("reset on logout")
		}
		if err := s.store.Delete(r.Context(), st.SessionID); err != nil {
			log.Warn().Err(err).Msg("delete session")
		}
		s.locks.Delete(st.SessionID)
	}
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("render page")
	}
}

func (s *Server) session(r *http.Request) (*statex.SessionState, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		return nil, false
	}
	st, err := s.store.Load(r.Context(), c.Value)
	if err != nil {
		if !errors.Is(err, statex.ErrStateNotFound) {
			log.Warn().Err(err).Msg("load session")
		}
		return nil, false
	}
	return st, true
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, st statex.SessionState) (statex.SessionState, error)

// withSession authenticates the request, serialises work per session and
// saves the state the handler returns.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Locks exist only for sessions the store knows; the state is
		// reloaded under the lock so a concurrent request's save is seen.
		known, ok := s.session(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		mu := s.lock(known.SessionID)
		mu.Lock()
		defer mu.Unlock()

		st, ok := s.session(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next, err := h(w, r, *st)
		if err != nil {
			writeError(w, statusFor(err), message(err))
			return
		}
		if err := s.store.Save(r.Context(), &next); err != nil {
			log.Error().Err(err).Str("session", next.SessionID).Msg("save session")
			writeError(w, http.StatusInternalServerError, "session unavailable")
			return
		}
		writeJSON(w, http.StatusOK, s.view(next))
	}
}

// lockCount reports how many per-session locks are held in memory.
func (s *Server) lockCount() int {
	n := 0
	s.locks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (s *Server) lock(sessionID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

type askBody struct {
	Agent string `json:"agent"`
	Query string `json:"query"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, st statex.SessionState) (statex.SessionState, error) {
	return st, nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request, st statex.SessionState) (statex.SessionState, error) {
	var body askBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return st, badRequest(err)
	}
	if body.Agent != "" && personax.Normalize(body.Agent) != st.Selected {
		next, err := st.Select(s.ctrl.Personas(), body.Agent)
		if err != nil {
			return st, err
		}
		st = next
	}
	return s.ctrl.Ask(r.Context(), st, body.Query)
}

type nextBody struct {
	FollowUp string `json:"follow_up"`
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request, st statex.SessionState) (statex.SessionState, error) {
	var body nextBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return st, badRequest(err)
	}
	return s.ctrl.SendToNext(r.Context(), st, body.FollowUp)
}

type resetBody struct {
	Agent string `json:"agent"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, st statex.SessionState) (statex.SessionState, error) {
	var body resetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return st, badRequest(err)
	}
	return s.ctrl.Reset(r.Context(), st, contractx.AgentKey(body.Agent))
}

type documentBody struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, st statex.SessionState) (statex.SessionState, error) {
	var body documentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return st, badRequest(err)
	}
	return st.SetDocument(body.Name, body.Text, s.now()), nil
}

type sessionView struct {
	Session     statex.SessionState `json:"session"`
	CanSendNext bool                `json:"can_send_next"`
	NextAgent   string              `json:"next_agent,omitempty"`
}

func (s *Server) view(st statex.SessionState) sessionView {
	v := sessionView{Session: st, CanSendNext: st.CanSendNext(s.ctrl.Personas())}
	if next, ok := st.NextAgent(s.ctrl.Personas()); ok {
		v.NextAgent = next.Name
	}
	// The document can be large; the browser only needs its name.
	v.Session.Document = ""
	return v
}

type requestError struct {
	err error
}

func (e requestError) Error() string { return "invalid request body: " + e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return requestError{err: err}
}

func statusFor(err error) int {
	var reqErr requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, contractx.ErrEmptyQuery),
		errors.Is(err, contractx.ErrUnknownAgent):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrNoNextAgent),
		errors.Is(err, statex.ErrNoReply),
		errors.Is(err, statex.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func message(err error) string {
	switch {
	case errors.Is(err, contractx.ErrEmptyQuery):
		return "Please type something."
	case errors.Is(err, contractx.ErrNoNextAgent):
		return "This is the final stage; there is no next agent."
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
