package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"finform/internal/amqp"
	"finform/internal/cache"
	"finform/internal/composer"
	"finform/internal/core"
	"finform/internal/log"
	"finform/internal/metrics"
	"finform/internal/middleware/ratelimit"
	"finform/internal/middleware/security"
	"finform/internal/middleware/trace"
	"finform/internal/options"
	"finform/internal/sheets"
	appweb "finform/web"
)

const recentEntriesKey = "recent"

// EventPublisher announces recorded entries.
type EventPublisher interface {
	PublishEntryAdded(ctx context.Context, msg *amqp.EntryAddedMessage) error
}

// Dependencies are the collaborators of the server. Lister, Pinger,
// Publisher, Metrics and Caches are optional.
type Dependencies struct {
	Loader    *options.Loader
	Sink      sheets.EntrySink
	Lister    sheets.EntryLister
	Pinger    sheets.Pinger
	Publisher EventPublisher
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	Caches    *cache.Manager
}

// Settings tune the form behaviour. APITimeout is the bound on calls to the
// finance service (0 means none); the write deadline follows it.
type Settings struct {
	ResetOnSuccess       bool
	RejectBlankNewValues bool
	SessionTTL           time.Duration
	MaxSessions          int
	PostsPerMinute       int
	RecentEntries        int
	EntriesTTL           time.Duration
	APITimeout           time.Duration
}

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	writeMargin       = 10 * time.Second
)

// writeTimeout leaves room for a submission to wait on the finance service.
// Without an API timeout a submission may pend indefinitely, so writes are
// not bounded either.
func writeTimeout(apiTimeout time.Duration) time.Duration {
	if apiTimeout <= 0 {
		return 0
	}
	return apiTimeout + writeMargin
}

// DefaultSettings returns the settings used when a value is left zero.
func DefaultSettings() Settings {
	return Settings{
		ResetOnSuccess: true,
		SessionTTL:     2 * time.Hour,
		MaxSessions:    1000,
		PostsPerMinute: 60,
		RecentEntries:  10,
		EntriesTTL:     time.Minute,
	}
}

// Server serves the transaction form.
type Server struct {
	http.Server

	deps      Dependencies
	settings  Settings
	templates *template.Template
	sessions  *sessionStore
	entries   *cache.LRUCache[[]core.EntryRow]
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	logger    *log.Logger
	events    *log.StructuredLogger
	started   time.Time

	background   sync.WaitGroup
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// server.
func NewServer(addr string, deps Dependencies, settings Settings) (*Server, error) {
	if deps.Loader == nil || deps.Sink == nil {
		return nil, errors.New("server needs an option loader and an entry sink")
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	settings = withDefaults(settings)

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"euros": core.FormatEuros,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		deps:      deps,
		settings:  settings,
		templates: tmpl,
		entries:   cache.NewLRUCache[[]core.EntryRow](1, settings.EntriesTTL),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: settings.PostsPerMinute,
			Methods:           []string{http.MethodPost},
		}),
		detector: security.NewDetector(),
		logger:   deps.Logger.WithComponent(log.ComponentHTTP),
		events:   log.NewStructuredLogger(deps.Logger),
		started:  time.Now(),
	}
	s.sessions = newSessionStore(settings.MaxSessions, settings.SessionTTL, s.newSession, deps.Loader.Load)
	s.tracer = trace.NewMiddleware(deps.Logger, deps.Metrics, s.detector.ExtractClientIP)

	if deps.Caches != nil {
		deps.Caches.Register("sessions", s.sessions.sessions)
		deps.Caches.Register("entries", s.entries)
	}

	mux := http.NewServeMux()
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("/static/", security.StaticAssets(3600)(http.StripPrefix("/static/", http.FileServer(http.FS(sub)))))

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/options", s.handleOptions)
	mux.HandleFunc("/entries", s.handleSubmit)
	mux.HandleFunc("/ui/field", s.handleField)
	mux.HandleFunc("/ui/reload", s.handleReload)
	mux.HandleFunc("/ui/entries", s.handleEntries)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout(settings.APITimeout),
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s, nil
}

func withDefaults(s Settings) Settings {
	def := DefaultSettings()
	if s.SessionTTL <= 0 {
		s.SessionTTL = def.SessionTTL
	}
	if s.MaxSessions <= 0 {
		s.MaxSessions = def.MaxSessions
	}
	if s.PostsPerMinute <= 0 {
		s.PostsPerMinute = def.PostsPerMinute
	}
	if s.RecentEntries <= 0 {
		s.RecentEntries = def.RecentEntries
	}
	if s.EntriesTTL <= 0 {
		s.EntriesTTL = def.EntriesTTL
	}
	return s
}

// middleware wraps every route, outermost first: tracing, request-scoped
// logger, security headers, probe detection, POST rate limit.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(next)
	h = s.detector.Middleware(s.deps.Logger)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = log.Middleware(s.logger)(h)
	return s.tracer.Handler(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, msgRateLimited).Write(w)
}

func (s *Server) newSession(id string) *session {
	return &session{
		id: id,
		composer: composer.New(s.deps.Sink,
			composer.WithResetOnSuccess(s.settings.ResetOnSuccess),
			composer.WithRejectBlankNewValues(s.settings.RejectBlankNewValues),
			composer.WithOnAdded(s.invalidateEntries),
			composer.WithLogger(s.deps.Logger.WithComponent(log.ComponentComposer).With(log.FieldSessionID, id)),
			composer.WithMetrics(s.deps.Metrics),
		),
	}
}

// invalidateEntries drops the cached recent entries; it runs after every
// recorded entry.
func (s *Server) invalidateEntries() {
	s.entries.Delete(recentEntriesKey)
}

// Shutdown stops the rate limiter, drains the HTTP server and waits for
// pending entry events.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)

		done := make(chan struct{})
		go func() {
			s.background.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	})
	return err
}
