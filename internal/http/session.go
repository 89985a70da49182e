package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finform/internal/cache"
	"finform/internal/composer"
	"finform/internal/core"

	"github.com/google/uuid"
)

// SessionCookie names the cookie holding the form session ID.
const SessionCookie = "finform_session"

// session is one open form: its option snapshot and its composer.
type session struct {
	id       string
	composer *composer.Composer

	mount   sync.Once
	mu      sync.RWMutex
	options core.Options
}

func (s *session) Options() core.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options
}

func (s *session) setOptions(o core.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = o
}

// sessionStore keeps sessions in an LRU cache whose TTL is extended on use.
type sessionStore struct {
	sessions *cache.LRUCache[*session]
	ttl      time.Duration
	newFn    func(id string) *session
	load     func(ctx context.Context) core.Options
}

func newSessionStore(maxSize int, ttl time.Duration, newFn func(id string) *session, load func(ctx context.Context) core.Options) *sessionStore {
	return &sessionStore{
		sessions: cache.NewLRUCache[*session](maxSize, ttl, cache.WithSlidingTTL()),
		ttl:      ttl,
		newFn:    newFn,
		load:     load,
	}
}

// get returns the session named by the request cookie, creating and
// mounting one when there is none. A fresh cookie is written whenever the
// request did not carry a valid one.
func (st *sessionStore) get(w http.ResponseWriter, r *http.Request) *session {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id = parsed.String()
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	sess, _ := st.sessions.GetOrCreate(id, func() *session { return st.newFn(id) })

	sess.mount.Do(func() {
		sess.setOptions(st.load(r.Context()))
	})

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(st.ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// remount reloads the options of sess.
func (st *sessionStore) remount(ctx context.Context, sess *session) {
	sess.setOptions(st.load(ctx))
}

func (st *sessionStore) size() int {
	return st.sessions.Size()
}
