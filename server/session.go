package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/michaelpento.lv/cwflash/config"
	"github.com/michaelpento.lv/cwflash/form"
	"github.com/michaelpento.lv/cwflash/ui"
)

const sessionCookie = "cwflash_session"

// session holds the per-browser loan form and pending toasts. Sessions are
// memory only.
type session struct {
	ID      string
	Form    *form.Form
	Toasts  *ui.Queue
	Created time.Time
}

type sessionStore struct {
	chain config.ChainConfig

	mu    sync.Mutex
	cache *lru.Cache
}

func newSessionStore(size int, chain config.ChainConfig) (*sessionStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &sessionStore{chain: chain, cache: cache}, nil
}

// get returns the session named by the request cookie, creating one (and
// setting the cookie) when it is missing or was evicted.
func (s *sessionStore) get(w http.ResponseWriter, r *http.Request) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, err := r.Cookie(sessionCookie); err == nil {
		if v, ok := s.cache.Get(c.Value); ok {
			return v.(*session)
		}
	}

	sess := &session{
		ID:      uuid.NewString(),
		Form:    form.New(s.chain.AddressPrefix, s.chain.DenomExponent),
		Toasts:  ui.NewQueue(s.chain.ExplorerTxPrefix, 0),
		Created: time.Now(),
	}
	s.cache.Add(sess.ID, sess)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (s *sessionStore) Len() int {
	return s.cache.Len()
}
