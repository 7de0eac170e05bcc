package memory

import (
	"strconv"
	"time"

	"knowledge-chat-be/pkg/llm"

	"github.com/patrickmn/go-cache"
)

// SessionRepository maps conversation ids to live chat sessions.
// It is the source of truth while a session is resident; nothing is persisted.
type SessionRepository struct {
	cache   *cache.Cache
	idleTTL time.Duration
}

// NewSessionRepository keeps sessions until deleted. A positive idleTTL
// evicts sessions that have not been saved or read for that long instead.
func NewSessionRepository(idleTTL time.Duration) *SessionRepository {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if idleTTL > 0 {
		expiration = idleTTL
		cleanup = idleTTL / 2
	} else {
		idleTTL = 0
	}
	return &SessionRepository{
		cache:   cache.New(expiration, cleanup),
		idleTTL: idleTTL,
	}
}

func key(convID int64) string {
	return strconv.FormatInt(convID, 10)
}

// Save inserts or overwrites; last write wins.
func (r *SessionRepository) Save(convID int64, session llm.Session) {
	r.cache.Set(key(convID), session, cache.DefaultExpiration)
}

// Get returns the resident session. With an idle TTL a hit restarts the
// session's expiry.
func (r *SessionRepository) Get(convID int64) (llm.Session, bool) {
	k := key(convID)
	x, found := r.cache.Get(k)
	if !found {
		return nil, false
	}
	if r.idleTTL > 0 {
		r.cache.Set(k, x, cache.DefaultExpiration)
	}
	return x.(llm.Session), true
}

// Delete reports whether a session was present.
func (r *SessionRepository) Delete(convID int64) bool {
	k := key(convID)
	if _, found := r.cache.Get(k); !found {
		return false
	}
	r.cache.Delete(k)
	return true
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

func (r *SessionRepository) Flush() {
	r.cache.Flush()
}
