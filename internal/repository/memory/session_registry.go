package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// sessionEntry carries the per-session mutex that serializes turns.
type sessionEntry struct {
	mu       sync.Mutex
	LastSeen time.Time
}

// SessionRegistry tracks live dialogue sessions in memory. Its job is
// turn serialization: two concurrent turns on the same session id must
// run one after the other. Idle sessions fall out of the cache; the
// durable history lives in Postgres regardless.
type SessionRegistry struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewSessionRegistry() *SessionRegistry {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionRegistry{
		cache: c,
	}
}

// Acquire returns the mutex guarding the session, creating the entry if
// the session is new or was evicted. Callers hold the mutex for the
// duration of one turn and call Release afterwards. The entry is pinned
// without expiry while acquired, so a slow turn cannot be evicted and
// race a second mutex for the same session.
func (r *SessionRegistry) Acquire(sessionID uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionID.String()
	if x, found := r.cache.Get(key); found {
		entry := x.(*sessionEntry)
		entry.LastSeen = time.Now()
		r.cache.Set(key, entry, cache.NoExpiration)
		return &entry.mu
	}

	entry := &sessionEntry{LastSeen: time.Now()}
	r.cache.Set(key, entry, cache.NoExpiration)
	return &entry.mu
}

// Release puts the session back on the idle clock. The entry stays in
// the cache until the default expiration elapses without activity.
func (r *SessionRegistry) Release(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionID.String()
	if x, found := r.cache.Get(key); found {
		r.cache.Set(key, x, cache.DefaultExpiration)
	}
}

// Touch registers a session without handing out its lock.
func (r *SessionRegistry) Touch(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionID.String()
	if x, found := r.cache.Get(key); found {
		entry := x.(*sessionEntry)
		entry.LastSeen = time.Now()
		r.cache.Set(key, entry, cache.DefaultExpiration)
		return
	}
	r.cache.Set(key, &sessionEntry{LastSeen: time.Now()}, cache.DefaultExpiration)
}

// Delete drops the session entry, e.g. after a reset.
func (r *SessionRegistry) Delete(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(sessionID.String())
}

// Len reports how many sessions are currently tracked.
func (r *SessionRegistry) Len() int {
	return r.cache.ItemCount()
}
