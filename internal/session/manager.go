package session

import (
	"strings"
	"sync"

	"finsight/internal/cache"
)

// Manager keeps one Session per username in an LRU cache. A session that is
// evicted or expires is simply recreated and reloaded on the next request.
type Manager struct {
	opts Options

	mu       sync.Mutex
	sessions *cache.LRUCache[*Session]
}

func NewManager(opts Options) *Manager {
	opts.defaults()
	return &Manager{
		opts:     opts,
		sessions: cache.NewLRUCache[*Session](opts.MaxSessions, opts.SessionTTL),
	}
}

// Get returns the session of username, creating an unloaded one on first
// use. The second result is true when the session was just created. Every
// call restarts the session's idle timer.
func (m *Manager) Get(username string) (*Session, bool) {
	username = strings.TrimSpace(username)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions.Get(username)
	if !ok {
		s = New(m.opts)
	}
	m.sessions.Set(username, s)
	return s, !ok
}

// Drop forgets the session of username.
func (m *Manager) Drop(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Delete(strings.TrimSpace(username))
}

func (m *Manager) Len() int {
	return m.sessions.Size()
}

// Cache exposes the session store so a janitor can sweep idle sessions.
func (m *Manager) Cache() cache.Cleaner {
	return m.sessions
}
