package login

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campuscal/adapter"
)

// CookieName carries the visitor's session id.
const CookieName = "campuscal_session"

const contextKey = "campuscal.login.process"

type visitor struct {
	process  *Process
	lastSeen time.Time
}

// Manager hands each browser session its own login Process, keyed by a
// random cookie. Sessions live in memory only; a restart simply makes
// visitors start over.
type Manager struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	registry *adapter.Registry
	store    adapter.CredentialStore
}

func NewManager(registry *adapter.Registry, store adapter.CredentialStore) *Manager {
	return &Manager{
		visitors: make(map[string]*visitor),
		registry: registry,
		store:    store,
	}
}

// Middleware attaches the visitor's Process to the request context,
// minting a session cookie on first contact.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetCookie(CookieName, id, int((24 * time.Hour).Seconds()), "/", "", false, true)
		}
		c.Set(contextKey, m.lookup(id))
		c.Next()
	}
}

// ProcessFrom fetches the Process the middleware attached.
func ProcessFrom(c *gin.Context) *Process {
	return c.MustGet(contextKey).(*Process)
}

func (m *Manager) lookup(id string) *Process {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.visitors[id]
	if !ok {
		v = &visitor{process: NewProcess(m.registry, m.store)}
		m.visitors[id] = v
	}
	v.lastSeen = time.Now()
	return v.process
}

// PruneStale drops sessions idle longer than maxAge. Run it periodically;
// an interrupted visitor loses nothing but an unfinished login form.
func (m *Manager) PruneStale(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0
	for id, v := range m.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(m.visitors, id)
			pruned++
		}
	}
	return pruned
}
