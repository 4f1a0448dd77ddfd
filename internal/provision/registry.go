package provision

import (
	"sort"
	"sync"

	"github.com/3-lines-studio/bifrost-graphql/internal/graphql"
)

// Registry holds the browser-side clients of one session, one per key.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*graphql.Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*graphql.Client),
	}
}

func (r *Registry) Get(key string) (*graphql.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[key]
	return c, ok
}

// GetOrCreate returns the client stored under key, building and storing
// one on a miss. created reports whether build ran. The lock is held
// across build so concurrent callers never build twice.
func (r *Registry) GetOrCreate(key string, build func() (*graphql.Client, error)) (client *graphql.Client, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[key]; ok {
		return c, false, nil
	}

	c, err := build()
	if err != nil {
		return nil, false, err
	}
	r.clients[key] = c
	return c, true, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.clients))
	for k := range r.clients {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) Reset() {
	r.mu.Lock()
	r.clients = make(map[string]*graphql.Client)
	r.mu.Unlock()
}
