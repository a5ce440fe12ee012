package distributor

import (
	"fmt"
	"sync"

	"ceres/imap"
)

// Structs

// Registry tracks every live client connection keyed by
// its client address. It is the only state shared across
// connection goroutines and is guarded by a single mutex
// with short hold times.
type Registry struct {
	lock        sync.Mutex
	connections map[string]*Connection
}

// Functions

// NewRegistry initializes an empty connection registry.
func NewRegistry() *Registry {

	return &Registry{
		connections: make(map[string]*Connection),
	}
}

// Insert adds a connection to the registry at accept time.
func (r *Registry) Insert(c *Connection) {

	r.lock.Lock()
	defer r.lock.Unlock()

	r.connections[c.ClientAddr] = c
}

// Remove deletes the connection registered under the
// supplied client address and reports whether an entry
// was present. Teardown paths race on this, only the
// first caller sees true.
func (r *Registry) Remove(clientAddr string) bool {

	r.lock.Lock()
	defer r.lock.Unlock()

	_, found := r.connections[clientAddr]
	if found {
		delete(r.connections, clientAddr)
	}

	return found
}

// Get returns the session of the connection registered
// under the supplied client address.
func (r *Registry) Get(clientAddr string) (*imap.Session, bool) {

	r.lock.Lock()
	defer r.lock.Unlock()

	c, found := r.connections[clientAddr]
	if !found {
		return nil, false
	}

	return c.Session, true
}

// Size returns the number of live connections.
func (r *Registry) Size() int {

	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.connections)
}

// Send enqueues a response line on the outbound channel of
// the connection registered under the supplied address. It
// returns an error for addresses without a registry entry,
// sending to a removed connection is a programming error
// the caller has to surface.
func (r *Registry) Send(clientAddr string, text string) error {

	r.lock.Lock()
	c, found := r.connections[clientAddr]
	r.lock.Unlock()

	if !found {
		return fmt.Errorf("no registered connection for client address %s", clientAddr)
	}

	return c.Send(text)
}
