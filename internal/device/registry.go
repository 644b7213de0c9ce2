package device

import (
	"fmt"
	"sync"

	"github.com/1ureka/udplink/internal/protocol"
)

// registry maps message types to handlers. The lock covers insertion and
// lookup only — handlers always execute outside it.
type registry struct {
	mu       sync.Mutex
	handlers map[protocol.MessageType]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[protocol.MessageType]Handler)}
}

// register adds a mapping. The first registration for a type wins; a
// duplicate returns ErrAlreadyRegistered without replacing it.
func (r *registry) register(msgType protocol.MessageType, fn Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[msgType]; exists {
		return fmt.Errorf("%w: %d", ErrAlreadyRegistered, msgType)
	}
	r.handlers[msgType] = fn
	return nil
}

// lookup returns the handler for a message type, if any.
func (r *registry) lookup(msgType protocol.MessageType) (Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.handlers[msgType]
	return fn, ok
}
