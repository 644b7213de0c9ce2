package device

import (
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/1ureka/udplink/internal/util"
)

// Handler is a user callback invoked with a message's send timestamp and
// payload. Handlers for one device never run concurrently with each other.
type Handler func(sendTime time.Time, payload []byte)

// dispatcher runs handlers either inline on the receive goroutine (the
// default) or on a single-worker ants pool. A pool of size one keeps
// dispatch serialized per device, which the ordering guarantee depends on.
type dispatcher struct {
	pool *ants.Pool // nil → inline dispatch
}

func newDispatcher(async bool) (*dispatcher, error) {
	if !async {
		return &dispatcher{}, nil
	}
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}
	return &dispatcher{pool: pool}, nil
}

// run executes fn according to the dispatch strategy.
func (p *dispatcher) run(fn func()) {
	if p.pool == nil {
		fn()
		return
	}
	if err := p.pool.Submit(fn); err != nil {
		util.LogWarning("handler dispatch rejected: %v", err)
	}
}

// release tears down the pool, if any. In-flight handlers finish on their own.
func (p *dispatcher) release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
