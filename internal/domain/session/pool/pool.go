package pool

import (
	"sync"

	"github.com/Conte777/media-relay/internal/domain"
	"github.com/Conte777/media-relay/internal/domain/session/entities"
)

// Pool holds durable connections keyed by user id plus the primary pointer.
// Every mutation happens under one lock so readers never see a half-updated primary.
type Pool struct {
	mu       sync.RWMutex
	conns    map[int64]domain.Connection
	order    []int64 // insertion order, most recent last
	primary  domain.Connection
	fallback domain.Connection
}

// New creates an empty pool
func New() *Pool {
	return &Pool{
		conns: make(map[int64]domain.Connection),
	}
}

// Add inserts conn for userID and returns the connection it replaced, if any.
// The first connection added to an empty pool becomes primary.
func (p *Pool) Add(userID int64, conn domain.Connection) domain.Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	old, existed := p.conns[userID]
	if existed {
		p.dropOrder(userID)
	}
	p.conns[userID] = conn
	p.order = append(p.order, userID)

	if p.primary == nil || (existed && p.primary == old) {
		p.primary = conn
	}

	return old
}

// Remove deletes the connection of userID and reassigns primary if needed:
// most recently added user connection, then the fallback, then nil.
func (p *Pool) Remove(userID int64) (domain.Connection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, ok := p.conns[userID]
	if !ok {
		return nil, false
	}
	delete(p.conns, userID)
	p.dropOrder(userID)

	if p.primary == conn {
		p.primary = p.nextPrimary()
	}

	return conn, true
}

// Get returns the connection of userID
func (p *Pool) Get(userID int64) (domain.Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conn, ok := p.conns[userID]
	return conn, ok
}

// Primary returns the connection used when no user-specific one applies
func (p *Pool) Primary() domain.Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.primary
}

// For returns the user's connection, else primary, else nil.
// The second result is true when the returned connection is not the user's own.
func (p *Pool) For(userID int64) (domain.Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if conn, ok := p.conns[userID]; ok {
		return conn, false
	}
	return p.primary, p.primary != nil
}

// SetFallback registers the operator-provided connection.
// It becomes primary only when no user connection exists.
func (p *Pool) SetFallback(conn domain.Connection) domain.Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.fallback
	p.fallback = conn
	if p.primary == nil || p.primary == old {
		p.primary = p.nextPrimary()
	}
	return old
}

// Fallback returns the operator-provided connection
func (p *Pool) Fallback() domain.Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.fallback
}

// Size returns the number of user connections
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.conns)
}

// Stats returns a snapshot for status reporting
func (p *Pool) Stats() entities.PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return entities.PoolStats{
		Connections: len(p.conns),
		HasPrimary:  p.primary != nil,
		HasFallback: p.fallback != nil,
	}
}

// Drain empties the pool and returns every connection it held, fallback included
func (p *Pool) Drain() []domain.Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Connection, 0, len(p.conns)+1)
	for _, id := range p.order {
		out = append(out, p.conns[id])
	}
	if p.fallback != nil {
		out = append(out, p.fallback)
	}

	p.conns = make(map[int64]domain.Connection)
	p.order = nil
	p.primary = nil
	p.fallback = nil

	return out
}

func (p *Pool) nextPrimary() domain.Connection {
	if n := len(p.order); n > 0 {
		return p.conns[p.order[n-1]]
	}
	return p.fallback
}

func (p *Pool) dropOrder(userID int64) {
	for i, id := range p.order {
		if id == userID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}
