package domaintest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Conte777/media-relay/internal/domain"
)

// Connector hands out fake connections and remembers which token belongs to which account
type Connector struct {
	mu sync.Mutex

	// Configure is applied to every new ephemeral connection
	Configure    func(c *Connection)
	EphemeralErr error
	FromTokenErr map[string]error

	Ephemerals []*Connection
	Durables   []*Connection

	accounts map[string]*domain.Account
}

// NewConnector creates an empty connector
func NewConnector() *Connector {
	return &Connector{
		FromTokenErr: make(map[string]error),
		accounts:     make(map[string]*domain.Account),
	}
}

// Register makes token restorable to account
func (f *Connector) Register(token string, account *domain.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accounts[token] = account
}

func (f *Connector) Ephemeral(context.Context) (domain.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.EphemeralErr != nil {
		return nil, f.EphemeralErr
	}
	conn := &Connection{
		ScopeValue: domain.ScopeEphemeral,
		Token:      fmt.Sprintf("token-%d", len(f.Ephemerals)+1),
		connector:  f,
	}
	if f.Configure != nil {
		f.Configure(conn)
	}
	f.Ephemerals = append(f.Ephemerals, conn)
	return conn, nil
}

func (f *Connector) FromToken(_ context.Context, token string) (domain.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.FromTokenErr[token]; err != nil {
		return nil, err
	}
	acc, ok := f.accounts[token]
	if !ok {
		return nil, domain.ErrSessionRevoked
	}
	conn := NewDurable(acc)
	conn.Token = token
	f.Durables = append(f.Durables, conn)
	return conn, nil
}

// LastEphemeral returns the most recently opened ephemeral connection
func (f *Connector) LastEphemeral() *Connection {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.Ephemerals) == 0 {
		return nil
	}
	return f.Ephemerals[len(f.Ephemerals)-1]
}

var _ domain.Connector = (*Connector)(nil)
