// Package domaintest provides in-memory fakes of the domain interfaces for tests
package domaintest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Conte777/media-relay/internal/domain"
)

// MediaCall records one SendMedia call
type MediaCall struct {
	Dest   domain.ChatRef
	Upload domain.Upload
}

// GroupCall records one SendMediaGroup call
type GroupCall struct {
	Dest    domain.ChatRef
	Uploads []domain.Upload
}

// CopyCall records one CopyMessages call
type CopyCall struct {
	Dest domain.ChatRef
	From domain.ChatRef
	IDs  []int
}

// Connection is a scriptable domain.Connection
type Connection struct {
	mu sync.Mutex

	ScopeValue domain.Scope
	Account    *domain.Account
	Token      string

	// login behaviour
	Code             string
	Password         string
	SendCodeErr      error
	SignInErr        error
	CheckPasswordErr error
	ExportErr        error

	// relay behaviour
	Items           map[int]*domain.Item
	ResolveErr      map[int]error
	DownloadErr     map[int]error
	DownloadContent []byte
	BeforeDownload  func(ctx context.Context, item *domain.Item) error
	SendMediaErr    func(call int, upload domain.Upload) error
	SendGroupErr    error
	SendTextErr     error
	CopyErr         error
	RecentGroup     []domain.Sent
	// OmitIDs makes sends succeed without reporting message ids
	OmitIDs bool

	// recorded calls
	MediaCalls []MediaCall
	GroupCalls []GroupCall
	TextCalls  []domain.ChatRef
	CopyCalls  []CopyCall
	CloseCount int

	connector *Connector
	signedIn  *domain.Account
	nextID    int
}

// NewDurable creates a durable connection for account
func NewDurable(account *domain.Account) *Connection {
	return &Connection{ScopeValue: domain.ScopeDurable, Account: account}
}

func (c *Connection) Scope() domain.Scope {
	return c.ScopeValue
}

func (c *Connection) Self(context.Context) (*domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ScopeValue != domain.ScopeDurable {
		return nil, domain.ErrWrongScope
	}
	if c.Account == nil {
		return &domain.Account{}, nil
	}
	acc := *c.Account
	return &acc, nil
}

func (c *Connection) SendCode(_ context.Context, phone string) (string, error) {
	if c.SendCodeErr != nil {
		return "", c.SendCodeErr
	}
	return "hash-" + phone, nil
}

func (c *Connection) SignIn(_ context.Context, phone, code, codeHash string) (*domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SignInErr != nil {
		return nil, c.SignInErr
	}
	if codeHash != "hash-"+phone || (c.Code != "" && code != c.Code) {
		return nil, domain.ErrPhoneCodeInvalid
	}
	if c.Password != "" {
		return nil, domain.ErrPasswordRequired
	}
	c.signedIn = c.accountFor(phone)
	return c.signedIn, nil
}

func (c *Connection) CheckPassword(_ context.Context, password string) (*domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.CheckPasswordErr != nil {
		return nil, c.CheckPasswordErr
	}
	if password != c.Password {
		return nil, domain.ErrPasswordInvalid
	}
	c.signedIn = c.accountFor("")
	return c.signedIn, nil
}

func (c *Connection) ExportToken(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ExportErr != nil {
		return "", c.ExportErr
	}
	if c.signedIn == nil {
		return "", domain.ErrWrongScope
	}
	if c.connector != nil {
		c.connector.Register(c.Token, c.signedIn)
	}
	return c.Token, nil
}

func (c *Connection) accountFor(phone string) *domain.Account {
	if c.Account != nil {
		return c.Account
	}
	return &domain.Account{ID: 1000, Phone: phone}
}

func (c *Connection) Resolve(_ context.Context, loc domain.Locator) (*domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ResolveErr[loc.MessageID]; err != nil {
		return nil, err
	}
	item, ok := c.Items[loc.MessageID]
	if !ok {
		return nil, domain.ErrResourceNotFound
	}
	cp := *item
	cp.Locator = loc
	return &cp, nil
}

func (c *Connection) ResolveGroup(_ context.Context, loc domain.Locator, groupID int64) ([]*domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*domain.Item
	for id := loc.MessageID - 10; id <= loc.MessageID+10; id++ {
		item, ok := c.Items[id]
		if !ok || item.GroupID != groupID {
			continue
		}
		cp := *item
		cp.Locator = domain.Locator{Chat: loc.Chat, MessageID: id}
		out = append(out, &cp)
	}
	if len(out) == 0 {
		return nil, domain.ErrResourceNotFound
	}
	return out, nil
}

func (c *Connection) Download(ctx context.Context, item *domain.Item, path string, onProgress domain.ProgressFunc) (string, error) {
	if c.BeforeDownload != nil {
		if err := c.BeforeDownload(ctx, item); err != nil {
			return "", err
		}
	}

	c.mu.Lock()
	err := c.DownloadErr[item.Locator.MessageID]
	content := c.DownloadContent
	c.mu.Unlock()

	if err != nil {
		return "", err
	}
	if content == nil {
		content = []byte("media")
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", err
	}
	if onProgress != nil {
		onProgress(int64(len(content)), int64(len(content)))
	}
	return path, nil
}

func (c *Connection) SendText(_ context.Context, dest domain.ChatRef, _ string) (domain.Sent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.TextCalls = append(c.TextCalls, dest)
	if c.SendTextErr != nil {
		return domain.Sent{}, c.SendTextErr
	}
	return c.sent(dest), nil
}

func (c *Connection) SendMedia(_ context.Context, dest domain.ChatRef, upload domain.Upload) (domain.Sent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(upload.Path); err != nil {
		return domain.Sent{}, fmt.Errorf("upload %s: %w", filepath.Base(upload.Path), err)
	}
	c.MediaCalls = append(c.MediaCalls, MediaCall{Dest: dest, Upload: upload})
	if c.SendMediaErr != nil {
		if err := c.SendMediaErr(len(c.MediaCalls), upload); err != nil {
			return domain.Sent{}, err
		}
	}
	return c.sent(dest), nil
}

func (c *Connection) SendMediaGroup(_ context.Context, dest domain.ChatRef, uploads []domain.Upload) ([]domain.Sent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GroupCalls = append(c.GroupCalls, GroupCall{Dest: dest, Uploads: uploads})
	if c.SendGroupErr != nil {
		return nil, c.SendGroupErr
	}
	out := make([]domain.Sent, 0, len(uploads))
	for range uploads {
		out = append(out, c.sent(dest))
	}
	return out, nil
}

func (c *Connection) CopyMessages(_ context.Context, dest, from domain.ChatRef, ids []int) ([]domain.Sent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CopyCalls = append(c.CopyCalls, CopyCall{Dest: dest, From: from, IDs: append([]int(nil), ids...)})
	if c.CopyErr != nil {
		return nil, c.CopyErr
	}
	out := make([]domain.Sent, 0, len(ids))
	for range ids {
		out = append(out, c.sent(dest))
	}
	return out, nil
}

func (c *Connection) FindRecentGroup(_ context.Context, _ domain.ChatRef, count int, _ time.Time) ([]domain.Sent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.RecentGroup) != count {
		return nil, nil
	}
	return c.RecentGroup, nil
}

func (c *Connection) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CloseCount++
	return nil
}

// Closed reports whether Close was called
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.CloseCount > 0
}

// Snapshot returns copies of the recorded send calls
func (c *Connection) Snapshot() (media []MediaCall, groups []GroupCall, copies []CopyCall) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]MediaCall(nil), c.MediaCalls...),
		append([]GroupCall(nil), c.GroupCalls...),
		append([]CopyCall(nil), c.CopyCalls...)
}

func (c *Connection) sent(dest domain.ChatRef) domain.Sent {
	if c.OmitIDs {
		return domain.Sent{ChatID: dest.ID}
	}
	c.nextID++
	return domain.Sent{ChatID: dest.ID, ID: c.nextID}
}

var _ domain.Connection = (*Connection)(nil)
