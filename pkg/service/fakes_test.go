package service

import (
	"context"
	"sync"
	"time"

	"urlshorten/pkg/storage"
)

// journal records the order of side effects across fakes.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type mockLinkStorage struct {
	mu    sync.Mutex
	links map[string]*storage.Link

	insertErrs   []error
	getErr       error
	incrementErr error
	getCalls     int

	journal *journal
}

func newMockLinkStorage() *mockLinkStorage {
	return &mockLinkStorage{links: make(map[string]*storage.Link)}
}

func (m *mockLinkStorage) Insert(_ context.Context, link *storage.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.insertErrs) > 0 {
		err := m.insertErrs[0]
		m.insertErrs = m.insertErrs[1:]
		return err
	}
	if _, ok := m.links[link.Token]; ok {
		return storage.ErrDuplicateToken
	}
	for _, l := range m.links {
		if l.LongURL == link.LongURL && l.OwnerID == link.OwnerID {
			return storage.ErrDuplicateLink
		}
	}
	stored := *link
	m.links[link.Token] = &stored
	return nil
}

func (m *mockLinkStorage) GetByToken(_ context.Context, token string) (*storage.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if l, ok := m.links[token]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (m *mockLinkStorage) GetByTokenAndOwner(_ context.Context, token, ownerID string) (*storage.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.links[token]; ok && l.OwnerID == ownerID {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (m *mockLinkStorage) ExistsByURLAndOwner(_ context.Context, longURL, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.LongURL == longURL && l.OwnerID == ownerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLinkStorage) ExistsByTokenAndOwner(_ context.Context, token, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[token]
	return ok && l.OwnerID == ownerID, nil
}

func (m *mockLinkStorage) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, token)
	m.journal.add("store.delete")
	return nil
}

func (m *mockLinkStorage) IncrementClickCount(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrementErr != nil {
		return m.incrementErr
	}
	if l, ok := m.links[token]; ok {
		l.ClickCount++
	}
	return nil
}

func (m *mockLinkStorage) GetClickCount(_ context.Context, token string) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.links[token]; ok {
		count := l.ClickCount
		return &count, nil
	}
	return nil, nil
}

func (m *mockLinkStorage) get(token string) *storage.Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[token]
}

type cacheEntry struct {
	value []byte
	ttl   time.Duration
}

type mockRedirectCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	getErr    error
	setErr    error
	removeErr error

	journal *journal
}

func newMockRedirectCache() *mockRedirectCache {
	return &mockRedirectCache{entries: make(map[string]cacheEntry)}
}

func (c *mockRedirectCache) Get(_ context.Context, token string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	if e, ok := c.entries[token]; ok {
		return e.value, nil
	}
	return nil, nil
}

func (c *mockRedirectCache) Set(_ context.Context, token string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[token] = cacheEntry{value: value, ttl: ttl}
	return nil
}

func (c *mockRedirectCache) Remove(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.journal.add("cache.remove")
	if c.removeErr != nil {
		return c.removeErr
	}
	delete(c.entries, token)
	return nil
}

func (c *mockRedirectCache) entry(token string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[token]
	return e, ok
}

// scriptedGenerator hands out tokens in order and repeats the last one.
type scriptedGenerator struct {
	mu     sync.Mutex
	tokens []string
	calls  int
	onCall func(n int)
}

func (g *scriptedGenerator) Generate(string) string {
	g.mu.Lock()
	g.calls++
	n := g.calls
	token := g.tokens[len(g.tokens)-1]
	if n <= len(g.tokens) {
		token = g.tokens[n-1]
	}
	onCall := g.onCall
	g.mu.Unlock()

	if onCall != nil {
		onCall(n)
	}
	return token
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type mockUserStorage struct {
	mu    sync.Mutex
	users map[string]*storage.User
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{users: make(map[string]*storage.User)}
}

func (m *mockUserStorage) Insert(_ context.Context, user *storage.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.UserID]; ok {
		return storage.ErrDuplicateUser
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserStorage) GetByID(_ context.Context, userID string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserStorage) Exists(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[userID]
	return ok, nil
}
