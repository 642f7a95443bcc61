package oauth

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ClientStore, UserStore and GrantStore each guard their own map with
// an independent mutex — never acquired together, and never in a
// fixed cross-store order, so the registrar/authorizer/issuer split
// this mirrors can't deadlock against itself.

// ClientStore holds registered OAuth2 clients.
type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewClientStore() *ClientStore {
	return &ClientStore{clients: make(map[string]Client)}
}

func (s *ClientStore) Register(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
}

func (s *ClientStore) Get(id string) (Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	return c, ok
}

// UserStore holds resource-owner accounts.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]User)}
}

func (s *UserStore) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
}

func (s *UserStore) Get(username string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	return u, ok
}

// GrantStore holds outstanding authorization codes and issued refresh
// tokens. A code is deleted the first time it is looked up, whether or
// not the exchange then succeeds — the RFC 6749 single-use requirement.
type GrantStore struct {
	mu       sync.Mutex
	grants   map[string]Grant
	refresh  map[string]RefreshRecord
}

func NewGrantStore() *GrantStore {
	return &GrantStore{
		grants:  make(map[string]Grant),
		refresh: make(map[string]RefreshRecord),
	}
}

func (s *GrantStore) PutGrant(g Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[g.Code] = g
}

// TakeGrant returns and deletes the grant for code, if present and
// unexpired. A second call with the same code always misses.
func (s *GrantStore) TakeGrant(code string, now time.Time) (Grant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[code]
	if !ok {
		return Grant{}, false
	}
	delete(s.grants, code)
	if g.Expired(now) {
		return Grant{}, false
	}
	return g, true
}

func (s *GrantStore) PutRefresh(r RefreshRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[r.Token] = r
}

func (s *GrantStore) GetRefresh(token string) (RefreshRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.refresh[token]
	return r, ok
}

// RevokeRefresh invalidates a refresh token, e.g. after it's rotated
// on use.
func (s *GrantStore) RevokeRefresh(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, token)
}

// sqliteRegistry backs ClientStore (through PersistentClientStore) with
// a SQLite table via modernc.org/sqlite's pure-Go driver, for
// deployments that want registrations to survive a restart instead of
// being re-declared from config on every boot. Loading happens once
// at startup; the in-memory maps remain the hot path every request
// actually hits. The oauth_users table is created but nothing reads or
// writes it; UserStore is in-memory only.
type sqliteRegistry struct {
	db *sql.DB
}

func openSQLiteRegistry(dsn string) (*sqliteRegistry, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("oauth: open sqlite registry: %w", err)
	}
	schema := `
CREATE TABLE IF NOT EXISTS oauth_clients (
	id TEXT PRIMARY KEY,
	secret TEXT NOT NULL,
	redirect_uris TEXT NOT NULL,
	default_scope TEXT NOT NULL,
	allowed_grants TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS oauth_users (
	username TEXT PRIMARY KEY,
	crypt_hash TEXT NOT NULL,
	permissions TEXT NOT NULL,
	display_name TEXT NOT NULL,
	email TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("oauth: migrate sqlite registry: %w", err)
	}
	return &sqliteRegistry{db: db}, nil
}

func (r *sqliteRegistry) Close() error { return r.db.Close() }

func (r *sqliteRegistry) upsertClient(ctx context.Context, c Client) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO oauth_clients (id, secret, redirect_uris, default_scope, allowed_grants)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET secret=excluded.secret, redirect_uris=excluded.redirect_uris,
		   default_scope=excluded.default_scope, allowed_grants=excluded.allowed_grants`,
		c.ID, c.Secret, joinComma(c.RedirectURIs), c.DefaultScope, joinComma(c.AllowedGrants))
	return err
}

func (r *sqliteRegistry) loadClients(ctx context.Context) ([]Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, secret, redirect_uris, default_scope, allowed_grants FROM oauth_clients`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		var redirects, grants string
		if err := rows.Scan(&c.ID, &c.Secret, &redirects, &c.DefaultScope, &grants); err != nil {
			return nil, err
		}
		c.RedirectURIs = splitComma(redirects)
		c.AllowedGrants = splitComma(grants)
		out = append(out, c)
	}
	return out, rows.Err()
}

// PersistentClientStore wraps a ClientStore with a SQLite-backed
// registry so registrations survive a restart: NewPersistentClientStore
// loads every previously registered client into the in-memory store up
// front, and Register writes through to both.
type PersistentClientStore struct {
	*ClientStore
	registry *sqliteRegistry
}

// NewPersistentClientStore opens (creating if needed) a SQLite
// database at dsn, loads its registered clients into memory, and
// returns a store whose Register call persists new registrations.
func NewPersistentClientStore(dsn string) (*PersistentClientStore, error) {
	registry, err := openSQLiteRegistry(dsn)
	if err != nil {
		return nil, err
	}
	store := NewClientStore()

	clients, err := registry.loadClients(context.Background())
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("oauth: load persisted clients: %w", err)
	}
	for _, c := range clients {
		store.Register(c)
	}

	return &PersistentClientStore{ClientStore: store, registry: registry}, nil
}

// Register adds or updates a client in memory and persists it to
// SQLite. The in-memory store is updated first so a persistence
// failure doesn't leave a half-registered client invisible to
// requests already holding a reference to this store.
func (s *PersistentClientStore) Register(c Client) error {
	s.ClientStore.Register(c)
	return s.registry.upsertClient(context.Background(), c)
}

// Close releases the underlying SQLite connection.
func (s *PersistentClientStore) Close() error {
	return s.registry.Close()
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
