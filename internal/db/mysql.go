package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/atinyakov/FoodDiary/internal/models"
)

// Opener opens a database handle for a DSN.
type Opener func(dsn string) (*sql.DB, error)

func openMySQL(dsn string) (*sql.DB, error) {
	return sql.Open("mysql", dsn)
}

// MySQLDSN builds a driver DSN from a mirror connection config.
func MySQLDSN(cfg models.ConnConfig) string {
	cfg = cfg.WithDefaults()

	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Loc = time.UTC
	c.Timeout = 5 * time.Second
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

type pool struct {
	db       *sql.DB
	lastUsed time.Time
	// schemaReady is set once the mirror table is known to exist.
	schemaReady bool
}

// MySQLPools caches one connection pool per mirror config, since every
// request carries its own credentials.
type MySQLPools struct {
	mu    sync.Mutex
	pools map[string]*pool
	open  Opener
	now   func() time.Time
}

// NewMySQLPools creates an empty cache. A nil opener uses the mysql driver.
func NewMySQLPools(open Opener) *MySQLPools {
	if open == nil {
		open = openMySQL
	}
	return &MySQLPools{
		pools: make(map[string]*pool),
		open:  open,
		now:   time.Now,
	}
}

// Get returns the pool for cfg, opening and pinging it on first use.
func (p *MySQLPools) Get(ctx context.Context, cfg models.ConnConfig) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dsn := MySQLDSN(cfg)

	p.mu.Lock()
	if cached, ok := p.pools[dsn]; ok {
		cached.lastUsed = p.now()
		p.mu.Unlock()
		return cached.db, nil
	}
	p.mu.Unlock()

	db, err := p.open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(time.Minute)

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.pools[dsn]; ok {
		// Lost the race to another request.
		_ = db.Close()
		cached.lastUsed = p.now()
		return cached.db, nil
	}
	p.pools[dsn] = &pool{db: db, lastUsed: p.now()}
	return db, nil
}

// SchemaReady reports whether MarkSchemaReady was called for db while it
// is cached. A pool reopened after eviction starts unmarked.
func (p *MySQLPools) SchemaReady(db *sql.DB) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cached := p.lookup(db)
	return cached != nil && cached.schemaReady
}

// MarkSchemaReady records that the mirror table exists behind db.
// Pools that are no longer cached are ignored.
func (p *MySQLPools) MarkSchemaReady(db *sql.DB) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cached := p.lookup(db); cached != nil {
		cached.schemaReady = true
	}
}

// lookup must be called with mu held.
func (p *MySQLPools) lookup(db *sql.DB) *pool {
	for _, cached := range p.pools {
		if cached.db == db {
			return cached
		}
	}
	return nil
}

// Len reports the number of open pools.
func (p *MySQLPools) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pools)
}

// CloseIdle closes pools unused for longer than ttl and returns how many were closed.
func (p *MySQLPools) CloseIdle(ttl time.Duration) int {
	cutoff := p.now().Add(-ttl)

	p.mu.Lock()
	var stale []*sql.DB
	for dsn, cached := range p.pools {
		if cached.lastUsed.Before(cutoff) {
			stale = append(stale, cached.db)
			delete(p.pools, dsn)
		}
	}
	p.mu.Unlock()

	for _, db := range stale {
		_ = db.Close()
	}
	return len(stale)
}

// Close closes every pool.
func (p *MySQLPools) Close() error {
	p.mu.Lock()
	pools := p.pools
	p.pools = make(map[string]*pool)
	p.mu.Unlock()

	var firstErr error
	for _, cached := range pools {
		if err := cached.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
