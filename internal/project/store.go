package project

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var ErrNotFound = errors.New("project not found")

const (
	readCacheSize = 256
	readCacheTTL  = 30 * time.Second
)

// Store keeps project records either in a single JSON file or in Postgres,
// depending on how it was constructed. Postgres reads go through a small
// expiring LRU so hot records skip the round trip.
type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]Record

	schemaOnce sync.Once
	schemaErr  error

	reads *expirable.LRU[string, Record]
}

// NewFile returns a store backed by one JSON file at path.
func NewFile(path string) *Store {
	return &Store{path: path, byID: make(map[string]Record)}
}

func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:    db,
		reads: expirable.NewLRU[string, Record](readCacheSize, nil, readCacheTTL),
	}, nil
}

// NewFromEnv prefers Postgres when PROJECT_STORE_PG_DSN is set and reachable,
// falling back to the file backend.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("PROJECT_STORE_PG_DSN"))
	if dsn == "" {
		return NewFile(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return NewFile(path)
	}
	return s
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrNotFound
	}
	if s.db != nil {
		if rec, ok := s.reads.Get(id); ok {
			return rec, nil
		}
		rec, err := s.getDB(ctx, id)
		if err != nil {
			return Record{}, err
		}
		s.reads.Add(id, rec)
		return rec, nil
	}
	return s.getFile(id)
}

func (s *Store) Put(ctx context.Context, rec Record) (Record, error) {
	rec = normalize(rec)
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = NewID()
		rec.CreatedAt = now
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if s.db != nil {
		if err := s.putDB(ctx, rec); err != nil {
			return Record{}, err
		}
		s.reads.Add(rec.ID, rec)
		return rec, nil
	}
	return rec, s.putFile(rec)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	if s.db != nil {
		s.reads.Remove(id)
		return s.deleteDB(ctx, id)
	}
	return s.deleteFile(id)
}

func (s *Store) List(ctx context.Context) ([]Record, error) {
	if s.db != nil {
		return s.listDB(ctx)
	}
	return s.listFile()
}
