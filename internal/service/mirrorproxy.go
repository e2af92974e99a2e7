package service

import (
	"context"
	"database/sql"

	"github.com/atinyakov/FoodDiary/internal/models"
)

// MirrorRepository is the food_entries table of one mirror database.
type MirrorRepository interface {
	EnsureSchema(ctx context.Context) error
	List(ctx context.Context) ([]models.MirrorRow, error)
	Insert(ctx context.Context, e models.Entry) error
	ReplaceAll(ctx context.Context, entries []models.Entry) error
	Delete(ctx context.Context, id string) error
}

// MirrorPools resolves a connection pool for a mirror config and remembers
// which pools already have the food_entries table.
type MirrorPools interface {
	Get(ctx context.Context, cfg models.ConnConfig) (*sql.DB, error)
	SchemaReady(db *sql.DB) bool
	MarkSchemaReady(db *sql.DB)
}

// MirrorService proxies entry operations to the MySQL database named by
// each request's connection config.
type MirrorService struct {
	pools   MirrorPools
	newRepo func(*sql.DB) MirrorRepository
}

// NewMirrorService constructs a MirrorService. newRepo builds the repository
// for a resolved pool.
func NewMirrorService(pools MirrorPools, newRepo func(*sql.DB) MirrorRepository) *MirrorService {
	return &MirrorService{pools: pools, newRepo: newRepo}
}

// List returns every row of the mirror.
func (s *MirrorService) List(ctx context.Context, cfg models.ConnConfig) ([]models.MirrorRow, error) {
	repo, err := s.open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return repo.List(ctx)
}

// Insert adds one entry and returns its id.
func (s *MirrorService) Insert(ctx context.Context, cfg models.ConnConfig, item models.EntryJSON) (string, error) {
	e, err := decodeItem(item)
	if err != nil {
		return "", err
	}
	repo, err := s.open(ctx, cfg)
	if err != nil {
		return "", err
	}
	if err := repo.Insert(ctx, e); err != nil {
		return "", err
	}
	return e.ID, nil
}

// Replace overwrites the mirror with items and returns how many were written.
func (s *MirrorService) Replace(ctx context.Context, cfg models.ConnConfig, items []models.EntryJSON) (int, error) {
	entries, err := decodeItems(items)
	if err != nil {
		return 0, err
	}
	repo, err := s.open(ctx, cfg)
	if err != nil {
		return 0, err
	}
	if err := repo.ReplaceAll(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Delete removes the row with id.
func (s *MirrorService) Delete(ctx context.Context, cfg models.ConnConfig, id string) error {
	if id == "" {
		return ErrMissingID
	}
	repo, err := s.open(ctx, cfg)
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

func (s *MirrorService) open(ctx context.Context, cfg models.ConnConfig) (MirrorRepository, error) {
	db, err := s.pools.Get(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := s.newRepo(db)
	if !s.pools.SchemaReady(db) {
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		s.pools.MarkSchemaReady(db)
	}
	return repo, nil
}
