package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/FoodDiary/internal/models"
)

var (
	// ErrMissingID is returned when a delete request names no entry.
	ErrMissingID = errors.New("missing entry id")
	// ErrInvalidEntry is returned for entries without an id or with a bad date.
	ErrInvalidEntry = errors.New("invalid entry")
)

// SnapshotRepository defines the persistence operations needed by the SnapshotService.
type SnapshotRepository interface {
	// List returns every stored entry, newest first.
	List(ctx context.Context) ([]models.StoredEntry, error)
	// ReplaceAll swaps the stored set for entries atomically.
	ReplaceAll(ctx context.Context, entries []models.Entry) error
	// Upsert inserts or overwrites a single entry.
	Upsert(ctx context.Context, e models.Entry) error
	// Delete removes an entry and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// SnapshotService holds the server side of the diary snapshot: the whole
// entry list as last pushed by a client.
type SnapshotService struct {
	repo SnapshotRepository
}

// NewSnapshotService constructs a SnapshotService over repo.
func NewSnapshotService(repo SnapshotRepository) *SnapshotService {
	return &SnapshotService{repo: repo}
}

// List returns the stored snapshot.
func (s *SnapshotService) List(ctx context.Context) ([]models.StoredEntry, error) {
	return s.repo.List(ctx)
}

// Replace validates items and stores them as the new snapshot.
// It returns the number of stored entries.
func (s *SnapshotService) Replace(ctx context.Context, items []models.EntryJSON) (int, error) {
	entries, err := decodeItems(items)
	if err != nil {
		return 0, err
	}
	if err := s.repo.ReplaceAll(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Save upserts a single entry and returns its id.
func (s *SnapshotService) Save(ctx context.Context, item models.EntryJSON) (string, error) {
	e, err := decodeItem(item)
	if err != nil {
		return "", err
	}
	if err := s.repo.Upsert(ctx, e); err != nil {
		return "", err
	}
	return e.ID, nil
}

// Delete removes the entry with id. Unknown ids are not an error.
func (s *SnapshotService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	_, err := s.repo.Delete(ctx, id)
	return err
}

func decodeItem(item models.EntryJSON) (models.Entry, error) {
	if strings.TrimSpace(item.ID) == "" {
		return models.Entry{}, fmt.Errorf("%w: empty id", ErrInvalidEntry)
	}
	e, err := item.Entry()
	if err != nil {
		return models.Entry{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if e.Products == nil {
		e.Products = []string{}
	}
	return e, nil
}

func decodeItems(items []models.EntryJSON) ([]models.Entry, error) {
	entries := make([]models.Entry, 0, len(items))
	for _, item := range items {
		e, err := decodeItem(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
