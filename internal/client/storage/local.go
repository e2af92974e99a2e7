package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/FoodDiary/internal/models"
)

const (
	// EntriesKey holds the JSON array of entries.
	EntriesKey = "foodDiary"
	// ConfigKey holds the mirror connection settings.
	ConfigKey = "mysqlConfig"
)

// LocalStore serializes the diary and the mirror settings into slots.
type LocalStore struct {
	slots Slots
	log   *zap.Logger
}

func NewLocalStore(slots Slots, log *zap.Logger) *LocalStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalStore{slots: slots, log: log}
}

// SaveEntries overwrites the entries slot with the full collection.
func (s *LocalStore) SaveEntries(ctx context.Context, entries []models.Entry) error {
	data, err := json.Marshal(models.EncodeEntries(entries))
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	return s.slots.Set(ctx, EntriesKey, data)
}

// LoadEntries returns the saved entries. A missing, unreadable or corrupt
// slot yields an empty collection; the failure is only logged.
func (s *LocalStore) LoadEntries(ctx context.Context) []models.Entry {
	data, err := s.slots.Get(ctx, EntriesKey)
	if err != nil {
		s.log.Warn("failed to read local entries", zap.Error(err))
		return []models.Entry{}
	}
	if data == nil {
		return []models.Entry{}
	}

	var items []models.EntryJSON
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("local entries are corrupt", zap.Error(err))
		return []models.Entry{}
	}
	entries, err := models.DecodeEntries(items)
	if err != nil {
		s.log.Warn("local entries are corrupt", zap.Error(err))
		return []models.Entry{}
	}
	return entries
}

// SaveConfig stores the mirror connection settings.
func (s *LocalStore) SaveConfig(ctx context.Context, cfg models.ConnConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return s.slots.Set(ctx, ConfigKey, data)
}

// LoadConfig returns the stored settings, or nil when none are stored or
// the stored value is unusable.
func (s *LocalStore) LoadConfig(ctx context.Context) *models.ConnConfig {
	data, err := s.slots.Get(ctx, ConfigKey)
	if err != nil {
		s.log.Warn("failed to read mirror config", zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}

	var cfg models.ConnConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.log.Warn("mirror config is corrupt", zap.Error(err))
		return nil
	}
	if err := cfg.Validate(); err != nil {
		s.log.Warn("stored mirror config is incomplete", zap.Error(err))
		return nil
	}
	cfg = cfg.WithDefaults()
	return &cfg
}

// ClearConfig removes the stored settings.
func (s *LocalStore) ClearConfig(ctx context.Context) error {
	return s.slots.Delete(ctx, ConfigKey)
}
