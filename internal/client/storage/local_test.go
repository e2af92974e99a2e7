package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/FoodDiary/internal/models"
)

type memSlots struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemSlots() *memSlots { return &memSlots{data: map[string][]byte{}} }

func (m *memSlots) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *memSlots) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memSlots) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestLocalStore_EntriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	slots := newMemSlots()
	ls := NewLocalStore(slots, nil)

	entries := []models.Entry{
		{ID: "2", Products: []string{"nuts"}, Date: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), HasAllergy: true},
		{ID: "1", Products: []string{"milk", "bread"}, Date: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, ls.SaveEntries(ctx, entries))
	first := string(slots.data[EntriesKey])

	require.NoError(t, ls.SaveEntries(ctx, entries))
	assert.Equal(t, first, string(slots.data[EntriesKey]), "saving twice must be idempotent")

	got := ls.LoadEntries(ctx)
	require.Len(t, got, 2)
	for i := range entries {
		assert.Equal(t, entries[i].ID, got[i].ID)
		assert.Equal(t, entries[i].Products, got[i].Products)
		assert.Equal(t, entries[i].HasAllergy, got[i].HasAllergy)
		assert.True(t, entries[i].Date.Equal(got[i].Date))
	}
	assert.Contains(t, first, `"date":"2024-01-03T09:00:00.000Z"`)
	assert.Contains(t, first, `"hasAllergy":true`)
}

func TestLocalStore_LoadEntriesDegrades(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		slots *memSlots
	}{
		{"missing", newMemSlots()},
		{"not json", &memSlots{data: map[string][]byte{EntriesKey: []byte("{oops")}}},
		{"bad date", &memSlots{data: map[string][]byte{EntriesKey: []byte(`[{"id":"1","products":["a"],"date":"never"}]`)}}},
		{"read error", &memSlots{data: map[string][]byte{}, getErr: errors.New("boom")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewLocalStore(tt.slots, nil).LoadEntries(ctx)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestLocalStore_Config(t *testing.T) {
	ctx := context.Background()
	slots := newMemSlots()
	ls := NewLocalStore(slots, nil)

	assert.Nil(t, ls.LoadConfig(ctx))

	cfg := models.ConnConfig{Host: "db", User: "root", Password: "secret", Database: "food_diary"}
	require.NoError(t, ls.SaveConfig(ctx, cfg))

	got := ls.LoadConfig(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "db", got.Host)
	assert.Equal(t, "3306", got.Port)
	assert.Equal(t, "secret", got.Password)

	require.NoError(t, ls.ClearConfig(ctx))
	assert.Nil(t, ls.LoadConfig(ctx))
}

func TestLocalStore_IncompleteConfigIsIgnored(t *testing.T) {
	slots := &memSlots{data: map[string][]byte{ConfigKey: []byte(`{"host":"db"}`)}}
	assert.Nil(t, NewLocalStore(slots, nil).LoadConfig(context.Background()))
}
