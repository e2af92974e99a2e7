package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/FoodDiary/internal/models"
	"github.com/atinyakov/FoodDiary/internal/service"
)

type mockSnapshotRepo struct {
	ListFunc       func(ctx context.Context) ([]models.StoredEntry, error)
	ReplaceAllFunc func(ctx context.Context, entries []models.Entry) error
	UpsertFunc     func(ctx context.Context, e models.Entry) error
	DeleteFunc     func(ctx context.Context, id string) (bool, error)
}

func (m *mockSnapshotRepo) List(ctx context.Context) ([]models.StoredEntry, error) {
	return m.ListFunc(ctx)
}
func (m *mockSnapshotRepo) ReplaceAll(ctx context.Context, entries []models.Entry) error {
	return m.ReplaceAllFunc(ctx, entries)
}
func (m *mockSnapshotRepo) Upsert(ctx context.Context, e models.Entry) error {
	return m.UpsertFunc(ctx, e)
}
func (m *mockSnapshotRepo) Delete(ctx context.Context, id string) (bool, error) {
	return m.DeleteFunc(ctx, id)
}

var wireEntry = models.EntryJSON{ID: "e1", Products: []string{"milk"}, Date: "2024-03-01T09:30:00.000Z", HasAllergy: true}

func TestSnapshotService_Replace(t *testing.T) {
	var got []models.Entry
	repo := &mockSnapshotRepo{ReplaceAllFunc: func(_ context.Context, entries []models.Entry) error {
		got = entries
		return nil
	}}
	svc := service.NewSnapshotService(repo)

	n, err := svc.Replace(context.Background(), []models.EntryJSON{wireEntry, {ID: "e2", Date: "2024-03-02T10:00:00Z"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, got, 2)
	assert.Equal(t, []string{}, got[1].Products, "missing products are stored as an empty list")

	n, err = svc.Replace(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSnapshotService_RejectsInvalid(t *testing.T) {
	repo := &mockSnapshotRepo{
		ReplaceAllFunc: func(context.Context, []models.Entry) error {
			t.Fatal("repository must not be called")
			return nil
		},
		UpsertFunc: func(context.Context, models.Entry) error {
			t.Fatal("repository must not be called")
			return nil
		},
	}
	svc := service.NewSnapshotService(repo)

	_, err := svc.Replace(context.Background(), []models.EntryJSON{{ID: "e1", Date: "yesterday"}})
	assert.ErrorIs(t, err, service.ErrInvalidEntry)

	_, err = svc.Save(context.Background(), models.EntryJSON{Date: wireEntry.Date})
	assert.ErrorIs(t, err, service.ErrInvalidEntry)
}

func TestSnapshotService_SaveListDelete(t *testing.T) {
	wantErr := errors.New("db down")
	var deleted string
	repo := &mockSnapshotRepo{
		UpsertFunc: func(_ context.Context, e models.Entry) error {
			assert.Equal(t, "e1", e.ID)
			return nil
		},
		ListFunc: func(context.Context) ([]models.StoredEntry, error) {
			return nil, wantErr
		},
		DeleteFunc: func(_ context.Context, id string) (bool, error) {
			deleted = id
			return false, nil
		},
	}
	svc := service.NewSnapshotService(repo)

	id, err := svc.Save(context.Background(), wireEntry)
	require.NoError(t, err)
	assert.Equal(t, "e1", id)

	_, err = svc.List(context.Background())
	assert.ErrorIs(t, err, wantErr)

	assert.ErrorIs(t, svc.Delete(context.Background(), " "), service.ErrMissingID)
	require.NoError(t, svc.Delete(context.Background(), "gone"))
	assert.Equal(t, "gone", deleted)
}

type mockMirrorRepo struct {
	EnsureSchemaFunc func(ctx context.Context) error
	ListFunc         func(ctx context.Context) ([]models.MirrorRow, error)
	InsertFunc       func(ctx context.Context, e models.Entry) error
	ReplaceAllFunc   func(ctx context.Context, entries []models.Entry) error
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *mockMirrorRepo) EnsureSchema(ctx context.Context) error { return m.EnsureSchemaFunc(ctx) }
func (m *mockMirrorRepo) List(ctx context.Context) ([]models.MirrorRow, error) {
	return m.ListFunc(ctx)
}
func (m *mockMirrorRepo) Insert(ctx context.Context, e models.Entry) error {
	return m.InsertFunc(ctx, e)
}
func (m *mockMirrorRepo) ReplaceAll(ctx context.Context, entries []models.Entry) error {
	return m.ReplaceAllFunc(ctx, entries)
}
func (m *mockMirrorRepo) Delete(ctx context.Context, id string) error { return m.DeleteFunc(ctx, id) }

type mockPools struct {
	GetFunc func(ctx context.Context, cfg models.ConnConfig) (*sql.DB, error)
	ready   map[*sql.DB]bool
}

func (m *mockPools) Get(ctx context.Context, cfg models.ConnConfig) (*sql.DB, error) {
	return m.GetFunc(ctx, cfg)
}
func (m *mockPools) SchemaReady(db *sql.DB) bool { return m.ready[db] }
func (m *mockPools) MarkSchemaReady(db *sql.DB) {
	if m.ready == nil {
		m.ready = make(map[*sql.DB]bool)
	}
	m.ready[db] = true
}

var mirrorCfg = models.ConnConfig{Host: "db", User: "root", Database: "food_diary"}

func newMirrorService(t *testing.T, repo *mockMirrorRepo, poolErr error) (*service.MirrorService, *int) {
	t.Helper()
	handle := &sql.DB{}
	ensured := 0
	if repo.EnsureSchemaFunc == nil {
		repo.EnsureSchemaFunc = func(context.Context) error {
			ensured++
			return nil
		}
	}
	pools := &mockPools{GetFunc: func(_ context.Context, cfg models.ConnConfig) (*sql.DB, error) {
		assert.Equal(t, mirrorCfg, cfg)
		return handle, poolErr
	}}
	return service.NewMirrorService(pools, func(db *sql.DB) service.MirrorRepository {
		assert.Same(t, handle, db)
		return repo
	}), &ensured
}

func TestMirrorService_EnsuresSchemaOnce(t *testing.T) {
	repo := &mockMirrorRepo{ListFunc: func(context.Context) ([]models.MirrorRow, error) {
		return []models.MirrorRow{{ID: "e1"}}, nil
	}}
	svc, ensured := newMirrorService(t, repo, nil)

	for range 3 {
		rows, err := svc.List(context.Background(), mirrorCfg)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	}
	assert.Equal(t, 1, *ensured)
}

func TestMirrorService_Operations(t *testing.T) {
	var inserted models.Entry
	var replaced []models.Entry
	var deleted string
	repo := &mockMirrorRepo{
		InsertFunc: func(_ context.Context, e models.Entry) error {
			inserted = e
			return nil
		},
		ReplaceAllFunc: func(_ context.Context, entries []models.Entry) error {
			replaced = entries
			return nil
		},
		DeleteFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc, _ := newMirrorService(t, repo, nil)
	ctx := context.Background()

	id, err := svc.Insert(ctx, mirrorCfg, wireEntry)
	require.NoError(t, err)
	assert.Equal(t, "e1", id)
	assert.Equal(t, []string{"milk"}, inserted.Products)

	n, err := svc.Replace(ctx, mirrorCfg, []models.EntryJSON{wireEntry})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, replaced, 1)

	require.NoError(t, svc.Delete(ctx, mirrorCfg, "e1"))
	assert.Equal(t, "e1", deleted)
	assert.ErrorIs(t, svc.Delete(ctx, mirrorCfg, ""), service.ErrMissingID)
}

func TestMirrorService_Errors(t *testing.T) {
	poolErr := errors.New("ping mysql: access denied")
	svc, _ := newMirrorService(t, &mockMirrorRepo{}, poolErr)

	_, err := svc.List(context.Background(), mirrorCfg)
	assert.ErrorIs(t, err, poolErr)

	schemaErr := errors.New("create food_entries: denied")
	svc, _ = newMirrorService(t, &mockMirrorRepo{EnsureSchemaFunc: func(context.Context) error { return schemaErr }}, nil)
	_, err = svc.Replace(context.Background(), mirrorCfg, nil)
	assert.ErrorIs(t, err, schemaErr)

	_, err = svc.Insert(context.Background(), mirrorCfg, models.EntryJSON{ID: "x", Date: "bad"})
	assert.ErrorIs(t, err, service.ErrInvalidEntry)
}
