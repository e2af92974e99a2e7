package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSlots_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileSlots(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	got, err := s.Get(ctx, "foodDiary")
	require.NoError(t, err)
	assert.Nil(t, got, "missing slot must read as nil")

	require.NoError(t, s.Set(ctx, "foodDiary", []byte(`[1]`)))
	require.NoError(t, s.Set(ctx, "foodDiary", []byte(`[2]`)))

	got, err = s.Get(ctx, "foodDiary")
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(got))

	files, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	assert.Len(t, files, 1, "temp files must not be left behind")

	require.NoError(t, s.Delete(ctx, "foodDiary"))
	require.NoError(t, s.Delete(ctx, "foodDiary"), "deleting a missing slot is fine")

	got, err = s.Get(ctx, "foodDiary")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileSlots_RejectsPathKeys(t *testing.T) {
	s, err := NewFileSlots(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Set(context.Background(), "../escape", []byte("x")))
	_, err = s.Get(context.Background(), "a/b")
	assert.Error(t, err)
}

func TestSQLiteSlots_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS slots`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewSQLiteSlots(context.Background(), db)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM slots WHERE key = ?`)).
		WithArgs("foodDiary").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[]`)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM slots WHERE key = ?`)).
		WithArgs("mysqlConfig").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	got, err := s.Get(context.Background(), "foodDiary")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	got, err = s.Get(context.Background(), "mysqlConfig")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteSlots_SetDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS slots`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewSQLiteSlots(context.Background(), db)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO slots (key, value) VALUES (?, ?)`)).
		WithArgs("foodDiary", []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM slots WHERE key = ?`)).
		WithArgs("mysqlConfig").
		WillReturnError(errors.New("disk I/O error"))

	require.NoError(t, s.Set(context.Background(), "foodDiary", []byte(`[]`)))

	err = s.Delete(context.Background(), "mysqlConfig")
	assert.ErrorContains(t, err, "failed to delete slot[mysqlConfig]")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSQLiteSlots_File(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteSlots(ctx, filepath.Join(t.TempDir(), "diary.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}
