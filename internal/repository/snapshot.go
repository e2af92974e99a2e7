// Package repository provides persistence for the diary servers: the
// PostgreSQL snapshot store and the per-user MySQL mirror.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/FoodDiary/internal/db"
	"github.com/atinyakov/FoodDiary/internal/models"
)

// PostgresSnapshotRepository keeps the single diary snapshot in PostgreSQL.
type PostgresSnapshotRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresSnapshotRepository creates a repository over db.
func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{DB: db}
}

const upsertSnapshotEntry = `
	INSERT INTO snapshot_entries (id, products, entry_date, has_allergy, created_at, updated_at)
	VALUES ($1, $2, $3, $4, NOW(), NOW())
	ON CONFLICT (id) DO UPDATE SET
		products = EXCLUDED.products,
		entry_date = EXCLUDED.entry_date,
		has_allergy = EXCLUDED.has_allergy,
		updated_at = NOW()
`

// List returns every entry, newest first.
func (r *PostgresSnapshotRepository) List(ctx context.Context) ([]models.StoredEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, products, entry_date, has_allergy, created_at, updated_at
		FROM snapshot_entries ORDER BY entry_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshot: %w", err)
	}
	defer rows.Close()

	entries := make([]models.StoredEntry, 0)
	for rows.Next() {
		var (
			e                  models.StoredEntry
			products           []byte
			date, created, upd time.Time
		)
		if err := rows.Scan(&e.ID, &products, &date, &e.HasAllergy, &created, &upd); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(products, &e.Products); err != nil {
			return nil, fmt.Errorf("entry %s products: %w", e.ID, err)
		}
		e.Date = models.FormatISO(date)
		e.CreatedAt = models.FormatISO(created)
		e.UpdatedAt = models.FormatISO(upd)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshot: %w", err)
	}
	return entries, nil
}

// ReplaceAll makes the stored snapshot equal to entries in one transaction.
// Entries are upserted, so created_at survives for ids already stored, and
// ids absent from entries are deleted.
func (r *PostgresSnapshotRepository) ReplaceAll(ctx context.Context, entries []models.Entry) error {
	ids := make([]string, 0, len(entries))
	return db.WithTx(ctx, r.DB, func(ctx context.Context, tx db.DBTX) error {
		for _, e := range entries {
			if err := upsert(ctx, tx, e); err != nil {
				return err
			}
			ids = append(ids, e.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM snapshot_entries WHERE NOT (id = ANY($1))`, pq.Array(ids)); err != nil {
			return fmt.Errorf("prune snapshot: %w", err)
		}
		return nil
	})
}

// Upsert inserts e or overwrites the entry with the same id.
func (r *PostgresSnapshotRepository) Upsert(ctx context.Context, e models.Entry) error {
	return upsert(ctx, r.DB, e)
}

// Delete removes the entry and reports whether it existed.
func (r *PostgresSnapshotRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM snapshot_entries WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	return n > 0, nil
}

func upsert(ctx context.Context, q db.DBTX, e models.Entry) error {
	products, err := encodeProducts(e.Products)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, upsertSnapshotEntry, e.ID, products, e.Date.UTC(), e.HasAllergy); err != nil {
		return fmt.Errorf("upsert entry %s: %w", e.ID, err)
	}
	return nil
}

func encodeProducts(products []string) (string, error) {
	if products == nil {
		products = []string{}
	}
	b, err := json.Marshal(products)
	if err != nil {
		return "", fmt.Errorf("encode products: %w", err)
	}
	return string(b), nil
}
