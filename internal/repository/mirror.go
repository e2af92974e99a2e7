package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atinyakov/FoodDiary/internal/db"
	"github.com/atinyakov/FoodDiary/internal/models"
)

// MySQLEntryRepository reads and writes the food_entries table of a user's
// own MySQL database.
type MySQLEntryRepository struct {
	DB *sql.DB
}

// NewMySQLEntryRepository creates a repository over db.
func NewMySQLEntryRepository(db *sql.DB) *MySQLEntryRepository {
	return &MySQLEntryRepository{DB: db}
}

const (
	mirrorSchema = `
		CREATE TABLE IF NOT EXISTS food_entries (
			id VARCHAR(64) PRIMARY KEY,
			products JSON NOT NULL,
			entry_date DATETIME(3) NOT NULL,
			has_allergy BOOLEAN NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`
	insertMirrorEntry = `INSERT INTO food_entries (id, products, entry_date, has_allergy) VALUES (?, ?, ?, ?)`
)

// EnsureSchema creates the food_entries table when it is missing.
func (r *MySQLEntryRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, mirrorSchema); err != nil {
		return fmt.Errorf("create food_entries: %w", err)
	}
	return nil
}

// List returns every row, newest first.
func (r *MySQLEntryRepository) List(ctx context.Context) ([]models.MirrorRow, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, products, entry_date, has_allergy, created_at
		FROM food_entries ORDER BY entry_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list food_entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.MirrorRow, 0)
	for rows.Next() {
		var (
			row      models.MirrorRow
			products []byte
			date     time.Time
			created  sql.NullTime
			allergy  bool
		)
		if err := rows.Scan(&row.ID, &products, &date, &allergy, &created); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(products, &row.Products); err != nil {
			return nil, fmt.Errorf("entry %s products: %w", row.ID, err)
		}
		row.EntryDate = models.FormatISO(date)
		row.HasAllergy = models.FlexBool(allergy)
		if created.Valid {
			row.CreatedAt = models.FormatISO(created.Time)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list food_entries: %w", err)
	}
	return out, nil
}

// Insert adds a single entry. A duplicate id is reported by the driver.
func (r *MySQLEntryRepository) Insert(ctx context.Context, e models.Entry) error {
	return insertMirror(ctx, r.DB, e)
}

// ReplaceAll deletes every row and inserts entries in one transaction.
func (r *MySQLEntryRepository) ReplaceAll(ctx context.Context, entries []models.Entry) error {
	return db.WithTx(ctx, r.DB, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM food_entries`); err != nil {
			return fmt.Errorf("clear food_entries: %w", err)
		}
		for _, e := range entries {
			if err := insertMirror(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the row with the given id. Missing ids are not an error.
func (r *MySQLEntryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM food_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func insertMirror(ctx context.Context, q db.DBTX, e models.Entry) error {
	products, err := encodeProducts(e.Products)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, insertMirrorEntry, e.ID, products, e.Date.UTC(), e.HasAllergy); err != nil {
		return fmt.Errorf("insert entry %s: %w", e.ID, err)
	}
	return nil
}
