package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
)

// CatalogStore keeps a catalog document in SQLite, one JSON row per entry.
type CatalogStore struct {
	DB *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{DB: db}
}

// WriteDocument replaces the stored catalog with doc.
func (s *CatalogStore) WriteDocument(ctx context.Context, doc *catalog.Document) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"items", "chassis", "upgrades"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, it := range doc.Items {
		if err := insert(ctx, tx, `INSERT INTO items (id, position, doc) VALUES (?, ?, ?)`, it, it.ID, i); err != nil {
			return fmt.Errorf("insert item %q: %w", it.ID, err)
		}
	}
	for i, ch := range doc.Chassis {
		if err := insert(ctx, tx, `INSERT INTO chassis (id, position, doc, tonnage) VALUES (?, ?, ?, ?)`, ch, ch.ID, i, ch.Tonnage); err != nil {
			return fmt.Errorf("insert chassis %q: %w", ch.ID, err)
		}
	}
	for i, u := range doc.Upgrades {
		if err := insert(ctx, tx, `INSERT INTO upgrades (id, position, doc, category) VALUES (?, ?, ?, ?)`, u, u.ID, i, u.Category); err != nil {
			return fmt.Errorf("insert upgrade %q: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

func insert(ctx context.Context, tx *sql.Tx, query string, v any, id string, position int, extra ...any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	args := append([]any{id, position, string(b)}, extra...)
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// LoadDocument reads the stored catalog in its original order.
func (s *CatalogStore) LoadDocument(ctx context.Context) (*catalog.Document, error) {
	var doc catalog.Document
	if err := load(ctx, s.DB, "items", &doc.Items); err != nil {
		return nil, err
	}
	if err := load(ctx, s.DB, "chassis", &doc.Chassis); err != nil {
		return nil, err
	}
	if err := load(ctx, s.DB, "upgrades", &doc.Upgrades); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadCatalog reads and resolves the stored catalog.
func (s *CatalogStore) LoadCatalog(ctx context.Context) (catalog.Catalog, error) {
	doc, err := s.LoadDocument(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewMemory(doc)
}

func load[T any](ctx context.Context, db *sql.DB, table string, out *[]T) error {
	rows, err := db.QueryContext(ctx, "SELECT id, doc FROM "+table+" ORDER BY position")
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return fmt.Errorf("decode %s %q: %w", table, id, err)
		}
		*out = append(*out, v)
	}
	return rows.Err()
}
