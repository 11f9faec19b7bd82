package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// ConnectSQLite opens a catalog database read-only.
func ConnectSQLite(path string) (*sql.DB, error) {
	return open(path+"?mode=ro", "sqlite")
}

// OpenCatalogDB opens a catalog database for writing and creates the tables.
func OpenCatalogDB(path string) (*sql.DB, error) {
	db, err := open(path, "catalog db")
	if err != nil {
		return nil, err
	}

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			doc TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chassis (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			tonnage INTEGER NOT NULL,
			doc TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS upgrades (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			category TEXT NOT NULL,
			doc TEXT NOT NULL
		)`,
	} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create table: %w", err)
		}
	}

	return db, nil
}

func open(dsn, what string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", what, err)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", what, err)
	}

	return db, nil
}
