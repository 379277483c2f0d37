package dedup

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

const (
	metaRoot      = "root"
	metaAlgorithm = "hash_algorithm"
)

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrBindingMismatch indicates the store indexes a different root or uses a different digest.
var ErrBindingMismatch = errors.New("store binding mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild the index)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return s.verifyBinding(ctx)
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	for key, value := range map[string]string{metaRoot: s.root, metaAlgorithm: s.algorithm} {
		if _, err := tx.ExecContext(ctx, "INSERT INTO store_meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("record %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// verifyBinding checks that an existing store was built for the same root and digest.
func (s *Store) verifyBinding(ctx context.Context) error {
	for key, want := range map[string]string{metaRoot: s.root, metaAlgorithm: s.algorithm} {
		var got string
		err := s.db.QueryRowContext(ctx, "SELECT value FROM store_meta WHERE key = ?", key).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read store %s: %w", key, err)
		}
		if got != want {
			return fmt.Errorf("%w: store %s is %q, requested %q", ErrBindingMismatch, key, got, want)
		}
	}
	return nil
}
