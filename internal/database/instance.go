package database

import (
	"context"
	"fmt"

	"github.com/diegoclair/flashevent-bot/internal/domain/contract"
)

// Store implements contract.Store on top of the sqlite kv_entries table
type Store struct {
	db *DB
	contract.Store
}

// NewInstance creates a store backed by db
func NewInstance(db *DB) *Store {
	return &Store{
		db:    db,
		Store: newKVRepo(db.conn),
	}
}

// WithTransaction runs fn against a store bound to a single transaction
func (i *Store) WithTransaction(ctx context.Context, fn func(store contract.Store) error) error {
	tx, err := i.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = fn(newKVRepo(tx))
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil {
			return fmt.Errorf("error rolling back transaction: %v, original error: %w", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}
