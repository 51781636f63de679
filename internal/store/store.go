// Package store persists enrichment records keyed by normalized address.
package store

import (
	"context"

	"github.com/weijianneo/find-house/internal/model"
)

// ListFilter specifies criteria for listing records.
type ListFilter struct {
	Station string `json:"mrt,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store is the record store. At most one record exists per address; the
// uniqueness constraint on the key is the only synchronization point between
// pipeline workers.
type Store interface {
	// Exists reports whether a record for address is already stored.
	Exists(ctx context.Context, address string) (bool, error)

	// Insert writes rec unless a record with the same address exists.
	// It returns false, with no error, when the key was already present.
	Insert(ctx context.Context, rec model.Record) (bool, error)

	List(ctx context.Context, filter ListFilter) ([]model.Record, error)
	Count(ctx context.Context) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 1000
