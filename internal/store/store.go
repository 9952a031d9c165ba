// Package store provides the structured record store used for analytics
// records, reminders and deferred queries.
package store

import (
	"context"
)

// Store is the structured persistence contract. Records are free-form maps;
// tables are plain names; filters are equality-only.
type Store interface {
	// Insert writes one record to a table.
	Insert(ctx context.Context, table string, record map[string]any) error

	// Select returns records matching all filters, up to limit. A zero
	// limit means no limit; nil filters match everything.
	Select(ctx context.Context, table string, filters map[string]string, limit int) ([]map[string]any, error)

	// Delete removes records matching all filters.
	Delete(ctx context.Context, table string, filters map[string]string) error
}
