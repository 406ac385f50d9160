// Package store persists emission records, their evidence and feedback votes.
package store

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-dashboard/internal/model"
)

// ErrNotFound is returned when a record lookup or feedback target does not exist.
var ErrNotFound = errors.New("store: record not found")

// Order selects the sort order of ListRecords. The reconciler keeps this
// order, so it decides how companies are displayed.
type Order string

const (
	// OrderAlphabetical sorts by company name, most recent year first.
	OrderAlphabetical Order = "alphabetical"
	// OrderRecent sorts by insertion time, newest first.
	OrderRecent Order = "recent"
)

// ParseOrder validates an order name. An empty name selects OrderAlphabetical.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderAlphabetical:
		return OrderAlphabetical, nil
	case OrderRecent:
		return OrderRecent, nil
	default:
		return "", eris.Errorf("store: unknown order %q", s)
	}
}

// ListOptions controls ListRecords.
type ListOptions struct {
	Order Order `json:"order,omitempty"`
}

// Store defines the persistence interface for the dashboard.
type Store interface {
	// Reads
	ListRecords(ctx context.Context, opts ListOptions) ([]model.EmissionRecord, error)
	GetRecord(ctx context.Context, id int64) (*model.EmissionRecord, error)
	FindRecord(ctx context.Context, company string, year int, dataPointType string) (*model.EmissionRecord, error)

	// Re-run writes. DeleteDataPoints removes the matching records together
	// with their evidence and returns the number of records removed.
	DeleteDataPoints(ctx context.Context, company string, year int, dataPointTypes []string) (int64, error)
	InsertRecord(ctx context.Context, rec model.EmissionRecord) (*model.EmissionRecord, error)
	InsertEvidence(ctx context.Context, dataID int64, evidence []model.EvidenceRecord) (int64, error)

	// AddPlaceholder inserts an Init row for (company, year) only if no row
	// exists for that pair. It returns nil when a row already exists.
	AddPlaceholder(ctx context.Context, company string, year int) (*model.EmissionRecord, error)

	// RecordFeedback atomically increments the vote counter on the record and
	// stores the vote. Returns ErrNotFound for an unknown record.
	RecordFeedback(ctx context.Context, vote model.FeedbackVote) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
