package dashboard

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-dashboard/internal/model"
	"github.com/sells-group/disclosure-dashboard/internal/store"
)

// Lister is the read side of the store the dashboard needs.
type Lister interface {
	ListRecords(ctx context.Context, opts store.ListOptions) ([]model.EmissionRecord, error)
}

// Load reads every record in the given order and reconciles them.
func Load(ctx context.Context, l Lister, order store.Order) (*View, error) {
	records, err := l.ListRecords(ctx, store.ListOptions{Order: order})
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: list records")
	}
	return Reconcile(records), nil
}
