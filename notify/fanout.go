package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/models"
)

// Fanout publishes every event to each sink. One failing sink does not stop
// the others.
type Fanout []custody.Notifier

// Publish implements custody.Notifier
func (f Fanout) Publish(ctx context.Context, ev models.ChangeEvent) error {
	var errs []error
	for i, n := range f {
		if err := n.Publish(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
