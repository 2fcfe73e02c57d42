package generations

import "context"

// Repo persists generation records.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error)
}
