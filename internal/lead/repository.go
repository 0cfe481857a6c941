package lead

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrLeadNotFound is returned when a lead record is not found.
var ErrLeadNotFound = errors.New("lead not found")

// Repository provides team-scoped operations on the leads table.
type Repository interface {
	// LatestByEmails returns, for each of the given emails that exists in the
	// team's store, the most recently uploaded matching record. One batched
	// query regardless of batch size.
	LatestByEmails(ctx context.Context, teamID uuid.UUID, emails []string) (map[string]Lead, error)

	// InsertBatch appends the given leads for the team in a single
	// transaction. Either all rows are committed or none are. Returns the
	// number of rows inserted.
	InsertBatch(ctx context.Context, teamID uuid.UUID, leads []Lead) (int, error)

	// Search returns all records with exactly the given (normalized) email.
	Search(ctx context.Context, teamID uuid.UUID, email string) ([]Lead, error)

	// Filter returns records matching the optional substring predicates,
	// newest first.
	Filter(ctx context.Context, teamID uuid.UUID, params FilterParams) ([]Lead, error)

	// Delete removes the given leads and returns how many were deleted.
	Delete(ctx context.Context, teamID uuid.UUID, ids []uuid.UUID) (int, error)

	// UpdateFields patches the allowed string columns of a single lead.
	// Returns ErrLeadNotFound if the lead does not exist in the team.
	UpdateFields(ctx context.Context, teamID uuid.UUID, id uuid.UUID, updates map[string]string) error
}
