package lead

import (
	"time"

	"github.com/google/uuid"
)

// Lead represents a row in the leads table. Every lead belongs to exactly
// one team; repository methods take the owning team ID explicitly and never
// cross the tenant boundary.
type Lead struct {
	ID         uuid.UUID
	Email      string
	Company    string
	Quarter    string
	Campaign   string
	SourceFile string
	Exclusions string
	UploadDate time.Time
	TeamID     uuid.UUID
}

// FilterParams holds optional substring predicates for Filter. Empty fields
// are ignored.
type FilterParams struct {
	Email   string
	Company string
}
