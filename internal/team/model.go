package team

import (
	"time"

	"github.com/google/uuid"
)

// Team represents a row in the teams table. A team is the tenant partition:
// every lead and every non-admin user belongs to exactly one team.
type Team struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
