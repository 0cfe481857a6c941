package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents a row in the users table.
type User struct {
	ID           uuid.UUID
	Name         string
	TeamID       *uuid.UUID // nil for the admin bootstrap user
	IsSuperuser  bool
	ApiKeyPrefix string
	ApiKeyHash   string
	CreatedAt    time.Time
	RevokedAt    *time.Time

	// TeamName is populated by List via a join; not a users column.
	TeamName *string
}

// Identity is stored in the request context after authentication. TeamID is
// the tenant partition key for every lead read and write.
type Identity struct {
	UserID      uuid.UUID
	UserName    string
	TeamID      *uuid.UUID // nil for superuser
	TeamName    *string    // nil for superuser
	IsSuperuser bool
}
