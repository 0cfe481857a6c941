// Package dedupe implements the lead deduplication pipeline: uploaded
// spreadsheets are normalized and unioned into a batch, classified against
// the team's persisted leads, staged under an opaque token, and later
// selectively committed.
package dedupe

import (
	"context"
	"errors"
)

// Canonical column names every normalized row carries.
const (
	ColEmail      = "email"
	ColCompany    = "company"
	ColQuarter    = "quarter"
	ColCampaign   = "campaign"
	ColExclusions = "exclusions"
	ColSource     = "source"
)

// Row maps lowercase, trimmed column names to cell values. The canonical
// columns above are always present; any extra columns from the source file
// are carried through untouched.
type Row map[string]string

// Batch is an ordered union of normalized rows from one upload operation.
// Row order (file order, then in-file order) is preserved end to end because
// display pagination depends on it. A batch is immutable once staged.
type Batch struct {
	Columns []string `json:"columns"`
	Sources []string `json:"sources"`
	Rows    []Row    `json:"rows"`
}

// ErrBatchNotFound is returned by a Cache when no batch exists under the
// given token (unknown, expired, or evicted).
var ErrBatchNotFound = errors.New("staged batch not found")

// Cache stages batches under opaque tokens so a later page load or commit
// can retrieve the exact same batch without re-uploading.
type Cache interface {
	// Put stages the batch and returns a fresh token. Tokens from concurrent
	// uploads never collide.
	Put(ctx context.Context, batch *Batch) (string, error)

	// Get returns the staged batch verbatim, or ErrBatchNotFound.
	Get(ctx context.Context, token string) (*Batch, error)
}
