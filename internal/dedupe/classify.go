package dedupe

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Techmee-Digital/arkane/internal/lead"
)

// EmailLookup is the read-only store view the classifier needs.
type EmailLookup interface {
	LatestByEmails(ctx context.Context, teamID uuid.UUID, emails []string) (map[string]lead.Lead, error)
}

// ClassifiedRow is one batch row plus its duplicate verdict.
type ClassifiedRow struct {
	Row       Row    `json:"row"`
	Duplicate bool   `json:"duplicate"`
	Origin    string `json:"origin"`
}

// Summary holds the headline counts for a classified batch.
type Summary struct {
	TotalRows     int      `json:"totalRows"`
	DuplicateRows int      `json:"duplicateRows"`
	Sources       []string `json:"sources"`
}

// Classification is the result of classifying a batch against one team's
// store snapshot.
type Classification struct {
	DupSet  map[string]bool `json:"-"`
	Columns []string        `json:"columns"`
	Rows    []ClassifiedRow `json:"rows"`
	Summary Summary         `json:"summary"`
}

// Classify computes, for every row in the batch, whether its email is a
// duplicate: repeated within the batch (every occurrence flagged, not just
// the second onward) or already present in the team's store. Matching
// persisted records are fetched in one batched query, never per row.
//
// The function is pure with respect to the batch: calling it again after the
// store has changed yields the verdict for the new store state.
func Classify(ctx context.Context, batch *Batch, teamID uuid.UUID, store EmailLookup) (*Classification, error) {
	counts := make(map[string]int, len(batch.Rows))
	for _, r := range batch.Rows {
		counts[r[ColEmail]]++
	}

	emails := make([]string, 0, len(counts))
	for e := range counts {
		emails = append(emails, e)
	}

	existing, err := store.LatestByEmails(ctx, teamID, emails)
	if err != nil {
		return nil, fmt.Errorf("looking up persisted leads: %w", err)
	}

	dupSet := make(map[string]bool)
	for e, n := range counts {
		if n > 1 {
			dupSet[e] = true
		}
	}
	for e := range existing {
		dupSet[e] = true
	}

	result := &Classification{
		DupSet:  dupSet,
		Columns: batch.Columns,
		Rows:    make([]ClassifiedRow, 0, len(batch.Rows)),
	}

	for _, r := range batch.Rows {
		email := r[ColEmail]
		cr := ClassifiedRow{Row: r, Duplicate: dupSet[email]}
		if cr.Duplicate {
			if rec, ok := existing[email]; ok {
				cr.Origin = dbOrigin(rec)
			} else {
				cr.Origin = "Current Sheet"
			}
			result.Summary.DuplicateRows++
		}
		result.Rows = append(result.Rows, cr)
	}

	result.Summary.TotalRows = len(batch.Rows)
	result.Summary.Sources = batch.Sources

	return result, nil
}

// dbOrigin labels a row whose email pre-exists in the store, using the
// latest matching record's campaign and quarter.
func dbOrigin(rec lead.Lead) string {
	if rec.Campaign == "" && rec.Quarter == "" {
		return "DB"
	}
	return fmt.Sprintf("DB: %s/%s", rec.Campaign, rec.Quarter)
}
