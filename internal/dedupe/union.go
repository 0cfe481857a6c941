package dedupe

import "errors"

// ErrNoValidFiles is returned when an upload contains no accepted files.
// The whole operation aborts: no token is minted and nothing is staged.
var ErrNoValidFiles = errors.New("no valid spreadsheet files uploaded")

// FilePart is the normalized output of a single accepted file.
type FilePart struct {
	Rows    []Row
	Columns []string
	Source  string
}

// Union concatenates normalized per-file row sets into one batch, preserving
// file order and in-file row order. The column set is the union of all parts
// in first-seen order with source kept last; rows missing a column are
// back-filled with the empty string.
func Union(parts []FilePart) (*Batch, error) {
	if len(parts) == 0 {
		return nil, ErrNoValidFiles
	}

	var columns []string
	seen := make(map[string]bool)
	for _, p := range parts {
		for _, c := range p.Columns {
			if c == ColSource || seen[c] {
				continue
			}
			seen[c] = true
			columns = append(columns, c)
		}
	}
	columns = append(columns, ColSource)

	batch := &Batch{Columns: columns}
	for _, p := range parts {
		batch.Sources = append(batch.Sources, p.Source)
		for _, r := range p.Rows {
			row := make(Row, len(columns))
			for _, c := range columns {
				row[c] = r[c] // missing columns back-fill as ""
			}
			batch.Rows = append(batch.Rows, row)
		}
	}

	return batch, nil
}
