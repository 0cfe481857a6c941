package dedupe

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Techmee-Digital/arkane/internal/tabular"
)

// MissingEmailColumnError reports a file without any email-bearing column.
// The file is skipped; sibling files in the same upload are unaffected.
type MissingEmailColumnError struct {
	File string
}

func (e *MissingEmailColumnError) Error() string {
	return fmt.Sprintf("no column containing %q in %s; rename your email column", "mail", e.File)
}

// UnsupportedFileTypeError reports a file whose extension is not in the
// allowed set. The file is skipped with a warning.
type UnsupportedFileTypeError struct {
	File string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.File)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SecureFilename reduces an uploaded filename to a safe base name: path
// components are stripped and anything outside [A-Za-z0-9_.-] collapses
// to underscores.
func SecureFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}

// AllowedFile reports whether the filename carries one of the allowed
// extensions.
func AllowedFile(name string, allowed map[string]bool) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return ext != "" && allowed[ext]
}

// NormalizeTable converts one parsed file into canonical rows:
//   - the first column whose name contains "mail" (case-insensitive) becomes
//     "email"; its values are trimmed and lowercased
//   - all column names are trimmed and lowercased
//   - the legacy "campaign name" header becomes "campaign"
//   - an "exclusions" column always exists
//   - every row is tagged with source = secured base filename
//
// Returns the rows and the resulting column order (source last).
func NormalizeTable(t *tabular.Table, filename string) ([]Row, []string, error) {
	src := SecureFilename(filename)

	emailIdx := -1
	for i, h := range t.Headers {
		if strings.Contains(strings.ToLower(h), "mail") {
			emailIdx = i
			break
		}
	}
	if emailIdx == -1 {
		return nil, nil, &MissingEmailColumnError{File: src}
	}

	cols := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		name := strings.ToLower(strings.TrimSpace(h))
		if i == emailIdx {
			name = ColEmail
		} else if name == "campaign name" {
			name = ColCampaign
		}
		cols[i] = name
	}

	columns := make([]string, 0, len(cols)+2)
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if !seen[c] {
			seen[c] = true
			columns = append(columns, c)
		}
	}
	if !seen[ColExclusions] {
		columns = append(columns, ColExclusions)
	}
	columns = append(columns, ColSource)

	rows := make([]Row, 0, len(t.Rows))
	for _, raw := range t.Rows {
		row := make(Row, len(columns))
		for _, c := range columns {
			row[c] = ""
		}
		for i, c := range cols {
			if i < len(raw) {
				row[c] = raw[i]
			}
		}
		row[ColEmail] = strings.ToLower(strings.TrimSpace(row[ColEmail]))
		row[ColSource] = src
		rows = append(rows, row)
	}

	return rows, columns, nil
}
