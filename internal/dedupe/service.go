package dedupe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/Techmee-Digital/arkane/internal/lead"
	"github.com/Techmee-Digital/arkane/internal/tabular"
)

// ErrStaleToken is returned when a staged batch is gone (unknown token or
// expired slot). Callers should instruct the user to re-run the check.
var ErrStaleToken = errors.New("no staged data for token; re-run the check")

// Mode selects which rows a commit persists.
type Mode string

const (
	// ModeAll persists every row of the staged batch.
	ModeAll Mode = "all"
	// ModeDuplicatesOnly persists only rows flagged as duplicates.
	ModeDuplicatesOnly Mode = "duplicates"
)

// Store is the persistent lead store as the pipeline consumes it.
type Store interface {
	EmailLookup
	InsertBatch(ctx context.Context, teamID uuid.UUID, leads []lead.Lead) (int, error)
}

// UploadedFile is one file of a multipart upload.
type UploadedFile struct {
	Name    string
	Content io.Reader
}

// Result is the outcome of a dedupe upload: the staging token plus the
// classification of the unioned batch.
type Result struct {
	Token          string
	Classification *Classification
	Warnings       []string
}

// MergeResult is the outcome of a merge upload: the union of all files under
// a sorted header union, with no deduplication, plus the rendered workbook.
type MergeResult struct {
	Headers  []string
	Rows     [][]string
	File     *bytes.Buffer
	Warnings []string
}

// Service orchestrates the dedupe pipeline against a staging cache and a
// team-scoped lead store. All operations take the acting team explicitly;
// nothing here reaches into ambient state to discover the tenant.
type Service struct {
	cache       Cache
	store       Store
	allowedExts map[string]bool
}

// NewService creates a dedupe Service.
func NewService(cache Cache, store Store, allowedExts map[string]bool) *Service {
	return &Service{
		cache:       cache,
		store:       store,
		allowedExts: allowedExts,
	}
}

// RunDedupe normalizes and unions the uploaded files, classifies the batch
// against the team's current store, and stages it under a fresh token.
// Per-file problems (bad extension, unparseable content, no email column)
// skip that file with a warning; if nothing survives, ErrNoValidFiles is
// returned and no state changes.
func (s *Service) RunDedupe(ctx context.Context, teamID uuid.UUID, files []UploadedFile) (*Result, error) {
	var parts []FilePart
	var warnings []string

	for _, f := range files {
		if !AllowedFile(f.Name, s.allowedExts) {
			warnings = append(warnings, (&UnsupportedFileTypeError{File: f.Name}).Error())
			continue
		}

		table, err := tabular.Parse(f.Content)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("could not read %s: %v", SecureFilename(f.Name), err))
			continue
		}

		rows, columns, err := NormalizeTable(table, f.Name)
		if err != nil {
			var missing *MissingEmailColumnError
			if errors.As(err, &missing) {
				warnings = append(warnings, missing.Error())
				continue
			}
			return nil, fmt.Errorf("normalizing %s: %w", f.Name, err)
		}

		parts = append(parts, FilePart{
			Rows:    rows,
			Columns: columns,
			Source:  SecureFilename(f.Name),
		})
	}

	batch, err := Union(parts)
	if err != nil {
		return nil, err
	}

	classification, err := Classify(ctx, batch, teamID, s.store)
	if err != nil {
		return nil, err
	}

	token, err := s.cache.Put(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("staging batch: %w", err)
	}

	slog.Info("batch staged",
		"token", token,
		"team", teamID,
		"rows", classification.Summary.TotalRows,
		"duplicates", classification.Summary.DuplicateRows,
		"files", len(batch.Sources),
	)

	return &Result{Token: token, Classification: classification, Warnings: warnings}, nil
}

// RefreshFromToken re-loads a staged batch and re-classifies it against the
// store's current state. Two calls without intervening store writes return
// identical results; a commit in between will surface as new "DB" origins.
func (s *Service) RefreshFromToken(ctx context.Context, teamID uuid.UUID, token string) (*Classification, error) {
	batch, err := s.cache.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			return nil, ErrStaleToken
		}
		return nil, fmt.Errorf("loading staged batch: %w", err)
	}

	return Classify(ctx, batch, teamID, s.store)
}

// Commit re-loads a staged batch, re-classifies it against the current store
// snapshot, and appends the selected rows to the team's store in a single
// transaction. Rows are always inserted as new records; duplicate detection
// is advisory for the review step, not a uniqueness constraint. Returns the
// number of rows saved.
func (s *Service) Commit(ctx context.Context, teamID uuid.UUID, token string, mode Mode) (int, error) {
	batch, err := s.cache.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			return 0, ErrStaleToken
		}
		return 0, fmt.Errorf("loading staged batch: %w", err)
	}

	classification, err := Classify(ctx, batch, teamID, s.store)
	if err != nil {
		return 0, err
	}

	var selected []lead.Lead
	for _, r := range batch.Rows {
		if mode != ModeAll && !classification.DupSet[r[ColEmail]] {
			continue
		}
		selected = append(selected, lead.Lead{
			Email:      r[ColEmail],
			Company:    r[ColCompany],
			Quarter:    r[ColQuarter],
			Campaign:   r[ColCampaign],
			SourceFile: r[ColSource],
			Exclusions: r[ColExclusions],
			TeamID:     teamID,
		})
	}

	saved, err := s.store.InsertBatch(ctx, teamID, selected)
	if err != nil {
		return 0, fmt.Errorf("saving leads: %w", err)
	}

	slog.Info("batch committed", "token", token, "team", teamID, "mode", mode, "saved", saved)

	return saved, nil
}

// MergeFiles unions the uploaded files under the sorted union of their
// headers, filling missing cells with the empty string. No deduplication
// happens here; the result is also rendered as a downloadable workbook.
func (s *Service) MergeFiles(files []UploadedFile) (*MergeResult, error) {
	type parsedFile struct {
		table *tabular.Table
	}

	var parsed []parsedFile
	var warnings []string
	headerSet := make(map[string]bool)

	for _, f := range files {
		if !AllowedFile(f.Name, s.allowedExts) {
			warnings = append(warnings, (&UnsupportedFileTypeError{File: f.Name}).Error())
			continue
		}

		table, err := tabular.Parse(f.Content)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("could not read %s: %v", SecureFilename(f.Name), err))
			continue
		}

		parsed = append(parsed, parsedFile{table: table})
		for _, h := range table.Headers {
			headerSet[h] = true
		}
	}

	if len(parsed) == 0 {
		return nil, ErrNoValidFiles
	}

	headers := make([]string, 0, len(headerSet))
	for h := range headerSet {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	var rows [][]string
	for _, p := range parsed {
		idx := make(map[string]int, len(p.table.Headers))
		for i, h := range p.table.Headers {
			idx[h] = i
		}
		for _, raw := range p.table.Rows {
			row := make([]string, len(headers))
			for i, h := range headers {
				if j, ok := idx[h]; ok && j < len(raw) {
					row[i] = raw[j]
				}
			}
			rows = append(rows, row)
		}
	}

	file, err := tabular.Write(headers, rows)
	if err != nil {
		return nil, fmt.Errorf("rendering merged workbook: %w", err)
	}

	return &MergeResult{Headers: headers, Rows: rows, File: file, Warnings: warnings}, nil
}
