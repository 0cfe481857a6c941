package lead

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// updatableColumns are the lead columns UpdateFields is allowed to touch.
var updatableColumns = map[string]bool{
	"email":       true,
	"company":     true,
	"quarter":     true,
	"campaign":    true,
	"source_file": true,
	"exclusions":  true,
}

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const leadColumns = `id, email, company, quarter, campaign, source_file, exclusions, upload_date, team_id`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Email, &l.Company, &l.Quarter, &l.Campaign,
		&l.SourceFile, &l.Exclusions, &l.UploadDate, &l.TeamID,
	)
	return l, err
}

// LatestByEmails returns the newest record per email within the team, for
// emails present in the store. DISTINCT ON with a descending upload_date
// (id as tie-break) keeps the result deterministic.
func (r *PostgresRepository) LatestByEmails(ctx context.Context, teamID uuid.UUID, emails []string) (map[string]Lead, error) {
	if len(emails) == 0 {
		return map[string]Lead{}, nil
	}

	query := `
		SELECT DISTINCT ON (email) ` + leadColumns + `
		FROM leads
		WHERE team_id = $1 AND email = ANY($2)
		ORDER BY email, upload_date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, teamID, emails)
	if err != nil {
		return nil, fmt.Errorf("querying latest leads by email: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]Lead)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lead row: %w", err)
		}
		latest[l.Email] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lead rows: %w", err)
	}

	return latest, nil
}

// InsertBatch appends all given leads for the team in one transaction.
func (r *PostgresRepository) InsertBatch(ctx context.Context, teamID uuid.UUID, leads []Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO leads (email, company, quarter, campaign, source_file, exclusions, team_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	batch := &pgx.Batch{}
	for _, l := range leads {
		batch.Queue(query, l.Email, l.Company, l.Quarter, l.Campaign, l.SourceFile, l.Exclusions, teamID)
	}

	results := tx.SendBatch(ctx, batch)
	for range leads {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("inserting lead: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return len(leads), nil
}

// Search returns all records with exactly the given email, newest first.
func (r *PostgresRepository) Search(ctx context.Context, teamID uuid.UUID, email string) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE team_id = $1 AND email = $2
		ORDER BY upload_date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, teamID, email)
	if err != nil {
		return nil, fmt.Errorf("searching leads: %w", err)
	}
	defer rows.Close()

	return collectLeads(rows)
}

// Filter returns records matching the optional substring predicates, newest first.
func (r *PostgresRepository) Filter(ctx context.Context, teamID uuid.UUID, params FilterParams) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE team_id = $1`
	args := []any{teamID}

	if params.Email != "" {
		args = append(args, "%"+params.Email+"%")
		query += fmt.Sprintf(" AND email ILIKE $%d", len(args))
	}
	if params.Company != "" {
		args = append(args, "%"+params.Company+"%")
		query += fmt.Sprintf(" AND company ILIKE $%d", len(args))
	}
	query += " ORDER BY upload_date DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filtering leads: %w", err)
	}
	defer rows.Close()

	return collectLeads(rows)
}

// Delete removes the given leads within the team and returns how many rows went away.
func (r *PostgresRepository) Delete(ctx context.Context, teamID uuid.UUID, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM leads WHERE team_id = $1 AND id = ANY($2)`

	result, err := r.pool.Exec(ctx, query, teamID, ids)
	if err != nil {
		return 0, fmt.Errorf("deleting leads: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// UpdateFields patches the allowed string columns of a single lead.
func (r *PostgresRepository) UpdateFields(ctx context.Context, teamID uuid.UUID, id uuid.UUID, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	// Stable column order so the generated SQL is deterministic.
	cols := make([]string, 0, len(updates))
	for col := range updates {
		if !updatableColumns[col] {
			return fmt.Errorf("column %q is not updatable", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols))
	args := []any{teamID, id}
	for _, col := range cols {
		args = append(args, updates[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	query := fmt.Sprintf(
		"UPDATE leads SET %s WHERE team_id = $1 AND id = $2",
		strings.Join(sets, ", "),
	)

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating lead: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLeadNotFound
	}

	return nil
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	var leads []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lead row: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lead rows: %w", err)
	}

	if leads == nil {
		leads = []Lead{}
	}

	return leads, nil
}
