package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanderheijden86/companyview/pkg/kpi"
	"github.com/vanderheijden86/companyview/pkg/model"
)

const companyColumns = `id, name, relationship_type, role, parent_id,
		event_count, form_count, is_primary`

// Stats is the per-company statistics row feeding KPI aggregation.
type Stats struct {
	CompanyID    int
	TotalForms   int
	TotalLeads   int
	ActiveEvents int
}

// Store implements kpi.Fetcher and kpi.Switcher on a SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ kpi.Fetcher  = (*Store)(nil)
	_ kpi.Switcher = (*Store)(nil)
)

// New wraps an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open opens the database at path and wraps it.
func Open(path string) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceCompanies swaps the stored company list for companies inside one
// transaction. The first record wins when ids repeat. Statistics for ids
// that survive are kept.
func (s *Store) ReplaceCompanies(ctx context.Context, companies []model.Company) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_ids (id INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("creating temp table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep_ids`); err != nil {
		return fmt.Errorf("clearing temp table: %w", err)
	}

	upsert, err := tx.PrepareContext(ctx, `INSERT INTO companies (id, name, relationship_type, role, parent_id,
		event_count, form_count, is_primary, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			relationship_type = excluded.relationship_type,
			role = excluded.role,
			parent_id = excluded.parent_id,
			event_count = excluded.event_count,
			form_count = excluded.form_count,
			is_primary = excluded.is_primary,
			position = excluded.position`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer upsert.Close()

	seen := make(map[int]bool, len(companies))
	for i, c := range companies {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		if _, err := upsert.ExecContext(ctx,
			c.ID,
			c.Name,
			string(c.RelationshipType),
			string(c.Role),
			nullableIntToValue(c.ParentID),
			c.EventCount,
			c.FormCount,
			boolToInt(c.IsPrimary),
			i,
		); err != nil {
			return fmt.Errorf("storing company %d: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO keep_ids (id) VALUES (?)`, c.ID); err != nil {
			return fmt.Errorf("tracking company %d: %w", c.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM companies WHERE id NOT IN (SELECT id FROM keep_ids)`); err != nil {
		return fmt.Errorf("removing stale companies: %w", err)
	}
	return tx.Commit()
}

// ListCompanies returns the stored companies in their original order.
func (s *Store) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	defer rows.Close()

	companies := []model.Company{}
	for rows.Next() {
		var (
			c         model.Company
			relType   string
			role      string
			parentID  sql.NullInt64
			isPrimary int
		)
		if err := rows.Scan(&c.ID, &c.Name, &relType, &role, &parentID,
			&c.EventCount, &c.FormCount, &isPrimary); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		c.RelationshipType = model.RelationshipType(relType)
		c.Role = model.Role(role)
		if parentID.Valid {
			c.ParentID = model.IntPtr(int(parentID.Int64))
		}
		c.IsPrimary = intToBool(isPrimary)
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// SetStats inserts or updates the statistics row of a company.
func (s *Store) SetStats(ctx context.Context, st Stats) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO company_stats (company_id, total_forms, total_leads, active_events, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(company_id) DO UPDATE SET
			total_forms = excluded.total_forms,
			total_leads = excluded.total_leads,
			active_events = excluded.active_events,
			updated_at = excluded.updated_at`,
		st.CompanyID, st.TotalForms, st.TotalLeads, st.ActiveEvents,
		s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing stats for %d: %w", st.CompanyID, err)
	}
	return nil
}

// FetchKPI aggregates statistics over ids. Companies without a stats row
// contribute their own form and event counters and no leads. Unknown ids
// contribute nothing.
func (s *Store) FetchKPI(ctx context.Context, ids []int) (model.KPI, error) {
	k := model.ZeroKPI(ids)
	if len(ids) == 0 {
		return k, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT
		COALESCE(SUM(COALESCE(s.total_forms, c.form_count)), 0),
		COALESCE(SUM(COALESCE(s.total_leads, 0)), 0),
		COALESCE(SUM(COALESCE(s.active_events, c.event_count)), 0)
		FROM companies c
		LEFT JOIN company_stats s ON s.company_id = c.id
		WHERE c.id IN (` + placeholders + `)`
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&k.TotalForms, &k.TotalLeads, &k.ActiveEvents); err != nil {
		return model.ZeroKPI(ids), fmt.Errorf("aggregating kpi: %w", err)
	}
	return k, nil
}

// SwitchActiveCompany records that id became the active company.
func (s *Store) SwitchActiveCompany(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO active_switches (company_id, switched_at) VALUES (?, ?)`,
		id, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording active company %d: %w", id, err)
	}
	return nil
}

// LastActiveCompany returns the most recently recorded active company.
func (s *Store) LastActiveCompany(ctx context.Context) (int, bool, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `SELECT company_id FROM active_switches ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading last active company: %w", err)
	}
	return id, true, nil
}

// nullableIntToValue converts a *int to a value suitable for SQLite storage.
func nullableIntToValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
