// Package storage is the relational collaborator behind the batch engine's
// ports: reference snapshots in, atomic batch inserts out.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"parishledger/internal/core"
)

// Repository is a SQLite implementation of the engine's collaborator
// interfaces. Amounts are stored as integer cents and converted to decimals
// at the boundary.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ActiveBudgets returns every budget whose active window contains today,
// with usage derived as the sum of committed expense rows tagged with the
// budget's id. Usage is recomputed on every call, never stored.
func (r *Repository) ActiveBudgets(ctx context.Context, tenant string) ([]core.Budget, error) {
	today := time.Now().UTC().Format("2006-01-02")
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.name, b.allocation_cents,
		       COALESCE(SUM(t.amount_cents), 0) AS used_cents,
		       b.active_from, b.active_until
		FROM budgets b
		LEFT JOIN transactions t
		  ON t.counterparty_id = b.id AND t.tenant = b.tenant AND t.kind = 'expense'
		WHERE b.tenant = ? AND b.active_from <= ? AND b.active_until >= ?
		GROUP BY b.id
		ORDER BY b.name`,
		tenant, today, today)
	if err != nil {
		return nil, fmt.Errorf("query active budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b                      core.Budget
			allocCents, usedCents  int64
			activeFrom, activeTill string
		)
		if err := rows.Scan(&b.ID, &b.Name, &allocCents, &usedCents, &activeFrom, &activeTill); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Allocation = centsToDecimal(allocCents)
		b.Used = centsToDecimal(usedCents)
		b.ActiveFrom, err = parseStoredDate(activeFrom)
		if err != nil {
			return nil, fmt.Errorf("budget %s active_from: %w", b.ID, err)
		}
		b.ActiveUntil, err = parseStoredDate(activeTill)
		if err != nil {
			return nil, fmt.Errorf("budget %s active_until: %w", b.ID, err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// Members returns all members of the tenant with their envelope codes.
func (r *Repository) Members(ctx context.Context, tenant string) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, display_name, COALESCE(envelope_code, '')
		FROM members
		WHERE tenant = ?
		ORDER BY display_name`,
		tenant)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.EnvelopeCode); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Categories returns the catalog for one kind; income and expense catalogs
// are disjoint by construction.
func (r *Repository) Categories(ctx context.Context, tenant string, kind core.Kind) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, kind
		FROM categories
		WHERE tenant = ? AND kind = ?
		ORDER BY name`,
		tenant, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// InsertTransactionBatch writes the whole batch inside one transaction.
// Any failing row rolls back every row; no partial batch ever lands.
func (r *Repository) InsertTransactionBatch(ctx context.Context, records []core.Transaction) ([]core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions
		  (id, batch_id, tenant, actor, kind, counterparty_id, category_id,
		   amount_cents, entry_date, description, committed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.BatchID, rec.Tenant, rec.Actor, string(rec.Kind),
			rec.CounterpartyID, rec.CategoryID,
			decimalToCents(rec.Amount),
			rec.Date.String(), rec.Description,
			rec.CommittedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("insert transaction %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch inserted",
		"rows", len(records),
		"batch_id", firstBatchID(records))

	return records, nil
}

// PeriodTotal sums committed rows of one kind for a calendar month, the
// per-period aggregate behind dashboard tiles.
func (r *Repository) PeriodTotal(ctx context.Context, tenant string, kind core.Kind, year, month int) (decimal.Decimal, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE tenant = ? AND kind = ? AND entry_date LIKE ?`,
		tenant, string(kind), prefix+"%").Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query period total: %w", err)
	}
	return centsToDecimal(cents), nil
}

// CreateMember, CreateCategory and CreateBudget exist for provisioning and
// tests; the CRUD screens that normally manage these live elsewhere.

func (r *Repository) CreateMember(ctx context.Context, tenant string, m core.Member) error {
	var code interface{}
	if m.EnvelopeCode != "" {
		code = m.EnvelopeCode
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO members (id, tenant, display_name, envelope_code)
		VALUES (?, ?, ?, ?)`,
		m.ID, tenant, m.DisplayName, code)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (r *Repository) CreateCategory(ctx context.Context, tenant string, c core.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, tenant, name, kind)
		VALUES (?, ?, ?, ?)`,
		c.ID, tenant, c.Name, string(c.Kind))
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *Repository) CreateBudget(ctx context.Context, tenant string, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, tenant, name, allocation_cents, active_from, active_until)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, tenant, b.Name, decimalToCents(b.Allocation),
		b.ActiveFrom.String(), b.ActiveUntil.String())
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func decimalToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

func parseStoredDate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

func firstBatchID(records []core.Transaction) string {
	if len(records) == 0 {
		return ""
	}
	return records[0].BatchID
}
