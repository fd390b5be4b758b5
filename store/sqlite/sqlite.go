/*
Package sqlite persists batch runs and their results.

PURPOSE:
  The engine itself is a pure transform; this store keeps the history of
  runs so results can be listed, re-exported and compared later. One run
  row owns its stock groups and invoices; a run is written atomically and
  never updated afterwards.

KEY TABLES:
  runs:         One row per batch run (seed, strategy, totals)
  stock_groups: The allocation table of a run
  invoices:     The generated invoices of a run

WAL MODE:
  SQLite is opened with WAL so readers don't block the writer.

USAGE:
  store, err := sqlite.New("./data/invoices.db")
  if err != nil { ... }
  defer store.Close()
  err = store.SaveRun(ctx, run, plan)
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/invoice-engine/engine"
)

// Run is the persisted summary of one batch run.
type Run struct {
	ID           string
	CreatedAt    time.Time
	Seed         int64
	Strategy     string
	TargetSales  int
	GroupCount   int
	InvoiceCount int
	TotalValue   decimal.Decimal
	HeldBack     int
}

// Store implements run persistence over SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		strategy TEXT NOT NULL,
		target_sales INTEGER NOT NULL,
		group_count INTEGER NOT NULL,
		invoice_count INTEGER NOT NULL,
		total_value TEXT NOT NULL,
		held_back INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS stock_groups (
		run_id TEXT NOT NULL REFERENCES runs(id),
		group_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		available INTEGER NOT NULL,
		allocated INTEGER NOT NULL,
		reference_date TEXT NOT NULL,
		PRIMARY KEY (run_id, group_id)
	);

	CREATE TABLE IF NOT EXISTS invoices (
		run_id TEXT NOT NULL REFERENCES runs(id),
		number TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		base_price TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		packs INTEGER NOT NULL,
		unit_margin INTEGER NOT NULL,
		sale_unit_price TEXT NOT NULL,
		sale_pack_price TEXT NOT NULL,
		total_value TEXT NOT NULL,
		group_id INTEGER NOT NULL,
		PRIMARY KEY (run_id, number)
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_run_date ON invoices(run_id, date);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITES
// =============================================================================

// SaveRun persists a run with its groups and invoices atomically.
func (s *Store) SaveRun(ctx context.Context, run Run, plan *engine.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, seed, strategy, target_sales, group_count, invoice_count, total_value, held_back)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339), run.Seed, run.Strategy,
		run.TargetSales, len(plan.Groups), len(plan.Invoices), plan.TotalValue.String(), plan.HeldBack,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	groupStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_groups (run_id, group_id, type, unit_price, available, allocated, reference_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer groupStmt.Close()
	for _, g := range plan.Groups {
		_, err = groupStmt.ExecContext(ctx, run.ID, int(g.ID), g.Type, g.UnitPrice.String(),
			g.Available, g.Allocated, g.ReferenceDate.Format("2006-01-02"))
		if err != nil {
			return fmt.Errorf("insert group %d: %w", g.ID, err)
		}
	}

	invStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO invoices (run_id, number, date, type, base_price, quantity, packs, unit_margin,
			sale_unit_price, sale_pack_price, total_value, group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer invStmt.Close()
	for _, inv := range plan.Invoices {
		_, err = invStmt.ExecContext(ctx, run.ID, inv.Number, inv.Date.Format("2006-01-02"),
			inv.Type, inv.BasePrice.String(), inv.Quantity, inv.Packs, inv.UnitMargin,
			inv.SaleUnitPrice.String(), inv.SalePackPrice.String(), inv.TotalValue.String(), int(inv.Group))
		if err != nil {
			return fmt.Errorf("insert invoice %s: %w", inv.Number, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// READS
// =============================================================================

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, seed, strategy, target_sales, group_count, invoice_count, total_value, held_back
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run summary, or nil when the id is unknown.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, seed, strategy, target_sales, group_count, invoice_count, total_value, held_back
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListGroups returns the stock groups of a run in group-id order.
func (s *Store) ListGroups(ctx context.Context, runID string) ([]engine.StockGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, type, unit_price, available, allocated, reference_date
		FROM stock_groups WHERE run_id = ? ORDER BY group_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []engine.StockGroup
	for rows.Next() {
		var (
			g             engine.StockGroup
			id            int
			price, refStr string
		)
		if err := rows.Scan(&id, &g.Type, &price, &g.Available, &g.Allocated, &refStr); err != nil {
			return nil, err
		}
		g.ID = engine.GroupID(id)
		if g.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("group %d: bad unit price: %w", id, err)
		}
		if g.ReferenceDate, err = time.Parse("2006-01-02", refStr); err != nil {
			return nil, fmt.Errorf("group %d: bad reference date: %w", id, err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ListInvoices returns the invoices of a run ordered by date then number.
func (s *Store) ListInvoices(ctx context.Context, runID string) ([]engine.SyntheticInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT number, date, type, base_price, quantity, packs, unit_margin,
			sale_unit_price, sale_pack_price, total_value, group_id
		FROM invoices WHERE run_id = ?
		ORDER BY date, length(number), number`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []engine.SyntheticInvoice
	for rows.Next() {
		var (
			inv                              engine.SyntheticInvoice
			dateStr, base, unit, pack, total string
			groupID                          int
		)
		if err := rows.Scan(&inv.Number, &dateStr, &inv.Type, &base, &inv.Quantity, &inv.Packs,
			&inv.UnitMargin, &unit, &pack, &total, &groupID); err != nil {
			return nil, err
		}
		if inv.Date, err = time.Parse("2006-01-02", dateStr); err != nil {
			return nil, fmt.Errorf("invoice %s: bad date: %w", inv.Number, err)
		}
		if inv.BasePrice, err = decimal.NewFromString(base); err != nil {
			return nil, err
		}
		if inv.SaleUnitPrice, err = decimal.NewFromString(unit); err != nil {
			return nil, err
		}
		if inv.SalePackPrice, err = decimal.NewFromString(pack); err != nil {
			return nil, err
		}
		if inv.TotalValue, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		inv.Group = engine.GroupID(groupID)
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var (
		r                   Run
		createdAt, totalStr string
	)
	err := row.Scan(&r.ID, &createdAt, &r.Seed, &r.Strategy, &r.TargetSales,
		&r.GroupCount, &r.InvoiceCount, &totalStr, &r.HeldBack)
	if err != nil {
		return r, err
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return r, fmt.Errorf("run %s: bad created_at: %w", r.ID, err)
	}
	if r.TotalValue, err = decimal.NewFromString(totalStr); err != nil {
		return r, fmt.Errorf("run %s: bad total value: %w", r.ID, err)
	}
	return r, nil
}
