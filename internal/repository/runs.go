package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
)

// Totals dimensions stored in run_total.
const (
	DimensionMonth    = "month"
	DimensionCategory = "category"
	DimensionProvider = "provider"
)

// Run is one row of analysis_run.
type Run struct {
	ID             string              `db:"id"`
	Status         constants.RunStatus `db:"status"`
	StartedAt      string              `db:"started_at"`
	FinishedAt     string              `db:"finished_at"`
	Documents      int                 `db:"documents"`
	Processed      int                 `db:"processed"`
	Failed         int                 `db:"failed"`
	Items          int                 `db:"items"`
	RuleHits       int                 `db:"rule_hits"`
	AICalls        int                 `db:"ai_calls"`
	Narrative      string              `db:"narrative"`
	ReportLocation string              `db:"report_location"`
	Error          string              `db:"error"`
}

// RunResult is what FinishRun records.
type RunResult struct {
	Status         constants.RunStatus
	Summary        entity.ExpenseSummary
	Invoices       []entity.Invoice
	Narrative      string
	ReportLocation string
	Err            error
}

// RunRepository persists analysis runs with their invoices and totals.
type RunRepository interface {
	StartRun(ctx context.Context, id string, startedAt time.Time) error
	FinishRun(ctx context.Context, id string, res RunResult) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListInvoices(ctx context.Context, runID string) ([]entity.Invoice, error)
	ListTotals(ctx context.Context, runID, dimension string) ([]entity.Amount, error)
}

type runRepo struct {
	db *sqlx.DB
}

// NewRunRepository creates a sqlx-backed RunRepository.
func NewRunRepository(db *DB) RunRepository {
	return &runRepo{db: db.DB}
}

func (r *runRepo) StartRun(ctx context.Context, id string, startedAt time.Time) error {
	q := r.db.Rebind(`INSERT INTO analysis_run (id, status, started_at) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, id, string(constants.RunStatusRunning), formatTime(startedAt)); err != nil {
		return fmt.Errorf("runRepo.StartRun: %w", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

// FinishRun updates the run row and stores its invoices, items and totals in one transaction.
func (r *runRepo) FinishRun(ctx context.Context, id string, res RunResult) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("runRepo.FinishRun: begin: %w", errors.Join(common.ErrDatabase, err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}
	st := res.Summary.Stats
	q := tx.Rebind(`UPDATE analysis_run SET
		status = ?, finished_at = ?, documents = ?, processed = ?, failed = ?, items = ?,
		rule_hits = ?, ai_calls = ?, narrative = ?, report_location = ?, error = ?
		WHERE id = ?`)
	out, err := tx.ExecContext(ctx, q,
		string(res.Status), formatTime(time.Now()), st.Documents, st.Processed, st.Failed, st.Items,
		st.RuleHits, st.AICalls, res.Narrative, res.ReportLocation, errText,
		id)
	if err != nil {
		return fmt.Errorf("runRepo.FinishRun: update: %w", errors.Join(common.ErrDatabase, err))
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return fmt.Errorf("runRepo.FinishRun: run %s: %w", id, common.ErrNotFound)
	}

	if err = insertInvoices(ctx, tx, id, res.Invoices); err != nil {
		return err
	}
	if err = insertTotals(ctx, tx, id, res.Summary); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("runRepo.FinishRun: commit: %w", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

func insertInvoices(ctx context.Context, tx *sqlx.Tx, runID string, invoices []entity.Invoice) error {
	invQ := tx.Rebind(`INSERT INTO invoice (run_id, id, provider, invoice_date, total) VALUES (?, ?, ?, ?, ?)`)
	itemQ := tx.Rebind(`INSERT INTO line_item (
		run_id, invoice_id, position, number, description,
		quantity, unit_price, discount, tax, line_price, item_price, category
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, inv := range invoices {
		if _, err := tx.ExecContext(ctx, invQ, runID, inv.ID, inv.Provider, formatDate(inv.Date), inv.Total.String()); err != nil {
			return fmt.Errorf("insert invoice %s: %w", inv.ID, errors.Join(common.ErrDatabase, err))
		}
		for i, it := range inv.Items {
			_, err := tx.ExecContext(ctx, itemQ,
				runID, inv.ID, i, it.Number, it.Description,
				it.Quantity.String(), it.UnitPrice.String(), it.Discount.String(), it.Tax.String(),
				it.LinePrice.String(), it.ItemPrice.String(), it.Category)
			if err != nil {
				return fmt.Errorf("insert line item %s/%d: %w", inv.ID, i, errors.Join(common.ErrDatabase, err))
			}
		}
	}
	return nil
}

func insertTotals(ctx context.Context, tx *sqlx.Tx, runID string, s entity.ExpenseSummary) error {
	q := tx.Rebind(`INSERT INTO run_total (run_id, dimension, bucket, amount) VALUES (?, ?, ?, ?)`)
	dims := []struct {
		name string
		m    map[string]decimal.Decimal
	}{
		{DimensionMonth, s.MonthlyTotals},
		{DimensionCategory, s.CategoryTotals},
		{DimensionProvider, s.ProviderTotals},
	}
	for _, d := range dims {
		for k, v := range d.m {
			if _, err := tx.ExecContext(ctx, q, runID, d.name, k, v.String()); err != nil {
				return fmt.Errorf("insert %s total %q: %w", d.name, k, errors.Join(common.ErrDatabase, err))
			}
		}
	}
	return nil
}

func (r *runRepo) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := r.db.GetContext(ctx, &run, r.db.Rebind(`SELECT * FROM analysis_run WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("runRepo.GetRun: run %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("runRepo.GetRun: %w", errors.Join(common.ErrDatabase, err))
	}
	return &run, nil
}

type invoiceRow struct {
	ID       string `db:"id"`
	Provider string `db:"provider"`
	Date     string `db:"invoice_date"`
	Total    string `db:"total"`
}

type itemRow struct {
	InvoiceID   string `db:"invoice_id"`
	Number      string `db:"number"`
	Description string `db:"description"`
	Quantity    string `db:"quantity"`
	UnitPrice   string `db:"unit_price"`
	Discount    string `db:"discount"`
	Tax         string `db:"tax"`
	LinePrice   string `db:"line_price"`
	ItemPrice   string `db:"item_price"`
	Category    string `db:"category"`
}

// ListInvoices returns the run's invoices ordered by id, each with its items in extraction order.
func (r *runRepo) ListInvoices(ctx context.Context, runID string) ([]entity.Invoice, error) {
	var invRows []invoiceRow
	q := r.db.Rebind(`SELECT id, provider, invoice_date, total FROM invoice WHERE run_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &invRows, q, runID); err != nil {
		return nil, fmt.Errorf("runRepo.ListInvoices: %w", errors.Join(common.ErrDatabase, err))
	}

	var itemRows []itemRow
	q = r.db.Rebind(`SELECT invoice_id, number, description, quantity, unit_price, discount, tax,
		line_price, item_price, category
		FROM line_item WHERE run_id = ? ORDER BY invoice_id, position`)
	if err := r.db.SelectContext(ctx, &itemRows, q, runID); err != nil {
		return nil, fmt.Errorf("runRepo.ListInvoices: items: %w", errors.Join(common.ErrDatabase, err))
	}
	byInvoice := make(map[string][]entity.LineItem, len(invRows))
	for _, row := range itemRows {
		byInvoice[row.InvoiceID] = append(byInvoice[row.InvoiceID], entity.LineItem{
			Number:      row.Number,
			Description: row.Description,
			Quantity:    parseDecimal(row.Quantity),
			UnitPrice:   parseDecimal(row.UnitPrice),
			Discount:    parseDecimal(row.Discount),
			Tax:         parseDecimal(row.Tax),
			LinePrice:   parseDecimal(row.LinePrice),
			ItemPrice:   parseDecimal(row.ItemPrice),
			Category:    row.Category,
		})
	}

	out := make([]entity.Invoice, 0, len(invRows))
	for _, row := range invRows {
		inv := entity.Invoice{
			ID:       row.ID,
			Provider: row.Provider,
			Total:    parseDecimal(row.Total),
			Items:    byInvoice[row.ID],
		}
		if row.Date != "" {
			inv.Date, _ = time.Parse(time.DateOnly, row.Date)
		}
		if inv.Items == nil {
			inv.Items = []entity.LineItem{}
		}
		out = append(out, inv)
	}
	return out, nil
}

// ListTotals returns one dimension of the run's totals ordered by bucket.
func (r *runRepo) ListTotals(ctx context.Context, runID, dimension string) ([]entity.Amount, error) {
	var rows []struct {
		Bucket string `db:"bucket"`
		Amount string `db:"amount"`
	}
	q := r.db.Rebind(`SELECT bucket, amount FROM run_total WHERE run_id = ? AND dimension = ? ORDER BY bucket`)
	if err := r.db.SelectContext(ctx, &rows, q, runID, dimension); err != nil {
		return nil, fmt.Errorf("runRepo.ListTotals: %w", errors.Join(common.ErrDatabase, err))
	}
	out := make([]entity.Amount, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.Amount{Key: row.Bucket, Value: parseDecimal(row.Amount)})
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
