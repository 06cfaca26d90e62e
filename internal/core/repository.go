package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx. Read-only
// callers may pass the pool directly; anything that locks rows must pass a
// transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// StockRepository is the persistence boundary for stock records and their
// audit trail. companyID is a required parameter of every call; there is no
// ambient tenant. Concurrent writers of the same (company, item, location)
// key are serialized by row-level FOR UPDATE locks taken inside the caller's
// transaction.
type StockRepository interface {
	// FindByLocation loads and locks one record. Returns ErrRecordNotFound
	// (wrapped) when no row exists.
	FindByLocation(ctx context.Context, tx pgx.Tx, companyID, itemID, locationID int) (*StockRecord, error)
	// GetOrCreate upserts the zero-quantity row for the composite key, then
	// loads and locks it.
	GetOrCreate(ctx context.Context, tx pgx.Tx, companyID, itemID, locationID int) (*StockRecord, error)
	// FindAllForItemInWarehouse returns every record for the item across the
	// warehouse's locations, ordered by location code. With lock set the rows
	// are taken FOR UPDATE and q must be a transaction.
	FindAllForItemInWarehouse(ctx context.Context, q Querier, companyID, itemID, warehouseID int, lock bool) ([]*StockRecord, error)
	Save(ctx context.Context, tx pgx.Tx, record *StockRecord) error
	AppendMovement(ctx context.Context, tx pgx.Tx, m StockMovement) error
	// StockByLocation is the per-location read view for one item across all
	// of the company's warehouses.
	StockByLocation(ctx context.Context, q Querier, companyID, itemID int) ([]LocationStock, error)
}

type pgStockRepository struct{}

func NewStockRepository() StockRepository {
	return &pgStockRepository{}
}

const stockRecordColumns = `
	sr.id, sr.company_id, sr.item_id, sr.location_id,
	sr.qty_on_hand, sr.qty_reserved, sr.updated_at,
	i.code, sl.code, sl.is_fallback`

func scanStockRecord(row pgx.Row) (*StockRecord, error) {
	var r StockRecord
	err := row.Scan(
		&r.ID, &r.CompanyID, &r.ItemID, &r.LocationID,
		&r.OnHand, &r.Reserved, &r.UpdatedAt,
		&r.ItemCode, &r.LocationCode, &r.IsFallback,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *pgStockRepository) FindByLocation(ctx context.Context, tx pgx.Tx, companyID, itemID, locationID int) (*StockRecord, error) {
	row := tx.QueryRow(ctx, `
		SELECT`+stockRecordColumns+`
		FROM stock_records sr
		JOIN items i             ON i.id  = sr.item_id
		JOIN storage_locations sl ON sl.id = sr.location_id
		WHERE sr.company_id = $1 AND sr.item_id = $2 AND sr.location_id = $3
		FOR UPDATE OF sr
	`, companyID, itemID, locationID)
	rec, err := scanStockRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item %d at location %d: %w", itemID, locationID, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to load stock record: %w", err)
	}
	return rec, nil
}

func (p *pgStockRepository) GetOrCreate(ctx context.Context, tx pgx.Tx, companyID, itemID, locationID int) (*StockRecord, error) {
	// Upsert first so the subsequent lock always has a row to land on.
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_records (company_id, item_id, location_id, qty_on_hand, qty_reserved)
		VALUES ($1, $2, $3, 0, 0)
		ON CONFLICT (company_id, item_id, location_id) DO NOTHING
	`, companyID, itemID, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert stock record: %w", err)
	}
	return p.FindByLocation(ctx, tx, companyID, itemID, locationID)
}

func (p *pgStockRepository) FindAllForItemInWarehouse(ctx context.Context, q Querier, companyID, itemID, warehouseID int, lock bool) ([]*StockRecord, error) {
	query := `
		SELECT` + stockRecordColumns + `
		FROM stock_records sr
		JOIN items i             ON i.id  = sr.item_id
		JOIN storage_locations sl ON sl.id = sr.location_id
		WHERE sr.company_id = $1 AND sr.item_id = $2 AND sl.warehouse_id = $3
		ORDER BY sl.code`
	if lock {
		query += `
		FOR UPDATE OF sr`
	}

	rows, err := q.Query(ctx, query, companyID, itemID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock records: %w", err)
	}
	defer rows.Close()

	var records []*StockRecord
	for rows.Next() {
		rec, err := scanStockRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *pgStockRepository) Save(ctx context.Context, tx pgx.Tx, record *StockRecord) error {
	tag, err := tx.Exec(ctx, `
		UPDATE stock_records
		SET qty_on_hand = $1, qty_reserved = $2, updated_at = NOW()
		WHERE id = $3
	`, record.OnHand, record.Reserved, record.ID)
	if err != nil {
		return fmt.Errorf("failed to save stock record %d: %w", record.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock record %d vanished during save: %w", record.ID, ErrRecordNotFound)
	}
	return nil
}

func (p *pgStockRepository) AppendMovement(ctx context.Context, tx pgx.Tx, m StockMovement) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (company_id, stock_record_id, operation, delta, actor_id, reference)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.CompanyID, m.StockRecordID, string(m.Operation), m.Delta, m.ActorID, m.Reference)
	if err != nil {
		return fmt.Errorf("failed to append stock movement: %w", err)
	}
	return nil
}

func (p *pgStockRepository) StockByLocation(ctx context.Context, q Querier, companyID, itemID int) ([]LocationStock, error) {
	rows, err := q.Query(ctx, `
		SELECT w.code, sl.code,
		       sr.qty_on_hand, sr.qty_reserved,
		       sr.qty_on_hand - sr.qty_reserved AS qty_available
		FROM stock_records sr
		JOIN storage_locations sl ON sl.id = sr.location_id
		JOIN warehouses w         ON w.id  = sl.warehouse_id
		WHERE sr.company_id = $1 AND sr.item_id = $2
		ORDER BY w.code, sl.code
	`, companyID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock by location: %w", err)
	}
	defer rows.Close()

	var out []LocationStock
	for rows.Next() {
		var ls LocationStock
		if err := rows.Scan(&ls.WarehouseCode, &ls.LocationCode, &ls.OnHand, &ls.Reserved, &ls.Available); err != nil {
			return nil, fmt.Errorf("failed to scan stock by location: %w", err)
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}
