package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Directory resolves the external references the ledger consumes: company
// tenancy, the item catalog, and the warehouse/location hierarchy. All of
// these are owned by other modules; the ledger only reads them. Unresolvable
// references surface as NotLinkedError before anything is mutated.
type Directory interface {
	ResolveCompany(ctx context.Context, q Querier, companyCode string) (*Company, error)
	ResolveItem(ctx context.Context, q Querier, companyID int, itemCode string) (*Item, error)
	ResolveWarehouse(ctx context.Context, q Querier, companyID int, warehouseCode string) (*Warehouse, error)
	ResolveLocation(ctx context.Context, q Querier, warehouseID int, locationCode string) (*StorageLocation, error)
	// FallbackLocation returns the warehouse's designated general bin.
	FallbackLocation(ctx context.Context, q Querier, warehouseID int) (*StorageLocation, error)
	LocationsForWarehouse(ctx context.Context, q Querier, warehouseID int) ([]StorageLocation, error)
}

type pgDirectory struct{}

func NewDirectory() Directory {
	return &pgDirectory{}
}

func (d *pgDirectory) ResolveCompany(ctx context.Context, q Querier, companyCode string) (*Company, error) {
	var c Company
	err := q.QueryRow(ctx,
		"SELECT id, company_code, name FROM companies WHERE company_code = $1",
		companyCode,
	).Scan(&c.ID, &c.CompanyCode, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotLinkedError{Kind: "company", Code: companyCode}
		}
		return nil, fmt.Errorf("failed to resolve company: %w", err)
	}
	return &c, nil
}

func (d *pgDirectory) ResolveItem(ctx context.Context, q Querier, companyID int, itemCode string) (*Item, error) {
	var it Item
	err := q.QueryRow(ctx,
		"SELECT id, company_id, code, name, is_active FROM items WHERE company_id = $1 AND code = $2 AND is_active = true",
		companyID, itemCode,
	).Scan(&it.ID, &it.CompanyID, &it.Code, &it.Name, &it.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotLinkedError{Kind: "item", Code: itemCode}
		}
		return nil, fmt.Errorf("failed to resolve item: %w", err)
	}
	return &it, nil
}

func (d *pgDirectory) ResolveWarehouse(ctx context.Context, q Querier, companyID int, warehouseCode string) (*Warehouse, error) {
	var w Warehouse
	err := q.QueryRow(ctx,
		"SELECT id, company_id, code, name, is_active, created_at FROM warehouses WHERE company_id = $1 AND code = $2 AND is_active = true",
		companyID, warehouseCode,
	).Scan(&w.ID, &w.CompanyID, &w.Code, &w.Name, &w.IsActive, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotLinkedError{Kind: "warehouse", Code: warehouseCode}
		}
		return nil, fmt.Errorf("failed to resolve warehouse: %w", err)
	}
	return &w, nil
}

func (d *pgDirectory) ResolveLocation(ctx context.Context, q Querier, warehouseID int, locationCode string) (*StorageLocation, error) {
	var loc StorageLocation
	err := q.QueryRow(ctx,
		"SELECT id, warehouse_id, code, is_fallback FROM storage_locations WHERE warehouse_id = $1 AND code = $2",
		warehouseID, locationCode,
	).Scan(&loc.ID, &loc.WarehouseID, &loc.Code, &loc.IsFallback)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotLinkedError{Kind: "location", Code: locationCode}
		}
		return nil, fmt.Errorf("failed to resolve location: %w", err)
	}
	return &loc, nil
}

func (d *pgDirectory) FallbackLocation(ctx context.Context, q Querier, warehouseID int) (*StorageLocation, error) {
	var loc StorageLocation
	err := q.QueryRow(ctx,
		"SELECT id, warehouse_id, code, is_fallback FROM storage_locations WHERE warehouse_id = $1 AND is_fallback = true",
		warehouseID,
	).Scan(&loc.ID, &loc.WarehouseID, &loc.Code, &loc.IsFallback)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotLinkedError{Kind: "location", Code: "fallback"}
		}
		return nil, fmt.Errorf("failed to resolve fallback location: %w", err)
	}
	return &loc, nil
}

func (d *pgDirectory) LocationsForWarehouse(ctx context.Context, q Querier, warehouseID int) ([]StorageLocation, error) {
	rows, err := q.Query(ctx, `
		SELECT id, warehouse_id, code, is_fallback
		FROM storage_locations
		WHERE warehouse_id = $1
		ORDER BY code
	`, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []StorageLocation
	for rows.Next() {
		var loc StorageLocation
		if err := rows.Scan(&loc.ID, &loc.WarehouseID, &loc.Code, &loc.IsFallback); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}
