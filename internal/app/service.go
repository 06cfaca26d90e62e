package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"warehouse-ledger/internal/core"
)

// ApplicationService is the single interface all UI adapters call. It
// decouples presentation from the stock ledger core. Implementations must
// contain no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// LoadDefaultCompany loads the active company. Uses COMPANY_CODE env var
	// if set; otherwise expects exactly one company in the database.
	LoadDefaultCompany(ctx context.Context) (*core.Company, error)

	// GetStockByItem returns per-location on-hand/reserved quantities for an item.
	GetStockByItem(ctx context.Context, companyCode, itemCode string) (*StockResult, error)

	// GetAvailableQuantity returns total on-hand minus reserved across a warehouse.
	GetAvailableQuantity(ctx context.Context, companyCode, itemCode, warehouseCode string) (decimal.Decimal, error)

	ReceiveStock(ctx context.Context, req ReceiveStockRequest) error
	IssueStock(ctx context.Context, req IssueStockRequest) error
	ReserveStock(ctx context.Context, req ReserveStockRequest) error
	CommitReservation(ctx context.Context, req CommitReservationRequest) error
	ShipStock(ctx context.Context, req ShipStockRequest) error
	RecountStock(ctx context.Context, req RecountStockRequest) error

	// ComputePlan previews which bins would supply the requested quantity.
	ComputePlan(ctx context.Context, req PlanRequest) (*core.AllocationPlan, error)

	// ApplyPlan executes a previously computed plan. Must only be called with
	// a plan produced by ComputePlan.
	ApplyPlan(ctx context.Context, plan core.AllocationPlan, op core.ApplyOp, actorID, reference string) error
}

type Service struct {
	pool  *pgxpool.Pool
	dir   core.Directory
	stock core.StockService
}

func NewService(pool *pgxpool.Pool) *Service {
	dir := core.NewDirectory()
	repo := core.NewStockRepository()
	return &Service{
		pool:  pool,
		dir:   dir,
		stock: core.NewStockService(pool, repo, dir),
	}
}

func (s *Service) LoadDefaultCompany(ctx context.Context) (*core.Company, error) {
	if code := os.Getenv("COMPANY_CODE"); code != "" {
		return s.dir.ResolveCompany(ctx, s.pool, code)
	}

	rows, err := s.pool.Query(ctx, "SELECT id, company_code, name FROM companies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []core.Company
	for rows.Next() {
		var c core.Company
		if err := rows.Scan(&c.ID, &c.CompanyCode, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(companies) {
	case 0:
		return nil, fmt.Errorf("no companies found; run migrations and seed a company first")
	case 1:
		return &companies[0], nil
	default:
		return nil, fmt.Errorf("multiple companies found; set COMPANY_CODE to pick one")
	}
}

func (s *Service) GetStockByItem(ctx context.Context, companyCode, itemCode string) (*StockResult, error) {
	locations, err := s.stock.StockByLocation(ctx, companyCode, itemCode)
	if err != nil {
		return nil, err
	}
	return &StockResult{CompanyCode: companyCode, ItemCode: itemCode, Locations: locations}, nil
}

func (s *Service) GetAvailableQuantity(ctx context.Context, companyCode, itemCode, warehouseCode string) (decimal.Decimal, error) {
	return s.stock.AvailableQuantity(ctx, companyCode, itemCode, warehouseCode)
}

func (s *Service) ReceiveStock(ctx context.Context, req ReceiveStockRequest) error {
	return s.stock.Receive(ctx, req.CompanyCode, req.ItemCode, req.WarehouseCode, req.LocationCode,
		req.Qty, req.ActorID, req.Reference)
}

func (s *Service) IssueStock(ctx context.Context, req IssueStockRequest) error {
	if req.LocationCode == "" {
		return s.stock.IssueFromWarehouse(ctx, req.CompanyCode, req.ItemCode, req.WarehouseCode,
			req.Qty, req.ActorID, req.Reference)
	}
	return s.stock.Issue(ctx, req.CompanyCode, req.ItemCode, req.WarehouseCode, req.LocationCode,
		req.Qty, req.ActorID, req.Reference)
}

func (s *Service) ReserveStock(ctx context.Context, req ReserveStockRequest) error {
	return s.stock.Reserve(ctx, req.CompanyCode, req.ItemCode, req.WarehouseCode, req.LocationCode, req.Qty)
}

func (s *Service) CommitReservation(ctx context.Context, req CommitReservationRequest) error {
	return s.stock.CommitReservation(ctx, req.CompanyCode, req.ItemCode, req.WarehouseCode, req.LocationCode, req.Qty)
}

func (s *Service) ShipStock(ctx context.Context, req ShipStockRequest) error {
	return s.stock.ShipReserved(ctx, req.CompanyCode, req.ItemCode, req.WarehouseCode, req.LocationCode,
		req.Qty, req.ActorID, req.Reason)
}

func (s *Service) RecountStock(ctx context.Context, req RecountStockRequest) error {
	return s.stock.Recount(ctx, req.CompanyCode, req.ItemCode, req.WarehouseCode, req.LocationCode,
		req.NewQty, req.ActorID, req.Reason)
}

func (s *Service) ComputePlan(ctx context.Context, req PlanRequest) (*core.AllocationPlan, error) {
	purpose := req.Purpose
	if purpose == "" {
		purpose = core.PlanForPicking
	}
	return s.stock.ComputeAllocationPlan(ctx, req.CompanyCode, req.ItemCode, req.WarehouseCode, req.Qty, purpose)
}

func (s *Service) ApplyPlan(ctx context.Context, plan core.AllocationPlan, op core.ApplyOp, actorID, reference string) error {
	return s.stock.ApplyAllocationPlan(ctx, &plan, op, actorID, reference)
}
