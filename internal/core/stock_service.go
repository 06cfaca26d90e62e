package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StockService is the public contract of the stock ledger core. External
// modules mutate stock exclusively through it.
//
// Every operation is code-addressed and resolves its references through the
// Directory before touching the ledger; an unresolvable reference aborts with
// NotLinkedError and no mutation. Standalone operations manage their own
// transaction. The Tx-scoped twins work within a caller-provided transaction
// so stock mutation and dependent business state (a shipment update, a
// spare-part consumption record) commit or fail together.
type StockService interface {
	// Reserve earmarks stock at one location for an outstanding commitment.
	Reserve(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal) error
	// CommitReservation releases a reservation once the stock has been picked.
	CommitReservation(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal) error
	// ShipReserved deducts on-hand stock as it leaves the facility.
	ShipReserved(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reason string) error
	// Issue deducts on-hand stock directly, with no reservation step.
	Issue(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reference string) error
	// IssueFromWarehouse plans across the warehouse's locations and issues the
	// full quantity, or fails with InsufficientStockError without deducting
	// anything when total available stock does not cover it.
	IssueFromWarehouse(ctx context.Context, companyCode, itemCode, warehouseCode string, qty decimal.Decimal, actorID, reference string) error
	// Receive adds stock. An empty locationCode routes to the warehouse's
	// fallback bin.
	Receive(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reference string) error
	// Recount sets on-hand to an absolute physically counted quantity.
	Recount(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, newQty decimal.Decimal, actorID, reason string) error

	// AvailableQuantity returns the sum of on-hand minus reserved across the
	// warehouse's locations.
	AvailableQuantity(ctx context.Context, companyCode, itemCode, warehouseCode string) (decimal.Decimal, error)
	// StockByLocation returns per-location on-hand/reserved for one item
	// across all of the company's warehouses.
	StockByLocation(ctx context.Context, companyCode, itemCode string) ([]LocationStock, error)

	// ComputeAllocationPlan builds a deterministic, side-effect-free plan for
	// the requested quantity. It never creates backorders; a non-zero
	// Remainder is the caller's signal.
	ComputeAllocationPlan(ctx context.Context, companyCode, itemCode, warehouseCode string, requested decimal.Decimal, purpose PlanPurpose) (*AllocationPlan, error)
	// ApplyAllocationPlan executes a previously computed plan, one op per
	// step, in a single transaction. Every step is re-validated against the
	// live row first; any shortfall aborts the whole application with
	// ConcurrencyConflictError.
	ApplyAllocationPlan(ctx context.Context, plan *AllocationPlan, op ApplyOp, actorID, reference string) error

	// TX-scoped twins.
	ReserveTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal) error
	CommitReservationTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal) error
	ShipReservedTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reason string) error
	IssueTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reference string) error
	ReceiveTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reference string) error
	RecountTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, newQty decimal.Decimal, actorID, reason string) error
	ApplyAllocationPlanTx(ctx context.Context, tx pgx.Tx, plan *AllocationPlan, op ApplyOp, actorID, reference string) error
}

type stockService struct {
	pool    *pgxpool.Pool
	repo    StockRepository
	dir     Directory
	planner *AllocationPlanner
}

func NewStockService(pool *pgxpool.Pool, repo StockRepository, dir Directory) StockService {
	return &stockService{
		pool:    pool,
		repo:    repo,
		dir:     dir,
		planner: NewAllocationPlanner(repo),
	}
}

// ── Transaction plumbing ──────────────────────────────────────────────────────

func (s *stockService) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// target bundles the resolved identities of one ledger address.
type target struct {
	company   *Company
	item      *Item
	warehouse *Warehouse
	location  *StorageLocation
}

// resolveTarget resolves company, item, warehouse and location codes. An
// empty locationCode resolves to the warehouse's fallback bin.
func (s *stockService) resolveTarget(ctx context.Context, q Querier, companyCode, itemCode, warehouseCode, locationCode string) (*target, error) {
	company, err := s.dir.ResolveCompany(ctx, q, companyCode)
	if err != nil {
		return nil, err
	}
	item, err := s.dir.ResolveItem(ctx, q, company.ID, itemCode)
	if err != nil {
		return nil, err
	}
	warehouse, err := s.dir.ResolveWarehouse(ctx, q, company.ID, warehouseCode)
	if err != nil {
		return nil, err
	}
	t := &target{company: company, item: item, warehouse: warehouse}
	if locationCode == "" {
		t.location, err = s.dir.FallbackLocation(ctx, q, warehouse.ID)
	} else {
		t.location, err = s.dir.ResolveLocation(ctx, q, warehouse.ID, locationCode)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// mutateOne runs a single-record mutation: resolve, lock (creating the
// zero-quantity row on first write), apply, save, append the audit entry.
func (s *stockService) mutateOne(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string,
	apply func(*StockRecord) (StockMovement, error)) error {

	t, err := s.resolveTarget(ctx, tx, companyCode, itemCode, warehouseCode, locationCode)
	if err != nil {
		return err
	}
	rec, err := s.repo.GetOrCreate(ctx, tx, t.company.ID, t.item.ID, t.location.ID)
	if err != nil {
		return err
	}
	m, err := apply(rec)
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, tx, rec); err != nil {
		return err
	}
	return s.repo.AppendMovement(ctx, tx, m)
}

// ── Single-record use cases ───────────────────────────────────────────────────

func (s *stockService) ReserveTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal) error {
	return s.mutateOne(ctx, tx, companyCode, itemCode, warehouseCode, locationCode,
		func(r *StockRecord) (StockMovement, error) { return r.Reserve(qty) })
}

func (s *stockService) Reserve(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.ReserveTx(ctx, tx, companyCode, itemCode, warehouseCode, locationCode, qty)
	})
}

func (s *stockService) CommitReservationTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal) error {
	return s.mutateOne(ctx, tx, companyCode, itemCode, warehouseCode, locationCode,
		func(r *StockRecord) (StockMovement, error) { return r.CommitReservation(qty) })
}

func (s *stockService) CommitReservation(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.CommitReservationTx(ctx, tx, companyCode, itemCode, warehouseCode, locationCode, qty)
	})
}

func (s *stockService) ShipReservedTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reason string) error {
	return s.mutateOne(ctx, tx, companyCode, itemCode, warehouseCode, locationCode,
		func(r *StockRecord) (StockMovement, error) { return r.ShipReserved(qty, actorID, reason) })
}

func (s *stockService) ShipReserved(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reason string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.ShipReservedTx(ctx, tx, companyCode, itemCode, warehouseCode, locationCode, qty, actorID, reason)
	})
}

func (s *stockService) IssueTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reference string) error {
	return s.mutateOne(ctx, tx, companyCode, itemCode, warehouseCode, locationCode,
		func(r *StockRecord) (StockMovement, error) { return r.Issue(qty, actorID, reference) })
}

func (s *stockService) Issue(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reference string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.IssueTx(ctx, tx, companyCode, itemCode, warehouseCode, locationCode, qty, actorID, reference)
	})
}

func (s *stockService) ReceiveTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reference string) error {
	return s.mutateOne(ctx, tx, companyCode, itemCode, warehouseCode, locationCode,
		func(r *StockRecord) (StockMovement, error) { return r.Receive(qty, actorID, reference) })
}

func (s *stockService) Receive(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, qty decimal.Decimal, actorID, reference string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.ReceiveTx(ctx, tx, companyCode, itemCode, warehouseCode, locationCode, qty, actorID, reference)
	})
}

func (s *stockService) RecountTx(ctx context.Context, tx pgx.Tx, companyCode, itemCode, warehouseCode, locationCode string, newQty decimal.Decimal, actorID, reason string) error {
	return s.mutateOne(ctx, tx, companyCode, itemCode, warehouseCode, locationCode,
		func(r *StockRecord) (StockMovement, error) { return r.Recount(newQty, actorID, reason) })
}

func (s *stockService) Recount(ctx context.Context, companyCode, itemCode, warehouseCode, locationCode string, newQty decimal.Decimal, actorID, reason string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.RecountTx(ctx, tx, companyCode, itemCode, warehouseCode, locationCode, newQty, actorID, reason)
	})
}

// ── Warehouse-scoped use cases ────────────────────────────────────────────────

func (s *stockService) IssueFromWarehouse(ctx context.Context, companyCode, itemCode, warehouseCode string, qty decimal.Decimal, actorID, reference string) error {
	if err := positiveQty(qty); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		company, err := s.dir.ResolveCompany(ctx, tx, companyCode)
		if err != nil {
			return err
		}
		item, err := s.dir.ResolveItem(ctx, tx, company.ID, itemCode)
		if err != nil {
			return err
		}
		warehouse, err := s.dir.ResolveWarehouse(ctx, tx, company.ID, warehouseCode)
		if err != nil {
			return err
		}

		// Lock every candidate row up front, then plan against the locked
		// state: the plan cannot go stale before it is applied.
		records, err := s.repo.FindAllForItemInWarehouse(ctx, tx, company.ID, item.ID, warehouse.ID, true)
		if err != nil {
			return err
		}
		plan := BuildPlan(records, qty, PlanForPicking)
		if plan.Remainder.IsPositive() {
			return &InsufficientStockError{
				ItemCode:  itemCode,
				Requested: qty,
				Available: qty.Sub(plan.Remainder),
			}
		}

		byLocation := make(map[int]*StockRecord, len(records))
		for _, r := range records {
			byLocation[r.LocationID] = r
		}
		for _, step := range plan.Steps {
			rec := byLocation[step.LocationID]
			m, err := rec.Issue(step.Quantity, actorID, reference)
			if err != nil {
				return err
			}
			if err := s.repo.Save(ctx, tx, rec); err != nil {
				return err
			}
			if err := s.repo.AppendMovement(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *stockService) AvailableQuantity(ctx context.Context, companyCode, itemCode, warehouseCode string) (decimal.Decimal, error) {
	company, err := s.dir.ResolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return decimal.Zero, err
	}
	item, err := s.dir.ResolveItem(ctx, s.pool, company.ID, itemCode)
	if err != nil {
		return decimal.Zero, err
	}
	warehouse, err := s.dir.ResolveWarehouse(ctx, s.pool, company.ID, warehouseCode)
	if err != nil {
		return decimal.Zero, err
	}
	records, err := s.repo.FindAllForItemInWarehouse(ctx, s.pool, company.ID, item.ID, warehouse.ID, false)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Available())
	}
	return total, nil
}

func (s *stockService) StockByLocation(ctx context.Context, companyCode, itemCode string) ([]LocationStock, error) {
	company, err := s.dir.ResolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	item, err := s.dir.ResolveItem(ctx, s.pool, company.ID, itemCode)
	if err != nil {
		return nil, err
	}
	return s.repo.StockByLocation(ctx, s.pool, company.ID, item.ID)
}

// ── Allocation planning ───────────────────────────────────────────────────────

func (s *stockService) ComputeAllocationPlan(ctx context.Context, companyCode, itemCode, warehouseCode string, requested decimal.Decimal, purpose PlanPurpose) (*AllocationPlan, error) {
	company, err := s.dir.ResolveCompany(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	item, err := s.dir.ResolveItem(ctx, s.pool, company.ID, itemCode)
	if err != nil {
		return nil, err
	}
	warehouse, err := s.dir.ResolveWarehouse(ctx, s.pool, company.ID, warehouseCode)
	if err != nil {
		return nil, err
	}
	plan, err := s.planner.ComputePlan(ctx, s.pool, company.ID, item.ID, warehouse.ID, requested, purpose)
	if err != nil {
		return nil, err
	}
	plan.CompanyCode = companyCode
	plan.ItemCode = itemCode
	plan.WarehouseCode = warehouseCode
	return plan, nil
}

func (s *stockService) ApplyAllocationPlanTx(ctx context.Context, tx pgx.Tx, plan *AllocationPlan, op ApplyOp, actorID, reference string) error {
	if len(plan.Steps) == 0 {
		return nil
	}
	company, err := s.dir.ResolveCompany(ctx, tx, plan.CompanyCode)
	if err != nil {
		return err
	}
	item, err := s.dir.ResolveItem(ctx, tx, company.ID, plan.ItemCode)
	if err != nil {
		return err
	}
	warehouse, err := s.dir.ResolveWarehouse(ctx, tx, company.ID, plan.WarehouseCode)
	if err != nil {
		return err
	}

	for _, step := range plan.Steps {
		loc, err := s.dir.ResolveLocation(ctx, tx, warehouse.ID, step.LocationCode)
		if err != nil {
			return err
		}
		rec, err := s.repo.FindByLocation(ctx, tx, company.ID, item.ID, loc.ID)
		if errors.Is(err, ErrRecordNotFound) {
			return &ConcurrencyConflictError{LocationCode: step.LocationCode, Planned: step.Quantity, Available: decimal.Zero}
		}
		if err != nil {
			return err
		}

		// Plan computation and application are not one atomic step: the row
		// may have moved since the plan was built. Re-validate before
		// deducting; any shortfall fails the whole application.
		var have decimal.Decimal
		switch op {
		case ApplyCommitReservation:
			have = rec.Reserved
		case ApplyShipReserved, ApplyIssue:
			have = rec.OnHand
		default:
			return fmt.Errorf("unknown apply operation %q", op)
		}
		if have.LessThan(step.Quantity) {
			return &ConcurrencyConflictError{LocationCode: step.LocationCode, Planned: step.Quantity, Available: have}
		}

		var m StockMovement
		switch op {
		case ApplyCommitReservation:
			m, err = rec.CommitReservation(step.Quantity)
		case ApplyShipReserved:
			m, err = rec.ShipReserved(step.Quantity, actorID, reference)
		case ApplyIssue:
			m, err = rec.Issue(step.Quantity, actorID, reference)
		}
		if err != nil {
			return err
		}
		if m.ActorID == "" {
			m.ActorID = actorID
		}
		if m.Reference == "" {
			m.Reference = reference
		}
		if err := s.repo.Save(ctx, tx, rec); err != nil {
			return err
		}
		if err := s.repo.AppendMovement(ctx, tx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *stockService) ApplyAllocationPlan(ctx context.Context, plan *AllocationPlan, op ApplyOp, actorID, reference string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return s.ApplyAllocationPlanTx(ctx, tx, plan, op, actorID, reference)
	})
}
