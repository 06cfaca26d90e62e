package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// AllocationPlanner computes ordered multi-location fulfillment plans. It is
// strictly read-only: plans are computed without locks, and the use case that
// applies a plan re-validates every step against the live rows inside its own
// transaction.
type AllocationPlanner struct {
	repo StockRepository
}

func NewAllocationPlanner(repo StockRepository) *AllocationPlanner {
	return &AllocationPlanner{repo: repo}
}

// ComputePlan loads the item's records across the warehouse and builds a plan
// for the requested quantity. Repeated calls with unchanged ledger state
// return identical plans.
func (p *AllocationPlanner) ComputePlan(ctx context.Context, q Querier, companyID, itemID, warehouseID int,
	requested decimal.Decimal, purpose PlanPurpose) (*AllocationPlan, error) {

	if requested.IsNegative() {
		return nil, fmt.Errorf("requested quantity cannot be negative, got %s", requested)
	}
	records, err := p.repo.FindAllForItemInWarehouse(ctx, q, companyID, itemID, warehouseID, false)
	if err != nil {
		return nil, err
	}
	return BuildPlan(records, requested, purpose), nil
}

// BuildPlan greedily allocates requested across the given records.
//
// Candidate order is fully deterministic: specific bins come before the
// fallback/general bin, and within each group bins are walked in ascending
// location code order. Location codes are unique per warehouse, so the order
// is total. It is externally observable in plan output and must not change
// casually.
func BuildPlan(records []*StockRecord, requested decimal.Decimal, purpose PlanPurpose) *AllocationPlan {
	type candidate struct {
		rec         *StockRecord
		allocatable decimal.Decimal
	}

	var candidates []candidate
	for _, r := range records {
		avail := purpose.allocatable(r)
		if avail.IsPositive() {
			candidates = append(candidates, candidate{rec: r, allocatable: avail})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.rec.IsFallback != b.rec.IsFallback {
			return !a.rec.IsFallback
		}
		return a.rec.LocationCode < b.rec.LocationCode
	})

	plan := &AllocationPlan{
		Purpose:   purpose,
		Requested: requested,
	}
	remaining := requested
	for _, c := range candidates {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, c.allocatable)
		plan.Steps = append(plan.Steps, AllocationStep{
			LocationID:   c.rec.LocationID,
			LocationCode: c.rec.LocationCode,
			Quantity:     take,
		})
		remaining = remaining.Sub(take)
	}
	plan.Remainder = remaining
	return plan
}
