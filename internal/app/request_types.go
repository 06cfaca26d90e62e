package app

import (
	"github.com/shopspring/decimal"

	"warehouse-ledger/internal/core"
)

// ReceiveStockRequest records a goods receipt. An empty LocationCode routes
// the stock to the warehouse's fallback bin.
type ReceiveStockRequest struct {
	CompanyCode   string
	ItemCode      string
	WarehouseCode string
	LocationCode  string
	Qty           decimal.Decimal
	ActorID       string
	Reference     string
}

// IssueStockRequest records internal consumption. With a LocationCode the
// issue targets that bin; without one the quantity is allocated across the
// warehouse and rejected outright if total available stock cannot cover it.
type IssueStockRequest struct {
	CompanyCode   string
	ItemCode      string
	WarehouseCode string
	LocationCode  string
	Qty           decimal.Decimal
	ActorID       string
	Reference     string
}

// ReserveStockRequest earmarks stock at one bin.
type ReserveStockRequest struct {
	CompanyCode   string
	ItemCode      string
	WarehouseCode string
	LocationCode  string
	Qty           decimal.Decimal
}

// CommitReservationRequest releases a reservation after the physical pick.
type CommitReservationRequest struct {
	CompanyCode   string
	ItemCode      string
	WarehouseCode string
	LocationCode  string
	Qty           decimal.Decimal
}

// ShipStockRequest deducts on-hand stock as it leaves the facility.
type ShipStockRequest struct {
	CompanyCode   string
	ItemCode      string
	WarehouseCode string
	LocationCode  string
	Qty           decimal.Decimal
	ActorID       string
	Reason        string
}

// RecountStockRequest applies a stocktake: on-hand is set to NewQty absolutely.
type RecountStockRequest struct {
	CompanyCode   string
	ItemCode      string
	WarehouseCode string
	LocationCode  string
	NewQty        decimal.Decimal
	ActorID       string
	Reason        string
}

// PlanRequest asks for an allocation plan preview.
type PlanRequest struct {
	CompanyCode   string
	ItemCode      string
	WarehouseCode string
	Qty           decimal.Decimal
	Purpose       core.PlanPurpose
}
