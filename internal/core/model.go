package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Company struct {
	ID          int
	CompanyCode string
	Name        string
}

// Item is the ledger's view of a catalog entry. The catalog itself is owned
// elsewhere; the core only resolves (company, code) to an identity.
type Item struct {
	ID        int
	CompanyID int
	Code      string
	Name      string
	IsActive  bool
}

type Warehouse struct {
	ID        int
	CompanyID int
	Code      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// StorageLocation is one bin within a warehouse. Exactly one location per
// warehouse carries IsFallback = true: the general bin used when no specific
// bin is designated.
type StorageLocation struct {
	ID          int
	WarehouseID int
	Code        string
	IsFallback  bool
}

// StockRecord is the authoritative on-hand/reserved quantity pair for one
// (company, item, location). Rows are created implicitly on the first mutating
// write and never deleted. All mutations go through the methods in record.go,
// which keep the record inside the legal region 0 <= reserved <= on-hand.
type StockRecord struct {
	ID         int
	CompanyID  int
	ItemID     int
	LocationID int
	OnHand     decimal.Decimal
	Reserved   decimal.Decimal
	UpdatedAt  time.Time

	// Read-view fields populated by repository joins.
	ItemCode     string
	LocationCode string
	IsFallback   bool
}

// Available returns on-hand minus reserved.
func (r *StockRecord) Available() decimal.Decimal {
	return r.OnHand.Sub(r.Reserved)
}

type MovementOp string

const (
	OpReserve           MovementOp = "RESERVE"
	OpCommitReservation MovementOp = "COMMIT_RESERVATION"
	OpShipReserved      MovementOp = "SHIP_RESERVED"
	OpIssue             MovementOp = "ISSUE"
	OpReceive           MovementOp = "RECEIVE"
	OpRecount           MovementOp = "RECOUNT"
)

// StockMovement is one append-only audit entry. Delta is the signed quantity
// the operation moved: positive for receipts and reservations, negative for
// deductions and reservation releases, and the signed correction for recounts.
type StockMovement struct {
	ID            int
	CompanyID     int
	StockRecordID int
	Operation     MovementOp
	Delta         decimal.Decimal
	ActorID       string
	Reference     string
	CreatedAt     time.Time
}

// LocationStock is a read view of one stock record joined with its warehouse
// and location codes.
type LocationStock struct {
	WarehouseCode string
	LocationCode  string
	OnHand        decimal.Decimal
	Reserved      decimal.Decimal
	Available     decimal.Decimal // = OnHand - Reserved
}

// PlanPurpose selects which quantity counts as allocatable when building a plan.
type PlanPurpose string

const (
	// PlanForPicking allocates from on-hand minus reserved. Used to suggest
	// pick locations before anything is touched.
	PlanForPicking PlanPurpose = "PICKING"
	// PlanForShipment allocates from on-hand only, since reservations have
	// already been committed by the time stock is physically deducted.
	PlanForShipment PlanPurpose = "SHIPMENT"
)

// allocatable returns the quantity of r that this purpose may draw from.
func (p PlanPurpose) allocatable(r *StockRecord) decimal.Decimal {
	if p == PlanForShipment {
		return r.OnHand
	}
	return r.Available()
}

// AllocationStep instructs the caller to take Quantity from one location.
type AllocationStep struct {
	LocationID   int
	LocationCode string
	Quantity     decimal.Decimal
}

// AllocationPlan is a transient, never-persisted value describing which
// locations within one warehouse should supply a requested quantity. Step
// quantities sum to at most Requested; Remainder is the unmet part (zero on
// full coverage) and signals a backorder to the caller.
type AllocationPlan struct {
	CompanyCode   string
	ItemCode      string
	WarehouseCode string
	Purpose       PlanPurpose
	Requested     decimal.Decimal
	Steps         []AllocationStep
	Remainder     decimal.Decimal
}

// ApplyOp is the fulfillment stage executed per step when a plan is applied.
type ApplyOp string

const (
	ApplyCommitReservation ApplyOp = "COMMIT_RESERVATION"
	ApplyShipReserved      ApplyOp = "SHIP_RESERVED"
	ApplyIssue             ApplyOp = "ISSUE"
)
