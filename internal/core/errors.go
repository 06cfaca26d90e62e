package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrRecordNotFound reports a stock record that does not exist. Mutating
// paths never surface it (records are created implicitly); it only escapes
// from explicit lookups.
var ErrRecordNotFound = errors.New("stock record not found")

// InsufficientStockError reports a deduction, reservation, or shipment that
// exceeds what is available at the targeted scope. No mutation occurs; the
// caller may retry with a smaller quantity, pick another location, or raise
// a backorder.
type InsufficientStockError struct {
	ItemCode     string
	LocationCode string // empty when the failure is warehouse-scoped
	Requested    decimal.Decimal
	Available    decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	if e.LocationCode == "" {
		return fmt.Sprintf("insufficient stock for item %s: available %s, requested %s",
			e.ItemCode, e.Available.StringFixed(4), e.Requested.StringFixed(4))
	}
	return fmt.Sprintf("insufficient stock for item %s at %s: available %s, requested %s",
		e.ItemCode, e.LocationCode, e.Available.StringFixed(4), e.Requested.StringFixed(4))
}

// InvalidStateError reports an operation that would push a record outside the
// legal region 0 <= reserved <= on-hand, e.g. committing more than is
// reserved or recounting below the outstanding reservation.
type InvalidStateError struct {
	Op     MovementOp
	Detail string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Detail)
}

// NotLinkedError reports a company, item, warehouse, or location reference
// that cannot be resolved. This is a caller configuration defect, not a
// ledger defect, and always aborts before any mutation.
type NotLinkedError struct {
	Kind string // "company", "item", "warehouse", "location"
	Code string
}

func (e *NotLinkedError) Error() string {
	return fmt.Sprintf("%s %q is not linked to a known record", e.Kind, e.Code)
}

// ConcurrencyConflictError reports that a previously computed allocation step
// is no longer satisfiable at application time. The whole plan application
// aborts; nothing is deducted.
type ConcurrencyConflictError struct {
	LocationCode string
	Planned      decimal.Decimal
	Available    decimal.Decimal
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("allocation step at %s no longer satisfiable: planned %s, available %s",
		e.LocationCode, e.Planned.StringFixed(4), e.Available.StringFixed(4))
}
