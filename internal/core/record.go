package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// The six ledger mutations. Each is a pure read-modify-write on a single
// record: it validates, either fails without touching the record or applies
// the change, and returns the audit movement describing what happened.
// Persistence and locking are the repository's concern.

func positiveQty(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("quantity must be positive, got %s", qty)
	}
	return nil
}

// Reserve earmarks qty of the on-hand stock for an outstanding commitment.
func (r *StockRecord) Reserve(qty decimal.Decimal) (StockMovement, error) {
	if err := positiveQty(qty); err != nil {
		return StockMovement{}, err
	}
	if r.Available().LessThan(qty) {
		return StockMovement{}, &InsufficientStockError{
			ItemCode:     r.ItemCode,
			LocationCode: r.LocationCode,
			Requested:    qty,
			Available:    r.Available(),
		}
	}
	r.Reserved = r.Reserved.Add(qty)
	return r.movement(OpReserve, qty), nil
}

// CommitReservation releases qty of the reservation once the unit has been
// physically picked. On-hand is unchanged; the stock has not left the
// facility yet.
func (r *StockRecord) CommitReservation(qty decimal.Decimal) (StockMovement, error) {
	if err := positiveQty(qty); err != nil {
		return StockMovement{}, err
	}
	if qty.GreaterThan(r.Reserved) {
		return StockMovement{}, &InvalidStateError{
			Op:     OpCommitReservation,
			Detail: fmt.Sprintf("cannot commit %s, only %s reserved at %s", qty, r.Reserved, r.LocationCode),
		}
	}
	r.Reserved = r.Reserved.Sub(qty)
	return r.movement(OpCommitReservation, qty.Neg()), nil
}

// ShipReserved deducts qty from on-hand as stock leaves the facility. Any
// part of qty still tracked as reserved is released alongside.
func (r *StockRecord) ShipReserved(qty decimal.Decimal, actorID, reason string) (StockMovement, error) {
	if err := positiveQty(qty); err != nil {
		return StockMovement{}, err
	}
	if qty.GreaterThan(r.OnHand) {
		return StockMovement{}, &InsufficientStockError{
			ItemCode:     r.ItemCode,
			LocationCode: r.LocationCode,
			Requested:    qty,
			Available:    r.OnHand,
		}
	}
	r.OnHand = r.OnHand.Sub(qty)
	released := decimal.Min(qty, r.Reserved)
	r.Reserved = r.Reserved.Sub(released)
	m := r.movement(OpShipReserved, qty.Neg())
	m.ActorID = actorID
	m.Reference = reason
	return m, nil
}

// Issue deducts qty from on-hand directly, with no prior reservation step
// (internal consumption).
func (r *StockRecord) Issue(qty decimal.Decimal, actorID, reference string) (StockMovement, error) {
	if err := positiveQty(qty); err != nil {
		return StockMovement{}, err
	}
	if qty.GreaterThan(r.OnHand) {
		return StockMovement{}, &InsufficientStockError{
			ItemCode:     r.ItemCode,
			LocationCode: r.LocationCode,
			Requested:    qty,
			Available:    r.OnHand,
		}
	}
	r.OnHand = r.OnHand.Sub(qty)
	m := r.movement(OpIssue, qty.Neg())
	m.ActorID = actorID
	m.Reference = reference
	return m, nil
}

// Receive adds qty to on-hand: returns, purchase receipts, surplus found on
// count.
func (r *StockRecord) Receive(qty decimal.Decimal, actorID, reference string) (StockMovement, error) {
	if err := positiveQty(qty); err != nil {
		return StockMovement{}, err
	}
	r.OnHand = r.OnHand.Add(qty)
	m := r.movement(OpReceive, qty)
	m.ActorID = actorID
	m.Reference = reference
	return m, nil
}

// Recount sets on-hand to the absolute quantity found by a physical count.
// A recount below the outstanding reservation is rejected: the caller must
// release reservations first, otherwise the ledger would claim commitments
// it cannot cover.
func (r *StockRecord) Recount(newQuantity decimal.Decimal, actorID, reason string) (StockMovement, error) {
	if newQuantity.IsNegative() {
		return StockMovement{}, fmt.Errorf("recount quantity cannot be negative, got %s", newQuantity)
	}
	if newQuantity.LessThan(r.Reserved) {
		return StockMovement{}, &InvalidStateError{
			Op:     OpRecount,
			Detail: fmt.Sprintf("count %s at %s is below outstanding reservation %s", newQuantity, r.LocationCode, r.Reserved),
		}
	}
	delta := newQuantity.Sub(r.OnHand)
	r.OnHand = newQuantity
	m := r.movement(OpRecount, delta)
	m.ActorID = actorID
	m.Reference = reason
	return m, nil
}

func (r *StockRecord) movement(op MovementOp, delta decimal.Decimal) StockMovement {
	return StockMovement{
		CompanyID:     r.CompanyID,
		StockRecordID: r.ID,
		Operation:     op,
		Delta:         delta,
	}
}
