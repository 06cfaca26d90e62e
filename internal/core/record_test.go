package core_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"warehouse-ledger/internal/core"
)

func newRecord(onHand, reserved int64) *core.StockRecord {
	return &core.StockRecord{
		ID:           1,
		CompanyID:    1,
		ItemID:       1,
		LocationID:   1,
		OnHand:       decimal.NewFromInt(onHand),
		Reserved:     decimal.NewFromInt(reserved),
		ItemCode:     "W100",
		LocationCode: "A-01",
	}
}

func mustEqual(t *testing.T, got decimal.Decimal, want int64, what string) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Errorf("Expected %s=%d, got %s", what, want, got)
	}
}

func TestRecord_ReserveCommitShipLifecycle(t *testing.T) {
	// On-hand 10, nothing reserved. Reserve 5, commit the pick, ship.
	r := newRecord(10, 0)

	if _, err := r.Reserve(decimal.NewFromInt(5)); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	mustEqual(t, r.OnHand, 10, "on_hand")
	mustEqual(t, r.Reserved, 5, "reserved")

	if _, err := r.CommitReservation(decimal.NewFromInt(5)); err != nil {
		t.Fatalf("CommitReservation failed: %v", err)
	}
	mustEqual(t, r.OnHand, 10, "on_hand")
	mustEqual(t, r.Reserved, 0, "reserved")

	if _, err := r.ShipReserved(decimal.NewFromInt(5), "tech-7", "work order 42"); err != nil {
		t.Fatalf("ShipReserved failed: %v", err)
	}
	mustEqual(t, r.OnHand, 5, "on_hand")
	mustEqual(t, r.Reserved, 0, "reserved")
}

func TestRecord_ReserveInsufficient(t *testing.T) {
	r := newRecord(10, 7)

	_, err := r.Reserve(decimal.NewFromInt(4))
	var insufficient *core.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected available=3 in error, got %s", insufficient.Available)
	}
	// Failed operations must not touch the record.
	mustEqual(t, r.Reserved, 7, "reserved")
}

func TestRecord_CommitMoreThanReserved(t *testing.T) {
	r := newRecord(10, 3)

	_, err := r.CommitReservation(decimal.NewFromInt(4))
	var invalid *core.InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}
	mustEqual(t, r.Reserved, 3, "reserved")
}

func TestRecord_ShipReleasesTrackedReservation(t *testing.T) {
	// Ship 6 while only 4 are reserved: the full 6 leaves on-hand, the
	// reservation drops to zero, never negative.
	r := newRecord(10, 4)

	if _, err := r.ShipReserved(decimal.NewFromInt(6), "tech-7", "order 9"); err != nil {
		t.Fatalf("ShipReserved failed: %v", err)
	}
	mustEqual(t, r.OnHand, 4, "on_hand")
	mustEqual(t, r.Reserved, 0, "reserved")
}

func TestRecord_ShipOverdraw(t *testing.T) {
	r := newRecord(5, 0)

	_, err := r.ShipReserved(decimal.NewFromInt(6), "tech-7", "order 9")
	var insufficient *core.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	mustEqual(t, r.OnHand, 5, "on_hand")
}

func TestRecord_IssueAndReceive(t *testing.T) {
	r := newRecord(0, 0)

	m, err := r.Receive(decimal.NewFromInt(8), "clerk-1", "PO-100")
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if m.Operation != core.OpReceive || !m.Delta.Equal(decimal.NewFromInt(8)) {
		t.Errorf("Expected RECEIVE movement with delta 8, got %s %s", m.Operation, m.Delta)
	}

	m, err = r.Issue(decimal.NewFromInt(3), "tech-7", "consumption")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !m.Delta.Equal(decimal.NewFromInt(-3)) {
		t.Errorf("Expected ISSUE delta -3, got %s", m.Delta)
	}
	mustEqual(t, r.OnHand, 5, "on_hand")

	_, err = r.Issue(decimal.NewFromInt(6), "tech-7", "consumption")
	var insufficient *core.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	mustEqual(t, r.OnHand, 5, "on_hand")
}

func TestRecord_ZeroAndNegativeQuantitiesRejected(t *testing.T) {
	r := newRecord(10, 0)

	if _, err := r.Reserve(decimal.Zero); err == nil {
		t.Error("Expected error reserving zero quantity")
	}
	if _, err := r.Issue(decimal.NewFromInt(-1), "x", "y"); err == nil {
		t.Error("Expected error issuing negative quantity")
	}
	if _, err := r.Receive(decimal.Zero, "x", "y"); err == nil {
		t.Error("Expected error receiving zero quantity")
	}
	if _, err := r.Recount(decimal.NewFromInt(-2), "x", "y"); err == nil {
		t.Error("Expected error recounting to a negative quantity")
	}
}

func TestRecord_RecountLogsSignedDelta(t *testing.T) {
	r := newRecord(10, 2)

	m, err := r.Recount(decimal.NewFromInt(7), "counter-3", "cycle count")
	if err != nil {
		t.Fatalf("Recount failed: %v", err)
	}
	mustEqual(t, r.OnHand, 7, "on_hand")
	if !m.Delta.Equal(decimal.NewFromInt(-3)) {
		t.Errorf("Expected recount delta -3, got %s", m.Delta)
	}

	m, err = r.Recount(decimal.NewFromInt(12), "counter-3", "surplus found")
	if err != nil {
		t.Fatalf("Recount failed: %v", err)
	}
	if !m.Delta.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected recount delta 5, got %s", m.Delta)
	}
}

func TestRecord_RecountBelowReservationRejected(t *testing.T) {
	r := newRecord(10, 4)

	_, err := r.Recount(decimal.NewFromInt(2), "counter-3", "cycle count")
	var invalid *core.InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}
	mustEqual(t, r.OnHand, 10, "on_hand")

	// A count that still covers the reservation is fine.
	if _, err := r.Recount(decimal.NewFromInt(4), "counter-3", "cycle count"); err != nil {
		t.Fatalf("Recount to reservation floor failed: %v", err)
	}
	mustEqual(t, r.OnHand, 4, "on_hand")
}
