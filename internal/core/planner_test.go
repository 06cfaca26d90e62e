package core_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"warehouse-ledger/internal/core"
)

// plannerRecords builds the stock layout used throughout the planner tests:
// L1 and L2 are specific bins, GENERAL is the fallback.
func plannerRecords(onHandL1, onHandL2, onHandGeneral int64) []*core.StockRecord {
	return []*core.StockRecord{
		{ID: 1, LocationID: 1, LocationCode: "L1", OnHand: decimal.NewFromInt(onHandL1)},
		{ID: 2, LocationID: 2, LocationCode: "L2", OnHand: decimal.NewFromInt(onHandL2)},
		{ID: 3, LocationID: 3, LocationCode: "GENERAL", IsFallback: true, OnHand: decimal.NewFromInt(onHandGeneral)},
	}
}

func assertStep(t *testing.T, step core.AllocationStep, location string, qty int64) {
	t.Helper()
	if step.LocationCode != location || !step.Quantity.Equal(decimal.NewFromInt(qty)) {
		t.Errorf("Expected step {%s, %d}, got {%s, %s}", location, qty, step.LocationCode, step.Quantity)
	}
}

func TestBuildPlan_MultiLocationFulfillment(t *testing.T) {
	// L1=3, L2=7, GENERAL=0; request 8 → [{L1,3},{L2,5}], remainder 0.
	plan := core.BuildPlan(plannerRecords(3, 7, 0), decimal.NewFromInt(8), core.PlanForPicking)

	if len(plan.Steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(plan.Steps))
	}
	assertStep(t, plan.Steps[0], "L1", 3)
	assertStep(t, plan.Steps[1], "L2", 5)
	if !plan.Remainder.IsZero() {
		t.Errorf("Expected remainder 0, got %s", plan.Remainder)
	}
}

func TestBuildPlan_PartialFulfillment(t *testing.T) {
	// Same layout, request 15 → [{L1,3},{L2,7}], remainder 5.
	plan := core.BuildPlan(plannerRecords(3, 7, 0), decimal.NewFromInt(15), core.PlanForPicking)

	if len(plan.Steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(plan.Steps))
	}
	assertStep(t, plan.Steps[0], "L1", 3)
	assertStep(t, plan.Steps[1], "L2", 7)
	if !plan.Remainder.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected remainder 5, got %s", plan.Remainder)
	}
}

func TestBuildPlan_FallbackComesLast(t *testing.T) {
	plan := core.BuildPlan(plannerRecords(3, 7, 100), decimal.NewFromInt(12), core.PlanForPicking)

	if len(plan.Steps) != 3 {
		t.Fatalf("Expected 3 steps, got %d", len(plan.Steps))
	}
	assertStep(t, plan.Steps[0], "L1", 3)
	assertStep(t, plan.Steps[1], "L2", 7)
	assertStep(t, plan.Steps[2], "GENERAL", 2)
}

func TestBuildPlan_SpecificBinsOrderedByCode(t *testing.T) {
	// A bin with less stock but a lower code is preferred: the walk order is
	// bin-code priority, not biggest-pile-first.
	records := []*core.StockRecord{
		{ID: 1, LocationID: 1, LocationCode: "B-09", OnHand: decimal.NewFromInt(50)},
		{ID: 2, LocationID: 2, LocationCode: "A-02", OnHand: decimal.NewFromInt(1)},
	}
	plan := core.BuildPlan(records, decimal.NewFromInt(10), core.PlanForPicking)

	assertStep(t, plan.Steps[0], "A-02", 1)
	assertStep(t, plan.Steps[1], "B-09", 9)
}

func TestBuildPlan_PurposeSelectsAvailability(t *testing.T) {
	records := []*core.StockRecord{
		{ID: 1, LocationID: 1, LocationCode: "L1",
			OnHand: decimal.NewFromInt(10), Reserved: decimal.NewFromInt(10)},
	}

	// For picking the bin is fully reserved: nothing allocatable.
	plan := core.BuildPlan(records, decimal.NewFromInt(5), core.PlanForPicking)
	if len(plan.Steps) != 0 {
		t.Errorf("Expected no picking steps from a fully reserved bin, got %d", len(plan.Steps))
	}
	if !plan.Remainder.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected remainder 5, got %s", plan.Remainder)
	}

	// For shipment the reservation has already been committed; on-hand counts.
	plan = core.BuildPlan(records, decimal.NewFromInt(5), core.PlanForShipment)
	if len(plan.Steps) != 1 {
		t.Fatalf("Expected 1 shipment step, got %d", len(plan.Steps))
	}
	assertStep(t, plan.Steps[0], "L1", 5)
}

func TestBuildPlan_Deterministic(t *testing.T) {
	records := plannerRecords(3, 7, 4)

	first := core.BuildPlan(records, decimal.NewFromInt(12), core.PlanForPicking)
	second := core.BuildPlan(records, decimal.NewFromInt(12), core.PlanForPicking)

	if len(first.Steps) != len(second.Steps) {
		t.Fatalf("Plans differ in length: %d vs %d", len(first.Steps), len(second.Steps))
	}
	for i := range first.Steps {
		a, b := first.Steps[i], second.Steps[i]
		if a.LocationCode != b.LocationCode || !a.Quantity.Equal(b.Quantity) {
			t.Errorf("Step %d differs: {%s,%s} vs {%s,%s}", i, a.LocationCode, a.Quantity, b.LocationCode, b.Quantity)
		}
	}
}

func TestBuildPlan_StepsNeverExceedRequested(t *testing.T) {
	plan := core.BuildPlan(plannerRecords(30, 70, 40), decimal.NewFromInt(12), core.PlanForPicking)

	total := decimal.Zero
	for _, step := range plan.Steps {
		total = total.Add(step.Quantity)
	}
	if !total.Equal(decimal.NewFromInt(12)) {
		t.Errorf("Expected steps to sum to 12, got %s", total)
	}
	if !plan.Remainder.IsZero() {
		t.Errorf("Expected remainder 0, got %s", plan.Remainder)
	}
}

func TestBuildPlan_ZeroRequest(t *testing.T) {
	plan := core.BuildPlan(plannerRecords(3, 7, 0), decimal.Zero, core.PlanForPicking)

	if len(plan.Steps) != 0 {
		t.Errorf("Expected no steps for a zero request, got %d", len(plan.Steps))
	}
	if !plan.Remainder.IsZero() {
		t.Errorf("Expected remainder 0, got %s", plan.Remainder)
	}
}
