package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"warehouse-ledger/internal/app"
	"warehouse-ledger/internal/core"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:] — the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	company, err := svc.LoadDefaultCompany(ctx)
	if err != nil {
		log.Fatalf("Failed to load company: %v", err)
	}

	actor := os.Getenv("ACTOR_ID")
	if actor == "" {
		actor = "cli"
	}

	switch args[0] {
	case "stock", "s":
		if len(args) < 2 {
			log.Fatal("Usage: app stock <item>")
		}
		result, err := svc.GetStockByItem(ctx, company.CompanyCode, args[1])
		if err != nil {
			log.Fatalf("Failed to get stock: %v", err)
		}
		printStock(result)

	case "available", "avail":
		if len(args) < 3 {
			log.Fatal("Usage: app available <item> <warehouse>")
		}
		qty, err := svc.GetAvailableQuantity(ctx, company.CompanyCode, args[1], args[2])
		if err != nil {
			log.Fatalf("Failed to get available quantity: %v", err)
		}
		fmt.Printf("%s available in %s: %s\n", args[1], args[2], qty.StringFixed(4))

	case "receive":
		if len(args) < 4 {
			log.Fatal("Usage: app receive <item> <warehouse> <qty> [location] [reference]")
		}
		err := svc.ReceiveStock(ctx, app.ReceiveStockRequest{
			CompanyCode:   company.CompanyCode,
			ItemCode:      args[1],
			WarehouseCode: args[2],
			Qty:           parseQty(args[3]),
			LocationCode:  optArg(args, 4),
			ActorID:       actor,
			Reference:     refOrNew(args, 5),
		})
		if err != nil {
			log.Fatalf("Receive failed: %v", err)
		}
		fmt.Println("Stock received.")

	case "issue":
		if len(args) < 4 {
			log.Fatal("Usage: app issue <item> <warehouse> <qty> [location] [reference]")
		}
		err := svc.IssueStock(ctx, app.IssueStockRequest{
			CompanyCode:   company.CompanyCode,
			ItemCode:      args[1],
			WarehouseCode: args[2],
			Qty:           parseQty(args[3]),
			LocationCode:  optArg(args, 4),
			ActorID:       actor,
			Reference:     refOrNew(args, 5),
		})
		if err != nil {
			log.Fatalf("Issue failed: %v", err)
		}
		fmt.Println("Stock issued.")

	case "reserve":
		if len(args) < 5 {
			log.Fatal("Usage: app reserve <item> <warehouse> <location> <qty>")
		}
		err := svc.ReserveStock(ctx, app.ReserveStockRequest{
			CompanyCode:   company.CompanyCode,
			ItemCode:      args[1],
			WarehouseCode: args[2],
			LocationCode:  args[3],
			Qty:           parseQty(args[4]),
		})
		if err != nil {
			log.Fatalf("Reserve failed: %v", err)
		}
		fmt.Println("Stock reserved.")

	case "commit":
		if len(args) < 5 {
			log.Fatal("Usage: app commit <item> <warehouse> <location> <qty>")
		}
		err := svc.CommitReservation(ctx, app.CommitReservationRequest{
			CompanyCode:   company.CompanyCode,
			ItemCode:      args[1],
			WarehouseCode: args[2],
			LocationCode:  args[3],
			Qty:           parseQty(args[4]),
		})
		if err != nil {
			log.Fatalf("Commit failed: %v", err)
		}
		fmt.Println("Reservation committed.")

	case "ship":
		if len(args) < 5 {
			log.Fatal("Usage: app ship <item> <warehouse> <location> <qty> [reason]")
		}
		err := svc.ShipStock(ctx, app.ShipStockRequest{
			CompanyCode:   company.CompanyCode,
			ItemCode:      args[1],
			WarehouseCode: args[2],
			LocationCode:  args[3],
			Qty:           parseQty(args[4]),
			ActorID:       actor,
			Reason:        optArg(args, 5),
		})
		if err != nil {
			log.Fatalf("Ship failed: %v", err)
		}
		fmt.Println("Stock shipped.")

	case "recount":
		if len(args) < 5 {
			log.Fatal("Usage: app recount <item> <warehouse> <location> <newqty> [reason]")
		}
		err := svc.RecountStock(ctx, app.RecountStockRequest{
			CompanyCode:   company.CompanyCode,
			ItemCode:      args[1],
			WarehouseCode: args[2],
			LocationCode:  args[3],
			NewQty:        parseQty(args[4]),
			ActorID:       actor,
			Reason:        optArg(args, 5),
		})
		if err != nil {
			log.Fatalf("Recount failed: %v", err)
		}
		fmt.Println("Recount applied.")

	case "plan":
		if len(args) < 4 {
			log.Fatal("Usage: app plan <item> <warehouse> <qty> [picking|shipment]")
		}
		purpose := core.PlanForPicking
		if optArg(args, 4) == "shipment" {
			purpose = core.PlanForShipment
		}
		plan, err := svc.ComputePlan(ctx, app.PlanRequest{
			CompanyCode:   company.CompanyCode,
			ItemCode:      args[1],
			WarehouseCode: args[2],
			Qty:           parseQty(args[3]),
			Purpose:       purpose,
		})
		if err != nil {
			log.Fatalf("Plan failed: %v", err)
		}
		// Human-readable preview on stderr; stdout carries the JSON plan so
		// "app plan … | app apply …" composes.
		printPlan(plan)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(plan)

	case "apply":
		// Reads a plan previously printed by "plan" from stdin.
		if len(args) < 2 {
			log.Fatal("Usage: app apply <commit|ship|issue> < plan.json")
		}
		var op core.ApplyOp
		switch args[1] {
		case "commit":
			op = core.ApplyCommitReservation
		case "ship":
			op = core.ApplyShipReserved
		case "issue":
			op = core.ApplyIssue
		default:
			log.Fatalf("Unknown apply operation: %s", args[1])
		}
		var plan core.AllocationPlan
		if err := json.NewDecoder(os.Stdin).Decode(&plan); err != nil {
			log.Fatalf("Invalid plan JSON: %v", err)
		}
		if err := svc.ApplyPlan(ctx, plan, op, actor, uuid.NewString()); err != nil {
			log.Fatalf("Apply failed: %v", err)
		}
		fmt.Println("Plan applied.")

	default:
		log.Fatalf("Unknown command: %s\nAvailable: stock, available, receive, issue, reserve, commit, ship, recount, plan, apply", args[0])
	}
}

func parseQty(s string) decimal.Decimal {
	qty, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatalf("Invalid quantity %q: %v", s, err)
	}
	return qty
}

func optArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

func refOrNew(args []string, i int) string {
	if ref := optArg(args, i); ref != "" {
		return ref
	}
	return uuid.NewString()
}

func printStock(result *app.StockResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("  STOCK BY LOCATION — item %s (company %s)\n", result.ItemCode, result.CompanyCode)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("  %-12s %-12s %12s %12s %12s\n", "WAREHOUSE", "LOCATION", "ON HAND", "RESERVED", "AVAILABLE")
	fmt.Println(strings.Repeat("-", 70))
	for _, ls := range result.Locations {
		fmt.Printf("  %-12s %-12s %12s %12s %12s\n",
			ls.WarehouseCode, ls.LocationCode,
			ls.OnHand.StringFixed(4), ls.Reserved.StringFixed(4), ls.Available.StringFixed(4))
	}
	fmt.Println(strings.Repeat("=", 70))
}

func printPlan(plan *core.AllocationPlan) {
	w := os.Stderr
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 56))
	fmt.Fprintf(w, "  ALLOCATION PLAN  %s in %s (%s)\n", plan.ItemCode, plan.WarehouseCode, plan.Purpose)
	fmt.Fprintln(w, strings.Repeat("=", 56))
	fmt.Fprintf(w, "  %-12s %15s\n", "LOCATION", "QUANTITY")
	fmt.Fprintln(w, strings.Repeat("-", 56))
	for _, step := range plan.Steps {
		fmt.Fprintf(w, "  %-12s %15s\n", step.LocationCode, step.Quantity.StringFixed(4))
	}
	fmt.Fprintln(w, strings.Repeat("-", 56))
	fmt.Fprintf(w, "  Requested: %s   Remainder: %s\n", plan.Requested.StringFixed(4), plan.Remainder.StringFixed(4))
	fmt.Fprintln(w, strings.Repeat("=", 56))
}
