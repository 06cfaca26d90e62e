package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"warehouse-ledger/internal/adapters/cli"
	"warehouse-ledger/internal/app"
	"warehouse-ledger/internal/db"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("Usage: app <command> [args]\nCommands: stock, available, receive, issue, reserve, commit, ship, recount, plan, apply")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	svc := app.NewService(pool)
	cli.Run(ctx, svc, os.Args[1:])
}
