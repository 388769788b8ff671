package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stockroom/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

// Connects with the service's DB_* settings and reports what it finds.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	var dbName, version string
	if err := conn.QueryRow(ctx, "SELECT current_database(), version()").Scan(&dbName, &version); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully connected to database: %s\n", dbName)
	fmt.Printf("Server: %s\n", version)

	fmt.Println("\nTables:")
	for _, table := range []string{"products", "orders", "order_items"} {
		var count int64
		err := conn.QueryRow(ctx, "SELECT count(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&count)
		if err != nil {
			fmt.Printf("  - %-12s missing (run the API with DB_MIGRATE=true)\n", table)
			continue
		}
		fmt.Printf("  - %-12s %d rows\n", table, count)
	}

	var pending, cancelled int64
	err = conn.QueryRow(ctx,
		"SELECT count(*) FILTER (WHERE status = 'pending'), count(*) FILTER (WHERE status = 'cancelled') FROM orders",
	).Scan(&pending, &cancelled)
	if err == nil {
		fmt.Printf("\nOrders: %d pending, %d cancelled\n", pending, cancelled)
	}
}
