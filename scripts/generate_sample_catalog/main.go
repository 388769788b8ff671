package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

type feedEntry struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// Writes data/catalog/products.ndjson.gz, the default SEED_FILES feed.
// Run it from the repository root.
func main() {
	decimal.MarshalJSONWithoutQuotes = true

	dataDir := "data/catalog"
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	entries := []feedEntry{
		{Name: "Widget", Price: decimal.NewFromInt(10), Stock: 5},
		{Name: "Gadget", Price: decimal.RequireFromString("2.50"), Stock: 40},
		{Name: "Gizmo", Price: decimal.RequireFromString("19.99"), Stock: 12},
		{Name: "Sprocket", Price: decimal.RequireFromString("0.35"), Stock: 500},
		{Name: "Flux Capacitor", Price: decimal.RequireFromString("1210.00"), Stock: 1},
		{Name: "Discontinued Doohickey", Price: decimal.RequireFromString("4.00"), Stock: 0},
	}

	filePath := filepath.Join(dataDir, "products.ndjson.gz")
	if err := writeFeed(filePath, entries); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	fmt.Printf("Created %s with %d products\n", filePath, len(entries))
}

func writeFeed(filePath string, entries []feedEntry) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	enc := json.NewEncoder(gzipWriter)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("failed to write product: %w", err)
		}
	}

	return gzipWriter.Close()
}
