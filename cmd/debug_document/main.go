package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"metadata-sync/core/config"
	"metadata-sync/core/database"
	"metadata-sync/core/model"
	"metadata-sync/core/storage"
	"metadata-sync/feature/document"
	"metadata-sync/feature/lineage"
	"metadata-sync/feature/profile"

	"go.uber.org/zap"
)

// Builds the document of one table with direct queries only and dumps every
// intermediate step. Nothing is written to the index.
func main() {
	if len(os.Args) != 2 {
		log.Fatal("usage: debug_document project.dataset.table")
	}
	table, err := model.ParseTableDescriptor(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}

	// Load config
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	// Connect to DB
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	// Test 1: Schema
	fmt.Println("=== TEST 1: Schema Catalog ===")
	schema, err := database.NewSchemaCatalog(db, cfg.Database.Project).GetSchema(ctx, table)
	if err != nil {
		log.Fatal(err)
	}
	for _, col := range schema {
		fmt.Printf("%-32s %-20s %s\n", col.Name, col.Type, col.Mode)
	}

	// Test 2: Fallback profile
	fmt.Println("\n=== TEST 2: Fallback Profile ===")
	profiler := profile.NewFallbackProfiler(database.NewQueryEngine(db), cfg.Pipeline.TopValues, cfg.Pipeline.Retry.Policy(), zap.NewNop())
	prof, err := profiler.Profile(ctx, table, schema)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Rows: %d, partial: %v, warnings: %d\n", prof.RowCount, prof.Partial, len(prof.Warnings))

	// Test 3: Lineage (optional)
	fmt.Println("\n=== TEST 3: Lineage ===")
	var refs []model.LineageRef
	if cfg.Storage.LineageRoot() == "" {
		fmt.Println("Lineage disabled (STORAGE_LINEAGE_PREFIX is empty)")
	} else if client, err := storage.NewClient(cfg.Storage); err != nil {
		fmt.Printf("Storage unavailable: %v\n", err)
	} else {
		refs, err = lineage.NewStorageSource(client, cfg.Storage.Bucket, cfg.Storage.LineageRoot()).Lineage(ctx, table)
		if err != nil {
			fmt.Printf("Lineage unavailable: %v\n", err)
		}
	}
	fmt.Printf("Lineage references: %d\n", len(refs))

	// Test 4: Document
	fmt.Println("\n=== TEST 4: Document ===")
	doc, err := document.NewBuilder().Build(table, schema, prof, refs)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("ID: %s\nContent hash: %s\nHigh-fidelity columns: %v\n", doc.ID, doc.ContentHash, doc.Fidelity())

	// Save detailed output
	output := map[string]any{
		"table":    table.Key(),
		"schema":   schema,
		"profile":  prof,
		"document": doc,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	os.WriteFile("debug_document.json", data, 0644)

	fmt.Println("\nDebug complete. Check debug_document.json for details.")
}
