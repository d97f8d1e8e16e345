// Package database handles the query engine connection and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL connections based on the
// application's configuration, and two read-only services built on it.
//
// # Query Engine
//
// GormQueryEngine executes the aggregation statements of the fallback profiler. Every
// statement passes CheckReadOnly before dispatch: only a single SELECT (or WITH ... SELECT)
// is accepted, and DDL/DML keywords outside quoted literals are rejected.
//
// # Schema Catalog
//
// InformationSchemaCatalog reads column definitions from information_schema. A dataset
// maps to a MySQL schema and the project is the label configured for the connection.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	catalog := database.NewSchemaCatalog(db, cfg.Database.Project)
//	columns, err := catalog.GetSchema(ctx, table)
package database
