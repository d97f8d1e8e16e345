package pipeline

import (
	"context"
	"fmt"
	"strings"

	"metadata-sync/core/database"
	"metadata-sync/core/model"
	"metadata-sync/core/retry"
)

// ResolveTables expands table filters into descriptors. A filter is either
// "project.dataset.table" or "project.dataset.*" (also "project.dataset"), the latter
// listed through the catalog. Duplicates are dropped, first occurrence wins.
func ResolveTables(ctx context.Context, catalog database.SchemaCatalog, filters []string) ([]model.TableDescriptor, error) {
	var tables []model.TableDescriptor
	seen := make(map[string]bool)
	add := func(t model.TableDescriptor) {
		if !seen[t.Key()] {
			seen[t.Key()] = true
			tables = append(tables, t)
		}
	}

	for _, filter := range filters {
		filter = strings.TrimSpace(filter)
		if filter == "" {
			continue
		}
		parts := strings.Split(filter, ".")
		switch {
		case len(parts) == 2 || (len(parts) == 3 && parts[2] == "*"):
			if parts[0] == "" || parts[1] == "" {
				return nil, retry.ConfigError(fmt.Errorf("invalid table filter %q", filter))
			}
			listed, err := catalog.ListTables(ctx, parts[0], parts[1])
			if err != nil {
				return nil, fmt.Errorf("failed to list tables for %q: %w", filter, err)
			}
			for _, t := range listed {
				add(t)
			}
		default:
			t, err := model.ParseTableDescriptor(filter)
			if err != nil {
				return nil, retry.ConfigError(err)
			}
			add(t)
		}
	}
	return tables, nil
}
