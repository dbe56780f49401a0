package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/buildmandi/backend/internal/models"
	"github.com/buildmandi/backend/internal/storage"
)

// seedOrders loads demo orders from the given JSON file when the store
// holds no settlement data yet. Missing seed files are not an error, so
// production deployments simply run without one.
func seedOrders(ctx context.Context, store storage.Store, path string) error {
	stats, err := store.GetStatistics(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to check for existing data: %w", err)
	}
	total := stats.PendingCount + stats.ProcessingCount + stats.CompletedCount +
		stats.FailedCount + stats.OnHoldCount
	if total > 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("No seed file, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var orders []models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	seeded := 0
	for i := range orders {
		if _, err := store.GetOrder(ctx, orders[i].ID); err == nil {
			continue
		}
		if err := store.CreateOrder(ctx, &orders[i]); err != nil {
			return fmt.Errorf("failed to seed order %s: %w", orders[i].ID, err)
		}
		seeded++
	}

	if seeded > 0 {
		slog.Info("Seeded demo orders", "path", path, "count", seeded)
	}
	return nil
}
