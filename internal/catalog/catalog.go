// Package catalog holds the default tracked-item list and seeding logic.
package catalog

import (
	"context"
	"fmt"

	"primeflip/internal/domain"
)

// framePartNames is the standard part breakdown shared by every prime
// warframe set on the marketplace.
var framePartNames = []string{"Blueprint", "Neuroptics", "Chassis", "Systems"}

// Default returns the built-in catalog: a curated list of the most liquid
// prime sets, kept small so a full cycle stays within the marketplace's
// rate limit.
func Default() []domain.TrackedItem {
	frames := []struct {
		id   string
		name string
	}{
		{"mesa_prime", "Mesa Prime"},
		{"volt_prime", "Volt Prime"},
		{"rhino_prime", "Rhino Prime"},
		{"vauban_prime", "Vauban Prime"},
		{"nova_prime", "Nova Prime"},
		{"nekros_prime", "Nekros Prime"},
		{"wukong_prime", "Wukong Prime"},
		{"ash_prime", "Ash Prime"},
		{"trinity_prime", "Trinity Prime"},
		{"loki_prime", "Loki Prime"},
	}

	items := make([]domain.TrackedItem, 0, len(frames))
	for _, f := range frames {
		items = append(items, domain.TrackedItem{
			ID:      f.id,
			Name:    f.name,
			Parts:   framePartNames,
			Kind:    domain.ItemKindWarframe,
			Prime:   true,
			Enabled: true,
		})
	}
	return items
}

// Ensure seeds the store with the default catalog when it is empty.
func Ensure(ctx context.Context, store domain.CatalogStore) error {
	if err := store.Seed(ctx, Default()); err != nil {
		return fmt.Errorf("catalog: seed: %w", err)
	}
	return nil
}
