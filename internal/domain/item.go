// Package domain defines the core types shared across primeflip: tracked
// items, marketplace orders, computed opportunities, persisted snapshots,
// and the store/cache interfaces implemented by the infrastructure packages.
package domain

import "strings"

// ItemKind classifies a tracked item.
type ItemKind string

const (
	ItemKindWarframe  ItemKind = "warframe"
	ItemKindEquipment ItemKind = "equipment"
)

// TrackedItem is one catalog entry: a full set composed of named parts.
// Items are immutable during a scheduling cycle; the catalog store owns
// seeding and persistence.
type TrackedItem struct {
	ID      string   // URL-safe id, e.g. "mesa_prime"
	Name    string   // display name, e.g. "Mesa Prime"
	Parts   []string // ordered part names, e.g. ["Blueprint", "Neuroptics", ...]
	Kind    ItemKind
	Prime   bool
	Enabled bool
}

// PartKey builds the marketplace item key for one part of the item,
// e.g. ("mesa_prime", "Neuroptics") -> "mesa_prime_neuroptics".
func (t TrackedItem) PartKey(part string) string {
	return t.ID + "_" + strings.ReplaceAll(strings.ToLower(part), " ", "_")
}

// SetKey builds the marketplace item key for the full set,
// e.g. "mesa_prime" -> "mesa_prime_set".
func (t TrackedItem) SetKey() string {
	return t.ID + "_set"
}
