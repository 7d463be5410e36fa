package model

import "fmt"

// OwnerID identifies the account or group whose customization is being
// modeled. Overrides are always scoped to exactly one owner; the engine never
// interprets the value beyond equality.
type OwnerID string

// ItemID is the stable identifier of a catalog item.
type ItemID string

// Partition is the logical axis a view is computed over (for example a
// transaction type such as "expense" or "income"). Baseline tables and views
// are per-partition.
type Partition string

// OrderKey is an integer ordering key. Keys are deliberately sparse so that
// later insertions can be interleaved without renumbering neighbors.
type OrderKey int64

// OrderAppend is the effective order key for items that have no baseline
// entry and no override: new custom items land after all defaults, missing
// baseline entries sort last instead of failing the view.
const OrderAppend OrderKey = 1 << 30

// ItemKind distinguishes system-owned default items from owner-created
// custom items.
type ItemKind uint8

const (
	// KindDefault marks a globally shared, system-owned item. Its content is
	// immutable and it is orderable/hideable per owner via overrides only.
	KindDefault ItemKind = iota
	// KindCustom marks an item created by (and visible to) a single owner.
	KindCustom
)

// String returns a human-readable kind name.
func (k ItemKind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindCustom:
		return "custom"
	default:
		return fmt.Sprintf("ItemKind(%d)", uint8(k))
	}
}

// Item is a canonical catalog item. Items are created and destroyed by the
// catalog CRUD layer; the engine only reads them.
type Item struct {
	ID        ItemID
	Partition Partition
	Kind      ItemKind

	// Owner is set for custom items and empty for defaults.
	Owner OwnerID

	// Content is the opaque item payload (name, icon, ...). The engine
	// carries it through views untouched.
	Content map[string]any
}

// IsDefault reports whether the item is a shared default item.
func (it Item) IsDefault() bool { return it.Kind == KindDefault }

// Override is a sparse per-(owner, item) record holding only the deltas from
// baseline. The absence of a record is semantically equivalent to
// {Hidden: false, no custom order}; the engine never requires a record to
// exist for correct behavior.
type Override struct {
	Owner  OwnerID
	ItemID ItemID

	// Hidden removes the item from views unless hidden items are requested.
	Hidden bool

	// Order is the custom order key. Valid only if HasOrder is true.
	Order    OrderKey
	HasOrder bool
}

// ViewEntry is one row of a merged view. It is ephemeral, computed per
// request and never persisted.
type ViewEntry struct {
	Item   Item
	Order  OrderKey
	Hidden bool
}
