package deps

import (
	"sort"

	"github.com/felixgeelhaar/uplift/internal/domain/step"
)

// OperationDetails records why a change was proposed and how risky it is.
type OperationDetails struct {
	Details []string
	Risk    step.Risk
}

// merge appends other's rationale and keeps the higher risk.
func (d OperationDetails) merge(other OperationDetails) OperationDetails {
	details := make([]string, 0, len(d.Details)+len(other.Details))
	details = append(details, other.Details...)
	details = append(details, d.Details...)
	return OperationDetails{Details: details, Risk: step.MaxRisk(d.Risk, other.Risk)}
}

// Operation is a proposed addition or removal.
type Operation[T Reference] struct {
	Item T
	OperationDetails
}

// Collection tracks additions and removals against an original reference
// set. A key is never in both sets: additions are keyed by name, removals by
// identity, and adding a key clears every removal of that key. Removals
// count occurrences, so removing one of two identical originals keeps the
// other.
type Collection[T Reference] struct {
	original  []T
	additions map[string]Operation[T]
	removals  map[string]Operation[T]
	removed   map[string]int
	changes   int
}

// NewCollection creates a collection over the project's declared references.
func NewCollection[T Reference](original []T) *Collection[T] {
	orig := make([]T, len(original))
	copy(orig, original)
	return &Collection[T]{
		original:  orig,
		additions: make(map[string]Operation[T]),
		removals:  make(map[string]Operation[T]),
		removed:   make(map[string]int),
	}
}

// Add proposes adding item. An addition whose key matches original items
// replaces them, which is how version upgrades are expressed. A prior removal
// of the same key is dropped and its rationale carried forward.
func (c *Collection[T]) Add(item T, details OperationDetails) {
	key := item.Key()
	for id, op := range c.removals {
		if op.Item.Key() == key {
			details = details.merge(op.OperationDetails)
			delete(c.removals, id)
			delete(c.removed, id)
		}
	}
	c.additions[key] = Operation[T]{Item: item, OperationDetails: details}
	c.changes++
}

// Remove proposes removing one occurrence of item. A pending addition of
// the same key is cancelled; if that addition was replacing original items,
// those originals are removed instead.
func (c *Collection[T]) Remove(item T, details OperationDetails) {
	key := item.Key()
	if _, added := c.additions[key]; added {
		delete(c.additions, key)
		c.changes++
		if c.occurrences(item.Identity()) == 0 {
			for _, orig := range c.original {
				if orig.Key() == key {
					id := orig.Identity()
					c.removals[id] = Operation[T]{Item: orig, OperationDetails: details}
					c.removed[id] = c.occurrences(id)
				}
			}
			return
		}
	}
	id := item.Identity()
	if c.removed[id] >= c.occurrences(id) {
		return
	}
	if op, ok := c.removals[id]; ok {
		details = details.merge(op.OperationDetails)
	}
	c.removals[id] = Operation[T]{Item: item, OperationDetails: details}
	c.removed[id]++
	c.changes++
}

// occurrences counts the originals with the given identity.
func (c *Collection[T]) occurrences(id string) int {
	n := 0
	for _, orig := range c.original {
		if orig.Identity() == id {
			n++
		}
	}
	return n
}

// RemovedCount returns how many occurrences of item are pending removal.
func (c *Collection[T]) RemovedCount(item T) int {
	return c.removed[item.Identity()]
}

// Original returns the references the collection was created with.
func (c *Collection[T]) Original() []T {
	out := make([]T, len(c.original))
	copy(out, c.original)
	return out
}

// Effective returns original minus removals plus additions, sorted by key.
func (c *Collection[T]) Effective() []T {
	out := make([]T, 0, len(c.original)+len(c.additions))
	skipped := make(map[string]int)
	for _, orig := range c.original {
		id := orig.Identity()
		if skipped[id] < c.removed[id] {
			skipped[id]++
			continue
		}
		if _, replaced := c.additions[orig.Key()]; replaced {
			continue
		}
		out = append(out, orig)
	}
	for _, op := range c.additions {
		out = append(out, op.Item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Key() != out[j].Key() {
			return out[i].Key() < out[j].Key()
		}
		return out[i].Identity() < out[j].Identity()
	})
	return out
}

// Find returns the effective items with the given key.
func (c *Collection[T]) Find(key string) []T {
	var out []T
	for _, item := range c.Effective() {
		if item.Key() == key {
			out = append(out, item)
		}
	}
	return out
}

// Contains reports whether an effective item has the given key.
func (c *Collection[T]) Contains(key string) bool {
	return len(c.Find(key)) > 0
}

// Additions returns proposed additions sorted by key.
func (c *Collection[T]) Additions() []Operation[T] {
	return sortedOps(c.additions)
}

// Removals returns proposed removals sorted by identity.
func (c *Collection[T]) Removals() []Operation[T] {
	return sortedOps(c.removals)
}

// Replaces returns the original items that the addition for key replaces.
func (c *Collection[T]) Replaces(key string) []T {
	if _, ok := c.additions[key]; !ok {
		return nil
	}
	var out []T
	for _, orig := range c.original {
		if orig.Key() == key {
			out = append(out, orig)
		}
	}
	return out
}

// HasChanges reports whether any addition or removal is pending.
func (c *Collection[T]) HasChanges() bool {
	return len(c.additions) > 0 || len(c.removals) > 0
}

// Count returns the number of pending operations.
func (c *Collection[T]) Count() int {
	return len(c.additions) + len(c.removals)
}

// Changes returns how many mutations were recorded, including cancelled ones.
func (c *Collection[T]) Changes() int {
	return c.changes
}

func sortedOps[T Reference](m map[string]Operation[T]) []Operation[T] {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Operation[T], 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
