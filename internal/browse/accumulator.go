package browse

import (
	"github.com/wichananm65/gift-finder/internal/gift"
)

// Accumulator is the ordered list of items collected for one filtered
// session with a set of their identity keys.
type Accumulator struct {
	items []gift.Item
	keys  map[string]struct{}
}

func NewAccumulator() *Accumulator {
	return &Accumulator{keys: map[string]struct{}{}}
}

// Has reports whether an item with key was already accepted.
func (a *Accumulator) Has(key string) bool {
	_, ok := a.keys[key]
	return ok
}

// Add appends item unless its key is already present.
func (a *Accumulator) Add(item gift.Item) bool {
	k := item.Key()
	if a.Has(k) {
		return false
	}
	a.keys[k] = struct{}{}
	a.items = append(a.items, item)
	return true
}

func (a *Accumulator) Len() int {
	return len(a.items)
}

// Items returns a copy of the accumulated items in acceptance order.
func (a *Accumulator) Items() []gift.Item {
	return append([]gift.Item{}, a.items...)
}

func (a *Accumulator) Reset() {
	a.items = nil
	a.keys = map[string]struct{}{}
}
