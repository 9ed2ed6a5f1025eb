package diag

import (
	"cmp"
	"math"
	"slices"

	"fortio.org/safecast"
)

// Bag collects diagnostics up to a limit. It is not safe for concurrent use;
// the driver keeps one bag per method and merges them afterwards.
type Bag struct {
	items []Diagnostic
	max   uint16
}

// NewBag создаёт Bag с лимитом max; max <= 0 означает "без лимита".
func NewBag(max int) *Bag {
	limit, err := safecast.Conv[uint16](max)
	if err != nil || max <= 0 {
		limit = math.MaxUint16
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(int(limit), 16)),
		max:   limit,
	}
}

// Add возвращает false, если лимит уже достигнут.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.max) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends other's diagnostics until the limit is hit.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	for _, d := range other.items {
		if !b.Add(d) {
			return
		}
	}
}

// Sort orders by file, start, end, then severity (worst first) and code.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}

// Dedup drops repeats of the same code, severity, span and message, keeping
// the first occurrence.
func (b *Bag) Dedup() {
	seen := make(map[key]struct{}, len(b.items))
	b.items = slices.DeleteFunc(b.items, func(d Diagnostic) bool {
		k := d.key()
		if _, ok := seen[k]; ok {
			return true
		}
		seen[k] = struct{}{}
		return false
	})
}
