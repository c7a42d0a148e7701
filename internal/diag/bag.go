package diag

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// Bag holds a collection of diagnostics.
type Bag struct {
	items   []*Diagnostic
	maximum uint16
}

// NewBag creates a Bag with a capacity limit.
func NewBag(maximum int) *Bag {
	result, err := safecast.Conv[uint16](maximum)
	if err != nil {
		panic(fmt.Errorf("bag maximum overflow: %w", err))
	}
	return &Bag{
		items:   make([]*Diagnostic, 0, result),
		maximum: result,
	}
}



func (b *Bag) Add(d *Diagnostic) bool {
	if d == nil {
		return false
	}
	if len(b.items) >= int(b.maximum) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Cap returns the maximum capacity of the bag.
func (b *Bag) Cap() uint16 {
	return b.maximum
}


func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}


func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

// Len returns the number of diagnostics in the bag.
func (b *Bag) Len() int {
	return len(b.items)
}



func (b *Bag) Items() []*Diagnostic {
	return b.items
}



func (b *Bag) Merge(other *Bag) {
	newTotal := len(b.items) + len(other.items)
	newTotalUint16, err := safecast.Conv[uint16](newTotal)
	if err != nil {
		panic(fmt.Errorf("bag merge overflow: %w", err))
	}
	if newTotalUint16 > b.maximum {
		b.maximum = newTotalUint16
	}
	b.items = append(b.items, other.items...)
}



func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]

		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}

		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}

		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}

		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}

		return di.Code.String() < dj.Code.String()
	})
}

// Dedup performs a simple de-duplication by Code and Primary span.
func (b *Bag) Dedup() {
	seen := make(map[string]bool)
	newitems := make([]*Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := fmt.Sprintf("%s:%s", d.Code.String(), d.Primary.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		newitems = append(newitems, d)
	}
	b.items = newitems
}


func (b *Bag) Filter(predicate func(*Diagnostic) bool) {
	newitems := make([]*Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		if predicate(d) {
			newitems = append(newitems, d)
		}
	}
	b.items = newitems
}


func (b *Bag) Transform(transformer func(*Diagnostic) *Diagnostic) {
	for i := range b.items {
		next := transformer(b.items[i])
		if next == nil {
			panic("diag: transformer returned nil")
		}
		b.items[i] = next
	}
}
