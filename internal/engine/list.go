package engine

import (
	"iter"
	"slices"
)

// Entity is a view over one document record.
type Entity[R any] interface {
	Record() *R
}

// List keeps a document record list and its view list in lockstep: same length,
// same order, view i wraps record i.
type List[R any, E Entity[R]] struct {
	records *[]*R
	items   []E
}

// NewList wraps every record of *records.
func NewList[R any, E Entity[R]](records *[]*R, wrap func(*R) E) *List[R, E] {
	l := &List[R, E]{records: records, items: make([]E, 0, len(*records))}
	for _, r := range *records {
		l.items = append(l.items, wrap(r))
	}
	return l
}

func (l *List[R, E]) Len() int { return len(l.items) }

// At returns the view at index i. It panics when i is out of range, like a slice.
func (l *List[R, E]) At(i int) E { return l.items[i] }

// Get returns the view at index i, or false when i is out of range.
func (l *List[R, E]) Get(i int) (E, bool) {
	if i < 0 || i >= len(l.items) {
		var zero E
		return zero, false
	}
	return l.items[i], true
}

// All iterates in paint order.
func (l *List[R, E]) All() iter.Seq2[int, E] { return slices.All(l.items) }

// Backward iterates topmost first.
func (l *List[R, E]) Backward() iter.Seq2[int, E] { return slices.Backward(l.items) }

// Index returns the position of e, matched by record identity, or -1.
func (l *List[R, E]) Index(e E) int {
	rec := e.Record()
	for i, it := range l.items {
		if it.Record() == rec {
			return i
		}
	}
	return -1
}

func (l *List[R, E]) Append(e E) {
	*l.records = append(*l.records, e.Record())
	l.items = append(l.items, e)
}

// Insert places e at index i. It reports false when i is outside [0, Len()].
func (l *List[R, E]) Insert(i int, e E) bool {
	if i < 0 || i > len(l.items) {
		return false
	}
	*l.records = slices.Insert(*l.records, i, e.Record())
	l.items = slices.Insert(l.items, i, e)
	return true
}

// Remove deletes e from both lists. It reports false when e is not in the list.
func (l *List[R, E]) Remove(e E) bool {
	i := l.Index(e)
	if i < 0 {
		return false
	}
	*l.records = slices.Delete(*l.records, i, i+1)
	l.items = slices.Delete(l.items, i, i+1)
	return true
}

func (l *List[R, E]) Clear() {
	*l.records = (*l.records)[:0]
	l.items = l.items[:0]
}
