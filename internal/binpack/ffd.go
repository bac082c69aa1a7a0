package binpack

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/multierr"
)

type entry[T Sizer] struct {
	item T
	size int64
}

// FirstFitDecreasing packs items into as few bins of the given capacity as
// the first-fit-decreasing heuristic finds.
//
// Items are ordered by size, largest first, keeping the input order among
// equal sizes. Each item goes into the earliest created bin that still has
// room; a new bin is opened when none does. The input slice is not modified.
//
// Every item that cannot be packed (negative size, or larger than capacity)
// is reported as an *ItemError, combined with multierr. In that case no bins
// are returned.
func FirstFitDecreasing[T Sizer](capacity int64, items []T) ([]*Bin[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	entries, err := collect(capacity, items)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(entries, func(a, b entry[T]) int {
		return cmp.Compare(b.size, a.size)
	})

	bins := make([]*Bin[T], 0)
	for _, e := range entries {
		if placeFirstFit(bins, e) {
			continue
		}
		bin := &Bin[T]{capacity: capacity}
		if !bin.place(e.item, e.size) {
			// collect guarantees every size fits an empty bin.
			panic(fmt.Sprintf("binpack: item of size %d rejected by empty bin of capacity %d", e.size, capacity))
		}
		bins = append(bins, bin)
	}

	return bins, nil
}

func placeFirstFit[T Sizer](bins []*Bin[T], e entry[T]) bool {
	for _, bin := range bins {
		if bin.place(e.item, e.size) {
			return true
		}
	}
	return false
}

// collect reads each item's size once and rejects items no bin could hold.
func collect[T Sizer](capacity int64, items []T) ([]entry[T], error) {
	entries := make([]entry[T], 0, len(items))
	var errs error
	for i, item := range items {
		size := item.Size()
		switch {
		case size < 0:
			errs = multierr.Append(errs, newItemError(i, item, size, capacity, ErrNegativeSize))
		case size > capacity:
			errs = multierr.Append(errs, newItemError(i, item, size, capacity, ErrOversizedItem))
		default:
			entries = append(entries, entry[T]{item: item, size: size})
		}
	}
	if errs != nil {
		return nil, errs
	}
	return entries, nil
}

func newItemError[T Sizer](index int, item T, size, capacity int64, err error) *ItemError {
	label := fmt.Sprintf("item #%d", index)
	if s, ok := any(item).(fmt.Stringer); ok {
		label = s.String()
	}
	return &ItemError{
		Index:    index,
		Label:    label,
		Size:     size,
		Capacity: capacity,
		Err:      err,
	}
}
