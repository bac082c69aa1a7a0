package binpack

import "fmt"

// Sizer is implemented by anything that can be packed. Size must be
// non-negative and measured in the same unit as the bin capacity.
type Sizer interface {
	Size() int64
}

// Bin is a fixed-capacity container. The sum of the sizes of its contents
// never exceeds its capacity.
type Bin[T Sizer] struct {
	capacity int64
	used     int64
	contents []T
}

// NewBin creates an empty bin. The capacity must be positive.
func NewBin[T Sizer](capacity int64) (*Bin[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return &Bin[T]{capacity: capacity}, nil
}

// TryPlace appends item when it fits into the remaining capacity and reports
// whether it did. A rejected item leaves the bin untouched.
func (b *Bin[T]) TryPlace(item T) bool {
	return b.place(item, item.Size())
}

func (b *Bin[T]) place(item T, size int64) bool {
	if size < 0 || size > b.Remaining() {
		return false
	}
	b.contents = append(b.contents, item)
	b.used += size
	return true
}

// Contents returns the placed items in placement order. The returned slice
// is a copy; modifying it does not affect the bin.
func (b *Bin[T]) Contents() []T {
	out := make([]T, len(b.contents))
	copy(out, b.contents)
	return out
}

// Len returns the number of placed items.
func (b *Bin[T]) Len() int {
	return len(b.contents)
}

// Capacity returns the fixed capacity the bin was created with.
func (b *Bin[T]) Capacity() int64 {
	return b.capacity
}

// Used returns the total size of the placed items.
func (b *Bin[T]) Used() int64 {
	return b.used
}

// Remaining returns the capacity still available.
func (b *Bin[T]) Remaining() int64 {
	return b.capacity - b.used
}

// Stats aggregates a packing result.
type Stats struct {
	Bins   int
	Items  int
	Used   int64
	Unused int64
}

// Summarize computes aggregate statistics over bins.
func Summarize[T Sizer](bins []*Bin[T]) Stats {
	var s Stats
	for _, b := range bins {
		s.Bins++
		s.Items += b.Len()
		s.Used += b.Used()
		s.Unused += b.Remaining()
	}
	return s
}
