package binpack

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sizes(ns ...int64) []testItem {
	items := make([]testItem, len(ns))
	for i, n := range ns {
		items[i] = testItem{ID: i, N: n}
	}
	return items
}

func binSizes(bins []*Bin[testItem]) [][]int64 {
	out := make([][]int64, len(bins))
	for i, b := range bins {
		out[i] = []int64{}
		for _, it := range b.Contents() {
			out[i] = append(out[i], it.N)
		}
	}
	return out
}

func TestFirstFitDecreasing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int64
		items    []testItem
		want     [][]int64
	}{
		{
			name:     "PerfectTwoBins",
			capacity: 10,
			items:    sizes(7, 5, 3, 3, 2),
			want:     [][]int64{{7, 3}, {5, 3, 2}},
		},
		{
			name:     "UnsortedInput",
			capacity: 10,
			items:    sizes(2, 3, 7, 3, 5),
			want:     [][]int64{{7, 3}, {5, 3, 2}},
		},
		{
			name:     "SingleBin",
			capacity: 100,
			items:    sizes(10, 20, 30),
			want:     [][]int64{{30, 20, 10}},
		},
		{
			name:     "EachItemFillsBin",
			capacity: 5,
			items:    sizes(5, 5, 5),
			want:     [][]int64{{5}, {5}, {5}},
		},
		{
			name:     "EarlierBinRefilled",
			capacity: 10,
			items:    sizes(6, 6, 4, 4),
			want:     [][]int64{{6, 4}, {6, 4}},
		},
		{
			name:     "ZeroSizedItems",
			capacity: 4,
			items:    sizes(0, 4, 0),
			want:     [][]int64{{4, 0, 0}},
		},
		{
			name:     "NoItems",
			capacity: 10,
			items:    nil,
			want:     [][]int64{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			bins, err := FirstFitDecreasing(tc.capacity, tc.items)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, binSizes(bins)); diff != "" {
				t.Fatalf("unexpected bins (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFirstFitDecreasing_StableTies(t *testing.T) {
	t.Parallel()

	items := sizes(3, 3, 3, 3)
	bins, err := FirstFitDecreasing(6, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids [][]int
	for _, b := range bins {
		var row []int
		for _, it := range b.Contents() {
			row = append(row, it.ID)
		}
		ids = append(ids, row)
	}
	if diff := cmp.Diff([][]int{{0, 1}, {2, 3}}, ids); diff != "" {
		t.Fatalf("equal sizes were reordered (-want +got):\n%s", diff)
	}
}

func TestFirstFitDecreasing_InvalidCapacity(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int64{0, -10} {
		bins, err := FirstFitDecreasing(capacity, sizes(1))
		if !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("expected ErrInvalidCapacity for %d, got %v", capacity, err)
		}
		if bins != nil {
			t.Fatalf("expected no bins, got %d", len(bins))
		}
	}
}

func TestFirstFitDecreasing_OversizedItem(t *testing.T) {
	t.Parallel()

	bins, err := FirstFitDecreasing(10, sizes(3, 15))
	if !errors.Is(err, ErrOversizedItem) {
		t.Fatalf("expected ErrOversizedItem, got %v", err)
	}
	if bins != nil {
		t.Fatalf("expected no bins, got %d", len(bins))
	}

	var itemErr *ItemError
	if !errors.As(err, &itemErr) {
		t.Fatalf("expected *ItemError, got %T", err)
	}
	if itemErr.Index != 1 || itemErr.Size != 15 || itemErr.Capacity != 10 {
		t.Fatalf("unexpected item error: %+v", itemErr)
	}
	if itemErr.Label != "item #1" {
		t.Fatalf("unexpected label %q", itemErr.Label)
	}
}

func TestFirstFitDecreasing_ReportsEveryOffender(t *testing.T) {
	t.Parallel()

	_, err := FirstFitDecreasing(10, sizes(11, 2, -1, 30))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrNegativeSize) || !errors.Is(err, ErrOversizedItem) {
		t.Fatalf("expected both negative and oversized errors, got %v", err)
	}

	var got []int
	for _, e := range ItemErrors(err) {
		got = append(got, e.Index)
	}
	if diff := cmp.Diff([]int{0, 2, 3}, got); diff != "" {
		t.Fatalf("unexpected offenders (-want +got):\n%s", diff)
	}
}

type namedItem struct {
	name string
	n    int64
}

func (n namedItem) Size() int64    { return n.n }
func (n namedItem) String() string { return n.name }

func TestFirstFitDecreasing_StringerLabel(t *testing.T) {
	t.Parallel()

	_, err := FirstFitDecreasing(10, []namedItem{{name: "huge.iso", n: 15}})
	errs := ItemErrors(err)
	if len(errs) != 1 || errs[0].Label != "huge.iso" {
		t.Fatalf("expected label huge.iso, got %v", errs)
	}
}

func TestFirstFitDecreasing_DoesNotReorderInput(t *testing.T) {
	t.Parallel()

	items := sizes(1, 9, 4, 6)
	before := slices.Clone(items)
	if _, err := FirstFitDecreasing(10, items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(before, items); diff != "" {
		t.Fatalf("input was modified (-want +got):\n%s", diff)
	}
}

func TestFirstFitDecreasing_MonotonicBinCount(t *testing.T) {
	t.Parallel()

	items := sizes(7, 5, 3, 3, 2)
	prev := 0
	for _, capacity := range []int64{20, 10, 8, 7} {
		bins, err := FirstFitDecreasing(capacity, items)
		if err != nil {
			t.Fatalf("capacity %d: unexpected error: %v", capacity, err)
		}
		if len(bins) < prev {
			t.Fatalf("capacity %d produced %d bins, fewer than %d at a larger capacity", capacity, len(bins), prev)
		}
		prev = len(bins)
	}
	if prev != 3 {
		t.Fatalf("expected 3 bins at capacity 7, got %d", prev)
	}
}

func TestFirstFitDecreasing_Properties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(42, 7))
	for round := 0; round < 200; round++ {
		capacity := int64(rng.IntN(100) + 1)
		items := make([]testItem, rng.IntN(60))
		for i := range items {
			items[i] = testItem{ID: i, N: int64(rng.IntN(int(capacity) + 1))}
		}

		bins, err := FirstFitDecreasing(capacity, items)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}

		again, err := FirstFitDecreasing(capacity, items)
		if err != nil {
			t.Fatalf("round %d: unexpected error on rerun: %v", round, err)
		}
		if diff := cmp.Diff(contentsOf(bins), contentsOf(again)); diff != "" {
			t.Fatalf("round %d: rerun differs (-first +second):\n%s", round, diff)
		}

		checkCapacity(t, capacity, bins)
		checkConservation(t, items, bins)
		checkFirstFit(t, capacity, items, bins)
	}
}

func contentsOf(bins []*Bin[testItem]) [][]testItem {
	out := make([][]testItem, len(bins))
	for i, b := range bins {
		out[i] = b.Contents()
	}
	return out
}

func checkCapacity(t *testing.T, capacity int64, bins []*Bin[testItem]) {
	t.Helper()

	for i, b := range bins {
		var sum int64
		for _, it := range b.Contents() {
			sum += it.N
		}
		if sum > capacity || sum != b.Used() {
			t.Fatalf("bin %d holds %d (reported %d) with capacity %d", i, sum, b.Used(), capacity)
		}
	}
}

func checkConservation(t *testing.T, items []testItem, bins []*Bin[testItem]) {
	t.Helper()

	var got []testItem
	for _, b := range bins {
		got = append(got, b.Contents()...)
	}
	byID := func(a, b testItem) int { return a.ID - b.ID }
	slices.SortFunc(got, byID)
	want := slices.Clone(items)
	slices.SortFunc(want, byID)

	if len(got) == 0 && len(want) == 0 {
		return
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("packed items differ from input (-want +got):\n%s", diff)
	}
}

// checkFirstFit replays the placements and verifies that no earlier bin had
// room for an item when it was placed.
func checkFirstFit(t *testing.T, capacity int64, items []testItem, bins []*Bin[testItem]) {
	t.Helper()

	home := make(map[int]int, len(items))
	for i, b := range bins {
		for _, it := range b.Contents() {
			home[it.ID] = i
		}
	}

	order := slices.Clone(items)
	slices.SortStableFunc(order, func(a, b testItem) int {
		switch {
		case a.N > b.N:
			return -1
		case a.N < b.N:
			return 1
		}
		return 0
	})

	fill := make([]int64, len(bins))
	for _, it := range order {
		target := home[it.ID]
		for i := 0; i < target; i++ {
			if fill[i]+it.N <= capacity {
				t.Fatalf("item %d (size %d) placed in bin %d, but bin %d had room", it.ID, it.N, target, i)
			}
		}
		fill[target] += it.N
	}
}

func BenchmarkFirstFitDecreasing(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 2))
	items := make([]testItem, 10_000)
	for i := range items {
		items[i] = testItem{ID: i, N: int64(rng.IntN(1_000_000) + 1)}
	}

	for i := 0; i < b.N; i++ {
		if _, err := FirstFitDecreasing(1_000_000, items); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestItemErrorsThroughWrapping(t *testing.T) {
	t.Parallel()

	_, err := FirstFitDecreasing(5, sizes(6, 7, 1))
	wrapped := fmt.Errorf("pack files: %w", err)

	if got := len(ItemErrors(wrapped)); got != 2 {
		t.Fatalf("expected 2 item errors through wrapping, got %d", got)
	}
	if ItemErrors(nil) != nil {
		t.Fatalf("expected no item errors for nil")
	}
}
