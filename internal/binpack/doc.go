// Package binpack splits sized items into fixed-capacity bins using the
// first-fit-decreasing heuristic.
//
// The package performs no I/O. Results are deterministic for a given capacity
// and input order. An item larger than the capacity fails the whole run
// instead of producing an over-full bin.
package binpack
