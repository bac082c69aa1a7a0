package storage

import (
	"errors"
	"sync"
)

// DefaultCapacity is the bin capacity used when none is configured: 100 GB.
const DefaultCapacity int64 = 100_000_000_000

var (
	// ErrInvalidCapacity indicates the provided capacity is not a positive integer.
	ErrInvalidCapacity = errors.New("capacity must be a positive integer")
)

// Storage provides access to the default capacity used by the packing API.
type Storage interface {
	GetCapacity() (int64, error)
	SetCapacity(capacity int64) error
}

// MemoryStorage keeps the capacity in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu       sync.RWMutex
	capacity int64
}

// NewMemoryStorage initialises storage with DefaultCapacity.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		capacity: DefaultCapacity,
	}
}

// GetCapacity returns the currently configured capacity.
func (s *MemoryStorage) GetCapacity() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.capacity, nil
}

// SetCapacity validates and stores the provided capacity.
func (s *MemoryStorage) SetCapacity(capacity int64) error {
	if capacity <= 0 {
		return ErrInvalidCapacity
	}

	s.mu.Lock()
	s.capacity = capacity
	s.mu.Unlock()

	return nil
}
