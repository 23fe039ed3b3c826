package storage

import (
	"context"
	"sync"
	"time"

	"github.com/amruthadental/clinic-backend/internal/models"
)

// MemoryOTPStore keeps OTP entries in process memory. Entries are lost on restart.
type MemoryOTPStore struct {
	mu      sync.Mutex
	entries map[string]models.OTPEntry
}

// NewMemoryOTPStore creates an empty OTP store
func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{entries: make(map[string]models.OTPEntry)}
}

func (m *MemoryOTPStore) Put(ctx context.Context, entry models.OTPEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[entry.Phone] = entry
	return nil
}

func (m *MemoryOTPStore) Take(ctx context.Context, phone string, code int, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[phone]
	if !exists {
		return false, nil
	}
	if entry.Expired(now) {
		delete(m.entries, phone)
		return false, nil
	}
	if entry.Code != code {
		return false, nil
	}
	delete(m.entries, phone)
	return true, nil
}

func (m *MemoryOTPStore) Delete(ctx context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, phone)
	return nil
}

// Sweep drops every entry expired at now and returns how many were removed
func (m *MemoryOTPStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for phone, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, phone)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live and not-yet-swept entries
func (m *MemoryOTPStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
