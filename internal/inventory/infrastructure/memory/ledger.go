package memory

import (
	"context"
	"sync"
)

type entry struct {
	mu    sync.Mutex
	stock int
}

// Ledger keeps stock counters in process. Each product has its own mutex;
// the map lock is only held to find or create an entry.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*entry)}
}

func (l *Ledger) lookup(productID string) *entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[productID]
}

func (l *Ledger) TryReserve(_ context.Context, productID string, quantity int) (int, bool, error) {
	e := l.lookup(productID)
	if e == nil || quantity <= 0 {
		return 0, false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stock < quantity {
		return e.stock, false, nil
	}
	e.stock -= quantity
	return e.stock, true, nil
}

func (l *Ledger) Release(_ context.Context, productID string, quantity int) error {
	e := l.lookup(productID)
	if e == nil || quantity <= 0 {
		return nil
	}
	e.mu.Lock()
	e.stock += quantity
	e.mu.Unlock()
	return nil
}

func (l *Ledger) GetStock(_ context.Context, productID string) (int, bool, error) {
	e := l.lookup(productID)
	if e == nil {
		return 0, false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stock, true, nil
}

func (l *Ledger) SetStock(_ context.Context, productID string, stock int) error {
	if stock < 0 {
		stock = 0
	}
	l.mu.Lock()
	e, ok := l.entries[productID]
	if !ok {
		e = &entry{}
		l.entries[productID] = e
	}
	l.mu.Unlock()

	e.mu.Lock()
	e.stock = stock
	e.mu.Unlock()
	return nil
}
