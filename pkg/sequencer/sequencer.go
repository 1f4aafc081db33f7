// Package sequencer serializes operations that share a key, such as every
// mutation of one transaction, while unrelated keys proceed in parallel.
package sequencer

import (
	"context"
	"fmt"
	"sync"
)

// Locker grants exclusive access to a key until the returned release func
// is called.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// TransactionKey is the lock key for all state changes of one transaction.
func TransactionKey(id uint64) string { return fmt.Sprintf("tx:%d", id) }

// ListingKey is the lock key for purchase and removal of one listing.
func ListingKey(id uint64) string { return fmt.Sprintf("listing:%d", id) }

// CodeKey is the lock key for registrations against one referral code.
func CodeKey(code string) string { return "code:" + code }

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Waiters give up when their context ends.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

var _ Locker = (*KeyedMutex)(nil)

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.drop(key, e)
		return nil, fmt.Errorf("failed to lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.drop(key, e)
		})
	}, nil
}

func (k *KeyedMutex) drop(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Len reports how many keys are held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
