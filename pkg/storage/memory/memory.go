// Package memory is an in-process implementation of the storage interfaces
// for local runs and tests. It enforces the same conditional-write rules as
// the DynamoDB store so engine behaviour does not depend on the backend.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/storage"
)

// Store holds every table in maps guarded by one mutex. Values are copied on
// the way in and out so callers never share memory with the store.
type Store struct {
	mu            sync.RWMutex
	listings      map[uint64]models.Listing
	transactions  map[uint64]models.Transaction
	escrows       map[uint64]*models.EscrowRecord
	codes         map[string]models.ReferralCode
	relationships map[string]models.ReferralRelationship
	entries       []models.LedgerEntry
	entryIDs      map[string]struct{}
	counters      map[string]uint64
	connections   map[string]struct{}
}

func New() *Store {
	return &Store{
		listings:      make(map[uint64]models.Listing),
		transactions:  make(map[uint64]models.Transaction),
		escrows:       make(map[uint64]*models.EscrowRecord),
		codes:         make(map[string]models.ReferralCode),
		relationships: make(map[string]models.ReferralRelationship),
		entryIDs:      make(map[string]struct{}),
		counters:      make(map[string]uint64),
		connections:   make(map[string]struct{}),
	}
}

var (
	_ storage.Storage          = (*Store)(nil)
	_ storage.WebSocketManager = (*Store)(nil)
)

func copyListing(l models.Listing) models.Listing {
	if l.DeactivatedAt != nil {
		at := *l.DeactivatedAt
		l.DeactivatedAt = &at
	}
	return l
}

func copyTransaction(t models.Transaction) models.Transaction {
	if t.DeliveredAt != nil {
		at := *t.DeliveredAt
		t.DeliveredAt = &at
	}
	if t.Dispute != nil {
		d := *t.Dispute
		if d.ResolvedAt != nil {
			at := *d.ResolvedAt
			d.ResolvedAt = &at
		}
		t.Dispute = &d
	}
	return t
}

// NextID implements storage.Sequence.
func (s *Store) NextID(_ context.Context, name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}

// Listings

func (s *Store) CreateListing(_ context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; ok {
		return fmt.Errorf("listing %d: %w", l.ID, models.ErrAlreadyExists)
	}
	s.listings[l.ID] = copyListing(*l)
	return nil
}

func (s *Store) GetListing(_ context.Context, id uint64) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %d: %w", id, models.ErrNotFound)
	}
	out := copyListing(l)
	return &out, nil
}

func (s *Store) ListActiveListings(_ context.Context, after uint64, limit int32) ([]models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Listing
	for id, l := range s.listings {
		if l.Active && id > after {
			out = append(out, copyListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListListingsBySeller(_ context.Context, seller string) ([]models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Listing
	for _, l := range s.listings {
		if l.Seller == seller {
			out = append(out, copyListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeactivateListing(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return fmt.Errorf("listing %d: %w", id, models.ErrNotFound)
	}
	if !l.Active {
		return fmt.Errorf("listing %d: %w", id, models.ErrAlreadyInactive)
	}
	l.SetActive(false, at)
	s.listings[id] = l
	return nil
}

// Transactions

func (s *Store) GetTransaction(_ context.Context, id uint64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}
	out := copyTransaction(t)
	return &out, nil
}

func (s *Store) ListTransactionsByUser(_ context.Context, user string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transaction
	for _, t := range s.transactions {
		if t.IsParty(user) {
			out = append(out, copyTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) ListDeliveredBefore(_ context.Context, cutoff time.Time) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transaction
	for _, t := range s.transactions {
		if t.Status == models.ProductDelivered && t.DeliveredAt != nil && !t.DeliveredAt.After(cutoff) {
			out = append(out, copyTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreatePurchase(_ context.Context, listing *models.Listing, tx *models.Transaction, escrow *models.EscrowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.listings[listing.ID]
	if !ok {
		return fmt.Errorf("listing %d: %w", listing.ID, models.ErrNotFound)
	}
	if !current.Active {
		return fmt.Errorf("listing %d: %w", listing.ID, models.ErrAlreadyInactive)
	}
	if _, ok := s.transactions[tx.ID]; ok {
		return fmt.Errorf("transaction %d: %w", tx.ID, models.ErrAlreadyExists)
	}
	current.SetActive(false, tx.CreatedAt)
	s.listings[listing.ID] = current
	s.transactions[tx.ID] = copyTransaction(*tx)
	e := escrow.Clone()
	e.Touch()
	s.escrows[tx.ID] = e
	*listing = copyListing(current)
	return nil
}

func (s *Store) RollbackPurchase(_ context.Context, tx *models.Transaction, escrow *models.EscrowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.escrows[tx.ID]
	if !ok {
		return fmt.Errorf("escrow %d: %w", tx.ID, models.ErrNotFound)
	}
	if stored.Version != escrow.Version || stored.LockConfirmed() {
		return fmt.Errorf("escrow %d: %w", tx.ID, models.ErrConflict)
	}
	delete(s.escrows, tx.ID)
	delete(s.transactions, tx.ID)
	if l, ok := s.listings[tx.ListingID]; ok {
		l.SetActive(true, time.Time{})
		s.listings[tx.ListingID] = l
	}
	return nil
}

func (s *Store) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.transactions[tx.ID]
	if !ok {
		return fmt.Errorf("transaction %d: %w", tx.ID, models.ErrNotFound)
	}
	if stored.Version != tx.Version {
		return fmt.Errorf("transaction %d: %w", tx.ID, models.ErrConflict)
	}
	tx.Version++
	s.transactions[tx.ID] = copyTransaction(*tx)
	return nil
}

// Escrow

func (s *Store) GetEscrow(_ context.Context, txID uint64) (*models.EscrowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.escrows[txID]
	if !ok {
		return nil, fmt.Errorf("escrow %d: %w", txID, models.ErrNotFound)
	}
	return e.Clone(), nil
}

func (s *Store) UpdateEscrow(_ context.Context, escrow *models.EscrowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.escrows[escrow.TransactionID]
	if !ok {
		return fmt.Errorf("escrow %d: %w", escrow.TransactionID, models.ErrNotFound)
	}
	if stored.Version != escrow.Version {
		return fmt.Errorf("escrow %d: %w", escrow.TransactionID, models.ErrConflict)
	}
	escrow.Version++
	escrow.Touch()
	s.escrows[escrow.TransactionID] = escrow.Clone()
	return nil
}

func (s *Store) ListEscrowsAwaitingLedger(_ context.Context) ([]models.EscrowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.EscrowRecord
	for _, e := range s.escrows {
		if e.AwaitingLedger != "" {
			out = append(out, *e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out, nil
}

func (s *Store) Settle(_ context.Context, st *models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := st.Escrow
	stored, ok := s.escrows[e.TransactionID]
	if !ok {
		return fmt.Errorf("escrow %d: %w", e.TransactionID, models.ErrNotFound)
	}
	if stored.Released {
		return fmt.Errorf("escrow %d: %w", e.TransactionID, models.ErrAlreadyReleased)
	}
	if stored.Version != e.Version {
		return fmt.Errorf("escrow %d: %w", e.TransactionID, models.ErrConflict)
	}
	tx := st.Transaction
	if storedTx, ok := s.transactions[tx.ID]; !ok || storedTx.Version != tx.Version {
		return fmt.Errorf("transaction %d: %w", tx.ID, models.ErrConflict)
	}
	if rel := st.Referral; rel != nil {
		storedRel, ok := s.relationships[rel.Referred]
		if !ok || storedRel.Version != rel.Version || storedRel.FirstPurchaseRecorded {
			return fmt.Errorf("referral %s: %w", rel.Referred, models.ErrConflict)
		}
	}
	for _, entry := range st.Entries {
		if _, dup := s.entryIDs[entry.EntryID]; dup {
			return fmt.Errorf("ledger entry %s: %w", entry.EntryID, models.ErrConflict)
		}
	}

	e.Version++
	e.Touch()
	s.escrows[e.TransactionID] = e.Clone()
	tx.Version++
	s.transactions[tx.ID] = copyTransaction(*tx)
	if rel := st.Referral; rel != nil {
		rel.Version++
		s.relationships[rel.Referred] = *rel
	}
	for _, entry := range st.Entries {
		s.entryIDs[entry.EntryID] = struct{}{}
		s.entries = append(s.entries, entry)
	}
	return nil
}

// Referrals

func (s *Store) CreateReferralCode(_ context.Context, code *models.ReferralCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code.Code]; ok {
		return fmt.Errorf("referral code %s: %w", code.Code, models.ErrAlreadyExists)
	}
	s.codes[code.Code] = *code
	return nil
}

func (s *Store) GetReferralCode(_ context.Context, code string) (*models.ReferralCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("referral code %s: %w", code, models.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) ListReferralCodesByReferrer(_ context.Context, referrer string) ([]models.ReferralCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReferralCode
	for _, c := range s.codes {
		if c.Referrer == referrer {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RegisterReferral(_ context.Context, code *models.ReferralCode, rel *models.ReferralRelationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.relationships[rel.Referred]; ok {
		return fmt.Errorf("address %s: %w", rel.Referred, models.ErrAlreadyReferred)
	}
	stored, ok := s.codes[code.Code]
	if !ok {
		return fmt.Errorf("referral code %s: %w", code.Code, models.ErrNotFound)
	}
	if stored.Version != code.Version {
		return fmt.Errorf("referral code %s: %w", code.Code, models.ErrConflict)
	}
	code.Version++
	s.codes[code.Code] = *code
	s.relationships[rel.Referred] = *rel
	return nil
}

func (s *Store) GetReferralRelationship(_ context.Context, referred string) (*models.ReferralRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.relationships[referred]
	if !ok {
		return nil, fmt.Errorf("referral for %s: %w", referred, models.ErrNotFound)
	}
	return &r, nil
}

func (s *Store) ListReferralsByReferrer(_ context.Context, referrer string) ([]models.ReferralRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReferralRelationship
	for _, r := range s.relationships {
		if r.Referrer == referrer {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

// Ledger

func (s *Store) ListLedgerEntries(_ context.Context, account string, limit int32) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LedgerEntry
	for _, e := range slices.Backward(s.entries) {
		if account != "" && e.AccountID != account {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == int(limit) {
			break
		}
	}
	return out, nil
}

func (s *Store) ListLedgerEntriesByTransaction(_ context.Context, txID uint64) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if e.TransactionID == txID {
			out = append(out, e)
		}
	}
	return out, nil
}

// WebSocket connections

func (s *Store) AddConnection(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[connectionID] = struct{}{}
	return nil
}

func (s *Store) RemoveConnection(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, connectionID)
	return nil
}

func (s *Store) GetAllConnections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.connections))
	for id := range s.connections {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
