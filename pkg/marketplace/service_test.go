package marketplace

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/fees"
	"github.com/koneque/marketplace-escrow/pkg/ledger"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	seller   = "0x1111111111111111111111111111111111111111"
	buyer    = "0x2222222222222222222222222222222222222222"
	escrowAc = "0x3333333333333333333333333333333333333333"
	feePool  = "0x4444444444444444444444444444444444444444"
	arbiter  = "0x5555555555555555555555555555555555555555"
	referrer = "0x6666666666666666666666666666666666666666"
	stranger = "0x7777777777777777777777777777777777777777"
)

const grace = 72 * time.Hour

type fixture struct {
	svc    *Service
	store  *memory.Store
	tokens *ledger.Memory
	events *events.Recorder

	mu  sync.Mutex
	now time.Time
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T, rates fees.Static, mutate ...func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.New(),
		tokens: ledger.NewMemory(escrowAc),
		events: &events.Recorder{},
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	deps := Deps{
		Store:     f.store,
		Tokens:    f.tokens,
		Confirmer: f.tokens,
		Fees:      rates,
		Referrals: rates,
		Publisher: f.events,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:     f.clock,
	}
	for _, m := range mutate {
		m(&deps)
	}
	svc, err := New(deps, Options{
		EscrowAccount: escrowAc,
		FeePool:       feePool,
		Arbiters:      []string{arbiter},
		GracePeriod:   grace,
		LedgerTimeout: 30 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		PageSize:      2,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// fund gives addr whole tokens and approves escrow to pull all of them.
func (f *fixture) fund(addr string, whole uint64) {
	f.tokens.Mint(addr, amount.Units(whole))
	f.tokens.SetAllowance(addr, escrowAc, amount.Units(whole))
}

func (f *fixture) list(t *testing.T, price uint64, category string) *models.Listing {
	t.Helper()
	l, err := f.svc.CreateListing(context.Background(), seller, NewListing{
		Name:        "Road bike",
		Description: "Aluminium frame, 56cm",
		Price:       amount.Units(price),
		ImageRef:    "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
		Category:    category,
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) balance(t *testing.T, addr string) string {
	t.Helper()
	b, err := f.tokens.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return b.String()
}

// delivered returns a transaction in ProductDelivered for price tokens.
func (f *fixture) delivered(t *testing.T, price uint64) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	l := f.list(t, price, "vehicles")
	tx, err := f.svc.Purchase(ctx, l.ID, buyer)
	require.NoError(t, err)
	tx, err = f.svc.ConfirmDelivery(ctx, tx.ID, seller)
	require.NoError(t, err)
	return tx
}

func units(whole uint64) string { return amount.Units(whole).String() }

func TestNew(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, fees.Static{Fee: 200})
		assert.Equal(t, grace, f.svc.GracePeriod())
	})

	t.Run("Missing Arbiters Fails", func(t *testing.T) {
		_, err := New(Deps{
			Store:     memory.New(),
			Tokens:    ledger.NewMemory(escrowAc),
			Confirmer: ledger.NewMemory(escrowAc),
			Fees:      fees.Static{},
			Referrals: fees.Static{},
		}, Options{EscrowAccount: escrowAc, FeePool: feePool, GracePeriod: grace})
		assert.ErrorContains(t, err, "at least one arbiter")
	})

	t.Run("Bad Fee Pool Fails", func(t *testing.T) {
		_, err := New(Deps{
			Store:     memory.New(),
			Tokens:    ledger.NewMemory(escrowAc),
			Confirmer: ledger.NewMemory(escrowAc),
			Fees:      fees.Static{},
			Referrals: fees.Static{},
		}, Options{EscrowAccount: escrowAc, FeePool: "pool", Arbiters: []string{arbiter}, GracePeriod: grace})
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

// stalledPublisher blocks until the publish context ends, like a broker
// that accepted the connection but never acknowledges.
type stalledPublisher struct{}

func (stalledPublisher) Publish(ctx context.Context, _ events.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestPublishIsBounded(t *testing.T) {
	f := newFixture(t, fees.Static{})
	svc, err := New(Deps{
		Store:     f.store,
		Tokens:    f.tokens,
		Confirmer: f.tokens,
		Fees:      fees.Static{},
		Referrals: fees.Static{},
		Publisher: stalledPublisher{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:     f.clock,
	}, Options{
		EscrowAccount:  escrowAc,
		FeePool:        feePool,
		Arbiters:       []string{arbiter},
		GracePeriod:    grace,
		PublishTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	started := time.Now()
	l, err := svc.CreateListing(context.Background(), seller, NewListing{
		Name:        "Desk",
		Description: "Oak, 140cm",
		Price:       amount.Units(3),
		ImageRef:    "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku",
		Category:    "furniture",
	})
	require.NoError(t, err)
	assert.NotZero(t, l.ID)
	assert.Less(t, time.Since(started), time.Second)
}
