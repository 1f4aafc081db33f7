// Package marketplace is the escrow engine: it drives listings, purchases,
// delivery, disputes and referral rewards, and moves buyer funds through the
// token ledger. It owns no storage or chain technology; both arrive through
// Deps.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/fees"
	"github.com/koneque/marketplace-escrow/pkg/ledger"
	"github.com/koneque/marketplace-escrow/pkg/metrics"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/scheduler"
	"github.com/koneque/marketplace-escrow/pkg/sequencer"
	"github.com/koneque/marketplace-escrow/pkg/storage"
)

const (
	transactionSequence = "transactions"
	listingSequence     = "listings"

	defaultPageSize = 50
	// maxLegAttempts bounds resubmission of a payout leg the ledger keeps
	// rejecting; after that an operator has to look at it.
	maxLegAttempts = 5
)

// Deps are the collaborators of the engine. Store, Tokens, Confirmer, Fees
// and Referrals are required.
type Deps struct {
	Store     storage.Storage
	Tokens    ledger.TokenLedger
	Confirmer ledger.Confirmer
	Fees      fees.FeeManager
	Referrals fees.ReferralPolicy
	Locker    sequencer.Locker
	Scheduler scheduler.FinalizeScheduler
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Options are the marketplace parameters.
type Options struct {
	// EscrowAccount receives locked funds and sends every payout.
	EscrowAccount string
	FeePool       string
	Arbiters      []string
	GracePeriod   time.Duration
	LedgerTimeout time.Duration
	PollInterval  time.Duration
	PageSize      int32
	// PublishTimeout bounds each event publish, which runs while the
	// operation's lock is held.
	PublishTimeout time.Duration
}

// Service implements every marketplace operation.
type Service struct {
	deps     Deps
	opts     Options
	arbiters map[string]struct{}
}

// New validates the configuration and fills in defaults for optional deps.
func New(deps Deps, opts Options) (*Service, error) {
	var errs []error
	if deps.Store == nil {
		errs = append(errs, errors.New("store is required"))
	}
	if deps.Tokens == nil || deps.Confirmer == nil {
		errs = append(errs, errors.New("token ledger and confirmer are required"))
	}
	if deps.Fees == nil || deps.Referrals == nil {
		errs = append(errs, errors.New("fee manager and referral policy are required"))
	}

	escrow, err := models.NormalizeAddress(opts.EscrowAccount)
	if err != nil {
		errs = append(errs, fmt.Errorf("escrow account: %w", err))
	}
	opts.EscrowAccount = escrow
	pool, err := models.NormalizeAddress(opts.FeePool)
	if err != nil {
		errs = append(errs, fmt.Errorf("fee pool: %w", err))
	}
	opts.FeePool = pool

	arbiters := make(map[string]struct{}, len(opts.Arbiters))
	for _, a := range opts.Arbiters {
		addr, err := models.NormalizeAddress(a)
		if err != nil {
			errs = append(errs, fmt.Errorf("arbiter: %w", err))
			continue
		}
		arbiters[addr] = struct{}{}
	}
	if len(arbiters) == 0 {
		errs = append(errs, errors.New("at least one arbiter is required"))
	}
	if opts.GracePeriod <= 0 {
		errs = append(errs, errors.New("grace period must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid marketplace configuration: %w", err)
	}

	if opts.LedgerTimeout <= 0 {
		opts.LedgerTimeout = 45 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 2 * time.Second
	}
	if deps.Locker == nil {
		deps.Locker = sequencer.NewKeyedMutex()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &Service{deps: deps, opts: opts, arbiters: arbiters}, nil
}

// GracePeriod is how long a buyer has to finalize or dispute after delivery.
func (s *Service) GracePeriod() time.Duration { return s.opts.GracePeriod }

func (s *Service) now() time.Time { return s.deps.Clock().UTC() }

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	release, err := s.deps.Locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", key, err)
	}
	return release, nil
}

// publish never fails the operation: the state change is already durable.
func (s *Service) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
	defer cancel()
	if err := s.deps.Publisher.Publish(ctx, e); err != nil {
		s.deps.Logger.Warn("failed to publish event", "type", e.Type, "transaction_id", e.TransactionID, "error", err)
	}
}

func (s *Service) event(t events.Type, txID, listingID uint64, actor string) events.Event {
	e := events.New(t, s.now())
	e.TransactionID = txID
	e.ListingID = listingID
	e.Actor = actor
	return e
}

// observe records latency and outcome; use with a named error result.
func (s *Service) observe(op string, started time.Time, err *error) {
	kind := "ok"
	if *err != nil {
		kind = models.Kind(*err)
	}
	s.deps.Metrics.Observe(op, kind, started)
}

func (s *Service) isArbiter(addr string) bool {
	_, ok := s.arbiters[addr]
	return ok
}

// normalizeActor validates a caller address.
func normalizeActor(actor string) (string, error) {
	addr, err := models.NormalizeAddress(actor)
	if err != nil {
		return "", fmt.Errorf("actor: %w", err)
	}
	return addr, nil
}

// loadForTransition applies the shared precondition order: existence, then
// terminal state. Role and source-state checks follow in each operation.
func (s *Service) loadForTransition(ctx context.Context, txID uint64) (*models.Transaction, error) {
	tx, err := s.deps.Store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: transaction %d is %s", models.ErrInvalidState, txID, tx.Status)
	}
	return tx, nil
}

func requireStatus(tx *models.Transaction, allowed ...models.TransactionStatus) error {
	for _, st := range allowed {
		if tx.Status == st {
			return nil
		}
	}
	return fmt.Errorf("%w: transaction %d is %s", models.ErrInvalidState, tx.ID, tx.Status)
}
