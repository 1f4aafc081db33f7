// Package bootstrap assembles the marketplace engine and its adapters from
// configuration. Every binary builds its dependencies here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/koneque/marketplace-escrow/pkg/config"
	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/fees"
	"github.com/koneque/marketplace-escrow/pkg/ledger"
	"github.com/koneque/marketplace-escrow/pkg/marketplace"
	"github.com/koneque/marketplace-escrow/pkg/metrics"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/scheduler"
	"github.com/koneque/marketplace-escrow/pkg/sequencer"
	"github.com/koneque/marketplace-escrow/pkg/storage"
	dydbstore "github.com/koneque/marketplace-escrow/pkg/storage/dynamodb"
	"github.com/koneque/marketplace-escrow/pkg/storage/memory"
	"github.com/koneque/marketplace-escrow/pkg/websockets"
)

// Options selects the optional pieces a binary needs.
type Options struct {
	// LocalHub attaches an in-process websocket hub to the event stream.
	LocalHub bool
	// Tokens replaces the configured token ledger. Tests and local runs
	// use it to seed a memory ledger.
	Tokens Ledger
}

// Ledger is a token ledger that can also report submission outcomes.
type Ledger interface {
	ledger.TokenLedger
	ledger.Confirmer
}

// App is a fully wired engine with the adapters behind it.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Service     *marketplace.Service
	Store       storage.Storage
	Connections storage.WebSocketManager
	Scheduler   scheduler.FinalizeScheduler
	Hub         *websockets.Hub
	Metrics     *metrics.Metrics

	awsCfg  *aws.Config
	closers []func() error
}

// Build wires the engine described by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (_ *App, err error) {
	app := &App{Config: cfg, Logger: logger, Metrics: metrics.Marketplace()}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if err := app.buildStore(ctx); err != nil {
		return nil, err
	}

	tokens := opts.Tokens
	escrowAccount := cfg.Chain.EscrowAddress
	if tokens == nil {
		var operator string
		tokens, operator, err = app.buildLedger()
		if err != nil {
			return nil, err
		}
		if operator != "" {
			if escrowAccount != "" && !strings.EqualFold(escrowAccount, operator) {
				return nil, fmt.Errorf("chain.escrow_address %s does not match the signing key %s", escrowAccount, operator)
			}
			escrowAccount = operator
		}
	}

	locker, err := app.buildLocker(ctx)
	if err != nil {
		return nil, err
	}

	var local *scheduler.Local
	if cfg.Storage.FinalizeQueueURL != "" {
		awsCfg, err := app.aws(ctx)
		if err != nil {
			return nil, err
		}
		app.Scheduler = scheduler.NewSQSScheduler(sqs.NewFromConfig(awsCfg), cfg.Storage.FinalizeQueueURL)
	} else {
		local = scheduler.NewLocal(logger)
		app.Scheduler = local
		app.closers = append(app.closers, func() error { local.Stop(); return nil })
	}

	publisher, err := app.buildPublisher(ctx, opts)
	if err != nil {
		return nil, err
	}

	rates := fees.Static{Fee: cfg.Marketplace.Fee(), Referral: cfg.Marketplace.ReferralBps}
	if err := rates.Validate(); err != nil {
		return nil, err
	}

	svc, err := marketplace.New(marketplace.Deps{
		Store:     app.Store,
		Tokens:    tokens,
		Confirmer: tokens,
		Fees:      rates,
		Referrals: rates,
		Locker:    locker,
		Scheduler: app.Scheduler,
		Publisher: publisher,
		Metrics:   app.Metrics,
		Logger:    logger,
	}, marketplace.Options{
		EscrowAccount: escrowAccount,
		FeePool:       cfg.Marketplace.FeePoolAddress,
		Arbiters:      cfg.Marketplace.Arbiters,
		GracePeriod:   cfg.Marketplace.GracePeriod.Duration,
		LedgerTimeout: cfg.Chain.SubmissionTimeout.Duration,
		PollInterval:  cfg.Chain.PollInterval.Duration,
	})
	if err != nil {
		return nil, err
	}
	app.Service = svc

	if local != nil {
		local.SetHandler(func(ctx context.Context, txID uint64) error {
			_, err := svc.AutoFinalize(ctx, txID)
			if errors.Is(err, models.ErrLedgerPending) {
				return nil
			}
			return err
		})
	}
	return app, nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) aws(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	a.awsCfg = &cfg
	return cfg, nil
}

func (a *App) buildStore(ctx context.Context) error {
	if a.Config.Storage.Driver == "memory" {
		store := memory.New()
		a.Store = store
		a.Connections = store
		return nil
	}
	awsCfg, err := a.aws(ctx)
	if err != nil {
		return err
	}
	s := a.Config.Storage
	store := dydbstore.New(dynamodb.NewFromConfig(awsCfg), dydbstore.Tables{
		Listings:      s.ListingsTable,
		Transactions:  s.TransactionsTable,
		Escrows:       s.EscrowsTable,
		ReferralCodes: s.ReferralCodesTable,
		Referrals:     s.ReferralsTable,
		Ledger:        s.LedgerTable,
		Counters:      s.CountersTable,
		Connections:   s.ConnectionsTable,
	})
	a.Store = store
	if s.ConnectionsTable != "" {
		a.Connections = store
	}
	return nil
}

// buildLedger returns the configured token ledger and, for a signing
// ledger, the operator address that holds escrowed funds.
func (a *App) buildLedger() (Ledger, string, error) {
	c := a.Config.Chain
	if c.Driver == "memory" {
		return ledger.NewMemory(c.EscrowAddress), "", nil
	}
	client, err := ledger.DialEVMClient(c.RPCURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to dial chain rpc: %w", err)
	}
	a.closers = append(a.closers, func() error { client.Close(); return nil })
	erc20, err := ledger.NewERC20(client, c.TokenAddress, c.PrivateKey, c.ChainID, c.Confirmations)
	if err != nil {
		return nil, "", err
	}
	return erc20, erc20.Operator(), nil
}

func (a *App) buildLocker(ctx context.Context) (sequencer.Locker, error) {
	if a.Config.Redis.URL == "" {
		a.Logger.Info("using in-process locks; run a single instance or configure REDIS_URL")
		return sequencer.NewKeyedMutex(), nil
	}
	client, err := sequencer.Connect(ctx, a.Config.Redis.URL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return sequencer.NewRedisLocker(client, a.Config.Redis.LockTTL.Duration), nil
}

func (a *App) buildPublisher(ctx context.Context, opts Options) (events.Publisher, error) {
	var multi events.Multi
	if len(a.Config.Kafka.Brokers) > 0 {
		kafka, err := events.NewKafkaPublisher(a.Config.Kafka.Brokers, a.Config.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kafka.Close)
		multi = append(multi, kafka)
	}
	if endpoint := a.Config.Storage.WebsocketEndpoint; endpoint != "" && a.Connections != nil {
		awsCfg, err := a.aws(ctx)
		if err != nil {
			return nil, err
		}
		multi = append(multi, websockets.EventPublisher{
			Publisher: websockets.NewPublisher(awsCfg, a.Connections, a.Connections, endpoint),
		})
	}
	if opts.LocalHub {
		a.Hub = websockets.NewHub()
		multi = append(multi, websockets.EventPublisher{Publisher: a.Hub})
	}
	switch len(multi) {
	case 0:
		return events.NoopPublisher{}, nil
	case 1:
		return multi[0], nil
	default:
		return multi, nil
	}
}
