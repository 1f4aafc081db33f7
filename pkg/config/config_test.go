package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	feePool = "0x00000000000000000000000000000000000000fe"
	arbiter = "0x00000000000000000000000000000000000000a1"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("FEE_BPS", "250")
		path := writeFile(t, `
storage:
  driver: memory
chain:
  driver: memory
  escrow_address: "0x00000000000000000000000000000000000000e5"
marketplace:
  fee_pool_address: "`+feePool+`"
  referral_bps: 100
  grace_period: 72h
  arbiters: ["`+arbiter+`"]
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, uint64(250), cfg.Marketplace.Fee())
		assert.Equal(t, uint64(100), cfg.Marketplace.ReferralBps)
		assert.Equal(t, 72*time.Hour, cfg.Marketplace.GracePeriod.Duration)
		assert.Equal(t, "8080", cfg.HTTP.Port)
		assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL.Duration)
		assert.Equal(t, "s3cret", cfg.Auth.Secret)
	})

	t.Run("Env Only Success", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("LEDGER_DRIVER", "memory")
		t.Setenv("ESCROW_ADDRESS", "0x00000000000000000000000000000000000000e5")
		t.Setenv("FEE_POOL_ADDRESS", feePool)
		t.Setenv("ARBITERS", arbiter+", ")
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, []string{arbiter}, cfg.Marketplace.Arbiters)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 7*24*time.Hour, cfg.Marketplace.GracePeriod.Duration)
	})

	t.Run("Zero Fee Is Kept", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		path := writeFile(t, `
storage:
  driver: memory
chain:
  driver: memory
  escrow_address: "0x00000000000000000000000000000000000000e5"
marketplace:
  fee_pool_address: "`+feePool+`"
  fee_bps: 0
  arbiters: ["`+arbiter+`"]
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		require.NotNil(t, cfg.Marketplace.FeeBps)
		assert.Zero(t, cfg.Marketplace.Fee())
	})

	t.Run("Zero Fee From Env Is Kept", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("LEDGER_DRIVER", "memory")
		t.Setenv("ESCROW_ADDRESS", "0x00000000000000000000000000000000000000e5")
		t.Setenv("FEE_POOL_ADDRESS", feePool)
		t.Setenv("ARBITERS", arbiter)
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("FEE_BPS", "0")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Zero(t, cfg.Marketplace.Fee())
	})

	t.Run("Unset Fee Defaults", func(t *testing.T) {
		assert.Equal(t, uint64(DefaultFeeBps), Marketplace{}.Fee())
	})

	t.Run("Bad Duration Fails", func(t *testing.T) {
		path := writeFile(t, "marketplace:\n  grace_period: soon\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "invalid duration")
	})

	t.Run("Bad Env Number Fails", func(t *testing.T) {
		t.Setenv("FEE_BPS", "two")
		_, err := Load("")
		assert.ErrorContains(t, err, "FEE_BPS")
	})

	t.Run("Missing File Fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Storage: Storage{Driver: "memory"},
			Chain:   Chain{Driver: "memory", EscrowAddress: "0x00000000000000000000000000000000000000e5"},
			Marketplace: Marketplace{
				FeePoolAddress: feePool,
				Arbiters:       []string{arbiter},
			},
			Auth: Auth{Secret: "x"},
		}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("Success", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Rates Over Denominator Fails", func(t *testing.T) {
		cfg := valid()
		fee := uint64(9000)
		cfg.Marketplace.FeeBps = &fee
		cfg.Marketplace.ReferralBps = 1001
		assert.ErrorContains(t, cfg.Validate(), "must not exceed")
	})

	t.Run("Trusted Proxies Parse", func(t *testing.T) {
		cfg := valid()
		cfg.HTTP.TrustedProxies = []string{"10.0.0.0/8", "192.168.1.7"}
		require.NoError(t, cfg.Validate())
		proxies, err := cfg.HTTP.Proxies()
		require.NoError(t, err)
		require.Len(t, proxies, 2)
		assert.Equal(t, 32, proxies[1].Bits())
	})

	t.Run("Bad Trusted Proxy Fails", func(t *testing.T) {
		cfg := valid()
		cfg.HTTP.TrustedProxies = []string{"not-a-cidr"}
		assert.ErrorContains(t, cfg.Validate(), "trusted_proxies")
	})

	t.Run("Dynamo Tables Required Fails", func(t *testing.T) {
		cfg := valid()
		cfg.Storage.Driver = "dynamodb"
		err := cfg.Validate()
		assert.ErrorContains(t, err, "storage.listings_table is required")
		assert.ErrorContains(t, err, "storage.counters_table is required")
	})

	t.Run("EVM Requires Key Fails", func(t *testing.T) {
		cfg := valid()
		cfg.Chain.Driver = "evm"
		err := cfg.Validate()
		assert.ErrorContains(t, err, "ESCROW_PRIVATE_KEY is required")
	})

	t.Run("Bad Arbiter Fails", func(t *testing.T) {
		cfg := valid()
		cfg.Marketplace.Arbiters = []string{"nope"}
		assert.ErrorContains(t, cfg.Validate(), "marketplace.arbiters")
	})

	t.Run("No Arbiters Fails", func(t *testing.T) {
		cfg := valid()
		cfg.Marketplace.Arbiters = nil
		assert.ErrorContains(t, cfg.Validate(), "at least one")
	})
}
