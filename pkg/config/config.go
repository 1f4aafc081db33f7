// Package config loads service configuration from an optional YAML file,
// environment overrides, and defaults, failing fast on invalid values.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can use strings such as "72h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

type HTTP struct {
	Port              string  `yaml:"port"`
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
	// TrustedProxies are CIDRs whose forwarding headers name the client.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// Proxies parses TrustedProxies. A bare address is a single-host prefix.
func (h HTTP) Proxies() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(h.TrustedProxies))
	for _, p := range h.TrustedProxies {
		if !strings.Contains(p, "/") {
			addr, err := netip.ParseAddr(p)
			if err != nil {
				return nil, fmt.Errorf("http.trusted_proxies: %w", err)
			}
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			return nil, fmt.Errorf("http.trusted_proxies: %w", err)
		}
		out = append(out, prefix.Masked())
	}
	return out, nil
}

type Storage struct {
	// Driver is "dynamodb" or "memory".
	Driver             string `yaml:"driver"`
	ListingsTable      string `yaml:"listings_table"`
	TransactionsTable  string `yaml:"transactions_table"`
	EscrowsTable       string `yaml:"escrows_table"`
	ReferralCodesTable string `yaml:"referral_codes_table"`
	ReferralsTable     string `yaml:"referrals_table"`
	LedgerTable        string `yaml:"ledger_table"`
	CountersTable      string `yaml:"counters_table"`
	ConnectionsTable   string `yaml:"connections_table"`
	FinalizeQueueURL   string `yaml:"finalize_queue_url"`
	WebsocketEndpoint  string `yaml:"websocket_endpoint"`
}

type Chain struct {
	// Driver is "evm" or "memory".
	Driver            string   `yaml:"driver"`
	RPCURL            string   `yaml:"rpc_url"`
	ChainID           int64    `yaml:"chain_id"`
	TokenAddress      string   `yaml:"token_address"`
	EscrowAddress     string   `yaml:"escrow_address"`
	PrivateKey        string   `yaml:"-"`
	Confirmations     uint64   `yaml:"confirmations"`
	PollInterval      Duration `yaml:"poll_interval"`
	SubmissionTimeout Duration `yaml:"submission_timeout"`
}

type Marketplace struct {
	FeePoolAddress string `yaml:"fee_pool_address"`
	// FeeBps is nil when unset; an explicit 0 disables the platform fee.
	FeeBps      *uint64  `yaml:"fee_bps"`
	ReferralBps uint64   `yaml:"referral_bps"`
	GracePeriod Duration `yaml:"grace_period"`
	Arbiters    []string `yaml:"arbiters"`
}

// DefaultFeeBps is the platform fee when none is configured.
const DefaultFeeBps = 200

// Fee returns the configured platform fee in basis points.
func (m Marketplace) Fee() uint64 {
	if m.FeeBps == nil {
		return DefaultFeeBps
	}
	return *m.FeeBps
}

type Auth struct {
	Secret string `yaml:"-"`
	Issuer string `yaml:"issuer"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Redis struct {
	URL     string   `yaml:"url"`
	LockTTL Duration `yaml:"lock_ttl"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	Env   string `yaml:"env"`
}

// Config is the complete service configuration.
type Config struct {
	HTTP        HTTP        `yaml:"http"`
	Storage     Storage     `yaml:"storage"`
	Chain       Chain       `yaml:"chain"`
	Marketplace Marketplace `yaml:"marketplace"`
	Auth        Auth        `yaml:"auth"`
	Kafka       Kafka       `yaml:"kafka"`
	Redis       Redis       `yaml:"redis"`
	Log         Log         `yaml:"log"`
}

// Load reads path (if non-empty), applies environment overrides and
// defaults, then validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	list := func(dst *[]string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = splitList(v)
		}
	}
	var errs []error
	uintVar := func(dst *uint64, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(dst *Duration, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			dst.Duration = d
		}
	}

	str(&cfg.HTTP.Port, "HTTP_PORT")
	list(&cfg.HTTP.TrustedProxies, "HTTP_TRUSTED_PROXIES")

	str(&cfg.Storage.Driver, "STORAGE_DRIVER")
	str(&cfg.Storage.ListingsTable, "DYNAMODB_LISTINGS_TABLE_NAME")
	str(&cfg.Storage.TransactionsTable, "DYNAMODB_TRANSACTIONS_TABLE_NAME")
	str(&cfg.Storage.EscrowsTable, "DYNAMODB_ESCROWS_TABLE_NAME")
	str(&cfg.Storage.ReferralCodesTable, "DYNAMODB_REFERRAL_CODES_TABLE_NAME")
	str(&cfg.Storage.ReferralsTable, "DYNAMODB_REFERRALS_TABLE_NAME")
	str(&cfg.Storage.LedgerTable, "DYNAMODB_LEDGER_TABLE_NAME")
	str(&cfg.Storage.CountersTable, "DYNAMODB_COUNTERS_TABLE_NAME")
	str(&cfg.Storage.ConnectionsTable, "DYNAMODB_CONNECTIONS_TABLE_NAME")
	str(&cfg.Storage.FinalizeQueueURL, "SQS_FINALIZE_QUEUE_URL")
	str(&cfg.Storage.WebsocketEndpoint, "WEBSOCKET_ENDPOINT")

	str(&cfg.Chain.Driver, "LEDGER_DRIVER")
	str(&cfg.Chain.RPCURL, "CHAIN_RPC_URL")
	str(&cfg.Chain.TokenAddress, "TOKEN_ADDRESS")
	str(&cfg.Chain.EscrowAddress, "ESCROW_ADDRESS")
	str(&cfg.Chain.PrivateKey, "ESCROW_PRIVATE_KEY")
	uintVar(&cfg.Chain.Confirmations, "CHAIN_CONFIRMATIONS")
	duration(&cfg.Chain.PollInterval, "CHAIN_POLL_INTERVAL")
	duration(&cfg.Chain.SubmissionTimeout, "CHAIN_SUBMISSION_TIMEOUT")
	if v := strings.TrimSpace(getenv("CHAIN_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("CHAIN_ID: %w", err))
		} else {
			cfg.Chain.ChainID = id
		}
	}

	str(&cfg.Marketplace.FeePoolAddress, "FEE_POOL_ADDRESS")
	if v := strings.TrimSpace(getenv("FEE_BPS")); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("FEE_BPS: %w", err))
		} else {
			cfg.Marketplace.FeeBps = &n
		}
	}
	uintVar(&cfg.Marketplace.ReferralBps, "REFERRAL_BPS")
	duration(&cfg.Marketplace.GracePeriod, "GRACE_PERIOD")
	list(&cfg.Marketplace.Arbiters, "ARBITERS")

	str(&cfg.Auth.Secret, "JWT_SECRET")
	str(&cfg.Auth.Issuer, "JWT_ISSUER")

	list(&cfg.Kafka.Brokers, "KAFKA_BROKERS")
	str(&cfg.Kafka.Topic, "KAFKA_TOPIC")

	str(&cfg.Redis.URL, "REDIS_URL")
	duration(&cfg.Redis.LockTTL, "REDIS_LOCK_TTL")

	str(&cfg.Log.Level, "LOG_LEVEL")
	str(&cfg.Log.File, "LOG_FILE")
	str(&cfg.Log.Env, "ENV")

	return errors.Join(errs...)
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8080"
	}
	if cfg.HTTP.RequestsPerMinute == 0 {
		cfg.HTTP.RequestsPerMinute = 600
	}
	if cfg.HTTP.Burst == 0 {
		cfg.HTTP.Burst = 50
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "dynamodb"
	}
	if cfg.Chain.Driver == "" {
		cfg.Chain.Driver = "evm"
	}
	if cfg.Chain.ChainID == 0 {
		// Base Sepolia, where the marketplace contracts are deployed.
		cfg.Chain.ChainID = 84532
	}
	if cfg.Chain.Confirmations == 0 {
		cfg.Chain.Confirmations = 2
	}
	if cfg.Chain.PollInterval.Duration == 0 {
		cfg.Chain.PollInterval.Duration = 2 * time.Second
	}
	if cfg.Chain.SubmissionTimeout.Duration == 0 {
		cfg.Chain.SubmissionTimeout.Duration = 45 * time.Second
	}
	if cfg.Marketplace.GracePeriod.Duration == 0 {
		cfg.Marketplace.GracePeriod.Duration = 7 * 24 * time.Hour
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "koneque"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "marketplace.events"
	}
	if cfg.Redis.LockTTL.Duration == 0 {
		cfg.Redis.LockTTL.Duration = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory":
	case "dynamodb":
		tables := map[string]string{
			"listings_table":       c.Storage.ListingsTable,
			"transactions_table":   c.Storage.TransactionsTable,
			"escrows_table":        c.Storage.EscrowsTable,
			"referral_codes_table": c.Storage.ReferralCodesTable,
			"referrals_table":      c.Storage.ReferralsTable,
			"ledger_table":         c.Storage.LedgerTable,
			"counters_table":       c.Storage.CountersTable,
		}
		for name, v := range tables {
			if v == "" {
				errs = append(errs, fmt.Errorf("storage.%s is required", name))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q must be dynamodb or memory", c.Storage.Driver))
	}

	switch c.Chain.Driver {
	case "memory":
	case "evm":
		if c.Chain.RPCURL == "" {
			errs = append(errs, errors.New("chain.rpc_url is required"))
		}
		if c.Chain.TokenAddress == "" {
			errs = append(errs, errors.New("chain.token_address is required"))
		}
		if c.Chain.PrivateKey == "" {
			errs = append(errs, errors.New("ESCROW_PRIVATE_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("chain.driver %q must be evm or memory", c.Chain.Driver))
	}
	if c.Chain.Driver == "memory" && c.Chain.EscrowAddress == "" {
		errs = append(errs, errors.New("chain.escrow_address is required with the memory ledger"))
	}

	if _, err := models.NormalizeAddress(c.Marketplace.FeePoolAddress); err != nil {
		errs = append(errs, fmt.Errorf("marketplace.fee_pool_address: %w", err))
	}
	if c.Marketplace.Fee()+c.Marketplace.ReferralBps > amount.BpsDenominator {
		errs = append(errs, fmt.Errorf("marketplace fee_bps + referral_bps must not exceed %d", amount.BpsDenominator))
	}
	if len(c.Marketplace.Arbiters) == 0 {
		errs = append(errs, errors.New("marketplace.arbiters requires at least one address"))
	}
	for _, a := range c.Marketplace.Arbiters {
		if _, err := models.NormalizeAddress(a); err != nil {
			errs = append(errs, fmt.Errorf("marketplace.arbiters: %w", err))
		}
	}
	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if _, err := c.HTTP.Proxies(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
