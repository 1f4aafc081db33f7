package marketplace

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/fees"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/sequencer"
)

const (
	codeAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	generatedCodeLen   = 8
	maxCodeGenAttempts = 5
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4,20}$`)

// CodeInfo is a referral code as reported to clients. Valid folds in expiry
// and exhaustion.
type CodeInfo struct {
	models.ReferralCode
	Valid bool `json:"valid"`
}

// CreateCode issues a referral code for referrer. An empty code asks for a
// generated one.
func (s *Service) CreateCode(ctx context.Context, referrer, code string, validity time.Duration, maxUsage int) (rc *models.ReferralCode, err error) {
	defer s.observe("create_referral_code", time.Now(), &err)

	referrer, err = normalizeActor(referrer)
	if err != nil {
		return nil, err
	}
	if maxUsage <= 0 || int64(maxUsage) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: max usage must be between 1 and %d", models.ErrInvalidInput, uint32(math.MaxUint32))
	}
	if validity <= 0 {
		return nil, fmt.Errorf("%w: validity period must be positive", models.ErrInvalidInput)
	}

	custom := code != ""
	if custom {
		code = strings.ToUpper(strings.TrimSpace(code))
		if !codePattern.MatchString(code) {
			return nil, fmt.Errorf("%w: referral code must be 4 to 20 letters or digits", models.ErrInvalidInput)
		}
	}

	now := s.now()
	for attempt := 0; ; attempt++ {
		if !custom {
			code, err = generateCode()
			if err != nil {
				return nil, err
			}
		}
		rc = &models.ReferralCode{
			Code:      code,
			Referrer:  referrer,
			CreatedAt: now,
			ExpiresAt: now.Add(validity),
			MaxUsage:  uint32(maxUsage),
			Active:    true,
		}
		err = s.deps.Store.CreateReferralCode(ctx, rc)
		if err == nil {
			break
		}
		if custom || !errors.Is(err, models.ErrAlreadyExists) || attempt+1 >= maxCodeGenAttempts {
			return nil, fmt.Errorf("failed to create referral code: %w", err)
		}
	}

	s.deps.Logger.Info("referral code created", "code", rc.Code, "referrer", referrer, "max_usage", rc.MaxUsage)
	s.publish(ctx, s.event(events.ReferralCodeCreated, 0, 0, referrer).
		With("code", rc.Code).
		With("expires_at", rc.ExpiresAt.Format(time.RFC3339)))
	return rc, nil
}

func generateCode() (string, error) {
	limit := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	for range generatedCodeLen {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// RegisterWithCode binds referred to the code's referrer. An address can be
// referred only once.
func (s *Service) RegisterWithCode(ctx context.Context, code, referred string) (rel *models.ReferralRelationship, err error) {
	defer s.observe("register_referral", time.Now(), &err)

	referred, err = normalizeActor(referred)
	if err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	release, err := s.lock(ctx, sequencer.CodeKey(code))
	if err != nil {
		return nil, err
	}
	defer release()

	rc, err := s.deps.Store.GetReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if rc.Referrer == referred {
		return nil, fmt.Errorf("%w: cannot register with your own referral code", models.ErrInvalidInput)
	}
	now := s.now()
	if rc.Expired(now) {
		return nil, fmt.Errorf("referral code %s: %w", code, models.ErrCodeExpired)
	}
	if rc.Exhausted() || !rc.Active {
		return nil, fmt.Errorf("referral code %s: %w", code, models.ErrCodeExhausted)
	}
	if _, err := s.deps.Store.GetReferralRelationship(ctx, referred); err == nil {
		return nil, fmt.Errorf("address %s: %w", referred, models.ErrAlreadyReferred)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	rc.CurrentUsage++
	rc.Active = !rc.Exhausted()
	rel = &models.ReferralRelationship{
		Referred:     referred,
		Referrer:     rc.Referrer,
		Code:         code,
		RegisteredAt: now,
	}
	if err := s.deps.Store.RegisterReferral(ctx, rc, rel); err != nil {
		return nil, fmt.Errorf("failed to register referral: %w", err)
	}

	s.deps.Logger.Info("referral registered", "code", code, "referrer", rc.Referrer, "referred", referred, "usage", rc.CurrentUsage)
	s.publish(ctx, s.event(events.ReferralRegistered, 0, 0, referred).
		With("code", code).
		With("referrer", rc.Referrer))
	return rel, nil
}

// IsCodeValid reports whether a registration with code would succeed now,
// ignoring who registers.
func (s *Service) IsCodeValid(ctx context.Context, code string) (bool, error) {
	rc, err := s.deps.Store.GetReferralCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rc.IsValid(s.now()), nil
}

func (s *Service) CodeInfo(ctx context.Context, code string) (*CodeInfo, error) {
	rc, err := s.deps.Store.GetReferralCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	valid := rc.IsValid(s.now())
	if !valid {
		rc.Active = false
	}
	return &CodeInfo{ReferralCode: *rc, Valid: valid}, nil
}

// UserReferrals lists the addresses referrer has brought in.
func (s *Service) UserReferrals(ctx context.Context, referrer string) ([]models.ReferralRelationship, error) {
	referrer, err := normalizeActor(referrer)
	if err != nil {
		return nil, err
	}
	return s.deps.Store.ListReferralsByReferrer(ctx, referrer)
}

func (s *Service) ReferralCodes(ctx context.Context, referrer string) ([]models.ReferralCode, error) {
	referrer, err := normalizeActor(referrer)
	if err != nil {
		return nil, err
	}
	return s.deps.Store.ListReferralCodesByReferrer(ctx, referrer)
}

// recordFirstPurchaseIfEligible returns the buyer's relationship marked as
// recorded, with the payout it earns. The flag is persisted by the
// settlement; nothing is written here.
func (s *Service) recordFirstPurchaseIfEligible(ctx context.Context, tx *models.Transaction) (*models.ReferralRelationship, amount.Amount, error) {
	rel, err := s.deps.Store.GetReferralRelationship(ctx, tx.Buyer)
	if errors.Is(err, models.ErrNotFound) {
		return nil, amount.Zero, nil
	}
	if err != nil {
		return nil, amount.Zero, fmt.Errorf("failed to look up referral for %s: %w", tx.Buyer, err)
	}
	if rel.FirstPurchaseRecorded {
		return nil, amount.Zero, nil
	}
	bps, err := s.deps.Referrals.ReferralBps(ctx)
	if err != nil {
		return nil, amount.Zero, fmt.Errorf("failed to read referral rate: %w", err)
	}
	payout := fees.ReferralPayout(tx.Amount, bps)
	rel.FirstPurchaseRecorded = true
	rel.PayoutAmount = payout
	rel.PayoutTransactionID = tx.ID
	return rel, payout, nil
}
