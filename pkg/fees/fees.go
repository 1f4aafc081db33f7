// Package fees computes how a released escrow amount is divided between the
// seller, the platform fee pool, and a referrer.
package fees

import (
	"context"
	"fmt"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

// FeeManager supplies the platform commission in basis points.
type FeeManager interface {
	FeeBps(ctx context.Context) (uint64, error)
}

// ReferralPolicy supplies the first-purchase referral reward in basis points.
type ReferralPolicy interface {
	ReferralBps(ctx context.Context) (uint64, error)
}

// Static serves fixed rates from configuration.
type Static struct {
	Fee      uint64
	Referral uint64
}

var _ FeeManager = Static{}
var _ ReferralPolicy = Static{}

func (s Static) FeeBps(context.Context) (uint64, error) { return s.Fee, nil }

func (s Static) ReferralBps(context.Context) (uint64, error) { return s.Referral, nil }

// Validate rejects rates that could exceed the sale amount together.
func (s Static) Validate() error {
	if s.Fee+s.Referral > amount.BpsDenominator {
		return fmt.Errorf("fee %d bps plus referral %d bps exceeds %d", s.Fee, s.Referral, amount.BpsDenominator)
	}
	return nil
}

// Split is the disposition of one released escrow.
type Split struct {
	Amount   amount.Amount `json:"amount"`
	Fee      amount.Amount `json:"fee"`
	Referral amount.Amount `json:"referral"`
	Net      amount.Amount `json:"net"`
}

// Compute divides total so that Net + Fee + Referral == total. Fee is floored,
// so rounding dust stays with the seller.
func Compute(total amount.Amount, feeBps uint64, referral amount.Amount) (Split, error) {
	if feeBps > amount.BpsDenominator {
		return Split{}, fmt.Errorf("%w: fee rate %d bps", models.ErrInvalidInput, feeBps)
	}
	fee := total.MulBps(feeBps)
	deductions, err := fee.Add(referral)
	if err != nil {
		return Split{}, err
	}
	net, err := total.Sub(deductions)
	if err != nil {
		return Split{}, fmt.Errorf("%w: fee %s and referral %s exceed amount %s", models.ErrInvalidInput, fee, referral, total)
	}
	return Split{Amount: total, Fee: fee, Referral: referral, Net: net}, nil
}

// ReferralPayout is the reward for a referred buyer's first purchase.
func ReferralPayout(total amount.Amount, referralBps uint64) amount.Amount {
	if referralBps > amount.BpsDenominator {
		referralBps = amount.BpsDenominator
	}
	return total.MulBps(referralBps)
}
