package fees

import (
	"math/rand"
	"testing"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	t.Run("Fee Only", func(t *testing.T) {
		s, err := Compute(amount.New(100), 200, amount.Zero)
		require.NoError(t, err)
		assert.Equal(t, "98", s.Net.String())
		assert.Equal(t, "2", s.Fee.String())
		assert.True(t, s.Referral.IsZero())
	})

	t.Run("With Referral", func(t *testing.T) {
		payout := ReferralPayout(amount.New(50), 1000)
		s, err := Compute(amount.New(50), 200, payout)
		require.NoError(t, err)
		assert.Equal(t, "5", s.Referral.String())
		assert.Equal(t, "1", s.Fee.String())
		assert.Equal(t, "44", s.Net.String())
	})

	t.Run("Deductions Exceed Amount Fails", func(t *testing.T) {
		_, err := Compute(amount.New(10), 5000, amount.New(6))
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("Rate Above Denominator Fails", func(t *testing.T) {
		_, err := Compute(amount.New(10), 10_001, amount.Zero)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestComputeConservesValue(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		total := amount.New(rng.Uint64())
		feeBps := uint64(rng.Intn(5001))
		referralBps := uint64(rng.Intn(5000))
		payout := ReferralPayout(total, referralBps)

		s, err := Compute(total, feeBps, payout)
		require.NoError(t, err)

		sum, err := s.Net.Add(s.Fee)
		require.NoError(t, err)
		sum, err = sum.Add(s.Referral)
		require.NoError(t, err)
		require.True(t, sum.Equal(total), "total %s fee %d referral %d", total, feeBps, referralBps)
	}
}

func TestStaticValidate(t *testing.T) {
	assert.NoError(t, Static{Fee: 200, Referral: 1000}.Validate())
	assert.Error(t, Static{Fee: 9000, Referral: 1001}.Validate())
}
