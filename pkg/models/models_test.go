package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" vehicles ")
	require.NoError(t, err)
	assert.Equal(t, CategoryVehicles, c)

	_, err = ParseCategory("boats")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNormalizeAddress(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		got, err := NormalizeAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
		require.NoError(t, err)
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", got)
	})

	t.Run("Malformed Fails", func(t *testing.T) {
		_, err := NormalizeAddress("alice")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Zero Address Fails", func(t *testing.T) {
		_, err := NormalizeAddress("0x0000000000000000000000000000000000000000")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestEscrowRecordTouch(t *testing.T) {
	rec := &EscrowRecord{Legs: []TransferLeg{{Kind: LegLock, State: LegPending, Amount: amount.New(1)}}}
	rec.Touch()
	assert.Equal(t, AwaitingLedgerKey, rec.AwaitingLedger)
	assert.False(t, rec.LockConfirmed())

	rec.Legs[0].State = LegConfirmed
	rec.Touch()
	assert.Empty(t, rec.AwaitingLedger)
	assert.True(t, rec.LockConfirmed())
}

func TestEscrowRecordClone(t *testing.T) {
	rec := &EscrowRecord{Legs: []TransferLeg{{Kind: LegLock, State: LegPending}}}
	c := rec.Clone()
	c.Legs[0].State = LegConfirmed
	assert.Equal(t, LegPending, rec.Legs[0].State)
}

func TestReferralCodeValidity(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	code := &ReferralCode{Active: true, ExpiresAt: now.Add(time.Hour), MaxUsage: 1}
	assert.True(t, code.IsValid(now))
	assert.False(t, code.IsValid(now.Add(2*time.Hour)))

	code.CurrentUsage = 1
	assert.False(t, code.IsValid(now))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "CodeExhausted", Kind(fmt.Errorf("register: %w", ErrCodeExhausted)))
	assert.Equal(t, "LedgerPending", Kind(&PendingError{TxHash: "0xabc"}))
	assert.Equal(t, "Internal", Kind(fmt.Errorf("boom")))
}
