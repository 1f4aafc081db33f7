package storage

import (
	"context"

	"github.com/koneque/marketplace-escrow/pkg/models"
)

// ReferralStore defines the interface for referral codes and relationships.
type ReferralStore interface {
	// CreateReferralCode returns models.ErrAlreadyExists for a taken code.
	CreateReferralCode(ctx context.Context, code *models.ReferralCode) error
	GetReferralCode(ctx context.Context, code string) (*models.ReferralCode, error)
	ListReferralCodesByReferrer(ctx context.Context, referrer string) ([]models.ReferralCode, error)

	// RegisterReferral writes the updated code usage and the new relationship
	// in one step. It returns models.ErrAlreadyReferred if the address
	// already has a referrer and models.ErrConflict if the code changed.
	RegisterReferral(ctx context.Context, code *models.ReferralCode, rel *models.ReferralRelationship) error
	GetReferralRelationship(ctx context.Context, referred string) (*models.ReferralRelationship, error)
	ListReferralsByReferrer(ctx context.Context, referrer string) ([]models.ReferralRelationship, error)
}

// Sequence hands out monotonically increasing identifiers.
type Sequence interface {
	NextID(ctx context.Context, name string) (uint64, error)
}
