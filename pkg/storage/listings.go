package storage

import (
	"context"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/models"
)

// ListingReader defines the interface for reading listings.
type ListingReader interface {
	// GetListing retrieves a listing by its ID. It returns models.ErrNotFound
	// when no listing exists.
	GetListing(ctx context.Context, id uint64) (*models.Listing, error)

	// ListActiveListings returns up to limit active listings with IDs greater
	// than after, in ascending ID order.
	ListActiveListings(ctx context.Context, after uint64, limit int32) ([]models.Listing, error)

	// ListListingsBySeller retrieves every listing a seller created.
	ListListingsBySeller(ctx context.Context, seller string) ([]models.Listing, error)
}

// ListingWriter defines the interface for creating and withdrawing listings.
type ListingWriter interface {
	CreateListing(ctx context.Context, listing *models.Listing) error

	// DeactivateListing clears the active flag. It returns
	// models.ErrAlreadyInactive if the listing is no longer active.
	DeactivateListing(ctx context.Context, id uint64, at time.Time) error
}

// ListingStore combines the reader and writer interfaces.
type ListingStore interface {
	ListingReader
	ListingWriter
}
