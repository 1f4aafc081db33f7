package marketplace

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/sequencer"
)

// NewListing is the seller-supplied part of a listing.
type NewListing struct {
	Name        string
	Description string
	Price       amount.Amount
	ImageRef    string
	MetadataRef string
	Category    string
}

func (n NewListing) validate() (models.Category, error) {
	if strings.TrimSpace(n.Name) == "" {
		return "", fmt.Errorf("%w: name is required", models.ErrInvalidInput)
	}
	if strings.TrimSpace(n.Description) == "" {
		return "", fmt.Errorf("%w: description is required", models.ErrInvalidInput)
	}
	if n.Price.IsZero() {
		return "", fmt.Errorf("%w: price must be positive", models.ErrInvalidInput)
	}
	if strings.TrimSpace(n.ImageRef) == "" {
		return "", fmt.Errorf("%w: image reference is required", models.ErrInvalidInput)
	}
	return models.ParseCategory(n.Category)
}

// CreateListing puts a new item on the market.
func (s *Service) CreateListing(ctx context.Context, seller string, in NewListing) (listing *models.Listing, err error) {
	defer s.observe("create_listing", time.Now(), &err)

	seller, err = normalizeActor(seller)
	if err != nil {
		return nil, err
	}
	category, err := in.validate()
	if err != nil {
		return nil, err
	}

	id, err := s.deps.Store.NextID(ctx, listingSequence)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate listing id: %w", err)
	}
	now := s.now()
	listing = &models.Listing{
		ID:          id,
		Seller:      seller,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		ImageRef:    strings.TrimSpace(in.ImageRef),
		MetadataRef: strings.TrimSpace(in.MetadataRef),
		Category:    category,
		CreatedAt:   now,
	}
	listing.SetActive(true, now)

	if err := s.deps.Store.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	s.deps.Logger.Info("listing created", "listing_id", id, "seller", seller, "price", in.Price.String())
	s.publish(ctx, s.event(events.ItemListed, 0, id, seller).
		With("price", listing.Price.String()).
		With("category", string(category)))
	return listing, nil
}

func (s *Service) GetListing(ctx context.Context, id uint64) (*models.Listing, error) {
	return s.deps.Store.GetListing(ctx, id)
}

// ActiveListings yields every active listing in creation order, fetching
// pages lazily. Each range over the sequence starts from the beginning.
func (s *Service) ActiveListings(ctx context.Context) iter.Seq2[models.Listing, error] {
	return s.activeAfter(ctx, 0)
}

func (s *Service) activeAfter(ctx context.Context, after uint64) iter.Seq2[models.Listing, error] {
	return func(yield func(models.Listing, error) bool) {
		cursor := after
		for {
			page, err := s.deps.Store.ListActiveListings(ctx, cursor, s.opts.PageSize)
			if err != nil {
				yield(models.Listing{}, fmt.Errorf("failed to list active listings: %w", err))
				return
			}
			for _, l := range page {
				if !yield(l, nil) {
					return
				}
				cursor = l.ID
			}
			if len(page) < int(s.opts.PageSize) {
				return
			}
		}
	}
}

// ListingPage is one cursor page of active listings. Next is zero on the
// last page.
type ListingPage struct {
	Listings []models.Listing
	Next     uint64
}

// ActiveListingsPage returns up to limit active listings after the cursor,
// optionally restricted to one category.
func (s *Service) ActiveListingsPage(ctx context.Context, after uint64, limit int, category string) (*ListingPage, error) {
	if limit <= 0 || limit > 100 {
		limit = int(s.opts.PageSize)
	}
	var want models.Category
	if category != "" {
		c, err := models.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		want = c
	}

	page := &ListingPage{Listings: []models.Listing{}}
	for l, err := range s.activeAfter(ctx, after) {
		if err != nil {
			return nil, err
		}
		if want != "" && l.Category != want {
			continue
		}
		if len(page.Listings) == limit {
			page.Next = page.Listings[limit-1].ID
			break
		}
		page.Listings = append(page.Listings, l)
	}
	return page, nil
}

func (s *Service) ListingsBySeller(ctx context.Context, seller string) ([]models.Listing, error) {
	seller, err := normalizeActor(seller)
	if err != nil {
		return nil, err
	}
	return s.deps.Store.ListListingsBySeller(ctx, seller)
}

// RemoveListing withdraws an unsold listing. Only its seller may do so.
func (s *Service) RemoveListing(ctx context.Context, id uint64, actor string) (err error) {
	defer s.observe("remove_listing", time.Now(), &err)

	actor, err = normalizeActor(actor)
	if err != nil {
		return err
	}
	release, err := s.lock(ctx, sequencer.ListingKey(id))
	if err != nil {
		return err
	}
	defer release()

	listing, err := s.deps.Store.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if listing.Seller != actor {
		return fmt.Errorf("%w: only the seller may remove listing %d", models.ErrUnauthorized, id)
	}
	if !listing.Active {
		return fmt.Errorf("listing %d: %w", id, models.ErrAlreadyInactive)
	}
	if err := s.deps.Store.DeactivateListing(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to deactivate listing: %w", err)
	}

	s.publish(ctx, s.event(events.ItemRemoved, 0, id, actor).With("listing_id", strconv.FormatUint(id, 10)))
	return nil
}
