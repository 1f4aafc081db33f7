package marketplace

import (
	"context"
	"testing"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/fees"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateListing(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, fees.Static{Fee: 200})
		created := f.list(t, 10, "Electronics")

		got, err := f.svc.GetListing(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
		assert.True(t, got.Active)
		assert.Equal(t, models.CategoryElectronics, got.Category)
		assert.Equal(t, []events.Type{events.ItemListed}, f.events.Types())
	})

	valid := NewListing{Name: "Lamp", Description: "Brass", Price: amount.Units(1), ImageRef: "img", Category: "furniture"}
	cases := map[string]func(*NewListing){
		"Zero Price Fails":        func(n *NewListing) { n.Price = amount.Zero },
		"Empty Name Fails":        func(n *NewListing) { n.Name = "  " },
		"Empty Description Fails": func(n *NewListing) { n.Description = "" },
		"Missing Image Fails":     func(n *NewListing) { n.ImageRef = "" },
		"Unknown Category Fails":  func(n *NewListing) { n.Category = "boats" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, fees.Static{})
			in := valid
			mutate(&in)
			_, err := f.svc.CreateListing(ctx, seller, in)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
			assert.Empty(t, f.events.Types())
		})
	}

	t.Run("Malformed Seller Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		_, err := f.svc.CreateListing(ctx, "not-an-address", valid)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("Unknown Listing Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		_, err := f.svc.GetListing(ctx, 99)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestActiveListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fees.Static{})
	f.fund(buyer, 100)

	var ids []uint64
	for i := 0; i < 5; i++ {
		category := "electronics"
		if i%2 == 1 {
			category = "clothing"
		}
		ids = append(ids, f.list(t, 1, category).ID)
	}
	_, err := f.svc.Purchase(ctx, ids[1], buyer)
	require.NoError(t, err)

	collect := func() []uint64 {
		var out []uint64
		for l, err := range f.svc.ActiveListings(ctx) {
			require.NoError(t, err)
			assert.True(t, l.Active)
			out = append(out, l.ID)
		}
		return out
	}

	t.Run("Success", func(t *testing.T) {
		want := []uint64{ids[0], ids[2], ids[3], ids[4]}
		assert.Equal(t, want, collect())
		assert.Equal(t, want, collect(), "sequence restarts from the beginning")
	})

	t.Run("Early Break", func(t *testing.T) {
		var first []uint64
		for l, err := range f.svc.ActiveListings(ctx) {
			require.NoError(t, err)
			first = append(first, l.ID)
			if len(first) == 3 {
				break
			}
		}
		assert.Equal(t, []uint64{ids[0], ids[2], ids[3]}, first)
	})

	t.Run("Pages", func(t *testing.T) {
		page, err := f.svc.ActiveListingsPage(ctx, 0, 3, "")
		require.NoError(t, err)
		require.Len(t, page.Listings, 3)
		assert.Equal(t, ids[3], page.Next)

		page, err = f.svc.ActiveListingsPage(ctx, page.Next, 3, "")
		require.NoError(t, err)
		require.Len(t, page.Listings, 1)
		assert.Equal(t, ids[4], page.Listings[0].ID)
		assert.Zero(t, page.Next)
	})

	t.Run("Category Filter", func(t *testing.T) {
		page, err := f.svc.ActiveListingsPage(ctx, 0, 10, "CLOTHING")
		require.NoError(t, err)
		require.Len(t, page.Listings, 1)
		assert.Equal(t, ids[3], page.Listings[0].ID)
	})

	t.Run("Bad Category Fails", func(t *testing.T) {
		_, err := f.svc.ActiveListingsPage(ctx, 0, 10, "boats")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("By Seller", func(t *testing.T) {
		all, err := f.svc.ListingsBySeller(ctx, seller)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})
}

func TestRemoveListing(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		l := f.list(t, 3, "others")
		require.NoError(t, f.svc.RemoveListing(ctx, l.ID, seller))

		got, err := f.svc.GetListing(ctx, l.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.NotNil(t, got.DeactivatedAt)
		assert.Equal(t, []events.Type{events.ItemListed, events.ItemRemoved}, f.events.Types())

		for l, err := range f.svc.ActiveListings(ctx) {
			require.NoError(t, err)
			t.Errorf("unexpected active listing %d", l.ID)
		}
	})

	t.Run("Not Seller Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		l := f.list(t, 3, "others")
		assert.ErrorIs(t, f.svc.RemoveListing(ctx, l.ID, buyer), models.ErrUnauthorized)
	})

	t.Run("Already Inactive Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		l := f.list(t, 3, "others")
		require.NoError(t, f.svc.RemoveListing(ctx, l.ID, seller))
		assert.ErrorIs(t, f.svc.RemoveListing(ctx, l.ID, seller), models.ErrAlreadyInactive)
	})

	t.Run("Unknown Listing Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		assert.ErrorIs(t, f.svc.RemoveListing(ctx, 42, seller), models.ErrNotFound)
	})
}
