package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/api"
	"github.com/koneque/marketplace-escrow/pkg/fees"
	"github.com/koneque/marketplace-escrow/pkg/ledger"
	"github.com/koneque/marketplace-escrow/pkg/marketplace"
	"github.com/koneque/marketplace-escrow/pkg/middleware"
	"github.com/koneque/marketplace-escrow/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	seller   = "0x1111111111111111111111111111111111111111"
	buyer    = "0x2222222222222222222222222222222222222222"
	escrowAc = "0x3333333333333333333333333333333333333333"
	feePool  = "0x4444444444444444444444444444444444444444"
	arbiter  = "0x5555555555555555555555555555555555555555"
	referrer = "0x6666666666666666666666666666666666666666"
	stranger = "0x7777777777777777777777777777777777777777"
)

type server struct {
	t      *testing.T
	router http.Handler
	auth   *middleware.Authenticator
	tokens *ledger.Memory
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := ledger.NewMemory(escrowAc)
	rates := fees.Static{Fee: 200, Referral: 100}
	svc, err := marketplace.New(marketplace.Deps{
		Store:     memory.New(),
		Tokens:    tokens,
		Confirmer: tokens,
		Fees:      rates,
		Referrals: rates,
		Logger:    logger,
	}, marketplace.Options{
		EscrowAccount: escrowAc,
		FeePool:       feePool,
		Arbiters:      []string{arbiter},
		GracePeriod:   72 * time.Hour,
		LedgerTimeout: 50 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
	})
	require.NoError(t, err)

	auth := middleware.NewAuthenticator("handler-test-secret", "koneque", logger)
	return &server{
		t:      t,
		auth:   auth,
		tokens: tokens,
		router: NewRouter(RouterDeps{
			Handler: NewApiHandler(svc),
			Auth:    auth,
			Logger:  logger,
		}),
	}
}

func (s *server) do(method, path, actor string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if actor != "" {
		token, err := s.auth.Issue(actor, time.Minute)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func bike(price uint64) api.NewListing {
	return api.NewListing{
		Name:        "Road bike",
		Description: "Aluminium frame, 56cm",
		Price:       amount.Units(price).String(),
		ImageRef:    "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
		Category:    api.VEHICLES,
	}
}

func TestPurchaseLifecycle(t *testing.T) {
	s := newServer(t)
	s.tokens.Mint(buyer, amount.Units(100))
	s.tokens.SetAllowance(buyer, escrowAc, amount.Units(100))

	rr := s.do(http.MethodPost, "/listings", seller, bike(100))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	listing := decode[api.Listing](t, rr)
	assert.True(t, listing.Active)
	assert.Equal(t, seller, listing.Seller)

	rr = s.do(http.MethodGet, "/listings?category=VEHICLES", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[api.ListingPage](t, rr)
	require.Len(t, page.Listings, 1)
	assert.Nil(t, page.Next)

	rr = s.do(http.MethodPost, "/listings/1/purchase", buyer, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tx := decode[api.Transaction](t, rr)
	assert.Equal(t, api.PAYMENTCOMPLETED, tx.Status)

	rr = s.do(http.MethodGet, "/listings/1", "", nil)
	assert.False(t, decode[api.Listing](t, rr).Active)

	rr = s.do(http.MethodPost, "/transactions/1/delivery", seller, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotNil(t, decode[api.Transaction](t, rr).DeliveredAt)

	rr = s.do(http.MethodPost, "/transactions/1/finalize", buyer, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, api.FINALIZED, decode[api.Transaction](t, rr).Status)

	rr = s.do(http.MethodGet, "/transactions/1", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	details := decode[api.TransactionDetails](t, rr)
	assert.True(t, details.Escrow.Released)
	assert.Equal(t, amount.Units(2).String(), details.Escrow.FeeAmount)
	assert.Equal(t, amount.Units(98).String(), details.Escrow.NetAmount)

	bal, err := s.tokens.BalanceOf(t.Context(), seller)
	require.NoError(t, err)
	assert.Equal(t, amount.Units(98).String(), bal.String())

	rr = s.do(http.MethodGet, "/ledger/"+escrowAc, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, decode[[]api.LedgerEntry](t, rr))

	rr = s.do(http.MethodGet, "/users/"+buyer+"/transactions", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]api.Transaction](t, rr), 1)
}

func TestErrorResponses(t *testing.T) {
	s := newServer(t)

	t.Run("Anonymous Mutation Fails", func(t *testing.T) {
		rr := s.do(http.MethodPost, "/listings", "", bike(1))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Invalid Token Fails", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/listings", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Malformed Path Parameter Fails", func(t *testing.T) {
		rr := s.do(http.MethodGet, "/transactions/abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "InvalidInput", decode[api.Error](t, rr).Kind)
	})

	t.Run("Invalid Price Fails", func(t *testing.T) {
		in := bike(1)
		in.Price = "-3"
		rr := s.do(http.MethodPost, "/listings", seller, in)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unknown Listing Fails", func(t *testing.T) {
		rr := s.do(http.MethodGet, "/listings/42", "", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Insufficient Balance Fails", func(t *testing.T) {
		rr := s.do(http.MethodPost, "/listings", seller, bike(10))
		require.Equal(t, http.StatusCreated, rr.Code)
		id := decode[api.Listing](t, rr).Id

		rr = s.do(http.MethodPost, "/listings/"+jsonNumber(id)+"/purchase", stranger, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "InsufficientBalance", decode[api.Error](t, rr).Kind)
	})

	t.Run("Seller Cannot Buy Own Listing", func(t *testing.T) {
		rr := s.do(http.MethodPost, "/listings", seller, bike(10))
		require.Equal(t, http.StatusCreated, rr.Code)
		id := decode[api.Listing](t, rr).Id

		rr = s.do(http.MethodPost, "/listings/"+jsonNumber(id)+"/purchase", seller, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Remove By Stranger Fails", func(t *testing.T) {
		rr := s.do(http.MethodPost, "/listings", seller, bike(10))
		require.Equal(t, http.StatusCreated, rr.Code)
		id := decode[api.Listing](t, rr).Id

		rr = s.do(http.MethodDelete, "/listings/"+jsonNumber(id), stranger, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = s.do(http.MethodDelete, "/listings/"+jsonNumber(id), seller, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = s.do(http.MethodDelete, "/listings/"+jsonNumber(id), seller, nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestReferralRoutes(t *testing.T) {
	s := newServer(t)

	rr := s.do(http.MethodPost, "/referral-codes", referrer, api.NewReferralCode{
		Code:            ptr("bikes1"),
		ValiditySeconds: 3600,
		MaxUsage:        1,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	code := decode[api.ReferralCode](t, rr)
	assert.Equal(t, "BIKES1", code.Code)
	assert.True(t, code.Valid)

	rr = s.do(http.MethodGet, "/referral-codes/BIKES1", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[api.ReferralCode](t, rr).Valid)

	rr = s.do(http.MethodPost, "/referral-codes/BIKES1/registrations", buyer, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rel := decode[api.ReferralRelationship](t, rr)
	assert.Equal(t, referrer, rel.Referrer)
	assert.False(t, rel.FirstPurchaseRecorded)

	rr = s.do(http.MethodPost, "/referral-codes/BIKES1/registrations", stranger, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "CodeExhausted", decode[api.Error](t, rr).Kind)

	rr = s.do(http.MethodGet, "/referral-codes/BIKES1", "", nil)
	assert.False(t, decode[api.ReferralCode](t, rr).Valid)

	rr = s.do(http.MethodGet, "/users/"+referrer+"/referrals", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]api.ReferralRelationship](t, rr), 1)

	rr = s.do(http.MethodGet, "/users/"+referrer+"/referral-codes", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]api.ReferralCode](t, rr), 1)

	t.Run("Zero Validity Fails", func(t *testing.T) {
		rr := s.do(http.MethodPost, "/referral-codes", referrer, api.NewReferralCode{ValiditySeconds: 0, MaxUsage: 1})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	rr := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func ptr[T any](v T) *T { return &v }

func jsonNumber(n uint64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
