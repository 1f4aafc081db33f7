package referrals

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/api"
	"github.com/koneque/marketplace-escrow/pkg/handlers/respond"
	"github.com/koneque/marketplace-escrow/pkg/mapping"
	"github.com/koneque/marketplace-escrow/pkg/marketplace"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

// Engine is the part of the marketplace the referral handlers drive.
type Engine interface {
	CreateCode(ctx context.Context, referrer, code string, validity time.Duration, maxUsage int) (*models.ReferralCode, error)
	CodeInfo(ctx context.Context, code string) (*marketplace.CodeInfo, error)
	RegisterWithCode(ctx context.Context, code, referred string) (*models.ReferralRelationship, error)
	UserReferrals(ctx context.Context, referrer string) ([]models.ReferralRelationship, error)
	ReferralCodes(ctx context.Context, referrer string) ([]models.ReferralCode, error)
}

// ReferralsHandler holds the dependencies for referral-related handlers.
type ReferralsHandler struct {
	Engine Engine
	Clock  func() time.Time
}

// NewReferralsHandler creates a new ReferralsHandler.
func NewReferralsHandler(engine Engine) *ReferralsHandler {
	return &ReferralsHandler{Engine: engine, Clock: time.Now}
}

func (h *ReferralsHandler) CreateReferralCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var body api.NewReferralCode
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}
	if body.ValiditySeconds <= 0 || body.ValiditySeconds > int64(time.Duration(1<<63-1)/time.Second) {
		respond.Error(w, r, fmt.Errorf("%w: validity_seconds out of range", models.ErrInvalidInput))
		return
	}
	var code string
	if body.Code != nil {
		code = *body.Code
	}

	rc, err := h.Engine.CreateCode(r.Context(), actor, code, time.Duration(body.ValiditySeconds)*time.Second, body.MaxUsage)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, mapping.ToApiReferralCode(rc, rc.IsValid(h.Clock())))
}

func (h *ReferralsHandler) GetReferralCode(w http.ResponseWriter, r *http.Request, code string) {
	info, err := h.Engine.CodeInfo(r.Context(), code)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiReferralCode(&info.ReferralCode, info.Valid))
}

// RegisterReferral binds the caller to the referrer behind code.
func (h *ReferralsHandler) RegisterReferral(w http.ResponseWriter, r *http.Request, code string) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	rel, err := h.Engine.RegisterWithCode(r.Context(), code, actor)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, mapping.ToApiReferral(rel))
}

func (h *ReferralsHandler) ListUserReferrals(w http.ResponseWriter, r *http.Request, address string) {
	rels, err := h.Engine.UserReferrals(r.Context(), address)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiReferrals(rels))
}

func (h *ReferralsHandler) ListUserReferralCodes(w http.ResponseWriter, r *http.Request, address string) {
	codes, err := h.Engine.ReferralCodes(r.Context(), address)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiReferralCodes(codes, h.Clock()))
}
