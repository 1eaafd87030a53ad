package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/internal/repo"
)

// PaymentService renews member expiration dates after a dues payment.
type PaymentService struct {
	members repo.AssociationRepo
	log     *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(members repo.AssociationRepo, log *zap.Logger) *PaymentService {
	return &PaymentService{members: members, log: log}
}

// SearchOwners lists members whose name contains name.
func (s *PaymentService) SearchOwners(ctx context.Context, name string) ([]domain.Owner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	owners, err := s.members.SearchOwners(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("service.PaymentService.SearchOwners: %w", err)
	}
	return owners, nil
}

// RegisterPayment stores the new expiration and marks the member valid.
// The member is addressed by IDSAE; when a name is given it must match the
// stored one so that a stale picker cannot renew the wrong household.
func (s *PaymentService) RegisterPayment(ctx context.Context, req domain.PaymentRequest) (domain.Owner, error) {
	if req.IDSAE <= 0 {
		return domain.Owner{}, fmt.Errorf("%w: select a member before registering a payment", domain.ErrValidation)
	}
	exp := strings.TrimSpace(req.Expiration)
	if err := domain.ValidateExpiration(exp); err != nil {
		return domain.Owner{}, err
	}

	owner, err := s.members.GetOwner(ctx, req.IDSAE)
	if err != nil {
		return domain.Owner{}, fmt.Errorf("service.PaymentService.RegisterPayment: %w", err)
	}
	if name := strings.TrimSpace(req.OwnerName); name != "" && !sameName(name, owner.Name) {
		return domain.Owner{}, fmt.Errorf("%w: IDSAE %d belongs to %s, not %s", domain.ErrValidation, req.IDSAE, owner.Name, name)
	}

	if err := s.members.RenewExpiration(ctx, req.IDSAE, exp); err != nil {
		return domain.Owner{}, fmt.Errorf("service.PaymentService.RegisterPayment: %w", err)
	}
	logging.FromContext(ctx, s.log).Info("payment registered",
		zap.Int64("idsae", req.IDSAE), zap.String("vigencia", exp))
	return owner, nil
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}
