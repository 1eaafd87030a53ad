package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/internal/repo"
)

// DocumentIssuer produces the receipt that follows a credential mutation.
type DocumentIssuer interface {
	Issue(ctx context.Context, req domain.ReceiptRequest) (domain.Receipt, error)
}

// CredentialService assigns and deactivates tags and app identifiers.
type CredentialService struct {
	credentials repo.CredentialRepo
	members     repo.AssociationRepo
	docs        DocumentIssuer
	log         *zap.Logger
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(credentials repo.CredentialRepo, members repo.AssociationRepo, docs DocumentIssuer, log *zap.Logger) *CredentialService {
	return &CredentialService{credentials: credentials, members: members, docs: docs, log: log}
}

// ListAvailable returns the pooled tag codes that can be assigned.
func (s *CredentialService) ListAvailable(ctx context.Context) ([]string, error) {
	codes, err := s.credentials.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.CredentialService.ListAvailable: %w", err)
	}
	return codes, nil
}

// LookupOwner returns the name and address used to prefill an assignment.
func (s *CredentialService) LookupOwner(ctx context.Context, idsae int64) (domain.Owner, error) {
	if idsae <= 0 {
		return domain.Owner{}, fmt.Errorf("%w: idsae must be positive", domain.ErrValidation)
	}
	owner, err := s.members.GetOwner(ctx, idsae)
	if err != nil {
		return domain.Owner{}, fmt.Errorf("service.CredentialService.LookupOwner: %w", err)
	}
	return owner, nil
}

// Assign binds a pooled tag, or creates an app credential, for the member
// and then issues the signed receipt. If only the receipt fails, the
// committed assignment is returned together with the
// *domain.DocumentGenerationError.
func (s *CredentialService) Assign(ctx context.Context, req domain.AssignRequest) (domain.Assignment, error) {
	if err := validateAssign(req); err != nil {
		return domain.Assignment{}, err
	}
	key := req.Key()

	holders, err := s.credentials.ActiveHolders(ctx, req.Kind, key, req.IDSAE)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("service.CredentialService.Assign: %w", err)
	}
	if len(holders) > 0 {
		return domain.Assignment{}, fmt.Errorf("%w: %s is already assigned to IDSAE %d", domain.ErrValidation, key, holders[0])
	}

	var cred domain.Credential
	switch req.Kind {
	case domain.KindTag:
		cred, err = s.credentials.AssignPooledTag(ctx, req.IDSAE, key)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Assignment{}, fmt.Errorf("%w: tag %s is not available for assignment", domain.ErrValidation, key)
		}
	case domain.KindApp:
		cred, err = s.credentials.InsertApp(ctx, req.IDSAE, key)
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("service.CredentialService.Assign: %w", err)
	}

	logging.FromContext(ctx, s.log).Info("credential assigned",
		zap.Int64("idsae", req.IDSAE), zap.String("kind", string(req.Kind)), zap.String("credential", key))

	out := domain.Assignment{Credential: cred}
	receipt, err := s.docs.Issue(ctx, domain.ReceiptRequest{
		Kind:       domain.ReceiptIssuance,
		Owner:      domain.Owner{IDSAE: req.IDSAE, Name: req.OwnerName, Address: req.Address},
		Credential: req.Kind,
		Code:       req.Code,
		Identifier: req.Identifier,
		Signature:  req.Signature,
		Photos:     req.Photos,
	})
	if err != nil {
		return out, err
	}
	out.Receipt = &receipt
	return out, nil
}

func validateAssign(req domain.AssignRequest) error {
	var missing []string
	if req.IDSAE <= 0 {
		missing = append(missing, "idsae")
	}
	if strings.TrimSpace(req.OwnerName) == "" {
		missing = append(missing, "owner name")
	}
	if strings.TrimSpace(req.Address) == "" {
		missing = append(missing, "address")
	}
	if req.Key() == "" {
		if req.Kind == domain.KindApp {
			missing = append(missing, "app identifier")
		} else {
			missing = append(missing, "tag")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if req.Kind != domain.KindTag && req.Kind != domain.KindApp {
		return fmt.Errorf("%w: unknown credential kind %q", domain.ErrValidation, req.Kind)
	}
	if req.Kind == domain.KindApp && strings.IndexFunc(req.Key(), func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return fmt.Errorf("%w: app identifier must be numeric", domain.ErrValidation)
	}
	if !req.Photos.Complete() {
		return fmt.Errorf("%w: INE front, INE back and circulation card photos are required", domain.ErrValidation)
	}
	return nil
}

// Deactivate marks the credential inactive and issues the cancellation
// receipt. Everything the receipt needs is checked before the write, so a
// validation error always means nothing changed. As with Assign, a receipt
// failure does not undo the change.
func (s *CredentialService) Deactivate(ctx context.Context, req domain.DeactivateRequest) (*domain.Receipt, error) {
	key := req.Key()
	switch {
	case req.IDSAE <= 0:
		return nil, fmt.Errorf("%w: idsae is required", domain.ErrValidation)
	case key == "":
		return nil, fmt.Errorf("%w: tag or app identifier is required", domain.ErrValidation)
	case req.Mode != domain.CancelInPerson && req.Mode != domain.CancelRemote:
		return nil, fmt.Errorf("%w: cancellation mode must be in_person or remote", domain.ErrValidation)
	}
	doc := domain.ReceiptRequest{
		Kind:       domain.ReceiptCancellation,
		Mode:       req.Mode,
		Owner:      domain.Owner{IDSAE: req.IDSAE, Name: req.OwnerName, Address: req.Address},
		Credential: req.Kind,
		Code:       req.Code,
		Identifier: req.Identifier,
		Signature:  req.Signature,
		Photos:     req.Photos,
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	if err := s.credentials.Deactivate(ctx, req.IDSAE, req.Kind, key); err != nil {
		return nil, fmt.Errorf("service.CredentialService.Deactivate: %w", err)
	}
	logging.FromContext(ctx, s.log).Info("credential deactivated",
		zap.Int64("idsae", req.IDSAE), zap.String("credential", key), zap.String("mode", string(req.Mode)))

	receipt, err := s.docs.Issue(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
