package service

import (
	"context"
	"fmt"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/repo"
)

// StatusService checks the store and warms the suspension registry.
type StatusService struct {
	members repo.AssociationRepo
	cache   *SuspensionCache
}

// NewStatusService constructs a StatusService.
func NewStatusService(members repo.AssociationRepo, cache *SuspensionCache) *StatusService {
	return &StatusService{members: members, cache: cache}
}

// Check pings the store through the caller's session and reloads the
// registry, so entries logged elsewhere since the last session show up.
func (s *StatusService) Check(ctx context.Context) (domain.ConsoleStatus, error) {
	if err := s.members.Ping(ctx); err != nil {
		return domain.ConsoleStatus{}, fmt.Errorf("service.StatusService.Check: %w", err)
	}
	version, err := s.cache.Refresh(ctx)
	if err != nil {
		return domain.ConsoleStatus{}, fmt.Errorf("service.StatusService.Check: %w", err)
	}
	return domain.ConsoleStatus{RegistryVersion: version}, nil
}
