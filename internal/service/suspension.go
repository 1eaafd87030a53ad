package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/internal/repo"
)

// Searcher re-runs the operator's search after a suspension.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error)
}

// SuspensionService logs credentials as suspended for misuse.
type SuspensionService struct {
	repo     repo.SuspensionRepo
	cache    *SuspensionCache
	searcher Searcher
	log      *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewSuspensionService constructs a SuspensionService. Dates are written in
// loc.
func NewSuspensionService(r repo.SuspensionRepo, cache *SuspensionCache, searcher Searcher, log *zap.Logger, loc *time.Location) *SuspensionService {
	return &SuspensionService{repo: r, cache: cache, searcher: searcher, log: log, loc: loc, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *SuspensionService) WithClock(now func() time.Time) *SuspensionService {
	s.now = now
	return s
}

// Suspend appends a misuse entry for the credential. A credential already
// present in the registry is rejected before anything is written. When
// rerun is non-nil the search is executed again against the new registry
// version and returned in the outcome.
func (s *SuspensionService) Suspend(ctx context.Context, req domain.SuspendRequest, rerun *domain.SearchQuery) (domain.SuspendOutcome, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.SuspendOutcome{}, fmt.Errorf("%w: a reason is required", domain.ErrValidation)
	}
	key := domain.CredentialKey(req.Kind, req.Code, req.Identifier)
	if key == "" {
		return domain.SuspendOutcome{}, fmt.Errorf("%w: tag or app identifier is required", domain.ErrValidation)
	}

	if err := s.cache.EnsureLoaded(ctx); err != nil {
		return domain.SuspendOutcome{}, fmt.Errorf("service.SuspensionService.Suspend: %w", err)
	}
	if info, ok := s.cache.Lookup(key); ok {
		return domain.SuspendOutcome{}, fmt.Errorf("%w: %s is already suspended since %s", domain.ErrValidation, key, info.Date)
	}

	entry, err := s.repo.Insert(ctx, domain.SuspensionEntry{
		IDSAE:      req.IDSAE,
		Credential: key,
		Date:       domain.FormatExpiration(s.now().In(s.loc)),
		Reason:     reason,
	})
	if errors.Is(err, repo.ErrAlreadySuspended) {
		return domain.SuspendOutcome{}, fmt.Errorf("%w: %s is already suspended", domain.ErrValidation, key)
	}
	if err != nil {
		return domain.SuspendOutcome{}, fmt.Errorf("service.SuspensionService.Suspend: %w", err)
	}

	log := logging.FromContext(ctx, s.log)
	log.Info("credential suspended",
		zap.Int64("idsae", entry.IDSAE), zap.String("credential", key), zap.Int64("entry", entry.ID))

	out := domain.SuspendOutcome{Entry: entry, Version: entry.ID}

	// The entry is committed; a failed refresh is retried by the next
	// search that asks for this version.
	if _, err := s.cache.Refresh(ctx); err != nil {
		log.Warn("suspension registry refresh failed", zap.Error(err))
	}

	if rerun != nil {
		q := *rerun
		q.MinVersion = out.Version
		results, err := s.searcher.Search(ctx, q)
		if err != nil {
			return out, fmt.Errorf("service.SuspensionService.Suspend: rerun search: %w", err)
		}
		out.Results = results
	}
	return out, nil
}
