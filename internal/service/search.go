package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/internal/repo"
)

// controlMinLength is the shortest key the guard-booth lookup will query.
const controlMinLength = 4

// SearchService dispatches console lookups: it runs the query for the
// selected mode, reconciles validity, then marks suspended credentials.
type SearchService struct {
	search      repo.SearchRepo
	suspensions repo.SuspensionRepo
	reconciler  *Reconciler
	cache       *SuspensionCache
	log         *zap.Logger
}

// NewSearchService constructs a SearchService.
func NewSearchService(search repo.SearchRepo, suspensions repo.SuspensionRepo, reconciler *Reconciler, cache *SuspensionCache, log *zap.Logger) *SearchService {
	return &SearchService{search: search, suspensions: suspensions, reconciler: reconciler, cache: cache, log: log}
}

// Search runs q. An empty key returns no rows without querying.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	if q.Mode == domain.ModeSuspended {
		return s.Suspended(ctx)
	}

	key := strings.TrimSpace(q.Key)
	if key == "" || q.Mode == "" {
		return []domain.SearchResult{}, nil
	}

	if err := s.prepareRegistry(ctx, q.MinVersion); err != nil {
		return nil, err
	}

	var (
		rows []domain.SearchResult
		err  error
	)
	switch q.Mode {
	case domain.ModeByID:
		idsae, perr := strconv.ParseInt(key, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("%w: idsae must be a number", domain.ErrValidation)
		}
		rows, err = s.search.ByID(ctx, idsae)
	case domain.ModeByName:
		rows, err = s.search.ByName(ctx, key)
	case domain.ModeByTag:
		rows, err = s.search.ByCredential(ctx, key, utf8.RuneCountInString(key) >= domain.ExactTagLength)
	default:
		return nil, fmt.Errorf("%w: unknown search mode %q", domain.ErrValidation, q.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("service.SearchService.Search: %w", err)
	}

	rows = s.reconciler.Reconcile(ctx, rows)
	return s.cache.Annotate(rows), nil
}

// Suspended lists the misuse log with each entry's current tag state.
func (s *SearchService) Suspended(ctx context.Context) ([]domain.SearchResult, error) {
	rows, err := s.suspensions.ListSuspended(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.SearchService.Suspended: %w", err)
	}
	return rows, nil
}

// Control is the guard-booth lookup: keys of ExactTagLength or more match
// exactly, shorter keys of at least four characters match by prefix, and
// anything shorter returns nothing. Validity is evaluated from the date
// without writing corrections back.
func (s *SearchService) Control(ctx context.Context, key string) ([]domain.SearchResult, error) {
	key = strings.TrimSpace(key)
	n := utf8.RuneCountInString(key)
	if n < controlMinLength {
		return []domain.SearchResult{}, nil
	}

	rows, err := s.search.ByCredential(ctx, key, n >= domain.ExactTagLength)
	if err != nil {
		return nil, fmt.Errorf("service.SearchService.Control: %w", err)
	}
	for i := range rows {
		if flag, ok := s.reconciler.Evaluate(rows[i].Owner.Expiration); ok {
			rows[i].Owner.Validity = flag
		}
	}

	if err := s.cache.EnsureLoaded(ctx); err != nil {
		logging.FromContext(ctx, s.log).Warn("suspension registry unavailable; control rows not annotated", zap.Error(err))
	}
	return s.cache.Annotate(rows), nil
}

// prepareRegistry makes sure the cache can annotate. A requested version
// must be reached; otherwise a load failure only costs the annotation.
func (s *SearchService) prepareRegistry(ctx context.Context, minVersion int64) error {
	if minVersion > 0 {
		if err := s.cache.EnsureVersion(ctx, minVersion); err != nil {
			return fmt.Errorf("service.SearchService.Search: %w", err)
		}
		return nil
	}
	if err := s.cache.EnsureLoaded(ctx); err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return err
		}
		logging.FromContext(ctx, s.log).Warn("suspension registry unavailable; results not annotated", zap.Error(err))
	}
	return nil
}
