// Package service contains the business logic of the credential console.
// Services validate inputs, enforce business rules, and orchestrate repo
// calls. No SQL lives here: services depend on repo interfaces.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/internal/metrics"
	"github.com/pkordes/tagconsole/internal/repo"
)

// Reconciler brings the cached validity flag of search rows in line with
// their expiration date, writing corrections back as a side effect.
// Corrections are best-effort: a failed write is logged and the row keeps
// its stored flag.
type Reconciler struct {
	members repo.AssociationRepo
	log     *zap.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewReconciler constructs a Reconciler comparing dates in loc.
func NewReconciler(members repo.AssociationRepo, log *zap.Logger, loc *time.Location) *Reconciler {
	return &Reconciler{members: members, log: log, loc: loc, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Evaluate returns the flag a row should carry today, and false when its
// expiration cannot be parsed.
func (r *Reconciler) Evaluate(expiration string) (domain.ValidityFlag, bool) {
	exp, err := domain.ParseExpiration(expiration, r.loc)
	if err != nil {
		return 0, false
	}
	return domain.ExpectedValidity(exp, r.now(), r.loc), true
}

// Reconcile corrects rows in place and returns them. Rows with unparseable
// dates are left untouched. Members appearing on several rows are written
// at most once per call.
func (r *Reconciler) Reconcile(ctx context.Context, rows []domain.SearchResult) []domain.SearchResult {
	log := logging.FromContext(ctx, r.log)

	written := make(map[int64]domain.ValidityFlag)
	failed := make(map[int64]bool)

	for i := range rows {
		owner := &rows[i].Owner
		want, ok := r.Evaluate(owner.Expiration)
		if !ok {
			log.Debug("skipping unparseable expiration",
				zap.Int64("idsae", owner.IDSAE), zap.String("vigencia", owner.Expiration))
			continue
		}
		if want == owner.Validity {
			continue
		}
		if flag, done := written[owner.IDSAE]; done && flag == want {
			owner.Validity = want
			continue
		}
		if failed[owner.IDSAE] {
			continue
		}

		err := r.members.SetValidity(ctx, owner.IDSAE, want)
		metrics.ObserveCorrection(err)
		if err != nil {
			log.Warn("validity correction failed",
				zap.Int64("idsae", owner.IDSAE), zap.Stringer("want", want), zap.Error(err))
			failed[owner.IDSAE] = true
			continue
		}
		log.Info("validity corrected",
			zap.Int64("idsae", owner.IDSAE), zap.Stringer("from", owner.Validity), zap.Stringer("to", want))
		written[owner.IDSAE] = want
		owner.Validity = want
	}
	return rows
}
