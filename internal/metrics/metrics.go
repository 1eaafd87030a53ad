// Package metrics holds the Prometheus collectors of the console backend.
// Collectors register on the default registry; /metrics serves them.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pkordes/tagconsole/internal/domain"
)

var (
	queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tagconsole",
		Subsystem: "invoker",
		Name:      "queries_total",
		Help:      "Statements sent through the query invoker, by transport and outcome.",
	}, []string{"transport", "outcome"})

	reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tagconsole",
		Subsystem: "validity",
		Name:      "corrections_total",
		Help:      "Validity flag corrections attempted by the reconciler, by result.",
	}, []string{"result"})

	registryRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tagconsole",
		Subsystem: "suspensions",
		Name:      "refreshes_total",
		Help:      "Suspension registry reloads, by result.",
	}, []string{"result"})

	documents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tagconsole",
		Subsystem: "receipts",
		Name:      "documents_total",
		Help:      "Receipts produced, by kind and result.",
	}, []string{"kind", "result"})
)

// ObserveQuery counts one invoker call.
func ObserveQuery(transport string, err error) {
	queries.WithLabelValues(transport, queryOutcome(err)).Inc()
}

func queryOutcome(err error) string {
	var re *domain.RemoteExecutionError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNoSession):
		return "no_session"
	case errors.As(err, &re):
		return "remote_error"
	default:
		return "error"
	}
}

// ObserveCorrection counts one validity write.
func ObserveCorrection(err error) {
	reconciliations.WithLabelValues(result(err)).Inc()
}

// ObserveRefresh counts one suspension registry reload.
func ObserveRefresh(err error) {
	registryRefreshes.WithLabelValues(result(err)).Inc()
}

// ObserveDocument counts one receipt attempt.
func ObserveDocument(kind domain.ReceiptKind, err error) {
	documents.WithLabelValues(string(kind), result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
