package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconciliationCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "migration_reconciliation_cycles_total",
		Help: "Completed reconciliation polling cycles.",
	})

	RequestsVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "migration_requests_verified_total",
		Help: "Verifier verdicts, labelled by outcome.",
	}, []string{"verdict"})

	RequestsMigrated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "migration_requests_migrated_total",
		Help: "Requests whose initial disbursement landed.",
	})

	BonusesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "migration_bonuses_dispatched_total",
		Help: "Requests whose bonus disbursement landed.",
	})

	AllocationExhaustions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "migration_allocation_exhaustions_total",
		Help: "Allocation passes that could serve no request, by kind.",
	}, []string{"kind"})

	IntakeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "migration_intake_requests_total",
		Help: "Intake API submissions, labelled by result.",
	}, []string{"result"})
)
