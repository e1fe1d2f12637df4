// Package service contains the service layer for the Finance API
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion outcomes: inserted, duplicate, rejected, unknown_account
	transactionsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financeapi_transactions_ingested_total",
			Help: "Webhook transaction events by direction and outcome",
		},
		[]string{"db_cr", "outcome"},
	)

	// Login steps: password, twofactor, signup
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financeapi_auth_attempts_total",
			Help: "Authentication attempts by step and outcome",
		},
		[]string{"step", "outcome"},
	)
)
