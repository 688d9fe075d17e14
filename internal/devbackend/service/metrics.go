package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	flowSignIn = "sign_in"
	flowSignUp = "sign_up"
)

var (
	flowsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devbackend",
		Name:      "flows_completed_total",
		Help:      "Sign-in and sign-up attempts that reached complete, by flow.",
	}, []string{"flow"})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "devbackend",
		Name:      "sessions_created_total",
		Help:      "Sessions created.",
	})

	tokensMinted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devbackend",
		Name:      "tokens_minted_total",
		Help:      "Session tokens minted, by template.",
	}, []string{"template"})

	housekeepingSwept = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devbackend",
		Name:      "housekeeping_swept_total",
		Help:      "Records abandoned or expired by housekeeping, by kind.",
	}, []string{"kind"})
)
