// metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_daily_claims_total",
		Help: "Successful daily claims.",
	})

	DonationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_donations_total",
		Help: "Successful donations.",
	})

	DonatedUsd = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_donated_usd_total",
		Help: "Total donated USD.",
	})

	ReferralsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_referrals_total",
		Help: "Credited referrals.",
	})

	TasksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_task_completions_total",
		Help: "Credited social task completions.",
	})

	MintsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_mints_total",
		Help: "Mint transactions by tier and terminal status.",
	}, []string{"tier", "status"})

	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_rejections_total",
		Help: "Domain rejections by reason.",
	}, []string{"reason"})

	XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_xp_awarded_total",
		Help: "XP credited by operation kind.",
	}, []string{"kind"})
)
