package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "officehours_notification_sends_total",
		Help: "Successful notification sends by channel kind.",
	}, []string{"channel"})

	sendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "officehours_notification_failures_total",
		Help: "Failed notification sends by channel kind.",
	}, []string{"channel"})
)
