package question

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "officehours_question_transitions_total",
	Help: "Completed question status transitions by source and target state.",
}, []string{"from", "to"})
