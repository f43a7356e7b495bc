package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// sessionsStarted counts sessions started. Labels: type
	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesgrid",
		Subsystem: "session",
		Name:      "started_total",
		Help:      "Sessions started",
	}, []string{"type"})

	// sessionsCompleted counts sessions completed. Labels: type
	sessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesgrid",
		Subsystem: "session",
		Name:      "completed_total",
		Help:      "Sessions completed",
	}, []string{"type"})

	// sessionsLive tracks sessions held in memory.
	sessionsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "timesgrid",
		Subsystem: "session",
		Name:      "live",
		Help:      "Sessions currently held in memory",
	})

	// answers counts submitted answers. Labels: type, result (correct, incorrect)
	answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesgrid",
		Subsystem: "session",
		Name:      "answers_total",
		Help:      "Answers submitted",
	}, []string{"type", "result"})

	// answerSeconds is the distribution of answer times. Labels: speed
	answerSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "timesgrid",
		Subsystem: "session",
		Name:      "answer_seconds",
		Help:      "Time taken to answer a problem",
		Buckets:   []float64{1, 2, 3, 5, 8, 10, 15, 20, 30, 60},
	}, []string{"speed"})

	// persistFailures counts failed storage writes. Labels: op
	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesgrid",
		Subsystem: "session",
		Name:      "persist_failures_total",
		Help:      "Failed storage writes that were logged and skipped",
	}, []string{"op"})

	// autosaves counts autosave pushes, including teardown flushes.
	autosaves = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "timesgrid",
		Subsystem: "session",
		Name:      "autosaves_total",
		Help:      "Aggregate counter pushes made by autosave",
	})
)
