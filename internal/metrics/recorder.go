// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors of the recorder.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ellier_sessions_started_total",
		Help: "Total number of recording sessions started",
	})

	sessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ellier_sessions_ended_total",
		Help: "Total number of recording sessions ended by outcome",
	}, []string{"outcome"}) // outcome=kept|discarded|interrupted

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ellier_session_duration_seconds",
		Help:    "Duration of ended recording sessions",
		Buckets: []float64{15, 60, 300, 900, 1800, 3600, 7200, 14400, 28800},
	})

	recordingActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ellier_recording_active",
		Help: "Whether a recording is currently running (1) or not (0)",
	})

	statusPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ellier_status_polls_total",
		Help: "Live status polls by result",
	}, []string{"result"}) // result=open|closed|error

	chapterChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ellier_chapter_changes_total",
		Help: "Chapter list changes by kind",
	}, []string{"kind"}) // kind=append|correct

	pipelineExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ellier_pipeline_exit_total",
		Help: "Capture pipeline exits by reason",
	}, []string{"reason"}) // reason=exited|errored|terminated|spawn_failed

	finalizeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ellier_finalize_total",
		Help: "Chapter finalization attempts by result",
	}, []string{"result"}) // result=success|failure|skipped
)

// IncSessionStarted counts a started recording and marks recording active.
func IncSessionStarted() {
	sessionsStarted.Inc()
	recordingActive.Set(1)
}

// ObserveSessionEnded records the end of a recording.
func ObserveSessionEnded(outcome string, d time.Duration) {
	sessionsEnded.WithLabelValues(outcome).Inc()
	sessionDuration.Observe(d.Seconds())
	recordingActive.Set(0)
}

func ObserveStatusPoll(result string) { statusPolls.WithLabelValues(result).Inc() }
func IncChapterChange(kind string)    { chapterChanges.WithLabelValues(kind).Inc() }
func IncPipelineExit(reason string)   { pipelineExits.WithLabelValues(reason).Inc() }
func IncFinalize(result string)       { finalizeTotal.WithLabelValues(result).Inc() }

var brokerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ellier_broker_requests_total",
	Help: "Credential broker requests by route and status code",
}, []string{"route", "code"})

// IncBrokerRequest counts one served broker request.
func IncBrokerRequest(route string, code int) {
	brokerRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
