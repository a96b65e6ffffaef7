// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ellier_proc_terminate_total",
		Help: "Signals sent to child process groups by result",
	}, []string{"signal", "result"}) // result=sent|esrch|error

	procWait = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ellier_proc_wait_total",
		Help: "Child process reaps by result",
	}, []string{"result"}) // result=exit0|exit_nonzero|forced_exit0|forced_error
)

func IncProcTerminate(signal, result string) { procTerminate.WithLabelValues(signal, result).Inc() }
func IncProcWait(result string)              { procWait.WithLabelValues(result).Inc() }
