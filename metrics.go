package main

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CeresMetrics struct {
	Distributor *DistributorMetrics
}

type DistributorMetrics struct {
	Logins   metrics.Counter
	Logouts  metrics.Counter
	Commands metrics.Counter
}

func NewCeresMetrics(prometheusAddr string) *CeresMetrics {

	m := &CeresMetrics{}

	if prometheusAddr == "" {
		m.Distributor = &DistributorMetrics{
			Logins:   discard.NewCounter(),
			Logouts:  discard.NewCounter(),
			Commands: discard.NewCounter(),
		}
	} else {
		m.Distributor = &DistributorMetrics{
			Logins: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "ceres",
				Subsystem: "distributor",
				Name:      "logins_total",
				Help:      "Number of logins",
			}, nil),
			Logouts: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "ceres",
				Subsystem: "distributor",
				Name:      "logouts_total",
				Help:      "Number of logouts",
			}, nil),
			Commands: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "ceres",
				Subsystem: "distributor",
				Name:      "commands_total",
				Help:      "Number of dispatched commands",
			}, []string{"command"}),
		}
	}

	return m
}

func runPromHTTP(logger log.Logger, addr string) {

	if addr == "" {
		level.Debug(logger).Log("msg", "prometheus addr is empty, not exposing prometheus metrics")
		return
	}

	http.Handle("/metrics", promhttp.Handler())

	level.Info(logger).Log("msg", "prometheus handler listening", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		level.Warn(logger).Log("msg", "failed to serve prometheus metrics", "err", err)
	}
}
