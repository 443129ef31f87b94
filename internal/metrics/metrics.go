// Package metrics exposes the Prometheus metrics of a planner run.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/chirpstack-radio-planner/internal/config"
)

var server *http.Server

// Setup starts the Prometheus metrics endpoint when enabled.
func Setup(c config.Config) error {
	if !c.Metrics.Prometheus.EndpointEnabled {
		return nil
	}

	log.WithFields(log.Fields{
		"bind": c.Metrics.Prometheus.Bind,
	}).Info("metrics: starting prometheus metrics server")

	server = &http.Server{
		Handler: promhttp.Handler(),
		Addr:    c.Metrics.Prometheus.Bind,
	}

	go func(s *http.Server) {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics: prometheus metrics server error")
		}
	}(server)

	return nil
}

// Shutdown stops the metrics endpoint, if started.
func Shutdown(ctx context.Context) error {
	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "metrics: shutdown error")
	}
	server = nil
	return nil
}

// CounterValues returns the value of every counter series of which the name
// starts with the given prefix, keyed by name{label="value",...}.
func CounterValues(g prometheus.Gatherer, prefix string) (map[string]float64, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gather error")
	}

	out := make(map[string]float64)
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}

		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}

			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)

			key := mf.GetName()
			if len(labels) != 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			out[key] = m.GetCounter().GetValue()
		}
	}

	return out, nil
}

// LogCounters logs the counters of which the name starts with the given
// prefix at debug level.
func LogCounters(prefix string) {
	values, err := CounterValues(prometheus.DefaultGatherer, prefix)
	if err != nil {
		log.WithError(err).Error("metrics: gather counters error")
		return
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		log.WithFields(log.Fields{
			"metric": k,
			"value":  values[k],
		}).Debug("metrics: counter value")
	}
}
