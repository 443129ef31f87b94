package assignment

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dc = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_device_count",
		Help: "The number of devices assigned a data-rate (per mode and data-rate).",
	}, []string{"mode", "data_rate"})

	oorc = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assignment_out_of_range_count",
		Help: "The number of devices out of range of every gateway.",
	})

	rd = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "assignment_run_duration_seconds",
		Help: "The duration of an assignment pass (per mode).",
	}, []string{"mode"})
)

func deviceAssigned(mode Mode, dr int) prometheus.Counter {
	return dc.With(prometheus.Labels{"mode": string(mode), "data_rate": strconv.Itoa(dr)})
}

func observe(res Result, d time.Duration) {
	for _, dr := range res.DataRates {
		deviceAssigned(res.Mode, dr).Inc()
	}
	oorc.Add(float64(len(res.OutOfRangeDevices)))
	rd.With(prometheus.Labels{"mode": string(res.Mode)}).Observe(d.Seconds())
}
