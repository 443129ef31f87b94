package band

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cpb = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "band_channel_plan_built_count",
		Help: "The number of channel-plans built (per region and role).",
	}, []string{"region", "role"})
)

func channelPlanBuilt(region Region, role Role) prometheus.Counter {
	return cpb.With(prometheus.Labels{"region": string(region), "role": role.String()})
}
