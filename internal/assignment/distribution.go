package assignment

import (
	"math"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/brocaar/chirpstack-radio-planner/internal/band"
)

// auDistributionBuckets is the number of buckets of the AU distribution
// (one per data-rate, DR0 - DR13).
const auDistributionBuckets = 14

// auDistributionDataRates holds the populated AU buckets: SF7 - SF10 over
// 125 kHz. DR0 and DR1 are not allowed under the AU uplink dwell-time limit.
var auDistributionDataRates = []int{5, 4, 3, 2}

// DistributionBuckets returns the data-rate per distribution bucket for the
// region of the assigner. The length of the returned slice is the length the
// distribution must have.
func (a *Assigner) DistributionBuckets() []int {
	if a.plan.Region == band.AU {
		out := make([]int, auDistributionBuckets)
		for i := range out {
			out[i] = NoDataRate
			if i < len(auDistributionDataRates) {
				out[i] = auDistributionDataRates[i]
			}
		}
		return out
	}

	return a.Ladder()
}

// DefaultDistribution returns the distribution used when none is configured:
// every device is assigned the data-rate of the first bucket.
func (a *Assigner) DefaultDistribution() []float64 {
	out := make([]float64, len(a.DistributionBuckets()))
	out[0] = 1
	return out
}

// Distribution assigns the data-rates randomly following the given
// probability distribution. Bucket i of the distribution maps to
// DistributionBuckets()[i].
//
// For each device a single uniform value in [0, 1) is drawn; the first
// bucket whose cumulative probability is greater than the value is selected.
// When the distribution sums to less than one, the remaining probability
// goes to the last populated bucket.
func (a *Assigner) Distribution(devices []Device, distribution []float64) (Result, error) {
	start := time.Now()
	buckets := a.DistributionBuckets()
	res := newResult(Distribution, buckets, -1)

	if err := validateDistribution(distribution, len(buckets)); err != nil {
		return Result{}, err
	}

	cumulative := make([]float64, len(distribution))
	floats.CumSum(cumulative, distribution)

	if sum := cumulative[len(cumulative)-1]; math.Abs(sum-1) > 1e-6 {
		log.WithFields(log.Fields{
			"sum":          sum,
			"distribution": distribution,
		}).Warning("assignment: distribution does not sum to one")
	}

	log.WithFields(log.Fields{
		"distribution": distribution,
		"cumulative":   cumulative,
	}).Debug("assignment: cumulative distribution")

	lastPopulated := len(buckets) - 1
	for lastPopulated > 0 && buckets[lastPopulated] == NoDataRate {
		lastPopulated--
	}

	for _, d := range devices {
		prob := a.rnd.Float64()

		bucket := lastPopulated
		for i, c := range cumulative {
			if prob < c {
				bucket = i
				break
			}
		}
		if bucket > lastPopulated {
			bucket = lastPopulated
		}

		dr := buckets[bucket]
		d.SetDataRate(dr)
		res.DataRates[d.ID()] = dr
		res.Histogram[bucket]++
	}

	observe(res, time.Since(start))

	return res, nil
}

func validateDistribution(distribution []float64, buckets int) error {
	if len(distribution) != buckets {
		return errors.Wrapf(ErrInvalidDistribution, "expected %d buckets, got %d", buckets, len(distribution))
	}

	var sum float64
	for i, p := range distribution {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return errors.Wrapf(ErrInvalidDistribution, "bucket %d: %f", i, p)
		}
		sum += p
	}

	if sum == 0 {
		return errors.Wrap(ErrInvalidDistribution, "all probabilities are zero")
	}

	return nil
}
