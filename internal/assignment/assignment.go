// Package assignment implements the data-rate (spreading-factor) assignment
// of end-devices: link-budget based, distribution based and manual.
package assignment

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/brocaar/chirpstack-radio-planner/internal/band"
)

// Mode defines the assignment mode.
type Mode string

// Available assignment modes.
const (
	LinkBudget   Mode = "link_budget"
	Distribution Mode = "distribution"
	Manual       Mode = "manual"
	Replay       Mode = "replay"
)

// NoDataRate is the bucket data-rate of the out-of-range bucket and of
// the distribution buckets which are never populated.
const NoDataRate = -1

// DefaultTXPower is the transmit power (dBm) assumed for every device when
// evaluating its link budget.
const DefaultTXPower = 20

// errors
var (
	ErrInvalidDistribution   = errors.New("invalid distribution")
	ErrInvalidSensitivity    = errors.New("invalid sensitivity curve")
	ErrInvalidLadder         = errors.New("channel-plan does not provide six 125 kHz data-rates")
	ErrInvalidLadderDataRate = errors.New("data-rate is not part of the sensitivity ladder")
	ErrNoChannel             = errors.New("no channel model")
	ErrDeviceNotFound        = errors.New("device not found")
)

// IsConfigurationError returns true when the given error is caused by an
// invalid configuration (including an invalid channel-plan).
func IsConfigurationError(err error) bool {
	switch errors.Cause(err) {
	case ErrInvalidDistribution, ErrInvalidSensitivity, ErrInvalidLadder, ErrInvalidLadderDataRate, ErrNoChannel:
		return true
	}
	return band.IsConfigurationError(err)
}

// DeviceID identifies an end-device.
type DeviceID uint32

// Sensitivity holds the receiver sensitivity (dBm) per data-rate, ordered
// from the fastest to the slowest data-rate of the sensitivity ladder.
type Sensitivity [6]float64

func (s Sensitivity) validate() error {
	for i := 1; i < len(s); i++ {
		if s[i] > s[i-1] {
			return errors.Wrapf(ErrInvalidSensitivity, "sensitivity[%d] (%.2f) > sensitivity[%d] (%.2f)", i, s[i], i-1, s[i-1])
		}
	}
	return nil
}

// Device defines the end-device handle the assigner operates on.
type Device interface {
	ID() DeviceID
	Position() r3.Vec
	Sensitivity() Sensitivity
	DataRate() int
	SetDataRate(dr int)
}

// Gateway defines the gateway handle.
type Gateway interface {
	Position() r3.Vec
}

// Channel returns the power (dBm) received at rx for a transmission from tx.
type Channel interface {
	ReceivedPower(txPower float64, tx, rx r3.Vec) float64
}

// Result holds the outcome of a single assignment pass.
type Result struct {
	Mode Mode

	// DataRates holds the assigned data-rate per device.
	DataRates map[DeviceID]int

	// Histogram holds the number of devices per bucket. BucketDataRates
	// holds the data-rate of each bucket.
	Histogram       []int
	BucketDataRates []int

	// OutOfRangeBucket is the index of the out-of-range bucket, -1 when
	// the mode does not have one.
	OutOfRangeBucket int

	// OutOfRangeDevices holds the devices which did not reach any gateway
	// and were assigned the slowest data-rate.
	OutOfRangeDevices []DeviceID

	// Unassigned holds the devices which were left untouched (replay only).
	Unassigned []DeviceID
}

func newResult(mode Mode, buckets []int, outOfRangeBucket int) Result {
	return Result{
		Mode:             mode,
		DataRates:        make(map[DeviceID]int),
		Histogram:        make([]int, len(buckets)),
		BucketDataRates:  append([]int(nil), buckets...),
		OutOfRangeBucket: outOfRangeBucket,
	}
}

// OutOfRange returns the number of out-of-range devices.
func (r Result) OutOfRange() int {
	if r.OutOfRangeBucket < 0 || r.OutOfRangeBucket >= len(r.Histogram) {
		return 0
	}
	return r.Histogram[r.OutOfRangeBucket]
}

// Total returns the sum of all histogram buckets.
func (r Result) Total() int {
	var total int
	for _, c := range r.Histogram {
		total += c
	}
	return total
}

// DataRateCounts returns the number of devices per assigned data-rate,
// out-of-range devices included.
func (r Result) DataRateCounts() map[int]int {
	out := make(map[int]int)
	for _, dr := range r.DataRates {
		out[dr]++
	}
	return out
}

func (r *Result) sortDeviceLists() {
	sort.Slice(r.OutOfRangeDevices, func(i, j int) bool { return r.OutOfRangeDevices[i] < r.OutOfRangeDevices[j] })
	sort.Slice(r.Unassigned, func(i, j int) bool { return r.Unassigned[i] < r.Unassigned[j] })
}

// Assigner assigns data-rates to devices using the data-rate table of
// a channel-plan. The random source used by the distribution mode is owned
// by the Assigner; an Assigner must not be used concurrently.
type Assigner struct {
	plan    band.ChannelPlan
	ladder  []int
	txPower float64
	rnd     *rand.Rand
}

// New creates a new Assigner for the given (end-device) channel-plan.
// The seed initializes the random source used by the distribution mode.
func New(plan band.ChannelPlan, txPower float64, seed int64) (*Assigner, error) {
	ladder := plan.SensitivityLadder()
	if len(ladder) != len(Sensitivity{}) {
		return nil, errors.Wrapf(ErrInvalidLadder, "region %s has %d", plan.Region, len(ladder))
	}

	return &Assigner{
		plan:    plan,
		ladder:  ladder,
		txPower: txPower,
		rnd:     rand.New(rand.NewSource(seed)),
	}, nil
}

// ChannelPlan returns the channel-plan of the assigner.
func (a *Assigner) ChannelPlan() band.ChannelPlan {
	return a.plan
}

// Ladder returns the data-rates of the sensitivity ladder, fastest first.
func (a *Assigner) Ladder() []int {
	return append([]int(nil), a.ladder...)
}

func (a *Assigner) ladderBuckets() []int {
	return append(a.Ladder(), NoDataRate)
}

// buckets returns the histogram buckets of the given mode and the index of
// its out-of-range bucket, -1 when it has none.
func (a *Assigner) buckets(mode Mode) ([]int, int) {
	if mode == Distribution {
		return a.DistributionBuckets(), -1
	}
	buckets := a.ladderBuckets()
	return buckets, len(buckets) - 1
}

func bucketForDataRate(buckets []int, dr int) (int, bool) {
	for i, b := range buckets {
		if b == dr && dr != NoDataRate {
			return i, true
		}
	}
	return 0, false
}
