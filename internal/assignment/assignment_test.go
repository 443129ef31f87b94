package assignment

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/brocaar/chirpstack-radio-planner/internal/band"
)

var testSensitivity = Sensitivity{-124, -127, -130, -133, -135, -137}

type testDevice struct {
	id          DeviceID
	position    r3.Vec
	sensitivity Sensitivity
	dataRate    int
	writes      int
}

func (d *testDevice) ID() DeviceID { return d.id }
func (d *testDevice) Position() r3.Vec { return d.position }
func (d *testDevice) Sensitivity() Sensitivity { return d.sensitivity }
func (d *testDevice) DataRate() int { return d.dataRate }
func (d *testDevice) SetDataRate(dr int) {
	d.dataRate = dr
	d.writes++
}

type testGateway struct {
	position r3.Vec
}

func (g *testGateway) Position() r3.Vec { return g.position }

// testChannel returns the device X coordinate minus the gateway X coordinate
// as received power, ignoring the tx power.
type testChannel struct{}

func (c testChannel) ReceivedPower(txPower float64, tx, rx r3.Vec) float64 {
	return tx.X - rx.X
}

func newTestDevices(rxPowers ...float64) ([]Device, []*testDevice) {
	var devices []Device
	var raw []*testDevice
	for i, p := range rxPowers {
		d := &testDevice{
			id:          DeviceID(i),
			position:    r3.Vec{X: p},
			sensitivity: testSensitivity,
			dataRate:    NoDataRate,
		}
		devices = append(devices, d)
		raw = append(raw, d)
	}
	return devices, raw
}

func newTestAssigner(t *testing.T, region band.Region) *Assigner {
	p, err := band.BuildChannelPlan(region, band.EndDevice)
	require.NoError(t, err)

	a, err := New(p, DefaultTXPower, 1234)
	require.NoError(t, err)
	return a
}

func TestNew(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert := require.New(t)

		a := newTestAssigner(t, band.EU)
		assert.Equal([]int{5, 4, 3, 2, 1, 0}, a.Ladder())
		assert.Equal(band.EU, a.ChannelPlan().Region)
	})

	t.Run("Without sensitivity ladder", func(t *testing.T) {
		assert := require.New(t)

		_, err := New(band.ChannelPlan{Region: band.EU}, DefaultTXPower, 0)
		assert.Equal(ErrInvalidLadder, errors.Cause(err))
		assert.True(IsConfigurationError(err))
	})
}

func TestLinkBudget(t *testing.T) {
	gateways := []Gateway{&testGateway{}}

	t.Run("Threshold ladder", func(t *testing.T) {
		tests := []struct {
			rxPower    float64
			expectedDR int
			bucket     int
		}{
			{-100, 5, 0},
			{-123.9, 5, 0},
			{-124, 4, 1},
			{-126, 4, 1},
			{-127, 3, 2},
			{-129, 3, 2},
			{-132, 2, 3},
			{-134, 1, 4},
			{-136, 0, 5},
			{-137, 0, 6},
			{-150, 0, 6},
		}

		for _, tst := range tests {
			t.Run(fmt.Sprintf("rx power %.1f", tst.rxPower), func(t *testing.T) {
				assert := require.New(t)
				a := newTestAssigner(t, band.EU)

				devices, raw := newTestDevices(tst.rxPower)
				res, err := a.LinkBudget(devices, gateways, testChannel{})
				assert.NoError(err)

				assert.Equal(tst.expectedDR, raw[0].dataRate)
				assert.Equal(1, raw[0].writes)
				assert.Equal(tst.expectedDR, res.DataRates[0])
				assert.Equal(1, res.Histogram[tst.bucket])
				assert.Equal(1, res.Total())
			})
		}
	})

	t.Run("Out of range is counted separately", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		devices, _ := newTestDevices(-136, -136.5, -140, -145)
		res, err := a.LinkBudget(devices, gateways, testChannel{})
		assert.NoError(err)

		assert.Equal([]int{5, 4, 3, 2, 1, 0, NoDataRate}, res.BucketDataRates)
		assert.Equal([]int{0, 0, 0, 0, 0, 2, 2}, res.Histogram)
		assert.Equal(2, res.OutOfRange())
		assert.Equal([]DeviceID{2, 3}, res.OutOfRangeDevices)
		assert.Equal(map[int]int{0: 4}, res.DataRateCounts())
	})

	t.Run("Best gateway", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		gws := []Gateway{
			&testGateway{position: r3.Vec{X: 30}},
			&testGateway{position: r3.Vec{X: 5}},
			&testGateway{position: r3.Vec{X: 20}},
		}

		// -120 - 5 = -125 at the best gateway
		devices, raw := newTestDevices(-120)
		_, err := a.LinkBudget(devices, gws, testChannel{})
		assert.NoError(err)
		assert.Equal(4, raw[0].dataRate)

		rxPower, index := a.bestGateway(devices[0], gws, testChannel{})
		assert.Equal(-125.0, rxPower)
		assert.Equal(1, index)
	})

	t.Run("Equal received power, lowest gateway index wins", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		gws := []Gateway{
			&testGateway{position: r3.Vec{X: 10}},
			&testGateway{position: r3.Vec{X: 1}},
			&testGateway{position: r3.Vec{X: 1}},
		}
		devices, _ := newTestDevices(-120)

		_, index := a.bestGateway(devices[0], gws, testChannel{})
		assert.Equal(1, index)
	})

	t.Run("Monotonic in received power", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		rnd := rand.New(rand.NewSource(42))
		var powers []float64
		for i := 0; i < 500; i++ {
			powers = append(powers, -150+rnd.Float64()*40)
		}
		sort.Float64s(powers)

		devices, raw := newTestDevices(powers...)
		res, err := a.LinkBudget(devices, gateways, testChannel{})
		assert.NoError(err)
		assert.Equal(len(devices), res.Total())

		for i := 1; i < len(raw); i++ {
			assert.True(raw[i].dataRate >= raw[i-1].dataRate, "power %f got DR%d, power %f got DR%d", powers[i], raw[i].dataRate, powers[i-1], raw[i-1].dataRate)
		}

		for _, d := range raw {
			bucket := ladderIndex(d.sensitivity, d.position.X)
			if bucket == len(d.sensitivity) {
				continue
			}
			assert.True(d.sensitivity[bucket] < d.position.X)
		}
	})

	t.Run("No gateways", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		devices, raw := newTestDevices(-100, -110)
		res, err := a.LinkBudget(devices, nil, testChannel{})
		assert.NoError(err)
		assert.Equal(make([]int, 7), res.Histogram)
		assert.Len(res.DataRates, 0)
		assert.Equal(0, raw[0].writes)
	})

	t.Run("No devices", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		res, err := a.LinkBudget(nil, gateways, testChannel{})
		assert.NoError(err)
		assert.Equal(0, res.Total())
	})

	t.Run("No channel", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		devices, _ := newTestDevices(-100)
		_, err := a.LinkBudget(devices, gateways, nil)
		assert.Equal(ErrNoChannel, errors.Cause(err))
	})

	t.Run("Invalid sensitivity curve", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		devices, raw := newTestDevices(-100, -100)
		raw[1].sensitivity = Sensitivity{-137, -135, -133, -130, -127, -124}

		_, err := a.LinkBudget(devices, gateways, testChannel{})
		assert.Equal(ErrInvalidSensitivity, errors.Cause(err))
		assert.True(IsConfigurationError(err))
		assert.Equal(0, raw[0].writes)
	})
}

func TestDistribution(t *testing.T) {
	t.Run("Convergence", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		devices, _ := newTestDevices(make([]float64, 10000)...)
		res, err := a.Distribution(devices, []float64{0.5, 0.5, 0, 0, 0, 0})
		assert.NoError(err)

		assert.Equal([]int{5, 4, 3, 2, 1, 0}, res.BucketDataRates)
		assert.Equal(10000, res.Total())
		assert.InDelta(5000, res.Histogram[0], 150)
		assert.InDelta(5000, res.Histogram[1], 150)
		assert.Equal(0, res.OutOfRange())

		counts := res.DataRateCounts()
		assert.Equal(res.Histogram[0], counts[5])
		assert.Equal(res.Histogram[1], counts[4])
	})

	t.Run("Seeded", func(t *testing.T) {
		assert := require.New(t)

		distribution := []float64{0.1, 0.2, 0.3, 0.2, 0.1, 0.1}

		devicesA, _ := newTestDevices(make([]float64, 100)...)
		resA, err := newTestAssigner(t, band.EU).Distribution(devicesA, distribution)
		assert.NoError(err)

		devicesB, _ := newTestDevices(make([]float64, 100)...)
		resB, err := newTestAssigner(t, band.EU).Distribution(devicesB, distribution)
		assert.NoError(err)

		assert.Equal(resA.DataRates, resB.DataRates)
	})

	t.Run("Single bucket", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		devices, raw := newTestDevices(make([]float64, 50)...)
		res, err := a.Distribution(devices, []float64{0, 0, 0, 0, 0, 1})
		assert.NoError(err)
		assert.Equal([]int{0, 0, 0, 0, 0, 50}, res.Histogram)
		for _, d := range raw {
			assert.Equal(0, d.dataRate)
			assert.Equal(1, d.writes)
		}
	})

	t.Run("AU", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.AU)

		buckets := a.DistributionBuckets()
		assert.Len(buckets, 14)
		assert.Equal([]int{5, 4, 3, 2}, buckets[:4])

		distribution := make([]float64, 14)
		distribution[0] = 0.25
		distribution[1] = 0.25
		distribution[2] = 0.25
		distribution[3] = 0.25

		devices, raw := newTestDevices(make([]float64, 1000)...)
		res, err := a.Distribution(devices, distribution)
		assert.NoError(err)
		assert.Len(res.Histogram, 14)
		assert.Equal(1000, res.Total())
		for _, d := range raw {
			assert.Contains([]int{5, 4, 3, 2}, d.dataRate)
		}
	})

	t.Run("Default distribution", func(t *testing.T) {
		tests := []struct {
			region  band.Region
			buckets int
		}{
			{band.EU, 6},
			{band.AU, 14},
		}

		for _, tst := range tests {
			t.Run(string(tst.region), func(t *testing.T) {
				assert := require.New(t)
				a := newTestAssigner(t, tst.region)

				distribution := a.DefaultDistribution()
				assert.Len(distribution, tst.buckets)
				assert.Equal(1.0, distribution[0])

				devices, raw := newTestDevices(make([]float64, 10)...)
				res, err := a.Distribution(devices, distribution)
				assert.NoError(err)
				assert.Equal(10, res.Histogram[0])
				for _, d := range raw {
					assert.Equal(5, d.dataRate)
				}
			})
		}
	})

	t.Run("AU mass beyond populated buckets", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.AU)

		distribution := make([]float64, 14)
		distribution[10] = 1

		devices, raw := newTestDevices(make([]float64, 10)...)
		res, err := a.Distribution(devices, distribution)
		assert.NoError(err)
		assert.Equal(10, res.Histogram[3])
		for _, d := range raw {
			assert.Equal(2, d.dataRate)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		tests := []struct {
			name         string
			distribution []float64
		}{
			{"too short", []float64{0.5, 0.5}},
			{"too long", []float64{0.5, 0.5, 0, 0, 0, 0, 0}},
			{"negative", []float64{1.5, -0.5, 0, 0, 0, 0}},
			{"all zero", []float64{0, 0, 0, 0, 0, 0}},
		}

		for _, tst := range tests {
			t.Run(tst.name, func(t *testing.T) {
				assert := require.New(t)
				a := newTestAssigner(t, band.EU)

				devices, raw := newTestDevices(-100)
				_, err := a.Distribution(devices, tst.distribution)
				assert.Equal(ErrInvalidDistribution, errors.Cause(err))
				assert.True(IsConfigurationError(err))
				assert.Equal(0, raw[0].writes)
			})
		}
	})
}

func TestManual(t *testing.T) {
	t.Run("Assign", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		devices, raw := newTestDevices(make([]float64, 10)...)
		dr, err := a.Manual(devices, 5, 3)
		assert.NoError(err)
		assert.Equal(3, dr)
		assert.Equal(3, raw[5].DataRate())
		assert.Equal(1, raw[5].writes)

		for i, d := range raw {
			if i != 5 {
				assert.Equal(0, d.writes)
			}
		}
	})

	t.Run("Not found", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		devices, _ := newTestDevices(make([]float64, 10)...)
		dr, err := a.Manual(devices, 42, 3)
		assert.Equal(ErrDeviceNotFound, errors.Cause(err))
		assert.False(IsConfigurationError(err))
		assert.Equal(NoDataRate, dr)
	})

	t.Run("Reserved data-rate", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.AU)

		devices, raw := newTestDevices(make([]float64, 10)...)
		_, err := a.Manual(devices, 1, 7)
		assert.Equal(band.ErrReservedDataRate, errors.Cause(err))
		assert.True(IsConfigurationError(err))
		assert.Equal(0, raw[1].writes)
	})

	t.Run("Invalid data-rate", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.EU)

		devices, _ := newTestDevices(make([]float64, 10)...)
		_, err := a.Manual(devices, 1, 7)
		assert.Equal(band.ErrInvalidDataRate, errors.Cause(err))
	})

	t.Run("Data-rate outside buckets", func(t *testing.T) {
		tests := []struct {
			name   string
			region band.Region
			mode   Mode
			dr     int
		}{
			{"EU SF7 250 kHz", band.EU, Manual, 6},
			{"EU SF7 250 kHz on link-budget", band.EU, LinkBudget, 6},
			{"AU 500 kHz", band.AU, Manual, 8},
			{"AU 500 kHz on link-budget", band.AU, LinkBudget, 12},
			{"AU SF12 on distribution", band.AU, Distribution, 0},
			{"AU SF11 on distribution", band.AU, Distribution, 1},
		}

		for _, tst := range tests {
			t.Run(tst.name, func(t *testing.T) {
				assert := require.New(t)
				a := newTestAssigner(t, tst.region)

				devices, raw := newTestDevices(make([]float64, 3)...)
				dr, err := a.Override(tst.mode, devices, 1, tst.dr)
				assert.Equal(ErrInvalidLadderDataRate, errors.Cause(err))
				assert.True(IsConfigurationError(err))
				assert.Equal(NoDataRate, dr)
				assert.Equal(0, raw[1].writes)
				assert.Equal(NoDataRate, raw[1].DataRate())

				_, err = a.Summarize(tst.mode, devices, nil)
				assert.NoError(err)
			})
		}
	})

	t.Run("Override on distribution", func(t *testing.T) {
		assert := require.New(t)
		a := newTestAssigner(t, band.AU)

		devices, raw := newTestDevices(make([]float64, 3)...)
		dr, err := a.Override(Distribution, devices, 2, 2)
		assert.NoError(err)
		assert.Equal(2, dr)
		assert.Equal(2, raw[2].DataRate())

		res, err := a.Summarize(Distribution, devices, nil)
		assert.NoError(err)
		assert.Equal(1, res.Histogram[3])
	})
}

func TestReplay(t *testing.T) {
	assert := require.New(t)
	a := newTestAssigner(t, band.EU)

	devices, _ := newTestDevices(-100, -125, -128, -140)
	first, err := a.LinkBudget(devices, []Gateway{&testGateway{}}, testChannel{})
	assert.NoError(err)

	t.Run("Same devices", func(t *testing.T) {
		assert := require.New(t)

		replayDevices, raw := newTestDevices(0, 0, 0, 0)
		res, err := a.Replay(replayDevices, first.DataRates, first.OutOfRangeDevices)
		assert.NoError(err)

		assert.Equal(first.DataRates, res.DataRates)
		assert.Equal(first.Histogram, res.Histogram)
		assert.Equal(first.OutOfRangeDevices, res.OutOfRangeDevices)
		for i, d := range raw {
			assert.Equal(first.DataRates[DeviceID(i)], d.dataRate)
		}
	})

	t.Run("Differing device sets", func(t *testing.T) {
		assert := require.New(t)

		replayDevices, raw := newTestDevices(0, 0, 0, 0, 0)
		dataRates := map[DeviceID]int{0: 5, 1: 4, 9: 3}

		res, err := a.Replay(replayDevices, dataRates, nil)
		assert.NoError(err)
		assert.Equal(2, res.Total())
		assert.Equal([]DeviceID{2, 3, 4}, res.Unassigned)
		assert.Equal(NoDataRate, raw[2].dataRate)
	})

	t.Run("Data-rate outside ladder", func(t *testing.T) {
		assert := require.New(t)

		replayDevices, _ := newTestDevices(0)
		_, err := a.Replay(replayDevices, map[DeviceID]int{0: 6}, nil)
		assert.Equal(ErrInvalidLadderDataRate, errors.Cause(err))
	})
}

func TestClampMinDataRate(t *testing.T) {
	assert := require.New(t)
	a := newTestAssigner(t, band.AU)

	devices, raw := newTestDevices(-100, -125, -134, -136, -140)
	res, err := a.LinkBudget(devices, []Gateway{&testGateway{}}, testChannel{})
	assert.NoError(err)
	assert.Equal([]int{1, 1, 0, 0, 1, 1, 1}, res.Histogram)

	clamped, err := a.ClampMinDataRate(devices, res, 2)
	assert.NoError(err)

	assert.Equal([]int{1, 1, 0, 2, 0, 0, 1}, clamped.Histogram)
	assert.Equal(len(devices), clamped.Total())
	assert.Equal([]int{5, 4, 2, 2, 2}, []int{raw[0].dataRate, raw[1].dataRate, raw[2].dataRate, raw[3].dataRate, raw[4].dataRate})
	assert.Equal([]DeviceID{4}, clamped.OutOfRangeDevices)
	assert.Equal(2, clamped.DataRates[4])

	t.Run("Invalid minimum", func(t *testing.T) {
		assert := require.New(t)

		_, err := a.ClampMinDataRate(devices, res, 6)
		assert.Equal(ErrInvalidLadderDataRate, errors.Cause(err))
	})
}
