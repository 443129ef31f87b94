package scenario

import (
	"testing"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/brocaar/chirpstack-radio-planner/internal/assignment"
	"github.com/brocaar/chirpstack-radio-planner/internal/band"
	"github.com/brocaar/chirpstack-radio-planner/internal/config"
)

func testConfig() config.Config {
	var c config.Config
	c.Band.Name = "EU868"
	c.Scenario.DeviceCount = 100
	c.Scenario.Radius = 1000
	c.Scenario.Height = 1.2
	c.Scenario.Seed = 1
	return c
}

func TestBuild(t *testing.T) {
	t.Run("Random devices", func(t *testing.T) {
		assert := require.New(t)

		s, err := Build(testConfig())
		assert.NoError(err)

		assert.Equal(band.EU, s.Region)
		assert.Len(s.Devices, 100)
		assert.Len(s.Gateways, 1)
		assert.Equal(r3.Vec{Z: DefaultGatewayHeight}, s.Gateways[0].Position())
		assert.Equal(DefaultGatewaySensitivity, s.Gateways[0].Sensitivity())

		for i, d := range s.Devices {
			assert.Equal(assignment.DeviceID(i), d.ID())
			assert.Equal(DefaultDeviceSensitivity, d.Sensitivity())
			assert.Equal(assignment.NoDataRate, d.DataRate())
			assert.Equal(1.2, d.Position().Z)
			assert.True(r3.Norm(r3.Vec{X: d.Position().X, Y: d.Position().Y}) <= 1000)
		}

		assert.Equal(lorawan.EUI64{0, 0, 0, 0, 0, 0, 0, 5}, s.Devices[5].DevEUI)
		assert.Len(s.AssignmentDevices(), 100)
		assert.Len(s.AssignmentGateways(), 1)
		assert.Len(s.DataRates(), 0)
	})

	t.Run("Seeded", func(t *testing.T) {
		assert := require.New(t)

		a, err := Build(testConfig())
		assert.NoError(err)
		b, err := Build(testConfig())
		assert.NoError(err)

		for i := range a.Devices {
			assert.Equal(a.Devices[i].Position(), b.Devices[i].Position())
		}
	})

	t.Run("Explicit devices and gateways", func(t *testing.T) {
		assert := require.New(t)

		c := testConfig()
		c.Band.Name = "AU"
		c.Scenario.DeviceCount = 2
		c.Scenario.DeviceSensitivity = []float64{-120, -123, -126, -129, -132, -135}
		c.Scenario.Gateways = []config.ScenarioGateway{{ID: 7, X: 100, Y: 200, Z: 30}}
		c.Scenario.Devices = []config.ScenarioDevice{{ID: 10, DevEUI: "0102030405060708", X: 1, Y: 2, Z: 3}}

		s, err := Build(c)
		assert.NoError(err)

		assert.Equal(band.AU, s.Region)
		assert.Len(s.Gateways, 1)
		assert.EqualValues(7, s.Gateways[0].ID)
		assert.Equal(r3.Vec{X: 100, Y: 200, Z: 30}, s.Gateways[0].Position())
		assert.Equal(8, s.Gateways[0].ReceptionPaths())

		assert.Equal([]assignment.DeviceID{10, 11, 12}, s.DeviceIDs())

		d, err := s.Device(10)
		assert.NoError(err)
		assert.Equal(lorawan.EUI64{1, 2, 3, 4, 5, 6, 7, 8}, d.DevEUI)
		assert.Equal(r3.Vec{X: 1, Y: 2, Z: 3}, d.Position())
		assert.Equal(assignment.Sensitivity{-120, -123, -126, -129, -132, -135}, d.Sensitivity())

		_, err = s.Device(99)
		assert.Equal(ErrDeviceNotFound, errors.Cause(err))
	})

	t.Run("Gateway sensitivity", func(t *testing.T) {
		assert := require.New(t)

		c := testConfig()
		c.Scenario.GatewaySensitivity = []float64{-128, -131, -134, -137, -140, -143}
		c.Scenario.Gateways = []config.ScenarioGateway{{ID: 1}, {ID: 2, X: 500}}

		s, err := Build(c)
		assert.NoError(err)

		for _, gw := range s.Gateways {
			assert.Equal(assignment.Sensitivity{-128, -131, -134, -137, -140, -143}, gw.Sensitivity())
		}
		for _, d := range s.Devices {
			assert.Equal(DefaultDeviceSensitivity, d.Sensitivity())
		}
	})

	t.Run("Handles are configured", func(t *testing.T) {
		assert := require.New(t)

		s, err := Build(testConfig())
		assert.NoError(err)

		for _, d := range s.Devices {
			p, ok := d.ChannelPlan()
			assert.True(ok)
			assert.Equal(band.EndDevice, p.Role)
			assert.Len(p.Channels, 3)
		}

		p, ok := s.Gateways[0].ChannelPlan()
		assert.True(ok)
		assert.Equal(band.Gateway, p.Role)
		assert.Equal(8, s.Gateways[0].ReceptionPaths())
		assert.Equal(band.EU, s.Configurator().Region())
	})

	t.Run("Errors", func(t *testing.T) {
		tests := []struct {
			name   string
			update func(*config.Config)
			err    error
		}{
			{
				name:   "unsupported region",
				update: func(c *config.Config) { c.Band.Name = "US915" },
				err:    band.ErrUnsupportedRegion,
			},
			{
				name:   "short sensitivity curve",
				update: func(c *config.Config) { c.Scenario.GatewaySensitivity = []float64{-130, -132} },
				err:    ErrInvalidCurveSize,
			},
			{
				name:   "negative device count",
				update: func(c *config.Config) { c.Scenario.DeviceCount = -1 },
				err:    ErrInvalidScenario,
			},
			{
				name:   "zero radius",
				update: func(c *config.Config) { c.Scenario.Radius = 0 },
				err:    ErrInvalidScenario,
			},
			{
				name: "duplicate device id",
				update: func(c *config.Config) {
					c.Scenario.Devices = make([]config.ScenarioDevice, 2)
				},
				err: ErrDuplicateID,
			},
			{
				name: "invalid dev_eui",
				update: func(c *config.Config) {
					c.Scenario.Devices = []config.ScenarioDevice{{DevEUI: "zz"}}
				},
				err: ErrInvalidDevEUI,
			},
		}

		for _, tst := range tests {
			t.Run(tst.name, func(t *testing.T) {
				assert := require.New(t)

				c := testConfig()
				tst.update(&c)

				_, err := Build(c)
				assert.Equal(tst.err, errors.Cause(err))
			})
		}
	})
}

func TestSetChannelPlan(t *testing.T) {
	assert := require.New(t)

	gwPlan, err := band.BuildChannelPlan(band.EU, band.Gateway)
	assert.NoError(err)
	edPlan, err := band.BuildChannelPlan(band.EU, band.EndDevice)
	assert.NoError(err)

	d := NewDevice(1, lorawan.EUI64{}, r3.Vec{}, DefaultDeviceSensitivity)
	assert.Equal(ErrRoleMismatch, errors.Cause(d.SetChannelPlan(gwPlan)))
	_, ok := d.ChannelPlan()
	assert.False(ok)
	assert.NoError(d.SetChannelPlan(edPlan))

	gw := NewGateway(1, r3.Vec{}, DefaultGatewaySensitivity)
	assert.Equal(ErrRoleMismatch, errors.Cause(gw.SetChannelPlan(edPlan)))
	assert.Equal(0, gw.ReceptionPaths())
	assert.NoError(gw.SetChannelPlan(gwPlan))
	assert.Equal(8, gw.ReceptionPaths())
}
