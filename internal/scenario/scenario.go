// Package scenario builds the end-devices and gateways the data-rates are
// planned for.
package scenario

import (
	"encoding/binary"
	"math"
	"math/rand"
	"sort"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/brocaar/chirpstack-radio-planner/internal/assignment"
	"github.com/brocaar/chirpstack-radio-planner/internal/band"
	"github.com/brocaar/chirpstack-radio-planner/internal/config"
)

// Default receiver sensitivity curves (dBm), fastest data-rate first
// (SX1272 end-device and SX1301 gateway).
var (
	DefaultDeviceSensitivity  = assignment.Sensitivity{-124, -127, -130, -133, -135, -137}
	DefaultGatewaySensitivity = assignment.Sensitivity{-130, -132.5, -135, -137.5, -140, -142.5}
)

// DefaultGatewayHeight is the height (m) of the gateway added when no
// gateways are configured.
const DefaultGatewayHeight = 15

// errors
var (
	ErrInvalidScenario  = errors.New("invalid scenario")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrInvalidDevEUI    = errors.New("invalid dev_eui")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrInvalidCurveSize = errors.New("sensitivity curve must have six entries")
)

// Scenario holds the configured devices and gateways of a single region.
type Scenario struct {
	Region   band.Region
	Devices  []*Device
	Gateways []*Gateway

	configurator *band.Configurator
}

// Build creates the scenario described by the given configuration. The
// explicit devices and gateways are created first, after which
// c.Scenario.DeviceCount devices are placed uniformly within a disc of
// c.Scenario.Radius meters around the origin. Every handle is configured
// with the channel-plan of its role.
func Build(c config.Config) (*Scenario, error) {
	region, err := band.ParseRegion(c.Band.Name)
	if err != nil {
		return nil, err
	}

	configurator, err := band.NewConfigurator(region)
	if err != nil {
		return nil, errors.Wrap(err, "new configurator error")
	}

	deviceSensitivity, err := sensitivityOrDefault(c.Scenario.DeviceSensitivity, DefaultDeviceSensitivity)
	if err != nil {
		return nil, errors.Wrap(err, "device sensitivity")
	}
	gatewaySensitivity, err := sensitivityOrDefault(c.Scenario.GatewaySensitivity, DefaultGatewaySensitivity)
	if err != nil {
		return nil, errors.Wrap(err, "gateway sensitivity")
	}

	s := Scenario{
		Region:       region,
		configurator: configurator,
	}

	if err := s.addGateways(c, gatewaySensitivity); err != nil {
		return nil, err
	}
	if err := s.addDevices(c, deviceSensitivity); err != nil {
		return nil, err
	}

	for _, gw := range s.Gateways {
		if _, err := configurator.Configure(band.Gateway, gw); err != nil {
			return nil, errors.Wrapf(err, "configure gateway %d error", gw.ID)
		}
	}
	for _, d := range s.Devices {
		if _, err := configurator.Configure(band.EndDevice, d); err != nil {
			return nil, errors.Wrapf(err, "configure device %d error", d.ID())
		}
	}

	log.WithFields(log.Fields{
		"region":   region,
		"devices":  len(s.Devices),
		"gateways": len(s.Gateways),
		"radius":   c.Scenario.Radius,
	}).Info("scenario: scenario created")

	return &s, nil
}

func (s *Scenario) addGateways(c config.Config, sensitivity assignment.Sensitivity) error {
	if len(c.Scenario.Gateways) == 0 {
		s.Gateways = append(s.Gateways, NewGateway(0, r3.Vec{Z: DefaultGatewayHeight}, sensitivity))
		return nil
	}

	seen := make(map[uint32]bool)
	for _, gw := range c.Scenario.Gateways {
		if seen[gw.ID] {
			return errors.Wrapf(ErrDuplicateID, "gateway %d", gw.ID)
		}
		seen[gw.ID] = true

		s.Gateways = append(s.Gateways, NewGateway(gw.ID, r3.Vec{X: gw.X, Y: gw.Y, Z: gw.Z}, sensitivity))
	}

	return nil
}

func (s *Scenario) addDevices(c config.Config, sensitivity assignment.Sensitivity) error {
	if c.Scenario.DeviceCount < 0 {
		return errors.Wrapf(ErrInvalidScenario, "device_count %d", c.Scenario.DeviceCount)
	}
	if c.Scenario.DeviceCount > 0 && c.Scenario.Radius <= 0 {
		return errors.Wrapf(ErrInvalidScenario, "radius %f", c.Scenario.Radius)
	}

	seen := make(map[assignment.DeviceID]bool)
	var nextID assignment.DeviceID

	for _, dc := range c.Scenario.Devices {
		id := assignment.DeviceID(dc.ID)
		if seen[id] {
			return errors.Wrapf(ErrDuplicateID, "device %d", id)
		}
		seen[id] = true

		devEUI := devEUIFromID(id)
		if dc.DevEUI != "" {
			if err := devEUI.UnmarshalText([]byte(dc.DevEUI)); err != nil {
				return errors.Wrapf(ErrInvalidDevEUI, "device %d: %s", id, err)
			}
		}

		s.Devices = append(s.Devices, NewDevice(id, devEUI, r3.Vec{X: dc.X, Y: dc.Y, Z: dc.Z}, sensitivity))
		if id >= nextID {
			nextID = id + 1
		}
	}

	rnd := rand.New(rand.NewSource(c.Scenario.Seed))
	for i := 0; i < c.Scenario.DeviceCount; i++ {
		id := nextID
		nextID++

		s.Devices = append(s.Devices, NewDevice(id, devEUIFromID(id), randomDiscPosition(rnd, c.Scenario.Radius, c.Scenario.Height), sensitivity))
	}

	return nil
}

// Configurator returns the configurator the scenario handles were
// configured with.
func (s *Scenario) Configurator() *band.Configurator {
	return s.configurator
}

// AssignmentDevices returns the devices as assignment.Device slice.
func (s *Scenario) AssignmentDevices() []assignment.Device {
	out := make([]assignment.Device, 0, len(s.Devices))
	for _, d := range s.Devices {
		out = append(out, d)
	}
	return out
}

// AssignmentGateways returns the gateways as assignment.Gateway slice.
func (s *Scenario) AssignmentGateways() []assignment.Gateway {
	out := make([]assignment.Gateway, 0, len(s.Gateways))
	for _, gw := range s.Gateways {
		out = append(out, gw)
	}
	return out
}

// Device returns the device for the given id.
func (s *Scenario) Device(id assignment.DeviceID) (*Device, error) {
	for _, d := range s.Devices {
		if d.ID() == id {
			return d, nil
		}
	}
	return nil, errors.Wrapf(ErrDeviceNotFound, "device %d", id)
}

// DataRates returns the current data-rate of every device which has been
// assigned one.
func (s *Scenario) DataRates() map[assignment.DeviceID]int {
	out := make(map[assignment.DeviceID]int)
	for _, d := range s.Devices {
		if d.DataRate() != assignment.NoDataRate {
			out[d.ID()] = d.DataRate()
		}
	}
	return out
}

// DeviceIDs returns the sorted ids of all devices.
func (s *Scenario) DeviceIDs() []assignment.DeviceID {
	out := make([]assignment.DeviceID, 0, len(s.Devices))
	for _, d := range s.Devices {
		out = append(out, d.ID())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sensitivityOrDefault(curve []float64, def assignment.Sensitivity) (assignment.Sensitivity, error) {
	if len(curve) == 0 {
		return def, nil
	}

	var out assignment.Sensitivity
	if len(curve) != len(out) {
		return out, errors.Wrapf(ErrInvalidCurveSize, "got %d", len(curve))
	}
	copy(out[:], curve)
	return out, nil
}

// randomDiscPosition returns a position uniformly distributed within a disc
// of the given radius, centered at the origin.
func randomDiscPosition(rnd *rand.Rand, radius, height float64) r3.Vec {
	r := radius * math.Sqrt(rnd.Float64())
	theta := 2 * math.Pi * rnd.Float64()

	return r3.Vec{
		X: r * math.Cos(theta),
		Y: r * math.Sin(theta),
		Z: height,
	}
}

func devEUIFromID(id assignment.DeviceID) lorawan.EUI64 {
	var eui lorawan.EUI64
	binary.BigEndian.PutUint32(eui[4:], uint32(id))
	return eui
}
