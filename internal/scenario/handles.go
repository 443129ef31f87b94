package scenario

import (
	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/brocaar/chirpstack-radio-planner/internal/assignment"
	"github.com/brocaar/chirpstack-radio-planner/internal/band"
)

// ErrRoleMismatch is returned when a channel-plan is applied to a handle of
// another role.
var ErrRoleMismatch = errors.New("channel-plan role mismatch")

// Device is an end-device of the scenario.
type Device struct {
	DevEUI lorawan.EUI64

	id          assignment.DeviceID
	position    r3.Vec
	sensitivity assignment.Sensitivity
	dataRate    int
	plan        *band.ChannelPlan
}

// NewDevice returns a new, unconfigured device.
func NewDevice(id assignment.DeviceID, devEUI lorawan.EUI64, position r3.Vec, sensitivity assignment.Sensitivity) *Device {
	return &Device{
		DevEUI:      devEUI,
		id:          id,
		position:    position,
		sensitivity: sensitivity,
		dataRate:    assignment.NoDataRate,
	}
}

// ID returns the device id.
func (d *Device) ID() assignment.DeviceID {
	return d.id
}

// Position returns the device position.
func (d *Device) Position() r3.Vec {
	return d.position
}

// Sensitivity returns the receiver sensitivity curve of the device.
func (d *Device) Sensitivity() assignment.Sensitivity {
	return d.sensitivity
}

// DataRate returns the assigned data-rate, assignment.NoDataRate when not
// yet assigned.
func (d *Device) DataRate() int {
	return d.dataRate
}

// SetDataRate sets the data-rate.
func (d *Device) SetDataRate(dr int) {
	d.dataRate = dr
}

// SetChannelPlan implements band.Configurable.
func (d *Device) SetChannelPlan(p band.ChannelPlan) error {
	if p.Role != band.EndDevice {
		return errors.Wrapf(ErrRoleMismatch, "device %d: %s", d.id, p.Role)
	}
	d.plan = &p
	return nil
}

// ChannelPlan returns the applied channel-plan, false when the device has
// not been configured.
func (d *Device) ChannelPlan() (band.ChannelPlan, bool) {
	if d.plan == nil {
		return band.ChannelPlan{}, false
	}
	return *d.plan, true
}

// Gateway is a gateway of the scenario. Its sensitivity curve describes the
// gateway receiver; the link-budget assignment compares against the device
// curve, so the gateway curve is carried for reporting only.
type Gateway struct {
	ID uint32

	position    r3.Vec
	sensitivity assignment.Sensitivity
	plan        *band.ChannelPlan
}

// NewGateway returns a new, unconfigured gateway.
func NewGateway(id uint32, position r3.Vec, sensitivity assignment.Sensitivity) *Gateway {
	return &Gateway{
		ID:          id,
		position:    position,
		sensitivity: sensitivity,
	}
}

// Position returns the gateway position.
func (g *Gateway) Position() r3.Vec {
	return g.position
}

// Sensitivity returns the receiver sensitivity curve of the gateway.
func (g *Gateway) Sensitivity() assignment.Sensitivity {
	return g.sensitivity
}

// SetChannelPlan implements band.Configurable.
func (g *Gateway) SetChannelPlan(p band.ChannelPlan) error {
	if p.Role != band.Gateway {
		return errors.Wrapf(ErrRoleMismatch, "gateway %d: %s", g.ID, p.Role)
	}
	g.plan = &p
	return nil
}

// ChannelPlan returns the applied channel-plan, false when the gateway has
// not been configured.
func (g *Gateway) ChannelPlan() (band.ChannelPlan, bool) {
	if g.plan == nil {
		return band.ChannelPlan{}, false
	}
	return *g.plan, true
}

// ReceptionPaths returns the number of reception paths of the gateway, 0
// when not configured.
func (g *Gateway) ReceptionPaths() int {
	if g.plan == nil {
		return 0
	}
	return g.plan.ReceptionPaths
}
