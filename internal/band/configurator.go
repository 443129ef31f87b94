package band

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Configurable is implemented by the end-device and gateway handles a
// channel plan can be applied to.
type Configurable interface {
	SetChannelPlan(ChannelPlan) error
}

// BuildChannelPlan returns a new channel plan for the given region and role.
func BuildChannelPlan(region Region, role Role) (ChannelPlan, error) {
	if role != EndDevice && role != Gateway {
		return ChannelPlan{}, errors.Wrapf(ErrUnsupportedRole, "role: %s", role)
	}

	var p ChannelPlan
	var err error

	switch region {
	case EU:
		p, err = newEUPlan(role)
	case SingleChannel:
		p, err = newSingleChannelPlan(role)
	case Aloha:
		p, err = newAlohaPlan(role)
	case AU:
		p, err = newAUPlan(role)
	default:
		return ChannelPlan{}, errors.Wrapf(ErrUnsupportedRegion, "region: %s", region)
	}
	if err != nil {
		return ChannelPlan{}, errors.Wrapf(err, "build %s channel-plan error", region)
	}

	channelPlanBuilt(region, role).Inc()

	return p, nil
}

// Configurator holds the channel plans of a single region, one per role,
// and applies them to end-device and gateway handles.
type Configurator struct {
	region Region
	plans  map[Role]ChannelPlan
}

// NewConfigurator creates a Configurator for the given region.
func NewConfigurator(region Region) (*Configurator, error) {
	c := Configurator{
		region: region,
		plans:  make(map[Role]ChannelPlan),
	}

	for _, role := range []Role{EndDevice, Gateway} {
		p, err := BuildChannelPlan(region, role)
		if err != nil {
			return nil, err
		}
		c.plans[role] = p
	}

	return &c, nil
}

// Region returns the configured region.
func (c *Configurator) Region() Region {
	return c.region
}

// ChannelPlan returns a copy of the channel plan for the given role.
func (c *Configurator) ChannelPlan(role Role) (ChannelPlan, error) {
	p, ok := c.plans[role]
	if !ok {
		return ChannelPlan{}, errors.Wrapf(ErrUnsupportedRole, "role: %s", role)
	}
	return p.Clone(), nil
}

// Configure applies the channel plan of the given role to the target.
// On error, the target is left unconfigured.
func (c *Configurator) Configure(role Role, target Configurable) (ChannelPlan, error) {
	p, err := c.ChannelPlan(role)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"region": c.region,
			"role":   role,
		}).Error("band: configure error")
		return ChannelPlan{}, err
	}

	if err := target.SetChannelPlan(p); err != nil {
		return ChannelPlan{}, errors.Wrap(err, "set channel-plan error")
	}

	log.WithFields(log.Fields{
		"region":          c.region,
		"role":            role,
		"channels":        len(p.Channels),
		"sub_bands":       len(p.SubBands),
		"reception_paths": p.ReceptionPaths,
	}).Debug("band: channel-plan applied")

	return p, nil
}

// Configure builds the channel plan for the given region and role and
// applies it to the target.
func Configure(region Region, role Role, target Configurable) (ChannelPlan, error) {
	p, err := BuildChannelPlan(region, role)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"region": region,
			"role":   role,
		}).Error("band: configure error")
		return ChannelPlan{}, err
	}

	if err := target.SetChannelPlan(p); err != nil {
		return ChannelPlan{}, errors.Wrap(err, "set channel-plan error")
	}

	return p, nil
}
