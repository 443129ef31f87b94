// Package band provides the regional channel plans (channels, duty-cycle
// sub-bands, data-rate, tx-power and reply data-rate tables) and applies them
// to end-device and gateway handles.
package band

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	loraband "github.com/brocaar/lorawan/band"
)

// Region defines a supported region.
type Region string

// Supported regions.
const (
	EU            Region = "EU"
	AU            Region = "AU"
	Aloha         Region = "Aloha"
	SingleChannel Region = "SingleChannel"
)

// Role defines the role of the handle a channel plan is built for.
type Role int

// Available roles.
const (
	EndDevice Role = iota
	Gateway
)

func (r Role) String() string {
	switch r {
	case EndDevice:
		return "end_device"
	case Gateway:
		return "gateway"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// errors
var (
	ErrUnsupportedRegion = errors.New("unsupported region")
	ErrUnsupportedRole   = errors.New("unsupported role")
	ErrInvalidDataRate   = errors.New("invalid data-rate")
	ErrReservedDataRate  = errors.New("reserved data-rate")
	ErrSubBandOverlap    = errors.New("sub-bands overlap")
)

var configurationErrors = []error{
	ErrUnsupportedRegion,
	ErrUnsupportedRole,
	ErrInvalidDataRate,
	ErrReservedDataRate,
	ErrSubBandOverlap,
}

// IsConfigurationError returns true when the cause of the given error is
// a configuration error. Configuration errors are not recoverable by the
// caller and must not be ignored.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	cause := errors.Cause(err)
	for _, e := range configurationErrors {
		if cause == e {
			return true
		}
	}
	return false
}

// ParseRegion returns the Region for the given name. Next to the region
// names themselves, the LoRaWAN band names (e.g. EU868, AU915) are accepted.
func ParseRegion(name string) (Region, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "EU", string(loraband.EU868), "EU_863_870", "868":
		return EU, nil
	case "AU", string(loraband.AU915), "AU_915_928", "915":
		return AU, nil
	case "ALOHA":
		return Aloha, nil
	case "SINGLECHANNEL", "SINGLE_CHANNEL":
		return SingleChannel, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedRegion, "region: %s", name)
	}
}

// ParseRole returns the Role for the given name.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "end_device", "end-device", "device", "":
		return EndDevice, nil
	case "gateway", "gw":
		return Gateway, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedRole, "role: %s", name)
	}
}

// LoRaWANBandName returns the LoRaWAN band the given region is derived from.
func LoRaWANBandName(r Region) (loraband.Name, error) {
	switch r {
	case EU, Aloha, SingleChannel:
		return loraband.EU868, nil
	case AU:
		return loraband.AU915, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedRegion, "region: %s", r)
	}
}
