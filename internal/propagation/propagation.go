// Package propagation implements the channel models used to compute the
// power received by a gateway for an end-device transmission.
package propagation

import (
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/brocaar/chirpstack-radio-planner/internal/config"
)

// Log-distance defaults (ns-3 LogDistancePropagationLossModel, as used by the
// LoRaWAN module examples).
const (
	DefaultPathLossExponent  = 3.76
	DefaultReferenceDistance = 1.0
	DefaultReferenceLoss     = 7.7
)

// ErrInvalidModel is returned when the model parameters are invalid.
var ErrInvalidModel = errors.New("invalid propagation model")

// LogDistance implements the log-distance path-loss model:
//
//	rx = tx - (L0 + 10 * n * log10(d / d0))
//
// Distances below the reference distance are clamped to it, so the loss
// never drops below L0.
type LogDistance struct {
	Exponent          float64 // n
	ReferenceDistance float64 // d0 (m)
	ReferenceLoss     float64 // L0 (dB)
}

// NewLogDistance returns a LogDistance model with the default parameters.
func NewLogDistance() LogDistance {
	return LogDistance{
		Exponent:          DefaultPathLossExponent,
		ReferenceDistance: DefaultReferenceDistance,
		ReferenceLoss:     DefaultReferenceLoss,
	}
}

// NewLogDistanceFromConfig returns the LogDistance model configured in c.
// Zero values fall back to the defaults.
func NewLogDistanceFromConfig(c config.Config) (LogDistance, error) {
	m := NewLogDistance()
	if v := c.Propagation.PathLossExponent; v != 0 {
		m.Exponent = v
	}
	if v := c.Propagation.ReferenceDistance; v != 0 {
		m.ReferenceDistance = v
	}
	if v := c.Propagation.ReferenceLoss; v != 0 {
		m.ReferenceLoss = v
	}

	if err := m.Validate(); err != nil {
		return LogDistance{}, err
	}

	log.WithFields(log.Fields{
		"exponent":           m.Exponent,
		"reference_distance": m.ReferenceDistance,
		"reference_loss":     m.ReferenceLoss,
	}).Info("propagation: log-distance model configured")

	return m, nil
}

// Validate returns an error when the model can not be evaluated.
func (m LogDistance) Validate() error {
	if m.Exponent <= 0 || math.IsNaN(m.Exponent) {
		return errors.Wrapf(ErrInvalidModel, "path-loss exponent %f", m.Exponent)
	}
	if m.ReferenceDistance <= 0 || math.IsNaN(m.ReferenceDistance) {
		return errors.Wrapf(ErrInvalidModel, "reference distance %f", m.ReferenceDistance)
	}
	return nil
}

// Loss returns the path-loss (dB) over the given distance (m).
func (m LogDistance) Loss(distance float64) float64 {
	if distance < m.ReferenceDistance {
		distance = m.ReferenceDistance
	}
	return m.ReferenceLoss + 10*m.Exponent*math.Log10(distance/m.ReferenceDistance)
}

// ReceivedPower returns the power (dBm) received at rx for a transmission
// of txPower (dBm) from tx.
func (m LogDistance) ReceivedPower(txPower float64, tx, rx r3.Vec) float64 {
	return txPower - m.Loss(Distance(tx, rx))
}

// Distance returns the euclidean distance (m) between a and b.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}
