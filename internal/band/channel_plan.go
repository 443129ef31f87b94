package band

import (
	"sort"

	"github.com/pkg/errors"
)

// Channel defines an uplink channel.
type Channel struct {
	Frequency uint32 // frequency in Hz
	MinDR     int
	MaxDR     int
}

// SubBand defines a frequency range with its duty-cycle and power limits.
type SubBand struct {
	FrequencyLow  uint32  // Hz, inclusive
	FrequencyHigh uint32  // Hz, inclusive
	DutyCycle     float64 // (0, 1], 1 means no restriction
	MaxTXPower    float64 // dBm
}

// Contains returns true when the frequency falls within the sub-band.
func (s SubBand) Contains(frequency uint32) bool {
	return frequency >= s.FrequencyLow && frequency <= s.FrequencyHigh
}

func (s SubBand) overlaps(o SubBand) bool {
	return s.FrequencyLow <= o.FrequencyHigh && o.FrequencyLow <= s.FrequencyHigh
}

// DataRate defines a data-rate table entry.
type DataRate struct {
	SpreadFactor   int
	Bandwidth      int // Hz, 0 for a reserved entry
	MaxPayloadSize int // bytes
}

// Reserved returns true for an entry which must never be selected.
func (d DataRate) Reserved() bool {
	return d.Bandwidth == 0
}

// ReplyDataRateMatrix holds the downlink data-rate, indexed by uplink
// data-rate and RX1 data-rate offset.
type ReplyDataRateMatrix [8][6]int

// ChannelPlan holds the complete regional configuration of a single role.
type ChannelPlan struct {
	Region Region
	Role   Role

	Channels []Channel
	SubBands []SubBand

	// DataRates is indexed by data-rate, index 0 being the slowest.
	DataRates []DataRate

	// TXPower is indexed by tx-power index, index 0 being the highest
	// allowed power (dBm).
	TXPower []float64

	ReplyDataRates ReplyDataRateMatrix

	PreambleSymbols int
	RX2DataRate     int
	RX2Frequency    uint32

	// ReceptionPaths and ReceptionFrequencies are only set for the gateway
	// role.
	ReceptionPaths       int
	ReceptionFrequencies []uint32
}

func (p *ChannelPlan) addSubBand(sb SubBand) error {
	for _, s := range p.SubBands {
		if s.overlaps(sb) {
			return errors.Wrapf(ErrSubBandOverlap, "%d-%d Hz overlaps %d-%d Hz", sb.FrequencyLow, sb.FrequencyHigh, s.FrequencyLow, s.FrequencyHigh)
		}
	}
	p.SubBands = append(p.SubBands, sb)
	return nil
}

func (p *ChannelPlan) addChannel(frequency uint32, minDR, maxDR int) {
	p.Channels = append(p.Channels, Channel{
		Frequency: frequency,
		MinDR:     minDR,
		MaxDR:     maxDR,
	})
}

// GetDataRate returns the data-rate table entry for the given index.
// Selecting a reserved entry returns ErrReservedDataRate.
func (p ChannelPlan) GetDataRate(dr int) (DataRate, error) {
	if dr < 0 || dr >= len(p.DataRates) {
		return DataRate{}, errors.Wrapf(ErrInvalidDataRate, "data-rate %d (region %s has %d)", dr, p.Region, len(p.DataRates))
	}
	if p.DataRates[dr].Reserved() {
		return DataRate{}, errors.Wrapf(ErrReservedDataRate, "data-rate %d (region %s)", dr, p.Region)
	}
	return p.DataRates[dr], nil
}

// ValidateDataRate returns an error when the given data-rate can not be
// assigned to a device.
func (p ChannelPlan) ValidateDataRate(dr int) error {
	_, err := p.GetDataRate(dr)
	return err
}

// GetReplyDataRate returns the downlink data-rate for the given uplink
// data-rate and RX1 data-rate offset.
func (p ChannelPlan) GetReplyDataRate(dr, drOffset int) (int, error) {
	if dr < 0 || dr >= len(p.ReplyDataRates) {
		return 0, errors.Wrapf(ErrInvalidDataRate, "uplink data-rate %d", dr)
	}
	if drOffset < 0 || drOffset >= len(p.ReplyDataRates[dr]) {
		return 0, errors.Wrapf(ErrInvalidDataRate, "rx1 data-rate offset %d", drOffset)
	}
	return p.ReplyDataRates[dr][drOffset], nil
}

// GetSubBand returns the sub-band containing the given frequency.
func (p ChannelPlan) GetSubBand(frequency uint32) (SubBand, bool) {
	for _, s := range p.SubBands {
		if s.Contains(frequency) {
			return s, true
		}
	}
	return SubBand{}, false
}

// MaxTXPower returns the highest power ceiling of the plan sub-bands.
func (p ChannelPlan) MaxTXPower() float64 {
	var maxPower float64
	for i, s := range p.SubBands {
		if i == 0 || s.MaxTXPower > maxPower {
			maxPower = s.MaxTXPower
		}
	}
	return maxPower
}

// SensitivityLadder returns the 125 kHz LoRa data-rates of the plan, ordered
// from fastest to slowest. These map one to one on a sensitivity curve.
func (p ChannelPlan) SensitivityLadder() []int {
	var out []int
	for i, dr := range p.DataRates {
		if dr.Bandwidth != 125000 {
			continue
		}
		// the first entry for a spreading-factor wins
		dup := false
		for _, j := range out {
			if p.DataRates[j].SpreadFactor == dr.SpreadFactor {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, i)
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return p.DataRates[out[a]].SpreadFactor < p.DataRates[out[b]].SpreadFactor
	})
	return out
}

// Clone returns a deep copy of the plan.
func (p ChannelPlan) Clone() ChannelPlan {
	out := p
	out.Channels = append([]Channel(nil), p.Channels...)
	out.SubBands = append([]SubBand(nil), p.SubBands...)
	out.DataRates = append([]DataRate(nil), p.DataRates...)
	out.TXPower = append([]float64(nil), p.TXPower...)
	out.ReceptionFrequencies = append([]uint32(nil), p.ReceptionFrequencies...)
	return out
}
