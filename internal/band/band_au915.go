package band

// AU915-928 constants (RP002-1.0.3).
const (
	auRX2Frequency    = 923300000
	auRX2DataRate     = 8
	auPreambleSymbols = 8

	// channels 64 - 71
	auFirstChannel    = 915900000
	auChannelSpacing  = 1600000
	auChannelCount    = 8
	auChannelDataRate = 6

	// auReservedDataRate is the data-rate table slot which is RFU.
	auReservedDataRate = 7
)

func auDataRates() []DataRate {
	return []DataRate{
		{SpreadFactor: 12, Bandwidth: 125000, MaxPayloadSize: 59},  // DR0
		{SpreadFactor: 11, Bandwidth: 125000, MaxPayloadSize: 59},  // DR1
		{SpreadFactor: 10, Bandwidth: 125000, MaxPayloadSize: 59},  // DR2
		{SpreadFactor: 9, Bandwidth: 125000, MaxPayloadSize: 123},  // DR3
		{SpreadFactor: 8, Bandwidth: 125000, MaxPayloadSize: 230},  // DR4
		{SpreadFactor: 7, Bandwidth: 125000, MaxPayloadSize: 230},  // DR5
		{SpreadFactor: 8, Bandwidth: 500000, MaxPayloadSize: 230},  // DR6
		{MaxPayloadSize: 58},                                       // DR7, RFU
		{SpreadFactor: 12, Bandwidth: 500000, MaxPayloadSize: 61},  // DR8
		{SpreadFactor: 11, Bandwidth: 500000, MaxPayloadSize: 137}, // DR9
		{SpreadFactor: 10, Bandwidth: 500000, MaxPayloadSize: 230}, // DR10
		{SpreadFactor: 9, Bandwidth: 500000, MaxPayloadSize: 230},  // DR11
		{SpreadFactor: 8, Bandwidth: 500000, MaxPayloadSize: 230},  // DR12
		{SpreadFactor: 7, Bandwidth: 500000, MaxPayloadSize: 230},  // DR13
	}
}

func auTXPower() []float64 {
	out := make([]float64, 0, 15)
	for p := 30; p >= 2; p -= 2 {
		out = append(out, float64(p))
	}
	return out
}

var auReplyDataRates = ReplyDataRateMatrix{
	{8, 8, 8, 8, 8, 8},
	{9, 8, 8, 8, 8, 8},
	{10, 9, 8, 8, 8, 8},
	{11, 10, 9, 8, 8, 8},
	{12, 11, 10, 9, 8, 8},
	{13, 12, 11, 10, 9, 8},
	{13, 13, 12, 11, 10, 9},
	{9, 8, 8, 8, 8, 8},
}

func newAUPlan(role Role) (ChannelPlan, error) {
	p := ChannelPlan{
		Region: AU,
		Role:   role,
	}

	if err := p.addSubBand(SubBand{
		FrequencyLow:  915000000,
		FrequencyHigh: 928000000,
		DutyCycle:     1,
		MaxTXPower:    30,
	}); err != nil {
		return ChannelPlan{}, err
	}

	var frequencies []uint32
	for i := 0; i < auChannelCount; i++ {
		f := uint32(auFirstChannel + i*auChannelSpacing)
		frequencies = append(frequencies, f)
		p.addChannel(f, auChannelDataRate, auChannelDataRate)
	}

	p.DataRates = auDataRates()
	p.TXPower = auTXPower()
	p.ReplyDataRates = auReplyDataRates
	p.PreambleSymbols = auPreambleSymbols
	p.RX2DataRate = auRX2DataRate
	p.RX2Frequency = auRX2Frequency

	if role == Gateway {
		p.ReceptionPaths = 8
		p.ReceptionFrequencies = frequencies
	}

	return p, nil
}
