package band

// newAlohaPlan returns the baseline plan used for pure-ALOHA experiments:
// a single sub-band without duty-cycle restriction, a single channel and
// a gateway able to demodulate a single frame at a time.
func newAlohaPlan(role Role) (ChannelPlan, error) {
	p := ChannelPlan{
		Region: Aloha,
		Role:   role,
	}

	if err := p.addSubBand(SubBand{
		FrequencyLow:  868000000,
		FrequencyHigh: 868600000,
		DutyCycle:     1,
		MaxTXPower:    14,
	}); err != nil {
		return ChannelPlan{}, err
	}

	p.addChannel(euDefaultChannels[0], 0, 5)

	applyEUTables(&p)

	if role == Gateway {
		p.ReceptionPaths = 1
		p.ReceptionFrequencies = []uint32{euDefaultChannels[0]}
	}

	return p, nil
}
