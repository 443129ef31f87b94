package band

// newSingleChannelPlan returns the EU868 plan restricted to the first
// default channel. The gateway listens on that frequency only.
func newSingleChannelPlan(role Role) (ChannelPlan, error) {
	p := ChannelPlan{
		Region: SingleChannel,
		Role:   role,
	}

	for _, sb := range euSubBands() {
		if err := p.addSubBand(sb); err != nil {
			return ChannelPlan{}, err
		}
	}

	p.addChannel(euDefaultChannels[0], 0, 5)

	applyEUTables(&p)

	if role == Gateway {
		p.ReceptionPaths = 8
		p.ReceptionFrequencies = []uint32{euDefaultChannels[0]}
	}

	return p, nil
}
