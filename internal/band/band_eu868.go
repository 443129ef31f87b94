package band

// EU868 derived constants, shared by the EU, SingleChannel and Aloha regions.
const (
	euRX2Frequency    = 869525000
	euRX2DataRate     = 0
	euPreambleSymbols = 8
)

var euDefaultChannels = []uint32{868100000, 868300000, 868500000}

func euDataRates() []DataRate {
	return []DataRate{
		{SpreadFactor: 12, Bandwidth: 125000, MaxPayloadSize: 59}, // DR0
		{SpreadFactor: 11, Bandwidth: 125000, MaxPayloadSize: 59}, // DR1
		{SpreadFactor: 10, Bandwidth: 125000, MaxPayloadSize: 59}, // DR2
		{SpreadFactor: 9, Bandwidth: 125000, MaxPayloadSize: 123}, // DR3
		{SpreadFactor: 8, Bandwidth: 125000, MaxPayloadSize: 230}, // DR4
		{SpreadFactor: 7, Bandwidth: 125000, MaxPayloadSize: 230}, // DR5
		{SpreadFactor: 7, Bandwidth: 250000, MaxPayloadSize: 230}, // DR6
	}
}

func euTXPower() []float64 {
	return []float64{16, 14, 12, 10, 8, 6, 4, 2}
}

var euReplyDataRates = ReplyDataRateMatrix{
	{0, 0, 0, 0, 0, 0},
	{1, 0, 0, 0, 0, 0},
	{2, 1, 0, 0, 0, 0},
	{3, 2, 1, 0, 0, 0},
	{4, 3, 2, 1, 0, 0},
	{5, 4, 3, 2, 1, 0},
	{6, 5, 4, 3, 2, 1},
	{7, 6, 5, 4, 3, 2},
}

func euSubBands() []SubBand {
	return []SubBand{
		{FrequencyLow: 868000000, FrequencyHigh: 868600000, DutyCycle: 0.01, MaxTXPower: 20},
		{FrequencyLow: 868700000, FrequencyHigh: 869200000, DutyCycle: 0.001, MaxTXPower: 20},
		{FrequencyLow: 869400000, FrequencyHigh: 869650000, DutyCycle: 0.1, MaxTXPower: 27},
	}
}

// applyEUTables sets the EU868 data-rate, tx-power and reply data-rate tables
// and the receive window parameters.
func applyEUTables(p *ChannelPlan) {
	p.DataRates = euDataRates()
	p.TXPower = euTXPower()
	p.ReplyDataRates = euReplyDataRates
	p.PreambleSymbols = euPreambleSymbols
	p.RX2DataRate = euRX2DataRate
	p.RX2Frequency = euRX2Frequency
}

func newEUPlan(role Role) (ChannelPlan, error) {
	p := ChannelPlan{
		Region: EU,
		Role:   role,
	}

	for _, sb := range euSubBands() {
		if err := p.addSubBand(sb); err != nil {
			return ChannelPlan{}, err
		}
	}

	for _, f := range euDefaultChannels {
		p.addChannel(f, 0, 5)
	}

	applyEUTables(&p)

	if role == Gateway {
		p.ReceptionPaths = 8
		p.ReceptionFrequencies = append([]uint32(nil), euDefaultChannels...)
	}

	return p, nil
}
