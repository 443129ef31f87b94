package assignment

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LinkBudget assigns every device the fastest data-rate its best gateway can
// still receive. The best gateway is the one with the highest received
// power; on equal power the gateway with the lowest index wins.
//
// The received power must exceed (not equal) the sensitivity of a data-rate
// for it to be selected. A device below every threshold is assigned the
// slowest data-rate and counted in the out-of-range bucket.
func (a *Assigner) LinkBudget(devices []Device, gateways []Gateway, channel Channel) (Result, error) {
	start := time.Now()
	buckets := a.ladderBuckets()
	res := newResult(LinkBudget, buckets, len(buckets)-1)

	if channel == nil {
		return Result{}, ErrNoChannel
	}

	if len(devices) == 0 || len(gateways) == 0 {
		log.WithFields(log.Fields{
			"devices":  len(devices),
			"gateways": len(gateways),
		}).Warning("assignment: nothing to assign")
		return res, nil
	}

	for _, d := range devices {
		sensitivity := d.Sensitivity()
		if err := sensitivity.validate(); err != nil {
			return Result{}, errors.Wrapf(err, "device %d", d.ID())
		}
	}

	for _, d := range devices {
		rxPower, gwIndex := a.bestGateway(d, gateways, channel)
		bucket := ladderIndex(d.Sensitivity(), rxPower)

		dr := a.ladder[len(a.ladder)-1]
		if bucket < len(a.ladder) {
			dr = a.ladder[bucket]
		} else {
			res.OutOfRangeDevices = append(res.OutOfRangeDevices, d.ID())
			log.WithFields(log.Fields{
				"device_id": d.ID(),
				"rx_power":  rxPower,
			}).Debug("assignment: device out of range, assigning slowest data-rate")
		}

		d.SetDataRate(dr)
		res.DataRates[d.ID()] = dr
		res.Histogram[bucket]++

		log.WithFields(log.Fields{
			"device_id":     d.ID(),
			"gateway_index": gwIndex,
			"rx_power":      rxPower,
			"dr":            dr,
		}).Debug("assignment: data-rate assigned")
	}

	res.sortDeviceLists()
	observe(res, time.Since(start))

	return res, nil
}

// bestGateway returns the highest received power over all gateways and the
// index of the gateway it belongs to.
func (a *Assigner) bestGateway(d Device, gateways []Gateway, channel Channel) (float64, int) {
	var best float64
	var bestIndex int

	for i, gw := range gateways {
		rxPower := channel.ReceivedPower(a.txPower, d.Position(), gw.Position())
		if i == 0 || rxPower > best {
			best = rxPower
			bestIndex = i
		}
	}

	return best, bestIndex
}

// ladderIndex returns the index of the first sensitivity threshold the
// received power exceeds, or len(s) when it exceeds none.
func ladderIndex(s Sensitivity, rxPower float64) int {
	for i, threshold := range s {
		if rxPower > threshold {
			return i
		}
	}
	return len(s)
}
