package assignment

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Manual sets the data-rate of the device matching the given id and returns
// the assigned data-rate. ErrDeviceNotFound is returned when no device
// matches. No histogram is kept; aggregating is up to the caller.
func (a *Assigner) Manual(devices []Device, id DeviceID, dr int) (int, error) {
	return a.Override(Manual, devices, id, dr)
}

// Override sets the data-rate of the device matching the given id on top of
// an assignment made in the given mode. The data-rate must map on one of the
// histogram buckets of that mode, else ErrInvalidLadderDataRate is returned
// and no device is touched.
func (a *Assigner) Override(mode Mode, devices []Device, id DeviceID, dr int) (int, error) {
	if err := a.plan.ValidateDataRate(dr); err != nil {
		return NoDataRate, errors.Wrapf(err, "device %d", id)
	}

	buckets, _ := a.buckets(mode)
	if _, ok := bucketForDataRate(buckets, dr); !ok {
		return NoDataRate, errors.Wrapf(ErrInvalidLadderDataRate, "device %d: data-rate %d (%s)", id, dr, mode)
	}

	for _, d := range devices {
		if d.ID() != id {
			continue
		}

		d.SetDataRate(dr)
		deviceAssigned(Manual, dr).Inc()
		return dr, nil
	}

	return NoDataRate, errors.Wrapf(ErrDeviceNotFound, "device %d", id)
}

// Replay re-applies a previously computed assignment. Devices in the
// assignment which are not in devices are skipped with a warning, devices
// which are not in the assignment are left untouched and returned in
// Result.Unassigned. The out-of-range devices of the replayed assignment are
// counted in the out-of-range bucket again.
func (a *Assigner) Replay(devices []Device, dataRates map[DeviceID]int, outOfRange []DeviceID) (Result, error) {
	start := time.Now()
	buckets := a.ladderBuckets()
	res := newResult(Replay, buckets, len(buckets)-1)

	index := make(map[DeviceID]Device, len(devices))
	for _, d := range devices {
		index[d.ID()] = d
	}

	oor := make(map[DeviceID]bool, len(outOfRange))
	for _, id := range outOfRange {
		oor[id] = true
	}

	for id, dr := range dataRates {
		d, ok := index[id]
		if !ok {
			log.WithFields(log.Fields{
				"device_id": id,
				"dr":        dr,
			}).Warning("assignment: replay device not found, skipping")
			continue
		}

		bucket, ok := bucketForDataRate(buckets, dr)
		if !ok {
			return Result{}, errors.Wrapf(ErrInvalidLadderDataRate, "device %d: data-rate %d", id, dr)
		}
		if err := a.plan.ValidateDataRate(dr); err != nil {
			return Result{}, errors.Wrapf(err, "device %d", id)
		}
		if oor[id] {
			bucket = res.OutOfRangeBucket
			res.OutOfRangeDevices = append(res.OutOfRangeDevices, id)
		}

		d.SetDataRate(dr)
		res.DataRates[id] = dr
		res.Histogram[bucket]++
	}

	for _, d := range devices {
		if _, ok := dataRates[d.ID()]; !ok {
			res.Unassigned = append(res.Unassigned, d.ID())
		}
	}

	if len(res.Unassigned) != 0 {
		log.WithField("devices", len(res.Unassigned)).Warning("assignment: devices without replay data-rate")
	}

	res.sortDeviceLists()
	observe(res, time.Since(start))

	return res, nil
}

// ClampMinDataRate raises every device of the result assigned below minDR
// to minDR and returns the updated result. The out-of-range devices stay in
// the out-of-range bucket.
func (a *Assigner) ClampMinDataRate(devices []Device, res Result, minDR int) (Result, error) {
	if _, ok := bucketForDataRate(res.BucketDataRates, minDR); !ok {
		return Result{}, errors.Wrapf(ErrInvalidLadderDataRate, "min data-rate %d", minDR)
	}

	oor := make(map[DeviceID]bool, len(res.OutOfRangeDevices))
	for _, id := range res.OutOfRangeDevices {
		oor[id] = true
	}

	out := newResult(res.Mode, res.BucketDataRates, res.OutOfRangeBucket)
	out.OutOfRangeDevices = append(out.OutOfRangeDevices, res.OutOfRangeDevices...)
	out.Unassigned = append(out.Unassigned, res.Unassigned...)

	var clamped int
	for _, d := range devices {
		dr, ok := res.DataRates[d.ID()]
		if !ok {
			continue
		}

		if dr < minDR {
			dr = minDR
			d.SetDataRate(dr)
			clamped++
		}

		bucket, _ := bucketForDataRate(out.BucketDataRates, dr)
		if oor[d.ID()] && out.OutOfRangeBucket >= 0 {
			bucket = out.OutOfRangeBucket
		}

		out.DataRates[d.ID()] = dr
		out.Histogram[bucket]++
	}

	log.WithFields(log.Fields{
		"min_dr":  minDR,
		"clamped": clamped,
	}).Info("assignment: minimum data-rate applied")

	return out, nil
}
