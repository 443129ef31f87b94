package assignment

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Summarize builds a result from the current data-rate of every device. It
// is used to aggregate manual assignments. Devices without a data-rate are
// returned in Result.Unassigned, the given out-of-range devices are counted
// in the out-of-range bucket. A distribution mode result uses the
// distribution buckets and has no out-of-range bucket.
func (a *Assigner) Summarize(mode Mode, devices []Device, outOfRange []DeviceID) (Result, error) {
	buckets, oorBucket := a.buckets(mode)
	res := newResult(mode, buckets, oorBucket)

	oor := make(map[DeviceID]bool, len(outOfRange))
	for _, id := range outOfRange {
		oor[id] = true
	}

	for _, d := range devices {
		dr := d.DataRate()
		if dr == NoDataRate {
			res.Unassigned = append(res.Unassigned, d.ID())
			continue
		}

		bucket, ok := bucketForDataRate(buckets, dr)
		if !ok {
			return Result{}, errors.Wrapf(ErrInvalidLadderDataRate, "device %d: data-rate %d", d.ID(), dr)
		}
		if oor[d.ID()] && oorBucket >= 0 {
			bucket = oorBucket
			res.OutOfRangeDevices = append(res.OutOfRangeDevices, d.ID())
		}

		res.DataRates[d.ID()] = dr
		res.Histogram[bucket]++
	}

	res.sortDeviceLists()
	return res, nil
}

// FormatHistogram formats the histogram of the given result by
// spreading-factor, e.g. [ SF7:10 SF8:4 SF9:0 SF10:0 SF11:0 SF12:1 | out:2 ].
// Buckets which are never populated are omitted.
func (a *Assigner) FormatHistogram(res Result) string {
	var parts []string
	var out string

	for i, count := range res.Histogram {
		if i == res.OutOfRangeBucket {
			out = fmt.Sprintf(" | out:%d", count)
			continue
		}
		if i >= len(res.BucketDataRates) || res.BucketDataRates[i] == NoDataRate {
			continue
		}

		label := fmt.Sprintf("DR%d", res.BucketDataRates[i])
		if dr, err := a.plan.GetDataRate(res.BucketDataRates[i]); err == nil {
			label = fmt.Sprintf("SF%d", dr.SpreadFactor)
		}
		parts = append(parts, fmt.Sprintf("%s:%d", label, count))
	}

	return "[ " + strings.Join(parts, " ") + out + " ]"
}
