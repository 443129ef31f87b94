package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/chirpstack-radio-planner/internal/assignment"
	"github.com/brocaar/chirpstack-radio-planner/internal/band"
	"github.com/brocaar/chirpstack-radio-planner/internal/logging"
)

const (
	assignmentKeyTempl       = "lora:planner:assignment:%s"
	assignmentLatestKeyTempl = "lora:planner:assignment:latest:%s" // region
)

// Assignment defines a stored assignment snapshot.
type Assignment struct {
	RunID      uuid.UUID                   `json:"runID"`
	Region     band.Region                 `json:"region"`
	Mode       assignment.Mode             `json:"mode"`
	DataRates  map[assignment.DeviceID]int `json:"dataRates"`
	OutOfRange []assignment.DeviceID       `json:"outOfRange"`
	Histogram  []int                       `json:"histogram"`
	BucketDRs  []int                       `json:"bucketDRs"`
	CreatedAt  time.Time                   `json:"createdAt"`
}

// NewAssignment returns a new snapshot (with a new run id) of the given
// result.
func NewAssignment(region band.Region, res assignment.Result) (Assignment, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Assignment{}, errors.Wrap(err, "new uuid v4 error")
	}

	a := Assignment{
		RunID:      id,
		Region:     region,
		Mode:       res.Mode,
		DataRates:  make(map[assignment.DeviceID]int, len(res.DataRates)),
		OutOfRange: append([]assignment.DeviceID(nil), res.OutOfRangeDevices...),
		Histogram:  append([]int(nil), res.Histogram...),
		BucketDRs:  append([]int(nil), res.BucketDataRates...),
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	for k, v := range res.DataRates {
		a.DataRates[k] = v
	}

	return a, nil
}

// SaveAssignment stores the given assignment snapshot and marks it as the
// latest snapshot of its region.
func SaveAssignment(ctx context.Context, a Assignment) error {
	if !Enabled() {
		return ErrDisabled
	}
	if a.RunID == uuid.Nil {
		return errors.New("run id must be set")
	}

	b, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "json marshal error")
	}

	pipe := RedisClient().TxPipeline()
	pipe.Set(ctx, GetRedisKey(assignmentKeyTempl, a.RunID), b, snapshotTTL)
	pipe.Set(ctx, GetRedisKey(assignmentLatestKeyTempl, a.Region), a.RunID.String(), snapshotTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "exec error")
	}

	log.WithFields(log.Fields{
		"run_id":  a.RunID,
		"region":  a.Region,
		"mode":    a.Mode,
		"devices": len(a.DataRates),
		"ttl":     snapshotTTL,
		"ctx_id":  ctx.Value(logging.ContextIDKey),
	}).Info("storage: assignment snapshot saved")

	return nil
}

// GetAssignment returns the assignment snapshot for the given run id.
func GetAssignment(ctx context.Context, runID uuid.UUID) (Assignment, error) {
	var a Assignment
	if !Enabled() {
		return a, ErrDisabled
	}

	b, err := RedisClient().Get(ctx, GetRedisKey(assignmentKeyTempl, runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return a, ErrDoesNotExist
		}
		return a, errors.Wrap(err, "get error")
	}

	if err := json.Unmarshal(b, &a); err != nil {
		return a, errors.Wrap(err, "json unmarshal error")
	}

	return a, nil
}

// GetLatestAssignment returns the most recently saved assignment snapshot
// of the given region.
func GetLatestAssignment(ctx context.Context, region band.Region) (Assignment, error) {
	if !Enabled() {
		return Assignment{}, ErrDisabled
	}

	val, err := RedisClient().Get(ctx, GetRedisKey(assignmentLatestKeyTempl, region)).Result()
	if err != nil {
		if err == redis.Nil {
			return Assignment{}, ErrDoesNotExist
		}
		return Assignment{}, errors.Wrap(err, "get error")
	}

	runID, err := uuid.FromString(val)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "parse run id error")
	}

	return GetAssignment(ctx, runID)
}

// DeleteAssignment deletes the assignment snapshot for the given run id.
func DeleteAssignment(ctx context.Context, runID uuid.UUID) error {
	if !Enabled() {
		return ErrDisabled
	}

	n, err := RedisClient().Del(ctx, GetRedisKey(assignmentKeyTempl, runID)).Result()
	if err != nil {
		return errors.Wrap(err, "delete error")
	}
	if n == 0 {
		return ErrDoesNotExist
	}

	log.WithFields(log.Fields{
		"run_id": runID,
		"ctx_id": ctx.Value(logging.ContextIDKey),
	}).Info("storage: assignment snapshot deleted")

	return nil
}
