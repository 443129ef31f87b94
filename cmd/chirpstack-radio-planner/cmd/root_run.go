package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brocaar/chirpstack-radio-planner/internal/assignment"
	"github.com/brocaar/chirpstack-radio-planner/internal/band"
	"github.com/brocaar/chirpstack-radio-planner/internal/config"
	"github.com/brocaar/chirpstack-radio-planner/internal/logging"
	"github.com/brocaar/chirpstack-radio-planner/internal/metrics"
	"github.com/brocaar/chirpstack-radio-planner/internal/propagation"
	"github.com/brocaar/chirpstack-radio-planner/internal/scenario"
	"github.com/brocaar/chirpstack-radio-planner/internal/storage"
)

// state of a single run, shared by the run tasks
var (
	ctx      context.Context
	scn      *scenario.Scenario
	assigner *assignment.Assigner
	result   assignment.Result
)

func run(cmd *cobra.Command, args []string) error {
	tasks := []func() error{
		setLogLevel,
		setupContext,
		printStartMessage,
		setupMetrics,
		setupStorage,
		setupScenario,
		setupAssigner,
		runAssignment,
		applyMinDataRate,
		applyManualAssignments,
		saveSnapshot,
		printResult,
	}

	for _, t := range tasks {
		if err := t(); err != nil {
			log.Fatal(err)
		}
	}

	if config.C.Metrics.Prometheus.EndpointEnabled {
		log.Info("waiting for signal before stopping the metrics endpoint")
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		log.WithField("signal", <-sigChan).Info("signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return metrics.Shutdown(shutdownCtx)
}

func setLogLevel() error {
	log.SetLevel(log.Level(uint8(config.C.General.LogLevel)))
	return nil
}

func setupContext() error {
	var err error
	ctx, err = logging.NewContext(context.Background())
	if err != nil {
		return errors.Wrap(err, "new context error")
	}
	return nil
}

func printStartMessage() error {
	logging.WithContext(ctx).WithFields(log.Fields{
		"version": version,
		"band":    config.C.Band.Name,
		"mode":    config.C.Assignment.Mode,
	}).Info("starting ChirpStack Radio Planner")
	return nil
}

func setupMetrics() error {
	if err := metrics.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup metrics error")
	}
	return nil
}

func setupStorage() error {
	if err := storage.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup storage error")
	}
	return nil
}

func setupScenario() error {
	var err error
	scn, err = scenario.Build(config.C)
	if err != nil {
		return errors.Wrap(err, "build scenario error")
	}

	for _, gw := range scn.Gateways {
		logging.WithContext(ctx).WithFields(log.Fields{
			"gateway_id":  gw.ID,
			"position":    gw.Position(),
			"sensitivity": gw.Sensitivity(),
		}).Debug("scenario gateway")
	}
	return nil
}

func setupAssigner() error {
	plan, err := scn.Configurator().ChannelPlan(band.EndDevice)
	if err != nil {
		return errors.Wrap(err, "get end-device channel-plan error")
	}

	assigner, err = assignment.New(plan, config.C.Assignment.TXPower, config.C.Assignment.Seed)
	if err != nil {
		return errors.Wrap(err, "new assigner error")
	}
	return nil
}

func runAssignment() error {
	var err error
	devices := scn.AssignmentDevices()

	switch assignment.Mode(config.C.Assignment.Mode) {
	case assignment.LinkBudget:
		var channel propagation.LogDistance
		channel, err = propagation.NewLogDistanceFromConfig(config.C)
		if err != nil {
			return errors.Wrap(err, "propagation model error")
		}
		result, err = assigner.LinkBudget(devices, scn.AssignmentGateways(), channel)
	case assignment.Distribution:
		distribution := config.C.Assignment.Distribution
		if len(distribution) == 0 {
			distribution = assigner.DefaultDistribution()
		}
		result, err = assigner.Distribution(devices, distribution)
	case assignment.Manual:
		// the overrides are applied by applyManualAssignments
		result, err = assigner.Summarize(assignment.Manual, devices, nil)
	case assignment.Replay:
		result, err = replayAssignment(devices)
	default:
		return errors.Errorf("unknown assignment mode: %s", config.C.Assignment.Mode)
	}
	if err != nil {
		return errors.Wrapf(err, "%s assignment error", config.C.Assignment.Mode)
	}

	logging.WithContext(ctx).WithFields(log.Fields{
		"mode":         result.Mode,
		"devices":      result.Total(),
		"out_of_range": result.OutOfRange(),
		"unassigned":   len(result.Unassigned),
	}).Info("assignment completed")

	return nil
}

func replayAssignment(devices []assignment.Device) (assignment.Result, error) {
	var snapshot storage.Assignment
	var err error

	if runID := config.C.Assignment.ReplayRunID; runID == "" || strings.EqualFold(runID, "latest") {
		snapshot, err = storage.GetLatestAssignment(ctx, scn.Region)
	} else {
		var id uuid.UUID
		id, err = uuid.FromString(runID)
		if err != nil {
			return assignment.Result{}, errors.Wrap(err, "parse replay_run_id error")
		}
		snapshot, err = storage.GetAssignment(ctx, id)
	}
	if err != nil {
		return assignment.Result{}, errors.Wrap(err, "get snapshot error")
	}

	if snapshot.Region != scn.Region {
		return assignment.Result{}, errors.Wrapf(band.ErrUnsupportedRegion, "snapshot region %s does not match %s", snapshot.Region, scn.Region)
	}

	logging.WithContext(ctx).WithFields(log.Fields{
		"run_id":     snapshot.RunID,
		"mode":       snapshot.Mode,
		"created_at": snapshot.CreatedAt,
	}).Info("replaying assignment snapshot")

	return assigner.Replay(devices, snapshot.DataRates, snapshot.OutOfRange)
}

func applyMinDataRate() error {
	if config.C.Assignment.MinDR < 0 || result.Mode == assignment.Replay {
		return nil
	}

	var err error
	result, err = assigner.ClampMinDataRate(scn.AssignmentDevices(), result, config.C.Assignment.MinDR)
	if err != nil {
		return errors.Wrap(err, "apply minimum data-rate error")
	}
	return nil
}

func applyManualAssignments() error {
	if len(config.C.Assignment.Manual) == 0 {
		return nil
	}

	devices := scn.AssignmentDevices()
	overridden := make(map[assignment.DeviceID]bool)

	for _, m := range config.C.Assignment.Manual {
		id := assignment.DeviceID(m.DeviceID)
		dr, err := assigner.Override(result.Mode, devices, id, m.DR)
		if err != nil {
			if errors.Cause(err) == assignment.ErrDeviceNotFound {
				logging.WithContext(ctx).WithError(err).Warning("manual assignment skipped")
				continue
			}
			return errors.Wrap(err, "manual assignment error")
		}
		overridden[id] = true

		d, err := scn.Device(id)
		if err != nil {
			return errors.Wrap(err, "get device error")
		}

		logging.WithContext(ctx).WithFields(log.Fields{
			"device_id": id,
			"dev_eui":   d.DevEUI,
			"dr":        dr,
		}).Info("manual data-rate assigned")
	}

	var outOfRange []assignment.DeviceID
	for _, id := range result.OutOfRangeDevices {
		if !overridden[id] {
			outOfRange = append(outOfRange, id)
		}
	}

	var err error
	result, err = assigner.Summarize(result.Mode, devices, outOfRange)
	if err != nil {
		return errors.Wrap(err, "summarize assignment error")
	}
	return nil
}

func saveSnapshot() error {
	if !storage.Enabled() || result.Mode == assignment.Replay {
		return nil
	}

	snapshot, err := storage.NewAssignment(scn.Region, result)
	if err != nil {
		return errors.Wrap(err, "new snapshot error")
	}

	if err := storage.SaveAssignment(ctx, snapshot); err != nil {
		return errors.Wrap(err, "save snapshot error")
	}

	logging.WithContext(ctx).WithField("run_id", snapshot.RunID).Info("assignment snapshot saved, use this run id to replay the assignment")
	return nil
}

func printResult() error {
	logging.WithContext(ctx).WithFields(log.Fields{
		"region":    scn.Region,
		"mode":      result.Mode,
		"histogram": assigner.FormatHistogram(result),
	}).Info("data-rate assignment")

	if log.IsLevelEnabled(log.DebugLevel) {
		dataRates := scn.DataRates()
		for _, id := range scn.DeviceIDs() {
			d, err := scn.Device(id)
			if err != nil {
				return errors.Wrap(err, "get device error")
			}

			dr, ok := dataRates[id]
			if !ok {
				dr = assignment.NoDataRate
			}

			logging.WithContext(ctx).WithFields(log.Fields{
				"device_id": id,
				"dev_eui":   d.DevEUI,
				"dr":        dr,
			}).Debug("device data-rate")
		}
	}

	metrics.LogCounters("assignment_")
	return nil
}
