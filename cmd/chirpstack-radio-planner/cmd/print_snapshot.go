package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brocaar/chirpstack-radio-planner/internal/band"
	"github.com/brocaar/chirpstack-radio-planner/internal/config"
	"github.com/brocaar/chirpstack-radio-planner/internal/storage"
)

var printSnapshotCmd = &cobra.Command{
	Use:     "print-snapshot",
	Short:   "Print a stored assignment snapshot as JSON",
	Example: `chirpstack-radio-planner print-snapshot 6d5db27e-4ce2-4b2b-b5d7-91f069397978`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 1 {
			log.Fatal("at most one run id must be given as argument")
		}

		if err := storage.Setup(config.C); err != nil {
			log.Fatal(err)
		}

		var snapshot storage.Assignment
		var err error

		if len(args) == 0 {
			var region band.Region
			if region, err = band.ParseRegion(config.C.Band.Name); err != nil {
				log.WithError(err).Fatal("parse region error")
			}
			snapshot, err = storage.GetLatestAssignment(context.Background(), region)
		} else {
			var runID uuid.UUID
			if runID, err = uuid.FromString(args[0]); err != nil {
				log.WithError(err).Fatal("decode run id error")
			}
			snapshot, err = storage.GetAssignment(context.Background(), runID)
		}
		if err != nil {
			log.WithError(err).Fatal("get snapshot error")
		}

		b, err := json.MarshalIndent(snapshot, "", "    ")
		if err != nil {
			log.WithError(err).Fatal("json marshal error")
		}

		fmt.Println(string(b))
	},
}
