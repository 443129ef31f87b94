// Package test provides the configuration and helpers shared by the tests.
package test

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/brocaar/chirpstack-radio-planner/internal/band"
	"github.com/brocaar/chirpstack-radio-planner/internal/config"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// GetConfig returns the test configuration.
func GetConfig() config.Config {
	var c config.Config
	c.Band.Name = string(band.EU)
	c.Assignment.Mode = "link_budget"
	c.Assignment.TXPower = 20
	c.Assignment.MinDR = -1
	c.Scenario.DeviceCount = 100
	c.Scenario.Radius = 5000
	c.Scenario.Height = 1.2
	c.Scenario.Seed = 1

	c.Redis.URL = "redis://localhost:6379/1"
	if v := os.Getenv("TEST_REDIS_URL"); v != "" {
		c.Redis.URL = v
	}

	return c
}
