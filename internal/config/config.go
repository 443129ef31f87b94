package config

import "time"

// Version defines the ChirpStack Radio Planner version.
var Version string

// C holds the global configuration.
var C Config

// Config defines the configuration structure.
type Config struct {
	General struct {
		LogLevel int `mapstructure:"log_level"`
	} `mapstructure:"general"`

	Band struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"band"`

	Assignment struct {
		// Mode is one of link_budget, distribution, manual or replay.
		Mode         string    `mapstructure:"mode"`
		TXPower      float64   `mapstructure:"tx_power"`
		Distribution []float64 `mapstructure:"distribution"`
		Seed         int64     `mapstructure:"seed"`
		MinDR        int       `mapstructure:"min_dr"`
		ReplayRunID  string    `mapstructure:"replay_run_id"`

		Manual []ManualAssignment `mapstructure:"manual"`
	} `mapstructure:"assignment"`

	Propagation struct {
		PathLossExponent  float64 `mapstructure:"path_loss_exponent"`
		ReferenceDistance float64 `mapstructure:"reference_distance"`
		ReferenceLoss     float64 `mapstructure:"reference_loss"`
	} `mapstructure:"propagation"`

	Scenario struct {
		DeviceCount int     `mapstructure:"device_count"`
		Radius      float64 `mapstructure:"radius"`
		Height      float64 `mapstructure:"height"`
		Seed        int64   `mapstructure:"seed"`

		DeviceSensitivity  []float64 `mapstructure:"device_sensitivity"`
		GatewaySensitivity []float64 `mapstructure:"gateway_sensitivity"`

		Gateways []ScenarioGateway `mapstructure:"gateways"`
		Devices  []ScenarioDevice  `mapstructure:"devices"`
	} `mapstructure:"scenario"`

	Redis struct {
		URL         string        `mapstructure:"url"`
		Servers     []string      `mapstructure:"servers"`
		Password    string        `mapstructure:"password"`
		Database    int           `mapstructure:"database"`
		PoolSize    int           `mapstructure:"pool_size"`
		SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
	} `mapstructure:"redis"`

	Metrics struct {
		Prometheus struct {
			EndpointEnabled bool   `mapstructure:"endpoint_enabled"`
			Bind            string `mapstructure:"bind"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"metrics"`
}

// ManualAssignment defines a data-rate override for a single device.
type ManualAssignment struct {
	DeviceID uint32 `mapstructure:"device_id"`
	DR       int    `mapstructure:"dr"`
}

// ScenarioGateway defines a gateway placed at a fixed position (m).
type ScenarioGateway struct {
	ID uint32  `mapstructure:"id"`
	X  float64 `mapstructure:"x"`
	Y  float64 `mapstructure:"y"`
	Z  float64 `mapstructure:"z"`
}

// ScenarioDevice defines an end-device placed at a fixed position (m).
// When DevEUI is empty, it is derived from the ID.
type ScenarioDevice struct {
	ID     uint32  `mapstructure:"id"`
	DevEUI string  `mapstructure:"dev_eui"`
	X      float64 `mapstructure:"x"`
	Y      float64 `mapstructure:"y"`
	Z      float64 `mapstructure:"z"`
}
