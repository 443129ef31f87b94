package cmd

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"reflect"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brocaar/chirpstack-radio-planner/internal/assignment"
	"github.com/brocaar/chirpstack-radio-planner/internal/config"
	"github.com/brocaar/chirpstack-radio-planner/internal/propagation"
)

var (
	cfgFile string
	version string
)

var rootCmd = &cobra.Command{
	Use:   "chirpstack-radio-planner",
	Short: "ChirpStack Radio Planner",
	Long: `ChirpStack Radio Planner configures the regional channel-plans of a LoRaWAN network and assigns the data-rate of every end-device
	> source & copyright information: https://github.com/brocaar/chirpstack-radio-planner/`,
	RunE: run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file (optional)")
	rootCmd.PersistentFlags().Int("log-level", 4, "debug=5, info=4, error=2, fatal=1, panic=0")
	rootCmd.PersistentFlags().String("mode", "", "assignment mode (link_budget, distribution, manual or replay), overrides the configuration")

	viper.BindPFlag("general.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("assignment.mode", rootCmd.PersistentFlags().Lookup("mode"))

	// default values
	viper.SetDefault("general.log_level", 4)
	viper.SetDefault("band.name", "EU868")

	viper.SetDefault("assignment.mode", string(assignment.LinkBudget))
	viper.SetDefault("assignment.tx_power", assignment.DefaultTXPower)
	viper.SetDefault("assignment.seed", 1)
	viper.SetDefault("assignment.min_dr", -1)
	viper.SetDefault("assignment.replay_run_id", "latest")

	viper.SetDefault("propagation.path_loss_exponent", propagation.DefaultPathLossExponent)
	viper.SetDefault("propagation.reference_distance", propagation.DefaultReferenceDistance)
	viper.SetDefault("propagation.reference_loss", propagation.DefaultReferenceLoss)

	viper.SetDefault("scenario.device_count", 200)
	viper.SetDefault("scenario.radius", 6300)
	viper.SetDefault("scenario.height", 1.2)
	viper.SetDefault("scenario.seed", 1)

	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.snapshot_ttl", time.Hour*24*31)

	viper.SetDefault("metrics.prometheus.bind", "0.0.0.0:8080")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(printPlanCmd)
	rootCmd.AddCommand(printSnapshotCmd)
}

// Execute executes the root command.
func Execute(v string) {
	version = v

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func initConfig() {
	config.Version = version

	if cfgFile != "" {
		b, err := ioutil.ReadFile(cfgFile)
		if err != nil {
			log.WithError(err).WithField("config", cfgFile).Fatal("error loading config file")
		}
		viper.SetConfigType("toml")
		if err := viper.ReadConfig(bytes.NewBuffer(b)); err != nil {
			log.WithError(err).WithField("config", cfgFile).Fatal("error loading config file")
		}
	} else {
		viper.SetConfigName("chirpstack-radio-planner")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/chirpstack-radio-planner")
		viper.AddConfigPath("/etc/chirpstack-radio-planner")
		if err := viper.ReadInConfig(); err != nil {
			switch err.(type) {
			case viper.ConfigFileNotFoundError:
				log.Warning("No configuration file found, using defaults.")
			default:
				log.WithError(err).Fatal("read configuration file error")
			}
		}
	}

	viperBindEnvs(config.C)

	viperHooks := mapstructure.ComposeDecodeHookFunc(
		viperDecodeJSONSlice,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := viper.Unmarshal(&config.C, viper.DecodeHook(viperHooks)); err != nil {
		log.WithError(err).Fatal("unmarshal config error")
	}

	if config.C.Redis.URL != "" {
		opt, err := redis.ParseURL(config.C.Redis.URL)
		if err != nil {
			log.WithError(err).Fatal("redis url error")
		}

		config.C.Redis.Servers = []string{opt.Addr}
		config.C.Redis.Database = opt.DB
		config.C.Redis.Password = opt.Password
	}
}

func viperBindEnvs(iface interface{}, parts ...string) {
	ifv := reflect.ValueOf(iface)
	ift := reflect.TypeOf(iface)
	for i := 0; i < ift.NumField(); i++ {
		v := ifv.Field(i)
		t := ift.Field(i)
		tv, ok := t.Tag.Lookup("mapstructure")
		if !ok {
			tv = strings.ToLower(t.Name)
		}
		if tv == "-" {
			continue
		}

		switch v.Kind() {
		case reflect.Struct:
			viperBindEnvs(v.Interface(), append(parts, tv)...)
		default:
			// Bash doesn't allow env variable names with a dot so
			// bind the double underscore version.
			keyDot := strings.Join(append(parts, tv), ".")
			keyUnderscore := strings.Join(append(parts, tv), "__")
			viper.BindEnv(keyDot, strings.ToUpper(keyUnderscore))
		}
	}
}

// viperDecodeJSONSlice decodes a JSON list given as string (e.g. through an
// environment variable) into a slice. This handles both lists of objects
// (scenario.devices) and lists of numbers (assignment.distribution).
func viperDecodeJSONSlice(rf reflect.Kind, rt reflect.Kind, data interface{}) (interface{}, error) {
	// input must be a string and destination must be a slice
	if rf != reflect.String || rt != reflect.Slice {
		return data, nil
	}

	raw := strings.TrimSpace(data.(string))

	// this decoder expects a JSON list
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return data, nil
	}

	var out []interface{}
	err := json.Unmarshal([]byte(raw), &out)

	return out, err
}
