package models

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ClosurePolicy selects when a damaged pipe or line stops carrying flow.
type ClosurePolicy string

const (
	// ClosureOnRepair closes the component when its repair starts.
	ClosureOnRepair ClosurePolicy = "repair"
	// ClosureSensorBased closes the component a fixed delay after the
	// disruption, modelling sensor-triggered isolation.
	ClosureSensorBased ClosurePolicy = "sensor"
)

// SamplingConfig is the per-network sampling policy of the simulation loop.
// Water results are sampled on a fixed short interval; power is solved once
// per event interval and held constant, reflecting quasi-static power flow
// between topology changes.
type SamplingConfig struct {
	WaterInterval time.Duration `mapstructure:"water_interval"`
	// HoldDuration extends sampling past the last event so recovery tails
	// are visible in the record set.
	HoldDuration time.Duration `mapstructure:"hold_duration"`
}

// OptimizerConfig bounds the MPC permutation search. Unbounded search does
// not terminate for large disruptions, so every field has a safe default.
type OptimizerConfig struct {
	Horizon         int           `mapstructure:"horizon"`
	MaxPermutations int           `mapstructure:"max_permutations"`
	TimeBudget      time.Duration `mapstructure:"time_budget"`
	Workers         int           `mapstructure:"workers"`
	Fallback        string        `mapstructure:"fallback"`
}

// DatabaseConfig holds Postgres sink settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     uint16 `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// CloudStorageConfig holds settings for uploading result artifacts.
type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	Region     string `mapstructure:"region"`
	BucketName string `mapstructure:"bucket_name"`
}

type Config struct {
	Seed        int64  `mapstructure:"seed"`
	NetworkName string `mapstructure:"network_name"`

	DisruptionFile string `mapstructure:"disruption_file"`
	DependencyFile string `mapstructure:"dependency_file"`

	Sampling SamplingConfig `mapstructure:"sampling"`

	// DispatchOverhead is the fixed crew mobilization time added before
	// every trip.
	DispatchOverhead time.Duration `mapstructure:"dispatch_overhead"`

	PipeClosePolicy  ClosurePolicy `mapstructure:"pipe_close_policy"`
	PipeClosureDelay time.Duration `mapstructure:"pipe_closure_delay"`
	LineClosePolicy  ClosurePolicy `mapstructure:"line_close_policy"`
	LineClosureDelay time.Duration `mapstructure:"line_closure_delay"`

	// Strategy selects the repair-order policy: maxflow, centrality, zone,
	// crewdistance or mpc.
	Strategy  string          `mapstructure:"strategy"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`

	// CrewLocations maps infrastructure name to the initial transport node
	// of its repair crew.
	CrewLocations map[string]string `mapstructure:"crew_locations"`

	// Weights are the per-system weights of the network-level resilience
	// aggregate; missing systems default to equal weights.
	Weights map[string]float64 `mapstructure:"weights"`

	// ZoneWeights rank land-use zones for the zone criticality strategy.
	ZoneWeights map[string]float64 `mapstructure:"zone_weights"`

	OutputPath        string `mapstructure:"output_path"`
	OutputFolder      string `mapstructure:"output_folder"`
	OutputFormat      string `mapstructure:"output_format"`
	OutputDestination string `mapstructure:"output_destination"`

	KafkaEnabled     bool   `mapstructure:"kafka_enabled"`
	KafkaBrokerList  string `mapstructure:"kafka_broker_list"`
	SessionTimeoutMs int    `mapstructure:"session_timeout_ms"`

	PostgresEnabled bool           `mapstructure:"postgres_enabled"`
	Database        DatabaseConfig `mapstructure:"database"`

	CloudStorage CloudStorageConfig `mapstructure:"cloud_storage"`
}

// LoadConfig initializes and reads the configuration using Viper.
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("examples")
		viper.SetConfigName("config")
		viper.SetConfigType("json")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})
	if err := viper.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Sampling.WaterInterval <= 0 {
		cfg.Sampling.WaterInterval = time.Minute
	}
	if cfg.Sampling.HoldDuration <= 0 {
		cfg.Sampling.HoldDuration = time.Hour
	}
	if cfg.DispatchOverhead <= 0 {
		cfg.DispatchOverhead = 10 * time.Minute
	}
	if cfg.PipeClosePolicy == "" {
		cfg.PipeClosePolicy = ClosureOnRepair
	}
	if cfg.LineClosePolicy == "" {
		cfg.LineClosePolicy = ClosureSensorBased
	}
	if cfg.PipeClosureDelay <= 0 {
		cfg.PipeClosureDelay = 12 * time.Minute
	}
	if cfg.LineClosureDelay <= 0 {
		cfg.LineClosureDelay = 12 * time.Minute
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "mpc"
	}
	if cfg.Optimizer.Horizon <= 0 {
		cfg.Optimizer.Horizon = 2
	}
	if cfg.Optimizer.MaxPermutations <= 0 {
		cfg.Optimizer.MaxPermutations = 5000
	}
	if cfg.Optimizer.TimeBudget <= 0 {
		cfg.Optimizer.TimeBudget = 10 * time.Minute
	}
	if cfg.Optimizer.Workers <= 0 {
		cfg.Optimizer.Workers = 4
	}
	if cfg.Optimizer.Fallback == "" {
		cfg.Optimizer.Fallback = "maxflow"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "csv"
	}
	if cfg.OutputDestination == "" {
		cfg.OutputDestination = "local"
	}
}

func (cfg *Config) validate() error {
	switch cfg.PipeClosePolicy {
	case ClosureOnRepair, ClosureSensorBased:
	default:
		return fmt.Errorf("unknown pipe_close_policy %q", cfg.PipeClosePolicy)
	}
	switch cfg.LineClosePolicy {
	case ClosureOnRepair, ClosureSensorBased:
	default:
		return fmt.Errorf("unknown line_close_policy %q", cfg.LineClosePolicy)
	}
	for name := range cfg.Weights {
		switch Infra(name) {
		case InfraPower, InfraWater, InfraTransport:
		default:
			return fmt.Errorf("weights: unknown system %q", name)
		}
	}
	return nil
}

// MetricWeights returns the per-system aggregate weights, defaulting to equal
// weights for systems the config does not mention.
func (cfg *Config) MetricWeights() map[Infra]float64 {
	out := map[Infra]float64{
		InfraPower:     1.0 / 3,
		InfraWater:     1.0 / 3,
		InfraTransport: 1.0 / 3,
	}
	if len(cfg.Weights) == 0 {
		return out
	}
	var total float64
	for _, w := range cfg.Weights {
		total += w
	}
	if total <= 0 {
		return out
	}
	for k := range out {
		out[k] = 0
	}
	for name, w := range cfg.Weights {
		out[Infra(name)] = w / total
	}
	return out
}

// ClosureFor returns the closure policy and delay applicable to a component
// category, or ok=false when no closure policy applies.
func (cfg *Config) ClosureFor(c *Component) (ClosurePolicy, time.Duration, bool) {
	if !c.Category.IsLink {
		return "", 0, false
	}
	switch c.Infra {
	case InfraWater:
		return cfg.PipeClosePolicy, cfg.PipeClosureDelay, true
	case InfraPower:
		return cfg.LineClosePolicy, cfg.LineClosureDelay, true
	default:
		return "", 0, false
	}
}
