// Package config loads and validates run configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (simulation, epochs, trip timing, set backing, smart-card input,
// result sinks, logging and metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects which pass of the matcher produces the reported counts.
type Mode string

const (
	ModeCommuters Mode = "commuters"
	ModeSingle    Mode = "single"
)

// MaxTravelers bounds the traveler id space the trip generator samples from.
const MaxTravelers = 10_000_000

// Config is the top-level run configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Epoch      EpochConfig      `yaml:"epoch"`
	Timing     TimingConfig     `yaml:"timing"`
	Sets       SetsConfig       `yaml:"sets"`
	SmartCard  SmartCardConfig  `yaml:"smartcard"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SimulationConfig controls the synthetic network and trip stream.
type SimulationConfig struct {
	LocationCount     int           `yaml:"locationCount"`
	LinkProbability   float64       `yaml:"linkProbability"`
	TripCount         int           `yaml:"tripCount"`
	ReturnProbability float64       `yaml:"returnProbability"`
	RunCount          int           `yaml:"runCount"`
	Mode              Mode          `yaml:"mode"`
	Seed              uint64        `yaml:"seed"`
	Parallelism       int           `yaml:"parallelism"`
	Deadline          time.Duration `yaml:"deadline"`
}

// EpochConfig holds the epoch length and the day boundaries, all in minutes
// since midnight.
type EpochConfig struct {
	LengthMinutes        int `yaml:"lengthMinutes"`
	StartOfDay           int `yaml:"startOfDay"`
	EndOfDay             int `yaml:"endOfDay"`
	LastOutwardDeparture int `yaml:"lastOutwardDeparture"`
	LastReturnDeparture  int `yaml:"lastReturnDeparture"`
}

// TimingConfig is the trip duration model shared by the generator and the
// matcher's arrival windows.
type TimingConfig struct {
	MinTripDuration int     `yaml:"minTripDuration"`
	MaxTripDuration int     `yaml:"maxTripDuration"`
	StdFraction     float64 `yaml:"stdFraction"`
}

// MaxStd returns the largest standard deviation any link can have.
func (t TimingConfig) MaxStd() float64 {
	return t.StdFraction * float64(t.MaxTripDuration)
}

// SetsConfig selects and sizes the detection set backing. FixedSize and
// FixedHashCount override the sizing formulas only when both are positive.
type SetsConfig struct {
	Exact                  bool    `yaml:"exact"`
	MaxDetectionsPerBucket uint64  `yaml:"maxDetectionsPerBucket"`
	FalsePositiveRate      float64 `yaml:"falsePositiveRate"`
	FixedSize              uint32  `yaml:"fixedSize"`
	FixedHashCount         uint32  `yaml:"fixedHashCount"`
}

// Fixed reports whether the fixed bloom parameters are in effect.
func (s SetsConfig) Fixed() bool {
	return s.FixedSize > 0 && s.FixedHashCount > 0
}

// SmartCardConfig controls the CSV pipeline.
type SmartCardConfig struct {
	Path          string `yaml:"path"`
	Delimiter     string `yaml:"delimiter"`
	WindowMinutes int    `yaml:"windowMinutes"`
	MatchEpochs   int    `yaml:"matchEpochs"`
	GroundTruth   uint64 `yaml:"groundTruth"`
}

// OutputConfig lists the result sinks. The results file is always written;
// the other sinks are opt-in.
type OutputConfig struct {
	ResultsPath string         `yaml:"resultsPath"`
	Postgres    PostgresConfig `yaml:"postgres"`
	Redis       RedisConfig    `yaml:"redis"`
	Kafka       KafkaConfig    `yaml:"kafka"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters and the list results are
// pushed to.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
	Key      string `yaml:"key"`
	MaxItems int64  `yaml:"maxItems"`
}

// KafkaConfig holds the Kafka brokers and the topic results are published to.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values. The result is not validated; call Validate once command-line
// overrides have been applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the reference configuration: a two-location network over
// a 05:00-24:00 day cut into five-minute epochs.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			LocationCount:     2,
			LinkProbability:   1.0,
			TripCount:         1000,
			ReturnProbability: 0.5,
			RunCount:          1,
			Mode:              ModeCommuters,
			Parallelism:       1,
		},
		Epoch: EpochConfig{
			LengthMinutes:        5,
			StartOfDay:           5 * 60,
			EndOfDay:             24 * 60,
			LastOutwardDeparture: 22 * 60,
			LastReturnDeparture:  23 * 60,
		},
		Timing: TimingConfig{
			MinTripDuration: 15,
			MaxTripDuration: 30,
			StdFraction:     0.2,
		},
		Sets: SetsConfig{
			MaxDetectionsPerBucket: 1000,
			FalsePositiveRate:      0.001,
		},
		SmartCard: SmartCardConfig{
			Delimiter:     ";",
			WindowMinutes: 5,
			MatchEpochs:   9,
			GroundTruth:   1000,
		},
		Output: OutputConfig{
			ResultsPath: "results-bfs.txt",
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				Database:        "commuters",
				User:            "commuters",
				Password:        "localdev",
				SSLMode:         "disable",
				Table:           "run_results",
				MaxOpenConns:    5,
				MaxIdleConns:    2,
				ConnMaxLifetime: 5 * time.Minute,
			},
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 4,
				Key:      "commuters:results",
				MaxItems: 10000,
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "commuter-results",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CT_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CT_TRIP_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.TripCount = n
		}
	}
	if v := os.Getenv("CT_RUN_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.RunCount = n
		}
	}
	if v := os.Getenv("CT_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Simulation.Seed = n
		}
	}
	if v := os.Getenv("CT_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.Parallelism = n
		}
	}
	if v := os.Getenv("CT_EPOCH_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Epoch.LengthMinutes = n
		}
	}
	if v := os.Getenv("CT_SETS_EXACT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Sets.Exact = b
		}
	}
	if v := os.Getenv("CT_RESULTS_PATH"); v != "" {
		cfg.Output.ResultsPath = v
	}
	if v := os.Getenv("CT_POSTGRES_HOST"); v != "" {
		cfg.Output.Postgres.Host = v
	}
	if v := os.Getenv("CT_POSTGRES_PASSWORD"); v != "" {
		cfg.Output.Postgres.Password = v
	}
	if v := os.Getenv("CT_REDIS_ADDR"); v != "" {
		cfg.Output.Redis.Addr = v
	}
	if v := os.Getenv("CT_REDIS_PASSWORD"); v != "" {
		cfg.Output.Redis.Password = v
	}
	if v := os.Getenv("CT_KAFKA_BROKERS"); v != "" {
		cfg.Output.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CT_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CT_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CT_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
			cfg.Metrics.Enabled = true
		}
	}
}
