package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"dev" validate:"required"`
	Log         struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
		Format     string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"50"`
		MaxBackups int    `yaml:"max_backups" default:"3"`
	} `yaml:"log"`
	Dataset struct {
		Root   string `yaml:"root" default:"."`
		Layout string `yaml:"layout" default:"csv/{symbol}/{partition}/{split}" validate:"required"`
		Split  string `yaml:"split" default:"train" validate:"required"`
		// EvalSplit is scored after training when its directory exists; empty skips it.
		EvalSplit string `yaml:"eval_split" default:"test"`
	} `yaml:"dataset"`
	Cache struct {
		Enabled  bool          `yaml:"enabled" default:"true"`
		Backend  string        `yaml:"backend" default:"file" validate:"oneof=file redis memory"`
		Dir      string        `yaml:"dir" default:"."`
		Validate bool          `yaml:"validate" default:"true"`
		TTL      time.Duration `yaml:"ttl" default:"0s"`
	} `yaml:"cache"`
	Models struct {
		Root string `yaml:"root" default:"models" validate:"required"`
	} `yaml:"models"`
	Prediction struct {
		Output string `yaml:"output" default:"prediction" validate:"required"`
	} `yaml:"prediction"`
	Training struct {
		DefaultProfile string                   `yaml:"default_profile" default:"dense" validate:"required"`
		Profiles       map[string]ProfileConfig `yaml:"profiles" validate:"dive"`
	} `yaml:"training"`
	Export struct {
		Strategy       string     `yaml:"strategy" default:"strat1" validate:"required"`
		Timeframe      string     `yaml:"timeframe" default:"1h" validate:"oneof=15m 1h 4h 1d 1w"`
		Window         string     `yaml:"window" default:"4d" validate:"required"`
		Step           string     `yaml:"step" default:"1w" validate:"required"`
		HistoryDays    int        `yaml:"history_days" default:"730" validate:"gte=1"`
		EndOffset      string     `yaml:"end_offset" default:"2d" validate:"required"`
		LabelOffset    string     `yaml:"label_offset" default:"8h" validate:"required"`
		LabelTimeframe string     `yaml:"label_timeframe" default:"15m" validate:"oneof=15m 1h 4h 1d 1w"`
		TrainRatio     float64    `yaml:"train_ratio" default:"0.75" validate:"gt=0,lt=1"`
		MovingAverages []MAConfig `yaml:"moving_averages" validate:"dive"`
		Interval       struct {
			DetailCandles  int `yaml:"detail_candles" default:"32" validate:"gte=2"`
			Forward        int `yaml:"forward" default:"32" validate:"gte=1"`
			HistoryCandles int `yaml:"history_candles" default:"10000" validate:"gte=1"`
		} `yaml:"interval"`
		PredictDir string `yaml:"predict_dir" default:"csv/predict" validate:"required"`
	} `yaml:"export"`
	Ingest struct {
		BaseURL     string        `yaml:"base_url" default:"https://api.binance.com" validate:"required,url"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
		PageLimit   int           `yaml:"page_limit" default:"500" validate:"gte=1,lte=1000"`
		HistoryDays int           `yaml:"history_days" default:"730" validate:"gte=1"`
		BatchSize   int           `yaml:"batch_size" default:"5000" validate:"gte=1"`
	} `yaml:"ingest"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		ModelCacheSize  int           `yaml:"model_cache_size" default:"32" validate:"gte=1"`
		RateLimit       struct {
			Enabled   bool    `yaml:"enabled" default:"true"`
			Burst     float64 `yaml:"burst" default:"20" validate:"gte=1"`
			PerSecond float64 `yaml:"per_second" default:"10" validate:"gt=0"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Runs struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"models/runs.db"`
	} `yaml:"runs"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"candlenet"`
		Table            string        `yaml:"table" default:"candles"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Redis struct {
		URL         string        `yaml:"url"`
		Addr        string        `yaml:"addr" default:"localhost:6379"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		Prefix      string        `yaml:"prefix" default:"candlenet"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"candlenet.predictions" validate:"required"`
		ClientID     string   `yaml:"client_id" default:"candlenet"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// ProfileConfig is the declarative description of one network and its training run.
type ProfileConfig struct {
	Variant     string          `yaml:"variant" validate:"required,oneof=dense lstm bilstm forest"`
	Layers      []LayerConfig   `yaml:"layers" validate:"required_unless=Variant forest,dive"`
	Loss        string          `yaml:"loss" validate:"omitempty,oneof=mse mae"`
	Optimizer   OptimizerConfig `yaml:"optimizer"`
	Epochs      int             `yaml:"epochs" validate:"gte=0"`
	BatchSize   int             `yaml:"batch_size" validate:"gte=0"`
	Seed        int64           `yaml:"seed"`
	Trees       int             `yaml:"trees" validate:"gte=0"`
	MaxDepth    int             `yaml:"max_depth" validate:"gte=0"`
	Flatten     bool            `yaml:"flatten"`
	LabelPolicy string          `yaml:"label_policy" validate:"required,oneof=filename last_row last_column"`
}

type LayerConfig struct {
	Units         int     `yaml:"units" validate:"gte=1"`
	Activation    string  `yaml:"activation" validate:"omitempty,oneof=linear relu sigmoid tanh"`
	Recurrent     bool    `yaml:"recurrent"`
	Bidirectional bool    `yaml:"bidirectional"`
	Dropout       float64 `yaml:"dropout" validate:"gte=0,lt=1"`
}

type OptimizerConfig struct {
	Name         string  `yaml:"name" validate:"omitempty,oneof=sgd momentum adam"`
	LearningRate float64 `yaml:"learning_rate" validate:"gte=0"`
	Momentum     float64 `yaml:"momentum" validate:"gte=0,lt=1"`
	Beta1        float64 `yaml:"beta1" validate:"gte=0,lt=1"`
	Beta2        float64 `yaml:"beta2" validate:"gte=0,lt=1"`
}

type MAConfig struct {
	Period      int  `yaml:"period" validate:"gte=2"`
	Exponential bool `yaml:"exponential"`
}

var validate = validator.New()

// Default returns a configuration populated from struct defaults and the built-in profiles.
func Default() (*Config, error) {
	var c Config
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// defaults first so explicit zero values in the file survive
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadOrCreate loads path, writing the default configuration there first when it does not exist.
func LoadOrCreate(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		c, err := Default()
		if err != nil {
			return nil, err
		}
		if err := c.Write(path); err != nil {
			return nil, err
		}
	}
	return Load(path)
}

// LoadWithEnv loads config from YAML (creating it when missing) and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := LoadOrCreate(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CANDLENET_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CANDLENET_PROFILE"); v != "" {
		c.Training.DefaultProfile = v
	}
	if v := os.Getenv("CANDLENET_CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CANDLENET_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CANDLENET_REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("CANDLENET_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CANDLENET_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Write serialises the configuration as YAML.
func (c *Config) Write(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, ok := c.Training.Profiles[c.Training.DefaultProfile]; !ok {
		return fmt.Errorf("training.default_profile %q is not defined", c.Training.DefaultProfile)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// Profile returns the named profile, or the default one when name is empty.
func (c *Config) Profile(name string) (ProfileConfig, string, bool) {
	if name == "" {
		name = c.Training.DefaultProfile
	}
	p, ok := c.Training.Profiles[name]
	return p, name, ok
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if len(c.Training.Profiles) == 0 {
		c.Training.Profiles = BuiltinProfiles()
	}
	if len(c.Export.MovingAverages) == 0 {
		c.Export.MovingAverages = []MAConfig{
			{Period: 20},
			{Period: 50, Exponential: true},
			{Period: 200, Exponential: true},
		}
	}
	return nil
}
