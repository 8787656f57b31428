package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	StateFile       string
	Journal         string
	LogLevel        string
	PositionDeposit uint64

	ChainID      uint64
	RPCURL       string
	MaxRetries   int
	RetryBackoff time.Duration

	PGDSN string

	LogsOut      string
	DecodeErrors string
	Topic0Map    map[string]string

	Window         string
	BatchSize      int
	AggregateState string
	RecomputeFrom  string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("state", "./data/clmm_state.json")
	v.SetDefault("journal", "./data/journal.jsonl")
	v.SetDefault("log-level", "info")
	v.SetDefault("position-deposit", uint64(1_000_000))
	v.SetDefault("chain-id", uint64(31337))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("logs-out", "./data/logs.jsonl")
	v.SetDefault("errors", "./data/decode_errors.jsonl")
	v.SetDefault("window", "5m")
	v.SetDefault("batch-size", 1000)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		StateFile:       v.GetString("state"),
		Journal:         v.GetString("journal"),
		LogLevel:        v.GetString("log-level"),
		PositionDeposit: v.GetUint64("position-deposit"),
		ChainID:         v.GetUint64("chain-id"),
		RPCURL:          v.GetString("rpc"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		PGDSN:           v.GetString("pg-dsn"),
		LogsOut:         v.GetString("logs-out"),
		DecodeErrors:    v.GetString("errors"),
		Topic0Map:       getStringMap(v, "topic0-map"),
		Window:          v.GetString("window"),
		BatchSize:       v.GetInt("batch-size"),
		AggregateState:  v.GetString("aggregate-state"),
		RecomputeFrom:   v.GetString("recompute-from"),
	}

	return cfg, nil
}

// Validate checks the fields every command depends on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.StateFile) == "" {
		return fmt.Errorf("state is required")
	}
	if strings.TrimSpace(c.Journal) == "" {
		return fmt.Errorf("journal is required")
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log-level: %w", err)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must be >= 0")
	}
	return nil
}

// WindowSeconds parses Window into whole seconds.
func (c Config) WindowSeconds() (uint64, error) {
	windowDuration, err := time.ParseDuration(c.Window)
	if err != nil {
		return 0, fmt.Errorf("invalid window: %w", err)
	}
	if windowDuration <= 0 {
		return 0, fmt.Errorf("window must be positive")
	}
	windowSeconds := uint64(windowDuration.Seconds())
	if windowSeconds == 0 {
		return 0, fmt.Errorf("window must be at least 1s")
	}
	return windowSeconds, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
