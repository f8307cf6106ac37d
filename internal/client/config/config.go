package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"algocrack/pkg/utils/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGatewayURL        = "http://localhost:8080"
	DefaultTimeout           = 10 * time.Second
	DefaultSignInPath        = "/auth/signin"
	DefaultLanguage          = "java"
	DefaultSubmitAttempts    = 30
	DefaultSubmitInterval    = time.Second
	DefaultRunAttempts       = 20
	DefaultRunInterval       = 500 * time.Millisecond
	DefaultRealtimeMode      = RealtimeSTOMP
	DefaultRealtimeURL       = "ws://localhost:8080/ws/websocket"
	DefaultDestinationPrefix = "/topic/submissions/"
	DefaultReconnectDelay    = 5 * time.Second
	DefaultHeartbeat         = 4 * time.Second
	DefaultFallbackAfter     = 10 * time.Second
	DefaultKafkaTopic        = "judge.status.events"
	DefaultCacheTTL          = 10 * time.Minute
)

// Realtime delivery modes.
const (
	RealtimeSTOMP = "stomp"
	RealtimeKafka = "kafka"
	RealtimeOff   = "off"
)

const envPrefix = "ALGOCRACK_"

// Config holds CLI configuration.
type Config struct {
	Services        ServicesConfig `yaml:"services"`
	Timeout         time.Duration  `yaml:"timeout"`
	TokenStatePath  string         `yaml:"tokenStatePath"`
	SignInPath      string         `yaml:"signInPath"`
	DefaultLanguage string         `yaml:"defaultLanguage"`
	Poll            PollConfig     `yaml:"poll"`
	Realtime        RealtimeConfig `yaml:"realtime"`
	Cache           CacheConfig    `yaml:"cache"`
	Log             logger.Config  `yaml:"log"`
	PrettyJSON      *bool          `yaml:"prettyJSON"`
}

// ServicesConfig holds base URLs. Empty entries fall back to the gateway.
type ServicesConfig struct {
	Gateway    string `yaml:"gateway"`
	Problem    string `yaml:"problem"`
	Submission string `yaml:"submission"`
	Execution  string `yaml:"execution"`
}

// Budget is a poll attempt budget.
type Budget struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

// PollConfig holds the poll budgets for the submit path and the legacy run path.
type PollConfig struct {
	Submit Budget `yaml:"submit"`
	Run    Budget `yaml:"run"`
}

// RealtimeConfig holds push-delivery settings.
type RealtimeConfig struct {
	Mode              string        `yaml:"mode"`
	URL               string        `yaml:"url"`
	DestinationPrefix string        `yaml:"destinationPrefix"`
	ReconnectDelay    time.Duration `yaml:"reconnectDelay"`
	HeartbeatIncoming time.Duration `yaml:"heartbeatIncoming"`
	HeartbeatOutgoing time.Duration `yaml:"heartbeatOutgoing"`
	FallbackAfter     time.Duration `yaml:"fallbackAfter"`
	Kafka             KafkaConfig   `yaml:"kafka"`
}

// KafkaConfig is used when realtime mode is "kafka".
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// CacheConfig enables the problem catalog cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `yaml:"redisAddr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
}

// Load reads the YAML file at path, then the optional env file, then process env.
// A missing config file is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file failed: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}

	env, err := readEnv(envFile)
	if err != nil {
		return cfg, err
	}
	if err := applyEnv(&cfg, env); err != nil {
		return cfg, err
	}
	ApplyDefaults(&cfg)
	return cfg, nil
}

// readEnv merges the env file with the process environment; the process wins.
func readEnv(envFile string) (map[string]string, error) {
	env := map[string]string{}
	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file failed: %w", err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, envPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

func applyEnv(cfg *Config, env map[string]string) error {
	lookup := func(name string) (string, bool) {
		v, ok := env[envPrefix+name]
		return v, ok && v != ""
	}
	if v, ok := lookup("GATEWAY_URL"); ok {
		cfg.Services.Gateway = v
	}
	if v, ok := lookup("PROBLEM_URL"); ok {
		cfg.Services.Problem = v
	}
	if v, ok := lookup("SUBMISSION_URL"); ok {
		cfg.Services.Submission = v
	}
	if v, ok := lookup("STATE_PATH"); ok {
		cfg.TokenStatePath = v
	}
	if v, ok := lookup("REALTIME_MODE"); ok {
		cfg.Realtime.Mode = v
	}
	if v, ok := lookup("REALTIME_URL"); ok {
		cfg.Realtime.URL = v
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok {
		cfg.Realtime.Kafka.Brokers = strings.Split(v, ",")
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		cfg.Cache.RedisAddr = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", envPrefix, err)
		}
		cfg.Timeout = d
	}
	if v, ok := lookup("SUBMIT_POLL_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sSUBMIT_POLL_ATTEMPTS: %w", envPrefix, err)
		}
		cfg.Poll.Submit.Attempts = n
	}
	return nil
}

// ApplyDefaults fills every unset field.
func ApplyDefaults(cfg *Config) {
	if cfg.Services.Gateway == "" {
		cfg.Services.Gateway = DefaultGatewayURL
	}
	if cfg.Services.Problem == "" {
		cfg.Services.Problem = cfg.Services.Gateway
	}
	if cfg.Services.Submission == "" {
		cfg.Services.Submission = cfg.Services.Gateway
	}
	if cfg.Services.Execution == "" {
		cfg.Services.Execution = cfg.Services.Gateway
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TokenStatePath == "" {
		cfg.TokenStatePath = defaultStatePath()
	}
	if cfg.SignInPath == "" {
		cfg.SignInPath = DefaultSignInPath
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = DefaultLanguage
	}
	applyBudget(&cfg.Poll.Submit, DefaultSubmitAttempts, DefaultSubmitInterval)
	applyBudget(&cfg.Poll.Run, DefaultRunAttempts, DefaultRunInterval)

	rt := &cfg.Realtime
	if rt.Mode == "" {
		rt.Mode = DefaultRealtimeMode
	}
	rt.Mode = strings.ToLower(rt.Mode)
	if rt.URL == "" {
		rt.URL = DefaultRealtimeURL
	}
	if rt.DestinationPrefix == "" {
		rt.DestinationPrefix = DefaultDestinationPrefix
	}
	if rt.ReconnectDelay == 0 {
		rt.ReconnectDelay = DefaultReconnectDelay
	}
	if rt.HeartbeatIncoming == 0 {
		rt.HeartbeatIncoming = DefaultHeartbeat
	}
	if rt.HeartbeatOutgoing == 0 {
		rt.HeartbeatOutgoing = DefaultHeartbeat
	}
	if rt.FallbackAfter == 0 {
		rt.FallbackAfter = DefaultFallbackAfter
	}
	if rt.Kafka.Topic == "" {
		rt.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Log.OutputPath == "" {
		cfg.Log.OutputPath = "stderr"
	}
	if cfg.PrettyJSON == nil {
		value := true
		cfg.PrettyJSON = &value
	}
}

func applyBudget(b *Budget, attempts int, interval time.Duration) {
	if b.Attempts <= 0 {
		b.Attempts = attempts
	}
	if b.Interval <= 0 {
		b.Interval = interval
	}
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".algocrack", "state.json")
	}
	return filepath.Join(home, ".algocrack", "state.json")
}
