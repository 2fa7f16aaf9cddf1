// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // memory|sqlite|postgres
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // translation cache entries
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type AIConfig struct {
	Provider        string        `yaml:"provider"` // openai|gemini|multi|noop
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	DefaultModel    string        `yaml:"default_model"`
	MetisKey        string        `yaml:"metis_key"`
	MetisBaseURL    string        `yaml:"metis_base_url"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent AI calls
	MaxPromptTokens int           `yaml:"max_prompt_tokens"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	Retries         uint64        `yaml:"retries"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

type SandboxConfig struct {
	Isolation      string            `yaml:"isolation"`     // process|docker
	AllowNetwork   bool              `yaml:"allow_network"` // process isolation only
	Workers        int               `yaml:"workers"`
	Timeout        time.Duration     `yaml:"timeout"`
	CompileTimeout time.Duration     `yaml:"compile_timeout"`
	MemoryMB       int               `yaml:"memory_mb"`
	OutputLimit    int               `yaml:"output_limit"` // bytes
	WorkDir        string            `yaml:"work_dir"`
	Python         string            `yaml:"python"`
	CC             string            `yaml:"cc"`
	CXX            string            `yaml:"cxx"`
	Javac          string            `yaml:"javac"`
	Java           string            `yaml:"java"`
	DockerImages   map[string]string `yaml:"docker_images"`
}

type VerifyConfig struct {
	Parallelism int     `yaml:"parallelism"`
	AbsEpsilon  float64 `yaml:"abs_epsilon"`
	RelEpsilon  float64 `yaml:"rel_epsilon"`
}

type TestGenConfig struct {
	MaxCases         int       `yaml:"max_cases"`
	IntBoundaries    []int64   `yaml:"int_boundaries"`
	IntEdge          *int64    `yaml:"int_edge"`
	IntTypical       *int64    `yaml:"int_typical"`
	IntSamples       [][]int64 `yaml:"int_samples"`
	FloatBoundaries  []float64 `yaml:"float_boundaries"`
	StringBoundaries []string  `yaml:"string_boundaries"`
}

type JobConfig struct {
	Deadline     time.Duration `yaml:"deadline"`
	HistoryLimit int           `yaml:"history_limit"` // default page size
	HistoryMax   int           `yaml:"history_max"`
}

type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type APIConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"` // empty disables auth
	RateLimit  int           `yaml:"rate_limit"` // requests per window per client, 0 disables
	RateWindow time.Duration `yaml:"rate_window"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Verify   VerifyConfig   `yaml:"verify"`
	TestGen  TestGenConfig  `yaml:"testgen"`
	Job      JobConfig      `yaml:"job"`
	Archive  ArchiveConfig  `yaml:"archive"`
	API      APIConfig      `yaml:"api"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses -config and -dev from the command line and loads the file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()
	return Load(configPath, dev)
}

// Load reads .env (if present), the yaml file (if present), applies
// environment overrides, defaults and minimal validation.
func Load(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist) && dev:
			// dev runs fall back to defaults
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	applyEnv(&cfg)
	if cfg.Sandbox.Isolation == "" && !dev {
		// untrusted code gets a container unless the operator opts out
		cfg.Sandbox.Isolation = "docker"
	}
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied and nothing external
// configured (memory store, noop AI backend, process isolation).
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	override(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.API.JWTSecret, "API_JWT_SECRET")
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 3 * time.Minute
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = cfg.HTTP.RequestTimeout + 10*time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "memory"
		if cfg.Database.URL != "" {
			cfg.Database.Driver = "postgres"
		}
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 30 * time.Second
	}

	if cfg.AI.Provider == "" {
		switch {
		case cfg.AI.OpenAIKey != "" && cfg.AI.GeminiKey != "":
			cfg.AI.Provider = "multi"
		case cfg.AI.OpenAIKey != "" || cfg.AI.MetisKey != "":
			cfg.AI.Provider = "openai"
		case cfg.AI.GeminiKey != "":
			cfg.AI.Provider = "gemini"
		default:
			cfg.AI.Provider = "noop"
		}
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.MetisBaseURL == "" {
		cfg.AI.MetisBaseURL = "https://api.metisai.ir/openai/v1"
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 8000
	}
	if cfg.AI.CallTimeout <= 0 {
		cfg.AI.CallTimeout = 60 * time.Second
	}
	if cfg.AI.Retries == 0 {
		cfg.AI.Retries = 2
	}
	if cfg.AI.BreakerFailures == 0 {
		cfg.AI.BreakerFailures = 5
	}
	if cfg.AI.BreakerCooldown <= 0 {
		cfg.AI.BreakerCooldown = 30 * time.Second
	}

	sb := &cfg.Sandbox
	if sb.Isolation == "" {
		sb.Isolation = "process"
	}
	if sb.Workers <= 0 {
		sb.Workers = 4
	}
	if sb.Timeout <= 0 {
		sb.Timeout = 5 * time.Second
	}
	if sb.CompileTimeout <= 0 {
		sb.CompileTimeout = 30 * time.Second
	}
	if sb.MemoryMB <= 0 {
		sb.MemoryMB = 256
	}
	if sb.OutputLimit <= 0 {
		sb.OutputLimit = 1 << 20
	}
	defaultStr(&sb.Python, "python3")
	defaultStr(&sb.CC, "gcc")
	defaultStr(&sb.CXX, "g++")
	defaultStr(&sb.Javac, "javac")
	defaultStr(&sb.Java, "java")
	if sb.DockerImages == nil {
		sb.DockerImages = map[string]string{}
	}
	for lang, image := range map[string]string{
		"python": "python:3.11-slim",
		"c":      "gcc:13",
		"cpp":    "gcc:13",
		"java":   "eclipse-temurin:21-jdk",
		"go":     "debian:bookworm-slim",
	} {
		if sb.DockerImages[lang] == "" {
			sb.DockerImages[lang] = image
		}
	}

	if cfg.Verify.Parallelism <= 0 {
		cfg.Verify.Parallelism = 4
	}
	if cfg.Verify.AbsEpsilon <= 0 {
		cfg.Verify.AbsEpsilon = 1e-9
	}
	if cfg.Verify.RelEpsilon <= 0 {
		cfg.Verify.RelEpsilon = 1e-6
	}
	if cfg.TestGen.MaxCases <= 0 {
		cfg.TestGen.MaxCases = 20
	}
	if cfg.Job.Deadline <= 0 {
		cfg.Job.Deadline = 2 * time.Minute
	}
	if cfg.Job.HistoryLimit <= 0 {
		cfg.Job.HistoryLimit = 25
	}
	if cfg.Job.HistoryMax <= 0 {
		cfg.Job.HistoryMax = 200
	}
	if cfg.API.RateWindow <= 0 {
		cfg.API.RateWindow = time.Minute
	}
}

// Validate performs minimal cross-field checks.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.Sandbox.Isolation {
	case "process", "docker":
	default:
		return fmt.Errorf("unknown sandbox.isolation %q", c.Sandbox.Isolation)
	}
	switch c.AI.Provider {
	case "noop":
	case "openai":
		if c.AI.OpenAIKey == "" && c.AI.MetisKey == "" {
			return errors.New("ai.openai_key (or OPENAI_API_KEY) is required for provider openai")
		}
	case "gemini":
		if c.AI.GeminiKey == "" {
			return errors.New("ai.gemini_key (or GEMINI_API_KEY) is required for provider gemini")
		}
	case "multi":
		if c.AI.OpenAIKey == "" && c.AI.GeminiKey == "" && c.AI.MetisKey == "" {
			return errors.New("provider multi needs at least one backend key")
		}
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}
	if c.Archive.Enabled && (c.Archive.Endpoint == "" || c.Archive.Bucket == "") {
		return errors.New("archive.endpoint and archive.bucket are required when archive is enabled")
	}
	if c.Verify.RelEpsilon >= 1 {
		return errors.New("verify.rel_epsilon must be < 1")
	}
	return nil
}

func defaultStr(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
