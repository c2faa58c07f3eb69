package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
//
// Precedence: defaults, then the YAML file, then environment variables with
// the loader's prefix (CYPHERFLOW by default), e.g. CYPHERFLOW_LLM_API_KEY.
type Config struct {
	Server     ServerConfig     `yaml:"server" env:"SERVER"`
	Schema     SchemaConfig     `yaml:"schema" env:"SCHEMA"`
	Refinement RefinementConfig `yaml:"refinement" env:"REFINEMENT"`
	Planner    PlannerConfig    `yaml:"planner" env:"PLANNER"`
	LLM        LLMConfig        `yaml:"llm" env:"LLM"`
	Graph      GraphConfig      `yaml:"graph" env:"GRAPH"`
	Literature LiteratureConfig `yaml:"literature" env:"LITERATURE"`
	Template   TemplateConfig   `yaml:"template" env:"TEMPLATE"`
	Redis      RedisConfig      `yaml:"redis" env:"REDIS"`
	Database   DatabaseConfig   `yaml:"database" env:"DATABASE"`
	Log        LogConfig        `yaml:"log" env:"LOG"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// AuthEnabled requires a bearer token on the query endpoint.
	AuthEnabled bool `yaml:"auth_enabled" env:"AUTH_ENABLED"`
	// JWTSecret signs and verifies API tokens when auth is enabled.
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// SchemaConfig points at the graph schema files.
type SchemaConfig struct {
	// Path is the Neo4j schema JSON.
	Path string `yaml:"path" env:"PATH"`
	// ValidValuesPath holds the constrained property values JSON. Optional.
	ValidValuesPath string `yaml:"valid_values_path" env:"VALID_VALUES_PATH"`
	// HintsPath holds relationship naming hints. Optional.
	HintsPath string `yaml:"hints_path" env:"HINTS_PATH"`
}

// RefinementConfig tunes the generate-validate-refine loop.
type RefinementConfig struct {
	MaxIterations int `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	AcceptScore   int `yaml:"accept_score" env:"ACCEPT_SCORE"`

	// MetricsPath is the JSONL file refinement runs are appended to.
	// Empty disables file metrics.
	MetricsPath string `yaml:"metrics_path" env:"METRICS_PATH"`
}

// PlannerConfig tunes the planner loop.
type PlannerConfig struct {
	MaxRounds int `yaml:"max_rounds" env:"MAX_ROUNDS"`
}

// LLMConfig configures the model endpoint shared by the generator, planner,
// and format agent.
type LLMConfig struct {
	BaseURL           string        `yaml:"base_url" env:"BASE_URL"`
	APIKey            string        `yaml:"api_key" env:"API_KEY"`
	Model             string        `yaml:"model" env:"MODEL"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries        int           `yaml:"max_retries" env:"MAX_RETRIES"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Burst             int           `yaml:"burst" env:"BURST"`
}

// GraphConfig configures the graph gateway client.
type GraphConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LiteratureConfig configures the abstract search client.
type LiteratureConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Limit   int           `yaml:"limit" env:"LIMIT"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// TemplateConfig configures the entity linking client.
type TemplateConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RedisConfig configures the answer cache.
type RedisConfig struct {
	// Enabled turns the answer cache on.
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	Addr         string        `yaml:"addr" env:"ADDR"`
	Password     string        `yaml:"password" env:"PASSWORD"`
	DB           int           `yaml:"db" env:"DB"`
	PoolSize     int           `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	AnswerTTL    time.Duration `yaml:"answer_ttl" env:"ANSWER_TTL"`
}

// DatabaseConfig configures the refinement run store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver   string `yaml:"driver" env:"DRIVER"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Name     string `yaml:"name" env:"NAME"`
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`
}

// LogConfig configures zap.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format       string   `yaml:"format" env:"FORMAT"`
	OutputPaths  []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// TelemetryConfig configures OTel export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// DSN returns the driver-specific connection string.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}

// Loader loads configuration with the builder pattern.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the CYPHERFLOW env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "CYPHERFLOW"}
}

// WithConfigPath sets the YAML file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration: defaults, then file, then environment.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		// A missing file falls through to defaults and env.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// MustLoad loads the configuration or panics.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithValidator((*Config).Validate).Load()
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}
	return cfg
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.AuthEnabled && c.Server.JWTSecret == "" {
		errs = append(errs, "jwt_secret is required when auth is enabled")
	}
	if c.Refinement.MaxIterations <= 0 {
		errs = append(errs, "refinement max_iterations must be positive")
	}
	if c.Refinement.AcceptScore < 0 || c.Refinement.AcceptScore > 100 {
		errs = append(errs, "refinement accept_score must be between 0 and 100")
	}
	if c.Planner.MaxRounds <= 0 {
		errs = append(errs, "planner max_rounds must be positive")
	}
	if c.Schema.Path == "" {
		errs = append(errs, "schema path is required")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
