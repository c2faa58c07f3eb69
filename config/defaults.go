package config

import "time"

// DefaultConfig returns the default configuration for every section.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			AuthEnabled:     false,
		},
		Schema: SchemaConfig{
			Path:            "data/neo4j_schema.json",
			ValidValuesPath: "data/valid_values.json",
			HintsPath:       "",
		},
		Refinement: RefinementConfig{
			MaxIterations: 5,
			AcceptScore:   90,
			MetricsPath:   "logs/refinement_metrics.jsonl",
		},
		Planner: PlannerConfig{
			MaxRounds: 5,
		},
		LLM: LLMConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-2024-11-20",
			Timeout:    time.Minute,
			MaxRetries: 3,
		},
		Graph: GraphConfig{
			Timeout: time.Minute,
		},
		Literature: LiteratureConfig{
			Limit:   10,
			Timeout: 30 * time.Second,
		},
		Template: TemplateConfig{
			Timeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			AnswerTTL:    24 * time.Hour,
		},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Name:    "data/cypherflow.db",
			SSLMode: "disable",
		},
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			OutputPaths:  []string{"stdout"},
			EnableCaller: true,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "cypherflow",
			SampleRate:   0.1,
		},
	}
}
