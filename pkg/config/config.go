package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"AnalystCouncil/pkg/util"

	"gopkg.in/yaml.v3"
)

type ExpertConfig struct {
	Name            string  `yaml:"name"`
	Role            string  `yaml:"role"`
	SystemPrompt    string  `yaml:"system_prompt"`
	PrimaryModel    string  `yaml:"primary_model"`
	FallbackModel   string  `yaml:"fallback_model"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	AnalysisFocus   string  `yaml:"analysis_focus"`
	FallbackEnabled *bool   `yaml:"fallback_enabled"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Council struct {
		QuorumThreshold  int            `yaml:"quorum_threshold"`
		AttemptTimeout   time.Duration  `yaml:"attempt_timeout"`
		RunTimeout       time.Duration  `yaml:"run_timeout"`
		Experts          []ExpertConfig `yaml:"experts"`
		Chairman         ExpertConfig   `yaml:"chairman"`
		SynthesisEnabled *bool          `yaml:"synthesis_enabled"`
	} `yaml:"council"`
	Providers struct {
		Anthropic struct {
			APIKey string `yaml:"api_key"`
		} `yaml:"anthropic"`
		OpenAI struct {
			APIKey string `yaml:"api_key"`
		} `yaml:"openai"`
	} `yaml:"providers"`
	History struct {
		Backend string `yaml:"backend"` // clickhouse or file
		File    struct {
			Path string `yaml:"path"`
		} `yaml:"file"`
		Queue struct {
			Enabled bool   `yaml:"enabled"`
			Name    string `yaml:"name"`
			Workers int    `yaml:"workers"`
		} `yaml:"queue"`
	} `yaml:"history"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Finnhub struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"finnhub"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		QuoteTTL time.Duration `yaml:"quote_ttl"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Providers.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Finnhub.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		c.History.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("QUORUM_THRESHOLD"); v != "" {
		c.Council.QuorumThreshold = util.ParseIntDefault(v, c.Council.QuorumThreshold)
	}

	// Overrides can invalidate a previously valid config
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Council.QuorumThreshold == 0 {
		c.Council.QuorumThreshold = 3
	}
	if c.Council.AttemptTimeout == 0 {
		c.Council.AttemptTimeout = 180 * time.Second
	}
	if c.Council.RunTimeout == 0 {
		c.Council.RunTimeout = 10 * time.Minute
	}
	if c.History.Backend == "" {
		c.History.Backend = "file"
	}
	if c.History.File.Path == "" {
		c.History.File.Path = "ANALYSIS_HISTORY.md"
	}
	if c.Cache.QuoteTTL == 0 {
		c.Cache.QuoteTTL = 30 * time.Second
	}
	for i := range c.Council.Experts {
		applyExpertDefaults(&c.Council.Experts[i], 2000, 0.7)
	}
	applyExpertDefaults(&c.Council.Chairman, 4000, 0.3)
}

func applyExpertDefaults(e *ExpertConfig, maxTokens int, temperature float64) {
	if e.MaxTokens == 0 {
		e.MaxTokens = maxTokens
	}
	if e.Temperature == 0 {
		e.Temperature = temperature
	}
	if e.FallbackEnabled == nil {
		enabled := true
		e.FallbackEnabled = &enabled
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Council.QuorumThreshold < 1 {
		return fmt.Errorf("council.quorum_threshold must be at least 1, got %d", c.Council.QuorumThreshold)
	}
	seen := make(map[string]bool, len(c.Council.Experts))
	for i, e := range c.Council.Experts {
		if err := validateExpert(&e); err != nil {
			return fmt.Errorf("council.experts[%d] (%s): %w", i, e.Name, err)
		}
		if seen[e.Name] {
			return fmt.Errorf("council.experts[%d]: duplicate expert name '%s'", i, e.Name)
		}
		seen[e.Name] = true
	}
	// An empty experts list or chairman selects the built-in council.
	if c.Council.Chairman.Name != "" {
		if err := validateExpert(&c.Council.Chairman); err != nil {
			return fmt.Errorf("council.chairman: %w", err)
		}
	}
	if c.History.Backend != "clickhouse" && c.History.Backend != "file" {
		return fmt.Errorf("history.backend must be 'clickhouse' or 'file', got '%s'", c.History.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

func validateExpert(e *ExpertConfig) error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if e.PrimaryModel == "" {
		return fmt.Errorf("primary_model is required")
	}
	if e.Temperature < 0 || e.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", e.Temperature)
	}
	if e.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be positive, got %d", e.MaxTokens)
	}
	return nil
}
