package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Cache struct {
		MaxEntries      int           `yaml:"max_entries"`
		SweepInterval   time.Duration `yaml:"sweep_interval"`
		ServeStale      bool          `yaml:"serve_stale_on_error"`
		TTL             struct {
			Quote     time.Duration `yaml:"quote"`
			Index     time.Duration `yaml:"index"`
			History   time.Duration `yaml:"history"`
			Reference time.Duration `yaml:"reference"`
			Default   time.Duration `yaml:"default"`
		} `yaml:"ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Market struct {
		AdapterTimeout time.Duration       `yaml:"adapter_timeout"`
		Priority       map[string][]string `yaml:"priority"` // kind -> ordered source names
		StaleQuoteMax  time.Duration       `yaml:"stale_quote_max"`
		Holidays       []string            `yaml:"holidays"` // YYYY-MM-DD, exchange local
		Yahoo          struct {
			Enabled  bool    `yaml:"enabled"`
			BaseURL  string  `yaml:"base_url"`
			Suffix   string  `yaml:"symbol_suffix"`
			Capacity float64 `yaml:"rate_capacity"`
			Refill   float64 `yaml:"rate_refill_per_sec"`
		} `yaml:"yahoo"`
		NSE struct {
			Enabled  bool    `yaml:"enabled"`
			BaseURL  string  `yaml:"base_url"`
			Capacity float64 `yaml:"rate_capacity"`
			Refill   float64 `yaml:"rate_refill_per_sec"`
		} `yaml:"nse"`
		Stream struct {
			Enabled        bool          `yaml:"enabled"`
			APIKey         string        `yaml:"api_key"`
			WebSocketURL   string        `yaml:"websocket_url"`
			Symbols        []string      `yaml:"symbols"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
			MaxTradeAge    time.Duration `yaml:"max_trade_age"`
		} `yaml:"stream"`
	} `yaml:"market"`
	Retrieval struct {
		K                int     `yaml:"k"`
		LexicalWeight    float64 `yaml:"lexical_weight"`
		SemanticWeight   float64 `yaml:"semantic_weight"`
		MMRLambda        float64 `yaml:"mmr_lambda"`
		MMRSimilarityMax float64 `yaml:"mmr_similarity_max"`
		CandidateFactor  int     `yaml:"candidate_factor"`
		ChunksPath       string  `yaml:"chunks_path"`
		Embeddings       struct {
			Model    string `yaml:"model"`
			CacheDir string `yaml:"cache_dir"`
		} `yaml:"embeddings"`
	} `yaml:"retrieval"`
	Compliance struct {
		PatternsPath string `yaml:"patterns_path"`
		RegistryPath string `yaml:"registry_path"`
	} `yaml:"compliance"`
	Lexicon struct {
		Path     string   `yaml:"path"`
		Denylist []string `yaml:"denylist"`
	} `yaml:"lexicon"`
	Orchestrator struct {
		Deadline   time.Duration `yaml:"deadline"`
		ContextTTL time.Duration `yaml:"context_ttl"`
	} `yaml:"orchestrator"`
	Audit struct {
		Enabled bool `yaml:"enabled"`
		Kafka   struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic"`
			RequiredAcks int           `yaml:"required_acks"`
			Compression  string        `yaml:"compression"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
			Consumer     struct {
				Enabled    bool          `yaml:"enabled"`
				GroupID    string        `yaml:"group_id"`
				Workers    int           `yaml:"workers"`
				BufferSize int           `yaml:"buffer_size"`
				RetryMax   int           `yaml:"retry_max"`
				BackoffMin time.Duration `yaml:"backoff_min"`
				BackoffMax time.Duration `yaml:"backoff_max"`
			} `yaml:"consumer"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Enabled      bool          `yaml:"enabled"`
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Database     string        `yaml:"database"`
			User         string        `yaml:"user"`
			Password     string        `yaml:"password"`
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"clickhouse"`
	} `yaml:"audit"`
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
	if v := os.Getenv("STREAM_API_KEY"); v != "" {
		c.Market.Stream.APIKey = v
	}
	if v := os.Getenv("STREAM_SYMBOLS"); v != "" {
		c.Market.Stream.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Audit.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Audit.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.Audit.ClickHouse.Host = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 2000
	}
	if c.Cache.SweepInterval <= 0 {
		c.Cache.SweepInterval = 5 * time.Minute
	}
	if c.Cache.TTL.Quote <= 0 {
		c.Cache.TTL.Quote = time.Minute
	}
	if c.Cache.TTL.Index <= 0 {
		c.Cache.TTL.Index = 30 * time.Second
	}
	if c.Cache.TTL.History <= 0 {
		c.Cache.TTL.History = time.Hour
	}
	if c.Cache.TTL.Reference <= 0 {
		c.Cache.TTL.Reference = 24 * time.Hour
	}
	if c.Cache.TTL.Default <= 0 {
		c.Cache.TTL.Default = 10 * time.Minute
	}
	if c.Market.AdapterTimeout <= 0 {
		c.Market.AdapterTimeout = 3 * time.Second
	}
	if c.Market.StaleQuoteMax <= 0 {
		c.Market.StaleQuoteMax = 24 * time.Hour
	}
	if c.Retrieval.K <= 0 {
		c.Retrieval.K = 5
	}
	if c.Retrieval.LexicalWeight == 0 && c.Retrieval.SemanticWeight == 0 {
		c.Retrieval.LexicalWeight = 0.4
		c.Retrieval.SemanticWeight = 0.6
	}
	if c.Retrieval.MMRLambda == 0 {
		c.Retrieval.MMRLambda = 0.7
	}
	if c.Retrieval.MMRSimilarityMax == 0 {
		c.Retrieval.MMRSimilarityMax = 0.95
	}
	if c.Retrieval.CandidateFactor <= 0 {
		c.Retrieval.CandidateFactor = 4
	}
	if c.Orchestrator.Deadline <= 0 {
		c.Orchestrator.Deadline = 4 * time.Second
	}
	if c.Orchestrator.ContextTTL <= 0 {
		c.Orchestrator.ContextTTL = 2 * time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Retrieval.LexicalWeight < 0 || c.Retrieval.SemanticWeight < 0 {
		return fmt.Errorf("retrieval weights must be non-negative")
	}
	if c.Retrieval.MMRLambda < 0 || c.Retrieval.MMRLambda > 1 {
		return fmt.Errorf("retrieval.mmr_lambda must be in [0,1], got %v", c.Retrieval.MMRLambda)
	}
	if c.Market.Stream.Enabled && c.Market.Stream.WebSocketURL == "" {
		return fmt.Errorf("market.stream.websocket_url is required when the stream source is enabled")
	}
	if c.Audit.Enabled && len(c.Audit.Kafka.Brokers) == 0 {
		return fmt.Errorf("audit.kafka.brokers cannot be empty when audit is enabled")
	}
	for kind, order := range c.Market.Priority {
		switch kind {
		case "quote", "index", "history":
		default:
			return fmt.Errorf("market.priority has unknown kind '%s'", kind)
		}
		if len(order) == 0 {
			return fmt.Errorf("market.priority.%s cannot be empty", kind)
		}
	}
	return nil
}
