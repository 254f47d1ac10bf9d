package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	RunMigrations bool   `mapstructure:"RUN_MIGRATIONS"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	CheckInterval    time.Duration `mapstructure:"CHECK_INTERVAL"`
	MinCheckInterval time.Duration `mapstructure:"MIN_CHECK_INTERVAL"`
	BatchSize        int           `mapstructure:"BATCH_SIZE"`
	StorePageSize    int           `mapstructure:"STORE_PAGE_SIZE"`
	BatchPauseMin    time.Duration `mapstructure:"BATCH_PAUSE_MIN"`
	BatchPauseMax    time.Duration `mapstructure:"BATCH_PAUSE_MAX"`
	ItemPauseMin     time.Duration `mapstructure:"ITEM_PAUSE_MIN"`
	ItemPauseMax     time.Duration `mapstructure:"ITEM_PAUSE_MAX"`
	DomainMinDelay   time.Duration `mapstructure:"DOMAIN_MIN_DELAY"`

	StaticFetchTimeout  time.Duration `mapstructure:"STATIC_FETCH_TIMEOUT"`
	StaticFetchAttempts uint          `mapstructure:"STATIC_FETCH_ATTEMPTS"`
	MaxBodyBytes        int64         `mapstructure:"MAX_BODY_BYTES"`
	AllowPrivateTargets bool          `mapstructure:"ALLOW_PRIVATE_TARGETS"`
	ProxyURLs           []string      `mapstructure:"PROXY_URLS"`
	UserAgent           string        `mapstructure:"USER_AGENT"`

	RenderEnabled      bool          `mapstructure:"RENDER_ENABLED"`
	RenderTimeout      time.Duration `mapstructure:"RENDER_TIMEOUT"`
	RenderIdleWait     time.Duration `mapstructure:"RENDER_IDLE_WAIT"`
	RenderSelectorWait time.Duration `mapstructure:"RENDER_SELECTOR_WAIT"`
	RenderDelayMin     time.Duration `mapstructure:"RENDER_DELAY_MIN"`
	RenderDelayMax     time.Duration `mapstructure:"RENDER_DELAY_MAX"`
	RenderOnlyDomains  []string      `mapstructure:"RENDER_ONLY_DOMAINS"`

	EmailProvider         string `mapstructure:"EMAIL_PROVIDER"`
	BrevoAPIKey           string `mapstructure:"BREVO_API_KEY"`
	EmailFromAddress      string `mapstructure:"EMAIL_FROM_ADDRESS"`
	EmailFromName         string `mapstructure:"EMAIL_FROM_NAME"`
	GoogleCredentialsJSON string `mapstructure:"GOOGLE_CREDENTIALS_JSON"`

	FailureAlertThreshold int64 `mapstructure:"FAILURE_ALERT_THRESHOLD"`
}

// DefaultUserAgent is sent by both the static fetcher and the renderer.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, file string) (*Config, error) {
	v.SetConfigFile(file)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	_ = v.ReadInConfig()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ProxyURLs = splitList(cfg.ProxyURLs)
	cfg.RenderOnlyDomains = splitList(cfg.RenderOnlyDomains)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	positive := []struct {
		key string
		val time.Duration
	}{
		{"CHECK_INTERVAL", c.CheckInterval},
		{"STATIC_FETCH_TIMEOUT", c.StaticFetchTimeout},
		{"RENDER_TIMEOUT", c.RenderTimeout},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("%s must be positive, got %v", p.key, p.val)
		}
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CHECK_INTERVAL", "10m")
	v.SetDefault("MIN_CHECK_INTERVAL", "5m")
	v.SetDefault("BATCH_SIZE", 20)
	v.SetDefault("STORE_PAGE_SIZE", 100)
	v.SetDefault("BATCH_PAUSE_MIN", "800ms")
	v.SetDefault("BATCH_PAUSE_MAX", "2800ms")
	v.SetDefault("ITEM_PAUSE_MIN", "300ms")
	v.SetDefault("ITEM_PAUSE_MAX", "1200ms")
	v.SetDefault("DOMAIN_MIN_DELAY", "2s")

	v.SetDefault("STATIC_FETCH_TIMEOUT", "10s")
	v.SetDefault("STATIC_FETCH_ATTEMPTS", 2)
	v.SetDefault("MAX_BODY_BYTES", 5<<20)
	v.SetDefault("ALLOW_PRIVATE_TARGETS", false)
	v.SetDefault("PROXY_URLS", "")
	v.SetDefault("USER_AGENT", DefaultUserAgent)

	v.SetDefault("RENDER_ENABLED", true)
	v.SetDefault("RENDER_TIMEOUT", "25s")
	v.SetDefault("RENDER_IDLE_WAIT", "8s")
	v.SetDefault("RENDER_SELECTOR_WAIT", "5s")
	v.SetDefault("RENDER_DELAY_MIN", "1s")
	v.SetDefault("RENDER_DELAY_MAX", "3s")
	v.SetDefault("RENDER_ONLY_DOMAINS", "amazon.,noon.com,aliexpress.,temu.com")

	v.SetDefault("EMAIL_PROVIDER", "mock")
	v.SetDefault("BREVO_API_KEY", "")
	v.SetDefault("EMAIL_FROM_ADDRESS", "alerts@pricewatch.local")
	v.SetDefault("EMAIL_FROM_NAME", "Pricewatch")
	v.SetDefault("GOOGLE_CREDENTIALS_JSON", "")

	v.SetDefault("FAILURE_ALERT_THRESHOLD", 5)
}

// splitList accepts both real lists and a single comma-separated entry,
// which is what an env var decodes to.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
