package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	envPrefix      = "PW"
	homeConfigFile = "~/.pricewatch.yaml"
	localConfig    = "config/pricewatch.yaml"
)

var (
	ErrEmptyStoragePath   = errors.New("storage.path must be set for the sqlite driver")
	ErrEmptyPostgresDSN   = errors.New("storage.dsn must be set for the postgres driver")
	ErrUnknownDriver      = errors.New("storage.driver must be one of: sqlite, postgres")
	ErrInvalidDelayWindow = errors.New("fetch.min_delay must not exceed fetch.max_delay")
	ErrNoCategories       = errors.New("no categories configured")
)

type Config struct {
	Env        string     `mapstructure:"env"` // Env is the current environment: local, development, production.
	Storage    Storage    `mapstructure:"storage"`
	Fetch      Fetch      `mapstructure:"fetch"`
	Extract    Extract    `mapstructure:"extract"`
	Collect    Collect    `mapstructure:"collect"`
	Dashboard  Dashboard  `mapstructure:"dashboard"`
	Tg         Telegram   `mapstructure:"telegram"`
	Categories []Category `mapstructure:"categories"`
}

type Storage struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"` // Path is the sqlite database file.
	DSN    string `mapstructure:"dsn"`  // DSN is the postgres connection string.
}

type Fetch struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	EvasionTimeout   time.Duration `mapstructure:"evasion_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryWait        time.Duration `mapstructure:"retry_wait"` // RetryWait is the exponential backoff base.
	MinDelay         time.Duration `mapstructure:"min_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`
	UseProxy         bool          `mapstructure:"use_proxy"`
	ProxyList        []string      `mapstructure:"proxy_list"`
	SingleProxy      string        `mapstructure:"single_proxy"`
	UseEvasion       bool          `mapstructure:"use_evasion"`
	UseBrowser       bool          `mapstructure:"use_browser"`
	BrowserHeadless  bool          `mapstructure:"browser_headless"`
	BrowserTimeout   time.Duration `mapstructure:"browser_timeout"`
	BrowserBin       string        `mapstructure:"browser_bin"`
	WarmupURL        string        `mapstructure:"warmup_url"`
	ScrollIterations int           `mapstructure:"scroll_iterations"`
}

type Extract struct {
	DetailFallback   bool `mapstructure:"detail_fallback"`
	MaxDetailFetches int  `mapstructure:"max_detail_fetches"`
}

type Collect struct {
	InterPageDelay         time.Duration `mapstructure:"inter_page_delay"`
	InterCategoryDelay     time.Duration `mapstructure:"inter_category_delay"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
	PageParam              string        `mapstructure:"page_param"`
	SnapshotDir            string        `mapstructure:"snapshot_dir"`
}

type Dashboard struct {
	Addr string `mapstructure:"addr"`
}

type Telegram struct {
	Token   string        `mapstructure:"token"`   // Token is an unique telgram bot token.
	Timeout time.Duration `mapstructure:"timeout"` // Timeout is a poller timeout duration.
}

// Category is one monitored listing search.
type Category struct {
	Name               string `mapstructure:"name"`
	URL                string `mapstructure:"url"`
	MaxPages           int    `mapstructure:"max_pages"`
	MaxProductsPerPage int    `mapstructure:"max_products_per_page"`
	MaxProducts        int    `mapstructure:"max_products"` // MaxProducts caps the whole run; 0 means no cap.
	Description        string `mapstructure:"description"`
}

// Load reads .env, the optional YAML file and PW_* environment variables, in increasing priority.
// An empty configPath falls back to ~/.pricewatch.yaml and then ./config/pricewatch.yaml.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	path, err := resolveConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err = v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err = v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "pricewatch.db")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.evasion_timeout", "20s")
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.retry_wait", "5s")
	v.SetDefault("fetch.min_delay", "2s")
	v.SetDefault("fetch.max_delay", "5s")
	v.SetDefault("fetch.use_proxy", false)
	v.SetDefault("fetch.proxy_list", []string{})
	v.SetDefault("fetch.single_proxy", "")
	v.SetDefault("fetch.use_evasion", true)
	v.SetDefault("fetch.use_browser", false)
	v.SetDefault("fetch.browser_headless", true)
	v.SetDefault("fetch.browser_timeout", "30s")
	v.SetDefault("fetch.browser_bin", "")
	v.SetDefault("fetch.warmup_url", "https://www.mercadolivre.com.br/")
	v.SetDefault("fetch.scroll_iterations", 5)

	v.SetDefault("extract.detail_fallback", true)
	v.SetDefault("extract.max_detail_fetches", 5)

	v.SetDefault("collect.inter_page_delay", "3s")
	v.SetDefault("collect.inter_category_delay", "10s")
	v.SetDefault("collect.max_consecutive_failures", 2)
	v.SetDefault("collect.page_param", "_Paging")
	v.SetDefault("collect.snapshot_dir", "")

	v.SetDefault("dashboard.addr", ":8080")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.timeout", "15s")
}

func resolveConfigFile(configPath string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}

	home, err := homedir.Expand(homeConfigFile)
	if err == nil {
		if _, statErr := os.Stat(home); statErr == nil {
			return home, nil
		}
	}

	if _, err = os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	return "", nil
}

// Validate reports the first configuration error that would make a run meaningless.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return ErrEmptyStoragePath
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return ErrEmptyPostgresDSN
		}
	default:
		return ErrUnknownDriver
	}

	if c.Fetch.MinDelay > c.Fetch.MaxDelay {
		return ErrInvalidDelayWindow
	}

	return nil
}

// Category looks up a configured category by name.
func (c *Config) Category(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}

	return Category{}, false
}

// Proxies returns the configured proxy pool, or nil when proxies are disabled.
// A single fixed proxy takes precedence over the list.
func (f Fetch) Proxies() []string {
	if !f.UseProxy {
		return nil
	}
	if f.SingleProxy != "" {
		return []string{f.SingleProxy}
	}

	return f.ProxyList
}
