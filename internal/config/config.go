package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Hydration   HydrationConfig   `mapstructure:"hydration"`
	Paging      PagingConfig      `mapstructure:"paging"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Vision      VisionConfig      `mapstructure:"vision"`
	ImageSearch ImageSearchConfig `mapstructure:"image_search"`
	SerpAPI     SerpAPIConfig     `mapstructure:"serpapi"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the audit database. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

// StorageConfig describes the S3-compatible bucket used to archive product images.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

type CatalogConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// HydrationConfig bounds the image downloads done for every fetched chunk.
type HydrationConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	MaxImageBytes int64         `mapstructure:"max_image_bytes"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type PagingConfig struct {
	MaxBackendPages int `mapstructure:"max_backend_pages"`
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

type GeminiConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	TextModel  string        `mapstructure:"text_model"`
	ImageModel string        `mapstructure:"image_model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type VisionConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ImageSearchConfig configures Google Custom Search. Keys are rotated when one
// runs out of quota.
// CacheSize and CacheTTL bound the result cache shared by both image search
// providers; a negative size turns it off.
type ImageSearchConfig struct {
	APIKeys   []string      `mapstructure:"api_keys"`
	CX        string        `mapstructure:"cx"`
	BaseURL   string        `mapstructure:"base_url"`
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type SerpAPIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment settings under their conventional names
	v.BindEnv("catalog.base_url", "CATALOG_BASE_URL")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("vision.api_key", "GOOGLE_VISION_API_KEY")
	v.BindEnv("image_search.api_keys", "GOOGLE_CSE_API_KEYS")
	v.BindEnv("image_search.cx", "GOOGLE_CSE_CX")
	v.BindEnv("serpapi.api_key", "SERPAPI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ImageSearch.APIKeys = splitKeys(cfg.ImageSearch.APIKeys)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/prodcat.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "product-images")
	v.SetDefault("storage.prefix", "products")

	v.SetDefault("catalog.base_url", "https://drrsystemas4.azurewebsites.net")
	v.SetDefault("catalog.timeout", 30*time.Second)

	v.SetDefault("hydration.concurrency", 5)
	v.SetDefault("hydration.max_image_bytes", 4*1024*1024)
	v.SetDefault("hydration.timeout", 20*time.Second)

	v.SetDefault("paging.max_backend_pages", 100)
	v.SetDefault("paging.default_page_size", 25)
	v.SetDefault("paging.max_page_size", 500)

	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.text_model", "gemini-2.5-flash-lite")
	v.SetDefault("gemini.image_model", "gemini-2.5-flash-image")
	v.SetDefault("gemini.timeout", 90*time.Second)

	v.SetDefault("vision.base_url", "https://vision.googleapis.com/v1")
	v.SetDefault("image_search.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("image_search.cache_size", 256)
	v.SetDefault("image_search.cache_ttl", 30*time.Minute)
	v.SetDefault("serpapi.base_url", "https://serpapi.com/search.json")
}

// splitKeys accepts keys given as a list or as one comma-separated env value.
func splitKeys(raw []string) []string {
	var keys []string
	for _, item := range raw {
		for _, k := range strings.Split(item, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	return keys
}
