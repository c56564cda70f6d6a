package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

// Config es la configuración completa del scanner.
type Config struct {
	Scanner   ScannerConfig   `yaml:"scanner"`
	Filter    FilterConfig    `yaml:"filter"`
	Reference ReferenceConfig `yaml:"reference"`
	API       APIConfig       `yaml:"api"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// ScannerConfig controla el ciclo de escaneo.
type ScannerConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	Catalog         string `yaml:"catalog"` // app id del catálogo (730 = CS2)
	PageSize        int    `yaml:"page_size"`
	MaxItems        int    `yaml:"max_items"` // tope de listings por ciclo
	MaxResults      int    `yaml:"max_results"`
	Workers         int    `yaml:"workers"` // lookups cross-reference simultáneos
	MinPriceCents   int64  `yaml:"min_price_cents"`
	MaxPriceCents   int64  `yaml:"max_price_cents"`
}

// FilterConfig contiene los umbrales de las etapas de filtrado.
type FilterConfig struct {
	DenyCategories    []string `yaml:"deny_categories"`
	AllowCategories   []string `yaml:"allow_categories"` // informacional, nunca rechaza
	PriceFloorCents   int64    `yaml:"price_floor_cents"`
	MinSalesVolume    int      `yaml:"min_sales_volume"`
	MinAvgPriceCents  float64  `yaml:"min_avg_price_cents"`
	BoostPercent      float64  `yaml:"boost_percent"`       // techo: precio vs media histórica
	GoodPointsPercent float64  `yaml:"good_points_percent"` // % mínimo de ventas rentables
	OutlierThreshold  float64  `yaml:"outlier_threshold"`   // |z| máximo
	MinLiquidityScore float64  `yaml:"min_liquidity_score"`
	MaxTimeToSellDays float64  `yaml:"max_time_to_sell_days"`
}

// ReferenceConfig controla el cross-reference contra la fuente secundaria.
type ReferenceConfig struct {
	// FeeRate es el fee de la fuente de referencia. Documentado de forma
	// inconsistente upstream: siempre configuración, nunca constante.
	FeeRate         float64 `yaml:"fee_rate"`
	MinProfitMargin float64 `yaml:"min_profit_margin"` // % mínimo de margen neto
	MinDailyVolume  int     `yaml:"min_daily_volume"`  // ventas/día mínimas en referencia
}

// APIConfig contiene los base URLs y credenciales de las APIs externas.
type APIConfig struct {
	PrimaryBase   string `yaml:"primary_base"`
	ReferenceBase string `yaml:"reference_base"`
	ReferenceKey  string `yaml:"reference_key"` // normalmente via REFERENCE_API_KEY
}

// RateLimitConfig parametriza el guard compartido del proceso.
type RateLimitConfig struct {
	CallsPerSecond         float64 `yaml:"calls_per_second"`
	Burst                  int     `yaml:"burst"`
	MinIntervalMillis      int     `yaml:"min_interval_ms"`
	InitialCooldownSeconds int     `yaml:"initial_cooldown_seconds"`
	MaxCooldownSeconds     int     `yaml:"max_cooldown_seconds"`
}

// CacheConfig controla las ventanas de frescura de los caches TTL.
type CacheConfig struct {
	PriceTTLSeconds   int `yaml:"price_ttl_seconds"`
	HistoryTTLSeconds int `yaml:"history_ttl_seconds"`
}

// StorageConfig controla dónde se persiste el histórico de scans.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe, aplica defaults y valida. Los valores del .env sobreescriben los
// del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// PriceTTL devuelve la frescura del cache de precios de referencia.
func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Cache.PriceTTLSeconds) * time.Second
}

// HistoryTTL devuelve la frescura del cache de historia de ventas.
func (c *Config) HistoryTTL() time.Duration {
	return time.Duration(c.Cache.HistoryTTLSeconds) * time.Second
}

// Validate comprueba los umbrales una sola vez, antes de cualquier llamada
// de red. Las etapas de filtrado no re-validan defensivamente.
func (c *Config) Validate() error {
	if c.Reference.FeeRate < 0 || c.Reference.FeeRate >= 1 {
		return &domain.ConfigurationError{
			Field: "reference.fee_rate", Reason: "must be in [0, 1)",
		}
	}
	if c.Reference.MinProfitMargin < 0 {
		return &domain.ConfigurationError{
			Field: "reference.min_profit_margin", Reason: "must be >= 0",
		}
	}
	if c.Filter.OutlierThreshold <= 0 {
		return &domain.ConfigurationError{
			Field: "filter.outlier_threshold", Reason: "must be > 0",
		}
	}
	if c.Filter.GoodPointsPercent < 0 || c.Filter.GoodPointsPercent > 100 {
		return &domain.ConfigurationError{
			Field: "filter.good_points_percent", Reason: "must be in [0, 100]",
		}
	}
	if c.Filter.BoostPercent < 0 {
		return &domain.ConfigurationError{
			Field: "filter.boost_percent", Reason: "must be >= 0",
		}
	}
	if c.Scanner.Workers <= 0 {
		return &domain.ConfigurationError{
			Field: "scanner.workers", Reason: "must be > 0",
		}
	}
	if c.Scanner.MaxPriceCents > 0 && c.Scanner.MinPriceCents > c.Scanner.MaxPriceCents {
		return &domain.ConfigurationError{
			Field: "scanner.min_price_cents", Reason: "exceeds max_price_cents",
		}
	}
	if c.Scanner.Catalog == "" {
		return &domain.ConfigurationError{
			Field: "scanner.catalog", Reason: "required",
		}
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("REFERENCE_API_KEY"); v != "" {
		cfg.API.ReferenceKey = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 300
	}
	if cfg.Scanner.Catalog == "" {
		cfg.Scanner.Catalog = "730"
	}
	if cfg.Scanner.PageSize <= 0 {
		cfg.Scanner.PageSize = 100
	}
	if cfg.Scanner.MaxItems <= 0 {
		cfg.Scanner.MaxItems = 500
	}
	if cfg.Scanner.MaxResults <= 0 {
		cfg.Scanner.MaxResults = 20
	}
	if cfg.Scanner.Workers <= 0 {
		cfg.Scanner.Workers = 8
	}
	if cfg.Filter.MinSalesVolume <= 0 {
		cfg.Filter.MinSalesVolume = 30
	}
	if cfg.Filter.GoodPointsPercent <= 0 {
		cfg.Filter.GoodPointsPercent = 80
	}
	if cfg.Filter.BoostPercent <= 0 {
		cfg.Filter.BoostPercent = 10
	}
	if cfg.Filter.OutlierThreshold <= 0 {
		cfg.Filter.OutlierThreshold = 2.0
	}
	if cfg.Filter.MaxTimeToSellDays <= 0 {
		cfg.Filter.MaxTimeToSellDays = 7
	}
	if cfg.Reference.FeeRate <= 0 {
		cfg.Reference.FeeRate = 0.1304
	}
	if cfg.Reference.MinProfitMargin <= 0 {
		cfg.Reference.MinProfitMargin = 10
	}
	if cfg.Reference.MinDailyVolume <= 0 {
		cfg.Reference.MinDailyVolume = 50
	}
	if cfg.RateLimit.CallsPerSecond <= 0 {
		cfg.RateLimit.CallsPerSecond = 10
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 5
	}
	if cfg.RateLimit.MinIntervalMillis <= 0 {
		cfg.RateLimit.MinIntervalMillis = 250
	}
	if cfg.RateLimit.InitialCooldownSeconds <= 0 {
		cfg.RateLimit.InitialCooldownSeconds = 60
	}
	if cfg.RateLimit.MaxCooldownSeconds <= 0 {
		cfg.RateLimit.MaxCooldownSeconds = 600
	}
	if cfg.Cache.PriceTTLSeconds <= 0 {
		cfg.Cache.PriceTTLSeconds = 300
	}
	if cfg.Cache.HistoryTTLSeconds <= 0 {
		cfg.Cache.HistoryTTLSeconds = 3600
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "flipbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
