package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"gstaudit/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	Auth       AuthConfig
	S3         S3Config
	Log        LogConfig
	CORS       CORSConfig
	Email      EmailConfig
	Reference  ReferenceConfig
	Ledger     LedgerConfig
	Store      StoreConfig
	Validation ValidationConfig
	Reasoning  ReasoningConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds bearer-token verification settings.
type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	Issuer      string        `mapstructure:"issuer"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

// AuthConfig selects how API callers authenticate.
type AuthConfig struct {
	// Disabled turns off authentication (local development only).
	Disabled bool `mapstructure:"disabled"`
	// APIKeyHashes are bcrypt hashes of accepted X-API-Key values.
	APIKeyHashes []string `mapstructure:"api_key_hashes"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	ReferencePrefix string `mapstructure:"reference_prefix"`
	ReportPrefix    string `mapstructure:"report_prefix"`
	PresignExpiry   int64  `mapstructure:"presign_expiry"`
	// ArchiveReports uploads a CSV summary of every batch under ReportPrefix.
	ArchiveReports bool `mapstructure:"archive_reports"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// EmailConfig holds escalation notification settings.
type EmailConfig struct {
	Provider    string   `mapstructure:"provider"`
	Region      string   `mapstructure:"region"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	Recipients  []string `mapstructure:"recipients"`
}

// ReferenceConfig selects where the reference datasets are loaded from.
type ReferenceConfig struct {
	// Source is "dir", "s3" or "postgres". With "postgres" the HSN/SAC master
	// and rate schedule come from the database and the rest from Dir.
	Source         string        `mapstructure:"source"`
	Dir            string        `mapstructure:"dir"`
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
}

// LedgerConfig configures the accepted-invoice ledger.
type LedgerConfig struct {
	// Provider is "none", "memory" or "redis".
	Provider      string `mapstructure:"provider"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// StoreConfig configures where validation reports are persisted.
type StoreConfig struct {
	// Provider is "none", "memory", "postgres" or "sqlite".
	Provider   string `mapstructure:"provider"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ValidationConfig holds engine and escalation settings.
type ValidationConfig struct {
	ConfidenceThreshold      float64 `mapstructure:"confidence_threshold"`
	HighValueThreshold       float64 `mapstructure:"high_value_threshold"`
	MultipleFailureThreshold int     `mapstructure:"multiple_failure_threshold"`
	BatchConcurrency         int     `mapstructure:"batch_concurrency"`
	LineConcurrency          int     `mapstructure:"line_concurrency"`
	// Categories maps a category key (vendor, gst, arithmetic, tds, policy) to its enable flag.
	Categories map[string]bool `mapstructure:"categories"`
}

// DisabledCategories lists the categories switched off in Categories.
func (c *ValidationConfig) DisabledCategories() []domain.Category {
	var out []domain.Category
	for _, cat := range domain.AllCategories {
		if enabled, ok := c.Categories[cat.Key()]; ok && !enabled {
			out = append(out, cat)
		}
	}
	return out
}

// ReasoningProviderConfig holds settings for a single LLM provider.
type ReasoningProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	BaseURL      string `mapstructure:"base_url"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ReasoningConfig configures reasoning augmentation.
type ReasoningConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RAGK         int           `mapstructure:"rag_k"`
	CorpusDir    string        `mapstructure:"corpus_dir"`
	MaxLineItems int           `mapstructure:"max_line_items"`
	Keywords     []string      `mapstructure:"keywords"`

	Primary   ReasoningProviderConfig `mapstructure:"primary"`
	Secondary ReasoningProviderConfig `mapstructure:"secondary"`
}

// Providers returns the configured providers in fallback order.
func (r *ReasoningConfig) Providers() []*ReasoningProviderConfig {
	var out []*ReasoningProviderConfig
	if r.Primary.Provider != "" {
		out = append(out, &r.Primary)
	}
	if r.Secondary.Provider != "" {
		out = append(out, &r.Secondary)
	}
	return out
}

// Load reads configuration from environment variables with the GSTAUDIT_
// prefix. A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GSTAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "gstaudit")
	v.SetDefault("db.password", "gstaudit_secret")
	v.SetDefault("db.name", "gstaudit_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT and auth defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "gstaudit")
	v.SetDefault("jwt.token_expiry", "12h")
	v.SetDefault("auth.disabled", false)
	v.SetDefault("auth.api_key_hashes", "")

	// S3 defaults
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "gstaudit-data")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.reference_prefix", "reference/")
	v.SetDefault("s3.report_prefix", "reports/")
	v.SetDefault("s3.presign_expiry", 3600)
	v.SetDefault("s3.archive_reports", false)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "ap-south-1")
	v.SetDefault("email.from_address", "compliance@gstaudit.local")
	v.SetDefault("email.from_name", "GST Audit")
	v.SetDefault("email.recipients", "")

	// Reference data defaults
	v.SetDefault("reference.source", "dir")
	v.SetDefault("reference.dir", "testdata/reference")
	v.SetDefault("reference.reload_interval", "0s")

	// Ledger and store defaults
	v.SetDefault("ledger.provider", "memory")
	v.SetDefault("ledger.redis_addr", "localhost:6379")
	v.SetDefault("ledger.redis_password", "")
	v.SetDefault("ledger.redis_db", 0)
	v.SetDefault("ledger.key_prefix", "gstaudit:")
	v.SetDefault("store.provider", "memory")
	v.SetDefault("store.sqlite_path", "gstaudit.db")

	// Validation defaults
	v.SetDefault("validation.confidence_threshold", 0.70)
	v.SetDefault("validation.high_value_threshold", 1000000)
	v.SetDefault("validation.multiple_failure_threshold", 3)
	v.SetDefault("validation.batch_concurrency", 4)
	v.SetDefault("validation.line_concurrency", 8)
	for _, cat := range domain.AllCategories {
		v.SetDefault("validation.categories."+cat.Key(), true)
	}

	// Reasoning defaults
	v.SetDefault("reasoning.enabled", false)
	v.SetDefault("reasoning.timeout", "20s")
	v.SetDefault("reasoning.rag_k", 3)
	v.SetDefault("reasoning.corpus_dir", "")
	v.SetDefault("reasoning.max_line_items", 3)
	v.SetDefault("reasoning.keywords", "transport,warehouse,packing,composite,bundle")
	v.SetDefault("reasoning.primary.provider", "")
	v.SetDefault("reasoning.primary.api_key", "")
	v.SetDefault("reasoning.primary.default_model", "")
	v.SetDefault("reasoning.primary.base_url", "")
	v.SetDefault("reasoning.primary.timeout_secs", 30)
	v.SetDefault("reasoning.secondary.provider", "")
	v.SetDefault("reasoning.secondary.api_key", "")
	v.SetDefault("reasoning.secondary.default_model", "")
	v.SetDefault("reasoning.secondary.base_url", "")
	v.SetDefault("reasoning.secondary.timeout_secs", 30)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                           "GSTAUDIT_SERVER_PORT",
		"server.read_timeout":                   "GSTAUDIT_SERVER_READ_TIMEOUT",
		"server.write_timeout":                  "GSTAUDIT_SERVER_WRITE_TIMEOUT",
		"server.environment":                    "GSTAUDIT_SERVER_ENVIRONMENT",
		"db.host":                               "GSTAUDIT_DB_HOST",
		"db.port":                               "GSTAUDIT_DB_PORT",
		"db.user":                               "GSTAUDIT_DB_USER",
		"db.password":                           "GSTAUDIT_DB_PASSWORD",
		"db.name":                               "GSTAUDIT_DB_NAME",
		"db.sslmode":                            "GSTAUDIT_DB_SSLMODE",
		"db.max_open":                           "GSTAUDIT_DB_MAX_OPEN",
		"db.max_idle":                           "GSTAUDIT_DB_MAX_IDLE",
		"jwt.secret":                            "GSTAUDIT_JWT_SECRET",
		"jwt.issuer":                            "GSTAUDIT_JWT_ISSUER",
		"jwt.token_expiry":                      "GSTAUDIT_JWT_TOKEN_EXPIRY",
		"auth.disabled":                         "GSTAUDIT_AUTH_DISABLED",
		"auth.api_key_hashes":                   "GSTAUDIT_AUTH_API_KEY_HASHES",
		"s3.region":                             "GSTAUDIT_S3_REGION",
		"s3.bucket":                             "GSTAUDIT_S3_BUCKET",
		"s3.endpoint":                           "GSTAUDIT_S3_ENDPOINT",
		"s3.access_key":                         "GSTAUDIT_S3_ACCESS_KEY",
		"s3.secret_key":                         "GSTAUDIT_S3_SECRET_KEY",
		"s3.reference_prefix":                   "GSTAUDIT_S3_REFERENCE_PREFIX",
		"s3.report_prefix":                      "GSTAUDIT_S3_REPORT_PREFIX",
		"s3.presign_expiry":                     "GSTAUDIT_S3_PRESIGN_EXPIRY",
		"s3.archive_reports":                    "GSTAUDIT_S3_ARCHIVE_REPORTS",
		"log.level":                             "GSTAUDIT_LOG_LEVEL",
		"log.format":                            "GSTAUDIT_LOG_FORMAT",
		"cors.allowed_origins":                  "GSTAUDIT_CORS_ALLOWED_ORIGINS",
		"email.provider":                        "GSTAUDIT_EMAIL_PROVIDER",
		"email.region":                          "GSTAUDIT_EMAIL_REGION",
		"email.from_address":                    "GSTAUDIT_EMAIL_FROM_ADDRESS",
		"email.from_name":                       "GSTAUDIT_EMAIL_FROM_NAME",
		"email.recipients":                      "GSTAUDIT_EMAIL_RECIPIENTS",
		"reference.source":                      "GSTAUDIT_REFERENCE_SOURCE",
		"reference.dir":                         "GSTAUDIT_REFERENCE_DIR",
		"reference.reload_interval":             "GSTAUDIT_REFERENCE_RELOAD_INTERVAL",
		"ledger.provider":                       "GSTAUDIT_LEDGER_PROVIDER",
		"ledger.redis_addr":                     "GSTAUDIT_LEDGER_REDIS_ADDR",
		"ledger.redis_password":                 "GSTAUDIT_LEDGER_REDIS_PASSWORD",
		"ledger.redis_db":                       "GSTAUDIT_LEDGER_REDIS_DB",
		"ledger.key_prefix":                     "GSTAUDIT_LEDGER_KEY_PREFIX",
		"store.provider":                        "GSTAUDIT_STORE_PROVIDER",
		"store.sqlite_path":                     "GSTAUDIT_STORE_SQLITE_PATH",
		"validation.confidence_threshold":       "GSTAUDIT_VALIDATION_CONFIDENCE_THRESHOLD",
		"validation.high_value_threshold":       "GSTAUDIT_VALIDATION_HIGH_VALUE_THRESHOLD",
		"validation.multiple_failure_threshold": "GSTAUDIT_VALIDATION_MULTIPLE_FAILURE_THRESHOLD",
		"validation.batch_concurrency":          "GSTAUDIT_VALIDATION_BATCH_CONCURRENCY",
		"validation.line_concurrency":           "GSTAUDIT_VALIDATION_LINE_CONCURRENCY",
		"reasoning.enabled":                     "GSTAUDIT_REASONING_ENABLED",
		"reasoning.timeout":                     "GSTAUDIT_REASONING_TIMEOUT",
		"reasoning.rag_k":                       "GSTAUDIT_REASONING_RAG_K",
		"reasoning.corpus_dir":                  "GSTAUDIT_REASONING_CORPUS_DIR",
		"reasoning.max_line_items":              "GSTAUDIT_REASONING_MAX_LINE_ITEMS",
		"reasoning.keywords":                    "GSTAUDIT_REASONING_KEYWORDS",
		"reasoning.primary.provider":            "GSTAUDIT_REASONING_PRIMARY_PROVIDER",
		"reasoning.primary.api_key":             "GSTAUDIT_REASONING_PRIMARY_API_KEY",
		"reasoning.primary.default_model":       "GSTAUDIT_REASONING_PRIMARY_DEFAULT_MODEL",
		"reasoning.primary.base_url":            "GSTAUDIT_REASONING_PRIMARY_BASE_URL",
		"reasoning.primary.timeout_secs":        "GSTAUDIT_REASONING_PRIMARY_TIMEOUT_SECS",
		"reasoning.secondary.provider":          "GSTAUDIT_REASONING_SECONDARY_PROVIDER",
		"reasoning.secondary.api_key":           "GSTAUDIT_REASONING_SECONDARY_API_KEY",
		"reasoning.secondary.default_model":     "GSTAUDIT_REASONING_SECONDARY_DEFAULT_MODEL",
		"reasoning.secondary.base_url":          "GSTAUDIT_REASONING_SECONDARY_BASE_URL",
		"reasoning.secondary.timeout_secs":      "GSTAUDIT_REASONING_SECONDARY_TIMEOUT_SECS",
	}
	for _, cat := range domain.AllCategories {
		key := "validation.categories." + cat.Key()
		envBindings[key] = "GSTAUDIT_VALIDATION_CATEGORIES_" + strings.ToUpper(cat.Key())
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if GSTAUDIT_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("GSTAUDIT_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:      v.GetString("jwt.secret"),
		Issuer:      v.GetString("jwt.issuer"),
		TokenExpiry: v.GetDuration("jwt.token_expiry"),
	}
	cfg.Auth = AuthConfig{
		Disabled:     v.GetBool("auth.disabled"),
		APIKeyHashes: splitList(v.GetString("auth.api_key_hashes")),
	}
	cfg.S3 = S3Config{
		Region:          v.GetString("s3.region"),
		Bucket:          v.GetString("s3.bucket"),
		Endpoint:        v.GetString("s3.endpoint"),
		AccessKey:       v.GetString("s3.access_key"),
		SecretKey:       v.GetString("s3.secret_key"),
		ReferencePrefix: v.GetString("s3.reference_prefix"),
		ReportPrefix:    v.GetString("s3.report_prefix"),
		PresignExpiry:   v.GetInt64("s3.presign_expiry"),
		ArchiveReports:  v.GetBool("s3.archive_reports"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		Recipients:  splitList(v.GetString("email.recipients")),
	}
	cfg.Reference = ReferenceConfig{
		Source:         v.GetString("reference.source"),
		Dir:            v.GetString("reference.dir"),
		ReloadInterval: v.GetDuration("reference.reload_interval"),
	}
	cfg.Ledger = LedgerConfig{
		Provider:      v.GetString("ledger.provider"),
		RedisAddr:     v.GetString("ledger.redis_addr"),
		RedisPassword: v.GetString("ledger.redis_password"),
		RedisDB:       v.GetInt("ledger.redis_db"),
		KeyPrefix:     v.GetString("ledger.key_prefix"),
	}
	cfg.Store = StoreConfig{
		Provider:   v.GetString("store.provider"),
		SQLitePath: v.GetString("store.sqlite_path"),
	}

	categories := make(map[string]bool, len(domain.AllCategories))
	for _, cat := range domain.AllCategories {
		categories[cat.Key()] = v.GetBool("validation.categories." + cat.Key())
	}
	cfg.Validation = ValidationConfig{
		ConfidenceThreshold:      v.GetFloat64("validation.confidence_threshold"),
		HighValueThreshold:       v.GetFloat64("validation.high_value_threshold"),
		MultipleFailureThreshold: v.GetInt("validation.multiple_failure_threshold"),
		BatchConcurrency:         v.GetInt("validation.batch_concurrency"),
		LineConcurrency:          v.GetInt("validation.line_concurrency"),
		Categories:               categories,
	}

	cfg.Reasoning = ReasoningConfig{
		Enabled:      v.GetBool("reasoning.enabled"),
		Timeout:      v.GetDuration("reasoning.timeout"),
		RAGK:         v.GetInt("reasoning.rag_k"),
		CorpusDir:    v.GetString("reasoning.corpus_dir"),
		MaxLineItems: v.GetInt("reasoning.max_line_items"),
		Keywords:     splitList(v.GetString("reasoning.keywords")),
		Primary:      providerConfig(v, "reasoning.primary"),
		Secondary:    providerConfig(v, "reasoning.secondary"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func providerConfig(v *viper.Viper, prefix string) ReasoningProviderConfig {
	return ReasoningProviderConfig{
		Provider:     v.GetString(prefix + ".provider"),
		APIKey:       v.GetString(prefix + ".api_key"),
		DefaultModel: v.GetString(prefix + ".default_model"),
		BaseURL:      v.GetString(prefix + ".base_url"),
		TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
	}
}

func (c *Config) validate() error {
	if t := c.Validation.ConfidenceThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("config: validation.confidence_threshold %v outside (0,1]", t)
	}
	if c.Validation.HighValueThreshold <= 0 {
		return fmt.Errorf("config: validation.high_value_threshold must be positive")
	}
	if c.Reasoning.RAGK < 0 {
		return fmt.Errorf("config: reasoning.rag_k must not be negative")
	}
	switch c.Reference.Source {
	case "dir", "s3", "postgres":
	default:
		return fmt.Errorf("config: unknown reference.source %q", c.Reference.Source)
	}
	switch c.Ledger.Provider {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("config: unknown ledger.provider %q", c.Ledger.Provider)
	}
	switch c.Store.Provider {
	case "none", "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown store.provider %q", c.Store.Provider)
	}
	return nil
}

// splitList parses a comma-separated string, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
