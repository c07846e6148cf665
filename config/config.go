package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config содержит все настройки команд
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string `mapstructure:"env"`

	Remote struct {
		Environment string
		BaseURL     string
		AuthURL     string
		Timeout     time.Duration
		PageSize    int
	}

	Auth struct {
		GrantType       string
		ClientID        string
		Username        string
		Password        string
		ClientSecret    string
		Token           string
		Scope           []string
		RefreshInterval time.Duration
	}

	Bulk struct {
		MaxConcurrent int
		MinTime       time.Duration
		RetrySchedule []time.Duration
	}

	Schema struct {
		URL      string
		CacheTTL time.Duration
	}

	Seed struct {
		// Templates короткие имена наборов данных и их адреса; ключи в нижнем регистре
		Templates map[string]string
	}

	Redis struct {
		Enabled   bool
		Host      string
		Port      int
		Password  string
		DB        int
		KeyPrefix string
	}

	Postgres struct {
		Enabled  bool
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
		Timeout  time.Duration
	}

	Kafka struct {
		Enabled       bool
		Brokers       []string
		Topic         string
		ClientID      string
		StartedEvents bool
	}

	Metrics struct {
		Enabled  bool
		Address  string
		Endpoint string
	}

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		BodyLimit       int // максимальный размер запроса в МБ
		RequireToken    bool
	}
}

// flagKeys соответствие флагов командной строки ключам конфигурации
var flagKeys = map[string]string{
	"environment":    "remote.environment",
	"grantType":      "auth.grantType",
	"scope":          "auth.scope",
	"username":       "auth.username",
	"password":       "auth.password",
	"clientID":       "auth.clientID",
	"clientSecret":   "auth.clientSecret",
	"token":          "auth.token",
	"log-level":      "logLevel",
	"max-concurrent": "bulk.maxConcurrent",
	"port":           "server.port",
}

// Load читает .env, файл конфигурации, переменные окружения и флаги.
// Флаги важнее переменных окружения, переменные окружения важнее файла.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	v := viper.New()
	configFile := "config"
	if configPath != "" {
		configFile = configPath
	}
	if strings.ContainsAny(configFile, "/\\.") {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFile)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
	}

	setDefaults(v)
	if err := bindEnvVariables(v); err != nil {
		return nil, err
	}
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конфигурации: %w", err)
	}
	if cfg.ENV == "" {
		cfg.ENV = "development"
	}
	if cfg.Seed.Templates == nil {
		cfg.Seed.Templates = map[string]string{}
	}
	return &cfg, nil
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "gomarket-seeder")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("logLevel", "info")
	v.SetDefault("env", "development")

	v.SetDefault("remote.environment", "sandbox")
	v.SetDefault("remote.baseURL", "")
	v.SetDefault("remote.authURL", "")
	v.SetDefault("remote.timeout", "60s")
	v.SetDefault("remote.pageSize", 100)

	v.SetDefault("auth.grantType", "")
	v.SetDefault("auth.clientID", "")
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.clientSecret", "")
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.scope", []string{"FullAccess"})
	v.SetDefault("auth.refreshInterval", "10m")

	v.SetDefault("bulk.maxConcurrent", 8)
	v.SetDefault("bulk.minTime", "100ms")
	v.SetDefault("bulk.retrySchedule", []string{"1s", "3s", "7s"})

	v.SetDefault("schema.url", "")
	v.SetDefault("schema.cacheTTL", "24h")

	v.SetDefault("seed.templates", map[string]string{})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.keyPrefix", "seeder")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "seeder")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timeout", "5s")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "seeder.job-events")
	v.SetDefault("kafka.clientID", "gomarket-seeder")
	v.SetDefault("kafka.startedEvents", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("metrics.endpoint", "/metrics")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.shutdownTimeout", "5s")
	v.SetDefault("server.bodyLimit", 20)
	v.SetDefault("server.requireToken", false)
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables(v *viper.Viper) error {
	bindings := map[string]string{
		"appName":  "APP_NAME",
		"version":  "APP_VERSION",
		"logLevel": "LOG_LEVEL",
		"env":      "APP_ENV",

		"remote.environment": "SEEDER_ENVIRONMENT",
		"remote.baseURL":     "SEEDER_BASE_URL",
		"remote.authURL":     "SEEDER_AUTH_URL",
		"remote.timeout":     "SEEDER_TIMEOUT",
		"remote.pageSize":    "SEEDER_PAGE_SIZE",

		"auth.grantType":       "SEEDER_GRANT_TYPE",
		"auth.clientID":        "SEEDER_CLIENT_ID",
		"auth.username":        "SEEDER_USERNAME",
		"auth.password":        "SEEDER_PASSWORD",
		"auth.clientSecret":    "SEEDER_CLIENT_SECRET",
		"auth.token":           "SEEDER_TOKEN",
		"auth.scope":           "SEEDER_SCOPE",
		"auth.refreshInterval": "SEEDER_REFRESH_INTERVAL",

		"bulk.maxConcurrent": "BULK_MAX_CONCURRENT",
		"bulk.minTime":       "BULK_MIN_TIME",
		"bulk.retrySchedule": "BULK_RETRY_SCHEDULE",

		"schema.url":      "SCHEMA_URL",
		"schema.cacheTTL": "SCHEMA_CACHE_TTL",

		"redis.enabled":   "REDIS_ENABLED",
		"redis.host":      "REDIS_HOST",
		"redis.port":      "REDIS_PORT",
		"redis.password":  "REDIS_PASSWORD",
		"redis.db":        "REDIS_DB",
		"redis.keyPrefix": "REDIS_KEY_PREFIX",

		"postgres.enabled":  "POSTGRES_ENABLED",
		"postgres.host":     "POSTGRES_HOST",
		"postgres.port":     "POSTGRES_PORT",
		"postgres.user":     "POSTGRES_USER",
		"postgres.password": "POSTGRES_PASSWORD",
		"postgres.dbname":   "POSTGRES_DBNAME",
		"postgres.sslmode":  "POSTGRES_SSLMODE",
		"postgres.timeout":  "POSTGRES_TIMEOUT",

		"kafka.enabled":  "KAFKA_ENABLED",
		"kafka.brokers":  "KAFKA_BROKERS",
		"kafka.topic":    "KAFKA_TOPIC",
		"kafka.clientID": "KAFKA_CLIENT_ID",

		"metrics.enabled":  "METRICS_ENABLED",
		"metrics.address":  "METRICS_ADDRESS",
		"metrics.endpoint": "METRICS_ENDPOINT",

		"server.host":         "SERVER_HOST",
		"server.port":         "SERVER_PORT",
		"server.requireToken": "SERVER_REQUIRE_TOKEN",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("ошибка привязки %s: %w", env, err)
		}
	}
	return nil
}

// bindFlags привязывает известные флаги; отсутствующие в наборе пропускаются
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("ошибка привязки флага %s: %w", name, err)
		}
	}
	return nil
}

// PostgresDSN строка подключения к базе снимков
func (c *Config) PostgresDSN() string {
	p := c.Postgres
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode, int(p.Timeout.Seconds()))
}

// ServerAddress адрес HTTP-сервера команды serve
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
