package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	HTTPPort              string
	Env                   string
	LogLevel              string
	DatabaseDSN           string
	DBDriver              string
	MasterToken           string
	SwaggerEnable         bool
	EventLogDir           string
	ScoringConfigPath     string
	ReconcileConcurrency  int
	Postgres              PostgresConfig
	Storage               StorageConfig
	Twitch                TwitchConfig
	Discord               DiscordConfig
	MergeEventsWebhookURL string
	MergeEventsToken      string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// StorageConfig selects and configures the legacy key-value store.
type StorageConfig struct {
	Provider   string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Region     string
	UseSSL     bool
	PathStyle  bool
	SQLitePath string
	Prefix     string
}

func (s StorageConfig) Enabled() bool {
	switch s.Provider {
	case "sqlite":
		return s.SQLitePath != ""
	case "s3":
		return s.Bucket != ""
	default:
		return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
	}
}

type TwitchConfig struct {
	ClientID     string
	ClientSecret string
}

func (t TwitchConfig) Enabled() bool {
	return t.ClientID != "" && t.ClientSecret != ""
}

type DiscordConfig struct {
	BotToken string
	GuildID  string
}

func (d DiscordConfig) Enabled() bool {
	return d.BotToken != "" && d.GuildID != ""
}

func Load() *AppConfig {
	pg := PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", ""),
		Port:     getEnv("POSTGRES_PORT", ""),
		User:     getEnv("POSTGRES_USER", ""),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		DBName:   getEnv("POSTGRES_DB", ""),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}

	storage := StorageConfig{
		Provider:   strings.ToLower(getEnv("STORAGE_PROVIDER", "minio")),
		Endpoint:   getEnv("STORAGE_ENDPOINT", ""),
		AccessKey:  getEnv("STORAGE_ACCESS_KEY", ""),
		SecretKey:  getEnv("STORAGE_SECRET_KEY", ""),
		Bucket:     getEnv("STORAGE_BUCKET", ""),
		Region:     getEnv("STORAGE_REGION", ""),
		UseSSL:     getEnv("STORAGE_USE_SSL", "false") == "true",
		PathStyle:  getEnv("STORAGE_PATH_STYLE", "true") == "true",
		SQLitePath: getEnv("LEGACY_SQLITE_PATH", ""),
		Prefix:     getEnv("LEGACY_PREFIX", "evaluations/"),
	}

	// Backward compatibility: allow MINIO_* env vars when STORAGE_* not provided.
	if storage.Endpoint == "" {
		storage.Endpoint = getEnv("MINIO_ENDPOINT", "")
	}
	if storage.AccessKey == "" {
		storage.AccessKey = getEnv("MINIO_ACCESS_KEY", "")
	}
	if storage.SecretKey == "" {
		storage.SecretKey = getEnv("MINIO_SECRET_KEY", "")
	}
	if storage.Bucket == "" {
		storage.Bucket = getEnv("MINIO_BUCKET", "")
	}
	if storage.Region == "" {
		storage.Region = getEnv("MINIO_REGION", "")
	}
	if !storage.UseSSL {
		storage.UseSSL = getEnv("MINIO_USE_SSL", "false") == "true"
	}

	dsn := getEnv("DATABASE_DSN", "")
	driver := strings.ToLower(getEnv("DB_DRIVER", ""))

	if driver == "" {
		lower := strings.ToLower(dsn)
		switch {
		case strings.HasPrefix(lower, "postgres"):
			driver = "postgres"
		case pg.Host != "":
			driver = "postgres"
		default:
			driver = "memory"
		}
	}

	if driver == "postgres" && dsn == "" {
		dsn = buildPostgresDSN(pg)
	}

	cfg := &AppConfig{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		Env:                   getEnv("APP_ENV", "development"),
		LogLevel:              strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		DatabaseDSN:           dsn,
		DBDriver:              driver,
		MasterToken:           getEnv("API_MASTER_TOKEN", ""),
		SwaggerEnable:         getEnv("SWAGGER_ENABLE", "false") == "true",
		EventLogDir:           getEnv("EVENT_LOG_DIR", ""),
		ScoringConfigPath:     getEnv("SCORING_CONFIG", ""),
		ReconcileConcurrency:  getEnvInt("RECONCILE_CONCURRENCY", 2),
		Postgres:              pg,
		Storage:               storage,
		Twitch:                TwitchConfig{ClientID: getEnv("TWITCH_CLIENT_ID", ""), ClientSecret: getEnv("TWITCH_CLIENT_SECRET", "")},
		Discord:               DiscordConfig{BotToken: getEnv("DISCORD_BOT_TOKEN", ""), GuildID: getEnv("DISCORD_GUILD_ID", "")},
		MergeEventsWebhookURL: strings.TrimSpace(getEnv("MERGE_EVENTS_WEBHOOK_URL", "")),
		MergeEventsToken:      strings.TrimSpace(getEnv("MERGE_EVENTS_TOKEN", "")),
	}
	if cfg.ReconcileConcurrency < 1 {
		cfg.ReconcileConcurrency = 1
	}
	return cfg
}

func buildPostgresDSN(pg PostgresConfig) string {
	host := pg.Host
	if host == "" {
		host = "localhost"
	}
	port := pg.Port
	if port == "" {
		port = "5432"
	}
	ssl := pg.SSLMode
	if ssl == "" {
		ssl = "disable"
	}

	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%s", host, port)}
	if pg.User != "" {
		if pg.Password != "" {
			u.User = url.UserPassword(pg.User, pg.Password)
		} else {
			u.User = url.User(pg.User)
		}
	}
	if pg.DBName != "" {
		u.Path = pg.DBName
	}
	q := u.Query()
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return n
}

func MustLoad() *AppConfig {
	cfg := Load()
	if cfg.HTTPPort == "" {
		log.Fatal("HTTP_PORT required")
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN required for postgres driver")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "memory" {
		log.Fatalf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg
}
