package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mirror-sync-go/pkg/logger"
)

type Config struct {
	HTTPPort   string
	Env        string
	AdminToken string
	Workspace  WorkspaceConfig
	Mirror     MirrorConfig
	Git        GitConfig
	Scan       ScanConfig
	Kafka      KafkaConfig
	DB         DBConfig
}

type WorkspaceConfig struct {
	Root string
}

type MirrorConfig struct {
	RemoteName    string
	Scheme        string
	Host          string
	Port          int
	Namespace     string
	UpstreamHosts []string
	RequireTags   bool
}

type GitConfig struct {
	Backend       string
	Binary        string
	ListTimeout   time.Duration
	RemoteTimeout time.Duration
	PushTimeout   time.Duration
	MaxProcs      int
	// HTTP credentials for the gogit backend; the cli backend uses git's own
	// credential helpers.
	Username      string
	Password      string
}

type ScanConfig struct {
	Workers  int
	Interval time.Duration
	OnStart  bool
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	ClientID     string
	WriteTimeout time.Duration
}

type DBConfig struct {
	Driver          string
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	GitBackendCLI   = "cli"
	GitBackendGoGit = "gogit"
)

func Load(log logger.Logger) (Config, error) {
	if err := loadDotEnv(log); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	return Config{
		HTTPPort:   getEnv("HTTP_PORT", "8080"),
		Env:        getEnv("ENV", "development"),
		AdminToken: getEnv("ADMIN_TOKEN", ""),
		Workspace: WorkspaceConfig{
			Root: getEnv("WORKSPACE_ROOT", "."),
		},
		Mirror: MirrorConfig{
			RemoteName:    getEnv("MIRROR_REMOTE_NAME", "nju"),
			Scheme:        getEnv("MIRROR_SCHEME", "http"),
			Host:          getEnv("MIRROR_HOST", "localhost"),
			Port:          getEnvInt("MIRROR_PORT", 8000),
			Namespace:     getEnv("MIRROR_NAMESPACE", "third-part"),
			UpstreamHosts: getEnvList("UPSTREAM_HOSTS", []string{"github.com"}),
			RequireTags:   getEnvBool("MIRROR_REQUIRE_TAGS", false),
		},
		Git: GitConfig{
			Backend:       getEnv("GIT_BACKEND", GitBackendCLI),
			Binary:        getEnv("GIT_BINARY", "git"),
			ListTimeout:   getEnvDuration("GIT_LIST_TIMEOUT", 30*time.Second),
			RemoteTimeout: getEnvDuration("GIT_REMOTE_TIMEOUT", 30*time.Second),
			PushTimeout:   getEnvDuration("GIT_PUSH_TIMEOUT", 10*time.Minute),
			MaxProcs:      getEnvInt("GIT_MAX_PROCS", 4),
			Username:      getEnv("GIT_HTTP_USERNAME", ""),
			Password:      getEnv("GIT_HTTP_PASSWORD", ""),
		},
		Scan: ScanConfig{
			Workers:  getEnvInt("SCAN_WORKERS", 1),
			Interval: getEnvDuration("SCAN_INTERVAL", 0),
			OnStart:  getEnvBool("SCAN_ON_START", false),
		},
		Kafka: KafkaConfig{
			Brokers:      getEnvList("KAFKA_BROKERS", nil),
			Topic:        getEnv("KAFKA_TOPIC", "repo-mirror"),
			ClientID:     getEnv("KAFKA_CLIENT_ID", "mirror-sync"),
			WriteTimeout: getEnvDuration("KAFKA_WRITE_TIMEOUT", 10*time.Second),
		},
		DB: DBConfig{
			Driver:          getEnv("DB_DRIVER", DriverPostgres),
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "mirror_sync"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			TimeZone:        getEnv("DB_TIMEZONE", "UTC"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "mirror-sync.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
	}, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Workspace.Root) == "" {
		errs = append(errs, errors.New("WORKSPACE_ROOT is required"))
	}
	if strings.TrimSpace(c.Mirror.RemoteName) == "" {
		errs = append(errs, errors.New("MIRROR_REMOTE_NAME is required"))
	}
	if c.Mirror.Host == "" && !strings.EqualFold(c.Mirror.Scheme, "file") {
		errs = append(errs, errors.New("MIRROR_HOST is required"))
	}
	if c.Mirror.Port < 0 || c.Mirror.Port > 65535 {
		errs = append(errs, fmt.Errorf("MIRROR_PORT out of range: %d", c.Mirror.Port))
	}
	if len(c.Mirror.UpstreamHosts) == 0 {
		errs = append(errs, errors.New("UPSTREAM_HOSTS is required"))
	}
	switch c.Git.Backend {
	case GitBackendCLI, GitBackendGoGit:
	default:
		errs = append(errs, fmt.Errorf("unknown GIT_BACKEND %q", c.Git.Backend))
	}
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver))
	}
	if c.Scan.Workers < 1 {
		errs = append(errs, fmt.Errorf("SCAN_WORKERS must be positive: %d", c.Scan.Workers))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}

func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.TimeZone
}
