package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	pstrings "eam/pkg/platform/strings"
)

// Server captures process level configuration. Values come from the
// environment, optionally overlaid by a YAML file named in EAM_CONFIG_FILE.
type Server struct {
	Addr          string        `yaml:"addr"`
	DatabaseURL   string        `yaml:"database_url"`
	JWTSigningKey string        `yaml:"jwt_signing_key"`
	JWTTTL        time.Duration `yaml:"jwt_ttl"`
	KPICacheTTL   time.Duration `yaml:"kpi_cache_ttl"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	TemplatesDir  string        `yaml:"templates_dir"`

	// TrustedProxies lists CIDRs or addresses whose forwarding headers
	// name the client IP. Empty means the TCP peer is always the client.
	TrustedProxies []string `yaml:"trusted_proxies"`

	// BootstrapAdminPassword seeds an "admin" account when no users exist.
	BootstrapAdminPassword string `yaml:"-"`

	Login  LoginConfig  `yaml:"login"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	GitLab GitLabConfig `yaml:"gitlab"`
}

// LoginConfig bounds failed logins per username and client IP.
type LoginConfig struct {
	MaxFailures int           `yaml:"max_failures"`
	Window      time.Duration `yaml:"window"`
}

// RedisConfig configures the optional Redis client used for caching and sync locks.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig configures optional history event publication.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	HistoryTopic string   `yaml:"history_topic"`
	Partitions   int32    `yaml:"partitions"`
	Replication  int16    `yaml:"replication"`
}

// GitLabConfig configures the GitLab REST client and sync behaviour.
type GitLabConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token"`
	PerPage        int           `yaml:"per_page"`
	CommitsSince   time.Duration `yaml:"commits_since"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	// GroupIDs narrows group and project enumeration; empty means everything visible to the token.
	GroupIDs []int `yaml:"group_ids"`
}

// Enabled reports whether a GitLab token is configured.
func (g GitLabConfig) Enabled() bool {
	return g.Token != ""
}

// Defaults returns the development defaults.
func Defaults() Server {
	return Server{
		Addr:          ":8080",
		JWTSigningKey: "dev-secret-key-change-in-production",
		JWTTTL:        12 * time.Hour,
		KPICacheTTL:   5 * time.Minute,
		LogLevel:      "info",
		LogFormat:     "json",
		Login: LoginConfig{
			MaxFailures: 5,
			Window:      15 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			HistoryTopic: "eam.history",
			Partitions:   3,
			Replication:  1,
		},
		GitLab: GitLabConfig{
			BaseURL:        "https://gitlab.com/api/v4",
			PerPage:        100,
			CommitsSince:   90 * 24 * time.Hour,
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			LockTTL:        time.Minute,
		},
	}
}

// FromEnv builds the config from defaults, an optional YAML file and the environment,
// in that order of precedence (environment wins).
func FromEnv() (Server, error) {
	return Load(os.Getenv("EAM_CONFIG_FILE"))
}

// Load is FromEnv with an explicit YAML file; an empty path skips the file.
func Load(path string) (Server, error) {
	cfg := Defaults()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Server{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// LoadFile overlays values present in a YAML file onto cfg.
func (cfg *Server) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (cfg *Server) applyEnv(getenv func(string) string) error {
	setString(getenv, "EAM_ADDR", &cfg.Addr)
	setString(getenv, "DATABASE_URL", &cfg.DatabaseURL)
	setString(getenv, "JWT_SIGNING_KEY", &cfg.JWTSigningKey)
	setString(getenv, "EAM_LOG_LEVEL", &cfg.LogLevel)
	setString(getenv, "EAM_LOG_FORMAT", &cfg.LogFormat)
	setString(getenv, "EAM_TEMPLATES_DIR", &cfg.TemplatesDir)
	setString(getenv, "EAM_BOOTSTRAP_ADMIN_PASSWORD", &cfg.BootstrapAdminPassword)
	setString(getenv, "REDIS_URL", &cfg.Redis.URL)
	setString(getenv, "KAFKA_HISTORY_TOPIC", &cfg.Kafka.HistoryTopic)
	setString(getenv, "GITLAB_URL", &cfg.GitLab.BaseURL)
	setString(getenv, "GITLAB_TOKEN", &cfg.GitLab.Token)

	if v := getenv("EAM_TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = pstrings.SplitList(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = pstrings.SplitList(v)
	}

	durations := map[string]*time.Duration{
		"JWT_TTL":                &cfg.JWTTTL,
		"EAM_KPI_CACHE_TTL":      &cfg.KPICacheTTL,
		"EAM_LOGIN_WINDOW":       &cfg.Login.Window,
		"GITLAB_COMMITS_SINCE":   &cfg.GitLab.CommitsSince,
		"GITLAB_INITIAL_BACKOFF": &cfg.GitLab.InitialBackoff,
		"GITLAB_MAX_BACKOFF":     &cfg.GitLab.MaxBackoff,
		"GITLAB_SYNC_LOCK_TTL":   &cfg.GitLab.LockTTL,
	}
	for key, dst := range durations {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"GITLAB_PER_PAGE":        &cfg.GitLab.PerPage,
		"GITLAB_MAX_RETRIES":     &cfg.GitLab.MaxRetries,
		"REDIS_POOL_SIZE":        &cfg.Redis.PoolSize,
		"EAM_LOGIN_MAX_FAILURES": &cfg.Login.MaxFailures,
	}
	for key, dst := range ints {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := getenv("GITLAB_GROUP_IDS"); v != "" {
		ids := make([]int, 0)
		for _, part := range pstrings.SplitList(v) {
			n, err := strconv.Atoi(part)
			if err != nil {
				return fmt.Errorf("GITLAB_GROUP_IDS: %w", err)
			}
			ids = append(ids, n)
		}
		cfg.GitLab.GroupIDs = ids
	}
	return nil
}

func setString(getenv func(string) string, key string, dst *string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}
