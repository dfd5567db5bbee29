package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"tiergate/pkg/validation"
)

// Lookup source kinds.
const (
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
	SourceRedis    = "redis"
	SourceMemory   = "memory"
)

// Defaults applied before the file and environment are read.
const (
	DefaultAddr          = ":8080"
	DefaultEnvironment   = "development"
	DefaultLogLevel      = "info"
	DefaultFeaturePath   = "restricted/v1/care/feature/get-url-for-service"
	DefaultLookupTimeout = 5 * time.Second
	DefaultPartnerHeader = "PARTNER-ID"
	DefaultConfigFile    = "./config/tiergate.yaml"
)

// Service is a downstream service and its static default endpoint.
type Service struct {
	Name       string `yaml:"name" validate:"notblank"`
	DefaultURI string `yaml:"default_uri" validate:"absuri"`
}

// Entry seeds the memory lookup source.
type Entry struct {
	PartnerID   string `yaml:"partner_id" validate:"required"`
	Service     string `yaml:"service" validate:"required"`
	EndpointURI string `yaml:"endpoint_uri" validate:"required"`
}

// Lookup configures the external tier config source.
type Lookup struct {
	Source       string        `yaml:"source" validate:"oneof=http postgres redis memory"`
	URL          string        `yaml:"url" validate:"required_unless=Source memory"`
	FeaturePath  string        `yaml:"feature_path"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	SingleFlight bool          `yaml:"single_flight"`
	Entries      []Entry       `yaml:"entries" validate:"dive"`
}

// Server captures process level configuration.
type Server struct {
	Addr             string    `yaml:"addr" validate:"required"`
	Environment      string    `yaml:"environment"`
	LogLevel         string    `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	CacheSize        int       `yaml:"cache_size" validate:"gt=0"`
	Lookup           Lookup    `yaml:"lookup"`
	DefaultPartnerID string    `yaml:"default_partner_id" validate:"required"`
	PartnerHeader    string    `yaml:"partner_header" validate:"required"`
	CacheHeader      string    `yaml:"cache_header" validate:"required"`
	Services         []Service `yaml:"services" validate:"required,min=1,unique=Name,dive"`
}

// Defaults returns a Server with every optional field set.
func Defaults() Server {
	return Server{
		Addr:          DefaultAddr,
		Environment:   DefaultEnvironment,
		LogLevel:      DefaultLogLevel,
		PartnerHeader: DefaultPartnerHeader,
		Lookup: Lookup{
			Source:      SourceHTTP,
			FeaturePath: DefaultFeaturePath,
			Timeout:     DefaultLookupTimeout,
		},
	}
}

// Load reads path (if it exists), applies TIER_* environment overrides and
// validates the result. An empty path means no file.
func Load(path string) (Server, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Server{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Server{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Server{}, err
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// FilePath returns the config file named by TIER_CONFIG_FILE or the default.
func FilePath() string {
	if p := os.Getenv("TIER_CONFIG_FILE"); p != "" {
		return p
	}
	return DefaultConfigFile
}

func (c *Server) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TIER_ADDR", &c.Addr)
	str("TIER_ENV", &c.Environment)
	str("TIER_LOG_LEVEL", &c.LogLevel)
	str("TIER_LOOKUP_SOURCE", &c.Lookup.Source)
	str("TIER_LOOKUP_URL", &c.Lookup.URL)
	str("TIER_LOOKUP_FEATURE_PATH", &c.Lookup.FeaturePath)
	str("TIER_DEFAULT_PARTNER_ID", &c.DefaultPartnerID)
	str("TIER_PARTNER_HEADER", &c.PartnerHeader)
	str("TIER_CACHE_HEADER", &c.CacheHeader)

	if v, ok := lookup("TIER_CACHE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TIER_CACHE_SIZE: %w", err)
		}
		c.CacheSize = n
	}
	if v, ok := lookup("TIER_LOOKUP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TIER_LOOKUP_TIMEOUT: %w", err)
		}
		c.Lookup.Timeout = d
	}
	if v, ok := lookup("TIER_LOOKUP_SINGLE_FLIGHT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TIER_LOOKUP_SINGLE_FLIGHT: %w", err)
		}
		c.Lookup.SingleFlight = b
	}
	return nil
}

// Validate reports every configuration defect at once. Struct tags cover
// presence and ranges; the lookup URL is then parsed for its source kind.
func (c Server) Validate() error {
	return errors.Join(
		validation.Struct(c),
		c.Lookup.validateURL(),
	)
}

// validateURL parses a non-empty lookup URL the way its source will dial it.
func (l Lookup) validateURL() error {
	if l.URL == "" {
		return nil
	}
	switch l.Source {
	case SourceHTTP:
		u, err := url.Parse(l.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("lookup.url %q must be an absolute http(s) URL", l.URL)
		}
	case SourcePostgres:
		if _, err := pgx.ParseConfig(l.URL); err != nil {
			return fmt.Errorf("lookup.url is not a valid postgres connection string: %w", err)
		}
	case SourceRedis:
		if _, err := redis.ParseURL(l.URL); err != nil {
			return fmt.Errorf("lookup.url is not a valid redis URL: %w", err)
		}
	}
	return nil
}
