package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		CORSOrigins     []string      `yaml:"corsOrigins"`
		RateLimit       struct {
			RequestsPerMinute int `yaml:"requestsPerMinute"`
			Burst             int `yaml:"burst"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql, postgres or memory
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey  string        `yaml:"apiKey"`
		Model   string        `yaml:"model"`
		BaseURL string        `yaml:"baseURL"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"openai"`

	Report struct {
		RequirePayment  bool          `yaml:"requirePayment"`
		BaselinePremium int           `yaml:"baselinePremium"`
		RenderTimeout   time.Duration `yaml:"renderTimeout"`
		ChromePath      string        `yaml:"chromePath"`
	} `yaml:"report"`

	Admin struct {
		APIKey string `yaml:"apiKey"`
	} `yaml:"admin"`
}

// Default returns a configuration that runs locally against the in-memory store.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.RateLimit.RequestsPerMinute = 120
	c.Server.RateLimit.Burst = 20
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Database.Driver = "memory"
	c.Database.SSLMode = "disable"
	c.Minio.BucketName = "reports"
	c.OpenAI.Model = "gpt-4o-mini"
	c.OpenAI.Timeout = 20 * time.Second
	c.Report.BaselinePremium = 1800
	c.Report.RenderTimeout = 30 * time.Second
	return &c
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"DATABASE_DRIVER":   &c.Database.Driver,
		"DATABASE_HOST":     &c.Database.Host,
		"DATABASE_PASSWORD": &c.Database.Password,
		"OPENAI_API_KEY":    &c.OpenAI.APIKey,
		"MINIO_SECRET_KEY":  &c.Minio.SecretKey,
		"ADMIN_API_KEY":     &c.Admin.APIKey,
		"LOG_LEVEL":         &c.Log.Level,
		"LOG_FORMAT":        &c.Log.Format,
		"CHROME_PATH":       &c.Report.ChromePath,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("HTTP_PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_PORT %q", v)
		}
		c.Server.Port = n
	}
	return nil
}

// Validate names the first offending key.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case c.Server.ShutdownTimeout <= 0:
		return errors.New("server.shutdownTimeout must be positive")
	case c.Server.RateLimit.RequestsPerMinute < 0 || c.Server.RateLimit.Burst < 0:
		return errors.New("server.rateLimit values must not be negative")
	case c.Report.BaselinePremium <= 0:
		return errors.New("report.baselinePremium must be positive")
	case c.Report.RenderTimeout <= 0:
		return errors.New("report.renderTimeout must be positive")
	case c.OpenAI.Timeout <= 0:
		return errors.New("openai.timeout must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not json or text", c.Log.Format)
	}
	switch c.Database.Driver {
	case "memory":
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver %q is not mysql, postgres or memory", c.Database.Driver)
	}
	if c.Minio.Endpoint != "" && c.Minio.BucketName == "" {
		return errors.New("minio.bucketName is required when minio.endpoint is set")
	}
	return nil
}

// ArchiveEnabled reports whether generated reports are copied to object storage.
func (c *Config) ArchiveEnabled() bool { return c.Minio.Endpoint != "" }

// InsightsEnabled reports whether an OpenAI key is configured.
func (c *Config) InsightsEnabled() bool { return c.OpenAI.APIKey != "" }

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC&clientFoundRows=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection URL.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}
