package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		MaxUploadMB    int      `yaml:"maxUploadMB"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // memory | sqlite | mysql | postgres
		DSN      string `yaml:"dsn"`    // overrides the host/port fields when set
		Path     string `yaml:"path"`   // sqlite file
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Storage struct {
		Backend string `yaml:"backend"` // local | minio
		Path    string `yaml:"path"`
	} `yaml:"storage"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Classifier struct {
		Kind      string `yaml:"kind"` // demo | cnn
		ModelPath string `yaml:"model_path"`
		Seed      int64  `yaml:"seed"`
	} `yaml:"classifier"`

	Imaging struct {
		OverlayBackend string `yaml:"overlay_backend"` // native | gocv
		KernelSize     int    `yaml:"kernel_size"`
		MaxPixels      int    `yaml:"max_pixels"`
	} `yaml:"imaging"`

	AI struct {
		Provider string        `yaml:"provider"` // openai | openrouter | none
		APIKey   string        `yaml:"apiKey"`
		Model    string        `yaml:"model"`
		BaseURL  string        `yaml:"baseURL"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"ai"`

	Report struct {
		Paper string `yaml:"paper"`
		Font  string `yaml:"font"`
	} `yaml:"report"`

	Auth struct {
		APIKeys []string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		PerMinute int `yaml:"perMinute"`
		Burst     int `yaml:"burst"`
	} `yaml:"rateLimit"`
}

// Load baca .env (kalau ada), file config.yaml, lalu override dari env.
// A missing config file is not an error; defaults plus env are enough to boot.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
	// provider key: yang spesifik menang
	switch c.AI.Provider {
	case "openrouter":
		if v := os.Getenv("OPENROUTER_KEY"); v != "" {
			c.AI.APIKey = v
		}
	case "", "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.AI.APIKey = v
			c.AI.Provider = "openai"
		} else if v := os.Getenv("OPENROUTER_KEY"); v != "" && c.AI.Provider == "" {
			c.AI.APIKey = v
			c.AI.Provider = "openrouter"
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 16
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/patients.db"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "local"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "static"
	}
	if c.Classifier.Kind == "" {
		c.Classifier.Kind = "demo"
	}
	if c.Classifier.ModelPath == "" {
		c.Classifier.ModelPath = "model/lung_model.gob"
	}
	if c.Imaging.OverlayBackend == "" {
		c.Imaging.OverlayBackend = "native"
	}
	if c.Imaging.KernelSize == 0 {
		c.Imaging.KernelSize = 21
	}
	if c.Imaging.MaxPixels == 0 {
		c.Imaging.MaxPixels = 40_000_000
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "none"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 30 * time.Second
	}
	if c.Report.Paper == "" {
		c.Report.Paper = "A4P"
	}
	if c.Report.Font == "" {
		c.Report.Font = "Helvetica"
	}
	if c.RateLimit.PerMinute == 0 {
		c.RateLimit.PerMinute = 60
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
}

// Validate checks the enum-like keys.
func (c *Config) Validate() error {
	check := func(key, v string, allowed ...string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("config %s: %q not one of %s", key, v, strings.Join(allowed, "|"))
	}
	for _, err := range []error{
		check("database.driver", c.Database.Driver, "memory", "sqlite", "mysql", "postgres"),
		check("storage.backend", c.Storage.Backend, "local", "minio"),
		check("classifier.kind", c.Classifier.Kind, "demo", "cnn"),
		check("imaging.overlay_backend", c.Imaging.OverlayBackend, "native", "gocv"),
		check("ai.provider", c.AI.Provider, "openai", "openrouter", "none"),
	} {
		if err != nil {
			return err
		}
	}
	if c.Imaging.KernelSize < 3 || c.Imaging.KernelSize%2 == 0 {
		return fmt.Errorf("config imaging.kernel_size: must be odd and >= 3, got %d", c.Imaging.KernelSize)
	}
	if c.Imaging.MaxPixels < 0 {
		return fmt.Errorf("config imaging.max_pixels: must be positive, got %d", c.Imaging.MaxPixels)
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres (lib/pq URL form)
func (c *Config) PostgresDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SQLitePath file database sqlite
func (c *Config) SQLitePath() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return c.Database.Path
}
