package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Inventory InventoryConfig `koanf:"inventory"`
	Export    ExportConfig    `koanf:"export"`
}

func (c Config) String() string {
	var b strings.Builder
	b.WriteString(c.Database.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.Inventory.String())
	b.WriteString(c.Export.String())
	return b.String()
}

const (
	envPrefix      = "storekeeper_"
	defaultEnvFile = ".env"
	configFile     = "config.yaml"
)

// defaults is the lowest priority layer.
var defaults = map[string]any{
	"database.driver":             DriverSQLite,
	"database.path":               "products.db",
	"database.timeout":            "10s",
	"database.debug":              false,
	"log.level":                   "info",
	"log.file":                    "storekeeper.log",
	"log.maxSizeMB":               16,
	"log.maxBackups":              3,
	"log.maxAgeDays":              28,
	"inventory.lowStockThreshold": 2,
	"inventory.calendar":          CalendarJalali,
	"inventory.currency":          "Toman",
	"export.dir":                  ".",
}

// Load reads the configuration from defaults, a file, a .env file and environment variables.
func Load() (*Config, error) {
	return load(configFile, defaultEnvFile)
}

func load(yamlFile, envFile string) (*Config, error) {
	// Create a new Koanf instance
	var k = koanf.New(".")

	// 0. Built-in defaults
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	// 1. Load configuration from yaml file
	if err := k.Load(file.Provider(yamlFile), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: error loading YAML config: %v", err)
		}
	}

	// 2. Load environment variables from .env file
	if envFileMap, err := godotenv.Read(envFile); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if !strings.HasPrefix(strings.ToLower(key), envPrefix) {
				continue
			}
			envMap[keyTransformer(key)] = value
		}
		// Load the envMap into Koanf
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 3. Load environment variables from the system, the highest priority
	if err := k.Load(env.Provider(strings.ToUpper(envPrefix), ".", keyTransformer), nil); err != nil {
		log.Printf("WARN: error loading env vars: %v", err)
	}

	var cfg Config
	// 4. Unmarshal the configuration into the Config struct
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// 5. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Inventory.Validate(); err != nil {
		return err
	}
	return nil
}

// keyTransformer transforms environment variable keys to match the expected format.
// Camel-cased keys cannot be spelled in env vars, so known ones are mapped back.
func keyTransformer(key string) string {
	key = strings.ToLower(key)
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ReplaceAll(key, "_", ".")
	if camel, ok := camelKeys[key]; ok {
		return camel
	}
	return key
}

var camelKeys = map[string]string{
	"log.maxsizemb":               "log.maxSizeMB",
	"log.maxbackups":              "log.maxBackups",
	"log.maxagedays":              "log.maxAgeDays",
	"inventory.lowstockthreshold": "inventory.lowStockThreshold",
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver  string        `koanf:"driver"`
	Path    string        `koanf:"path"`
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	Debug   bool          `koanf:"debug"`
}

func (c *DatabaseConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Database ---\n")
	b.WriteString(fmt.Sprintf("  database.driver: %s\n", c.Driver))
	switch c.Driver {
	case DriverSQLite:
		b.WriteString(fmt.Sprintf("  database.path: %s\n", c.Path))
	case DriverPostgres:
		b.WriteString(fmt.Sprintf("  database.url: %s\n", maskURL(c.URL)))
		b.WriteString(fmt.Sprintf("  database.timeout: %s\n", c.Timeout))
	}
	b.WriteString(fmt.Sprintf("  database.debug: %t\n", c.Debug))
	return b.String()
}

func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("database path is not configured")
		}
	case DriverPostgres:
		if c.URL == "" {
			return fmt.Errorf("database URL is not configured")
		}
		if !isValidPostgresURL(c.URL) {
			return fmt.Errorf("database URL must start with 'postgres://': %s", maskURL(c.URL))
		}
		if c.Timeout <= 0 {
			return fmt.Errorf("invalid database connect timeout: %v", c.Timeout)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Driver)
	}
	return nil
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the URL by replacing the username and password with "****"
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}

// isValidPostgresURL checks if the provided URL is a valid PostgreSQL URL
func isValidPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}

type LogConfig struct {
	Level      string `koanf:"level"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"maxSizeMB"`
	MaxBackups int    `koanf:"maxBackups"`
	MaxAgeDays int    `koanf:"maxAgeDays"`
}

// String returns a string representation of the log configuration.
func (c *LogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Log ---\n")
	b.WriteString(fmt.Sprintf("  level: %s\n", c.Level))
	if c.File == "" {
		b.WriteString("  file: <stderr>\n")
	} else {
		b.WriteString(fmt.Sprintf("  file: %s (max %dMB x %d, %d days)\n", c.File, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays))
	}
	return b.String()
}

func (c *LogConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Level)
	}
	if c.File != "" && c.MaxSizeMB <= 0 {
		return fmt.Errorf("invalid log file max size: %d", c.MaxSizeMB)
	}
	return nil
}

const (
	CalendarJalali    = "jalali"
	CalendarGregorian = "gregorian"
)

type InventoryConfig struct {
	LowStockThreshold int    `koanf:"lowStockThreshold"`
	Calendar          string `koanf:"calendar"`
	Currency          string `koanf:"currency"`
}

func (c *InventoryConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Inventory ---\n")
	b.WriteString(fmt.Sprintf("  lowStockThreshold: %d\n", c.LowStockThreshold))
	b.WriteString(fmt.Sprintf("  calendar: %s\n", c.Calendar))
	b.WriteString(fmt.Sprintf("  currency: %s\n", c.Currency))
	return b.String()
}

func (c *InventoryConfig) Validate() error {
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold must not be negative: %d", c.LowStockThreshold)
	}
	if c.Calendar != CalendarJalali && c.Calendar != CalendarGregorian {
		return fmt.Errorf("unknown calendar %q", c.Calendar)
	}
	return nil
}

type ExportConfig struct {
	Dir string `koanf:"dir"`
}

func (c *ExportConfig) String() string {
	return fmt.Sprintf("\n--- Export ---\n  dir: %s\n", c.Dir)
}
