// Package config loads vantage settings from an optional YAML file, a .env
// file and VANTAGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/TFMV/vantage/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. VANTAGE_SERVER_PORT.
const EnvPrefix = "vantage"

// FileName is the configuration file looked up in the config directory.
const FileName = "vantage.yaml"

// Config holds all configuration for the application.
type Config struct {
	// Server holds configuration for the HTTP API.
	Server ServerConfig `mapstructure:"server"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Compare holds the default field selection and engine tuning.
	Compare CompareConfig `mapstructure:"compare"`
	// Output holds defaults for written results.
	Output OutputConfig `mapstructure:"output"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host         string        `mapstructure:"host" default:"127.0.0.1"`
	Port         int           `mapstructure:"port" default:"8080"`
	BodyLimit    int           `mapstructure:"body_limit" default:"52428800"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" default:"30s"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CompareConfig holds the field sets applied on startup and engine options.
type CompareConfig struct {
	// KeyFields and IgnoredFields are field ids (dot-joined paths).
	KeyFields     []string `mapstructure:"key_fields"`
	IgnoredFields []string `mapstructure:"ignored_fields"`

	Parallel bool `mapstructure:"parallel" default:"true"`
	Workers  int  `mapstructure:"workers" default:"0"`

	// Debounce coalesces field set mutations before the diff is recomputed.
	Debounce time.Duration `mapstructure:"debounce" default:"0s"`
}

// OutputConfig holds defaults for diff and report output.
type OutputConfig struct {
	Format string `mapstructure:"format" default:"json"`
	Path   string `mapstructure:"path"`
	Report string `mapstructure:"report" default:"json"`
}

// LoadConfig loads configuration from dir: dir/.env is applied to the
// environment when present, dir/vantage.yaml is read when present, then
// environment variables override both.
func LoadConfig(dir string) (*Config, error) {
	envPath := filepath.Join(dir, ".env")
	if dir == "." || dir == "" {
		envPath = ".env"
	}
	// Ignore error if file doesn't exist
	_ = godotenv.Overload(envPath)

	file := filepath.Join(dir, FileName)
	if _, err := os.Stat(file); err != nil {
		file = ""
	}
	return load(file)
}

// LoadConfigFile loads configuration from an explicit YAML file.
func LoadConfigFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path is required")
	}
	return load(path)
}

func load(file string) (*Config, error) {
	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Map environment variables to nested keys (VANTAGE_SERVER_PORT -> server.port)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// bindValues walks the struct and registers every mapstructure key in viper
// with its 'default' tag, so AutomaticEnv can see it.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

// validate is a helper function to reduce repetition.
func validate(condition bool, format string, a ...any) error {
	if !condition {
		return fmt.Errorf(format, a...)
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := c.Compare.Validate(); err != nil {
		return fmt.Errorf("compare validation failed: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}
	return nil
}

// Validate checks the server section.
func (s *ServerConfig) Validate() error {
	if err := validate(s.Port > 0 && s.Port < 65536, "port must be between 1 and 65535, got %d", s.Port); err != nil {
		return err
	}
	return validate(s.BodyLimit > 0, "body limit must be positive")
}

// Validate checks the compare section.
func (c *CompareConfig) Validate() error {
	if err := validate(c.Workers >= 0, "workers must not be negative"); err != nil {
		return err
	}
	if err := validate(c.Debounce >= 0, "debounce must not be negative"); err != nil {
		return err
	}
	for _, id := range c.KeyFields {
		if err := validate(id != "", "key field ids must not be empty"); err != nil {
			return err
		}
		for _, ignored := range c.IgnoredFields {
			if err := validate(id != ignored, "field %q is both a key and an ignored field", id); err != nil {
				return err
			}
		}
	}
	for _, id := range c.IgnoredFields {
		if err := validate(id != "", "ignored field ids must not be empty"); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the output section.
func (o *OutputConfig) Validate() error {
	if err := validate(oneOf(o.Format, "json", "arrow", "parquet", "table"), "unsupported output format %q", o.Format); err != nil {
		return err
	}
	return validate(oneOf(o.Report, "json", "html"), "unsupported report format %q", o.Report)
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
