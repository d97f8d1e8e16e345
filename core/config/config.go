package config

import (
	"errors"
	"reflect"
	"strings"

	"metadata-sync/core/database"
	"metadata-sync/core/logger"
	"metadata-sync/core/retry"
	"metadata-sync/core/storage"
	"metadata-sync/feature/index"
	"metadata-sync/feature/pipeline"
	"metadata-sync/feature/scan"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds the query engine and schema catalog connection.
	Database database.Config `mapstructure:"database"`
	// Storage holds configuration for the object storage used for exports and lineage.
	Storage storage.Config `mapstructure:"storage"`
	// Scan holds the managed scan service settings.
	Scan scan.Config `mapstructure:"scan"`
	// Index holds the search index settings.
	Index index.Config `mapstructure:"index"`
	// Pipeline holds batch settings.
	Pipeline pipeline.Config `mapstructure:"pipeline"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SCAN_ENDPOINT -> scan.endpoint)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, retry.ConfigError(err)
	}

	return &config, nil
}

// Validate reports every missing required setting as one configuration error.
// It must pass before any table is processed.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.Host) == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if strings.TrimSpace(c.Database.Name) == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if c.Database.Driver != "" && c.Database.Driver != "mysql" {
		errs = append(errs, errors.New("database.driver must be mysql"))
	}
	if c.Pipeline.UseManagedScan && strings.TrimSpace(c.Scan.Endpoint) == "" {
		errs = append(errs, errors.New("scan.endpoint is required when managed scans are enabled"))
	}
	if !c.Pipeline.SkipIndexSync && strings.TrimSpace(c.Index.Endpoint) == "" {
		errs = append(errs, errors.New("index.endpoint is required unless index sync is skipped"))
	}
	if c.Pipeline.Concurrency < 0 {
		errs = append(errs, errors.New("pipeline.concurrency must not be negative"))
	}
	if c.Pipeline.ExportPath != "" && strings.TrimSpace(c.Storage.Bucket) == "" {
		errs = append(errs, errors.New("storage.bucket is required for exports"))
	}

	if len(errs) == 0 {
		return nil
	}
	return retry.ConfigError(errors.Join(errs...))
}

// ValidatePublish checks the settings needed to publish an export: the index and the
// bucket holding the export. The database and scan service are not used.
func (c *Config) ValidatePublish() error {
	var errs []error
	if strings.TrimSpace(c.Index.Endpoint) == "" {
		errs = append(errs, errors.New("index.endpoint is required to publish"))
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		errs = append(errs, errors.New("storage.bucket is required to publish"))
	}
	if c.Pipeline.Concurrency < 0 {
		errs = append(errs, errors.New("pipeline.concurrency must not be negative"))
	}

	if len(errs) == 0 {
		return nil
	}
	return retry.ConfigError(errors.Join(errs...))
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
