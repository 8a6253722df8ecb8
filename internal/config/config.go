// Package config loads multicompare settings. Precedence, lowest first:
// built-in defaults, an optional YAML file, MULTICOMPARE_* environment
// variables. Command-line flags are applied by the caller on top.
//
//	MULTICOMPARE_CONFIDENCE        confidence threshold in [0,1] (default 0.8)
//	MULTICOMPARE_FORMAT            allrank|fixrank|filterbyconf (default allrank)
//	MULTICOMPARE_WORKERS           live classification workers (default 1); result parsing is sequential
//	MULTICOMPARE_STORAGE_DRIVER    memory|sqlite|postgres|badger (default sqlite)
//	MULTICOMPARE_SQLITE_PATH       sqlite file (default ./multicompare.db)
//	MULTICOMPARE_POSTGRES_DSN      postgres DSN when driver=postgres
//	MULTICOMPARE_BADGER_PATH       badger directory (default ./multicompare.badger)
//	MULTICOMPARE_BLOB_DRIVER       fs|s3|gcs|memory (default fs)
//	MULTICOMPARE_BLOB_FS_ROOT      directory root when driver=fs (default ./blobdata)
//	MULTICOMPARE_BLOB_S3_BUCKET / _REGION / _ENDPOINT / _PATH_STYLE
//	MULTICOMPARE_BLOB_GCS_BUCKET / _CREDENTIALS
//	MULTICOMPARE_LOG_LEVEL         debug|info|warn|error (default info)
//	MULTICOMPARE_METRICS_DRIVER    expvar|prometheus (default expvar)
//	MULTICOMPARE_METRICS_ADDR      listen address for /metrics (optional)
//	MULTICOMPARE_TRACING_EXPORTER  none|json|stdout|otlp (default none)
//	MULTICOMPARE_OTLP_ENDPOINT     OTLP gRPC receiver when exporter=otlp
//	MULTICOMPARE_OTLP_INSECURE     disable TLS for the OTLP connection
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"multicompare/pkg/domain"
)

// Config holds all multicompare settings.
type Config struct {
	Confidence float64 `yaml:"confidence"`
	Format     string  `yaml:"format"`
	Workers    int     `yaml:"workers"`
	Storage    Storage `yaml:"storage"`
	Blob       Blob    `yaml:"blob"`
	Log        Log     `yaml:"log"`
	Metrics    Metrics `yaml:"metrics"`
	Tracing    Tracing `yaml:"tracing"`
}

// Storage selects the run store backend.
type Storage struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	BadgerPath  string `yaml:"badger_path"`
}

// Blob selects the artifact blob backend.
type Blob struct {
	Driver string `yaml:"driver"`
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
	GCS    GCS    `yaml:"gcs"`
}

// S3 configures the S3 / MinIO blob driver.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// GCS configures the Google Cloud Storage blob driver.
type GCS struct {
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
}

// Metrics configures the metrics recorder.
type Metrics struct {
	Driver string `yaml:"driver"`
	Addr   string `yaml:"addr"`
}

// Tracing selects the span exporter. json writes core JSON lines; stdout and
// otlp export through the OpenTelemetry SDK.
type Tracing struct {
	Exporter     string `yaml:"exporter"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Confidence: domain.DefaultConfidence,
		Format:     "allrank",
		Workers:    1,
		Storage: Storage{
			Driver:     "sqlite",
			SQLitePath: "multicompare.db",
			BadgerPath: "multicompare.badger",
		},
		Blob: Blob{
			Driver: "fs",
			FSRoot: "./blobdata",
			S3:     S3{Region: "us-east-1"},
		},
		Log:     Log{Level: "info"},
		Metrics: Metrics{Driver: "expvar"},
		Tracing: Tracing{Exporter: "none"},
	}
}

// Load reads defaults, then path (when non-empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator supplied config path
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("MULTICOMPARE_CONFIDENCE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MULTICOMPARE_CONFIDENCE: %w", err)
		}
		cfg.Confidence = f
	}
	if v, ok := lookup("MULTICOMPARE_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MULTICOMPARE_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	if v, ok := lookup("MULTICOMPARE_BLOB_S3_PATH_STYLE"); ok && v != "" {
		cfg.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}
	if v, ok := lookup("MULTICOMPARE_OTLP_INSECURE"); ok && v != "" {
		cfg.Tracing.OTLPInsecure = strings.EqualFold(v, "true")
	}
	str("MULTICOMPARE_FORMAT", &cfg.Format)
	str("MULTICOMPARE_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("MULTICOMPARE_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("MULTICOMPARE_POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("MULTICOMPARE_BADGER_PATH", &cfg.Storage.BadgerPath)
	str("MULTICOMPARE_BLOB_DRIVER", &cfg.Blob.Driver)
	str("MULTICOMPARE_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("MULTICOMPARE_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("MULTICOMPARE_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("MULTICOMPARE_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	str("MULTICOMPARE_BLOB_GCS_BUCKET", &cfg.Blob.GCS.Bucket)
	str("MULTICOMPARE_BLOB_GCS_CREDENTIALS", &cfg.Blob.GCS.CredentialsFile)
	str("MULTICOMPARE_LOG_LEVEL", &cfg.Log.Level)
	str("MULTICOMPARE_METRICS_DRIVER", &cfg.Metrics.Driver)
	str("MULTICOMPARE_METRICS_ADDR", &cfg.Metrics.Addr)
	str("MULTICOMPARE_TRACING_EXPORTER", &cfg.Tracing.Exporter)
	str("MULTICOMPARE_OTLP_ENDPOINT", &cfg.Tracing.OTLPEndpoint)
	return nil
}

var (
	formats        = map[string]bool{"allrank": true, "fixrank": true, "filterbyconf": true}
	storageDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true, "badger": true}
	blobDrivers    = map[string]bool{"fs": true, "s3": true, "gcs": true, "memory": true}
	metricsDrivers = map[string]bool{"expvar": true, "prometheus": true}
	traceExporters = map[string]bool{"none": true, "json": true, "stdout": true, "otlp": true}
	logLevels      = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Confidence < 0 || c.Confidence > 1 {
		errs = append(errs, fmt.Errorf("confidence %v outside [0,1]", c.Confidence))
	}
	if !formats[c.Format] {
		errs = append(errs, fmt.Errorf("unknown format %q", c.Format))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if !storageDrivers[c.Storage.Driver] {
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if !blobDrivers[c.Blob.Driver] {
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if !metricsDrivers[c.Metrics.Driver] {
		errs = append(errs, fmt.Errorf("unknown metrics driver %q", c.Metrics.Driver))
	}
	if !traceExporters[c.Tracing.Exporter] {
		errs = append(errs, fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter))
	} else if c.Tracing.Exporter == "otlp" && c.Tracing.OTLPEndpoint == "" {
		errs = append(errs, errors.New("tracing exporter otlp requires an endpoint"))
	}
	if !logLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	return errors.Join(errs...)
}
