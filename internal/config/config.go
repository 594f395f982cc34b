// Package config loads client settings from, in increasing priority,
// built-in defaults, a JSON or YAML config file, the environment
// (optionally seeded from a .env file) and command-line flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/patric-chuzhbe/hackorsnooze/internal/logger"
)

// Config holds every setting the client needs.
type Config struct {
	APIBaseURL          string        `env:"API_BASE_URL" validate:"required,url"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	CredentialsFileName string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DatabaseDriver      string        `env:"DATABASE_DRIVER" validate:"oneof=pgx sqlite"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	Profile             string        `env:"PROFILE" validate:"required"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	RequestsPerSecond   float64       `env:"REQUESTS_PER_SECOND" validate:"gte=0"`
	MetricsTextfile     string        `env:"METRICS_TEXTFILE" validate:"filepath"`
	ConfigFile          string        `env:"CONFIG"`
}

// fileConfig is the on-disk shape; durations are written as "10s".
type fileConfig struct {
	APIBaseURL          string  `json:"api_base_url" yaml:"api_base_url"`
	LogLevel            string  `json:"log_level" yaml:"log_level"`
	CredentialsFileName string  `json:"file_storage_path" yaml:"file_storage_path"`
	DatabaseDSN         string  `json:"database_dsn" yaml:"database_dsn"`
	DatabaseDriver      string  `json:"database_driver" yaml:"database_driver"`
	DBConnectionTimeout string  `json:"db_connection_timeout" yaml:"db_connection_timeout"`
	Profile             string  `json:"profile" yaml:"profile"`
	RequestTimeout      string  `json:"request_timeout" yaml:"request_timeout"`
	RequestsPerSecond   float64 `json:"requests_per_second" yaml:"requests_per_second"`
	MetricsTextfile     string  `json:"metrics_textfile" yaml:"metrics_textfile"`
}

// Flag names registered by RegisterFlags.
const (
	FlagBaseURL         = "base-url"
	FlagLogLevel        = "log-level"
	FlagCredentialsFile = "credentials-file"
	FlagDatabaseDSN     = "database-dsn"
	FlagDatabaseDriver  = "database-driver"
	FlagProfile         = "profile"
	FlagMetricsTextfile = "metrics-textfile"
	FlagConfig          = "config"
)

var defaultConfig = Config{
	APIBaseURL:          "https://hack-or-snooze-v3.herokuapp.com",
	LogLevel:            "warn",
	CredentialsFileName: "",
	DatabaseDSN:         "",
	DatabaseDriver:      "pgx",
	DBConnectionTimeout: 10 * time.Second,
	Profile:             "default",
	RequestTimeout:      30 * time.Second,
	RequestsPerSecond:   0,
	MetricsTextfile:     "",
}

type InitOption func(*initOptions)

type initOptions struct {
	flagSet       *pflag.FlagSet
	disableDotEnv bool
}

// WithFlagSet makes flags that were explicitly set on fs override
// every other source. The flag set must have been populated by
// RegisterFlags and already parsed.
func WithFlagSet(fs *pflag.FlagSet) InitOption {
	return func(options *initOptions) {
		options.flagSet = fs
	}
}

// WithDisableDotEnv skips loading the .env file.
func WithDisableDotEnv(disable bool) InitOption {
	return func(options *initOptions) {
		options.disableDotEnv = disable
	}
}

// RegisterFlags declares the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagBaseURL, "b", "", "base URL of the story-sharing API")
	fs.StringP(FlagLogLevel, "l", "", "logger level")
	fs.StringP(FlagCredentialsFile, "f", "", "JSON file holding the persisted login credentials")
	fs.StringP(FlagDatabaseDSN, "d", "", "DSN of a SQL database holding the persisted login credentials")
	fs.String(FlagDatabaseDriver, "", "SQL driver for --database-dsn: pgx or sqlite")
	fs.StringP(FlagProfile, "p", "", "name of the credentials profile")
	fs.String(FlagMetricsTextfile, "", "write request metrics to this file on exit")
	fs.StringP(FlagConfig, "c", "", "path to a JSON or YAML config file")
}

// New builds a validated Config.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if !options.disableDotEnv {
		if err := godotenv.Load(); err != nil {
			logger.Log.Debugln("Unable to load .env file:", err)
		}
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}

	configFile := valuesFromEnv.ConfigFile
	if flagValue, ok := changedString(options.flagSet, FlagConfig); ok {
		configFile = flagValue
	}

	if configFile != "" {
		valuesFromFile, err := loadFile(configFile)
		if err != nil {
			return nil, err
		}
		applyDefaults(values, *valuesFromFile)
		values.ConfigFile = configFile
	}

	applyDefaults(values, valuesFromEnv)
	applyFlags(values, options.flagSet)

	values.clarifyAPIBaseURL()

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

// applyDefaults copies every non-zero field of src over dst.
func applyDefaults(dst *Config, src Config) {
	if src.APIBaseURL != "" {
		dst.APIBaseURL = src.APIBaseURL
	}

	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}

	if src.CredentialsFileName != "" {
		dst.CredentialsFileName = src.CredentialsFileName
	}

	if src.DatabaseDSN != "" {
		dst.DatabaseDSN = src.DatabaseDSN
	}

	if src.DatabaseDriver != "" {
		dst.DatabaseDriver = src.DatabaseDriver
	}

	if src.DBConnectionTimeout != 0 {
		dst.DBConnectionTimeout = src.DBConnectionTimeout
	}

	if src.Profile != "" {
		dst.Profile = src.Profile
	}

	if src.RequestTimeout != 0 {
		dst.RequestTimeout = src.RequestTimeout
	}

	if src.RequestsPerSecond != 0 {
		dst.RequestsPerSecond = src.RequestsPerSecond
	}

	if src.MetricsTextfile != "" {
		dst.MetricsTextfile = src.MetricsTextfile
	}

	if src.ConfigFile != "" {
		dst.ConfigFile = src.ConfigFile
	}
}

func applyFlags(dst *Config, fs *pflag.FlagSet) {
	if v, ok := changedString(fs, FlagBaseURL); ok {
		dst.APIBaseURL = v
	}

	if v, ok := changedString(fs, FlagLogLevel); ok {
		dst.LogLevel = v
	}

	if v, ok := changedString(fs, FlagCredentialsFile); ok {
		dst.CredentialsFileName = v
	}

	if v, ok := changedString(fs, FlagDatabaseDSN); ok {
		dst.DatabaseDSN = v
	}

	if v, ok := changedString(fs, FlagDatabaseDriver); ok {
		dst.DatabaseDriver = v
	}

	if v, ok := changedString(fs, FlagProfile); ok {
		dst.Profile = v
	}

	if v, ok := changedString(fs, FlagMetricsTextfile); ok {
		dst.MetricsTextfile = v
	}
}

func changedString(fs *pflag.FlagSet, name string) (string, bool) {
	if fs == nil || fs.Lookup(name) == nil || !fs.Changed(name) {
		return "", false
	}
	value, err := fs.GetString(name)
	if err != nil {
		return "", false
	}

	return value, true
}

func loadFile(fileName string) (*Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var raw fileConfig
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", fileName, err)
	}

	result := &Config{
		APIBaseURL:          raw.APIBaseURL,
		LogLevel:            raw.LogLevel,
		CredentialsFileName: raw.CredentialsFileName,
		DatabaseDSN:         raw.DatabaseDSN,
		DatabaseDriver:      raw.DatabaseDriver,
		Profile:             raw.Profile,
		RequestsPerSecond:   raw.RequestsPerSecond,
		MetricsTextfile:     raw.MetricsTextfile,
	}

	if raw.DBConnectionTimeout != "" {
		result.DBConnectionTimeout, err = time.ParseDuration(raw.DBConnectionTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing db_connection_timeout: %w", err)
		}
	}

	if raw.RequestTimeout != "" {
		result.RequestTimeout, err = time.ParseDuration(raw.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing request_timeout: %w", err)
		}
	}

	return result, nil
}

// clarifyAPIBaseURL drops trailing slashes so paths can be appended as-is.
func (c *Config) clarifyAPIBaseURL() {
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}
