// Package config provides configuration management for Tessera using Viper
// for loading from files, environment variables and command-line flags.
//
// Values are read from .tessera.yml (or the file named by --config or
// TESSERA_CONFIG_FILE) and may be overridden by TESSERA_<SECTION>_<OPTION>
// environment variables. Defaults are applied after unmarshalling and the
// result is validated before use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tessera/internal/errors"
	"github.com/conneroisu/tessera/internal/logging"
	"github.com/conneroisu/tessera/internal/pipeline"
	"github.com/conneroisu/tessera/internal/processors"
	"github.com/conneroisu/tessera/internal/store"
	"github.com/conneroisu/tessera/internal/types"
)

// Defaults applied when a value is not configured.
const (
	DefaultStoreRoot = "./components"
	DefaultHost      = "localhost"
	DefaultPort      = 8080
	DefaultDebounce  = 300 * time.Millisecond
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

type Config struct {
	Store    StoreConfig           `mapstructure:"store" yaml:"store"`
	Resolver ResolverConfig        `mapstructure:"resolver" yaml:"resolver"`
	Watch    WatchConfig           `mapstructure:"watch" yaml:"watch"`
	Server   ServerConfig          `mapstructure:"server" yaml:"server"`
	Log      LogConfig             `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig         `mapstructure:"metrics" yaml:"metrics"`
	// Attribute files are read with yaml.v3. Viper folds key case, so
	// attributes such as wcm.editMode cannot live in the main configuration.
	PageFile   string                `mapstructure:"page_file" yaml:"page_file"`
	GlobalFile string                `mapstructure:"global_file" yaml:"global_file"`
	DesignFile string                `mapstructure:"design_file" yaml:"design_file"`
	Rules      []processors.RuleSpec `mapstructure:"rules" yaml:"rules"`

	// Page seeds every content model.
	Page map[string]any `mapstructure:"-" yaml:"-"`
	// Global and Design are nil when their file is not configured.
	Global map[string]any `mapstructure:"-" yaml:"-"`
	Design map[string]any `mapstructure:"-" yaml:"-"`
}

type StoreConfig struct {
	Root             string   `mapstructure:"root" yaml:"root"`
	ReservedPrefixes []string `mapstructure:"reserved_prefixes" yaml:"reserved_prefixes"`
}

type ResolverConfig struct {
	DefaultMode string `mapstructure:"default_mode" yaml:"default_mode"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// envKeys lists every scalar key that may be overridden from TESSERA_
// variables. Unmarshal only sees environment values for known keys.
var envKeys = []string{
	"store.root",
	"store.reserved_prefixes",
	"resolver.default_mode",
	"watch.enabled",
	"watch.debounce",
	"server.host",
	"server.port",
	"server.allowed_origins",
	"log.level",
	"log.format",
	"metrics.enabled",
	"page_file",
	"global_file",
	"design_file",
}

// BindEnv binds the configuration keys to their environment variables
func BindEnv(v *viper.Viper) {
	for _, key := range envKeys {
		v.BindEnv(key)
	}
}

// Load reads the configuration from the global viper instance
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "unmarshal configuration: "+err.Error())
	}

	// Environment overrides arrive as strings
	if raw, ok := v.Get("store.reserved_prefixes").(string); ok {
		config.Store.ReservedPrefixes = splitList(raw)
	}
	if raw, ok := v.Get("server.allowed_origins").(string); ok {
		config.Server.AllowedOrigins = splitList(raw)
	}

	if config.Store.Root == "" {
		config.Store.Root = DefaultStoreRoot
	}
	if !v.IsSet("store.reserved_prefixes") {
		config.Store.ReservedPrefixes = append([]string(nil), store.DefaultReservedPrefixes...)
	}
	if config.Resolver.DefaultMode == "" {
		config.Resolver.DefaultMode = types.DefaultMode.String()
	}
	if !v.IsSet("watch.enabled") {
		config.Watch.Enabled = true
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if !v.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}
	if !v.IsSet("metrics.enabled") {
		config.Metrics.Enabled = true
	}

	err := validateConfig(&config)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if config.Page, err = loadAttributes("page", config.PageFile); err != nil {
		return nil, err
	}
	if config.Page == nil {
		config.Page = make(map[string]any)
	}
	if config.Global, err = loadAttributes("global", config.GlobalFile); err != nil {
		return nil, err
	}
	if config.Design, err = loadAttributes("design", config.DesignFile); err != nil {
		return nil, err
	}
	return &config, nil
}

// splitList splits a comma or space separated list
func splitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' '
	})
}

// loadAttributes reads a YAML attribute file. An unset path yields nil.
func loadAttributes(kind, path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeConfigInvalid, "read "+kind+" file "+path, err)
	}
	attributes := make(map[string]any)
	if err := yaml.Unmarshal(data, &attributes); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "parse "+kind+" file "+path+": "+err.Error())
	}
	if attributes == nil {
		attributes = make(map[string]any)
	}
	return attributes, nil
}

// Mode returns the resolver default mode. The value is validated by Load.
func (c *Config) Mode() types.Mode {
	mode, _ := types.ParseMode(c.Resolver.DefaultMode)
	return mode
}

// LoggerConfig maps the log section onto a logging configuration
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	level, _ := logging.ParseLevel(c.Log.Level)
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = c.Log.Format
	return lc
}

// BuildRules compiles the configured rule processors
func (c *Config) BuildRules() ([]pipeline.Processor, error) {
	rules := make([]pipeline.Processor, 0, len(c.Rules))
	for i, spec := range c.Rules {
		rule, err := processors.NewRule(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateStoreConfig(&config.Store); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	for kind, path := range map[string]string{
		"page":   config.PageFile,
		"global": config.GlobalFile,
		"design": config.DesignFile,
	} {
		if path == "" {
			continue
		}
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid %s file '%s': %w", kind, path, err)
		}
	}
	if _, err := types.ParseMode(config.Resolver.DefaultMode); err != nil {
		return fmt.Errorf("resolver config: %w", invalid(err.Error()))
	}
	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch config: %w", invalid("debounce must not be negative"))
	}
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if _, err := config.BuildRules(); err != nil {
		return fmt.Errorf("rules config: %w", err)
	}
	return nil
}

func invalid(msg string) error {
	return errors.NewConfigError(errors.ErrCodeConfigInvalid, msg)
}

func validateStoreConfig(config *StoreConfig) error {
	if err := validatePath(config.Root); err != nil {
		return fmt.Errorf("invalid root '%s': %w", config.Root, err)
	}
	for _, prefix := range config.ReservedPrefixes {
		if strings.TrimSpace(prefix) == "" {
			return invalid("reserved prefixes must not be empty")
		}
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Validate port range (allow 0 for system-assigned ports in testing)
	if config.Port < 0 || config.Port > 65535 {
		return invalid(fmt.Sprintf("port %d is not in valid range 0-65535", config.Port))
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return invalid("host contains dangerous character: " + char)
		}
	}
	return nil
}

func validateLogConfig(config *LogConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return invalid(err.Error())
	}
	switch config.Format {
	case "text", "json":
		return nil
	default:
		return invalid(fmt.Sprintf("unknown log format %q (supported: text, json)", config.Format))
	}
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return invalid("empty path")
	}

	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return invalid("path contains traversal: " + path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return invalid("path contains dangerous character: " + char)
		}
	}
	return nil
}
