package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	constants "pulsepc/config"
	"pulsepc/internal/telemetry"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	RefreshInterval   time.Duration     `mapstructure:"refresh_interval"`
	IdlePollInterval  time.Duration     `mapstructure:"idle_poll_interval"`
	ProviderTimeout   time.Duration     `mapstructure:"provider_timeout"`
	CPUSampleWindow   time.Duration     `mapstructure:"cpu_sample_window"`
	ShutdownGrace     time.Duration     `mapstructure:"shutdown_grace"`
	PowerShellTimeout time.Duration     `mapstructure:"powershell_timeout"`
	ThermalMinCelsius float64           `mapstructure:"thermal_min_celsius"`
	ThermalMaxCelsius float64           `mapstructure:"thermal_max_celsius"`
	Windows11MinBuild int               `mapstructure:"windows11_min_build"`
	DynamicCategories []string          `mapstructure:"dynamic_categories"`
	LogFile           string            `mapstructure:"log_file"`
	LogLevel          string            `mapstructure:"log_level"`
	MetricsListen     string            `mapstructure:"metrics_listen"`
	OTLPEndpoint      string            `mapstructure:"otlp_endpoint"`
	OTLPHeaders       map[string]string `mapstructure:"otlp_headers"`
	SysfsRoot         string            `mapstructure:"sysfs_root"`

	// Source is the config file that was read, empty when running on defaults
	Source string `mapstructure:"-"`
}

// Keys lists every setting in the order `pulsepc config` prints them
var Keys = []string{
	"refresh_interval",
	"idle_poll_interval",
	"provider_timeout",
	"cpu_sample_window",
	"shutdown_grace",
	"powershell_timeout",
	"thermal_min_celsius",
	"thermal_max_celsius",
	"windows11_min_build",
	"dynamic_categories",
	"log_file",
	"log_level",
	"metrics_listen",
	"otlp_endpoint",
	"otlp_headers",
	"sysfs_root",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("refresh_interval", constants.DEFAULT_REFRESH_INTERVAL)
	v.SetDefault("idle_poll_interval", constants.DEFAULT_IDLE_POLL_INTERVAL)
	v.SetDefault("provider_timeout", constants.DEFAULT_PROVIDER_TIMEOUT)
	v.SetDefault("cpu_sample_window", constants.DEFAULT_CPU_SAMPLE_WINDOW)
	v.SetDefault("shutdown_grace", constants.DEFAULT_SHUTDOWN_GRACE)
	v.SetDefault("powershell_timeout", constants.DEFAULT_POWERSHELL_TIMEOUT)
	v.SetDefault("thermal_min_celsius", constants.DEFAULT_THERMAL_MIN_CELSIUS)
	v.SetDefault("thermal_max_celsius", constants.DEFAULT_THERMAL_MAX_CELSIUS)
	v.SetDefault("windows11_min_build", constants.DEFAULT_WINDOWS11_MIN_BUILD)
	v.SetDefault("dynamic_categories", categoryNames(telemetry.DefaultDynamicCategories()))
	v.SetDefault("log_file", constants.LOG_FILE)
	v.SetDefault("log_level", constants.DEFAULT_LOG_LEVEL)
	v.SetDefault("metrics_listen", constants.DEFAULT_METRICS_LISTEN)
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("otlp_headers", map[string]string{})
	v.SetDefault("sysfs_root", constants.SYSFS_ROOT)
}

func newViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Dir returns the per-user configuration directory
func Dir() string {
	return os.Getenv("HOME") + constants.CONFIG_DIR_NAME
}

// LoadConfig loads configuration from file and environment. A missing
// config file is not an error; defaults apply.
func LoadConfig() (*Config, error) {
	v := newViper(afero.NewOsFs())
	v.SetConfigName("config")
	v.AddConfigPath("$HOME" + constants.CONFIG_DIR_NAME)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// LoadFile loads configuration from an explicit path on fs
func LoadFile(fs afero.Fs, path string) (*Config, error) {
	v := newViper(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

// LoadFileOS loads configuration from an explicit path on disk
func LoadFileOS(path string) (*Config, error) {
	return LoadFile(afero.NewOsFs(), path)
}

// Defaults returns the configuration used when no file or env override exists
func Defaults() *Config {
	cfg, err := decode(newViper(afero.NewMemMapFs()))
	if err != nil {
		// compile-time defaults always validate
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the refresh engine cannot run with
func (cfg *Config) Validate() error {
	var errs []error

	minWindow, _ := time.ParseDuration(constants.MIN_CPU_SAMPLE_WINDOW)
	if cfg.CPUSampleWindow < minWindow {
		errs = append(errs, fmt.Errorf("cpu_sample_window must be at least %v, got %v", minWindow, cfg.CPUSampleWindow))
	}
	if cfg.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval must be positive, got %v", cfg.RefreshInterval))
	}
	if cfg.IdlePollInterval <= 0 {
		errs = append(errs, fmt.Errorf("idle_poll_interval must be positive, got %v", cfg.IdlePollInterval))
	}
	if cfg.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("provider_timeout must be positive, got %v", cfg.ProviderTimeout))
	}
	if cfg.ShutdownGrace < 0 {
		errs = append(errs, fmt.Errorf("shutdown_grace must not be negative, got %v", cfg.ShutdownGrace))
	}
	if cfg.ThermalMinCelsius >= cfg.ThermalMaxCelsius {
		errs = append(errs, fmt.Errorf("thermal bounds inverted: min %.1f >= max %.1f", cfg.ThermalMinCelsius, cfg.ThermalMaxCelsius))
	}
	if _, err := cfg.Dynamic(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warning or error, got %q", cfg.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Dynamic returns the categories refreshed periodically
func (cfg *Config) Dynamic() ([]telemetry.Category, error) {
	cats, err := telemetry.ParseCategories(cfg.DynamicCategories)
	if err != nil {
		return nil, fmt.Errorf("dynamic_categories: %w", err)
	}
	return cats, nil
}

// SchedulerConfig maps the settings onto the refresh loop
func (cfg *Config) SchedulerConfig() telemetry.SchedulerConfig {
	dynamic, err := cfg.Dynamic()
	if err != nil {
		dynamic = telemetry.DefaultDynamicCategories()
	}
	if dynamic == nil {
		dynamic = []telemetry.Category{}
	}
	return telemetry.SchedulerConfig{
		Interval: cfg.RefreshInterval,
		IdlePoll: cfg.IdlePollInterval,
		Grace:    cfg.ShutdownGrace,
		Dynamic:  dynamic,
	}
}

// ThermalBounds returns the plausibility window for temperature readings
func (cfg *Config) ThermalBounds() telemetry.ThermalBounds {
	return telemetry.ThermalBounds{Min: cfg.ThermalMinCelsius, Max: cfg.ThermalMaxCelsius}
}

// Values returns every setting keyed as in the config file
func (cfg *Config) Values() map[string]interface{} {
	return map[string]interface{}{
		"refresh_interval":    cfg.RefreshInterval.String(),
		"idle_poll_interval":  cfg.IdlePollInterval.String(),
		"provider_timeout":    cfg.ProviderTimeout.String(),
		"cpu_sample_window":   cfg.CPUSampleWindow.String(),
		"shutdown_grace":      cfg.ShutdownGrace.String(),
		"powershell_timeout":  cfg.PowerShellTimeout.String(),
		"thermal_min_celsius": cfg.ThermalMinCelsius,
		"thermal_max_celsius": cfg.ThermalMaxCelsius,
		"windows11_min_build": cfg.Windows11MinBuild,
		"dynamic_categories":  cfg.DynamicCategories,
		"log_file":            cfg.LogFile,
		"log_level":           cfg.LogLevel,
		"metrics_listen":      cfg.MetricsListen,
		"otlp_endpoint":       cfg.OTLPEndpoint,
		"otlp_headers":        cfg.OTLPHeaders,
		"sysfs_root":          cfg.SysfsRoot,
	}
}

// SaveConfig writes cfg to the per-user config file
func SaveConfig(cfg *Config) (string, error) {
	path := filepath.Join(Dir(), "config.yaml")
	return path, WriteFile(afero.NewOsFs(), cfg, path)
}

// WriteFile writes cfg as YAML to path on fs
func WriteFile(fs afero.Fs, cfg *Config, path string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	for k, val := range cfg.Values() {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func categoryNames(cats []telemetry.Category) []string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}
	return names
}
