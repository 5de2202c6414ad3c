// File: internal/config/config.go
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Console() ConsoleConfig
	Run() RunConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	ConsoleCfg ConsoleConfig `mapstructure:"console" yaml:"console"`
	RunCfg     RunConfig     `mapstructure:"run" yaml:"run"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Console() ConsoleConfig { return c.ConsoleCfg }
func (c *Config) Run() RunConfig         { return c.RunCfg }

// LoggerConfig defines all the settings for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig tunes the headless Chrome instance that drives the console.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	DisableImages   bool           `mapstructure:"disable_images" yaml:"disable_images"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent       string         `mapstructure:"user_agent" yaml:"user_agent"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	// ExecPath overrides the Chrome binary chromedp would otherwise locate.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
	// UserDataDir keeps cookies and profile state between runs when set.
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	// EchoConsole logs the page's console messages and uncaught exceptions.
	EchoConsole   bool `mapstructure:"echo_console" yaml:"echo_console"`
	AcceptDialogs bool `mapstructure:"accept_dialogs" yaml:"accept_dialogs"`
}

// ConsoleConfig locates the OMSA web console and the server it manages.
type ConsoleConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	// ManagedHost is the server selected on the login form, which may differ
	// from the host serving the console.
	ManagedHost       string `mapstructure:"managed_host" yaml:"managed_host"`
	IgnoreCertificate bool   `mapstructure:"ignore_certificate" yaml:"ignore_certificate"`
	LoginPath         string `mapstructure:"login_path" yaml:"login_path"`
}

// URL is the console login page, e.g. https://host:1311/OMSALogin?manageDWS=false.
func (c ConsoleConfig) URL() string {
	u := url.URL{
		Scheme: "https",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
	}
	path, query, _ := strings.Cut(c.LoginPath, "?")
	u.Path = path
	u.RawQuery = query
	return u.String()
}

// RunConfig holds the settings of a single check run. Most of it comes from
// command line flags.
type RunConfig struct {
	// WaitTimeout bounds every frame and element wait.
	WaitTimeout  time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// SettleDelay is slept before each drive is read, giving the data area
	// time to reload after the previous drive's action.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	// Timeout bounds the whole run.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	DryRun  bool          `mapstructure:"dry_run" yaml:"dry_run"`
	Format  string        `mapstructure:"format" yaml:"format"`
	// Output is the report destination; empty means stdout.
	Output string `mapstructure:"output" yaml:"output"`
}

// NewDefaultConfig returns a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// DefaultUserAgent is the desktop Chrome user agent the console is served.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "raidcc")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.disable_images", true)
	v.SetDefault("browser.ignore_tls_errors", true)
	v.SetDefault("browser.user_agent", DefaultUserAgent)
	v.SetDefault("browser.viewport", map[string]int{"width": 950, "height": 950})
	v.SetDefault("browser.echo_console", true)
	v.SetDefault("browser.accept_dialogs", true)

	// -- Console --
	v.SetDefault("console.port", 1311)
	v.SetDefault("console.ignore_certificate", true)
	v.SetDefault("console.login_path", "/OMSALogin?manageDWS=false")

	// -- Run --
	v.SetDefault("run.wait_timeout", "30s")
	v.SetDefault("run.poll_interval", "250ms")
	v.SetDefault("run.settle_delay", "2s")
	v.SetDefault("run.timeout", "10m")
	v.SetDefault("run.dry_run", false)
	v.SetDefault("run.format", "text")
	v.SetDefault("run.output", "")
}

// envBindings maps the console's well-known environment variables onto
// config keys. They are the variables the creds file exports.
var envBindings = map[string]string{
	"console.host":         "OMSAHOST",
	"console.port":         "OMSAPORT",
	"console.username":     "USERNAME",
	"console.password":     "PASSWORD",
	"console.managed_host": "DELLHOST",
}

// BindEnv binds the console's environment variables on v.
func BindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s to %s: %w", env, key, err)
		}
	}
	return nil
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := BindEnv(v); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if cfg.ConsoleCfg.ManagedHost == "" {
		cfg.ConsoleCfg.ManagedHost = cfg.ConsoleCfg.Host
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.LoggerCfg.LogFile, &c.BrowserCfg.ExecPath, &c.BrowserCfg.UserDataDir, &c.RunCfg.Output} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.ConsoleCfg.Validate(); err != nil {
		return err
	}
	if err := c.RunCfg.Validate(); err != nil {
		return err
	}
	switch c.LoggerCfg.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be one of console, json")
	}
	return nil
}

// Validate checks the console connection settings.
func (c *ConsoleConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("console.host is required (set OMSAHOST)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("console.port must be between 1 and 65535")
	}
	if c.Username == "" {
		return fmt.Errorf("console.username is required (set USERNAME)")
	}
	if c.Password == "" {
		return fmt.Errorf("console.password is required (set PASSWORD)")
	}
	return nil
}

// Validate checks the run settings.
func (r *RunConfig) Validate() error {
	if r.WaitTimeout <= 0 {
		return fmt.Errorf("run.wait_timeout must be a positive duration")
	}
	if r.PollInterval <= 0 {
		return fmt.Errorf("run.poll_interval must be a positive duration")
	}
	if r.SettleDelay < 0 {
		return fmt.Errorf("run.settle_delay must not be negative")
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("run.timeout must be a positive duration")
	}
	switch r.Format {
	case "text", "json":
	default:
		return fmt.Errorf("run.format must be one of text, json")
	}
	return nil
}
