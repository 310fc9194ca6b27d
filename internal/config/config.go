// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Supported form interaction modes.
const (
	ModePrefill = "prefill"
	ModeDirect  = "direct"
)

// MaxPages is the number of sequential form pages the navigator will walk.
const MaxPages = 3

// Interface defines the contract for accessing application configuration.
// The configuration is built once per run and is read-only afterwards, so
// the interface only exposes getters.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Form() FormConfig
	Navigation() NavigationConfig
	Confirm() ConfirmConfig
	Submit() SubmitConfig
	Artifacts() ArtifactsConfig
	Database() DatabaseConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	BrowserCfg    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	FormCfg       FormConfig       `mapstructure:"form" yaml:"form"`
	NavigationCfg NavigationConfig `mapstructure:"navigation" yaml:"navigation"`
	ConfirmCfg    ConfirmConfig    `mapstructure:"confirm" yaml:"confirm"`
	SubmitCfg     SubmitConfig     `mapstructure:"submit" yaml:"submit"`
	ArtifactsCfg  ArtifactsConfig  `mapstructure:"artifacts" yaml:"artifacts"`
	DatabaseCfg   DatabaseConfig   `mapstructure:"database" yaml:"database"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig       { return c.BrowserCfg }
func (c *Config) Form() FormConfig             { return c.FormCfg }
func (c *Config) Navigation() NavigationConfig { return c.NavigationCfg }
func (c *Config) Confirm() ConfirmConfig       { return c.ConfirmCfg }
func (c *Config) Submit() SubmitConfig         { return c.SubmitCfg }
func (c *Config) Artifacts() ArtifactsConfig   { return c.ArtifactsCfg }
func (c *Config) Database() DatabaseConfig     { return c.DatabaseCfg }

// LoggerConfig holds all the configuration for the logger.
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

// BrowserConfig holds settings for the Chrome instance driven by chromedp.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath        string        `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	WindowWidth     int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int           `mapstructure:"window_height" yaml:"window_height"`
	LaunchTimeout   time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	Platform        string        `mapstructure:"platform" yaml:"platform"`
	Languages       []string      `mapstructure:"languages" yaml:"languages"`
	Timezone        string        `mapstructure:"timezone" yaml:"timezone"`
	Locale          string        `mapstructure:"locale" yaml:"locale"`
}

// FormConfig describes the target form and how its answers are produced.
type FormConfig struct {
	Mode        string `mapstructure:"mode" yaml:"mode"`
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	FormURL     string `mapstructure:"form_url" yaml:"form_url"`
	MappingFile string `mapstructure:"mapping_file" yaml:"mapping_file"`
	SurveyFile  string `mapstructure:"survey_file" yaml:"survey_file"`
	// Pages overrides the survey's page count when positive.
	Pages            int    `mapstructure:"pages" yaml:"pages"`
	ReadySelector    string `mapstructure:"ready_selector" yaml:"ready_selector"`
	QuestionSelector string `mapstructure:"question_selector" yaml:"question_selector"`
	OptionSelector   string `mapstructure:"option_selector" yaml:"option_selector"`
}

// NavigationConfig controls how Next/Submit controls are located.
type NavigationConfig struct {
	SubmitLabel       string        `mapstructure:"submit_label" yaml:"submit_label"`
	NextLabel         string        `mapstructure:"next_label" yaml:"next_label"`
	SubmitXPaths      []string      `mapstructure:"submit_xpaths" yaml:"submit_xpaths"`
	NextXPaths        []string      `mapstructure:"next_xpaths" yaml:"next_xpaths"`
	ContainerXPath    string        `mapstructure:"container_xpath" yaml:"container_xpath"`
	ScriptFallback    bool          `mapstructure:"script_fallback" yaml:"script_fallback"`
	StrategyTimeout   time.Duration `mapstructure:"strategy_timeout" yaml:"strategy_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	ClickPause        time.Duration `mapstructure:"click_pause" yaml:"click_pause"`
	ScrollPause       time.Duration `mapstructure:"scroll_pause" yaml:"scroll_pause"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// ConfirmConfig lists the markers that identify a recorded response.
type ConfirmConfig struct {
	Phrases      []string      `mapstructure:"phrases" yaml:"phrases"`
	URLMarkers   []string      `mapstructure:"url_markers" yaml:"url_markers"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// SubmitConfig holds the loop parameters. Count and Randomize are usually
// supplied via CLI flags.
type SubmitConfig struct {
	Count         int           `mapstructure:"count" yaml:"count"`
	Randomize     bool          `mapstructure:"randomize" yaml:"randomize"`
	Seed          int64         `mapstructure:"seed" yaml:"seed"`
	PauseMin      time.Duration `mapstructure:"pause_min" yaml:"pause_min"`
	PauseMax      time.Duration `mapstructure:"pause_max" yaml:"pause_max"`
	RatePerMinute float64       `mapstructure:"rate_per_minute" yaml:"rate_per_minute"`
}

// ArtifactsConfig controls where diagnostic screenshots are written.
type ArtifactsConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Screenshots bool   `mapstructure:"screenshots" yaml:"screenshots"`
	Report      string `mapstructure:"report" yaml:"report"`
}

// DatabaseConfig holds the optional attempt store connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// DefaultSubmitXPaths are tried in order when looking for the final submit control.
var DefaultSubmitXPaths = []string{
	"//div[@role='button' and contains(., 'Submit')]",
	"//span[contains(text(), 'Submit')]",
	"//div[contains(@class, 'freebirdFormviewerViewNavigationSubmitButton')]",
	"//div[contains(@class, 'freebirdFormviewerViewNavigationButtons')]/div[2]",
	"//div[contains(@class, 'freebirdFormviewerViewNavigation')]/div[contains(@class, 'freebirdFormviewerViewNavigationButtonsAndProgress')]/div[2]",
}

// DefaultNextXPaths are tried in order when advancing to the next page.
var DefaultNextXPaths = []string{
	"//div[@role='button' and contains(., 'Next')]",
	"//span[contains(text(), 'Next')]",
	"//div[contains(@class, 'freebirdFormviewerViewNavigationNoSubmitButton')]",
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formpilot")
	v.SetDefault("logger.log_file", "formpilot.log")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.launch_timeout", "30s")
	v.SetDefault("browser.platform", "Win32")
	v.SetDefault("browser.languages", []string{"en-US", "en"})
	v.SetDefault("browser.timezone", "")
	v.SetDefault("browser.locale", "en-US")

	// -- Form --
	v.SetDefault("form.mode", ModePrefill)
	v.SetDefault("form.mapping_file", "entry_mapping.json")
	v.SetDefault("form.pages", 0)
	v.SetDefault("form.ready_selector", "form")
	v.SetDefault("form.question_selector", `div[role="listitem"]`)
	v.SetDefault("form.option_selector", `div[role="radio"]`)

	// -- Navigation --
	v.SetDefault("navigation.submit_label", "Submit")
	v.SetDefault("navigation.next_label", "Next")
	v.SetDefault("navigation.submit_xpaths", DefaultSubmitXPaths)
	v.SetDefault("navigation.next_xpaths", DefaultNextXPaths)
	v.SetDefault("navigation.container_xpath", "//div[contains(@class, 'freebirdFormviewerViewNavigationButtons')]//div")
	v.SetDefault("navigation.script_fallback", true)
	v.SetDefault("navigation.strategy_timeout", "5s")
	v.SetDefault("navigation.post_load_wait", "3s")
	v.SetDefault("navigation.click_pause", "200ms")
	v.SetDefault("navigation.scroll_pause", "500ms")
	v.SetDefault("navigation.navigation_timeout", "60s")

	// -- Confirm --
	v.SetDefault("confirm.phrases", []string{"Your response has been recorded", "Form submitted", "Thanks"})
	v.SetDefault("confirm.url_markers", []string{"formResponse", "closedform"})
	v.SetDefault("confirm.timeout", "10s")
	v.SetDefault("confirm.poll_interval", "500ms")

	// -- Submit --
	v.SetDefault("submit.count", 1)
	v.SetDefault("submit.randomize", false)
	v.SetDefault("submit.seed", 0)
	v.SetDefault("submit.pause_min", "1s")
	v.SetDefault("submit.pause_max", "2s")
	v.SetDefault("submit.rate_per_minute", 0.0)

	// -- Artifacts --
	v.SetDefault("artifacts.dir", ".")
	v.SetDefault("artifacts.screenshots", true)
	v.SetDefault("artifacts.report", "")

	// -- Database --
	v.SetDefault("database.url", "")
}

// BindLegacyEnv maps the environment variables used by earlier versions of
// the tool onto their configuration keys. Prefixed variables win.
func BindLegacyEnv(v *viper.Viper) error {
	if err := v.BindEnv("browser.user_agent", "FORMPILOT_BROWSER_USER_AGENT", "USER_AGENT"); err != nil {
		return err
	}
	if err := v.BindEnv("form.base_url", "FORMPILOT_FORM_BASE_URL", "GOOGLE_FORM_BASE_PREFILL_URL"); err != nil {
		return err
	}
	return v.BindEnv("database.url", "FORMPILOT_DATABASE_URL")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg, err := LoadFromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromViper unmarshals and expands the configuration without validating
// it. Commands that never touch the form use it.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := BindLegacyEnv(v); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandPaths resolves a leading "~" in every file system path.
func (c *Config) expandPaths() error {
	paths := []*string{
		&c.FormCfg.MappingFile,
		&c.FormCfg.SurveyFile,
		&c.ArtifactsCfg.Dir,
		&c.ArtifactsCfg.Report,
		&c.LoggerCfg.LogFile,
		&c.BrowserCfg.ExecPath,
	}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("could not expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.FormCfg.Validate(); err != nil {
		return fmt.Errorf("form: %w", err)
	}
	if err := c.NavigationCfg.Validate(); err != nil {
		return fmt.Errorf("navigation: %w", err)
	}
	if err := c.ConfirmCfg.Validate(); err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if err := c.SubmitCfg.Validate(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if c.BrowserCfg.WindowWidth <= 0 || c.BrowserCfg.WindowHeight <= 0 {
		return fmt.Errorf("browser.window_width and browser.window_height must be positive")
	}
	return nil
}

// Validate checks the form settings. A missing URL is only an error for the
// mode that needs it.
func (f *FormConfig) Validate() error {
	switch f.Mode {
	case ModePrefill:
		if f.BaseURL == "" {
			return fmt.Errorf("base_url is required in prefill mode (set GOOGLE_FORM_BASE_PREFILL_URL)")
		}
		if err := checkURL(f.BaseURL); err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
		if f.MappingFile == "" {
			return fmt.Errorf("mapping_file is required in prefill mode")
		}
	case ModeDirect:
		if f.FormURL == "" {
			return fmt.Errorf("form_url is required in direct mode")
		}
		if err := checkURL(f.FormURL); err != nil {
			return fmt.Errorf("form_url: %w", err)
		}
		if f.QuestionSelector == "" || f.OptionSelector == "" {
			return fmt.Errorf("question_selector and option_selector are required in direct mode")
		}
	default:
		return fmt.Errorf("unknown mode %q (supported: %s, %s)", f.Mode, ModePrefill, ModeDirect)
	}
	if f.Pages < 0 || f.Pages > MaxPages {
		return fmt.Errorf("pages must be between 0 and %d", MaxPages)
	}
	return nil
}

// Validate checks the navigation settings.
func (n *NavigationConfig) Validate() error {
	if len(n.SubmitXPaths) == 0 && !n.ScriptFallback {
		return fmt.Errorf("at least one submit_xpath is required when script_fallback is disabled")
	}
	if n.StrategyTimeout <= 0 {
		return fmt.Errorf("strategy_timeout must be a positive duration")
	}
	if n.PostLoadWait < 0 || n.ClickPause < 0 || n.ScrollPause < 0 {
		return fmt.Errorf("wait durations must not be negative")
	}
	return nil
}

// Validate checks the confirmation settings.
func (c *ConfirmConfig) Validate() error {
	if len(c.Phrases) == 0 && len(c.URLMarkers) == 0 {
		return fmt.Errorf("at least one phrase or url_marker is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive duration")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	return nil
}

// Validate checks the submission loop settings.
func (s *SubmitConfig) Validate() error {
	if s.Count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if s.PauseMin < 0 || s.PauseMax < 0 {
		return fmt.Errorf("pause durations must not be negative")
	}
	if s.PauseMin > s.PauseMax {
		return fmt.Errorf("pause_min (%v) must not exceed pause_max (%v)", s.PauseMin, s.PauseMax)
	}
	if s.RatePerMinute < 0 {
		return fmt.Errorf("rate_per_minute must not be negative")
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Scheme != "file" && strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
