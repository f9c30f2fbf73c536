// Package config resolves command-line flags and the YAML config file into
// the Settings a session runs with.
//
// Precedence is flags, then the config file, then built-in defaults. The
// default config file is optional; an explicitly named one is not.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/tuxx/shaderlock/internal/auth"
	"github.com/tuxx/shaderlock/internal/logging"
)

// AppName names the XDG subdirectories and the lock file.
const AppName = "shaderlock"

// Limits and defaults.
const (
	DefaultFPS  = 60
	MaxFPS      = 240
	DefaultFade = time.Second
)

// ErrInvalid reports a config value out of range.
var ErrInvalid = errors.New("invalid configuration")

// File is the on-disk YAML config. Absent keys keep their defaults.
type File struct {
	// Lock set to false selects screensaver mode.
	Lock       *bool  `yaml:"lock"`
	Shader     string `yaml:"shader"`
	Background string `yaml:"background"`
	FPS        int    `yaml:"fps"`
	// Fade is a Go duration string such as "1s" or "750ms".
	Fade       string `yaml:"fade"`
	PAMService string `yaml:"pam_service"`
	Font       string `yaml:"font"`
}

// Flags are the command-line options.
type Flags struct {
	Config     string
	Shader     string
	Background string
	Screensave bool
	Daemonize  bool
	Logfile    string
	LogLevel   string
	FPS        int
	Fade       time.Duration
	PAMService string
	Font       string
}

// AddFlags registers the options on flagSet.
func (f *Flags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.Config, "config", "c", "", "config file (default $XDG_CONFIG_HOME/shaderlock/config.yaml if present)")
	flagSet.StringVarP(&f.Shader, "shader", "s", "", "WGSL fragment shader file or directory to pick one from")
	flagSet.StringVarP(&f.Background, "background", "b", "", "background image file or directory (default: live screenshot)")
	flagSet.BoolVar(&f.Screensave, "screensave", false, "screensaver mode: do not lock, exit on any key")
	flagSet.BoolVarP(&f.Daemonize, "daemonize", "f", false, "detach and run in the background")
	flagSet.StringVarP(&f.Logfile, "logfile", "l", "", "write logs to this file instead of stderr")
	flagSet.StringVar(&f.LogLevel, "log-level", "info", "log level: debug, info, warn or error")
	flagSet.IntVar(&f.FPS, "fps", DefaultFPS, "frames per second")
	flagSet.DurationVar(&f.Fade, "fade", DefaultFade, "fade-in duration, 0 disables")
	flagSet.StringVar(&f.PAMService, "pam-service", auth.DefaultService, "PAM service used to check the password")
	flagSet.StringVar(&f.Font, "font", "", "TTF or OTF font for the prompt (default: embedded Go font)")
}

// Config is the merged configuration. Shader, Background and Font are
// still paths; Load turns them into Settings.
type Config struct {
	Lock       bool
	Shader     string
	Background string
	FPS        int
	Fade       time.Duration
	PAMService string
	Font       string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Lock:       true,
		Shader:     filepath.Join(xdg.ConfigHome, AppName, "shaders"),
		FPS:        DefaultFPS,
		Fade:       DefaultFade,
		PAMService: auth.DefaultService,
	}
}

// DefaultConfigPath is where the config file is looked for when --config
// is not given.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// LoadFile reads and decodes a YAML config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// Resolve merges defaults, the config file and the flags that were set on
// flagSet.
func Resolve(flagSet *pflag.FlagSet, flags *Flags, log *slog.Logger) (Config, error) {
	log = logging.Or(log).With("component", "config")
	cfg := Default()

	path, explicit := flags.Config, flagSet.Changed("config")
	if !explicit {
		path = DefaultConfigPath()
	}
	file, err := LoadFile(ExpandHome(path))
	switch {
	case err == nil:
		if err := cfg.apply(file); err != nil {
			return Config{}, err
		}
		log.Debug("loaded config file", "path", path)
	case !explicit && errors.Is(err, fs.ErrNotExist):
		log.Warn("no config file, using defaults", "path", path)
	default:
		return Config{}, fmt.Errorf("config file: %w", err)
	}

	if flagSet.Changed("shader") {
		cfg.Shader = flags.Shader
	}
	if flagSet.Changed("background") {
		cfg.Background = flags.Background
	}
	if flagSet.Changed("screensave") {
		cfg.Lock = !flags.Screensave
	}
	if flagSet.Changed("fps") {
		cfg.FPS = flags.FPS
	}
	if flagSet.Changed("fade") {
		cfg.Fade = flags.Fade
	}
	if flagSet.Changed("pam-service") {
		cfg.PAMService = flags.PAMService
	}
	if flagSet.Changed("font") {
		cfg.Font = flags.Font
	}

	cfg.Shader = ExpandHome(cfg.Shader)
	cfg.Background = ExpandHome(cfg.Background)
	cfg.Font = ExpandHome(cfg.Font)
	return cfg, cfg.Validate()
}

func (c *Config) apply(f *File) error {
	if f.Lock != nil {
		c.Lock = *f.Lock
	}
	if f.Shader != "" {
		c.Shader = f.Shader
	}
	if f.Background != "" {
		c.Background = f.Background
	}
	if f.FPS != 0 {
		c.FPS = f.FPS
	}
	if f.Fade != "" {
		d, err := time.ParseDuration(f.Fade)
		if err != nil {
			return fmt.Errorf("%w: fade: %w", ErrInvalid, err)
		}
		c.Fade = d
	}
	if f.PAMService != "" {
		c.PAMService = f.PAMService
	}
	if f.Font != "" {
		c.Font = f.Font
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.FPS < 1 || c.FPS > MaxFPS {
		return fmt.Errorf("%w: fps %d not in 1..%d", ErrInvalid, c.FPS, MaxFPS)
	}
	if c.Fade < 0 {
		return fmt.Errorf("%w: negative fade %v", ErrInvalid, c.Fade)
	}
	if c.PAMService == "" {
		return fmt.Errorf("%w: empty PAM service", ErrInvalid)
	}
	return nil
}

// FramePeriod is the frame timer interval.
func (c Config) FramePeriod() time.Duration {
	return time.Second / time.Duration(c.FPS)
}
