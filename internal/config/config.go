// Package config loads the settings of the wlkit command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"deedles.dev/wlkit/fourcc"
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/server/linuxdmabuf"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config is the complete configuration of a wlkit server.
type Config struct {
	// Socket is the name or path of the socket to listen on. If it is
	// empty, the first free wayland-N socket is used.
	Socket string `mapstructure:"socket"`

	Seat             SeatConfig             `mapstructure:"seat"`
	Shm              ShmConfig              `mapstructure:"shm"`
	Idle             IdleConfig             `mapstructure:"idle"`
	Dmabuf           DmabufConfig           `mapstructure:"dmabuf"`
	ShortcutsInhibit ShortcutsInhibitConfig `mapstructure:"shortcuts_inhibit"`
	Log              LogConfig              `mapstructure:"log"`
}

type SeatConfig struct {
	Name string `mapstructure:"name"`

	// Capabilities lists any of "pointer", "keyboard" and "touch".
	Capabilities []string `mapstructure:"capabilities"`
}

// ShmConfig lists formats to advertise over wl_shm in addition to
// ARGB8888 and XRGB8888.
type ShmConfig struct {
	Formats []string `mapstructure:"formats"`
}

type IdleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Version uint32 `mapstructure:"version"`

	// Timeouts controls whether notifications become idle on their
	// own. Without it, only the compositor can idle them.
	Timeouts bool `mapstructure:"timeouts"`
}

type DmabufConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Version uint32         `mapstructure:"version"`
	Formats []DmabufFormat `mapstructure:"formats"`
}

type DmabufFormat struct {
	Format    string   `mapstructure:"format"`
	Modifiers []uint64 `mapstructure:"modifiers"`
}

type ShortcutsInhibitConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	// Level is a charmbracelet/log level name.
	Level string `mapstructure:"level"`

	// Format is one of "text", "json" and "logfmt".
	Format string `mapstructure:"format"`
}

// Default is the configuration used when nothing else is set.
var Default = Config{
	Seat: SeatConfig{
		Name:         "seat0",
		Capabilities: []string{"pointer", "keyboard"},
	},
	Idle: IdleConfig{
		Enabled:  true,
		Version:  2,
		Timeouts: true,
	},
	Dmabuf: DmabufConfig{
		Enabled: true,
		Version: 3,
		Formats: []DmabufFormat{
			{Format: "ARGB8888", Modifiers: []uint64{fourcc.ModLinear}},
			{Format: "XRGB8888", Modifiers: []uint64{fourcc.ModLinear}},
		},
	},
	ShortcutsInhibit: ShortcutsInhibitConfig{
		Enabled: true,
	},
	Log: LogConfig{
		Level:  "info",
		Format: "text",
	},
}

// New returns a viper instance with the defaults set that looks for
// wlkit.toml in the user's config directory and the current
// directory, and reads WLKIT_ environment variables. If path is not
// empty, only that file is read.
func New(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("wlkit")
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "wlkit"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("wlkit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("socket", Default.Socket)
	v.SetDefault("seat.name", Default.Seat.Name)
	v.SetDefault("seat.capabilities", Default.Seat.Capabilities)
	v.SetDefault("shm.formats", Default.Shm.Formats)
	v.SetDefault("idle.enabled", Default.Idle.Enabled)
	v.SetDefault("idle.version", Default.Idle.Version)
	v.SetDefault("idle.timeouts", Default.Idle.Timeouts)
	v.SetDefault("dmabuf.enabled", Default.Dmabuf.Enabled)
	v.SetDefault("dmabuf.version", Default.Dmabuf.Version)
	v.SetDefault("dmabuf.formats", Default.Dmabuf.Formats)
	v.SetDefault("shortcuts_inhibit.enabled", Default.ShortcutsInhibit.Enabled)
	v.SetDefault("log.level", Default.Log.Level)
	v.SetDefault("log.format", Default.Log.Format)

	return v
}

// Load reads the configuration file, if there is one, and decodes
// and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every setting that can be checked without starting
// a server.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Seat.Caps(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Shm.Fourccs(); err != nil {
		errs = append(errs, err)
	}
	if c.Idle.Enabled && ((c.Idle.Version < 1) || (c.Idle.Version > 2)) {
		errs = append(errs, fmt.Errorf("idle: unsupported version %v", c.Idle.Version))
	}
	if c.Dmabuf.Enabled {
		if (c.Dmabuf.Version < 1) || (c.Dmabuf.Version > 3) {
			errs = append(errs, fmt.Errorf("dmabuf: unsupported version %v", c.Dmabuf.Version))
		}
		if _, err := c.Dmabuf.Table(); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Log.formatter(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Caps returns the seat's capabilities as a wl_seat capability mask.
func (c SeatConfig) Caps() (uint32, error) {
	var caps uint32
	for _, name := range c.Capabilities {
		switch strings.ToLower(name) {
		case "pointer":
			caps |= wayland.SeatCapabilityPointer
		case "keyboard":
			caps |= wayland.SeatCapabilityKeyboard
		case "touch":
			caps |= wayland.SeatCapabilityTouch
		default:
			return 0, fmt.Errorf("seat: unknown capability %q", name)
		}
	}
	return caps, nil
}

func (c ShmConfig) Fourccs() ([]fourcc.Format, error) {
	formats := make([]fourcc.Format, 0, len(c.Formats))
	for _, name := range c.Formats {
		f, err := fourcc.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("shm: %w", err)
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// Table returns the format table to advertise over linux-dmabuf.
func (c DmabufConfig) Table() ([]linuxdmabuf.Format, error) {
	table := make([]linuxdmabuf.Format, 0, len(c.Formats))
	for _, df := range c.Formats {
		f, err := fourcc.Parse(df.Format)
		if err != nil {
			return nil, fmt.Errorf("dmabuf: %w", err)
		}
		table = append(table, linuxdmabuf.Format{Format: f, Modifiers: df.Modifiers})
	}
	return table, nil
}

func (c LogConfig) level() (log.Level, error) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return 0, fmt.Errorf("log: %w", err)
	}
	return level, nil
}

func (c LogConfig) formatter() (log.Formatter, error) {
	switch strings.ToLower(c.Format) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("log: unknown format %q", c.Format)
	}
}

// Apply configures logger according to c.
func (c LogConfig) Apply(logger *log.Logger) error {
	level, err := c.level()
	if err != nil {
		return err
	}
	formatter, err := c.formatter()
	if err != nil {
		return err
	}

	logger.SetLevel(level)
	logger.SetFormatter(formatter)
	return nil
}
