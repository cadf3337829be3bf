package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	shellquote "github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNamespaceRoot = "/tmp"
	DefaultMaxSlots      = 1024
	DefaultReadyTimeout  = 5 * time.Second
	DefaultStopGrace     = 10 * time.Second
	DefaultServer        = "Xwayland"
	DefaultServerArgs    = "-noreset -core"
	DefaultDisplayEnv    = "DISPLAY"
	DefaultAuxSocketEnv  = "WAYLAND_SOCKET"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FORAGE_XRUN_"

	configDirName  = "forage-xrun"
	configFileName = "config.toml"
)

// DefaultUnsetEnv lists variables that would let the command reach the
// compositor session forage-xrun itself runs under.
var DefaultUnsetEnv = []string{"WAYLAND_DISPLAY", "WAYLAND_SOCKET"}

// Duration is a time.Duration read from a string such as "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler (used by TOML).
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Config holds launcher settings.
type Config struct {
	// NamespaceRoot holds lock markers and the .X11-unix socket directory.
	NamespaceRoot string `toml:"namespace_root" yaml:"namespace_root" json:"namespaceRoot"`

	// MaxSlots bounds the slot scan: slots 0..MaxSlots-1 are tried.
	MaxSlots int `toml:"max_slots" yaml:"max_slots" json:"maxSlots"`

	// ReadyTimeout bounds the wait for the server's readiness report.
	ReadyTimeout Duration `toml:"ready_timeout" yaml:"ready_timeout" json:"readyTimeout"`

	// StopGrace is how long to wait after SIGTERM before SIGKILL. Zero waits forever.
	StopGrace Duration `toml:"stop_grace" yaml:"stop_grace" json:"stopGrace"`

	Server     string `toml:"server" yaml:"server" json:"server"`
	ServerArgs string `toml:"server_args" yaml:"server_args" json:"serverArgs"` // shell-quoted

	DisplayEnv   string   `toml:"display_env" yaml:"display_env" json:"displayEnv"`
	UnsetEnv     []string `toml:"unset_env" yaml:"unset_env" json:"unsetEnv"`
	AuxSocketEnv string   `toml:"aux_socket_env" yaml:"aux_socket_env" json:"auxSocketEnv"`

	// Setsid starts the server in its own session.
	Setsid bool `toml:"setsid" yaml:"setsid" json:"setsid"`

	// Probe connects to the display with an X11 client once the server is ready.
	Probe bool `toml:"probe" yaml:"probe" json:"probe"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		NamespaceRoot: DefaultNamespaceRoot,
		MaxSlots:      DefaultMaxSlots,
		ReadyTimeout:  Duration{DefaultReadyTimeout},
		StopGrace:     Duration{DefaultStopGrace},
		Server:        DefaultServer,
		ServerArgs:    DefaultServerArgs,
		DisplayEnv:    DefaultDisplayEnv,
		UnsetEnv:      append([]string(nil), DefaultUnsetEnv...),
		AuxSocketEnv:  DefaultAuxSocketEnv,
	}
}

// Validate checks that the Config is usable.
func (c *Config) Validate() error {
	if c.NamespaceRoot == "" || !filepath.IsAbs(c.NamespaceRoot) {
		return fmt.Errorf("namespace_root must be an absolute path, got %q", c.NamespaceRoot)
	}
	if c.MaxSlots <= 0 {
		return fmt.Errorf("max_slots must be positive, got %d", c.MaxSlots)
	}
	if c.ReadyTimeout.Duration <= 0 {
		return fmt.Errorf("ready_timeout must be positive, got %s", c.ReadyTimeout.Duration)
	}
	if c.StopGrace.Duration < 0 {
		return fmt.Errorf("stop_grace cannot be negative, got %s", c.StopGrace.Duration)
	}
	if strings.TrimSpace(c.Server) == "" {
		return fmt.Errorf("server is required")
	}
	if _, err := c.ServerArgv(); err != nil {
		return err
	}
	if err := validateEnvName("display_env", c.DisplayEnv, true); err != nil {
		return err
	}
	if err := validateEnvName("aux_socket_env", c.AuxSocketEnv, false); err != nil {
		return err
	}
	for _, name := range c.UnsetEnv {
		if err := validateEnvName("unset_env", name, true); err != nil {
			return err
		}
	}
	return nil
}

func validateEnvName(field, name string, required bool) error {
	if name == "" {
		if required {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	if strings.ContainsAny(name, "= \t\n\x00") {
		return fmt.Errorf("invalid %s %q", field, name)
	}
	return nil
}

// ServerArgv splits ServerArgs using shell quoting rules.
func (c *Config) ServerArgv() ([]string, error) {
	args, err := shellquote.Split(c.ServerArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid server_args %q: %w", c.ServerArgs, err)
	}
	return args, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/forage-xrun/config.toml, falling back
// to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName, configFileName)
}

// Load builds the configuration from defaults, the config file and the
// environment. An explicit path must exist; the default path is optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.Decode(data, formatFor(path)); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case explicit || !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Format is a config file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Decode merges data over the current values. Keys absent from data keep
// their current value.
func (c *Config) Decode(data []byte, format Format) error {
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		return nil
	}
}

// ApplyEnv applies FORAGE_XRUN_* overrides using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("ROOT", &c.NamespaceRoot)
	str("SERVER", &c.Server)
	str("SERVER_ARGS", &c.ServerArgs)

	if v, ok := lookup(EnvPrefix + "MAX_SLOTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_SLOTS %q: %w", EnvPrefix, v, err)
		}
		c.MaxSlots = n
	}
	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		if err := c.ReadyTimeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid %sTIMEOUT %q: %w", EnvPrefix, v, err)
		}
	}
	for name, dst := range map[string]*bool{"SETSID": &c.Setsid, "PROBE": &c.Probe} {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, name, v, err)
			}
			*dst = b
		}
	}
	return nil
}
