// Package config loads the server's TOML configuration and renders launch
// descriptors that hosts use to spawn it.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/iancoleman/strcase"

	"github.com/bpowers/toolwire/mcp"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TOOLWIRE"

const (
	HandshakePermissive = "permissive"
	HandshakeStrict     = "strict"
)

// Config represents the toolwire configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Tools   ToolsConfig   `toml:"tools"`
	Journal JournalConfig `toml:"journal"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig is what the server reports about itself during the handshake.
type ServerConfig struct {
	Name            string `toml:"name"`
	Version         string `toml:"version"`
	ProtocolVersion string `toml:"protocol_version"`
	Instructions    string `toml:"instructions"`
	Handshake       string `toml:"handshake"`
}

// ToolsConfig selects and configures the built-in tools.
type ToolsConfig struct {
	Root       string   `toml:"root"`
	AllowWrite bool     `toml:"allow_write"`
	Disabled   []string `toml:"disabled"`
}

// JournalConfig points at the SQLite transcript database. An empty path
// disables the journal.
type JournalConfig struct {
	Path string `toml:"path"`
}

// LogConfig.Level overrides TOOLWIRE_DEBUG when set.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:            "toolwire",
			Version:         "1.0.0",
			ProtocolVersion: mcp.ProtocolVersion,
			Handshake:       HandshakePermissive,
		},
		Tools: ToolsConfig{
			Root: ".",
		},
	}
}

// LoadFromFile loads configuration from a TOML file. Keys missing from the
// file keep their default values.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("unknown configuration keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}
	if c.Server.Version == "" {
		return fmt.Errorf("server.version is required")
	}
	if c.Server.ProtocolVersion == "" {
		return fmt.Errorf("server.protocol_version is required")
	}
	if _, err := c.HandshakePolicy(); err != nil {
		return err
	}
	if c.Tools.Root == "" {
		return fmt.Errorf("tools.root is required")
	}
	return nil
}

// HandshakePolicy maps server.handshake onto the server option.
func (c *Config) HandshakePolicy() (mcp.HandshakePolicy, error) {
	switch strings.ToLower(c.Server.Handshake) {
	case "", HandshakePermissive:
		return mcp.Permissive, nil
	case HandshakeStrict:
		return mcp.Strict, nil
	default:
		return 0, fmt.Errorf("server.handshake: unknown policy %q (want %q or %q)", c.Server.Handshake, HandshakePermissive, HandshakeStrict)
	}
}

type envBinding struct {
	section string
	key     string
	set     func(c *Config, value string) error
}

func setString(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, value string) error {
		*dst(c) = value
		return nil
	}
}

var envBindings = []envBinding{
	{"server", "name", setString(func(c *Config) *string { return &c.Server.Name })},
	{"server", "version", setString(func(c *Config) *string { return &c.Server.Version })},
	{"server", "protocol_version", setString(func(c *Config) *string { return &c.Server.ProtocolVersion })},
	{"server", "instructions", setString(func(c *Config) *string { return &c.Server.Instructions })},
	{"server", "handshake", setString(func(c *Config) *string { return &c.Server.Handshake })},
	{"tools", "root", setString(func(c *Config) *string { return &c.Tools.Root })},
	{"tools", "allow_write", func(c *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		c.Tools.AllowWrite = b
		return nil
	}},
	{"tools", "disabled", func(c *Config, value string) error {
		c.Tools.Disabled = nil
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.Tools.Disabled = append(c.Tools.Disabled, name)
			}
		}
		return nil
	}},
	{"journal", "path", setString(func(c *Config) *string { return &c.Journal.Path })},
	{"log", "level", setString(func(c *Config) *string { return &c.Log.Level })},
}

// EnvName returns the environment variable that overrides section.key,
// e.g. TOOLWIRE_SERVER_PROTOCOL_VERSION.
func EnvName(section, key string) string {
	return EnvPrefix + "_" + strcase.ToScreamingSnake(section+"_"+key)
}

// ApplyEnv overrides configuration values from the environment. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		name := EnvName(b.section, b.key)
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.set(c, value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
