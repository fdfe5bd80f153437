package config

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// LaunchDescriptor tells a host how to spawn the server as a subprocess.
type LaunchDescriptor struct {
	Server LaunchServer `toml:"server"`
}

type LaunchServer struct {
	Name    string            `toml:"name"`
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env,omitempty"`
}

// Validate checks the fields a host needs to start the server.
func (d *LaunchDescriptor) Validate() error {
	if d.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}
	if d.Server.Command == "" {
		return fmt.Errorf("server.command is required")
	}
	return nil
}

// EncodeDescriptor writes d as TOML.
func EncodeDescriptor(w io.Writer, d *LaunchDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := toml.NewEncoder(w).Encode(d); err != nil {
		return fmt.Errorf("failed to encode TOML: %w", err)
	}
	return nil
}

// LoadDescriptor reads a TOML launch descriptor.
func LoadDescriptor(path string) (*LaunchDescriptor, error) {
	var d LaunchDescriptor
	if _, err := toml.DecodeFile(path, &d); err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

type hostServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// EncodeDescriptorJSON writes d in the "mcpServers" layout that JSON-configured
// hosts read.
func EncodeDescriptorJSON(w io.Writer, d *LaunchDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	args := d.Server.Args
	if args == nil {
		args = []string{}
	}
	doc := map[string]map[string]hostServerEntry{
		"mcpServers": {
			d.Server.Name: {
				Command: d.Server.Command,
				Args:    args,
				Env:     d.Server.Env,
			},
		},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
