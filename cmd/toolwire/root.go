package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bpowers/toolwire/builtin"
	"github.com/bpowers/toolwire/config"
	"github.com/bpowers/toolwire/internal/logging"
	"github.com/bpowers/toolwire/journal/sqlitejournal"
	"github.com/bpowers/toolwire/mcp"
)

// app holds the process resources the commands use, so tests can swap them.
type app struct {
	stdin      io.Reader
	stdout     io.Writer
	lookupEnv  func(string) (string, bool)
	executable func() (string, error)

	configPath  string
	root        string
	journalPath string
	logLevel    string
	strict      bool
	allowWrite  bool
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "toolwire",
		Short: "MCP tool server over stdio",
		Long: `toolwire answers MCP requests read from stdin, one JSON-RPC message per line,
and writes each response to stdout as soon as it is ready.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a TOML config file")
	flags.StringVar(&a.root, "root", "", "Directory the file tools operate in")
	flags.StringVar(&a.journalPath, "journal", "", "SQLite database to record exchanges in")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.BoolVar(&a.strict, "strict", false, "Reject requests that arrive before initialize")
	flags.BoolVar(&a.allowWrite, "allow-write", false, "Register the write_file tool")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run a session on stdin/stdout (the default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runServe(cmd)
			},
		},
		&cobra.Command{
			Use:   "tools",
			Short: "Print the registered tool descriptors as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runTools(cmd)
			},
		},
		newDescriptorCmd(a),
	)

	return rootCmd
}

// loadConfig layers the config file, the environment and the command-line
// flags, in that order.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.LoadFromFile(a.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(a.lookupEnv); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Tools.Root = a.root
	}
	if flags.Changed("journal") {
		cfg.Journal.Path = a.journalPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("strict") {
		cfg.Server.Handshake = config.HandshakePermissive
		if a.strict {
			cfg.Server.Handshake = config.HandshakeStrict
		}
	}
	if flags.Changed("allow-write") {
		cfg.Tools.AllowWrite = a.allowWrite
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newRegistry(cfg *config.Config) (*mcp.Registry, error) {
	registry := mcp.NewRegistry()
	err := builtin.Register(registry, builtin.Options{
		AllowWrite: cfg.Tools.AllowWrite,
		Disabled:   cfg.Tools.Disabled,
	})
	if err != nil {
		return nil, err
	}
	return registry, nil
}

func (a *app) runServe(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	return serve(cmd.Context(), cfg, a.stdin, a.stdout)
}

func serve(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	if err := logging.SetLogLevelName(cfg.Log.Level); err != nil {
		return err
	}
	log := logging.Logger()

	policy, err := cfg.HandshakePolicy()
	if err != nil {
		return err
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	rootFS, err := builtin.OpenRootFS(cfg.Tools.Root)
	if err != nil {
		return err
	}
	defer rootFS.Close()

	opts := []mcp.Option{
		mcp.WithProtocolVersion(cfg.Server.ProtocolVersion),
		mcp.WithHandshakePolicy(policy),
		mcp.WithInstructions(cfg.Server.Instructions),
	}
	if cfg.Journal.Path != "" {
		store, err := sqlitejournal.New(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()
		opts = append(opts, mcp.WithJournal(store))
		log.Debug("journal enabled", "path", cfg.Journal.Path)
	}

	server, err := mcp.NewServer(registry, mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, opts...)
	if err != nil {
		return err
	}

	log.Debug("serving", "root", cfg.Tools.Root, "tools", registry.Len())
	return server.Serve(builtin.WithFS(ctx, rootFS), in, out)
}

func (a *app) runTools(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(mcp.ListToolsResult{Tools: registry.List()})
}

func newDescriptorCmd(a *app) *cobra.Command {
	var (
		name   string
		env    []string
		format string
	)

	cmd := &cobra.Command{
		Use:   "descriptor",
		Short: "Print a launch descriptor for registering this server with a host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			command, err := a.executable()
			if err != nil {
				return fmt.Errorf("failed to locate executable: %w", err)
			}

			d := &config.LaunchDescriptor{Server: config.LaunchServer{
				Name:    name,
				Command: command,
				Args:    a.serveArgs(cmd),
			}}
			for _, kv := range env {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return fmt.Errorf("--env %q: expected KEY=VALUE", kv)
				}
				if d.Server.Env == nil {
					d.Server.Env = make(map[string]string)
				}
				d.Server.Env[k] = v
			}

			switch format {
			case "toml":
				return config.EncodeDescriptor(a.stdout, d)
			case "json":
				return config.EncodeDescriptorJSON(a.stdout, d)
			default:
				return fmt.Errorf("--format must be 'toml' or 'json'")
			}
		},
	}

	cmd.Flags().StringVar(&name, "name", "toolwire", "Name the host registers the server under")
	cmd.Flags().StringArrayVar(&env, "env", nil, "Environment variable for the server process (KEY=VALUE, repeatable)")
	cmd.Flags().StringVar(&format, "format", "toml", "Output format: toml or json")
	return cmd
}

// serveArgs forwards the serve flags given to descriptor into the launch
// command line. Paths are made absolute since hosts start servers from an
// unrelated working directory.
func (a *app) serveArgs(cmd *cobra.Command) []string {
	args := []string{"serve"}
	flags := cmd.Flags()
	abs := func(p string) string {
		if v, err := filepath.Abs(p); err == nil {
			return v
		}
		return p
	}
	if flags.Changed("config") {
		args = append(args, "--config", abs(a.configPath))
	}
	if flags.Changed("root") {
		args = append(args, "--root", abs(a.root))
	}
	if flags.Changed("journal") {
		args = append(args, "--journal", abs(a.journalPath))
	}
	if flags.Changed("log-level") {
		args = append(args, "--log-level", a.logLevel)
	}
	if flags.Changed("strict") && a.strict {
		args = append(args, "--strict")
	}
	if flags.Changed("allow-write") && a.allowWrite {
		args = append(args, "--allow-write")
	}
	return args
}
