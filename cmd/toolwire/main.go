// Command toolwire serves the built-in tools to an MCP host over stdio.
//
// Usage:
//
//	toolwire [serve] [--config toolwire.toml] [--root DIR] [--journal DB] [--strict] [--allow-write]
//	toolwire tools
//	toolwire descriptor --name NAME [--env K=V]... [--format toml|json]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// the first signal cancels the session; restore default handling so a
	// second one terminates the process outright
	context.AfterFunc(ctx, stop)

	a := &app{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		lookupEnv:  os.LookupEnv,
		executable: os.Executable,
	}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
