// Command journalview prints the exchanges toolwire recorded in its SQLite
// journal.
//
// Usage:
//
//	journalview list --db path/to/journal.db
//	journalview show --db path/to/journal.db --session SESSION_ID [--format json|jsonl|text]
//	journalview delete --db path/to/journal.db --session SESSION_ID
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bpowers/toolwire/journal"
	"github.com/bpowers/toolwire/journal/sqlitejournal"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "list":
		err = runList(os.Args[2:], os.Stdout)
	case "show":
		err = runShow(os.Args[2:], os.Stdout, os.Stderr)
	case "delete":
		err = runDelete(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `journalview - view toolwire session journals

Usage:
  journalview list --db <path>
      List all session IDs in the journal

  journalview show --db <path> --session <id> [--format json|jsonl|text]
      Show the exchanges of a session (default format: json)

  journalview delete --db <path> --session <id>
      Remove a session from the journal

Formats:
  json   - Output as a JSON array (default)
  jsonl  - Output as JSON Lines (one exchange per line)
  text   - One "-> request" / "<- response" pair per exchange

Examples:
  journalview list --db ./journal.db
  journalview show --db ./journal.db --session 6f1c...
  journalview show --db ./journal.db --session 6f1c... --format jsonl | jq .method
`)
}

func openStore(dbPath string) (*sqlitejournal.Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("--db is required")
	}
	// sqlite would happily create an empty database for a typo
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	store, err := sqlitejournal.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

func runList(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	dbPath := fs.String("db", "", "path to SQLite journal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	for _, s := range sessions {
		fmt.Fprintln(out, s)
	}

	return nil
}

func runShow(args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	dbPath := fs.String("db", "", "path to SQLite journal")
	sessionID := fs.String("session", "", "session ID to display")
	format := fs.String("format", "json", "output format: json, jsonl or text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dbPath == "" {
		return fmt.Errorf("--db is required")
	}
	if *sessionID == "" {
		return fmt.Errorf("--session is required")
	}
	switch *format {
	case "json", "jsonl", "text":
	default:
		return fmt.Errorf("--format must be 'json', 'jsonl' or 'text'")
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	exchanges, err := store.Exchanges(*sessionID)
	if err != nil {
		return fmt.Errorf("get exchanges: %w", err)
	}

	if len(exchanges) == 0 {
		fmt.Fprintf(errOut, "no exchanges found for session: %s\n", *sessionID)
		return nil
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(exchanges); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case "jsonl":
		enc := json.NewEncoder(out)
		for _, ex := range exchanges {
			if err := enc.Encode(ex); err != nil {
				return fmt.Errorf("encode jsonl: %w", err)
			}
		}
	case "text":
		for _, ex := range exchanges {
			writeText(out, ex)
		}
	}

	return nil
}

func writeText(w io.Writer, ex journal.Exchange) {
	status := "ok"
	if ex.IsError {
		status = "error"
	}
	fmt.Fprintf(w, "#%d %s %s (%s, %s)\n", ex.Seq, ex.Timestamp.UTC().Format("15:04:05.000"), ex.Method, status, ex.Duration)
	fmt.Fprintf(w, "-> %s\n", strings.TrimSpace(ex.Request))
	if ex.Response != "" {
		fmt.Fprintf(w, "<- %s\n", ex.Response)
	}
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	dbPath := fs.String("db", "", "path to SQLite journal")
	sessionID := fs.String("session", "", "session ID to remove")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *sessionID == "" {
		return fmt.Errorf("--session is required")
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteSession(*sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
