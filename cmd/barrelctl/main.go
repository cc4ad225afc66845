// Command barrelctl is a small command-line front end over barrel's
// Store: one-shot get/set/rm/compact/stats subcommands, or an
// interactive REPL when no subcommand is given.
//
// Usage:
//
//	barrelctl [flags] get <key>
//	barrelctl [flags] set <key> <value>
//	barrelctl [flags] rm <key>
//	barrelctl [flags] compact
//	barrelctl [flags] stats
//	barrelctl [flags]              Start the interactive REPL
//
// Flags:
//
//	--data-dir string      data directory (default from config or ./barrel-data)
//	--config string        path to a JSONC config file
//	--threshold int        compaction threshold in bytes
//	--log-level string     debug, info, error, or disabled
//	--no-lock               disable the advisory directory flock
//	--structured-log        route logging through zap instead of stderr
//
// Grounded on _examples/calvinalkan-agent-task/cmd/sloty/main.go's
// flag-then-dispatch-then-REPL shape, swapping its stdlib flag package
// for github.com/spf13/pflag per SPEC_FULL.md's domain stack.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/barreldb/barrel"
	"github.com/barreldb/barrel/internal/config"
	"github.com/barreldb/barrel/internal/zapadapter"
	"github.com/barreldb/barrel/log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "barrelctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("barrelctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a JSONC config file")
	dataDir := fs.String("data-dir", "", "data directory")
	threshold := fs.Int64("threshold", 0, "compaction threshold in bytes")
	logLevel := fs.String("log-level", "", "debug, info, error, or disabled")
	noLock := fs.Bool("no-lock", false, "disable the advisory directory flock")
	structuredLog := fs.Bool("structured-log", false, "route logging through zap instead of stderr")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: barrelctl [flags] <get|set|rm|compact|stats> [args...]")
		fmt.Fprintln(os.Stderr, "       barrelctl [flags]   (starts the interactive REPL)")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *threshold != 0 {
		cfg.CompactionThresholdBytes = *threshold
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if *structuredLog {
		zl, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("barrelctl: building zap logger: %w", err)
		}
		log.Register(zapadapter.New(zl))
		defer log.Flush()
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	store, err := barrel.Open(cfg.DataDir,
		barrel.WithCompactionThreshold(cfg.CompactionThresholdBytes),
		barrel.WithLock(!*noLock),
	)
	if err != nil {
		return fmt.Errorf("barrelctl: opening store at %s: %w", cfg.DataDir, err)
	}
	defer store.Close()

	rest := fs.Args()
	if len(rest) == 0 {
		return runREPL(store)
	}
	return runOneShot(store, rest)
}

func runOneShot(store *barrel.Store, args []string) error {
	switch args[0] {
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: get <key>")
		}
		value, ok, err := store.Get(args[1])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("(not found)")
			return nil
		}
		fmt.Println(value)
		return nil

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: set <key> <value>")
		}
		return store.Set(args[1], args[2])

	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("usage: rm <key>")
		}
		return store.Remove(args[1])

	case "compact":
		return store.Compact()

	case "stats":
		printStats(store.Stats())
		return nil

	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func printStats(s barrel.Stats) {
	fmt.Printf("generations:  %d\n", s.Generations)
	fmt.Printf("keys:         %d\n", s.Keys)
	fmt.Printf("uncompacted:  %d bytes\n", s.Uncompacted)
}
