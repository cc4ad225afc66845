package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"

	"github.com/barreldb/barrel"
)

// repl is the interactive command loop, grounded on
// _examples/calvinalkan-agent-task/cmd/sloty/main.go's REPL type: a
// liner.State for readline-style editing and history, dispatching on
// the first whitespace-separated token of each line.
type repl struct {
	store *barrel.Store
	liner *liner.State
}

var replCommands = []string{
	"get", "set", "rm", "del", "delete",
	"compact", "stats", "help", "exit", "quit", "q",
}

func runREPL(store *barrel.Store) error {
	r := &repl{store: store, liner: liner.NewLiner()}
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyPath()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Println("barrelctl - embedded key-value store REPL")
	fmt.Println("Type 'help' for available commands.")

	for {
		line, err := r.liner.Prompt("barrel> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		fields := strings.Fields(line)
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()
			return nil
		case "help", "?":
			r.printHelp()
		case "get":
			r.cmdGet(args)
		case "set":
			r.cmdSet(args)
		case "rm", "del", "delete":
			r.cmdRemove(args)
		case "compact":
			r.cmdCompact()
		case "stats":
			r.cmdStats()
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()
	return nil
}

func (r *repl) completer(line string) []string {
	var out []string
	lower := strings.ToLower(line)
	for _, c := range replCommands {
		if strings.HasPrefix(c, lower) {
			out = append(out, c)
		}
	}
	return out
}

func (r *repl) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  get <key>              Look up a value")
	fmt.Println("  set <key> <value>      Set a value")
	fmt.Println("  rm <key>               Remove a key")
	fmt.Println("  compact                Force a compaction now")
	fmt.Println("  stats                  Show generation/key/uncompacted counts")
	fmt.Println("  help                   Show this help")
	fmt.Println("  exit / quit / q        Exit")
}

func (r *repl) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: get <key>")
		return
	}
	value, ok, err := r.store.Get(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if !ok {
		fmt.Println("(not found)")
		return
	}
	fmt.Println(value)
}

func (r *repl) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: set <key> <value...>")
		return
	}
	key := args[0]
	value := strings.Join(args[1:], " ")
	if err := r.store.Set(key, value); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *repl) cmdRemove(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: rm <key>")
		return
	}
	if err := r.store.Remove(args[0]); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *repl) cmdCompact() {
	if err := r.store.Compact(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func (r *repl) cmdStats() {
	s := r.store.Stats()
	fmt.Printf("generations:  %d\n", s.Generations)
	fmt.Printf("keys:         %d\n", s.Keys)
	fmt.Printf("uncompacted:  %d bytes\n", s.Uncompacted)
}

// historyPath returns where the REPL's line history is persisted.
func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".barrelctl_history")
}

// saveHistory snapshots the liner history buffer and writes it back to
// disk atomically via natefinch/atomic, so a crash mid-write never
// leaves a truncated history file behind.
func (r *repl) saveHistory() {
	path := historyPath()
	if path == "" {
		return
	}
	var buf strings.Builder
	if _, err := r.liner.WriteHistory(&buf); err != nil {
		return
	}
	_ = atomic.WriteFile(path, strings.NewReader(buf.String()))
}
