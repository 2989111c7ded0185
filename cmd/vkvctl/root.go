package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vkvdb/vkv/vkv"
)

var (
	jsonOut  bool
	seedArgs []string
)

var rootCmd = &cobra.Command{
	Use:   "vkvctl",
	Short: "Exercise an in-memory vkv database from the command line",
	Long: `vkvctl opens a fresh, empty vkv database, applies any --seed
entries, runs the requested operation against it, and exits. It is a
manual-testing harness for the embedding API, not a client against a
long-lived server: nothing persists between invocations.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringArrayVar(&seedArgs, "seed", nil, "key=value pair to set before running the command (repeatable)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openSeeded opens a fresh in-memory database with its background
// collector disabled (a one-shot CLI process has no use for it) and
// applies every --seed entry in one transaction.
func openSeeded() (*vkv.DB, error) {
	db, err := vkv.Open(vkv.Options{CollectorInterval: -1})
	if err != nil {
		return nil, err
	}
	if len(seedArgs) == 0 {
		return db, nil
	}

	tx := db.BeginTransaction()
	for _, kv := range seedArgs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --seed entry %q, want key=value", kv)
		}
		if err := tx.Set([]byte(key), []byte(value)); err != nil {
			return nil, fmt.Errorf("seeding %q: %w", kv, err)
		}
	}
	if _, err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing seed data: %w", err)
	}
	return db, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
