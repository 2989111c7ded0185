package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newGetCmd())
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get the value of a key after applying any --seed entries",
		Args:  cobra.ExactArgs(1),
		Long: `Example:
  vkvctl get --seed a=1 --seed b=2 a`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args[0])
		},
	}
}

func runGet(key string) error {
	db, err := openSeeded()
	if err != nil {
		return err
	}
	defer db.Close()

	tx := db.BeginTransaction()
	value, ok, err := tx.Get([]byte(key), true)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]any{"key": key, "found": ok, "value": string(value)})
	}
	if !ok {
		fmt.Printf("%s: not found\n", key)
		return nil
	}
	fmt.Printf("%s\n", value)
	return nil
}
