package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSetCmd())
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key after applying any --seed entries, then commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(args[0], args[1])
		},
	}
}

func runSet(key, value string) error {
	db, err := openSeeded()
	if err != nil {
		return err
	}
	defer db.Close()

	tx := db.BeginTransaction()
	if err := tx.Set([]byte(key), []byte(value)); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	seq, err := tx.Commit()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]any{"key": key, "value": value, "commit_version": seq})
	}
	fmt.Printf("committed at version %d\n", seq)
	return nil
}
