package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vkvdb/vkv/vkv"
)

var (
	rangeLimit   int
	rangeReverse bool
)

func init() {
	cmd := newRangeCmd()
	cmd.Flags().IntVar(&rangeLimit, "limit", 0, "Maximum number of pairs to return (0 = unlimited)")
	cmd.Flags().BoolVar(&rangeReverse, "reverse", false, "Scan in descending key order")
	rootCmd.AddCommand(cmd)
}

func newRangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "range <begin> <end>",
		Short: "List every key in [begin, end) after applying any --seed entries",
		Args:  cobra.ExactArgs(2),
		Long: `Example:
  vkvctl range --seed a=1 --seed b=2 --seed c=3 a c`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRange(args[0], args[1])
		},
	}
}

func runRange(begin, end string) error {
	db, err := openSeeded()
	if err != nil {
		return err
	}
	defer db.Close()

	tx := db.BeginTransaction()
	beginSel := vkv.KeySelector{RefKey: []byte(begin), OrEqual: true}
	endSel := vkv.KeySelector{RefKey: []byte(end), OrEqual: true}
	pairs, err := tx.GetRange(beginSel, endSel, rangeLimit, rangeReverse, vkv.WantAll, true)
	if err != nil {
		return fmt.Errorf("range: %w", err)
	}

	if jsonOut {
		out := make([]map[string]string, len(pairs))
		for i, p := range pairs {
			out[i] = map[string]string{"key": string(p.Key), "value": string(p.Value)}
		}
		return printJSON(out)
	}
	for _, p := range pairs {
		fmt.Printf("%s=%s\n", p.Key, p.Value)
	}
	return nil
}
