package main

import (
	"encoding/json"
	"strings"

	"github.com/mohammad-safakhou/floatchat/internal/complexity"
	"github.com/spf13/cobra"
)

func estimateCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [question]",
		Short: "Score how complex a question is without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(complexity.Estimate(strings.Join(args, " ")))
		},
	}
}
