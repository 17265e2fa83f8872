package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mohammad-safakhou/floatchat/config"
	srv "github.com/mohammad-safakhou/floatchat/internal/server"
	"github.com/mohammad-safakhou/floatchat/internal/session"
	"github.com/spf13/cobra"
)

func askCMD(cfgPath *string) *cobra.Command {
	var asJSON bool
	var ask = &cobra.Command{
		Use:   "ask [question]",
		Short: "Send one question to the query service and summarise the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			sess, err := srv.NewSession(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			turn, err := sess.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(turn)
			}
			printTurn(cmd.OutOrStdout(), turn)
			return nil
		},
	}
	ask.Flags().BoolVar(&asJSON, "json", false, "print the full turn as JSON")
	return ask
}

func printTurn(w io.Writer, turn session.Turn) {
	st := turn.State
	fmt.Fprintf(w, "status: %s", st.Status)
	if st.StatusDetail != "" {
		fmt.Fprintf(w, " (%s)", st.StatusDetail)
	}
	fmt.Fprintln(w)
	if turn.Estimate != nil {
		fmt.Fprintf(w, "complexity: %s (score %d), session score %d, mode %s\n",
			turn.Estimate.Classification, turn.Estimate.Score, st.Score, st.Mode)
	}
	if st.Reply != "" {
		fmt.Fprintf(w, "query: %s\n", st.Reply)
	}
	if st.Synopsis == nil {
		fmt.Fprintln(w, "no records")
		return
	}
	fmt.Fprintln(w, st.Synopsis.Headline)
	for _, h := range st.Synopsis.Highlights {
		fmt.Fprintf(w, "  - %s\n", h)
	}
}
