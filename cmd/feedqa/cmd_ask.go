package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"feedqa/internal/qa"
)

var askCmd = &cobra.Command{
	Use:   "ask <feed-id> <index> <question...>",
	Short: "Ask a question about one article",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[1])
		if err != nil {
			return err
		}

		question := strings.Join(args[2:], " ")

		rd, err := current.Reader()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "⏳ loading %s...\n", current.cfg.Inference.Model)

		answer, err := rd.Ask(cmd.Context(), args[0], index, question)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), answer)

		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Load the QA model and report its state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rd, err := current.Reader()
		if err != nil {
			return err
		}

		// Initialize errors are reflected in the reported status.
		_ = rd.InitModel(cmd.Context())

		printStatus(cmd, rd.ModelStatus())

		return nil
	},
}

func printStatus(cmd *cobra.Command, s qa.Status) {
	fmt.Fprintf(cmd.OutOrStdout(), "model: %s\nstate: %s\n", s.ModelName, s.State)

	if s.Error != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", s.Error)
	}
}
