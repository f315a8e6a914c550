package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/schoolctl/internal/models"
)

var commitCmd = &cobra.Command{
	Use:   "commit <record-id>",
	Short: "Validate, compile, and submit the staged diff",
	Long: `Commit submits every staged edit for the record as one minimal
diff. On success local state is reinitialized from the server's
canonical snapshot; on failure every staged edit is retained and the
commit can simply be retried.`,
	Args: cobra.ExactArgs(1),
	RunE: runCommit,
}

var discardCmd = &cobra.Command{
	Use:   "discard <record-id>",
	Short: "Drop every staged edit for the record",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiscard,
}

func init() {
	rootCmd.AddCommand(commitCmd, discardCmd)
}

func runCommit(cmd *cobra.Command, args []string) error {
	ed, err := openEditor(cmd, args[0])
	if err != nil {
		return err
	}

	if err := ed.Commit(cmd.Context()); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			printError("Staged edits are invalid; nothing was submitted:")
			for _, v := range verr.Violations {
				printError("  %s", v)
			}
			return err
		}
		printError("Commit failed; staged edits are retained.")
		return err
	}

	printSuccess("Committed record %s.", args[0])
	return nil
}

func runDiscard(cmd *cobra.Command, args []string) error {
	ed, err := openEditor(cmd, args[0])
	if err != nil {
		return err
	}

	if err := ed.Discard(); err != nil {
		return err
	}
	printSuccess("Discarded staged edits for %s.", args[0])
	return nil
}
