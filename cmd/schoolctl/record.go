package main

import (
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/services/attachments"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Inspect records on the persistence API",
}

var recordShowCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Show the canonical attachment snapshot for a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := apiClient.Records.Refresh(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printInfo("Record %s", snap.RecordID)
		for _, name := range models.SlotNames {
			if ref := snap.Slot(name); ref != nil {
				printInfo("  %s: %s", name, ref)
			} else {
				printInfo("  %s: (empty)", name)
			}
		}
		printInfo("  collection: %d items", len(snap.Collection))
		for _, e := range snap.Collection {
			printInfo("    %s  year=%s  %s", e.Ref.DisplayName, e.Year, e.Description)
		}
		return nil
	},
}

var recordStagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "List records with a persisted staging session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := apiClient.StagedRecords()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			printInfo("No staged sessions.")
			return nil
		}
		for _, id := range ids {
			printInfo("%s", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.AddCommand(recordShowCmd, recordStagedCmd)
}

// openEditor opens or resumes the staging session for a record.
func openEditor(cmd *cobra.Command, recordID string) (*attachments.Controller, error) {
	return apiClient.Editor(cmd.Context(), recordID)
}
