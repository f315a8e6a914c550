package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/schoolctl/internal/models"
)

var slotCmd = &cobra.Command{
	Use:   "slot",
	Short: "Stage edits to single-file attachment slots",
	Long: `Slot commands stage edits to the record's named attachment
slots. Nothing reaches the server until an explicit commit.

Known slots: ` + strings.Join(models.SlotNames, ", "),
}

var slotPutCmd = &cobra.Command{
	Use:   "put <record-id> <slot> <file>",
	Short: "Stage a file into a slot (replacing any existing file)",
	Example: `  schoolctl slot put rec-42 curriculum_pdf ./curriculum-2026.pdf
  schoolctl slot put rec-42 video_tour ./tour.mp4`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, err := openEditor(cmd, args[0])
		if err != nil {
			return err
		}

		blob, err := loadBlob(args[2])
		if err != nil {
			return err
		}

		if err := ed.StageSlotUpload(args[1], blob); err != nil {
			return err
		}
		printSuccess("Staged %s into %s.", blob.Name, args[1])
		return nil
	},
}

var slotRemoveCmd = &cobra.Command{
	Use:     "remove <record-id> <slot>",
	Short:   "Mark a slot's existing file for removal",
	Example: `  schoolctl slot remove rec-42 fee_breakdown_pdf`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, err := openEditor(cmd, args[0])
		if err != nil {
			return err
		}

		if err := ed.RemoveSlot(args[1]); err != nil {
			return err
		}
		printSuccess("Marked %s for removal. Use 'slot restore' to undo.", args[1])
		return nil
	},
}

var slotRestoreCmd = &cobra.Command{
	Use:     "restore <record-id> <slot>",
	Short:   "Cancel a slot's staged removal or replacement",
	Example: `  schoolctl slot restore rec-42 fee_breakdown_pdf`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, err := openEditor(cmd, args[0])
		if err != nil {
			return err
		}

		if err := ed.RestoreSlot(args[1]); err != nil {
			return err
		}
		printSuccess("Restored %s to its saved state.", args[1])
		return nil
	},
}

var slotDetachCmd = &cobra.Command{
	Use:     "detach <record-id> <slot>",
	Short:   "Drop a slot's staged upload, keeping any replacement mark",
	Example: `  schoolctl slot detach rec-42 curriculum_pdf`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, err := openEditor(cmd, args[0])
		if err != nil {
			return err
		}

		if err := ed.DetachSlotFile(args[1]); err != nil {
			return err
		}
		printSuccess("Detached staged file from %s.", args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(slotCmd)
	slotCmd.AddCommand(slotPutCmd, slotRemoveCmd, slotRestoreCmd, slotDetachCmd)
}

// loadBlob reads a local file into a staged blob, enforcing the
// configured size cap.
func loadBlob(path string) (*models.FileBlob, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > cfg.Storage.MaxUploadSize {
		return nil, fmt.Errorf("%s exceeds max upload size (%d bytes)",
			path, cfg.Storage.MaxUploadSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &models.FileBlob{Name: filepath.Base(path), Data: data}, nil
}
