package main

import (
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/schoolctl/internal/services/attachments"
	"github.com/TheMichaelB/schoolctl/internal/staging"
)

var statusCmd = &cobra.Command{
	Use:   "status <record-id>",
	Short: "Show staged edits and the diff that a commit would submit",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ed, err := openEditor(cmd, args[0])
	if err != nil {
		return err
	}

	printInfo("Record %s: %s", args[0], ed.Phase())

	for _, slot := range ed.Store().Slots() {
		line := slot.Name() + ": " + slot.Phase().String()
		if ref := slot.Ref(); ref != nil {
			line += "  " + ref.DisplayName
		}
		if pending := slot.Pending(); pending != nil {
			line += "  -> " + pending.Name
		}
		if slot.Staged() {
			printWarn("  %s", line)
		} else {
			printInfo("  %s", line)
		}
	}

	staged := 0
	for _, it := range ed.Store().Items() {
		if it.Origin == staging.OriginNew || it.Status != staging.StatusActive {
			staged++
		}
	}
	printInfo("  collection: %d items, %d staged changes", len(ed.Store().Items()), staged)

	if ed.Phase() == attachments.PhaseDirty {
		d := ed.PreviewDiff()
		printInfo("")
		printInfo("Commit would submit:")
		for _, ch := range d.Slots {
			printWarn("  %s %s", ch.Op, ch.Slot)
		}
		if d.Collection != nil {
			printWarn("  collection: %d removed, %d uploaded, %d metadata updates",
				len(d.Collection.Removed),
				len(d.Collection.NewItems),
				len(d.Collection.MetadataUpdates))
		}
	}
	return nil
}
