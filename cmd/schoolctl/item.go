package main

import (
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/staging"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Stage edits to the additional-results collection",
}

var (
	itemYear string
	itemDesc string
)

var itemListCmd = &cobra.Command{
	Use:   "list <record-id>",
	Short: "List collection items with their staged fate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, err := openEditor(cmd, args[0])
		if err != nil {
			return err
		}

		items := ed.Store().Items()
		if len(items) == 0 {
			printInfo("No collection items.")
			return nil
		}
		for _, it := range items {
			name := ""
			switch {
			case it.Ref != nil:
				name = it.Ref.DisplayName
			case it.File != nil:
				name = it.File.Name
			}
			printInfo("%s  %-8s %-20s %-6s %s",
				it.ID, it.Origin, it.Status, it.Year, name)
		}
		return nil
	},
}

var itemAddCmd = &cobra.Command{
	Use:     "add <record-id> <file>",
	Short:   "Stage a new collection item",
	Example: `  schoolctl item add rec-42 ./results-2026.pdf --year 2026 --desc "Mock exams"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, err := openEditor(cmd, args[0])
		if err != nil {
			return err
		}

		blob, err := loadBlob(args[1])
		if err != nil {
			return err
		}

		item, err := ed.AddItem(blob, metaFlags(cmd))
		if err != nil {
			return err
		}
		printSuccess("Staged new item %s.", item.ID)
		return nil
	},
}

var itemRemoveCmd = &cobra.Command{
	Use:   "rm <record-id> <item-id>",
	Short: "Remove an item (marks existing, deletes staged-new outright)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, err := openEditor(cmd, args[0])
		if err != nil {
			return err
		}

		item, ok := ed.Store().FindItem(args[1])
		if !ok {
			return models.ErrItemNotFound
		}
		wasNew := item.Origin == staging.OriginNew

		if err := ed.RemoveItem(args[1]); err != nil {
			return err
		}
		if wasNew {
			printSuccess("Deleted staged item %s; it will not reach the server.", args[1])
		} else {
			printSuccess("Marked item %s for removal. Use 'item restore' to undo.", args[1])
		}
		return nil
	},
}

var itemRestoreCmd = &cobra.Command{
	Use:   "restore <record-id> <item-id>",
	Short: "Reverse an existing item's removal mark",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, err := openEditor(cmd, args[0])
		if err != nil {
			return err
		}

		if err := ed.RestoreItem(args[1]); err != nil {
			return err
		}
		printSuccess("Restored item %s.", args[1])
		return nil
	},
}

var itemReplaceCmd = &cobra.Command{
	Use:   "replace <record-id> <item-id> <file>",
	Short: "Supersede an existing item with a new file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, err := openEditor(cmd, args[0])
		if err != nil {
			return err
		}

		blob, err := loadBlob(args[2])
		if err != nil {
			return err
		}

		item, err := ed.ReplaceItem(args[1], blob)
		if err != nil {
			return err
		}
		printSuccess("Staged %s as replacement item %s.", blob.Name, item.ID)
		return nil
	},
}

var itemMetaCmd = &cobra.Command{
	Use:     "meta <record-id> <item-id>",
	Short:   "Update an item's year/description",
	Example: `  schoolctl item meta rec-42 7f9c... --year 2025 --desc "Term 2 finals"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ed, err := openEditor(cmd, args[0])
		if err != nil {
			return err
		}

		if err := ed.UpdateItemMetadata(args[1], metaFlags(cmd)); err != nil {
			return err
		}
		printSuccess("Updated metadata for item %s.", args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(itemCmd)
	itemCmd.AddCommand(itemListCmd, itemAddCmd, itemRemoveCmd,
		itemRestoreCmd, itemReplaceCmd, itemMetaCmd)

	for _, c := range []*cobra.Command{itemAddCmd, itemMetaCmd} {
		c.Flags().StringVar(&itemYear, "year", "", "Academic year label")
		c.Flags().StringVar(&itemDesc, "desc", "", "Item description")
	}
}

// metaFlags turns the --year/--desc flags into a merge: only flags the
// user set are applied.
func metaFlags(cmd *cobra.Command) models.ItemMetadata {
	var meta models.ItemMetadata
	if cmd.Flags().Changed("year") {
		y := itemYear
		meta.Year = &y
	}
	if cmd.Flags().Changed("desc") {
		d := itemDesc
		meta.Description = &d
	}
	return meta
}
