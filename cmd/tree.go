package cmd

import (
	"errors"
	"fmt"

	"github.com/creativeprojects/mailmock/mock"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree <account>",
	Short: "Display the folder tree of a mock account",
	RunE:  runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account name")
	}
	address, err := mockAddress(args[0])
	if err != nil {
		return err
	}
	list, err := folderTree(registry.Mailbox(address))
	if err != nil {
		return err
	}
	root := pterm.NewTreeFromLeveledList(list)
	root.Text = address
	return pterm.DefaultTree.WithRoot(root).Render()
}

// folderTree lists the existing folders with their message count. Subscribed folders are marked with "*".
func folderTree(mbox *mock.Mailbox) (pterm.LeveledList, error) {
	list := pterm.LeveledList{}
	err := mbox.Walk(func(folder *mock.Folder, depth int) error {
		count, err := folder.MessageCount()
		if err != nil {
			return err
		}
		mark := ""
		if folder.IsSubscribed() {
			mark = " *"
		}
		list = append(list, pterm.LeveledListItem{
			Level: depth,
			Text:  fmt.Sprintf("%s (%d)%s", folder.Name(), count, mark),
		})
		return nil
	})
	return list, err
}
