package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "Show the saved source and destination folders",
	Args:  cobra.NoArgs,
	RunE:  runFoldersShow,
}

var foldersSetSourceCmd = &cobra.Command{
	Use:   "set-source <path>",
	Short: "Save the folder to watch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := settingsStore().SaveSource(args[0]); err != nil {
			return err
		}
		return runFoldersShow(cmd, nil)
	},
}

var foldersSetDestinationCmd = &cobra.Command{
	Use:   "set-destination <path>",
	Short: "Save the folder classified documents are filed under",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := settingsStore().SaveDestination(args[0]); err != nil {
			return err
		}
		return runFoldersShow(cmd, nil)
	},
}

func init() {
	foldersCmd.AddCommand(foldersSetSourceCmd, foldersSetDestinationCmd)
}

func runFoldersShow(cmd *cobra.Command, args []string) error {
	store := settingsStore()
	folders, err := store.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Settings:    %s\n", store.Path())
	fmt.Fprintf(out, "Source:      %s\n", folders.SourcePath)
	fmt.Fprintf(out, "Destination: %s\n", folders.DestinationPath)
	return nil
}
