package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docsorter/internal/bootstrap"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent processing runs from the journal",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the classification result stored for a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyLimit int

func init() {
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	repo, db, err := bootstrap.OpenJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	docs, err := repo.ListRecent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents processed yet")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTAGE\tUPDATED\tPATH")
	for _, doc := range docs {
		path := doc.DestinationPath
		if path == "" {
			path = doc.SourcePath
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", doc.ID, doc.Status, doc.Stage, doc.UpdatedAt.Format(time.DateTime), path)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	repo, db, err := bootstrap.OpenJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := repo.GetResult(ctx, args[0])
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}
