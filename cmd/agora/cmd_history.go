package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"agora/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect archived debates",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived debates, most recent first",
	RunE:  listHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a full archived debate transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  showHistory,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an archived debate",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteHistory,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

func openArchive() (*store.Archive, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path := cfg.Store.Path
	if path == "" {
		path = filepath.Join(workspace, ".agora", "debates.db")
	}
	return store.Open(path)
}

func listHistory(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	records, err := archive.List(context.Background())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No archived debates.")
		return nil
	}

	for _, r := range records {
		fmt.Printf("%s  %-18s  %d round(s)  %s\n    %s\n",
			r.ID, r.Status, r.Rounds, r.CompletedAt.Format("2006-01-02 15:04"), r.Question)
	}
	return nil
}

func showHistory(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	session, err := archive.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Question: %s\n", session.Question)
	printSession(session)
	return nil
}

func deleteHistory(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	if err := archive.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted debate %s\n", args[0])
	return nil
}
