package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tgienger/stride/internal/logger"
	"github.com/tgienger/stride/internal/models"
	"github.com/tgienger/stride/internal/tasks"
)

var treeFlags struct {
	all bool
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the task tree without starting the TUI",
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().BoolVarP(&treeFlags.all, "all", "a", false, "Include done and archived tasks")
}

func runTree(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	records, err := client.ListTasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}
	for _, o := range tasks.Orphans(records) {
		logger.Warn("tree: subtask %s has no parent %s", o.ID, o.ParentID)
	}

	printTrees(cmd.OutOrStdout(), tasks.Build(records), treeFlags.all)
	return nil
}

func printTrees(w io.Writer, trees []tasks.Tree, all bool) {
	shown := 0
	for _, t := range trees {
		if !all && closed(t.Task.Status) {
			continue
		}
		shown++
		fmt.Fprintf(w, "%s%s\n", t.Task.Title, treeMeta(t.Task, t.DisplayTime))
		for i, s := range t.Subtasks {
			branch := "├─"
			if i == len(t.Subtasks)-1 {
				branch = "└─"
			}
			fmt.Fprintf(w, "  %s %s%s\n", branch, s.Title, treeMeta(s, s.EstimatedTime))
		}
	}
	if shown == 0 {
		fmt.Fprintln(w, "No tasks.")
	}
}

func closed(s models.Status) bool {
	return s == models.StatusDone || s == models.StatusArchive
}

func treeMeta(t models.Task, minutes int) string {
	parts := []string{t.Status.Label()}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if t.Deadline != nil {
		parts = append(parts, "due "+t.Deadline.String())
	}
	if t.Category != "" {
		parts = append(parts, t.Category)
	}
	return "  [" + strings.Join(parts, ", ") + "]"
}
