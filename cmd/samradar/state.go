package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/oakline/sam-radar/internal/models"
	"github.com/oakline/sam-radar/internal/state"
)

var stateKeep int

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and manage run snapshots",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored run snapshots, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		manager := newStateManager()
		snapshots := manager.All()
		if len(snapshots) == 0 {
			fmt.Println("No run snapshots.")
			return
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"File", "Run Time", "Status", "Opportunities", "Failed Codes"})
		for _, info := range snapshots {
			t.AppendRow(table.Row{
				info.Filename,
				info.Timestamp.Format("2006-01-02 15:04:05"),
				summaryField(info.RunSnapshot, "status"),
				summaryField(info.RunSnapshot, "totalCount"),
				len(info.FailedCodes),
			})
		}
		t.Render()
	},
}

var stateShowCmd = &cobra.Command{
	Use:   "show <filename>",
	Short: "Print one snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := newStateManager()
		snapshot := manager.Load(args[0])
		if snapshot == nil {
			return fmt.Errorf("snapshot %s not found", args[0])
		}
		return printSnapshot(snapshot)
	},
}

var stateLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the most recent snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := newStateManager()
		snapshot := manager.LoadLatest()
		if snapshot == nil {
			return fmt.Errorf("no run snapshots")
		}
		return printSnapshot(snapshot)
	},
}

var stateRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Delete all but the most recent snapshots",
	Run: func(cmd *cobra.Command, args []string) {
		manager := newStateManager()
		deleted := manager.Rotate(stateKeep)
		fmt.Printf("Deleted %d snapshot(s), kept %d.\n", deleted, manager.Count())
	},
}

var stateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		manager := newStateManager()
		deleted := manager.Clear()
		fmt.Printf("Deleted %d snapshot(s).\n", deleted)
	},
}

func init() {
	stateRotateCmd.Flags().IntVar(&stateKeep, "keep", 30, "Number of snapshots to keep")
	stateCmd.AddCommand(stateListCmd, stateShowCmd, stateLatestCmd, stateRotateCmd, stateClearCmd)
	rootCmd.AddCommand(stateCmd)
}

func newStateManager() *state.Manager {
	return state.NewManager(nil, cfg.State.Dir, slog.Default())
}

func printSnapshot(snapshot *models.RunSnapshot) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

func summaryField(snapshot models.RunSnapshot, key string) any {
	if snapshot.Summary == nil {
		return ""
	}
	if v, ok := snapshot.Summary[key]; ok {
		return v
	}
	return ""
}
