package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatorhq/curator/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon, monitor, vault and database status",
	Long: `Show the current state of all curator subsystems.

Reads the status documents under the curator home directory directly, so it
works whether or not the daemon is running.`,
	Run: func(cmd *cobra.Command, args []string) {
		daemon := status.ReadDaemon(filepath.Join(curatorHome, status.DaemonFile))
		monitor := status.ReadMonitor(filepath.Join(curatorHome, status.MonitorFile))
		vault := status.ReadVault(filepath.Join(curatorHome, status.VaultFile))
		database := status.ReadDatabase(filepath.Join(curatorHome, status.DatabaseFile))

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"daemon":   daemon,
				"monitor":  monitor,
				"vault":    vault,
				"database": database,
			})
			return
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		if daemon.Running {
			fmt.Printf("%s Daemon running (PID %d)\n", green("●"), daemon.PID)
			if daemon.StartedAt != nil {
				fmt.Printf("  Started: %s\n", daemon.StartedAt.Local().Format("2006-01-02 15:04:05"))
			}
		} else {
			fmt.Printf("%s Daemon not running\n", red("●"))
		}

		fmt.Printf("\nMonitor:\n")
		fmt.Printf("  Watched roots: %d\n", len(monitor.WatchedRoots))
		for _, root := range monitor.WatchedRoots {
			fmt.Printf("    %s\n", root)
		}
		fmt.Printf("  Tracked files: %d\n", monitor.RecordCount)
		if monitor.LastEventAt != nil {
			fmt.Printf("  Last event: %s\n", monitor.LastEventAt.Local().Format("2006-01-02 15:04:05"))
		}

		fmt.Printf("\nVault:\n")
		if len(vault.Managed) == 0 {
			fmt.Printf("  No managed directories configured\n")
		}
		managed := make([]string, 0, len(vault.Managed))
		for path := range vault.Managed {
			managed = append(managed, path)
		}
		sort.Strings(managed)
		for _, path := range managed {
			dir := vault.Managed[path]
			marker := green("✓")
			if !dir.Valid {
				marker = red("✗")
			}
			fmt.Printf("  %s %s (priority %g)\n", marker, path, dir.Priority)
			if dir.Error != "" {
				fmt.Printf("      %s\n", dir.Error)
			}
		}
		for _, redundancy := range vault.Redundancies {
			fmt.Printf("  %s %s\n", yellow("!"), redundancy)
		}

		fmt.Printf("\nDatabase:\n")
		if database.Collection != "" {
			fmt.Printf("  Collection: %s\n", database.Collection)
		}
		fmt.Printf("  Documents: %d\n", database.DocumentCount)
		if database.LastPruneAt != nil {
			fmt.Printf("  Last prune: %s\n", database.LastPruneAt.Local().Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
