package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/curatorhq/curator/internal/daemonrunner"
	"github.com/curatorhq/curator/internal/lockfile"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background monitoring daemon",
	Long: `Run the background daemon that watches your priority directories.

The daemon will:
- Watch the configured directory trees for file changes
- Score each real change against the similarity service
- Prune the change history on a schedule
- Serve MCP clients over the local socket

By default the daemon detaches into the background. Use --foreground to keep
it attached to the terminal.

Use --stop to stop a running daemon.
Use --status to check if the daemon is running.`,
	Run: func(cmd *cobra.Command, args []string) {
		stop, _ := cmd.Flags().GetBool("stop")
		showStatus, _ := cmd.Flags().GetBool("status")
		foreground, _ := cmd.Flags().GetBool("foreground")
		logFile, _ := cmd.Flags().GetString("log")
		debounce, _ := cmd.Flags().GetDuration("debounce")

		if debounce <= 0 {
			fmt.Fprintf(os.Stderr, "Error: debounce must be positive (got %v)\n", debounce)
			os.Exit(1)
		}

		cfg := daemonrunner.DefaultConfig(curatorHome)
		cfg.Debounce = debounce
		if logFile != "" {
			cfg.LogFile = logFile
		}

		if showStatus {
			showDaemonStatus(cfg)
			return
		}

		if stop {
			stopDaemon(cfg)
			return
		}

		if running, pid := isDaemonRunning(cfg); running {
			fmt.Fprintf(os.Stderr, "Error: daemon already running (PID %d)\n", pid)
			fmt.Fprintf(os.Stderr, "Use 'curator daemon --stop' to stop it first\n")
			os.Exit(1)
		}

		if foreground || os.Getenv("CURATOR_DAEMON_FOREGROUND") == "1" {
			runDaemonForeground(cfg)
			return
		}

		startDaemonBackground(cfg, logFile, debounce)
	},
}

func init() {
	daemonCmd.Flags().Bool("stop", false, "Stop running daemon")
	daemonCmd.Flags().Bool("status", false, "Show daemon status")
	daemonCmd.Flags().Bool("foreground", false, "Run in the foreground instead of detaching")
	daemonCmd.Flags().String("log", "", "Log file path (default: <home>/daemon.log)")
	daemonCmd.Flags().Duration("debounce", 500*time.Millisecond, "How long file events settle before observation")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemonForeground(cfg daemonrunner.Config) {
	d := daemonrunner.New(cfg, Version)
	if err := d.Run(); err != nil {
		if err == lockfile.ErrLocked {
			fmt.Fprintf(os.Stderr, "Error: daemon already running (lock held)\n")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "Check log file: %s\n", cfg.LogFile)
		}
		os.Exit(1)
	}
}
