package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/curatorhq/curator/internal/daemonrunner"
	"github.com/curatorhq/curator/internal/lockfile"
	"github.com/curatorhq/curator/internal/logscan"
	"github.com/curatorhq/curator/internal/status"
)

// isDaemonRunning reports whether a live daemon owns this home directory:
// the status document must say running and the recorded PID must be alive.
func isDaemonRunning(cfg daemonrunner.Config) (bool, int) {
	st := status.ReadDaemon(daemonStatusPath(cfg))
	if !st.Running {
		return false, 0
	}
	if !lockfile.IsProcessAlive(st.PID) {
		return false, 0
	}
	return true, st.PID
}

func daemonStatusPath(cfg daemonrunner.Config) string {
	return filepath.Join(cfg.Home, status.DaemonFile)
}

// showDaemonStatus displays the current daemon status along with recent
// warnings and errors scraped from the log.
func showDaemonStatus(cfg daemonrunner.Config) {
	running, pid := isDaemonRunning(cfg)
	st := status.ReadDaemon(daemonStatusPath(cfg))
	warnings, errs := logscan.ExtractFile(cfg.LogFile)

	if jsonOutput {
		out := map[string]interface{}{
			"running": running,
		}
		if running {
			out["pid"] = pid
			if st.StartedAt != nil {
				out["started_at"] = st.StartedAt
			}
			out["log_path"] = cfg.LogFile
		}
		if len(warnings) > 0 {
			out["log_warnings"] = warnings
		}
		if len(errs) > 0 {
			out["log_errors"] = errs
		}
		outputJSON(out)
		return
	}

	if running {
		fmt.Printf("Daemon is running (PID %d)\n", pid)
		if st.StartedAt != nil {
			fmt.Printf("  Started: %s\n", st.StartedAt.Local().Format("2006-01-02 15:04:05"))
		}
		if _, err := os.Stat(cfg.LogFile); err == nil {
			fmt.Printf("  Log: %s\n", cfg.LogFile)
		}
	} else {
		fmt.Println("Daemon is not running")
	}

	for _, w := range warnings {
		fmt.Printf("  %s\n", w)
	}
	for _, e := range errs {
		fmt.Printf("  %s\n", e)
	}
}

// stopDaemon stops a running daemon: SIGTERM, bounded wait, then SIGKILL.
func stopDaemon(cfg daemonrunner.Config) {
	running, pid := isDaemonRunning(cfg)
	if !running {
		fmt.Fprintf(os.Stderr, "Error: daemon is not running\n")
		os.Exit(1)
	}

	fmt.Printf("Stopping daemon (PID %d)...\n", pid)

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding process: %v\n", err)
		os.Exit(1)
	}

	if err := sendStopSignal(process); err != nil {
		fmt.Fprintf(os.Stderr, "Error signaling daemon: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if running, _ := isDaemonRunning(cfg); !running {
			fmt.Println("Daemon stopped")
			return
		}
	}

	fmt.Fprintf(os.Stderr, "Warning: daemon did not stop after 5 seconds, forcing termination\n")

	// Check one more time before killing to avoid a race.
	if running, _ := isDaemonRunning(cfg); !running {
		fmt.Println("Daemon stopped")
		return
	}
	if err := process.Kill(); err != nil {
		fmt.Fprintf(os.Stderr, "Error killing process: %v\n", err)
	}
	_ = os.Remove(cfg.PIDFile)
	fmt.Println("Daemon killed")
}

// startDaemonBackground re-execs the binary detached from the terminal and
// waits for the daemon status document to confirm startup.
func startDaemonBackground(cfg daemonrunner.Config, logFile string, debounce time.Duration) {
	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve executable path: %v\n", err)
		os.Exit(1)
	}

	args := []string{"daemon", "--debounce", debounce.String()}
	if logFile != "" {
		args = append(args, "--log", logFile)
	}
	if homeFlag != "" {
		args = append(args, "--home", homeFlag)
	}

	cmd := exec.Command(exe, args...) // #nosec G204 - re-exec of the curator binary itself
	cmd.Env = append(os.Environ(), "CURATOR_DAEMON_FOREGROUND=1")
	configureDaemonProcess(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", os.DevNull, err)
		os.Exit(1)
	}
	defer func() { _ = devNull.Close() }()

	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting daemon: %v\n", err)
		os.Exit(1)
	}

	expectedPID := cmd.Process.Pid

	if err := cmd.Process.Release(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to release process: %v\n", err)
	}

	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		st := status.ReadDaemon(daemonStatusPath(cfg))
		if st.Running && st.PID == expectedPID {
			fmt.Printf("Daemon started (PID %d)\n", expectedPID)
			return
		}
	}

	fmt.Fprintf(os.Stderr, "Warning: daemon may have failed to start (status not confirmed)\n")
	fmt.Fprintf(os.Stderr, "Check log file: %s\n", cfg.LogFile)
}
