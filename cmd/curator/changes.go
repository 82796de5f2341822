package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/curatorhq/curator/internal/daemonrunner"
	"github.com/curatorhq/curator/internal/docstore"
	"github.com/curatorhq/curator/internal/rpc"
)

// dialDaemon connects to the daemon socket or exits with a hint.
func dialDaemon() *rpc.Client {
	socketPath := daemonrunner.DefaultConfig(curatorHome).SocketPath
	client, err := rpc.TryDial(socketPath)
	if err != nil || client == nil {
		fmt.Fprintf(os.Stderr, "Error: daemon is not running\n")
		fmt.Fprintf(os.Stderr, "Hint: run 'curator daemon' to start it\n")
		os.Exit(1)
	}
	return client
}

type toolCallRequest struct {
	Name      string      `json:"name"`
	Arguments interface{} `json:"arguments,omitempty"`
}

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List recently changed files that pass the significance filter",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		client := dialDaemon()
		defer func() { _ = client.Close() }()

		var result struct {
			Changes []*docstore.FileRecord `json:"changes"`
		}
		err := client.Call("tools/call", toolCallRequest{
			Name:      "file_changes",
			Arguments: map[string]int{"limit": limit},
		}, &result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(result.Changes)
			return
		}

		if len(result.Changes) == 0 {
			fmt.Println("No significant changes")
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		for _, rec := range result.Changes {
			angle, _ := rec.LatestAngle()
			line := fmt.Sprintf("%s  drift %.2f", rec.Path, angle)
			if mod, ok := rec.LatestModTime(); ok {
				line += fmt.Sprintf("  %s", mod.Local().Format("2006-01-02 15:04"))
			}
			if rec.Directory != "" && rec.Directory != filepath.Dir(rec.Path) {
				line += fmt.Sprintf("  [%s]", cyan(rec.Directory))
			}
			fmt.Println(line)
		}
	},
}

func init() {
	changesCmd.Flags().IntP("limit", "n", 20, "Maximum number of changes to show (0 = all)")
	rootCmd.AddCommand(changesCmd)
}
