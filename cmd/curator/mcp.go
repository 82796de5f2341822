package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/curatorhq/curator/internal/daemonrunner"
	"github.com/curatorhq/curator/internal/rpc"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Bridge a stdio MCP client to the daemon socket",
	Long: `Bridge a stdio MCP client to the daemon socket.

MCP clients that speak newline-delimited JSON-RPC over stdio can use this
command as their server executable; every line is forwarded to the daemon
and responses stream back on stdout. Exits non-zero when the daemon is not
reachable.`,
	Run: func(cmd *cobra.Command, args []string) {
		socketPath := daemonrunner.DefaultConfig(curatorHome).SocketPath
		if !rpc.Proxy(socketPath, os.Stdin, os.Stdout) {
			fmt.Fprintf(os.Stderr, "Error: daemon is not reachable at %s\n", socketPath)
			fmt.Fprintf(os.Stderr, "Hint: run 'curator daemon' to start it\n")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
