package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/curatorhq/curator/internal/config"
)

var (
	homeFlag   string
	jsonOutput bool

	// curatorHome is the resolved home directory for the current command.
	curatorHome string
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "curator - personal file organization assistant",
	Long: `Curator watches your important directories, tracks how files drift over
time, and serves the change history to MCP clients over a local socket.

Run 'curator daemon' to start the background monitor, then 'curator status'
to see what it knows.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		home, err := config.EnsureHome(homeFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		curatorHome = home

		if err := config.Initialize(home); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "Curator home directory (default: $CURATOR_HOME or ~/.curator)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func outputJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func main() {
	// Handle --version flag (in addition to 'version' subcommand)
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-v" {
			fmt.Printf("curator version %s (%s)\n", Version, Build)
			return
		}
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
