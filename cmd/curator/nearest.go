package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/curatorhq/curator/internal/similarity"
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Find tracked files most similar to the given content",
	Long: `Find tracked files most similar to the given content.

Content is read from --file when set, otherwise from stdin:

  curator nearest --file draft.md
  cat draft.md | curator nearest -k 3`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		k, _ := cmd.Flags().GetInt("k")

		var content []byte
		var err error
		if file != "" {
			content, err = os.ReadFile(file) // #nosec G304 - user-supplied query file
		} else {
			content, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading content: %v\n", err)
			os.Exit(1)
		}
		if len(content) == 0 {
			fmt.Fprintf(os.Stderr, "Error: no content to compare (use --file or pipe to stdin)\n")
			os.Exit(1)
		}

		client := dialDaemon()
		defer func() { _ = client.Close() }()

		var result struct {
			Matches []similarity.Match `json:"matches"`
		}
		err = client.Call("tools/call", toolCallRequest{
			Name: "nearest_files",
			Arguments: map[string]interface{}{
				"content": string(content),
				"k":       k,
			},
		}, &result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(result.Matches)
			return
		}

		if len(result.Matches) == 0 {
			fmt.Println("No similar files found")
			return
		}
		for _, m := range result.Matches {
			fmt.Printf("%.3f  %s\n", m.Similarity, m.Path)
		}
	},
}

func init() {
	nearestCmd.Flags().String("file", "", "Read query content from this file instead of stdin")
	nearestCmd.Flags().IntP("k", "k", 5, "Number of matches to return")
	rootCmd.AddCommand(nearestCmd)
}
