// Command cogbot runs the chat-ops bot process: it loads configuration,
// opens the local cache store, wires the command dispatcher and its
// supervised background tasks, and serves metrics/health/dash over HTTP.
//
// The chat transport, the remote spreadsheet client, and the streaming
// event source are external-collaborator boundaries this project stops
// at an interface for (see pkg/chatmodel, pkg/sheets, pkg/feed.Source);
// run wires stub implementations at those three seams so the process is
// fully constructible and its supervised tasks observable end to end,
// and an operator supplies real clients there for a live deployment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cogbot/cogbot/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cogbot",
	Short: "cogbot - fortification and undermining campaign bot",
	Long: `cogbot tracks a faction's fortification/undermining campaign state
against a set of leadership-maintained spreadsheets, dispatches chat
commands against that cache, and watches a streaming event feed for
hostile fleet carrier movement.`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "cogbot.yaml", "Path to cogbot's YAML configuration")
	rootCmd.PersistentFlags().String("log-level", "", "Override the config file's log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Force JSON log output regardless of the config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dashCmd)
}

// initLogging sets up a console logger before the config file (and its
// own log section) is available, so early failures are still visible.
func initLogging(cmd *cobra.Command) {
	level, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("log-json")
	if level == "" {
		level = "info"
	}
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}
