package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Show the status of a running cogbot process's background tasks",
	Long: `dash fetches status_table() from a running cogbot process's /dash
endpoint — the same data the in-chat "admin active" command reports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get("http://" + addr + "/dash")
		if err != nil {
			return fmt.Errorf("reach cogbot at %s: %w", addr, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read dash response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("dash request failed: %s", resp.Status)
		}

		fmt.Print(string(body))
		return nil
	},
}

func init() {
	dashCmd.Flags().String("addr", "127.0.0.1:9090", "Address of a running cogbot process's metrics/dash server")
}
