// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the per-source circuit breaker state",
	Long: `Health prints each tracked source's circuit state, success rate, and
recovery deadline. Health state is per process, so this view reflects the
current invocation only; a source never called yet is reported healthy.`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	r, cleanup, err := buildRouter(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	summary := r.HealthSummary()

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	if len(summary) == 0 {
		fmt.Println("No sources called yet; all sources healthy.")
		return nil
	}

	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(os.Stdout, "%-24s  %-12s  %-9s  %-9s  %s\n",
		"Source", "State", "Successes", "Failures", "Success rate")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 70))
	for _, name := range names {
		info := summary[name]
		fmt.Fprintf(os.Stdout, "%-24s  %-12s  %-9d  %-9d  %.0f%%\n",
			name, info.State, info.SuccessCount, info.FailureCount, info.SuccessRate*100)
	}
	return nil
}

func init() {
	healthCmd.Flags().Bool("json", false, "output the summary as JSON")

	rootCmd.AddCommand(healthCmd)
}
