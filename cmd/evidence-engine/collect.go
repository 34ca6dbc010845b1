// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/citation"
	"github.com/pdiddy/evidence-engine/internal/collector"
	"github.com/pdiddy/evidence-engine/internal/router"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var collectCmd = &cobra.Command{
	Use:   "collect [topic]",
	Short: "Collect cited evidence across curated guideline domains",
	Long: `Collect fans out across the curated guideline domains under a global
time budget: the curated corpus answers first (no network), then web search
tops the collection up domain by domain. Source failures degrade the result,
they never abort it.

Mode "thorough" issues extra query variants per domain; "fast" (the default)
keeps one. Use --csl to emit the citations as CSL-YAML for Pandoc.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCollect,
}

func runCollect(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	if topic == "" && len(args) > 0 {
		topic = strings.Join(args, " ")
	}
	if topic == "" {
		return fmt.Errorf("topic required: pass it as arguments or via --topic")
	}

	mode, _ := cmd.Flags().GetString("mode")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	pageToken, _ := cmd.Flags().GetString("page-token")

	r, cleanup, err := buildRouter(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	resp := r.ExecuteTask(context.Background(), router.Request{
		Task:      router.TaskGuidelines,
		Query:     topic,
		Mode:      mode,
		PageSize:  pageSize,
		PageToken: pageToken,
	})

	if cslOutput, _ := cmd.Flags().GetBool("csl"); cslOutput {
		return formatCollectCSL(resp)
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return formatResponse(resp, true)
	}
	if err := formatCollectText(resp); err != nil {
		return err
	}
	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		formatCitationStats(resp.Citations)
	}
	return nil
}

// formatCitationStats summarizes the returned citation set: coverage by
// source and origin, years, and field completeness.
func formatCitationStats(block *types.CitationBlock) {
	if block == nil || block.Count == 0 {
		return
	}
	agg := citation.NewAggregator()
	agg.AddCitations("", block.Citations...)
	st := agg.ComputeStats()

	fmt.Println("\nCitation stats:")
	fmt.Printf("  Total:        %d\n", st.Total)
	fmt.Printf("  With DOI:     %d\n", st.WithDOI)
	fmt.Printf("  Completeness: %.1f/7 fields\n", st.CompletenessAvg)
	if len(st.Sources) > 0 {
		fmt.Printf("  Sources:      %s\n", strings.Join(st.Sources, ", "))
	}
	origins := make([]string, 0, len(st.ByOrigin))
	for o := range st.ByOrigin {
		origins = append(origins, o)
	}
	sort.Strings(origins)
	for _, o := range origins {
		fmt.Printf("  From %s: %d\n", o, st.ByOrigin[o])
	}
}

func formatCollectCSL(resp *types.TaskResponse) error {
	if resp.Citations == nil {
		return fmt.Errorf("no citations to export")
	}
	return citation.ExportCSL(resp.Citations.Citations, os.Stdout)
}

func formatCollectText(resp *types.TaskResponse) error {
	col, ok := resp.Results.(*collector.Collection)
	if !ok {
		// A cache replay decodes Results generically; the citation block
		// below still renders.
		col = nil
	}

	if col != nil {
		fmt.Printf("Collected %d evidence item(s) in %s", len(col.Evidence), formatDuration(col.Elapsed))
		if col.Truncated {
			fmt.Print(" (truncated at cap)")
		}
		fmt.Println()
		if len(col.SourcesCovered) > 0 {
			fmt.Printf("Search domains covered: %s\n", strings.Join(col.SourcesCovered, ", "))
		}
	}
	if resp.Cached {
		fmt.Println("Served from cache.")
	}

	if resp.Citations != nil && resp.Citations.Count > 0 {
		fmt.Printf("\nCitations (%d of %d):\n%s", resp.Citations.Count, resp.Citations.Total,
			citation.FormatList(resp.Citations.Citations))
		fmt.Printf("Quality: %d/%d valid, mean score %.0f/100\n",
			resp.Citations.ValidCount, resp.Citations.Total, resp.Citations.QualityScore)
		if resp.Citations.HasMore {
			fmt.Printf("\nMore available: --page-token %s\n", resp.Citations.NextToken)
		}
	}
	return nil
}

func init() {
	collectCmd.Flags().String("topic", "", "topic to collect evidence for")
	collectCmd.Flags().String("mode", "fast", "collection mode: fast or thorough")
	collectCmd.Flags().Int("page-size", 0, "citations per page (0 = default)")
	collectCmd.Flags().String("page-token", "", "citation pagination token from a previous response")
	collectCmd.Flags().Bool("json", false, "output the full response as JSON")
	collectCmd.Flags().Bool("csl", false, "emit citations as CSL-YAML")
	collectCmd.Flags().Bool("stats", false, "show aggregate citation statistics")

	rootCmd.AddCommand(collectCmd)
}
