// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/citation"
	"github.com/pdiddy/evidence-engine/internal/router"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var executeCmd = &cobra.Command{
	Use:   "execute [goal]",
	Short: "Run one task through the source router",
	Long: `Execute ranks the registered evidence sources for a goal, then runs the
try/retry/fallback sequence until one source succeeds or all are exhausted.
A failed execution is reported as a structured status, never a raw error.

Use --source to pin the primary source; the remaining candidates still act
as fallbacks. Citations are paginated; pass --page-token from a previous
response to continue.`,
	Args: cobra.ArbitraryArgs,
	RunE: runExecute,
}

func runExecute(cmd *cobra.Command, args []string) error {
	goal, _ := cmd.Flags().GetString("query")
	if goal == "" && len(args) > 0 {
		goal = strings.Join(args, " ")
	}
	if goal == "" {
		return fmt.Errorf("goal required: pass it as arguments or via --query")
	}

	task, _ := cmd.Flags().GetString("task")
	src, _ := cmd.Flags().GetString("source")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	pageToken, _ := cmd.Flags().GetString("page-token")

	r, cleanup, err := buildRouter(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	resp := r.ExecuteTask(context.Background(), router.Request{
		Task:      task,
		Query:     goal,
		Source:    src,
		PageSize:  pageSize,
		PageToken: pageToken,
	})

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if err := formatResponse(resp, jsonOutput); err != nil {
		return err
	}
	if validate, _ := cmd.Flags().GetBool("validate"); validate && !jsonOutput {
		formatValidation(resp.Citations)
	}
	return nil
}

// formatValidation lists each returned citation's validation score and
// issues.
func formatValidation(block *types.CitationBlock) {
	if block == nil || block.Count == 0 {
		return
	}
	fmt.Println("\nValidation:")
	for _, v := range citation.ValidateCitations(block.Citations).Results {
		status := "valid"
		if !v.Valid {
			status = "invalid"
		}
		fmt.Printf("  %s: %d/100 %s", v.ID, v.Score, status)
		if len(v.Issues) > 0 {
			fmt.Printf(" (%s)", strings.Join(v.Issues, "; "))
		}
		fmt.Println()
	}
}

func formatResponse(resp *types.TaskResponse, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if !resp.Execution.Executed {
		fmt.Printf("Execution failed: %s (%s)\n", resp.Execution.Reason, resp.Execution.FailureKind)
		if len(resp.Execution.FailedSources) > 0 {
			fmt.Printf("Failed sources:  %s\n", strings.Join(resp.Execution.FailedSources, ", "))
		}
		if len(resp.Execution.SkippedSources) > 0 {
			fmt.Printf("Skipped sources: %s\n", strings.Join(resp.Execution.SkippedSources, ", "))
		}
		return nil
	}

	fmt.Printf("Source:   %s (score %.1f, %d attempt(s))\n",
		resp.Execution.SourceUsed, resp.Execution.SourceScore, resp.Execution.Attempts)
	if resp.Execution.FallbackUsed {
		fmt.Printf("Fallback: primary %s failed\n", resp.Execution.PrimaryFailed)
	}
	if resp.Cached {
		fmt.Println("Served from cache.")
	}
	if resp.Note != "" {
		fmt.Println(resp.Note)
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
	executeCmd.Flags().String("query", "", "goal or research question")
	executeCmd.Flags().String("task", "literature_search", "task type to execute")
	executeCmd.Flags().String("source", "", "pin the primary source by name")
	executeCmd.Flags().Int("page-size", 0, "citations per page (0 = default)")
	executeCmd.Flags().String("page-token", "", "citation pagination token from a previous response")
	executeCmd.Flags().Bool("json", false, "output the full response as JSON")
	executeCmd.Flags().Bool("validate", false, "show per-citation validation scores and issues")

	rootCmd.AddCommand(executeCmd)
}
