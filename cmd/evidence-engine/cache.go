// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache (stats, clear)",
	Long: `Cache manages the local SQLite response store. Responses are keyed by a
hash of every output-affecting request parameter and expire after the
configured TTL (24h by default).`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show response cache counters",
	RunE:  runCacheStats,
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	r, cleanup, err := buildRouter(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := r.CacheStats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Entries: %d\n", st.Entries)
	fmt.Printf("Hits:    %d\n", st.Hits)
	fmt.Printf("Misses:  %d\n", st.Misses)
	fmt.Printf("TTL:     %s\n", st.TTL)
	return nil
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached response",
	RunE:  runCacheClear,
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	r, cleanup, err := buildRouter(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := r.ClearCache(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Cleared %d cached response(s).\n", n)
	return nil
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(cacheCmd)
}
