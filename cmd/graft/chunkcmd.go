package main

import (
	"fmt"
	"strings"

	"graft/internal/chunk"

	"github.com/spf13/cobra"
)

var chunkBudget int

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Summarize or split a codebase for the context window",
}

var chunkSummarizeCmd = &cobra.Command{
	Use:   "summarize [paths...]",
	Short: "Print a signature-level summary of the codebase",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		budget := chunkBudget
		if budget <= 0 {
			budget = chunk.BudgetFor(cfg.Agent.ContextWindow)
		}
		fmt.Println(chunk.New(budget).SummarizeCodebase(args))
		return nil
	},
}

var chunkPlanCmd = &cobra.Command{
	Use:   "plan [paths...]",
	Short: "Show how the codebase splits into context-sized chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		budget := chunkBudget
		if budget <= 0 {
			budget = chunk.BudgetFor(cfg.Agent.ContextWindow)
		}

		plan := chunk.New(budget).ChunkCodebase(args)
		fmt.Printf("%d files, budget %d tokens: %s\n", plan.TotalFiles, plan.TokenBudget, plan.Summary)
		for _, ch := range plan.Chunks {
			fmt.Printf("\nChunk %d (~%d tokens, relevance %.2f):\n", ch.ID, ch.EstimatedTokens, ch.Relevance)
			fmt.Println("  " + strings.Join(ch.Files, "\n  "))
		}
		return nil
	},
}

func init() {
	chunkCmd.PersistentFlags().IntVar(&chunkBudget, "budget", 0, "token budget per chunk (default 70% of the context window)")
	chunkCmd.AddCommand(chunkSummarizeCmd)
	chunkCmd.AddCommand(chunkPlanCmd)
}
