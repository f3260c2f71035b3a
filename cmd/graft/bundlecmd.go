package main

import (
	"fmt"
	"os"
	"strings"

	"graft/internal/bundle"

	"github.com/spf13/cobra"
)

var (
	bundleType   string
	bundleOutput string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [paths...]",
	Short: "Preview or write the file bundles built from paths",
	Long: `Classifies the given files and directories into the configured type
groups and assembles each group into one bundle document. Without
--output the per-type summaries are printed; with it the concatenated
bundle text is written to a file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := loadConfig()
		if err != nil {
			return err
		}

		b := bundle.New(cfg.Bundling, ws)
		bundles, unmatched, err := b.Bundle(cmd.Context(), args, bundleType)
		if err != nil {
			return err
		}
		if len(unmatched) > 0 {
			fmt.Fprintln(os.Stderr, "No files found for:", strings.Join(unmatched, ", "))
		}
		if len(bundles) == 0 {
			fmt.Println("No supported files found.")
			return nil
		}

		var total int
		var content strings.Builder
		for _, fb := range bundles {
			fmt.Printf("%-10s %4d file(s)  ~%d tokens\n", fb.FileType, fb.FileCount, fb.EstimatedTokens)
			total += fb.FileCount
			content.WriteString(fb.Content)
			content.WriteString("\n")
		}

		if bundleOutput != "" {
			if err := os.WriteFile(bundleOutput, []byte(content.String()), 0644); err != nil {
				return err
			}
			fmt.Printf("Bundled %d file(s) -> %s\n", total, bundleOutput)
		}
		return nil
	},
}

func init() {
	bundleCmd.Flags().StringVarP(&bundleType, "type", "t", "", "restrict to one configured file type")
	bundleCmd.Flags().StringVarP(&bundleOutput, "output", "o", "", "write the bundle text to a file")
}
