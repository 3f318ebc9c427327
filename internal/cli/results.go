package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitlab/splitlab/internal/experiment"
)

var resultsCmd = &cobra.Command{
	Use:   "results <id>",
	Short: "Show detailed results for an experiment",
	Long:  `Show per-variant conversion rates with confidence intervals, the statistical comparison, and segment breakdowns.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		ctx := context.Background()

		exp, err := a.store.LoadExperiment(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load experiment: %w", err)
		}
		results, err := a.controller.Results(ctx, exp.ID)
		if err != nil {
			return err
		}

		fmt.Printf("EXPERIMENT: %s\n", exp.Name)
		fmt.Printf("STATUS: %s\n", exp.Status)
		fmt.Printf("METHOD: %s\n", exp.Config.Method)
		if exp.StartedAt != nil {
			fmt.Printf("STARTED: %s\n", exp.StartedAt.Format("2006-01-02"))
		}
		fmt.Println()

		printVariantTable(results.Variants)
		fmt.Println()

		if results.InsufficientData {
			fmt.Println("Not enough data to compare variants yet.")
		} else {
			if results.PValue != nil {
				fmt.Printf("p-value: %.4f\n", *results.PValue)
			}
			if results.ProbabilityOfImprovement != nil {
				fmt.Printf("P(improvement): %.4f\n", *results.ProbabilityOfImprovement)
			}
			fmt.Printf("Effect size (Cohen's d): %.3f\n", results.EffectSize)
		}
		fmt.Println(results.Recommendation)
		if results.StopReason != "" {
			fmt.Printf("Stop reason: %s\n", results.StopReason)
		}

		if len(results.Segments) > 0 {
			fmt.Println()
			fmt.Println("SEGMENTS")
			fmt.Println(strings.Repeat("─", 64))
			for _, s := range results.Segments {
				flag := ""
				if s.Significant {
					flag = fmt.Sprintf("  winner %s", s.WinnerVariantID)
				} else if s.InsufficientData {
					flag = "  insufficient data"
				}
				fmt.Printf("%-10s = %-14s  n=%-7d  confidence %.1f%%%s\n",
					s.Dimension, s.Value, s.SampleSize, s.Confidence*100, flag)
			}
		}
		return nil
	})
}

func printVariantTable(variants []experiment.VariantSummary) {
	fmt.Println("VARIANT           SAMPLES  CONVERSIONS  RATE     95% CI")
	fmt.Println(strings.Repeat("─", 64))
	for _, v := range variants {
		name := v.Name
		if v.IsControl {
			name += " *"
		}
		if len(name) > 16 {
			name = name[:13] + "..."
		}

		ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", v.CILower*100, v.CIUpper*100)
		if v.SampleSize == 0 {
			ciStr = "N/A"
		}

		fmt.Printf("%-16s  %-7d  %-11d  %-7s  %s\n",
			name, v.SampleSize, v.Conversions, formatPercent(v.Rate), ciStr)
	}
	fmt.Println("(* control)")
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}
