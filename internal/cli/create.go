package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/splitlab/splitlab/internal/experiment"
)

var experimentTypes = []experiment.Type{
	experiment.TypeContent,
	experiment.TypeCampaign,
	experiment.TypeCreative,
	experiment.TypeLandingPage,
	experiment.TypeAudience,
}

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		description string
		expType     string
		variants    string
		allocations string
		metricName  string
		aggregation string
		method      string
		minSample   int
		minDays     int
		maxDays     int
		correct     bool
		segments    string
		earlyStop   bool
		futility    float64
		efficacy    float64
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new experiment",
		Long: `Create a new experiment in draft status.

Examples:
  splitlab create hero --variants "Control,Blue Button"
  splitlab create cta --variants "A,B,C" --allocations "50,25,25" --correct
  splitlab create promo --variants "A,B" --method bayesian --early-stop --efficacy 0.99`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			variantNames := splitTrimmed(variants)
			if len(variantNames) < 2 {
				return fmt.Errorf("need at least 2 variants. Example: --variants \"Control,B\"")
			}

			allocs, err := parseAllocations(allocations, len(variantNames))
			if err != nil {
				return err
			}

			if expType == "" {
				expType, err = promptExperimentType()
				if err != nil {
					return err
				}
			}

			exp := &experiment.Experiment{
				Name:        name,
				Description: description,
				Type:        experiment.Type(expType),
			}
			for i, vn := range variantNames {
				exp.Variants = append(exp.Variants, experiment.Variant{
					Name:              vn,
					IsControl:         i == 0, // first variant is the control
					TrafficAllocation: allocs[i],
				})
			}
			exp.Metrics = []experiment.Metric{{
				Name:        metricName,
				Kind:        experiment.MetricPrimary,
				Aggregation: experiment.Aggregation(aggregation),
			}}
			exp.Config = experiment.Configuration{
				MinimumSampleSize: minSample,
				MinDurationDays:   minDays,
				MaxDurationDays:   maxDays,
				Method:            experiment.Method(method),
				CorrectMultiple:   correct,
				SegmentDimensions: splitTrimmed(segments),
			}
			if earlyStop {
				exp.Config.EarlyStopping = &experiment.EarlyStopping{
					Enabled:          true,
					FutilityBoundary: futility,
					EfficacyBoundary: efficacy,
				}
			}

			return withApp(func(a *app) error {
				if err := a.controller.Create(context.Background(), exp); err != nil {
					return err
				}

				fmt.Printf("Created experiment '%s' (%s) with %d variants:\n", exp.Name, exp.ID, len(exp.Variants))
				for _, v := range exp.Variants {
					marker := ""
					if v.IsControl {
						marker = " (control)"
					}
					fmt.Printf("  %s: %.0f%%%s\n", v.Name, v.TrafficAllocation, marker)
				}
				fmt.Println("\nStart it with: splitlab start", exp.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "experiment description")
	cmd.Flags().StringVar(&expType, "type", "", "experiment type (content|campaign|creative|landing_page|audience)")
	cmd.Flags().StringVarP(&variants, "variants", "v", "", "comma-separated variant names, first is the control (required)")
	cmd.Flags().StringVar(&allocations, "allocations", "", "comma-separated traffic percentages (default: equal split)")
	cmd.Flags().StringVar(&metricName, "metric", "conversion", "primary metric name")
	cmd.Flags().StringVar(&aggregation, "aggregation", string(experiment.AggregationConversionRate), "metric aggregation (sum|average|count|conversion_rate)")
	cmd.Flags().StringVar(&method, "method", string(experiment.MethodFrequentist), "statistical method (frequentist|bayesian)")
	cmd.Flags().IntVar(&minSample, "min-sample", 100, "minimum sample size per variant")
	cmd.Flags().IntVar(&minDays, "min-days", 0, "minimum duration in days")
	cmd.Flags().IntVar(&maxDays, "max-days", 0, "maximum duration in days (0 = unlimited)")
	cmd.Flags().BoolVar(&correct, "correct", false, "apply Bonferroni multiple-testing correction")
	cmd.Flags().StringVar(&segments, "segments", "", "comma-separated segmentation dimensions, e.g. \"device,locale\"")
	cmd.Flags().BoolVar(&earlyStop, "early-stop", false, "enable sequential early stopping")
	cmd.Flags().Float64Var(&futility, "futility", 0.05, "futility boundary for early stopping")
	cmd.Flags().Float64Var(&efficacy, "efficacy", 0.99, "efficacy boundary for early stopping")
	cmd.MarkFlagRequired("variants")

	return cmd
}

func promptExperimentType() (string, error) {
	items := make([]string, len(experimentTypes))
	for i, t := range experimentTypes {
		items[i] = string(t)
	}
	prompt := promptui.Select{
		Label: "Experiment type",
		Items: items,
	}
	_, choice, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			return "", fmt.Errorf("cancelled")
		}
		return "", err
	}
	return choice, nil
}

func splitTrimmed(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseAllocations(s string, variantCount int) ([]float64, error) {
	if s == "" {
		// Equal split, remainder on the first variant.
		out := make([]float64, variantCount)
		each := 100.0 / float64(variantCount)
		total := 0.0
		for i := 1; i < variantCount; i++ {
			out[i] = each
			total += each
		}
		out[0] = 100 - total
		return out, nil
	}

	parts := splitTrimmed(s)
	if len(parts) != variantCount {
		return nil, fmt.Errorf("got %d allocations for %d variants", len(parts), variantCount)
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid allocation %q", p)
		}
		out[i] = v
	}
	return out, nil
}
