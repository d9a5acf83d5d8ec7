package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/allocation"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/scoring"
)

var allocateCmd = &cobra.Command{
	Use:   "allocate <assessment-id>",
	Short: "Build and store the target allocation for an assessment",
	Long: `Build the target asset allocation for a finalized, eligible
assessment. The category baseline is perturbed by the generation
collaborator when configured; a proposal that fails validation falls back to
the baseline.

Example:
  allocate 6f1c... --horizon 12 --liquidity low --tax-bracket 30%`,
	Args: cobra.ExactArgs(1),
	RunE: runAllocate,
}

func init() {
	f := allocateCmd.Flags()
	f.Int("horizon", 0, "investment horizon in years")
	f.String("liquidity", "", "liquidity needs (e.g. low, medium, high)")
	f.String("tax-bracket", "", "client tax bracket")
	f.Bool("baseline-only", false, "skip the generation collaborator and use the category baseline")

	rootCmd.AddCommand(allocateCmd)
}

func runAllocate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	a, err := loadAssessment(ctx, env, args[0])
	if err != nil {
		return err
	}
	if !scoring.Eligible(a.Finalized(), a.Confidence.FinalConfidence) {
		return eris.Errorf(
			"allocate: assessment %s not eligible (status=%s, confidence=%.1f, need finalized and >= %.0f)",
			a.ID, a.Status, a.Confidence.FinalConfidence, scoring.EligibilityThreshold,
		)
	}

	category := a.Suitability.Effective()
	horizon, _ := cmd.Flags().GetInt("horizon")
	liquidity, _ := cmd.Flags().GetString("liquidity")
	taxBracket, _ := cmd.Flags().GetString("tax-bracket")
	baselineOnly, _ := cmd.Flags().GetBool("baseline-only")

	var alloc model.AllocationModel
	if baselineOnly {
		alloc, err = allocation.Baseline(category)
	} else {
		alloc, err = env.Builder.Build(ctx, allocation.GenerationInput{
			Category:     category,
			HorizonYears: horizon,
			Liquidity:    liquidity,
			TaxBracket:   taxBracket,
			Model:        cfg.Anthropic.Model,
		})
	}
	if err != nil {
		return err
	}

	if err := env.Store.SaveAllocation(ctx, a.ID, &alloc); err != nil {
		return eris.Wrap(err, "allocate: save")
	}

	zap.L().Info("allocation stored",
		zap.String("assessment_id", a.ID),
		zap.String("category", string(category)),
		zap.Bool("perturbed", alloc.Perturbed),
	)
	printAllocation(a.ID, &alloc)
	return nil
}

func printAllocation(assessmentID string, alloc *model.AllocationModel) {
	fmt.Printf("Assessment: %s\n", assessmentID)
	fmt.Printf("Category:   %s\n", alloc.Category)
	fmt.Printf("Rebalance:  %s\n", alloc.RebalanceCadence)
	if alloc.Perturbed {
		fmt.Println("Source:     collaborator (validated)")
	} else {
		fmt.Println("Source:     baseline")
	}
	fmt.Printf("\n%-15s %8s %18s\n", "Asset Class", "Target", "Band")
	for _, t := range alloc.Targets {
		fmt.Printf("%-15s %7.1f%% %8.1f%% - %.1f%%\n", t.AssetClass, t.TargetPercent, t.LowerBand, t.UpperBand)
	}
	fmt.Printf("%-15s %7.1f%%\n", "Total", alloc.TargetSum())
	if alloc.Narrative != "" {
		fmt.Printf("\n%s\n", alloc.Narrative)
	}
}
