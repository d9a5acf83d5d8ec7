package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/scoring"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/store"
)

var overrideCmd = &cobra.Command{
	Use:   "override <assessment-id>",
	Short: "Record an advisor override on an assessment",
	Long: `Record an advisor's category override. The computed category stays
on record; downstream steps use the override.

Example:
  override 6f1c... --category moderate --reason "client holds substantial outside assets"`,
	Args: cobra.ExactArgs(1),
	RunE: runOverride,
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize <assessment-id>",
	Short: "Mark an assessment as advisor-approved",
	Args:  cobra.ExactArgs(1),
	RunE:  runFinalize,
}

var rejectCmd = &cobra.Command{
	Use:   "reject <assessment-id>",
	Short: "Mark an assessment as rejected",
	Long: `Mark an assessment as rejected. The record is kept for history; a
fresh submission creates a new assessment.`,
	Args: cobra.ExactArgs(1),
	RunE: runReject,
}

var assessmentsCmd = &cobra.Command{
	Use:   "assessments",
	Short: "List stored assessments",
	RunE:  runListAssessments,
}

func init() {
	f := overrideCmd.Flags()
	f.String("category", "", "override risk category: conservative, moderate or aggressive (required)")
	f.String("reason", "", "override justification (required)")

	lf := assessmentsCmd.Flags()
	lf.String("client", "", "filter by client name")
	lf.String("status", "", "filter by status: scored, finalized or rejected")
	lf.Int("limit", 50, "maximum number of results")

	rootCmd.AddCommand(overrideCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(assessmentsCmd)
}

func runOverride(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	category, _ := cmd.Flags().GetString("category")
	reason, _ := cmd.Flags().GetString("reason")

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	a, err := loadAssessment(ctx, env, args[0])
	if err != nil {
		return err
	}
	if a.Status == model.AssessmentRejected {
		return eris.Errorf("override: assessment %s is rejected", a.ID)
	}

	if err := scoring.ApplyOverride(&a.Suitability, model.RiskCategory(category), reason); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	if err := env.Store.UpdateAssessment(ctx, a); err != nil {
		return eris.Wrap(err, "override: save")
	}

	zap.L().Info("override recorded",
		zap.String("assessment_id", a.ID),
		zap.String("computed", string(a.Suitability.Category)),
		zap.String("override", string(a.Suitability.OverrideCategory)),
	)
	fmt.Printf("Override recorded: %s -> %s\n", a.Suitability.Category, a.Suitability.OverrideCategory)
	return nil
}

func runFinalize(cmd *cobra.Command, args []string) error {
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
	if a.Status == model.AssessmentRejected {
		return eris.Errorf("finalize: assessment %s is rejected", a.ID)
	}
	if a.Finalized() {
		fmt.Printf("Assessment %s is already finalized.\n", a.ID)
		return nil
	}

	a.Status = model.AssessmentFinalized
	a.UpdatedAt = time.Now().UTC()
	if err := env.Store.UpdateAssessment(ctx, a); err != nil {
		return eris.Wrap(err, "finalize: save")
	}

	fmt.Printf("Assessment %s finalized.\n", a.ID)
	if !scoring.Eligible(true, a.Confidence.FinalConfidence) {
		fmt.Printf("Note: confidence %.1f is below the eligibility threshold %.0f; IPS generation stays blocked.\n",
			a.Confidence.FinalConfidence, scoring.EligibilityThreshold)
	}
	return nil
}

func runReject(cmd *cobra.Command, args []string) error {
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
	if a.Status == model.AssessmentRejected {
		fmt.Printf("Assessment %s is already rejected.\n", a.ID)
		return nil
	}

	a.Status = model.AssessmentRejected
	a.UpdatedAt = time.Now().UTC()
	if err := env.Store.UpdateAssessment(ctx, a); err != nil {
		return eris.Wrap(err, "reject: save")
	}

	fmt.Printf("Assessment %s rejected.\n", a.ID)
	return nil
}

func runListAssessments(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, _ := cmd.Flags().GetString("client")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	list, err := env.Store.ListAssessments(ctx, store.AssessmentFilter{
		ClientName: client,
		Status:     model.AssessmentStatus(status),
		Limit:      limit,
	})
	if err != nil {
		return eris.Wrap(err, "assessments: list")
	}
	if len(list) == 0 {
		fmt.Println("No assessments found.")
		return nil
	}

	fmt.Printf("%-36s %-20s %-12s %-10s %8s\n", "ID", "Client", "Category", "Status", "Conf")
	for _, a := range list {
		fmt.Printf("%-36s %-20s %-12s %-10s %8.1f\n",
			a.ID, a.ClientName, a.Suitability.Effective(), a.Status, a.Confidence.FinalConfidence)
	}
	return nil
}

func loadAssessment(ctx context.Context, env *env, id string) (*model.Assessment, error) {
	a, err := env.Store.GetAssessment(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "load assessment")
	}
	if a == nil {
		return nil, eris.Errorf("assessment %s not found", id)
	}
	return a, nil
}
