package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/scoring"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Score and classify a questionnaire submission",
	Long: `Score a client's questionnaire responses, classify the result into a
risk category, and aggregate a confidence score from the boundary-distance
heuristic and the behavioral-analysis collaborator.

Responses are a JSON object mapping question IDs to the chosen option ID:

  {"q1": "a", "q2": "c", "q3": "b"}

Examples:
  # Assess a single client
  assess --questionnaire standard-v1 --client "Jane Doe" --responses jane.json

  # Assess every *.json response file in a directory
  assess --questionnaire standard-v1 --batch ./responses`,
	RunE: runAssess,
}

func init() {
	f := assessCmd.Flags()
	f.String("questionnaire", "", "questionnaire ID (required)")
	f.String("client", "", "client name")
	f.String("responses", "", "path to a JSON responses file")
	f.String("batch", "", "directory of JSON response files, one per client")
	f.String("context", "", "free-text client context passed to the behavioral analysis")
	f.Int("workers", 4, "concurrent assessments in batch mode")

	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	questionnaireID, _ := cmd.Flags().GetString("questionnaire")
	if questionnaireID == "" {
		return eris.New("assess: --questionnaire is required")
	}
	responsesPath, _ := cmd.Flags().GetString("responses")
	batchDir, _ := cmd.Flags().GetString("batch")
	if (responsesPath == "") == (batchDir == "") {
		return eris.New("assess: exactly one of --responses or --batch is required")
	}

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	qn, err := env.Store.GetQuestionnaire(ctx, questionnaireID)
	if err != nil {
		return eris.Wrap(err, "assess: load questionnaire")
	}
	if qn == nil {
		return eris.Errorf("assess: questionnaire %s not found", questionnaireID)
	}

	clientContext, _ := cmd.Flags().GetString("context")

	if responsesPath != "" {
		clientName, _ := cmd.Flags().GetString("client")
		a, err := assessOne(ctx, env, qn, clientName, responsesPath, clientContext)
		if err != nil {
			return err
		}
		printAssessment(a)
		return nil
	}

	return assessBatch(ctx, cmd, env, qn, batchDir, clientContext)
}

// assessOne runs the full pipeline for one response file and persists the
// resulting assessment in the scored state.
func assessOne(ctx context.Context, env *env, qn *model.Questionnaire, clientName, path, clientContext string) (*model.Assessment, error) {
	responses, err := loadResponses(path)
	if err != nil {
		return nil, err
	}

	score, err := scoring.Score(qn.Questions, responses)
	if err != nil {
		return nil, eris.Wrapf(err, "assess: score %s", path)
	}
	suitability, err := scoring.Classify(qn.Questions, responses)
	if err != nil {
		return nil, eris.Wrapf(err, "assess: classify %s", path)
	}

	confidence := scoring.AggregateConfidence(ctx, env.behaviorAnalyzer(), score, scoring.AnalysisInput{
		Category:      suitability.Category,
		Questions:     qn.Questions,
		Responses:     responses,
		ClientContext: clientContext,
		Model:         cfg.Anthropic.Model,
	})

	now := time.Now().UTC()
	a := &model.Assessment{
		ID:              uuid.NewString(),
		ClientName:      clientName,
		QuestionnaireID: qn.ID,
		Responses:       responses,
		Score:           score,
		Suitability:     suitability,
		Confidence:      confidence,
		Status:          model.AssessmentScored,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := env.Store.CreateAssessment(ctx, a); err != nil {
		return nil, eris.Wrap(err, "assess: save")
	}

	zap.L().Info("assessment scored",
		zap.String("assessment_id", a.ID),
		zap.String("client", a.ClientName),
		zap.String("category", string(a.Suitability.Category)),
		zap.Float64("confidence", a.Confidence.FinalConfidence),
		zap.Bool("fallback_used", a.Confidence.FallbackUsed),
	)
	return a, nil
}

// assessBatch assesses every *.json file in dir concurrently. The file name
// (without extension) becomes the client name. One bad file does not stop the
// batch; failures are logged and counted.
func assessBatch(ctx context.Context, cmd *cobra.Command, env *env, qn *model.Questionnaire, dir, clientContext string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return eris.Wrapf(err, "assess: read batch dir %s", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		fmt.Println("No response files found.")
		return nil
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make([]*model.Assessment, len(files))
	failed := make([]error, len(files))
	for i, path := range files {
		g.Go(func() error {
			clientName := strings.TrimSuffix(filepath.Base(path), ".json")
			a, err := assessOne(gctx, env, qn, clientName, path, clientContext)
			if err != nil {
				zap.L().Warn("batch assessment failed",
					zap.String("file", path),
					zap.Error(err),
				)
				failed[i] = err
				return nil
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var ok, bad int
	for i := range files {
		if results[i] != nil {
			ok++
		}
		if failed[i] != nil {
			bad++
		}
	}
	fmt.Printf("\n--- Batch Summary ---\n")
	fmt.Printf("Assessed: %d\n", ok)
	fmt.Printf("Failed:   %d\n", bad)
	for _, a := range results {
		if a == nil {
			continue
		}
		fmt.Printf("%-36s %-20s %-12s conf=%.1f\n",
			a.ID, a.ClientName, a.Suitability.Category, a.Confidence.FinalConfidence)
	}
	return nil
}

func loadResponses(path string) (model.ResponseSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "assess: read responses %s", path)
	}
	var responses model.ResponseSet
	if err := json.Unmarshal(data, &responses); err != nil {
		return nil, eris.Wrapf(err, "assess: parse responses %s", path)
	}
	return responses, nil
}

func printAssessment(a *model.Assessment) {
	fmt.Printf("Assessment:  %s\n", a.ID)
	if a.ClientName != "" {
		fmt.Printf("Client:      %s\n", a.ClientName)
	}
	fmt.Printf("Status:      %s\n", a.Status)
	fmt.Printf("Score:       %.1f / %.1f (%.1f%%)\n", a.Score.Raw, a.Score.Max, a.Score.Normalized*100)
	fmt.Printf("Willingness: %.1f\n", a.Suitability.WillingnessScore)
	fmt.Printf("Ability:     %.1f\n", a.Suitability.AbilityScore)
	fmt.Printf("Category:    %s\n", a.Suitability.Category)
	if a.Suitability.KnockoutTriggered {
		fmt.Println("Knockout:    triggered (short time horizon)")
	}
	if a.Suitability.OverrideCategory != "" {
		fmt.Printf("Override:    %s (%s)\n", a.Suitability.OverrideCategory, a.Suitability.OverrideReason)
	}
	fmt.Printf("Confidence:  %.1f / 100", a.Confidence.FinalConfidence)
	if a.Confidence.FallbackUsed {
		fmt.Print(" (neutral fallback)")
	}
	fmt.Println()
	fmt.Printf("  boundary distance: %.1f\n", a.Confidence.BoundaryDistance)
	fmt.Printf("  consistency:       %.1f\n", a.Confidence.Consistency)
	fmt.Printf("  stability:         %.1f\n", a.Confidence.Stability)
	if a.Confidence.Summary != "" {
		fmt.Printf("  summary: %s\n", a.Confidence.Summary)
	}
	eligible := scoring.Eligible(a.Finalized(), a.Confidence.FinalConfidence)
	fmt.Printf("IPS eligible: %v\n", eligible)
}
