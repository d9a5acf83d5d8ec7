package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

var questionnaireCmd = &cobra.Command{
	Use:   "questionnaire",
	Short: "Manage risk questionnaires",
}

var questionnaireLoadCmd = &cobra.Command{
	Use:   "load <file.yaml>",
	Short: "Validate a questionnaire YAML file and store it",
	Long: `Load a questionnaire definition. Questions without an explicit
category or knockout tag get keyword-based defaults before validation.

Example:
  questionnaire load questionnaires/standard-v1.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runQuestionnaireLoad,
}

var questionnaireShowCmd = &cobra.Command{
	Use:   "show <questionnaire-id>",
	Short: "Display a stored questionnaire",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuestionnaireShow,
}

func init() {
	questionnaireCmd.AddCommand(questionnaireLoadCmd)
	questionnaireCmd.AddCommand(questionnaireShowCmd)
	rootCmd.AddCommand(questionnaireCmd)
}

func runQuestionnaireLoad(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return eris.Wrapf(err, "questionnaire: read %s", args[0])
	}

	var qn model.Questionnaire
	if err := yaml.Unmarshal(data, &qn); err != nil {
		return eris.Wrapf(err, "questionnaire: parse %s", args[0])
	}
	qn.ApplyDefaults()
	if err := qn.Validate(); err != nil {
		return eris.Wrap(err, "questionnaire: validate")
	}

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Store.SaveQuestionnaire(ctx, &qn); err != nil {
		return eris.Wrap(err, "questionnaire: save")
	}

	zap.L().Info("questionnaire stored",
		zap.String("questionnaire_id", qn.ID),
		zap.Int("questions", len(qn.Questions)),
	)
	fmt.Printf("Stored questionnaire %s (%d questions).\n", qn.ID, len(qn.Questions))
	return nil
}

func runQuestionnaireShow(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	qn, err := env.Store.GetQuestionnaire(ctx, args[0])
	if err != nil {
		return eris.Wrap(err, "questionnaire: load")
	}
	if qn == nil {
		return eris.Errorf("questionnaire %s not found", args[0])
	}

	fmt.Printf("Questionnaire: %s", qn.ID)
	if qn.Name != "" {
		fmt.Printf(" (%s)", qn.Name)
	}
	fmt.Println()
	for _, q := range qn.Questions {
		flags := string(q.Category)
		if q.Knockout {
			flags += ", knockout"
		}
		fmt.Printf("\n%s [weight %.1f, %s]\n  %s\n", q.ID, q.Weight, flags, q.Text)
		for _, o := range q.Options {
			fmt.Printf("    %-4s (%d) %s\n", o.ID, o.Score, o.Text)
		}
	}
	return nil
}
