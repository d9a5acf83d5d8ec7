package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/portfolio"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Build and edit portfolios derived from stored allocations",
}

var portfolioBuildCmd = &cobra.Command{
	Use:   "build <assessment-id>",
	Short: "Materialize a portfolio from the assessment's stored allocation",
	Long: `Pick one security per target asset class from the catalog and build
a portfolio at the allocation's target percents.

Example:
  portfolio build 6f1c... --total 100000`,
	Args: cobra.ExactArgs(1),
	RunE: runPortfolioBuild,
}

var portfolioSetPercentCmd = &cobra.Command{
	Use:   "set-percent <portfolio-id> <security-id> <percent>",
	Short: "Set a holding's allocated percent",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPortfolioEdit(cmd, args[0], func(ctx context.Context, env *env, p *model.Portfolio) error {
			percent, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return eris.Wrapf(err, "portfolio: parse percent %q", args[2])
			}
			return env.Engine.SetPercent(ctx, p, args[1], percent)
		})
	},
}

var portfolioSetAmountCmd = &cobra.Command{
	Use:   "set-amount <portfolio-id> <security-id> <amount>",
	Short: "Set a holding's allocated amount",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPortfolioEdit(cmd, args[0], func(ctx context.Context, env *env, p *model.Portfolio) error {
			amount, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return eris.Wrapf(err, "portfolio: parse amount %q", args[2])
			}
			return env.Engine.SetAmount(ctx, p, args[1], amount)
		})
	},
}

var portfolioSwapCmd = &cobra.Command{
	Use:   "swap <portfolio-id> <old-security-id> <new-security-id>",
	Short: "Replace a holding's security, keeping its allocation",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPortfolioEdit(cmd, args[0], func(ctx context.Context, env *env, p *model.Portfolio) error {
			return env.Engine.SwapSecurity(ctx, p, args[1], args[2])
		})
	},
}

var portfolioAddCmd = &cobra.Command{
	Use:   "add <portfolio-id> <security-id> <percent>",
	Short: "Add a holding at the given percent",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPortfolioEdit(cmd, args[0], func(ctx context.Context, env *env, p *model.Portfolio) error {
			percent, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return eris.Wrapf(err, "portfolio: parse percent %q", args[2])
			}
			return env.Engine.AddHolding(ctx, p, args[1], percent)
		})
	},
}

var portfolioRemoveCmd = &cobra.Command{
	Use:   "remove <portfolio-id> <security-id>",
	Short: "Remove a holding under an explicit policy",
	Long: `Remove a holding. --policy sell_to_cash frees the amount into the
cash balance; --policy redistribute spreads it across the remaining holdings.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, _ := cmd.Flags().GetString("policy")
		return runPortfolioEdit(cmd, args[0], func(ctx context.Context, env *env, p *model.Portfolio) error {
			return env.Engine.RemoveHolding(ctx, p, args[1], portfolio.RemovalPolicy(policy))
		})
	},
}

var portfolioRebalanceCmd = &cobra.Command{
	Use:   "rebalance <portfolio-id>",
	Short: "Atomically replace the holdings with a proposed allocation",
	Long: `Apply a bulk rebalance from a JSON proposal file. The proposal is a
list of {security_id, percent} entries; all edits apply together or not at
all.

Proposal file:
  [{"security_id": "VTI", "percent": 50}, {"security_id": "BND", "percent": 30}]`,
	Args: cobra.ExactArgs(1),
	RunE: runPortfolioRebalance,
}

var portfolioShowCmd = &cobra.Command{
	Use:   "show <portfolio-id>",
	Short: "Display a portfolio's holdings and cash balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortfolioShow,
}

func init() {
	portfolioBuildCmd.Flags().Float64("total", 0, "total portfolio value (required)")
	portfolioRemoveCmd.Flags().String("policy", "", "removal policy: sell_to_cash or redistribute (required)")
	portfolioRebalanceCmd.Flags().String("file", "", "path to the JSON proposal file (required)")

	portfolioCmd.AddCommand(portfolioBuildCmd)
	portfolioCmd.AddCommand(portfolioSetPercentCmd)
	portfolioCmd.AddCommand(portfolioSetAmountCmd)
	portfolioCmd.AddCommand(portfolioSwapCmd)
	portfolioCmd.AddCommand(portfolioAddCmd)
	portfolioCmd.AddCommand(portfolioRemoveCmd)
	portfolioCmd.AddCommand(portfolioRebalanceCmd)
	portfolioCmd.AddCommand(portfolioShowCmd)
	rootCmd.AddCommand(portfolioCmd)
}

func runPortfolioBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	total, _ := cmd.Flags().GetFloat64("total")
	if total <= 0 {
		return eris.New("portfolio: --total must be positive")
	}

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	alloc, err := env.Store.GetAllocation(ctx, args[0])
	if err != nil {
		return eris.Wrap(err, "portfolio: load allocation")
	}
	if alloc == nil {
		return eris.Errorf("portfolio: no allocation stored for assessment %s; run allocate first", args[0])
	}

	picked, err := env.Catalog.PickInstruments(ctx, alloc.Targets)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p := &model.Portfolio{
		ID:           uuid.NewString(),
		AssessmentID: args[0],
		TotalValue:   total,
		CashBalance:  total,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, t := range alloc.Targets {
		sec := picked[t.AssetClass]
		if err := env.Engine.AddHolding(ctx, p, sec.ID, t.TargetPercent); err != nil {
			return err
		}
	}

	if err := env.Store.CreatePortfolio(ctx, p); err != nil {
		return eris.Wrap(err, "portfolio: save")
	}

	zap.L().Info("portfolio built",
		zap.String("portfolio_id", p.ID),
		zap.String("assessment_id", p.AssessmentID),
		zap.Float64("total_value", p.TotalValue),
		zap.Int("holdings", len(p.Holdings)),
	)
	printPortfolio(p)
	return nil
}

// runPortfolioEdit loads a portfolio, applies one engine operation, and saves
// the result. A rejected edit leaves the stored portfolio untouched.
func runPortfolioEdit(cmd *cobra.Command, portfolioID string, edit func(context.Context, *env, *model.Portfolio) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	p, err := loadPortfolio(ctx, env, portfolioID)
	if err != nil {
		return err
	}

	if err := edit(ctx, env, p); err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()
	if err := env.Store.UpdatePortfolio(ctx, p); err != nil {
		return eris.Wrap(err, "portfolio: save")
	}
	printPortfolio(p)
	return nil
}

func runPortfolioRebalance(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return eris.New("portfolio: --file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "portfolio: read proposal %s", path)
	}
	var proposal []struct {
		SecurityID string  `json:"security_id"`
		Percent    float64 `json:"percent"`
	}
	if err := json.Unmarshal(data, &proposal); err != nil {
		return eris.Wrapf(err, "portfolio: parse proposal %s", path)
	}

	return runPortfolioEdit(cmd, args[0], func(ctx context.Context, env *env, p *model.Portfolio) error {
		proposed := make([]model.Holding, 0, len(proposal))
		totalPercent := 0.0
		for _, entry := range proposal {
			proposed = append(proposed, model.Holding{
				SecurityID: entry.SecurityID,
				Percent:    entry.Percent,
			})
			totalPercent += entry.Percent
		}
		newCash := p.TotalValue * (100 - totalPercent) / 100
		return env.Engine.Rebalance(ctx, p, proposed, newCash)
	})
}

func runPortfolioShow(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	p, err := loadPortfolio(ctx, env, args[0])
	if err != nil {
		return err
	}
	printPortfolio(p)
	return nil
}

func loadPortfolio(ctx context.Context, env *env, id string) (*model.Portfolio, error) {
	p, err := env.Store.GetPortfolio(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "load portfolio")
	}
	if p == nil {
		return nil, eris.Errorf("portfolio %s not found", id)
	}
	return p, nil
}

func printPortfolio(p *model.Portfolio) {
	fmt.Printf("Portfolio:  %s\n", p.ID)
	if p.AssessmentID != "" {
		fmt.Printf("Assessment: %s\n", p.AssessmentID)
	}
	fmt.Printf("Total:      %.2f\n", p.TotalValue)
	fmt.Printf("\n%-12s %-30s %8s %14s %12s\n", "Security", "Name", "Pct", "Amount", "Units")
	for _, h := range p.Holdings {
		fmt.Printf("%-12s %-30s %7.2f%% %14.2f %12.4f\n",
			h.SecurityID, h.SecurityName, h.Percent, h.Amount, h.Units)
	}
	fmt.Printf("\nInvested:   %.2f\n", p.InvestedAmount())
	fmt.Printf("Cash:       %.2f\n", p.CashBalance)
}
