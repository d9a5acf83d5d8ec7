// Package portfolio keeps the percent/amount/unit/cash invariant of a
// portfolio consistent under arbitrary holding edits, removals and bulk
// rebalance operations.
package portfolio

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

// PercentTolerance is how far total allocated percent may exceed 100 before a
// rebalance proposal is refused.
const PercentTolerance = 0.5

// cashTolerance absorbs floating-point noise when checking for a negative
// cash balance.
const cashTolerance = 1e-6

// cashConsistency is how far a rebalance proposal's stated cash may differ
// from the cash its holdings imply before the proposal is refused. A cent
// covers the rounding a well-formed caller accumulates.
const cashConsistency = 0.01

// ValidationError reports an edit the engine refused. The portfolio is left
// untouched; nothing partial is committed.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("portfolio: %s rejected: %s", e.Op, e.Reason)
}

// RemovalPolicy selects what happens to a removed holding's share. The caller
// chooses explicitly; there is no default.
type RemovalPolicy string

const (
	// SellToCash adds the holding's amount to the cash balance and leaves the
	// remaining holdings unchanged.
	SellToCash RemovalPolicy = "sell_to_cash"
	// Redistribute spreads the freed percent proportionally across the
	// remaining holdings, keeping their relative weights.
	Redistribute RemovalPolicy = "redistribute"
)

// Resolver looks up securities for swap and add operations. Lookup failures
// are data-integrity errors, distinct from validation errors.
type Resolver interface {
	GetSecurity(ctx context.Context, id string) (*model.Security, error)
}

// Engine applies holding edits to portfolios. One operation runs to
// completion per portfolio before the next is accepted; edits to different
// portfolios are independent.
type Engine struct {
	resolver Resolver
}

// NewEngine creates an Engine using the given security resolver.
func NewEngine(resolver Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// allocationFromPercent derives amount and units with percent authoritative.
func allocationFromPercent(totalValue, percent, price float64) (amount, units float64) {
	amount = totalValue * percent / 100
	if price > 0 {
		units = amount / price
	}
	return amount, units
}

// allocationFromAmount derives percent and units with amount authoritative.
func allocationFromAmount(totalValue, amount, price float64) (percent, units float64) {
	if totalValue > 0 {
		percent = amount / totalValue * 100
	}
	if price > 0 {
		units = amount / price
	}
	return percent, units
}

// SetPercent sets a holding's allocated percent and re-derives amount and
// units. Cash is recomputed from scratch; a negative result rejects the edit.
func (e *Engine) SetPercent(ctx context.Context, p *model.Portfolio, securityID string, percent float64) error {
	if percent < 0 {
		return &ValidationError{Op: "percent edit", Reason: "percent must be non-negative"}
	}
	idx := p.HoldingIndex(securityID)
	if idx < 0 {
		return &ValidationError{Op: "percent edit", Reason: fmt.Sprintf("no holding for security %s", securityID)}
	}

	sec, err := e.resolver.GetSecurity(ctx, securityID)
	if err != nil {
		return err
	}

	next := p.Clone()
	h := &next.Holdings[idx]
	h.Percent = percent
	h.Amount, h.Units = allocationFromPercent(next.TotalValue, percent, sec.Price)
	return e.commit("percent edit", p, next)
}

// SetAmount sets a holding's allocated amount and re-derives percent and
// units. Amount edits need a positive price to derive units.
func (e *Engine) SetAmount(ctx context.Context, p *model.Portfolio, securityID string, amount float64) error {
	if amount < 0 {
		return &ValidationError{Op: "amount edit", Reason: "amount must be non-negative"}
	}
	idx := p.HoldingIndex(securityID)
	if idx < 0 {
		return &ValidationError{Op: "amount edit", Reason: fmt.Sprintf("no holding for security %s", securityID)}
	}

	sec, err := e.resolver.GetSecurity(ctx, securityID)
	if err != nil {
		return err
	}
	if sec.Price <= 0 && amount > 0 {
		return &ValidationError{Op: "amount edit", Reason: fmt.Sprintf("security %s has no price", securityID)}
	}

	next := p.Clone()
	h := &next.Holdings[idx]
	h.Amount = amount
	h.Percent, h.Units = allocationFromAmount(next.TotalValue, amount, sec.Price)
	return e.commit("amount edit", p, next)
}

// SwapSecurity replaces a holding's security. The stored amount is kept,
// units are re-derived from the new price, percent is unchanged.
func (e *Engine) SwapSecurity(ctx context.Context, p *model.Portfolio, oldID, newID string) error {
	idx := p.HoldingIndex(oldID)
	if idx < 0 {
		return &ValidationError{Op: "security swap", Reason: fmt.Sprintf("no holding for security %s", oldID)}
	}
	if p.HoldingIndex(newID) >= 0 {
		return &ValidationError{Op: "security swap", Reason: fmt.Sprintf("portfolio already holds %s", newID)}
	}

	sec, err := e.resolver.GetSecurity(ctx, newID)
	if err != nil {
		return err
	}

	next := p.Clone()
	h := &next.Holdings[idx]
	h.SecurityID = sec.ID
	h.SecurityName = sec.Name
	h.Units = 0
	if sec.Price > 0 {
		h.Units = h.Amount / sec.Price
	}
	return e.commit("security swap", p, next)
}

// AddHolding appends a holding at the given percent.
func (e *Engine) AddHolding(ctx context.Context, p *model.Portfolio, securityID string, percent float64) error {
	if percent < 0 {
		return &ValidationError{Op: "add holding", Reason: "percent must be non-negative"}
	}
	if p.HoldingIndex(securityID) >= 0 {
		return &ValidationError{Op: "add holding", Reason: fmt.Sprintf("portfolio already holds %s", securityID)}
	}

	sec, err := e.resolver.GetSecurity(ctx, securityID)
	if err != nil {
		return err
	}

	next := p.Clone()
	amount, units := allocationFromPercent(next.TotalValue, percent, sec.Price)
	next.Holdings = append(next.Holdings, model.Holding{
		SecurityID:   sec.ID,
		SecurityName: sec.Name,
		Percent:      percent,
		Amount:       amount,
		Units:        units,
	})
	return e.commit("add holding", p, next)
}

// RemoveHolding removes a holding under an explicit policy. SellToCash frees
// the amount into cash; Redistribute scales the remaining holdings so they
// absorb the freed share at consistent relative weights.
func (e *Engine) RemoveHolding(ctx context.Context, p *model.Portfolio, securityID string, policy RemovalPolicy) error {
	idx := p.HoldingIndex(securityID)
	if idx < 0 {
		return &ValidationError{Op: "remove holding", Reason: fmt.Sprintf("no holding for security %s", securityID)}
	}

	next := p.Clone()
	removed := next.Holdings[idx]
	next.Holdings = append(next.Holdings[:idx], next.Holdings[idx+1:]...)

	switch policy {
	case SellToCash:
		// Remaining holdings untouched; cash recomputation below absorbs the
		// freed amount.
	case Redistribute:
		remaining := 0.0
		for _, h := range next.Holdings {
			remaining += h.Percent
		}
		if remaining <= 0 {
			// Nothing left to absorb the share; the freed amount falls to cash.
			break
		}
		factor := (remaining + removed.Percent) / remaining
		for i := range next.Holdings {
			h := &next.Holdings[i]
			sec, err := e.resolver.GetSecurity(ctx, h.SecurityID)
			if err != nil {
				return err
			}
			h.Percent *= factor
			h.Amount, h.Units = allocationFromPercent(next.TotalValue, h.Percent, sec.Price)
		}
	default:
		return &ValidationError{Op: "remove holding", Reason: fmt.Sprintf("unknown removal policy %q", policy)}
	}

	return e.commit("remove holding", p, next)
}

// Rebalance atomically replaces the holdings list and cash balance with a
// proposed state. The proposal is refused when cash would be negative, the
// allocated percent exceeds 100 beyond tolerance, or the stated cash does not
// match what the holdings imply; nothing partial is written. The committed
// cash is always recomputed from the holdings, never taken from the proposal.
func (e *Engine) Rebalance(ctx context.Context, p *model.Portfolio, proposed []model.Holding, newCash float64) error {
	if newCash < -cashTolerance {
		return &ValidationError{Op: "rebalance", Reason: fmt.Sprintf("proposed cash balance %.2f is negative", newCash)}
	}
	totalPercent := 0.0
	for _, h := range proposed {
		if h.Percent < 0 {
			return &ValidationError{Op: "rebalance", Reason: fmt.Sprintf("negative percent for security %s", h.SecurityID)}
		}
		totalPercent += h.Percent
	}
	if totalPercent > 100+PercentTolerance {
		return &ValidationError{Op: "rebalance", Reason: fmt.Sprintf("allocated percent %.2f exceeds 100", totalPercent)}
	}

	next := p.Clone()
	next.Holdings = make([]model.Holding, 0, len(proposed))
	for _, h := range proposed {
		sec, err := e.resolver.GetSecurity(ctx, h.SecurityID)
		if err != nil {
			return err
		}
		amount, units := allocationFromPercent(next.TotalValue, h.Percent, sec.Price)
		next.Holdings = append(next.Holdings, model.Holding{
			SecurityID:   sec.ID,
			SecurityName: sec.Name,
			Percent:      h.Percent,
			Amount:       amount,
			Units:        units,
		})
	}

	implied := next.TotalValue - next.InvestedAmount()
	if math.Abs(newCash-implied) > cashConsistency {
		return &ValidationError{Op: "rebalance",
			Reason: fmt.Sprintf("stated cash %.2f does not match proposed holdings, which imply %.2f", newCash, implied)}
	}

	return e.commit("rebalance", p, next)
}

// commit recomputes cash from the full holdings list, validates it, and
// copies the accepted state back onto the caller's portfolio. Cash is never
// adjusted incrementally; drift accumulates otherwise.
func (e *Engine) commit(op string, dst, next *model.Portfolio) error {
	next.CashBalance = next.TotalValue - next.InvestedAmount()
	if next.CashBalance < -cashTolerance {
		return &ValidationError{Op: op, Reason: fmt.Sprintf("cash balance would be %.2f", next.CashBalance)}
	}
	if next.CashBalance < 0 {
		next.CashBalance = 0
	}

	*dst = *next
	zap.L().Debug("portfolio: operation committed",
		zap.String("op", op),
		zap.String("portfolio", dst.ID),
		zap.Int("holdings", len(dst.Holdings)),
		zap.Float64("cash_balance", dst.CashBalance),
	)
	return nil
}
