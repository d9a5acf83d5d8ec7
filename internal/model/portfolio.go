package model

import "time"

// Security is a concrete investable instrument from the catalog.
type Security struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	AssetClass AssetClass `json:"asset_class" yaml:"asset_class"`
	Price      float64    `json:"price" yaml:"price"`
}

// Holding is one position in a portfolio. Percent, Amount and Units are kept
// consistent by the portfolio engine; they are never edited independently.
type Holding struct {
	SecurityID   string  `json:"security_id"`
	SecurityName string  `json:"security_name"`
	Percent      float64 `json:"allocated_percent"`
	Amount       float64 `json:"allocated_amount"`
	Units        float64 `json:"units"`
}

// Portfolio holds an ordered set of holdings plus the residual cash balance.
// Invariant: sum(Holdings.Amount) + CashBalance == TotalValue at every
// observable state.
type Portfolio struct {
	ID           string    `json:"id"`
	AssessmentID string    `json:"assessment_id,omitempty"`
	TotalValue   float64   `json:"total_value"`
	CashBalance  float64   `json:"cash_balance"`
	Holdings     []Holding `json:"holdings"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HoldingIndex returns the index of the holding for securityID, or -1.
func (p *Portfolio) HoldingIndex(securityID string) int {
	for i, h := range p.Holdings {
		if h.SecurityID == securityID {
			return i
		}
	}
	return -1
}

// InvestedAmount returns the sum of allocated amounts over all holdings.
func (p *Portfolio) InvestedAmount() float64 {
	sum := 0.0
	for _, h := range p.Holdings {
		sum += h.Amount
	}
	return sum
}

// Clone returns a deep copy. Engine operations mutate a clone and commit only
// on success, so a rejected edit leaves the portfolio untouched.
func (p *Portfolio) Clone() *Portfolio {
	cp := *p
	cp.Holdings = make([]Holding, len(p.Holdings))
	copy(cp.Holdings, p.Holdings)
	return &cp
}
