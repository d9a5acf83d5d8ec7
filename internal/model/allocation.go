package model

// AssetClass identifies a top-level allocation bucket.
type AssetClass string

const (
	AssetEquity       AssetClass = "equity"
	AssetDebt         AssetClass = "debt"
	AssetAlternatives AssetClass = "alternatives"
)

// Valid reports whether c is one of the three known asset classes.
func (c AssetClass) Valid() bool {
	switch c {
	case AssetEquity, AssetDebt, AssetAlternatives:
		return true
	}
	return false
}

// TargetAllocation is a single asset-class target with its drift band.
// LowerBand and UpperBand bracket TargetPercent, both within [0,100].
type TargetAllocation struct {
	AssetClass    AssetClass `json:"asset_class"`
	TargetPercent float64    `json:"target_percent"`
	LowerBand     float64    `json:"lower_band"`
	UpperBand     float64    `json:"upper_band"`
}

// AllocationModel is the accepted target-allocation set for a risk category.
// Targets always sum to 100 within tolerance; sets that fail validation are
// never persisted.
type AllocationModel struct {
	Category         RiskCategory       `json:"risk_category"`
	Targets          []TargetAllocation `json:"targets"`
	RebalanceCadence string             `json:"rebalance_cadence"`
	Narrative        string             `json:"narrative,omitempty"`
	Perturbed        bool               `json:"perturbed"`
}

// TargetSum returns the sum of target percentages.
func (m AllocationModel) TargetSum() float64 {
	sum := 0.0
	for _, t := range m.Targets {
		sum += t.TargetPercent
	}
	return sum
}
