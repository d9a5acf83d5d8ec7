// Package catalog provides security price and listing lookups backed by the
// store. Lookup failures here are data-integrity errors: the operation that
// needed the security cannot proceed and nothing partial is committed.
package catalog

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/store"
)

// SecurityNotFoundError reports an unresolvable security reference.
type SecurityNotFoundError struct {
	SecurityID string
}

func (e *SecurityNotFoundError) Error() string {
	return fmt.Sprintf("catalog: security %s not found", e.SecurityID)
}

// NoSecurityForAssetClassError reports an asset class with no investable
// instrument in the catalog.
type NoSecurityForAssetClassError struct {
	AssetClass model.AssetClass
}

func (e *NoSecurityForAssetClassError) Error() string {
	return fmt.Sprintf("catalog: no security available for asset class %s", e.AssetClass)
}

// Catalog resolves securities by ID and picks instruments per asset class.
type Catalog struct {
	store store.Store
}

// New creates a Catalog over the given store.
func New(s store.Store) *Catalog {
	return &Catalog{store: s}
}

// GetSecurity resolves a security reference. Missing securities return a
// SecurityNotFoundError.
func (c *Catalog) GetSecurity(ctx context.Context, id string) (*model.Security, error) {
	sec, err := c.store.GetSecurity(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: get security")
	}
	if sec == nil {
		return nil, &SecurityNotFoundError{SecurityID: id}
	}
	return sec, nil
}

// ListByAssetClass returns all securities in the given asset class.
func (c *Catalog) ListByAssetClass(ctx context.Context, class model.AssetClass) ([]model.Security, error) {
	secs, err := c.store.ListSecuritiesByAssetClass(ctx, class)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: list securities")
	}
	return secs, nil
}

// PickInstruments chooses one concrete security per target asset class. The
// first listed security per class is used; an empty class fails with
// NoSecurityForAssetClassError.
func (c *Catalog) PickInstruments(ctx context.Context, targets []model.TargetAllocation) (map[model.AssetClass]model.Security, error) {
	picked := make(map[model.AssetClass]model.Security, len(targets))
	for _, t := range targets {
		secs, err := c.ListByAssetClass(ctx, t.AssetClass)
		if err != nil {
			return nil, err
		}
		if len(secs) == 0 {
			return nil, &NoSecurityForAssetClassError{AssetClass: t.AssetClass}
		}
		picked[t.AssetClass] = secs[0]
	}
	return picked, nil
}
