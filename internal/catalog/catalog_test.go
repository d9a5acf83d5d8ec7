package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/store"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	ctx := context.Background()
	securities := []model.Security{
		{ID: "VTI", Name: "Total Stock Market ETF", AssetClass: model.AssetEquity, Price: 200},
		{ID: "VXUS", Name: "Total International Stock ETF", AssetClass: model.AssetEquity, Price: 60},
		{ID: "BND", Name: "Total Bond Market ETF", AssetClass: model.AssetDebt, Price: 80},
	}
	for _, s := range securities {
		require.NoError(t, st.UpsertSecurity(ctx, s))
	}
	return New(st)
}

func TestGetSecurity(t *testing.T) {
	c := newTestCatalog(t)

	sec, err := c.GetSecurity(context.Background(), "VTI")
	require.NoError(t, err)
	assert.Equal(t, "Total Stock Market ETF", sec.Name)
	assert.Equal(t, model.AssetEquity, sec.AssetClass)
	assert.InDelta(t, 200, sec.Price, 1e-9)
}

func TestGetSecurityNotFound(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.GetSecurity(context.Background(), "MISSING")
	require.Error(t, err)

	var nf *SecurityNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "MISSING", nf.SecurityID)
}

func TestListByAssetClass(t *testing.T) {
	c := newTestCatalog(t)

	secs, err := c.ListByAssetClass(context.Background(), model.AssetEquity)
	require.NoError(t, err)
	assert.Len(t, secs, 2)

	secs, err = c.ListByAssetClass(context.Background(), model.AssetAlternatives)
	require.NoError(t, err)
	assert.Empty(t, secs)
}

func TestPickInstruments(t *testing.T) {
	c := newTestCatalog(t)

	picked, err := c.PickInstruments(context.Background(), []model.TargetAllocation{
		{AssetClass: model.AssetEquity, TargetPercent: 60},
		{AssetClass: model.AssetDebt, TargetPercent: 40},
	})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "BND", picked[model.AssetDebt].ID)
	assert.Equal(t, model.AssetEquity, picked[model.AssetEquity].AssetClass)
}

func TestPickInstrumentsMissingClass(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.PickInstruments(context.Background(), []model.TargetAllocation{
		{AssetClass: model.AssetEquity, TargetPercent: 80},
		{AssetClass: model.AssetAlternatives, TargetPercent: 20},
	})
	require.Error(t, err)

	var missing *NoSecurityForAssetClassError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, model.AssetAlternatives, missing.AssetClass)
}
