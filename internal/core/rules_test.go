package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetledger/pkg/domain"
)

func TestLedgerImmutabilityBlocksUpdateAndDelete(t *testing.T) {
	rule := LedgerImmutabilityRule()
	row := AssetHistory{ID: 4, AssetID: 1, Action: domain.HistoryAssigned}
	for _, action := range []Action{domain.ActionUpdate, domain.ActionDelete} {
		res, err := rule.Evaluate(context.Background(), nil, []Change{{Entity: domain.EntityAssetHistory, Action: action, Before: row}})
		require.NoError(t, err)
		require.True(t, res.HasBlocking(), "action %s", action)
		assert.Equal(t, int64(4), res.Violations[0].EntityID)
		assert.Equal(t, "ledger_immutability", res.Violations[0].Rule)
	}
	res, err := rule.Evaluate(context.Background(), nil, []Change{{Entity: domain.EntityAssetHistory, Action: domain.ActionCreate, After: row}})
	require.NoError(t, err)
	assert.Empty(t, res.Violations)
}

func TestConditionValidityBlocksUnknownCondition(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.CreateAsset(context.Background(), AssetRequest{Name: "Odd", TypeID: f.assetType.ID, Condition: "SHINY"})
	var violation RuleViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, "condition_validity", violation.Result.Violations[0].Rule)

	_, _, err = f.svc.EvaluateAsset(context.Background(), f.asset.ID, EvaluateRequest{PerformedBy: f.staff.ID, Condition: "MELTED"})
	require.True(t, errors.As(err, &violation))
	assert.Empty(t, f.historyFor(t, f.asset.ID))
}

func TestAssetCodeUniquenessOnCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.svc.CreateAsset(ctx, AssetRequest{Code: f.asset.Code, Name: "Second ThinkPad", TypeID: f.assetType.ID, Status: domain.AssetStatusInStock})
	var violation RuleViolationError
	require.True(t, errors.As(err, &violation), "got %v", err)
	assert.Equal(t, "asset_code_uniqueness", violation.Result.Violations[0].Rule)
	assert.Contains(t, violation.Result.Violations[0].Message, f.asset.Code)

	assets, err := f.svc.ListAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
	history, notifications := f.counts(t)
	assert.Zero(t, history)
	assert.Zero(t, notifications)

	_, _, err = f.svc.CreateAsset(ctx, AssetRequest{Code: "LT-002", Name: "Second ThinkPad", TypeID: f.assetType.ID, Status: domain.AssetStatusInStock})
	require.NoError(t, err)
}

func TestAssetCodeUniquenessOnUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, _, err := f.svc.CreateAsset(ctx, AssetRequest{Code: "LT-002", Name: "Latitude", TypeID: f.assetType.ID, Status: domain.AssetStatusInStock})
	require.NoError(t, err)

	_, _, err = f.svc.UpdateAsset(ctx, other.ID, AssetRequest{Code: f.asset.Code, Name: "Latitude", TypeID: f.assetType.ID, Status: domain.AssetStatusInStock})
	var violation RuleViolationError
	require.True(t, errors.As(err, &violation), "got %v", err)
	assert.Equal(t, other.ID, violation.Result.Violations[0].EntityID)

	stored, err := f.svc.GetAsset(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "LT-002", stored.Code)

	// keeping its own code is not a clash
	_, _, err = f.svc.UpdateAsset(ctx, f.asset.ID, AssetRequest{Code: f.asset.Code, Name: "ThinkPad T14", TypeID: f.assetType.ID, Status: domain.AssetStatusInStock})
	require.NoError(t, err)
}

func TestAssetCodeUniquenessIgnoresDeletesAndBlankCodes(t *testing.T) {
	rule := AssetCodeUniquenessRule()
	view := codeView{assets: []Asset{{Base: Base{ID: 1}, Code: "LT-001"}, {Base: Base{ID: 2}}}}
	res, err := rule.Evaluate(context.Background(), view, []Change{
		{Entity: domain.EntityAsset, Action: domain.ActionCreate, After: Asset{Base: Base{ID: 3}}},
		{Entity: domain.EntityAsset, Action: domain.ActionDelete, Before: Asset{Base: Base{ID: 1}, Code: "LT-001"}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Violations)
}

type codeView struct {
	domain.TransactionView
	assets []Asset
}

func (v codeView) ListAssets() []Asset { return v.assets }

func TestOwnershipConsistencyWarnsOnly(t *testing.T) {
	f := newFixture(t)
	_, res, err := f.svc.CreateAsset(context.Background(), AssetRequest{Name: "Drift", TypeID: f.assetType.ID, Status: domain.AssetStatusInUse})
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, domain.SeverityWarn, res.Violations[0].Severity)
	assert.True(t, f.log.has("w:", "rule violation"))

	_, res, err = f.svc.AssignAsset(context.Background(), f.asset.ID, f.staff.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Violations)
}

func TestDefaultRulesEngineRegistersBuiltIns(t *testing.T) {
	names := map[string]bool{}
	for _, r := range NewDefaultRulesEngine().Rules() {
		names[r.Name()] = true
	}
	for _, want := range []string{"ledger_immutability", "condition_validity", "asset_code_uniqueness", "ownership_consistency"} {
		assert.True(t, names[want], want)
	}
}
