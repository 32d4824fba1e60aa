package core

import (
	"context"
	"fmt"

	"assetledger/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(LedgerImmutabilityRule())
	engine.Register(ConditionValidityRule())
	engine.Register(AssetCodeUniquenessRule())
	engine.Register(OwnershipConsistencyRule())
	return engine
}

// LedgerImmutabilityRule blocks any change set that updates or deletes a
// ledger row.
func LedgerImmutabilityRule() domain.Rule {
	return ledgerImmutabilityRule{}
}

type ledgerImmutabilityRule struct{}

func (ledgerImmutabilityRule) Name() string { return "ledger_immutability" }

func (r ledgerImmutabilityRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityAssetHistory || change.Action == domain.ActionCreate {
			continue
		}
		var id int64
		if h, ok := change.Before.(domain.AssetHistory); ok {
			id = h.ID
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("asset history %d is append-only and cannot be %sd", id, change.Action),
			Entity:   domain.EntityAssetHistory,
			EntityID: id,
		})
	}
	return res, nil
}

// ConditionValidityRule blocks assets written with an unknown condition.
// An empty condition is allowed.
func ConditionValidityRule() domain.Rule {
	return conditionValidityRule{}
}

type conditionValidityRule struct{}

func (conditionValidityRule) Name() string { return "condition_validity" }

func (r conditionValidityRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityAsset {
			continue
		}
		asset, ok := change.After.(domain.Asset)
		if !ok || asset.Condition == "" || asset.Condition.Valid() {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("asset %d has unknown condition %s", asset.ID, asset.Condition),
			Entity:   domain.EntityAsset,
			EntityID: asset.ID,
		})
	}
	return res, nil
}

// AssetCodeUniquenessRule blocks an asset write whose code is already held by
// another asset. Assets without a code are not checked.
func AssetCodeUniquenessRule() domain.Rule {
	return assetCodeUniquenessRule{}
}

type assetCodeUniquenessRule struct{}

func (assetCodeUniquenessRule) Name() string { return "asset_code_uniqueness" }

func (r assetCodeUniquenessRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if view == nil {
		return res, nil
	}
	var holders map[string][]int64
	for _, change := range changes {
		if change.Entity != domain.EntityAsset || change.Action == domain.ActionDelete {
			continue
		}
		asset, ok := change.After.(domain.Asset)
		if !ok || asset.Code == "" {
			continue
		}
		if holders == nil {
			holders = make(map[string][]int64)
			for _, a := range view.ListAssets() {
				if a.Code != "" {
					holders[a.Code] = append(holders[a.Code], a.ID)
				}
			}
		}
		for _, id := range holders[asset.Code] {
			if id == asset.ID {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("asset code %s is already used by asset %d", asset.Code, id),
				Entity:   domain.EntityAsset,
				EntityID: asset.ID,
			})
			break
		}
	}
	return res, nil
}

// OwnershipConsistencyRule warns when an asset's status and owner disagree.
// Create and Update may set them independently, so this never blocks.
func OwnershipConsistencyRule() domain.Rule {
	return ownershipConsistencyRule{}
}

type ownershipConsistencyRule struct{}

func (ownershipConsistencyRule) Name() string { return "ownership_consistency" }

func (r ownershipConsistencyRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityAsset {
			continue
		}
		asset, ok := change.After.(domain.Asset)
		if !ok {
			continue
		}
		var msg string
		switch {
		case asset.Status == domain.AssetStatusInUse && asset.OwnerID == nil:
			msg = fmt.Sprintf("asset %d is %s without an owner", asset.ID, asset.Status)
		case asset.Status == domain.AssetStatusInStock && asset.OwnerID != nil:
			msg = fmt.Sprintf("asset %d is %s but held by user %d", asset.ID, asset.Status, *asset.OwnerID)
		default:
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  msg,
			Entity:   domain.EntityAsset,
			EntityID: asset.ID,
		})
	}
	return res, nil
}
