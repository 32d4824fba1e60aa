package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"assetledger/pkg/domain"
)

// AssetRequest carries the mutable asset fields for Create and Update.
// OwnerID nil means the asset has no holder.
type AssetRequest struct {
	Code         string
	Name         string
	TypeID       int64
	OwnerID      *int64
	PurchaseDate *time.Time
	Value        decimal.Decimal
	Status       AssetStatus
	Condition    AssetCondition
	Description  string
	CreatedBy    *int64
}

// EvaluateRequest records a condition assessment performed by a user.
type EvaluateRequest struct {
	PerformedBy int64
	Condition   AssetCondition
	Notes       *string
}

// AssetView is the read projection of an asset with its owner's department
// resolved.
type AssetView struct {
	ID                int64           `json:"id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	TypeID            int64           `json:"type_id"`
	OwnerID           *int64          `json:"owner_id"`
	OwnerDepartmentID *int64          `json:"owner_department_id"`
	PurchaseDate      *time.Time      `json:"purchase_date"`
	Value             decimal.Decimal `json:"value"`
	Status            AssetStatus     `json:"status"`
	Condition         AssetCondition  `json:"condition"`
	Description       string          `json:"description"`
	CreatedBy         *int64          `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// txEffects collects what one transaction attempt produced so it can be
// published and logged after commit. It is reset on every attempt.
type txEffects struct {
	notifications []Notification
	skipped       []SkippedNotification
}

func (e *txEffects) reset() { *e = txEffects{} }

func (e *txEffects) insert(tx Transaction, plan FanoutPlan) error {
	for _, n := range plan.Notifications {
		created, err := tx.CreateNotification(n)
		if err != nil {
			return fmt.Errorf("insert notification for user %d: %w", n.UserID, err)
		}
		e.notifications = append(e.notifications, created)
	}
	e.skipped = append(e.skipped, plan.Skipped...)
	return nil
}

func (s *Service) afterCommit(ctx context.Context, op string, assetID int64, fx txEffects) {
	for _, sk := range fx.skipped {
		s.logger.Warn("secondary notification skipped", "operation", op, "asset_id", assetID,
			"department_id", sk.DepartmentID, "manager_id", sk.ManagerID, "reason", sk.Reason)
	}
	s.publish(ctx, op, fx.notifications)
}

// resolveOwner returns nil when no owner is requested and NotFound when the
// requested owner does not exist.
func resolveOwner(tx Transaction, ownerID *int64) (*User, error) {
	if ownerID == nil {
		return nil, nil
	}
	owner, ok := tx.FindUser(*ownerID)
	if !ok {
		return nil, domain.NotFoundError{Entity: domain.EntityUser, ID: *ownerID}
	}
	return &owner, nil
}

func actorOf(u *User) *int64 {
	if u == nil {
		return nil
	}
	return domain.Ptr(u.ID)
}

func applyRequest(a *Asset, req AssetRequest, owner *User) {
	a.Code = req.Code
	a.Name = req.Name
	a.TypeID = req.TypeID
	a.OwnerID = actorOf(owner)
	a.PurchaseDate = req.PurchaseDate
	a.Value = req.Value
	a.Status = req.Status
	a.Condition = req.Condition
	a.Description = req.Description
}

// CreateAsset persists a new asset and records a CREATED ledger row. The
// ledger actor is the resolved owner.
func (s *Service) CreateAsset(ctx context.Context, req AssetRequest) (Asset, Result, error) {
	var created Asset
	res, err := s.run(ctx, "create_asset", func(tx Transaction) error {
		if _, ok := tx.FindAssetType(req.TypeID); !ok {
			return domain.NotFoundError{Entity: domain.EntityAssetType, ID: req.TypeID}
		}
		owner, err := resolveOwner(tx, req.OwnerID)
		if err != nil {
			return err
		}
		var asset Asset
		applyRequest(&asset, req, owner)
		asset.CreatedBy = req.CreatedBy
		created, err = tx.CreateAsset(asset)
		if err != nil {
			return err
		}
		_, err = s.audit.Append(tx, AssetHistory{
			AssetID:        created.ID,
			Action:         domain.HistoryCreated,
			PerformedBy:    actorOf(owner),
			Details:        fmt.Sprintf("Created asset %d (%s)", created.ID, created.Name),
			PreviousStatus: domain.Ptr(created.Status),
			NewStatus:      domain.Ptr(created.Status),
		})
		return err
	})
	if err != nil {
		return Asset{}, res, err
	}
	return created, res, nil
}

// UpdateAsset overwrites every mutable field. The UPDATED ledger row carries
// the post-update status as both previous and new status.
func (s *Service) UpdateAsset(ctx context.Context, id int64, req AssetRequest) (Asset, Result, error) {
	var updated Asset
	res, err := s.run(ctx, "update_asset", func(tx Transaction) error {
		if _, ok := tx.FindAsset(id); !ok {
			return domain.NotFoundError{Entity: domain.EntityAsset, ID: id}
		}
		if _, ok := tx.FindAssetType(req.TypeID); !ok {
			return domain.NotFoundError{Entity: domain.EntityAssetType, ID: req.TypeID}
		}
		owner, err := resolveOwner(tx, req.OwnerID)
		if err != nil {
			return err
		}
		updated, err = tx.UpdateAsset(id, func(a *Asset) error {
			applyRequest(a, req, owner)
			return nil
		})
		if err != nil {
			return err
		}
		_, err = s.audit.Append(tx, AssetHistory{
			AssetID:        id,
			Action:         domain.HistoryUpdated,
			PerformedBy:    actorOf(owner),
			Details:        fmt.Sprintf("Updated asset %d (%s)", updated.ID, updated.Name),
			PreviousStatus: domain.Ptr(updated.Status),
			NewStatus:      domain.Ptr(updated.Status),
		})
		return err
	})
	if err != nil {
		return Asset{}, res, err
	}
	return updated, res, nil
}

// DeleteAsset removes an asset. Its ledger rows, including the DELETED row
// written here, outlive it.
func (s *Service) DeleteAsset(ctx context.Context, id int64) (Result, error) {
	return s.run(ctx, "delete_asset", func(tx Transaction) error {
		asset, ok := tx.FindAsset(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityAsset, ID: id}
		}
		if err := tx.DeleteAsset(id); err != nil {
			return err
		}
		_, err := s.audit.Append(tx, AssetHistory{
			AssetID:        id,
			Action:         domain.HistoryDeleted,
			Details:        fmt.Sprintf("Deleted asset %d (%s)", asset.ID, asset.Name),
			PreviousStatus: domain.Ptr(asset.Status),
		})
		return err
	})
}

// AssignAsset hands an asset to a user, sets it IN_USE and notifies the user
// and, when resolvable, the user's department manager.
func (s *Service) AssignAsset(ctx context.Context, assetID, userID int64) (Asset, Result, error) {
	var (
		updated Asset
		fx      txEffects
	)
	res, err := s.run(ctx, "assign_asset", func(tx Transaction) error {
		fx.reset()
		asset, ok := tx.FindAsset(assetID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityAsset, ID: assetID}
		}
		user, ok := tx.FindUser(userID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityUser, ID: userID}
		}
		previous := asset.Status
		var err error
		updated, err = tx.UpdateAsset(assetID, func(a *Asset) error {
			a.OwnerID = domain.Ptr(user.ID)
			a.Status = domain.AssetStatusInUse
			return nil
		})
		if err != nil {
			return err
		}
		if _, err := s.audit.Append(tx, AssetHistory{
			AssetID:        assetID,
			Action:         domain.HistoryAssigned,
			PerformedBy:    domain.Ptr(user.ID),
			Details:        fmt.Sprintf("Assigned to user %d (%s)", user.ID, user.Name),
			PreviousStatus: domain.Ptr(previous),
			NewStatus:      domain.Ptr(updated.Status),
		}); err != nil {
			return err
		}
		assetType, _ := tx.FindAssetType(updated.TypeID)
		plan, err := PlanNotifications(domain.HistoryAssigned, FanoutSubject{Asset: updated, AssetType: assetType, User: user}, tx)
		if err != nil {
			return err
		}
		return fx.insert(tx, plan)
	})
	if err != nil {
		return Asset{}, res, err
	}
	s.afterCommit(ctx, "assign_asset", assetID, fx)
	return updated, res, nil
}

// RevokeAsset reclaims an asset from its holder and sets it IN_STOCK. An
// unassigned asset yields InvalidState and nothing is written.
func (s *Service) RevokeAsset(ctx context.Context, assetID int64) (Asset, Result, error) {
	var (
		updated Asset
		fx      txEffects
	)
	res, err := s.run(ctx, "revoke_asset", func(tx Transaction) error {
		fx.reset()
		asset, ok := tx.FindAsset(assetID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityAsset, ID: assetID}
		}
		if asset.OwnerID == nil {
			return domain.InvalidStateError{Entity: domain.EntityAsset, ID: assetID, Reason: "asset is not currently assigned"}
		}
		holder, ok := tx.FindUser(*asset.OwnerID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityUser, ID: *asset.OwnerID}
		}
		previous := asset.Status
		var err error
		updated, err = tx.UpdateAsset(assetID, func(a *Asset) error {
			a.OwnerID = nil
			a.Status = domain.AssetStatusInStock
			return nil
		})
		if err != nil {
			return err
		}
		if _, err := s.audit.Append(tx, AssetHistory{
			AssetID:        assetID,
			Action:         domain.HistoryReclaimed,
			PerformedBy:    domain.Ptr(holder.ID),
			Details:        fmt.Sprintf("Assignment reclaimed from user %d (%s)", holder.ID, holder.Name),
			PreviousStatus: domain.Ptr(previous),
			NewStatus:      domain.Ptr(updated.Status),
		}); err != nil {
			return err
		}
		assetType, _ := tx.FindAssetType(updated.TypeID)
		plan, err := PlanNotifications(domain.HistoryReclaimed, FanoutSubject{Asset: updated, AssetType: assetType, User: holder}, tx)
		if err != nil {
			return err
		}
		return fx.insert(tx, plan)
	})
	if err != nil {
		return Asset{}, res, err
	}
	s.afterCommit(ctx, "revoke_asset", assetID, fx)
	return updated, res, nil
}

// EvaluateAsset records a new condition. Nothing but Condition changes.
func (s *Service) EvaluateAsset(ctx context.Context, assetID int64, req EvaluateRequest) (Asset, Result, error) {
	var updated Asset
	res, err := s.run(ctx, "evaluate_asset", func(tx Transaction) error {
		if _, ok := tx.FindAsset(assetID); !ok {
			return domain.NotFoundError{Entity: domain.EntityAsset, ID: assetID}
		}
		actor, ok := tx.FindUser(req.PerformedBy)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityUser, ID: req.PerformedBy}
		}
		var err error
		updated, err = tx.UpdateAsset(assetID, func(a *Asset) error {
			a.Condition = req.Condition
			return nil
		})
		if err != nil {
			return err
		}
		_, err = s.audit.Append(tx, AssetHistory{
			AssetID:        assetID,
			Action:         domain.HistoryEvaluated,
			PerformedBy:    domain.Ptr(actor.ID),
			Details:        fmt.Sprintf("Evaluated asset id %d (%s)", updated.ID, updated.Name),
			Notes:          req.Notes,
			PreviousStatus: domain.Ptr(updated.Status),
			NewStatus:      domain.Ptr(updated.Status),
		})
		return err
	})
	if err != nil {
		return Asset{}, res, err
	}
	return updated, res, nil
}

func projectAsset(view TransactionView, a Asset) AssetView {
	out := AssetView{
		ID:           a.ID,
		Code:         a.Code,
		Name:         a.Name,
		TypeID:       a.TypeID,
		OwnerID:      a.OwnerID,
		PurchaseDate: a.PurchaseDate,
		Value:        a.Value,
		Status:       a.Status,
		Condition:    a.Condition,
		Description:  a.Description,
		CreatedBy:    a.CreatedBy,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.OwnerID != nil {
		if owner, ok := view.FindUser(*a.OwnerID); ok && owner.DepartmentID != 0 {
			out.OwnerDepartmentID = domain.Ptr(owner.DepartmentID)
		}
	}
	return out
}

// GetAsset returns the projection of one asset. The type id is the asset's
// stored TypeID.
func (s *Service) GetAsset(ctx context.Context, id int64) (AssetView, error) {
	var out AssetView
	err := s.view(ctx, "get_asset", func(v TransactionView) error {
		a, ok := v.FindAsset(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityAsset, ID: id}
		}
		out = projectAsset(v, a)
		return nil
	})
	return out, err
}

// ListAssets returns every asset projection ordered by id.
func (s *Service) ListAssets(ctx context.Context) ([]AssetView, error) {
	var out []AssetView
	err := s.view(ctx, "list_assets", func(v TransactionView) error {
		assets := v.ListAssets()
		out = make([]AssetView, 0, len(assets))
		for _, a := range assets {
			out = append(out, projectAsset(v, a))
		}
		return nil
	})
	return out, err
}

// ListHistory returns the whole ledger in PerformedAt order.
func (s *Service) ListHistory(ctx context.Context) ([]AssetHistory, error) {
	var out []AssetHistory
	err := s.view(ctx, "list_history", func(v TransactionView) error {
		out = s.audit.ListAll(v)
		return nil
	})
	return out, err
}
