package core

import (
	"context"
	"time"

	"assetledger/pkg/domain"
)

// MarkerRequest carries the fields of a reminder marker.
type MarkerRequest struct {
	AssetID           int64
	ReminderMilestone time.Time
}

func (req MarkerRequest) check(tx Transaction) error {
	if _, ok := tx.FindAsset(req.AssetID); !ok {
		return domain.NotFoundError{Entity: domain.EntityAsset, ID: req.AssetID}
	}
	return nil
}

// CreateNotificationMarker records a reminder milestone on an existing asset.
func (s *Service) CreateNotificationMarker(ctx context.Context, req MarkerRequest) (NotificationMarker, Result, error) {
	var created NotificationMarker
	res, err := s.run(ctx, "create_notification_marker", func(tx Transaction) error {
		if err := req.check(tx); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateNotificationMarker(NotificationMarker{
			AssetID:           req.AssetID,
			ReminderMilestone: req.ReminderMilestone.UTC(),
		})
		return err
	})
	return created, res, err
}

// UpdateNotificationMarker moves a marker to another asset or milestone. The
// marker is resolved before the asset.
func (s *Service) UpdateNotificationMarker(ctx context.Context, id int64, req MarkerRequest) (NotificationMarker, Result, error) {
	var updated NotificationMarker
	res, err := s.run(ctx, "update_notification_marker", func(tx Transaction) error {
		if _, ok := tx.FindNotificationMarker(id); !ok {
			return domain.NotFoundError{Entity: domain.EntityNotificationMarker, ID: id}
		}
		if err := req.check(tx); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateNotificationMarker(id, func(m *NotificationMarker) error {
			m.AssetID = req.AssetID
			m.ReminderMilestone = req.ReminderMilestone.UTC()
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteNotificationMarker removes a marker.
func (s *Service) DeleteNotificationMarker(ctx context.Context, id int64) (Result, error) {
	return s.run(ctx, "delete_notification_marker", func(tx Transaction) error {
		return tx.DeleteNotificationMarker(id)
	})
}

// GetNotificationMarker returns one marker.
func (s *Service) GetNotificationMarker(ctx context.Context, id int64) (NotificationMarker, error) {
	var out NotificationMarker
	err := s.view(ctx, "get_notification_marker", func(v TransactionView) error {
		m, ok := v.FindNotificationMarker(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityNotificationMarker, ID: id}
		}
		out = m
		return nil
	})
	return out, err
}

// ListNotificationMarkers returns every marker ordered by id.
func (s *Service) ListNotificationMarkers(ctx context.Context) ([]NotificationMarker, error) {
	var out []NotificationMarker
	err := s.view(ctx, "list_notification_markers", func(v TransactionView) error {
		out = v.ListNotificationMarkers()
		return nil
	})
	return out, err
}
