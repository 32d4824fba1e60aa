package core

import (
	"context"

	"assetledger/pkg/domain"
)

// NotificationRequest carries the fields of a manually written notification.
type NotificationRequest struct {
	UserID  int64
	AssetID *int64
	Title   string
	Message string
	Type    NotificationType
	Read    bool
	LinkURL *string
}

func (req NotificationRequest) check(tx Transaction) error {
	if _, ok := tx.FindUser(req.UserID); !ok {
		return domain.NotFoundError{Entity: domain.EntityUser, ID: req.UserID}
	}
	if req.AssetID != nil {
		if _, ok := tx.FindAsset(*req.AssetID); !ok {
			return domain.NotFoundError{Entity: domain.EntityAsset, ID: *req.AssetID}
		}
	}
	return nil
}

// CreateNotification stores a notification for an existing user.
func (s *Service) CreateNotification(ctx context.Context, req NotificationRequest) (Notification, Result, error) {
	var created Notification
	res, err := s.run(ctx, "create_notification", func(tx Transaction) error {
		if err := req.check(tx); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateNotification(Notification{
			UserID:  req.UserID,
			AssetID: req.AssetID,
			Title:   req.Title,
			Message: req.Message,
			Type:    req.Type,
			Read:    req.Read,
			LinkURL: req.LinkURL,
		})
		return err
	})
	if err != nil {
		return Notification{}, res, err
	}
	s.publish(ctx, "create_notification", []Notification{created})
	return created, res, nil
}

// UpdateNotification overwrites a notification.
func (s *Service) UpdateNotification(ctx context.Context, id int64, req NotificationRequest) (Notification, Result, error) {
	var updated Notification
	res, err := s.run(ctx, "update_notification", func(tx Transaction) error {
		if _, ok := tx.FindNotification(id); !ok {
			return domain.NotFoundError{Entity: domain.EntityNotification, ID: id}
		}
		if err := req.check(tx); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateNotification(id, func(n *Notification) error {
			n.UserID = req.UserID
			n.AssetID = req.AssetID
			n.Title = req.Title
			n.Message = req.Message
			n.Type = req.Type
			n.Read = req.Read
			n.LinkURL = req.LinkURL
			return nil
		})
		return err
	})
	return updated, res, err
}

// MarkNotificationRead sets the read flag.
func (s *Service) MarkNotificationRead(ctx context.Context, id int64, read bool) (Notification, Result, error) {
	var updated Notification
	res, err := s.run(ctx, "mark_notification_read", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateNotification(id, func(n *Notification) error {
			n.Read = read
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteNotification removes a notification.
func (s *Service) DeleteNotification(ctx context.Context, id int64) (Result, error) {
	return s.run(ctx, "delete_notification", func(tx Transaction) error {
		return tx.DeleteNotification(id)
	})
}

// GetNotification returns one notification.
func (s *Service) GetNotification(ctx context.Context, id int64) (Notification, error) {
	var out Notification
	err := s.view(ctx, "get_notification", func(v TransactionView) error {
		n, ok := v.FindNotification(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityNotification, ID: id}
		}
		out = n
		return nil
	})
	return out, err
}

// ListNotifications returns every notification ordered by id.
func (s *Service) ListNotifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	err := s.view(ctx, "list_notifications", func(v TransactionView) error {
		out = v.ListNotifications()
		return nil
	})
	return out, err
}

// ListNotificationsForUser returns one user's notifications ordered by id.
func (s *Service) ListNotificationsForUser(ctx context.Context, userID int64) ([]Notification, error) {
	var out []Notification
	err := s.view(ctx, "list_user_notifications", func(v TransactionView) error {
		if _, ok := v.FindUser(userID); !ok {
			return domain.NotFoundError{Entity: domain.EntityUser, ID: userID}
		}
		out = []Notification{}
		for _, n := range v.ListNotifications() {
			if n.UserID == userID {
				out = append(out, n)
			}
		}
		return nil
	})
	return out, err
}
