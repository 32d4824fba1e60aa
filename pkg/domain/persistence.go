package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Every Find records the version it
// observed; commit fails with ErrTransientConflict when any of them moved.
type Transaction interface {
	Snapshot() TransactionView

	FindAsset(id int64) (Asset, bool)
	CreateAsset(Asset) (Asset, error)
	UpdateAsset(id int64, mutator func(*Asset) error) (Asset, error)
	DeleteAsset(id int64) error

	FindAssetType(id int64) (AssetType, bool)
	CreateAssetType(AssetType) (AssetType, error)
	UpdateAssetType(id int64, mutator func(*AssetType) error) (AssetType, error)
	DeleteAssetType(id int64) error

	FindUser(id int64) (User, bool)
	CreateUser(User) (User, error)
	UpdateUser(id int64, mutator func(*User) error) (User, error)
	DeleteUser(id int64) error

	FindDepartment(id int64) (Department, bool)
	CreateDepartment(Department) (Department, error)
	UpdateDepartment(id int64, mutator func(*Department) error) (Department, error)
	DeleteDepartment(id int64) error

	FindNotification(id int64) (Notification, bool)
	CreateNotification(Notification) (Notification, error)
	UpdateNotification(id int64, mutator func(*Notification) error) (Notification, error)
	DeleteNotification(id int64) error

	FindNotificationMarker(id int64) (NotificationMarker, bool)
	CreateNotificationMarker(NotificationMarker) (NotificationMarker, error)
	UpdateNotificationMarker(id int64, mutator func(*NotificationMarker) error) (NotificationMarker, error)
	DeleteNotificationMarker(id int64) error

	// AppendHistory is the only write path for the ledger.
	AppendHistory(AssetHistory) (AssetHistory, error)

	AppendChatMessage(ChatMessage) (ChatMessage, error)
}

// TransactionView provides read-only access to snapshot data for rules and queries.
type TransactionView interface {
	ListAssets() []Asset
	ListAssetTypes() []AssetType
	ListUsers() []User
	ListDepartments() []Department
	ListNotifications() []Notification
	ListNotificationMarkers() []NotificationMarker
	ListHistory() []AssetHistory
	ListChatMessages(userID int64) []ChatMessage
	FindAsset(id int64) (Asset, bool)
	FindAssetType(id int64) (AssetType, bool)
	FindUser(id int64) (User, bool)
	FindDepartment(id int64) (Department, bool)
	FindNotification(id int64) (Notification, bool)
	FindNotificationMarker(id int64) (NotificationMarker, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
