// Package domain defines the persistent entities, value types, errors and
// rule evaluation primitives used by assetledger.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityAsset identifies a tracked physical asset.
	EntityAsset EntityType = "asset"
	// EntityAssetType identifies an asset category record.
	EntityAssetType EntityType = "asset_type"
	// EntityAssetHistory identifies an audit ledger row.
	EntityAssetHistory EntityType = "asset_history"
	// EntityNotification identifies a user notification.
	EntityNotification EntityType = "notification"
	// EntityDepartment identifies a department record.
	EntityDepartment EntityType = "department"
	// EntityUser identifies a staff member.
	EntityUser EntityType = "user"
	// EntityChatMessage identifies one side of an assistant exchange.
	EntityChatMessage EntityType = "chat_message"
	// EntityNotificationMarker identifies a reminder milestone set on an asset.
	EntityNotificationMarker EntityType = "notification_marker"
)

// AssetStatus is the operational state of an asset. The set is open:
// installations may persist statuses beyond the canonical ones below.
type AssetStatus string

// Canonical asset statuses. Assign and Revoke only ever write InStock and InUse.
const (
	AssetStatusInStock     AssetStatus = "IN_STOCK"
	AssetStatusInUse       AssetStatus = "IN_USE"
	AssetStatusMaintenance AssetStatus = "MAINTENANCE"
	AssetStatusDisposed    AssetStatus = "DISPOSED"
	AssetStatusLost        AssetStatus = "LOST"
)

// AssetCondition captures the physical condition recorded by evaluations.
type AssetCondition string

// Asset conditions recognised by the condition rule.
const (
	ConditionNew    AssetCondition = "NEW"
	ConditionGood   AssetCondition = "GOOD"
	ConditionFair   AssetCondition = "FAIR"
	ConditionPoor   AssetCondition = "POOR"
	ConditionBroken AssetCondition = "BROKEN"
)

// Valid reports whether c is one of the known conditions.
func (c AssetCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionFair, ConditionPoor, ConditionBroken:
		return true
	}
	return false
}

// HistoryAction enumerates the lifecycle operations recorded in the ledger.
type HistoryAction string

// Ledger actions, one per lifecycle operation.
const (
	HistoryCreated   HistoryAction = "CREATED"
	HistoryUpdated   HistoryAction = "UPDATED"
	HistoryDeleted   HistoryAction = "DELETED"
	HistoryAssigned  HistoryAction = "ASSIGNED"
	HistoryReclaimed HistoryAction = "RECLAIMED"
	HistoryEvaluated HistoryAction = "EVALUATED"
)

// NotificationType tags the severity or origin of a notification.
type NotificationType string

// Notification types emitted by the service.
const (
	NotificationInfo        NotificationType = "INFO"
	NotificationWarning     NotificationType = "WARNING"
	NotificationUserCreated NotificationType = "USER_CREATED"
	NotificationUserUpdated NotificationType = "USER_UPDATED"
)

// Role is a user's role within the organization.
type Role string

// Supported roles.
const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
)

// MessageDirection distinguishes user questions from assistant answers.
type MessageDirection string

// Chat message directions.
const (
	DirectionQuestion MessageDirection = "QUESTION"
	DirectionAnswer   MessageDirection = "ANSWER"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records. Version is bumped by the
// store on every committed write and acts as the optimistic concurrency stamp.
type Base struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// Asset is a tracked physical item. OwnerID is nil when nobody holds it.
type Asset struct {
	Base
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	TypeID       int64           `json:"type_id"`
	OwnerID      *int64          `json:"owner_id"`
	PurchaseDate *time.Time      `json:"purchase_date"`
	Value        decimal.Decimal `json:"value"`
	Status       AssetStatus     `json:"status"`
	Condition    AssetCondition  `json:"condition"`
	Description  string          `json:"description"`
	CreatedBy    *int64          `json:"created_by"`
}

// AssetType categorises assets.
type AssetType struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AssetHistory is one immutable ledger row describing a lifecycle operation.
type AssetHistory struct {
	ID             int64         `json:"id"`
	AssetID        int64         `json:"asset_id"`
	Action         HistoryAction `json:"action"`
	PerformedBy    *int64        `json:"performed_by"`
	PerformedAt    time.Time     `json:"performed_at"`
	Details        string        `json:"details"`
	Notes          *string       `json:"notes"`
	PreviousStatus *AssetStatus  `json:"previous_status"`
	NewStatus      *AssetStatus  `json:"new_status"`
}

// Notification is a message delivered to a single user.
type Notification struct {
	Base
	UserID  int64            `json:"user_id"`
	AssetID *int64           `json:"asset_id"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
	Read    bool             `json:"is_read"`
	LinkURL *string          `json:"link_url"`
}

// NotificationMarker records a reminder milestone for an asset.
type NotificationMarker struct {
	Base
	AssetID           int64     `json:"asset_id"`
	ReminderMilestone time.Time `json:"reminder_milestone"`
}

// Department groups users and optionally names a manager.
type Department struct {
	Base
	Name          string `json:"name"`
	Description   string `json:"description"`
	ManagerID     *int64 `json:"manager_id"`
	Active        bool   `json:"is_active"`
	EmployeeCount int    `json:"employee_count"`
}

// User is a staff member who can hold assets and receive notifications.
type User struct {
	Base
	Name         string `json:"name"`
	Email        string `json:"email"`
	DepartmentID int64  `json:"department_id"`
	Role         Role   `json:"role"`
	Active       bool   `json:"active"`
}

// ChatMessage stores one side of an assistant conversation.
type ChatMessage struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Content   string           `json:"content"`
	Direction MessageDirection `json:"direction"`
	CreatedAt time.Time        `json:"created_at"`
}

// Change describes a mutation applied to an entity inside a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported write operations captured per transaction.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID int64
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}
