package core

import "assetledger/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Asset              = domain.Asset
	AssetType          = domain.AssetType
	AssetHistory       = domain.AssetHistory
	AssetStatus        = domain.AssetStatus
	AssetCondition     = domain.AssetCondition
	HistoryAction      = domain.HistoryAction
	Notification       = domain.Notification
	NotificationType   = domain.NotificationType
	NotificationMarker = domain.NotificationMarker
	Department         = domain.Department
	User               = domain.User
	Role               = domain.Role
	ChatMessage        = domain.ChatMessage
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
