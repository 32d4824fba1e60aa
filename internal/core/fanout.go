package core

import (
	"errors"
	"fmt"

	"assetledger/pkg/domain"
)

const profileLink = "/profile"

// ManagerLookup resolves the department and manager records needed by the
// manager cascade. Transaction and TransactionView both satisfy it.
type ManagerLookup interface {
	FindDepartment(id int64) (Department, bool)
	FindUser(id int64) (User, bool)
}

// FanoutSubject carries the entities already loaded by the lifecycle
// operation. User is the assignee for ASSIGNED and the former holder for
// RECLAIMED.
type FanoutSubject struct {
	Asset     Asset
	AssetType AssetType
	User      User
}

// SkippedNotification records a secondary notification that was dropped.
type SkippedNotification struct {
	DepartmentID int64
	ManagerID    int64
	Reason       string
}

// FanoutPlan lists the notifications to insert for one transition.
type FanoutPlan struct {
	Notifications []Notification
	Skipped       []SkippedNotification
}

var errNoRecipient = errors.New("fan-out requires a recipient")

// PlanNotifications decides which notifications a transition produces. It
// performs no writes. A manager that cannot be resolved only suppresses the
// secondary notification and is reported in Skipped.
func PlanNotifications(kind HistoryAction, subject FanoutSubject, lookup ManagerLookup) (FanoutPlan, error) {
	switch kind {
	case domain.HistoryAssigned:
		if subject.User.ID == 0 {
			return FanoutPlan{}, errNoRecipient
		}
		return planAssigned(subject, lookup), nil
	case domain.HistoryReclaimed:
		if subject.User.ID == 0 {
			return FanoutPlan{}, errNoRecipient
		}
		return FanoutPlan{Notifications: []Notification{{
			UserID:  subject.User.ID,
			AssetID: domain.Ptr(subject.Asset.ID),
			Title:   "Asset reclaimed",
			Message: fmt.Sprintf("Asset %s (%s) has been reclaimed from you. Asset code: %s",
				subject.Asset.Name, typeName(subject.AssetType), subject.Asset.Code),
			Type: domain.NotificationWarning,
		}}}, nil
	default:
		return FanoutPlan{}, nil
	}
}

func planAssigned(subject FanoutSubject, lookup ManagerLookup) FanoutPlan {
	asset, user := subject.Asset, subject.User
	plan := FanoutPlan{Notifications: []Notification{{
		UserID:  user.ID,
		AssetID: domain.Ptr(asset.ID),
		Title:   "Asset assigned to you",
		Message: fmt.Sprintf("Asset %s (%s) has been assigned to you. Asset code: %s",
			asset.Name, typeName(subject.AssetType), asset.Code),
		Type: domain.NotificationInfo,
	}}}

	if user.DepartmentID == 0 || lookup == nil {
		return plan
	}
	dept, ok := lookup.FindDepartment(user.DepartmentID)
	if !ok || dept.ManagerID == nil {
		return plan
	}
	manager, ok := lookup.FindUser(*dept.ManagerID)
	if !ok {
		plan.Skipped = append(plan.Skipped, SkippedNotification{
			DepartmentID: dept.ID,
			ManagerID:    *dept.ManagerID,
			Reason:       "manager not found",
		})
		return plan
	}
	plan.Notifications = append(plan.Notifications, Notification{
		UserID:  manager.ID,
		AssetID: domain.Ptr(asset.ID),
		Title:   "Asset assigned in your department",
		Message: fmt.Sprintf("Asset %s (%s) has been assigned to %s in department %s. Asset code: %s",
			asset.Name, typeName(subject.AssetType), user.Name, dept.Name, asset.Code),
		Type: domain.NotificationInfo,
	})
	return plan
}

// PlanDepartmentUpdate notifies a department's manager that the department
// changed. employees is the current member count.
func PlanDepartmentUpdate(dept Department, employees int, lookup ManagerLookup) FanoutPlan {
	if dept.ManagerID == nil || lookup == nil {
		return FanoutPlan{}
	}
	manager, ok := lookup.FindUser(*dept.ManagerID)
	if !ok {
		return FanoutPlan{Skipped: []SkippedNotification{{
			DepartmentID: dept.ID,
			ManagerID:    *dept.ManagerID,
			Reason:       "manager not found",
		}}}
	}
	description := dept.Description
	if description == "" {
		description = "No description"
	}
	return FanoutPlan{Notifications: []Notification{{
		UserID:  manager.ID,
		Title:   "Department updated",
		Message: fmt.Sprintf("Department %s has been updated. Name: %s, Description: %s, Employees: %d", dept.Name, dept.Name, description, employees),
		Type:    domain.NotificationInfo,
	}}}
}

// PlanAccountNotice builds the notification a user receives when an
// administrator creates or edits their account.
func PlanAccountNotice(kind NotificationType, user User, dept *Department) (Notification, bool) {
	deptName := "N/A"
	if dept != nil {
		deptName = dept.Name
	}
	n := Notification{UserID: user.ID, Type: kind, LinkURL: domain.Ptr(profileLink)}
	switch kind {
	case domain.NotificationUserCreated:
		n.Title = "Your account has been created"
		n.Message = fmt.Sprintf("Hello %s, your account was created by an administrator. Email: %s, Department: %s, Role: %s",
			user.Name, user.Email, deptName, user.Role)
	case domain.NotificationUserUpdated:
		n.Title = "Your account details have been updated"
		n.Message = fmt.Sprintf("Hello %s, your account details were updated by an administrator. Department: %s, Role: %s",
			user.Name, deptName, user.Role)
	default:
		return Notification{}, false
	}
	return n, true
}

func typeName(t AssetType) string {
	if t.Name == "" {
		return "N/A"
	}
	return t.Name
}
