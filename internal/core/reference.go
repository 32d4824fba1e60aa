package core

import (
	"context"

	"assetledger/pkg/domain"
)

// DepartmentRequest carries the mutable department fields.
type DepartmentRequest struct {
	Name        string
	Description string
	ManagerID   *int64
	Active      bool
}

// UserRequest carries the mutable user fields.
type UserRequest struct {
	Name         string
	Email        string
	DepartmentID int64
	Role         Role
	Active       bool
}

// AssetTypeRequest carries the mutable asset type fields.
type AssetTypeRequest struct {
	Name        string
	Description string
}

func requireManager(tx Transaction, managerID *int64) error {
	if managerID == nil {
		return nil
	}
	if _, ok := tx.FindUser(*managerID); !ok {
		return domain.NotFoundError{Entity: domain.EntityUser, ID: *managerID}
	}
	return nil
}

func countMembers(users []User, deptID int64) int {
	n := 0
	for _, u := range users {
		if u.DepartmentID == deptID {
			n++
		}
	}
	return n
}

// CreateDepartment persists a department.
func (s *Service) CreateDepartment(ctx context.Context, req DepartmentRequest) (Department, Result, error) {
	var created Department
	res, err := s.run(ctx, "create_department", func(tx Transaction) error {
		if err := requireManager(tx, req.ManagerID); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateDepartment(Department{
			Name:        req.Name,
			Description: req.Description,
			ManagerID:   req.ManagerID,
			Active:      req.Active,
		})
		return err
	})
	return created, res, err
}

// UpdateDepartment overwrites a department and notifies its manager. The
// manager must exist, the same as on create.
func (s *Service) UpdateDepartment(ctx context.Context, id int64, req DepartmentRequest) (Department, Result, error) {
	var (
		updated Department
		fx      txEffects
	)
	res, err := s.run(ctx, "update_department", func(tx Transaction) error {
		fx.reset()
		if err := requireManager(tx, req.ManagerID); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateDepartment(id, func(d *Department) error {
			d.Name = req.Name
			d.Description = req.Description
			d.ManagerID = req.ManagerID
			d.Active = req.Active
			return nil
		})
		if err != nil {
			return err
		}
		updated.EmployeeCount = countMembers(tx.Snapshot().ListUsers(), id)
		return fx.insert(tx, PlanDepartmentUpdate(updated, updated.EmployeeCount, tx))
	})
	if err != nil {
		return Department{}, res, err
	}
	for _, sk := range fx.skipped {
		s.logger.Warn("department manager notification skipped", "department_id", sk.DepartmentID, "manager_id", sk.ManagerID, "reason", sk.Reason)
	}
	s.publish(ctx, "update_department", fx.notifications)
	return updated, res, nil
}

// DeleteDepartment removes a department without members.
func (s *Service) DeleteDepartment(ctx context.Context, id int64) (Result, error) {
	return s.run(ctx, "delete_department", func(tx Transaction) error {
		return tx.DeleteDepartment(id)
	})
}

// GetDepartment returns a department with its member count.
func (s *Service) GetDepartment(ctx context.Context, id int64) (Department, error) {
	var out Department
	err := s.view(ctx, "get_department", func(v TransactionView) error {
		d, ok := v.FindDepartment(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityDepartment, ID: id}
		}
		d.EmployeeCount = countMembers(v.ListUsers(), id)
		out = d
		return nil
	})
	return out, err
}

// ListDepartments returns every department with its member count. When no
// manager is recorded the first MANAGER member stands in.
func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	var out []Department
	err := s.view(ctx, "list_departments", func(v TransactionView) error {
		users := v.ListUsers()
		out = v.ListDepartments()
		for i := range out {
			out[i].EmployeeCount = countMembers(users, out[i].ID)
			if out[i].ManagerID != nil {
				continue
			}
			for _, u := range users {
				if u.DepartmentID == out[i].ID && u.Role == domain.RoleManager {
					out[i].ManagerID = domain.Ptr(u.ID)
					break
				}
			}
		}
		return nil
	})
	return out, err
}

func (s *Service) saveUser(ctx context.Context, op string, id int64, req UserRequest) (User, Result, error) {
	var (
		saved User
		fx    txEffects
	)
	res, err := s.run(ctx, op, func(tx Transaction) error {
		fx.reset()
		dept, ok := tx.FindDepartment(req.DepartmentID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityDepartment, ID: req.DepartmentID}
		}
		var (
			err  error
			kind NotificationType
		)
		if id == 0 {
			kind = domain.NotificationUserCreated
			saved, err = tx.CreateUser(User{
				Name:         req.Name,
				Email:        req.Email,
				DepartmentID: req.DepartmentID,
				Role:         req.Role,
				Active:       req.Active,
			})
		} else {
			kind = domain.NotificationUserUpdated
			saved, err = tx.UpdateUser(id, func(u *User) error {
				u.Name = req.Name
				u.Email = req.Email
				u.DepartmentID = req.DepartmentID
				u.Role = req.Role
				u.Active = req.Active
				return nil
			})
		}
		if err != nil {
			return err
		}
		notice, ok := PlanAccountNotice(kind, saved, &dept)
		if !ok {
			return nil
		}
		return fx.insert(tx, FanoutPlan{Notifications: []Notification{notice}})
	})
	if err != nil {
		return User{}, res, err
	}
	s.publish(ctx, op, fx.notifications)
	return saved, res, nil
}

// CreateUser persists a user in an existing department and sends them a
// USER_CREATED notification.
func (s *Service) CreateUser(ctx context.Context, req UserRequest) (User, Result, error) {
	return s.saveUser(ctx, "create_user", 0, req)
}

// UpdateUser overwrites a user and sends them a USER_UPDATED notification.
func (s *Service) UpdateUser(ctx context.Context, id int64, req UserRequest) (User, Result, error) {
	if id == 0 {
		return User{}, Result{}, domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	return s.saveUser(ctx, "update_user", id, req)
}

// DeleteUser removes a user who holds no assets.
func (s *Service) DeleteUser(ctx context.Context, id int64) (Result, error) {
	return s.run(ctx, "delete_user", func(tx Transaction) error {
		return tx.DeleteUser(id)
	})
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	var out User
	err := s.view(ctx, "get_user", func(v TransactionView) error {
		u, ok := v.FindUser(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityUser, ID: id}
		}
		out = u
		return nil
	})
	return out, err
}

// ListUsers returns every user ordered by id.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	err := s.view(ctx, "list_users", func(v TransactionView) error {
		out = v.ListUsers()
		return nil
	})
	return out, err
}

// ListUsersByDepartment returns the members of one department.
func (s *Service) ListUsersByDepartment(ctx context.Context, deptID int64) ([]User, error) {
	var out []User
	err := s.view(ctx, "list_users_by_department", func(v TransactionView) error {
		if _, ok := v.FindDepartment(deptID); !ok {
			return domain.NotFoundError{Entity: domain.EntityDepartment, ID: deptID}
		}
		out = []User{}
		for _, u := range v.ListUsers() {
			if u.DepartmentID == deptID {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, err
}

// CreateAssetType persists an asset type.
func (s *Service) CreateAssetType(ctx context.Context, req AssetTypeRequest) (AssetType, Result, error) {
	var created AssetType
	res, err := s.run(ctx, "create_asset_type", func(tx Transaction) error {
		var err error
		created, err = tx.CreateAssetType(AssetType{Name: req.Name, Description: req.Description})
		return err
	})
	return created, res, err
}

// UpdateAssetType overwrites an asset type.
func (s *Service) UpdateAssetType(ctx context.Context, id int64, req AssetTypeRequest) (AssetType, Result, error) {
	var updated AssetType
	res, err := s.run(ctx, "update_asset_type", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateAssetType(id, func(t *AssetType) error {
			t.Name = req.Name
			t.Description = req.Description
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteAssetType removes an asset type no asset uses.
func (s *Service) DeleteAssetType(ctx context.Context, id int64) (Result, error) {
	return s.run(ctx, "delete_asset_type", func(tx Transaction) error {
		return tx.DeleteAssetType(id)
	})
}

// GetAssetType returns one asset type.
func (s *Service) GetAssetType(ctx context.Context, id int64) (AssetType, error) {
	var out AssetType
	err := s.view(ctx, "get_asset_type", func(v TransactionView) error {
		t, ok := v.FindAssetType(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityAssetType, ID: id}
		}
		out = t
		return nil
	})
	return out, err
}

// ListAssetTypes returns every asset type ordered by id.
func (s *Service) ListAssetTypes(ctx context.Context) ([]AssetType, error) {
	var out []AssetType
	err := s.view(ctx, "list_asset_types", func(v TransactionView) error {
		out = v.ListAssetTypes()
		return nil
	})
	return out, err
}
