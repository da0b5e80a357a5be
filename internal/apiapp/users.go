package apiapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phillip-england/branchdesk/internal/security"
	"github.com/phillip-england/branchdesk/internal/session"
)

// NewUser describes an account created from the command line.
type NewUser struct {
	Username string
	Password string
	Name     string
	Email    string
	Mobile   string
	Role     string
	BranchID int64
}

// AddUser creates an account. Branch users must name an existing branch;
// a taken username wraps errConflict.
func AddUser(ctx context.Context, store Store, u NewUser) (int64, error) {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return 0, errors.New("username is required")
	}
	switch u.Role {
	case session.RoleSuperAdmin, session.RoleAdmin:
		u.BranchID = 0
	case session.RoleBranch:
		if u.BranchID <= 0 {
			return 0, errors.New("branch users need --branch-id")
		}
		if _, err := store.Get(ctx, tableBranches, u.BranchID); err != nil {
			if errors.Is(err, errNotFound) {
				return 0, fmt.Errorf("branch %d does not exist", u.BranchID)
			}
			return 0, err
		}
	default:
		return 0, fmt.Errorf("unknown role %q (want super_admin, admin or branch)", u.Role)
	}
	hash, err := security.HashPassword(u.Password)
	if err != nil {
		return 0, err
	}
	existing, err := store.Find(ctx, tableUsers, "username", u.Username)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, fmt.Errorf("user %q: %w", u.Username, errConflict)
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	stamp := now()
	id, err := store.Insert(ctx, tableUsers, record{
		"username":      u.Username,
		"password_hash": hash,
		"name":          u.Name,
		"email":         u.Email,
		"mobile":        u.Mobile,
		"role":          u.Role,
		"branch_id":     u.BranchID,
		"status":        int64(1),
		"created_at":    stamp,
		"updated_at":    stamp,
	})
	if errors.Is(err, errConflict) {
		return 0, fmt.Errorf("user %q: %w", u.Username, errConflict)
	}
	return id, err
}

// ensureSuperAdmin creates the configured super admin or resets its
// password and role.
func ensureSuperAdmin(ctx context.Context, store Store, username, password string) error {
	existing, err := store.Find(ctx, tableUsers, "username", username)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		_, err := AddUser(ctx, store, NewUser{
			Username: username,
			Password: password,
			Name:     "Super Admin",
			Role:     session.RoleSuperAdmin,
		})
		return err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	return store.Update(ctx, tableUsers, existing[0].integer("id"), record{
		"password_hash": hash,
		"role":          session.RoleSuperAdmin,
		"status":        int64(1),
		"updated_at":    now(),
	})
}
