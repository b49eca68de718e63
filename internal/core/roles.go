package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MrKriegler/policy-admin/internal/platform/ids"
)

type Role struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	IsPermanent bool      `json:"isPermanent"` // built-in roles cannot be deleted
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type RoleInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type RoleRepo interface {
	Get(ctx context.Context, id string) (Role, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Role, error)
	Upsert(ctx context.Context, r Role) error
	Delete(ctx context.Context, id string) error
	Assign(ctx context.Context, tenantID, roleID, userID string) error
	CountAssignments(ctx context.Context, tenantID, roleID string) (int64, error)
}

// DefaultRolePermissionsRegistry supplies the permissions a role starts
// with when created without any.
type DefaultRolePermissionsRegistry interface {
	DefaultPermissions(roleName string) []string
}

// StaticRolePermissions maps lower-cased role names to permissions.
type StaticRolePermissions map[string][]string

func (s StaticRolePermissions) DefaultPermissions(roleName string) []string {
	return slices.Clone(s[strings.ToLower(roleName)])
}

func DefaultRolePermissions() StaticRolePermissions {
	return StaticRolePermissions{
		"underwriter": {"quote:read", "quote:endorse", "quote:decline", "policy:read"},
		"broker":      {"quote:read", "quote:create", "quote:update", "policy:read"},
		"admin":       {"quote:*", "policy:*", "product:*", "role:*", "alert:*"},
	}
}

type RoleService interface {
	CreateRole(ctx context.Context, tenantID string, in RoleInput) (Role, error)
	UpdateRole(ctx context.Context, tenantID, roleID string, in RoleInput) (Role, error)
	DeleteRole(ctx context.Context, tenantID, roleID string) error
	GetRole(ctx context.Context, tenantID, roleID string) (Role, error)
	AssignRole(ctx context.Context, tenantID, roleID, userID string) error
}

type roleService struct {
	roles    RoleRepo
	defaults DefaultRolePermissionsRegistry
	clock    func() time.Time
}

func NewRoleService(roles RoleRepo, defaults DefaultRolePermissionsRegistry) RoleService {
	if defaults == nil {
		defaults = StaticRolePermissions{}
	}
	return &roleService{roles: roles, defaults: defaults, clock: time.Now}
}

func (s *roleService) CreateRole(ctx context.Context, tenantID string, in RoleInput) (Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Role{}, errRoleNameBlank()
	}
	perms := in.Permissions
	if len(perms) == 0 {
		perms = s.defaults.DefaultPermissions(name)
	}
	now := s.clock()
	r := Role{
		ID:          ids.New(),
		TenantID:    tenantID,
		Name:        name,
		Description: in.Description,
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.roles.Upsert(ctx, r); err != nil {
		return Role{}, err
	}
	return r, nil
}

func (s *roleService) UpdateRole(ctx context.Context, tenantID, roleID string, in RoleInput) (Role, error) {
	r, err := s.GetRole(ctx, tenantID, roleID)
	if err != nil {
		return Role{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Role{}, errRoleNameBlank()
	}
	r.Name = name
	r.Description = in.Description
	if in.Permissions != nil {
		r.Permissions = in.Permissions
	}
	r.UpdatedAt = s.clock()
	if err := s.roles.Upsert(ctx, r); err != nil {
		return Role{}, err
	}
	return r, nil
}

func (s *roleService) DeleteRole(ctx context.Context, tenantID, roleID string) error {
	r, err := s.GetRole(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if r.IsPermanent {
		return newError(ErrForbidden, "cannot.delete.permanent.role", "Permanent role",
			fmt.Sprintf("role %q is built in and cannot be deleted", r.Name))
	}
	n, err := s.roles.CountAssignments(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if n > 0 {
		return newError(ErrConflict, "cannot.delete.role.in.use", "Role in use",
			fmt.Sprintf("role %q is assigned to %d users", r.Name, n)).With("assignments", n)
	}
	return s.roles.Delete(ctx, roleID)
}

func (s *roleService) GetRole(ctx context.Context, tenantID, roleID string) (Role, error) {
	r, err := s.roles.Get(ctx, roleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Role{}, newError(ErrNotFound, "role.not.found", "Role not found",
				fmt.Sprintf("role %q could not be found", roleID))
		}
		return Role{}, err
	}
	if err := EnsureSameTenant(tenantID, r.TenantID, "role "+roleID); err != nil {
		return Role{}, err
	}
	return r, nil
}

func (s *roleService) AssignRole(ctx context.Context, tenantID, roleID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user ID is required", ErrValidation)
	}
	if _, err := s.GetRole(ctx, tenantID, roleID); err != nil {
		return err
	}
	return s.roles.Assign(ctx, tenantID, roleID, userID)
}

func errRoleNameBlank() *Error {
	return newError(ErrValidation, "role.name.cannot.be.blank", "Role name required", "a role needs a name")
}

var ErrRoleNotFound = fmt.Errorf("%w: role not found", ErrNotFound)
