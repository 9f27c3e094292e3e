// Package users models stockroom accounts and their management panel:
// user records, audit log entries, role permissions and the REST calls
// behind the user-management view.
package users

import "strings"

// Roles, in decreasing privilege.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Sub-views of the user-management panel.
const (
	ViewList          = "view"
	ViewCreate        = "create"
	ViewResetPassword = "reset-password"
	ViewLogs          = "logs"
)

// DefaultView is shown when the panel opens.
const DefaultView = ViewList

// ValidView reports whether v names a panel sub-view.
func ValidView(v string) bool {
	switch v {
	case ViewList, ViewCreate, ViewResetPassword, ViewLogs:
		return true
	}
	return false
}

// User is an account as listed by the backend.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// AuditLog is one entry of the user audit trail.
type AuditLog struct {
	ID         int64  `json:"id"`
	Actor      string `json:"actor"`
	TargetUser string `json:"target_user"`
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	Details    string `json:"details"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
}

// CreateForm is the new-account form. Passwords never leave the server
// in snapshots.
type CreateForm struct {
	Username string `json:"username"`
	Password string `json:"-"`
	Role     string `json:"role"`
}

// NewCreateForm returns an empty form defaulting to the user role.
func NewCreateForm() CreateForm {
	return CreateForm{Role: RoleUser}
}

// ResetPasswordForm is the password reset form.
type ResetPasswordForm struct {
	Username    string `json:"username"`
	NewPassword string `json:"-"`
}

// RoleEdit tracks an in-progress role change. UserID 0 means none.
type RoleEdit struct {
	UserID  int64  `json:"userId"`
	NewRole string `json:"newRole"`
}

// NewRoleEdit returns an idle role edit.
func NewRoleEdit() RoleEdit {
	return RoleEdit{NewRole: RoleUser}
}

// Permissions are what the signed-in role may do in the panel.
type Permissions struct {
	IsOwner        bool `json:"isOwner"`
	IsAdmin        bool `json:"isAdmin"`
	CanCreateUsers bool `json:"canCreateUsers"`
}

// PermissionsFor derives panel permissions from a role.
func PermissionsFor(role string) Permissions {
	isOwner := role == RoleOwner
	isAdmin := role == RoleAdmin
	return Permissions{
		IsOwner:        isOwner,
		IsAdmin:        isAdmin,
		CanCreateUsers: isOwner || isAdmin,
	}
}

// CreateRole is the role actually requested for a new account: only owners
// may choose, everyone else creates plain users.
func (p Permissions) CreateRole(requested string) string {
	if p.IsOwner && strings.TrimSpace(requested) != "" {
		return requested
	}
	return RoleUser
}
