package model

import "time"

// Role is the capability class of an account.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleFieldWorker Role = "FIELD_WORKER"
	RoleUser        Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFieldWorker, RoleUser:
		return true
	}
	return false
}

// User represents an account in the system
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Do not expose password hash in JSON responses
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	IsApproved   bool      `json:"is_approved"`
	Phone        *string   `json:"phone,omitempty"`
	Address      *string   `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity returns the verified capability tuple of the user.
func (u *User) Identity() Identity {
	return Identity{
		UserID:     u.ID,
		Role:       u.Role,
		IsActive:   u.IsActive,
		IsApproved: u.IsApproved,
	}
}

// Identity is the authenticated caller as resolved by the auth middleware.
// Services trust it and never look at credentials.
type Identity struct {
	UserID     int64
	Role       Role
	IsActive   bool
	IsApproved bool
}

// EligibleForAssignment reports whether a field worker may receive work.
func (u *User) EligibleForAssignment() bool {
	return u.Role == RoleFieldWorker && u.IsActive && u.IsApproved
}

// UserFilters contains filter parameters for admin user listings
type UserFilters struct {
	Role            *Role
	PendingApproval bool
}

// UserCounts holds the user side of the admin dashboard.
type UserCounts struct {
	TotalUsers         int64 `json:"total_users"`
	ActiveFieldWorkers int64 `json:"active_field_workers"`
	PendingApprovals   int64 `json:"pending_approvals"`
}

// ProfileUpdate carries a self-service profile edit. Nil pointers keep the
// stored value; an empty Phone or Address clears it.
type ProfileUpdate struct {
	Username      string
	Email         string
	PasswordHash  *string
	Phone         *string
	Address       *string
	ResetApproval bool
}
