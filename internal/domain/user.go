package domain

import "time"

// Role names known to the service. Roles are static reference data seeded at
// startup; everything else refers to them by name.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Role is a named authorization level. Each user carries exactly one role.
type Role struct {
	ID   int64
	Name string
}

// User is a registered account. Accounts start inactive and flip to active
// once the email verification token is redeemed.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	AvatarURL    string
	RoleID       int64
	RoleName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
