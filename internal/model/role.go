package model

import "time"

// Reserved role names. These roles are seeded and can never be deleted.
const (
	RoleUser       = "User"
	RoleAdmin      = "Admin"
	RoleSuperAdmin = "Super Admin"
)

// Role represents a user role with associated permissions
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission represents a single permission that can be assigned to roles
type Permission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"` // e.g. "edit users"
	Group     string    `gorm:"type:varchar(50);not null;index" json:"group"`       // "users", "roles", "catalog"...
	CreatedAt time.Time `json:"created_at"`
}
