package model

import "time"

const (
	ActionCreateCategory     = "CREATE_CATEGORY"
	ActionUpdateCategory     = "UPDATE_CATEGORY"
	ActionDeleteCategory     = "DELETE_CATEGORY"
	ActionCreateProduct      = "CREATE_PRODUCT"
	ActionUpdateProduct      = "UPDATE_PRODUCT"
	ActionDeleteProduct      = "DELETE_PRODUCT"
	ActionAddProductImages   = "ADD_PRODUCT_IMAGES"
	ActionUpdateProductImage = "UPDATE_PRODUCT_IMAGE"
	ActionDeleteProductImage = "DELETE_PRODUCT_IMAGE"

	ActionCreateUser = "CREATE_USER"
	ActionUpdateUser = "UPDATE_USER"
	ActionDeleteUser = "DELETE_USER"
	ActionCreateRole = "CREATE_ROLE"
	ActionUpdateRole = "UPDATE_ROLE"
	ActionDeleteRole = "DELETE_ROLE"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"` // nil for seeding and other unattended writes
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL;" json:"user"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:text" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
